// Package errors 定义业务错误码和错误处理
package errors

import (
	stderrors "errors"
	"fmt"

	"github.com/chensakkolmlbb2025/royal-elegance/pkg/khqr"
)

// AppError 应用错误
type AppError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Err     error  `json:"-"`
}

// Error 实现 error 接口
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%d] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%d] %s", e.Code, e.Message)
}

// Unwrap 实现 errors.Unwrap
func (e *AppError) Unwrap() error {
	return e.Err
}

// Is 按错误码比较，便于 errors.Is(err, ErrBookingNotFound)
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	return ok && t.Code == e.Code
}

// New 创建新的应用错误
func New(code int, message string) *AppError {
	return &AppError{Code: code, Message: message}
}

// Wrap 包装错误
func Wrap(code int, message string, err error) *AppError {
	return &AppError{Code: code, Message: message, Err: err}
}

// WithMessage 修改错误消息
func (e *AppError) WithMessage(message string) *AppError {
	return &AppError{Code: e.Code, Message: message, Err: e.Err}
}

// WithError 添加原始错误
func (e *AppError) WithError(err error) *AppError {
	return &AppError{Code: e.Code, Message: e.Message, Err: err}
}

// 通用错误码 (1000-1999)
var (
	ErrUnknown         = New(1000, "未知错误")
	ErrInvalidParams   = New(1001, "参数错误")
	ErrNotFound        = New(1002, "资源不存在")
	ErrAlreadyExists   = New(1003, "资源已存在")
	ErrDatabaseError   = New(1004, "数据库错误")
	ErrCacheError      = New(1005, "缓存错误")
	ErrInternalError   = New(1006, "内部错误")
	ErrExternalService = New(1007, "外部服务错误")
	ErrRateLimitExceed = New(1008, "请求过于频繁")
)

// 认证错误码 (2000-2999)
var (
	ErrUnauthorized     = New(2000, "未登录")
	ErrTokenExpired     = New(2001, "登录已过期")
	ErrTokenInvalid     = New(2002, "无效的令牌")
	ErrPermissionDenied = New(2004, "权限不足")
)

// 支付错误码 (6000-6999)
var (
	ErrPaymentNotFound      = New(6000, "支付记录不存在")
	ErrPaymentFailed        = New(6001, "支付失败")
	ErrPaymentExpired       = New(6002, "支付已过期")
	ErrPaymentMethodError   = New(6006, "支付方式错误")
	ErrPaymentCallbackError = New(6007, "支付回调错误")
	ErrPaymentGateway       = New(6008, "支付网关不可用")
	ErrCurrencyUnsupported  = New(6009, "不支持的币种")
	ErrCallbackSignature    = New(6010, "回调签名校验失败")
)

// KHQR 错误码 (7000-7999)
var (
	ErrKHQRInvalid   = New(7001, "KHQR 字段不合法")
	ErrKHQRChecksum  = New(7002, "KHQR 校验值不匹配")
	ErrKHQRStructure = New(7003, "KHQR 结构错误")
)

// 预订错误码 (8000-8999)
var (
	ErrBookingNotFound    = New(8000, "预订不存在")
	ErrBookingStatusError = New(8001, "预订状态异常")
	ErrBookingConflict    = New(8002, "时段已被预订")
	ErrRoomNotFound       = New(8003, "房间不存在")
	ErrRoomNotAvailable   = New(8004, "房间不可用")
	ErrTimeSlotInvalid    = New(8005, "无效的入住时段")
)

// FromKHQR 将编解码错误转换为应用错误
func FromKHQR(err error) *AppError {
	if err == nil {
		return nil
	}

	var (
		validation *khqr.PayloadValidationError
		mismatch   *khqr.ChecksumMismatchError
	)
	switch {
	case stderrors.As(err, &mismatch):
		return ErrKHQRChecksum.WithError(err)
	case stderrors.As(err, &validation):
		return ErrKHQRInvalid.WithMessage(ErrKHQRInvalid.Message + ": " + validation.Field).WithError(err)
	case stderrors.Is(err, khqr.ErrInvalidPayload):
		return ErrKHQRStructure.WithError(err)
	default:
		return ErrInternalError.WithError(err)
	}
}

// IsAppError 判断是否为应用错误
func IsAppError(err error) bool {
	var appErr *AppError
	return stderrors.As(err, &appErr)
}

// GetAppError 获取应用错误
func GetAppError(err error) *AppError {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr
	}
	return ErrUnknown.WithError(err)
}
