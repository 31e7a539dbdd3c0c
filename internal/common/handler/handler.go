// Package handler 提供 API Handler 的通用辅助函数
// 统一错误处理、认证检查、参数解析等操作
package handler

import (
	stderrors "errors"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/chensakkolmlbb2025/royal-elegance/internal/common/errors"
	"github.com/chensakkolmlbb2025/royal-elegance/internal/common/logger"
	"github.com/chensakkolmlbb2025/royal-elegance/internal/common/response"
	"github.com/chensakkolmlbb2025/royal-elegance/internal/common/utils"
	"github.com/chensakkolmlbb2025/royal-elegance/internal/middleware"
	"github.com/chensakkolmlbb2025/royal-elegance/pkg/khqr"
)

// ==================== 错误处理 ====================

// HandleError 处理错误并发送响应
// err 为 nil 时返回 false；否则已写出响应，调用方应直接 return
//
// 使用示例:
//
//	result, err := service.DoSomething()
//	if HandleError(c, err) {
//	    return
//	}
func HandleError(c *gin.Context, err error) bool {
	if err == nil {
		return false
	}

	var appErr *errors.AppError
	switch {
	case stderrors.As(err, &appErr):
		response.Error(c, appErr.Code, appErr.Message)
	case stderrors.Is(err, khqr.ErrInvalidPayload):
		mapped := errors.FromKHQR(err)
		response.Error(c, mapped.Code, mapped.Message)
	default:
		// 非业务错误不向客户端暴露细节
		logger.Error("unhandled error",
			logger.RequestID(middleware.GetRequestID(c)),
			logger.Path(c.Request.URL.Path),
			zap.Error(err),
		)
		response.InternalError(c, "服务器内部错误")
	}
	return true
}

// MustSucceed 有错误时返回错误响应，否则返回成功响应
func MustSucceed(c *gin.Context, err error, data interface{}) {
	if HandleError(c, err) {
		return
	}
	response.Success(c, data)
}

// MustSucceedWithMessage 带自定义成功消息
func MustSucceedWithMessage(c *gin.Context, err error, message string, data interface{}) {
	if HandleError(c, err) {
		return
	}
	response.SuccessWithMessage(c, message, data)
}

// MustSucceedPage 分页响应版本
func MustSucceedPage(c *gin.Context, err error, list interface{}, total int64, page, pageSize int) {
	if HandleError(c, err) {
		return
	}
	response.SuccessPage(c, list, total, page, pageSize)
}

// ==================== 用户认证检查 ====================

// RequireUserID 获取当前用户ID，未登录时写出 401 并返回 false
func RequireUserID(c *gin.Context) (string, bool) {
	userID := middleware.GetUserID(c)
	if userID == "" {
		response.Unauthorized(c, "请先登录")
		return "", false
	}
	return userID, true
}

// GetOptionalUserID 获取当前用户ID（可选），未登录返回空串
func GetOptionalUserID(c *gin.Context) string {
	return middleware.GetUserID(c)
}

// ==================== 参数解析 ====================

// ParseParamID 解析指定路径参数为 int64
func ParseParamID(c *gin.Context, paramName, resourceName string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(paramName), 10, 64)
	if err != nil || id <= 0 {
		response.BadRequest(c, "无效的"+resourceName+"ID")
		return 0, false
	}
	return id, true
}

// ParseQueryID 解析查询参数中的可选 ID
// 参数为空返回 (nil, true)；解析失败已写出 400 并返回 (nil, false)
func ParseQueryID(c *gin.Context, paramName, resourceName string) (*int64, bool) {
	idStr := c.Query(paramName)
	if idStr == "" {
		return nil, true
	}
	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil {
		response.BadRequest(c, "无效的"+resourceName+"ID")
		return nil, false
	}
	return &id, true
}

// RequireParam 获取必填路径参数
func RequireParam(c *gin.Context, paramName, label string) (string, bool) {
	v := c.Param(paramName)
	if v == "" {
		response.BadRequest(c, label+"不能为空")
		return "", false
	}
	return v, true
}

// ==================== 时间解析 ====================

// 时间格式常量
const (
	DateFormat         = "2006-01-02"
	DateTimeFormat     = "2006-01-02 15:04:05"
	DateTimeFormatISO  = time.RFC3339
	DateTimeFormatISO2 = "2006-01-02T15:04:05"
)

var dateTimeFormats = []string{
	DateTimeFormatISO,
	DateTimeFormat,
	DateTimeFormatISO2,
	DateFormat,
}

// ParseDate 解析日期字符串 (YYYY-MM-DD)
func ParseDate(s string) (time.Time, error) {
	return time.Parse(DateFormat, s)
}

// ParseDateTime 解析日期时间字符串，支持 RFC3339、日期时间与纯日期
func ParseDateTime(s string) (time.Time, error) {
	for _, format := range dateTimeFormats {
		if t, err := time.Parse(format, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, errors.ErrInvalidParams.WithMessage("时间格式错误")
}

// ParseStayRange 从查询参数解析入住区间（check_in, check_out）
// 两者均必填且退房必须晚于入住；失败时已写出 400
func ParseStayRange(c *gin.Context) (checkIn, checkOut time.Time, ok bool) {
	inStr, outStr := c.Query("check_in"), c.Query("check_out")
	if inStr == "" || outStr == "" {
		response.BadRequest(c, "请指定入住和退房日期")
		return time.Time{}, time.Time{}, false
	}

	checkIn, err := ParseDateTime(inStr)
	if err != nil {
		response.BadRequest(c, "无效的入住日期格式")
		return time.Time{}, time.Time{}, false
	}
	checkOut, err = ParseDateTime(outStr)
	if err != nil {
		response.BadRequest(c, "无效的退房日期格式")
		return time.Time{}, time.Time{}, false
	}
	if !checkOut.After(checkIn) {
		response.BadRequest(c, "退房日期必须晚于入住日期")
		return time.Time{}, time.Time{}, false
	}
	return checkIn, checkOut, true
}

// ==================== 分页处理 ====================

// BindPagination 从查询参数绑定并规范化分页参数
func BindPagination(c *gin.Context) utils.Pagination {
	var p utils.Pagination
	p.Page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	p.PageSize, _ = strconv.Atoi(c.DefaultQuery("page_size", "10"))
	p.Normalize()
	return p
}
