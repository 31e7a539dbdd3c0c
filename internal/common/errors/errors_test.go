// Package errors 错误码和错误处理单元测试
package errors

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/chensakkolmlbb2025/royal-elegance/pkg/khqr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ==================== AppError 基础测试 ====================

func TestAppError_Error(t *testing.T) {
	tests := []struct {
		name     string
		appError *AppError
		want     string
	}{
		{"无原始错误", New(1001, "参数错误"), "[1001] 参数错误"},
		{"有原始错误", Wrap(1004, "数据库错误", stderrors.New("connection timeout")), "[1004] 数据库错误: connection timeout"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.appError.Error())
		})
	}
}

func TestAppError_WithMessageAndError(t *testing.T) {
	cause := stderrors.New("boom")
	err := ErrBookingNotFound.WithError(cause).WithMessage("预订 BK001 不存在")

	assert.Equal(t, 8000, err.Code)
	assert.Equal(t, "预订 BK001 不存在", err.Message)
	assert.Equal(t, cause, stderrors.Unwrap(err))
	// 原始变量不被修改
	assert.Nil(t, ErrBookingNotFound.Err)
	assert.Equal(t, "预订不存在", ErrBookingNotFound.Message)
}

func TestAppError_Is(t *testing.T) {
	err := fmt.Errorf("service: %w", ErrRoomNotAvailable.WithMessage("房间 101 已被预订"))
	assert.True(t, stderrors.Is(err, ErrRoomNotAvailable))
	assert.False(t, stderrors.Is(err, ErrBookingNotFound))
}

func TestGetAppError(t *testing.T) {
	t.Run("包装后的应用错误", func(t *testing.T) {
		err := fmt.Errorf("wrap: %w", ErrPaymentNotFound)
		require.True(t, IsAppError(err))
		assert.Equal(t, 6000, GetAppError(err).Code)
	})

	t.Run("普通错误", func(t *testing.T) {
		err := stderrors.New("plain")
		assert.False(t, IsAppError(err))
		appErr := GetAppError(err)
		assert.Equal(t, ErrUnknown.Code, appErr.Code)
		assert.Equal(t, err, appErr.Err)
	})
}

// ==================== FromKHQR 测试 ====================

func TestFromKHQR(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code int
	}{
		{"校验值不匹配", &khqr.ChecksumMismatchError{Expected: "AAAA", Actual: "BBBB"}, 7002},
		{"字段不合法", &khqr.PayloadValidationError{Field: "merchant_name", Reason: "is required"}, 7001},
		{"截断", &khqr.TruncatedPayloadError{Offset: 4, Needed: 8}, 7003},
		{"尾部数据", &khqr.UnexpectedTrailingDataError{Offset: 10, Trailing: "00"}, 7003},
		{"非法标签", &khqr.InvalidTagError{Tag: "AB"}, 7003},
		{"其他错误", stderrors.New("other"), 1006},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			appErr := FromKHQR(tt.err)
			require.NotNil(t, appErr)
			assert.Equal(t, tt.code, appErr.Code)
			assert.ErrorIs(t, appErr, tt.err)
		})
	}

	assert.Nil(t, FromKHQR(nil))
}

func TestFromKHQR_FieldInMessage(t *testing.T) {
	_, err := khqr.Build(&khqr.PaymentPayloadInput{})
	appErr := FromKHQR(err)
	assert.Equal(t, 7001, appErr.Code)
	assert.Contains(t, appErr.Message, "merchant_account")
}
