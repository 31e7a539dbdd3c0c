package khqr

import (
	"errors"
	"fmt"
)

// ErrInvalidPayload 所有编解码错误的公共哨兵，可用 errors.Is 判断
var ErrInvalidPayload = errors.New("khqr: invalid payload")

// InvalidTagError 标签不是两位数字
type InvalidTagError struct {
	Tag string
}

func (e *InvalidTagError) Error() string {
	return fmt.Sprintf("khqr: invalid tag %q", e.Tag)
}

func (e *InvalidTagError) Is(target error) bool { return target == ErrInvalidPayload }

// ValueTooLongError 值超过 99 字节
type ValueTooLongError struct {
	Tag    string
	Length int
}

func (e *ValueTooLongError) Error() string {
	return fmt.Sprintf("khqr: value of tag %s is %d bytes, max %d", e.Tag, e.Length, MaxValueLength)
}

func (e *ValueTooLongError) Is(target error) bool { return target == ErrInvalidPayload }

// TruncatedPayloadError 剩余字节不足
type TruncatedPayloadError struct {
	Offset   int
	Needed   int
	Remained int
}

func (e *TruncatedPayloadError) Error() string {
	return fmt.Sprintf("khqr: truncated payload at offset %d: need %d bytes, %d remain", e.Offset, e.Needed, e.Remained)
}

func (e *TruncatedPayloadError) Is(target error) bool { return target == ErrInvalidPayload }

// UnexpectedTrailingDataError 校验字段之后仍有数据
type UnexpectedTrailingDataError struct {
	Offset   int
	Trailing string
}

func (e *UnexpectedTrailingDataError) Error() string {
	return fmt.Sprintf("khqr: %d unexpected bytes after checksum at offset %d", len(e.Trailing), e.Offset)
}

func (e *UnexpectedTrailingDataError) Is(target error) bool { return target == ErrInvalidPayload }

// ChecksumMismatchError CRC 校验失败
type ChecksumMismatchError struct {
	Expected string // 根据内容重新计算的值
	Actual   string // 载荷中声明的值
}

func (e *ChecksumMismatchError) Error() string {
	return fmt.Sprintf("khqr: checksum mismatch: declared %s, computed %s", e.Actual, e.Expected)
}

func (e *ChecksumMismatchError) Is(target error) bool { return target == ErrInvalidPayload }

// PayloadValidationError 字段校验失败
type PayloadValidationError struct {
	Field  string
	Reason string
	Err    error
}

func (e *PayloadValidationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("khqr: invalid %s: %s: %v", e.Field, e.Reason, e.Err)
	}
	return fmt.Sprintf("khqr: invalid %s: %s", e.Field, e.Reason)
}

func (e *PayloadValidationError) Unwrap() error { return e.Err }

func (e *PayloadValidationError) Is(target error) bool { return target == ErrInvalidPayload }

func invalid(field, reason string) *PayloadValidationError {
	return &PayloadValidationError{Field: field, Reason: reason}
}
