package khqr

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ==================== EncodeField 测试 ====================

func TestEncodeField_Success(t *testing.T) {
	tests := []struct {
		name     string
		tag      string
		value    string
		expected string
	}{
		{"普通值", "59", "ITE Hotel", "5909ITE Hotel"},
		{"空值", "62", "", "6200"},
		{"单字节", "00", "1", "00011"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := EncodeField(tt.tag, tt.value)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestEncodeField_LengthMatchesValue(t *testing.T) {
	for _, n := range []int{0, 1, 9, 10, 42, 99} {
		value := strings.Repeat("x", n)
		got, err := EncodeField("01", value)
		require.NoError(t, err)
		assert.Len(t, got, 4+n)
		assert.Equal(t, value, got[4:])
	}
}

func TestEncodeField_Boundary(t *testing.T) {
	t.Run("99字节成功", func(t *testing.T) {
		_, err := EncodeField("62", strings.Repeat("a", 99))
		assert.NoError(t, err)
	})

	t.Run("100字节失败", func(t *testing.T) {
		_, err := EncodeField("62", strings.Repeat("a", 100))
		var tooLong *ValueTooLongError
		require.ErrorAs(t, err, &tooLong)
		assert.Equal(t, 100, tooLong.Length)
		assert.True(t, errors.Is(err, ErrInvalidPayload))
	})
}

func TestEncodeField_InvalidTag(t *testing.T) {
	for _, tag := range []string{"", "1", "123", "a1", "-1"} {
		_, err := EncodeField(tag, "v")
		var invalidTag *InvalidTagError
		assert.ErrorAs(t, err, &invalidTag, "tag %q", tag)
	}
}

// ==================== DecodeNextField 测试 ====================

func TestDecodeNextField_Success(t *testing.T) {
	buf := "000201" + "5909ITE Hotel"

	tag, value, next, err := DecodeNextField(buf, 0)
	require.NoError(t, err)
	assert.Equal(t, "00", tag)
	assert.Equal(t, "01", value)
	assert.Equal(t, 6, next)

	tag, value, next, err = DecodeNextField(buf, next)
	require.NoError(t, err)
	assert.Equal(t, "59", tag)
	assert.Equal(t, "ITE Hotel", value)
	assert.Equal(t, len(buf), next)
}

func TestDecodeNextField_Truncated(t *testing.T) {
	tests := []struct {
		name string
		buf  string
	}{
		{"空", ""},
		{"头部不完整", "590"},
		{"值不足", "5909ITE"},
		{"少一个字节", "5909ITE Hote"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, _, err := DecodeNextField(tt.buf, 0)
			var truncated *TruncatedPayloadError
			require.ErrorAs(t, err, &truncated)
			assert.ErrorIs(t, err, ErrInvalidPayload)
		})
	}
}

func TestDecodeNextField_InvalidHeader(t *testing.T) {
	t.Run("标签非数字", func(t *testing.T) {
		_, _, _, err := DecodeNextField("AB02xx", 0)
		var invalidTag *InvalidTagError
		assert.ErrorAs(t, err, &invalidTag)
	})

	t.Run("长度非数字", func(t *testing.T) {
		_, _, _, err := DecodeNextField("59X2xx", 0)
		var invalidTag *InvalidTagError
		assert.ErrorAs(t, err, &invalidTag)
	})
}

func TestDecodeNextField_NegativeOffset(t *testing.T) {
	_, _, _, err := DecodeNextField("000201", -1)
	var truncated *TruncatedPayloadError
	assert.ErrorAs(t, err, &truncated)
}

// ==================== Field 测试 ====================

func TestField_EncodeNested(t *testing.T) {
	f := Field{
		Tag: "29",
		Children: []Field{
			{Tag: "00", Value: "kh.com.aba"},
			{Tag: "01", Value: "123456789012345"},
		},
	}

	got, err := f.Encode()
	require.NoError(t, err)
	assert.Equal(t, "29330010kh.com.aba0115123456789012345", got)

	children, err := DecodeFields(got[4:])
	require.NoError(t, err)
	assert.Equal(t, f.Children, children)
}

func TestField_EncodeNestedTooLong(t *testing.T) {
	f := Field{
		Tag: "62",
		Children: []Field{
			{Tag: "01", Value: strings.Repeat("a", 60)},
			{Tag: "08", Value: strings.Repeat("b", 60)},
		},
	}

	_, err := f.Encode()
	var tooLong *ValueTooLongError
	require.ErrorAs(t, err, &tooLong)
	assert.Equal(t, "62", tooLong.Tag)
}
