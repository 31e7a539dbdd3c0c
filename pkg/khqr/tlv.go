// Package khqr 提供 KHQR（EMVCo 商户主扫二维码）载荷的编码、解析与 CRC 校验
//
// 载荷由一串 TLV 字段组成：两位数字标签 + 两位十进制长度 + 值，
// 字段之间没有分隔符，以 "6304" + 4 位十六进制 CRC 结尾。
// 包内函数均为纯函数，不做 I/O，可并发调用。
package khqr

import (
	"fmt"
	"strconv"
	"strings"
)

// MaxValueLength 单个字段值的最大字节数
const MaxValueLength = 99

const headerLength = 4

// Field TLV 字段
type Field struct {
	Tag      string
	Value    string
	Children []Field // 非空时 Value 由子字段拼接生成
}

// Encode 编码字段（含子字段）
func (f Field) Encode() (string, error) {
	if len(f.Children) == 0 {
		return EncodeField(f.Tag, f.Value)
	}
	var b strings.Builder
	for _, child := range f.Children {
		s, err := child.Encode()
		if err != nil {
			return "", err
		}
		b.WriteString(s)
	}
	return EncodeField(f.Tag, b.String())
}

// EncodeField 编码单个 TLV 三元组
func EncodeField(tag, value string) (string, error) {
	if !isTag(tag) {
		return "", &InvalidTagError{Tag: tag}
	}
	if len(value) > MaxValueLength {
		return "", &ValueTooLongError{Tag: tag, Length: len(value)}
	}
	return fmt.Sprintf("%s%02d%s", tag, len(value), value), nil
}

// DecodeNextField 从 offset 处读取下一个字段，返回标签、值和下一个字段的偏移
func DecodeNextField(buf string, offset int) (tag, value string, next int, err error) {
	remain := len(buf) - offset
	if offset < 0 || remain < headerLength {
		return "", "", offset, &TruncatedPayloadError{Offset: offset, Needed: headerLength, Remained: max(remain, 0)}
	}

	tag = buf[offset : offset+2]
	if !isTag(tag) {
		return "", "", offset, &InvalidTagError{Tag: tag}
	}

	lengthDigits := buf[offset+2 : offset+headerLength]
	if !isDigits(lengthDigits) {
		return "", "", offset, &InvalidTagError{Tag: tag + lengthDigits}
	}
	length, _ := strconv.Atoi(lengthDigits)

	start := offset + headerLength
	if len(buf)-start < length {
		return "", "", offset, &TruncatedPayloadError{Offset: offset, Needed: headerLength + length, Remained: remain}
	}

	next = start + length
	return tag, buf[start:next], next, nil
}

// DecodeFields 将整段字符串拆成字段列表，不做校验和检查
func DecodeFields(buf string) ([]Field, error) {
	var fields []Field
	for offset := 0; offset < len(buf); {
		tag, value, next, err := DecodeNextField(buf, offset)
		if err != nil {
			return nil, err
		}
		fields = append(fields, Field{Tag: tag, Value: value})
		offset = next
	}
	return fields, nil
}

func isTag(s string) bool {
	return len(s) == 2 && isDigits(s)
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
