// Package crypto 提供签名校验与脱敏工具
package crypto

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"
)

// 预定义错误
var (
	ErrMissingSignature = errors.New("missing signature")
	ErrInvalidSignature = errors.New("invalid signature")
)

// SignHMACSHA256 计算 HMAC-SHA256，返回小写十六进制
func SignHMACSHA256(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifyHMACSHA256 常量时间比较签名，允许 "sha256=" 前缀且大小写不敏感
func VerifyHMACSHA256(secret string, body []byte, signature string) error {
	signature = strings.TrimSpace(signature)
	if signature == "" {
		return ErrMissingSignature
	}
	signature = strings.ToLower(strings.TrimPrefix(signature, "sha256="))

	expected := SignHMACSHA256(secret, body)
	if !hmac.Equal([]byte(expected), []byte(signature)) {
		return ErrInvalidSignature
	}
	return nil
}

// GenerateRandomBytes 生成随机字节
func GenerateRandomBytes(n int) ([]byte, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return nil, err
	}
	return b, nil
}

// GenerateSecret 生成十六进制随机密钥
func GenerateSecret(n int) (string, error) {
	b, err := GenerateRandomBytes(n)
	if err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// Mask 保留首尾各 keep 个字符，中间以 * 替代
func Mask(s string, keep int) string {
	if keep < 0 {
		keep = 0
	}
	if len(s) <= keep*2 {
		return strings.Repeat("*", len(s))
	}
	return s[:keep] + strings.Repeat("*", len(s)-keep*2) + s[len(s)-keep:]
}

// Configured 密钥是否已配置，返回脱敏后的展示值
func Configured(secret string) (bool, string) {
	if secret == "" {
		return false, ""
	}
	return true, Mask(secret, 4)
}
