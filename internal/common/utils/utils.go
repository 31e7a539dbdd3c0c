// Package utils 提供通用工具函数
package utils

import (
	"crypto/rand"
	"math/big"
	"strconv"
	"strings"
	"time"
)

const (
	base36   = "0123456789abcdefghijklmnopqrstuvwxyz"
	readable = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789" // 排除易混淆字符 0OI1
)

// 交易号前缀
const (
	TransactionPrefixKHQR = "ITE"
	TransactionPrefixMock = "MOCK"
)

// GenerateTransactionID 生成支付交易号
// 格式: 前缀_毫秒时间戳_9位 base36 随机串，如 ITE_1718000000000_k3j9x0a1b
func GenerateTransactionID(prefix string) string {
	return prefix + "_" + strconv.FormatInt(time.Now().UnixMilli(), 10) + "_" + randomString(base36, 9)
}

// GenerateBookingNo 生成预订号
// 格式: BK-毫秒时间戳-7位大写随机串
func GenerateBookingNo() string {
	return "BK-" + strconv.FormatInt(time.Now().UnixMilli(), 10) + "-" + randomString(readable, 7)
}

func randomString(charset string, length int) string {
	var sb strings.Builder
	sb.Grow(length)
	limit := big.NewInt(int64(len(charset)))
	for i := 0; i < length; i++ {
		n, _ := rand.Int(rand.Reader, limit)
		sb.WriteByte(charset[n.Int64()])
	}
	return sb.String()
}

// StringPtr 返回字符串指针
func StringPtr(s string) *string {
	return &s
}

// SafeString 安全获取字符串指针的值
func SafeString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// Pagination 分页参数
type Pagination struct {
	Page     int   `json:"page" form:"page"`
	PageSize int   `json:"page_size" form:"page_size"`
	Total    int64 `json:"total"`
}

// GetOffset 获取偏移量
func (p *Pagination) GetOffset() int {
	return (p.Page - 1) * p.PageSize
}

// GetLimit 获取限制数
func (p *Pagination) GetLimit() int {
	return p.PageSize
}

// Normalize 规范化分页参数，默认每页 10 条，最多 100 条
func (p *Pagination) Normalize() {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.PageSize < 1 {
		p.PageSize = 10
	}
	if p.PageSize > 100 {
		p.PageSize = 100
	}
}
