// Package qrcode 提供二维码生成功能
package qrcode

import (
	"encoding/base64"
	"fmt"
	"image"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/skip2/go-qrcode"
)

// RecoveryLevel 纠错级别
type RecoveryLevel int

const (
	// Low 7% 纠错
	Low RecoveryLevel = iota
	// Medium 15% 纠错
	Medium
	// High 25% 纠错
	High
	// Highest 30% 纠错
	Highest
)

// DataURLPrefix PNG Data URL 前缀
const DataURLPrefix = "data:image/png;base64,"

// Generator 二维码生成器，可选带过期的 LRU 缓存
type Generator struct {
	size          int
	recoveryLevel RecoveryLevel
	cacheSize     int
	cacheTTL      time.Duration
	cache         *expirable.LRU[string, []byte]
}

// Option 生成器选项
type Option func(*Generator)

// WithSize 设置二维码尺寸（像素）
func WithSize(size int) Option {
	return func(g *Generator) {
		if size > 0 {
			g.size = size
		}
	}
}

// WithRecoveryLevel 设置纠错级别
func WithRecoveryLevel(level RecoveryLevel) Option {
	return func(g *Generator) {
		g.recoveryLevel = level
	}
}

// WithCache 缓存最近渲染的 PNG，size 为 0 时不缓存
func WithCache(size int, ttl time.Duration) Option {
	return func(g *Generator) {
		g.cacheSize = size
		g.cacheTTL = ttl
	}
}

// NewGenerator 创建二维码生成器
func NewGenerator(opts ...Option) *Generator {
	g := &Generator{
		size:          256,
		recoveryLevel: Medium,
	}
	for _, opt := range opts {
		opt(g)
	}
	if g.cacheSize > 0 {
		g.cache = expirable.NewLRU[string, []byte](g.cacheSize, nil, g.cacheTTL)
	}
	return g
}

func (g *Generator) level() qrcode.RecoveryLevel {
	switch g.recoveryLevel {
	case Low:
		return qrcode.Low
	case High:
		return qrcode.High
	case Highest:
		return qrcode.Highest
	default:
		return qrcode.Medium
	}
}

// Generate 生成二维码图片
func (g *Generator) Generate(content string) (image.Image, error) {
	qr, err := qrcode.New(content, g.level())
	if err != nil {
		return nil, fmt.Errorf("创建二维码失败: %w", err)
	}
	return qr.Image(g.size), nil
}

// GeneratePNG 生成 PNG 格式二维码，命中缓存时直接返回
func (g *Generator) GeneratePNG(content string) ([]byte, error) {
	if g.cache != nil {
		if data, ok := g.cache.Get(content); ok {
			return data, nil
		}
	}

	data, err := qrcode.Encode(content, g.level(), g.size)
	if err != nil {
		return nil, fmt.Errorf("生成二维码失败: %w", err)
	}

	if g.cache != nil {
		g.cache.Add(content, data)
	}
	return data, nil
}

// GenerateBase64 生成 Base64 编码的二维码
func (g *Generator) GenerateBase64(content string) (string, error) {
	data, err := g.GeneratePNG(content)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(data), nil
}

// GenerateDataURL 生成 Data URL 格式的二维码
func (g *Generator) GenerateDataURL(content string) (string, error) {
	b64, err := g.GenerateBase64(content)
	if err != nil {
		return "", err
	}
	return DataURLPrefix + b64, nil
}

// CacheLen 当前缓存条目数
func (g *Generator) CacheLen() int {
	if g.cache == nil {
		return 0
	}
	return g.cache.Len()
}
