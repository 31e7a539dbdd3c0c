// Package middleware 提供 HTTP 中间件
package middleware

import (
	"fmt"
	"net/http"
	"regexp"
	"runtime/debug"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/chensakkolmlbb2025/royal-elegance/internal/common/logger"
	"github.com/chensakkolmlbb2025/royal-elegance/internal/common/response"
)

// 请求 ID
const (
	ContextKeyRequestID = "request_id"
	HeaderRequestID     = "X-Request-ID"
)

// 上游传入的请求 ID 只接受这类字符，避免日志注入
var requestIDPattern = regexp.MustCompile(`^[A-Za-z0-9._:-]{1,64}$`)

var securityHeaders = map[string]string{
	"X-Frame-Options":        "DENY",
	"X-Content-Type-Options": "nosniff",
	"Referrer-Policy":        "strict-origin-when-cross-origin",
}

// RequestID 沿用合法的 X-Request-ID，否则生成新的
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(HeaderRequestID)
		if !requestIDPattern.MatchString(id) {
			id = uuid.NewString()
		}
		c.Set(ContextKeyRequestID, id)
		c.Header(HeaderRequestID, id)
		c.Next()
	}
}

// GetRequestID 获取请求 ID
func GetRequestID(c *gin.Context) string {
	return c.GetString(ContextKeyRequestID)
}

// Recovery 捕获 panic，记录堆栈并返回 500
func Recovery(log *zap.Logger) gin.HandlerFunc {
	return gin.CustomRecoveryWithWriter(nil, func(c *gin.Context, err any) {
		log.Error("panic recovered",
			logger.RequestID(GetRequestID(c)),
			logger.Method(c.Request.Method),
			logger.Path(c.Request.URL.Path),
			zap.Any("error", err),
			zap.ByteString("stack", debug.Stack()),
		)
		response.InternalError(c, "服务器内部错误")
		c.Abort()
	})
}

// SecureHeaders 安全响应头
func SecureHeaders() gin.HandlerFunc {
	return func(c *gin.Context) {
		for k, v := range securityHeaders {
			c.Header(k, v)
		}
		c.Next()
	}
}

// NoCache 禁用缓存，支付状态轮询接口使用
func NoCache() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Cache-Control", "no-store")
		c.Header("Pragma", "no-cache")
		c.Next()
	}
}

// RequestSizeLimiter 限制请求体大小，超出时返回 413
func RequestSizeLimiter(maxSize int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.ContentLength > maxSize {
			c.AbortWithStatusJSON(http.StatusRequestEntityTooLarge, response.Response{
				Code:    http.StatusRequestEntityTooLarge,
				Message: fmt.Sprintf("请求体过大，最大允许 %d 字节", maxSize),
			})
			return
		}
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxSize)
		c.Next()
	}
}
