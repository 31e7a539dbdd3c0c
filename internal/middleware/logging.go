// Package middleware 提供 HTTP 中间件
package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/chensakkolmlbb2025/royal-elegance/internal/common/logger"
)

// LoggingConfig 访问日志配置
type LoggingConfig struct {
	Logger    *zap.Logger
	SkipPaths []string
}

var defaultSkipPaths = []string{"/health", "/ping", "/ready", "/metrics"}

// Logging 请求日志中间件
func Logging(config *LoggingConfig) gin.HandlerFunc {
	skip := make(map[string]struct{}, len(config.SkipPaths))
	for _, p := range config.SkipPaths {
		skip[p] = struct{}{}
	}

	return func(c *gin.Context) {
		path := c.Request.URL.Path
		if _, ok := skip[path]; ok {
			c.Next()
			return
		}

		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		fields := []zap.Field{
			logger.RequestID(GetRequestID(c)),
			logger.Method(c.Request.Method),
			logger.Path(path),
			zap.String("query", c.Request.URL.RawQuery),
			logger.StatusCode(status),
			logger.Latency(time.Since(start)),
			logger.IP(c.ClientIP()),
			zap.String("user_agent", c.Request.UserAgent()),
		}
		if userID := GetUserID(c); userID != "" {
			fields = append(fields, zap.String("user_id", userID))
		}
		if len(c.Errors) > 0 {
			fields = append(fields, zap.String("errors", c.Errors.String()))
		}

		switch {
		case status >= 500:
			config.Logger.Error("HTTP Request", fields...)
		case status >= 400:
			config.Logger.Warn("HTTP Request", fields...)
		default:
			config.Logger.Info("HTTP Request", fields...)
		}
	}
}

// AccessLog 访问日志中间件，跳过探活与指标接口
func AccessLog(log *zap.Logger) gin.HandlerFunc {
	return Logging(&LoggingConfig{Logger: log, SkipPaths: defaultSkipPaths})
}
