// Package middleware 提供 HTTP 中间件
package middleware

import (
	"fmt"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"github.com/chensakkolmlbb2025/royal-elegance/internal/common/config"
	"github.com/chensakkolmlbb2025/royal-elegance/internal/common/response"
)

// RateLimitConfig 限流配置
type RateLimitConfig struct {
	RedisClient redis.Cmdable
	KeyPrefix   string
	Limit       int
	Window      time.Duration
	KeyFunc     func(*gin.Context) string
}

// RateLimit 基于 Redis 计数器的固定窗口限流
func RateLimit(cfg *RateLimitConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		var key string
		if cfg.KeyFunc != nil {
			key = cfg.KeyPrefix + cfg.KeyFunc(c)
		} else {
			key = fmt.Sprintf("%s%s:%s", cfg.KeyPrefix, c.ClientIP(), c.FullPath())
		}

		ctx := c.Request.Context()
		count, err := cfg.RedisClient.Incr(ctx, key).Result()
		if err != nil {
			// Redis 不可用时放行
			c.Next()
			return
		}
		if count == 1 {
			cfg.RedisClient.Expire(ctx, key, cfg.Window)
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(cfg.Limit))
		if int(count) > cfg.Limit {
			ttl, _ := cfg.RedisClient.TTL(ctx, key).Result()
			if ttl < 0 {
				ttl = cfg.Window
			}
			c.Header("X-RateLimit-Remaining", "0")
			c.Header("Retry-After", strconv.Itoa(int(ttl.Seconds())+1))
			response.TooManyRequests(c, "请求过于频繁，请稍后再试")
			c.Abort()
			return
		}
		c.Header("X-RateLimit-Remaining", strconv.Itoa(cfg.Limit-int(count)))

		c.Next()
	}
}

// IPRateLimit 按客户端 IP 限流，每秒允许 requests_per_second + burst 次
func IPRateLimit(client redis.Cmdable, cfg *config.RateLimitConfig) gin.HandlerFunc {
	if cfg == nil || !cfg.Enabled {
		return func(c *gin.Context) { c.Next() }
	}
	return RateLimit(&RateLimitConfig{
		RedisClient: client,
		KeyPrefix:   "ratelimit:ip:",
		Limit:       cfg.RequestsPerSecond + cfg.Burst,
		Window:      time.Second,
		KeyFunc: func(c *gin.Context) string {
			return c.ClientIP()
		},
	})
}
