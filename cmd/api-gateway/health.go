package main

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/chensakkolmlbb2025/royal-elegance/internal/common/database"
)

const readyCheckTimeout = 3 * time.Second

// HealthResponse 健康检查响应
type HealthResponse struct {
	Status    string            `json:"status"`
	Version   string            `json:"version,omitempty"`
	Timestamp int64             `json:"timestamp"`
	Checks    map[string]string `json:"checks,omitempty"`
}

// healthHandler 存活检查
func healthHandler(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{
		Status:    "ok",
		Version:   version,
		Timestamp: time.Now().Unix(),
	})
}

func pingHandler(c *gin.Context) {
	c.String(http.StatusOK, "pong")
}

// readyHandler 就绪检查，数据库与 Redis 任一不可用即返回 503
func readyHandler(db *gorm.DB, redisClient redis.Cmdable) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), readyCheckTimeout)
		defer cancel()

		checks := map[string]string{
			"database": checkResult(database.Ping(ctx, db)),
			"redis":    checkResult(redisClient.Ping(ctx).Err()),
		}

		resp := HealthResponse{Status: "ready", Timestamp: time.Now().Unix(), Checks: checks}
		status := http.StatusOK
		for _, v := range checks {
			if v != "ok" {
				resp.Status = "not ready"
				status = http.StatusServiceUnavailable
				break
			}
		}
		c.JSON(status, resp)
	}
}

func checkResult(err error) string {
	if err != nil {
		return "error: " + err.Error()
	}
	return "ok"
}
