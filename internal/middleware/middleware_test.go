// Package middleware HTTP 中间件单元测试
package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.uber.org/zap"

	"github.com/chensakkolmlbb2025/royal-elegance/internal/common/config"
	"github.com/chensakkolmlbb2025/royal-elegance/internal/common/jwt"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newManager() *jwt.Manager {
	return jwt.NewManager(&jwt.Config{Secret: "middleware-test", ExpireTime: time.Hour, Issuer: "royal-elegance"})
}

func doRequest(r http.Handler, method, path string, header map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	for k, v := range header {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

// ==================== Auth 测试 ====================

func TestAuth(t *testing.T) {
	manager := newManager()
	r := gin.New()
	r.GET("/me", Auth(manager), func(c *gin.Context) {
		c.String(http.StatusOK, GetUserID(c)+"|"+GetRole(c))
	})
	r.GET("/admin", AdminAuth(manager), func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})
	r.GET("/staff", StaffAuth(manager), func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})

	userToken, _, err := manager.GenerateToken("guest-1", jwt.RoleUser)
	require.NoError(t, err)
	staffToken, _, err := manager.GenerateToken("staff-1", jwt.RoleStaff)
	require.NoError(t, err)

	t.Run("未携带令牌", func(t *testing.T) {
		w := doRequest(r, http.MethodGet, "/me", nil)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("无效令牌", func(t *testing.T) {
		w := doRequest(r, http.MethodGet, "/me", map[string]string{"Authorization": "Bearer nope"})
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("Bearer 头", func(t *testing.T) {
		w := doRequest(r, http.MethodGet, "/me", map[string]string{"Authorization": "Bearer " + userToken})
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "guest-1|user", w.Body.String())
	})

	t.Run("查询参数", func(t *testing.T) {
		w := doRequest(r, http.MethodGet, "/me?token="+userToken, nil)
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("普通用户访问管理接口", func(t *testing.T) {
		w := doRequest(r, http.MethodGet, "/admin", map[string]string{"Authorization": "Bearer " + userToken})
		assert.Equal(t, http.StatusForbidden, w.Code)
	})

	t.Run("前台访问前台接口", func(t *testing.T) {
		w := doRequest(r, http.MethodGet, "/staff", map[string]string{"Authorization": "bearer " + staffToken})
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("前台访问管理接口", func(t *testing.T) {
		w := doRequest(r, http.MethodGet, "/admin", map[string]string{"Authorization": "Bearer " + staffToken})
		assert.Equal(t, http.StatusForbidden, w.Code)
	})
}

func TestOptionalAuth(t *testing.T) {
	manager := newManager()
	r := gin.New()
	r.GET("/rooms", OptionalAuth(manager), func(c *gin.Context) {
		if IsLoggedIn(c) {
			c.String(http.StatusOK, GetUserID(c))
			return
		}
		c.String(http.StatusOK, "anonymous")
	})

	w := doRequest(r, http.MethodGet, "/rooms", map[string]string{"Authorization": "Bearer broken"})
	assert.Equal(t, "anonymous", w.Body.String())

	token, _, _ := manager.GenerateToken("guest-2", jwt.RoleUser)
	w = doRequest(r, http.MethodGet, "/rooms", map[string]string{"Authorization": "Bearer " + token})
	assert.Equal(t, "guest-2", w.Body.String())
}

// ==================== 通用中间件测试 ====================

func TestRequestID(t *testing.T) {
	r := gin.New()
	r.Use(RequestID())
	r.GET("/", func(c *gin.Context) { c.String(http.StatusOK, GetRequestID(c)) })

	t.Run("自动生成", func(t *testing.T) {
		w := doRequest(r, http.MethodGet, "/", nil)
		assert.NotEmpty(t, w.Header().Get(HeaderRequestID))
		assert.Equal(t, w.Header().Get(HeaderRequestID), w.Body.String())
	})

	t.Run("沿用上游", func(t *testing.T) {
		w := doRequest(r, http.MethodGet, "/", map[string]string{HeaderRequestID: "req-123"})
		assert.Equal(t, "req-123", w.Body.String())
	})

	t.Run("非法上游ID被替换", func(t *testing.T) {
		w := doRequest(r, http.MethodGet, "/", map[string]string{HeaderRequestID: "bad id <script>"})
		assert.NotEqual(t, "bad id <script>", w.Body.String())
		assert.Len(t, w.Body.String(), 36)
	})
}

func TestRecovery(t *testing.T) {
	r := gin.New()
	r.Use(Recovery(zap.NewNop()))
	r.GET("/panic", func(c *gin.Context) { panic("boom") })

	w := doRequest(r, http.MethodGet, "/panic", nil)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "服务器内部错误")
}

func TestSecureHeadersAndNoCache(t *testing.T) {
	r := gin.New()
	r.Use(SecureHeaders(), NoCache())
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := doRequest(r, http.MethodGet, "/", nil)
	assert.Equal(t, "DENY", w.Header().Get("X-Frame-Options"))
	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "no-store", w.Header().Get("Cache-Control"))
}

func TestRequestSizeLimiter(t *testing.T) {
	r := gin.New()
	r.Use(RequestSizeLimiter(8))
	r.POST("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader("0123456789"))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)

	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader("0123"))
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestAccessLog_DoesNotBreakChain(t *testing.T) {
	r := gin.New()
	r.Use(RequestID(), AccessLog(zap.NewNop()))
	r.GET("/health", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/api", func(c *gin.Context) { c.Status(http.StatusTeapot) })

	assert.Equal(t, http.StatusOK, doRequest(r, http.MethodGet, "/health", nil).Code)
	assert.Equal(t, http.StatusTeapot, doRequest(r, http.MethodGet, "/api", nil).Code)
}

// ==================== 限流测试 ====================

func TestIPRateLimit(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	r := gin.New()
	r.Use(IPRateLimit(client, &config.RateLimitConfig{Enabled: true, RequestsPerSecond: 2, Burst: 1}))
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	for i := 0; i < 3; i++ {
		w := doRequest(r, http.MethodGet, "/", nil)
		require.Equal(t, http.StatusOK, w.Code)
	}
	w := doRequest(r, http.MethodGet, "/", nil)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "0", w.Header().Get("X-RateLimit-Remaining"))
}

func TestIPRateLimit_Disabled(t *testing.T) {
	r := gin.New()
	r.Use(IPRateLimit(nil, &config.RateLimitConfig{Enabled: false}))
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	assert.Equal(t, http.StatusOK, doRequest(r, http.MethodGet, "/", nil).Code)
}

func TestIPRateLimit_RedisDown(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	mr.Close()

	r := gin.New()
	r.Use(IPRateLimit(client, &config.RateLimitConfig{Enabled: true, RequestsPerSecond: 1}))
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	assert.Equal(t, http.StatusOK, doRequest(r, http.MethodGet, "/", nil).Code)
}

// ==================== CORS 测试 ====================

func TestCORS(t *testing.T) {
	cfg := &config.CORSConfig{
		AllowedOrigins: []string{"https://royal-elegance.example"},
		AllowedMethods: []string{"GET", "POST"},
		AllowedHeaders: []string{"Content-Type"},
		MaxAge:         600,
	}
	r := gin.New()
	r.Use(CORS(cfg))
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	t.Run("允许的源", func(t *testing.T) {
		w := doRequest(r, http.MethodGet, "/", map[string]string{"Origin": "https://royal-elegance.example"})
		assert.Equal(t, "https://royal-elegance.example", w.Header().Get("Access-Control-Allow-Origin"))
		assert.Equal(t, "600", w.Header().Get("Access-Control-Max-Age"))
	})

	t.Run("不允许的源", func(t *testing.T) {
		w := doRequest(r, http.MethodGet, "/", map[string]string{"Origin": "https://evil.example"})
		assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
	})

	t.Run("预检请求", func(t *testing.T) {
		w := doRequest(r, http.MethodOptions, "/", map[string]string{"Origin": "https://royal-elegance.example"})
		assert.Equal(t, http.StatusNoContent, w.Code)
	})
}

// ==================== 追踪测试 ====================

func TestTracing(t *testing.T) {
	exporter := tracetest.NewInMemoryExporter()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	otel.SetTracerProvider(provider)
	t.Cleanup(func() { _ = provider.Shutdown(context.Background()) })

	r := gin.New()
	r.Use(RequestID(), Tracing("royal-elegance", "/health"))
	r.GET("/health", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/api/v1/bookings/:booking_no", func(c *gin.Context) {
		c.String(http.StatusOK, GetTraceID(c))
	})

	doRequest(r, http.MethodGet, "/health", nil)
	w := doRequest(r, http.MethodGet, "/api/v1/bookings/BK-1", nil)

	spans := exporter.GetSpans()
	require.Len(t, spans, 1)
	assert.Equal(t, "GET /api/v1/bookings/:booking_no", spans[0].Name)
	assert.Equal(t, spans[0].SpanContext.TraceID().String(), w.Body.String())
}
