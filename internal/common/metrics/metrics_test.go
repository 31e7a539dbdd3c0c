// Package metrics 提供 Prometheus 指标收集单元测试
package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newTestMetrics(t *testing.T) (*Metrics, *prometheus.Registry) {
	t.Helper()
	reg := prometheus.NewRegistry()
	return New("test", reg), reg
}

func TestInit_Once(t *testing.T) {
	a := Init("royal")
	b := Init("other")
	require.NotNil(t, a)
	assert.Same(t, a, b)
	assert.Same(t, a, GetMetrics())
}

// ==================== 业务指标测试 ====================

func TestMetrics_RecordKHQR(t *testing.T) {
	m, _ := newTestMetrics(t)

	m.RecordKHQR(OpBuild, nil)
	m.RecordKHQR(OpBuild, nil)
	m.RecordKHQR(OpParse, errors.New("checksum"))

	assert.Equal(t, float64(2), testutil.ToFloat64(m.khqrPayloadsTotal.WithLabelValues(OpBuild, ResultOK)))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.khqrPayloadsTotal.WithLabelValues(OpParse, ResultError)))
}

func TestMetrics_RecordPaymentAndWebhook(t *testing.T) {
	m, _ := newTestMetrics(t)

	m.RecordPayment("khqr", "success")
	m.RecordWebhook("completed")

	assert.Equal(t, float64(1), testutil.ToFloat64(m.paymentsTotal.WithLabelValues("khqr", "success")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.webhooksTotal.WithLabelValues("completed")))
}

func TestMetrics_RecordCache(t *testing.T) {
	m, _ := newTestMetrics(t)

	m.RecordCache("payment_status", true)
	m.RecordCache("payment_status", false)
	m.RecordCache("payment_status", false)

	assert.Equal(t, float64(1), testutil.ToFloat64(m.cacheRequestsTotal.WithLabelValues("payment_status", "hit")))
	assert.Equal(t, float64(2), testutil.ToFloat64(m.cacheRequestsTotal.WithLabelValues("payment_status", "miss")))
}

func TestMetrics_GatewayAndBreaker(t *testing.T) {
	m, reg := newTestMetrics(t)

	m.ObserveGateway("purchase", nil, 120*time.Millisecond)
	m.SetBreakerState("payway", 2)

	assert.Equal(t, float64(2), testutil.ToFloat64(m.breakerState.WithLabelValues("payway")))
	count, err := testutil.GatherAndCount(reg, "test_gateway_request_duration_seconds")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

// ==================== HTTP 中间件测试 ====================

func TestMetrics_Middleware(t *testing.T) {
	m, reg := newTestMetrics(t)

	r := gin.New()
	r.Use(m.Middleware())
	r.GET("/api/v1/khqr/status/:transaction_id", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/metrics", Handler(reg))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/khqr/status/ITE_1", nil))
	require.Equal(t, http.StatusOK, w.Code)

	assert.Equal(t, float64(1), testutil.ToFloat64(
		m.httpRequestsTotal.WithLabelValues(http.MethodGet, "/api/v1/khqr/status/:transaction_id", "200")))
	assert.Equal(t, float64(0), testutil.ToFloat64(m.httpRequestsInFlight))

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "test_http_requests_total")
}
