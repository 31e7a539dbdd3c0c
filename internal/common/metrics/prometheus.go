// Package metrics 提供 Prometheus 指标收集
package metrics

import (
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// KHQR 操作标签
const (
	OpBuild  = "build"
	OpParse  = "parse"
	OpVerify = "verify"

	ResultOK    = "ok"
	ResultError = "error"
)

// Metrics 指标收集器
type Metrics struct {
	httpRequestsTotal    *prometheus.CounterVec
	httpRequestDuration  *prometheus.HistogramVec
	httpRequestsInFlight prometheus.Gauge
	khqrPayloadsTotal    *prometheus.CounterVec
	paymentsTotal        *prometheus.CounterVec
	webhooksTotal        *prometheus.CounterVec
	cacheRequestsTotal   *prometheus.CounterVec
	gatewayDuration      *prometheus.HistogramVec
	breakerState         *prometheus.GaugeVec
}

var (
	defaultMetrics *Metrics
	defaultOnce    sync.Once
)

// New 在指定注册器上创建指标收集器
func New(namespace string, reg prometheus.Registerer) *Metrics {
	if namespace == "" {
		namespace = "royal"
	}
	factory := promauto.With(reg)

	return &Metrics{
		httpRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		httpRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"method", "path"},
		),
		httpRequestsInFlight: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "http_requests_in_flight",
				Help:      "Current number of HTTP requests being processed",
			},
		),
		khqrPayloadsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "khqr_payloads_total",
				Help:      "Total number of KHQR payloads built, parsed or verified",
			},
			[]string{"op", "result"},
		),
		paymentsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "payments_total",
				Help:      "Total number of payments by method and status",
			},
			[]string{"method", "status"},
		),
		webhooksTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "webhooks_total",
				Help:      "Total number of gateway webhooks received",
			},
			[]string{"status"},
		),
		cacheRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "cache_requests_total",
				Help:      "Total number of cache lookups",
			},
			[]string{"cache", "result"},
		),
		gatewayDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "gateway_request_duration_seconds",
				Help:      "Payment gateway call duration in seconds",
				Buckets:   []float64{.05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"operation", "result"},
		),
		breakerState: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "gateway_breaker_state",
				Help:      "Circuit breaker state: 0 closed, 1 open, 2 half-open",
			},
			[]string{"name"},
		),
	}
}

// Init 初始化默认指标收集器，注册到 Prometheus 默认注册器，只生效一次
func Init(namespace string) *Metrics {
	defaultOnce.Do(func() {
		defaultMetrics = New(namespace, prometheus.DefaultRegisterer)
	})
	return defaultMetrics
}

// GetMetrics 获取默认指标收集器
func GetMetrics() *Metrics {
	return Init("")
}

// Middleware 返回 Gin 中间件
func (m *Metrics) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.URL.Path == "/metrics" {
			c.Next()
			return
		}

		start := time.Now()
		m.httpRequestsInFlight.Inc()

		c.Next()

		m.httpRequestsInFlight.Dec()
		path := c.FullPath()
		if path == "" {
			path = "unknown"
		}

		m.httpRequestsTotal.WithLabelValues(c.Request.Method, path, strconv.Itoa(c.Writer.Status())).Inc()
		m.httpRequestDuration.WithLabelValues(c.Request.Method, path).Observe(time.Since(start).Seconds())
	}
}

// Handler 返回 Prometheus HTTP 处理器
func Handler(gatherer prometheus.Gatherer) gin.HandlerFunc {
	h := promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}

// RecordKHQR 记录一次编解码
func (m *Metrics) RecordKHQR(op string, err error) {
	result := ResultOK
	if err != nil {
		result = ResultError
	}
	m.khqrPayloadsTotal.WithLabelValues(op, result).Inc()
}

// RecordPayment 记录支付状态变化
func (m *Metrics) RecordPayment(method, status string) {
	m.paymentsTotal.WithLabelValues(method, status).Inc()
}

// RecordWebhook 记录网关回调
func (m *Metrics) RecordWebhook(status string) {
	m.webhooksTotal.WithLabelValues(status).Inc()
}

// RecordCache 记录缓存命中情况
func (m *Metrics) RecordCache(cache string, hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	m.cacheRequestsTotal.WithLabelValues(cache, result).Inc()
}

// ObserveGateway 记录网关调用耗时
func (m *Metrics) ObserveGateway(operation string, err error, d time.Duration) {
	result := ResultOK
	if err != nil {
		result = ResultError
	}
	m.gatewayDuration.WithLabelValues(operation, result).Observe(d.Seconds())
}

// SetBreakerState 设置熔断器状态
func (m *Metrics) SetBreakerState(name string, state float64) {
	m.breakerState.WithLabelValues(name).Set(state)
}
