package main

import (
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/chensakkolmlbb2025/royal-elegance/docs"
	"github.com/chensakkolmlbb2025/royal-elegance/internal/common/metrics"
	bookingHandler "github.com/chensakkolmlbb2025/royal-elegance/internal/handler/booking"
	khqrHandler "github.com/chensakkolmlbb2025/royal-elegance/internal/handler/khqr"
	"github.com/chensakkolmlbb2025/royal-elegance/internal/middleware"
)

// webhook 请求体上限
const maxWebhookBody = 64 << 10

// setupRouter 设置路由
func (a *app) setupRouter(r *gin.Engine) {
	cfg := a.cfg

	bookingH := bookingHandler.NewHandler(a.bookingSvc)
	adminBookingH := bookingHandler.NewAdminHandler(a.bookingSvc)
	khqrH := khqrHandler.NewHandler(a.paymentSvc)
	webhookH := khqrHandler.NewWebhookHandler(a.paymentSvc)

	// 全局中间件
	r.Use(middleware.Recovery(a.log))
	r.Use(middleware.RequestID())
	r.Use(middleware.SecureHeaders())
	r.Use(middleware.CORS(&cfg.CORS))
	if cfg.Tracing.Enabled {
		r.Use(middleware.Tracing(cfg.Tracing.ServiceName, "/health", "/ping", "/ready", cfg.Metrics.Path))
	}
	if cfg.Metrics.Enabled {
		r.Use(a.metrics.Middleware())
	}
	r.Use(middleware.AccessLog(a.log))

	// 健康检查（不需要认证）
	r.GET("/health", healthHandler)
	r.GET("/ping", pingHandler)
	r.GET("/ready", readyHandler(a.db, a.redis))
	if cfg.Metrics.Enabled {
		r.GET(cfg.Metrics.Path, metrics.Handler(a.registry))
	}

	// Swagger 文档
	if !cfg.IsRelease() {
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	v1 := r.Group("/api/v1")
	v1.Use(middleware.IPRateLimit(a.redis, &cfg.RateLimit))
	{
		// 公开接口
		v1.GET("/rooms/available", bookingH.ListAvailableRooms)

		khqr := v1.Group("/khqr")
		{
			khqr.POST("/payments", khqrH.CreatePayment)
			khqr.GET("/payments/:transaction_id/qrcode.png", khqrH.QRCode)
			khqr.GET("/status/:transaction_id", middleware.NoCache(), khqrH.GetStatus)
			khqr.POST("/verify", khqrH.Verify)
			khqr.GET("/diagnostics", khqrH.Diagnostics)
			khqr.POST("/mock-payments", khqrH.CreateMockPayment)
			khqr.POST("/mock-payments/:transaction_id/status", khqrH.SimulateMockPayment)
		}

		// 银行卡支付
		v1.POST("/payments/intents", khqrH.CreateCardIntent)

		// 支付回调（验签，不需要认证）
		webhooks := v1.Group("/webhooks", middleware.RequestSizeLimiter(maxWebhookBody))
		{
			webhooks.POST("/khqr", webhookH.Receive)
			webhooks.GET("/khqr", webhookH.Challenge)
		}

		// 需要登录
		authed := v1.Group("", middleware.Auth(a.jwt))
		{
			authed.POST("/bookings", bookingH.CreateBooking)
			authed.GET("/bookings", bookingH.ListMyBookings)
			authed.GET("/bookings/:booking_no", bookingH.GetBooking)
		}
	}

	// 前台与管理后台
	admin := r.Group("/api/admin", middleware.StaffAuth(a.jwt))
	{
		admin.GET("/bookings/:booking_no", adminBookingH.GetBooking)
		admin.GET("/bookings/:booking_no/transitions", adminBookingH.GetTransitions)
		admin.PUT("/bookings/:booking_no/status", middleware.AdminAuth(a.jwt), adminBookingH.UpdateStatus)
	}
}
