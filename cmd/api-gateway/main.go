// Package main 是应用程序入口
//
// @title           Royal Elegance Hotel API
// @version         1.0
// @description     酒店预订与 KHQR 支付服务
// @BasePath        /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/chensakkolmlbb2025/royal-elegance/internal/common/breaker"
	"github.com/chensakkolmlbb2025/royal-elegance/internal/common/cache"
	"github.com/chensakkolmlbb2025/royal-elegance/internal/common/config"
	"github.com/chensakkolmlbb2025/royal-elegance/internal/common/database"
	"github.com/chensakkolmlbb2025/royal-elegance/internal/common/events"
	"github.com/chensakkolmlbb2025/royal-elegance/internal/common/jwt"
	"github.com/chensakkolmlbb2025/royal-elegance/internal/common/logger"
	"github.com/chensakkolmlbb2025/royal-elegance/internal/common/metrics"
	"github.com/chensakkolmlbb2025/royal-elegance/internal/common/qrcode"
	"github.com/chensakkolmlbb2025/royal-elegance/internal/common/tracing"
	"github.com/chensakkolmlbb2025/royal-elegance/internal/models"
	"github.com/chensakkolmlbb2025/royal-elegance/internal/repository"
	"github.com/chensakkolmlbb2025/royal-elegance/internal/scheduler"
	bookingService "github.com/chensakkolmlbb2025/royal-elegance/internal/service/booking"
	paymentService "github.com/chensakkolmlbb2025/royal-elegance/internal/service/payment"
	"github.com/chensakkolmlbb2025/royal-elegance/pkg/payway"
	"github.com/chensakkolmlbb2025/royal-elegance/pkg/stripepay"
)

const version = "1.0.0"

// app 进程内的全部依赖
type app struct {
	cfg        *config.Config
	log        *zap.Logger
	db         *gorm.DB
	redis      *redis.Client
	registry   *prometheus.Registry
	metrics    *metrics.Metrics
	publisher  events.Publisher
	jwt        *jwt.Manager
	bookingSvc *bookingService.BookingService
	paymentSvc *paymentService.PaymentService
}

func main() {
	// 加载配置
	cfg, err := config.Load(os.Getenv("CONFIG_PATH"))
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// 初始化日志
	if err := logger.Init(&cfg.Logger); err != nil {
		fmt.Printf("Failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	log := logger.GetLogger()
	log.Info("Starting Royal Elegance Backend",
		zap.String("version", version),
		zap.String("env", cfg.Server.Mode),
	)

	// 链路追踪
	tracer, err := tracing.Init(context.Background(), &tracing.Config{
		ServiceName:    cfg.Tracing.ServiceName,
		ServiceVersion: version,
		Environment:    cfg.Server.Mode,
		Endpoint:       cfg.Tracing.Endpoint,
		SampleRate:     cfg.Tracing.SampleRate,
		Enabled:        cfg.Tracing.Enabled,
	})
	if err != nil {
		log.Fatal("Failed to init tracing", zap.Error(err))
	}

	// 初始化数据库连接
	db, err := database.Init(&cfg.Database)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	if cfg.Database.AutoMigrate {
		if err := database.Migrate(db, models.AllModels()...); err != nil {
			log.Fatal("Failed to migrate database", zap.Error(err))
		}
	}
	log.Info("Database connected successfully", zap.String("driver", cfg.Database.Driver))

	// 初始化 Redis 连接
	redisClient, err := cache.Init(&cfg.Redis)
	if err != nil {
		log.Fatal("Failed to connect to Redis", zap.Error(err))
	}
	log.Info("Redis connected successfully")

	// 事件发布
	publisher, err := events.Connect(&cfg.NATS)
	if err != nil {
		// 消息不可用不影响支付主流程
		log.Warn("NATS unavailable, events disabled", zap.Error(err))
		publisher = events.NopPublisher{}
	}

	a := &app{
		cfg:       cfg,
		log:       log,
		db:        db,
		redis:     redisClient,
		registry:  prometheus.NewRegistry(),
		publisher: publisher,
	}
	a.registry.MustRegister(prometheus.NewGoCollector(), prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}))
	a.metrics = metrics.New(cfg.Metrics.Namespace, a.registry)
	a.jwt = jwt.NewManager(&jwt.Config{
		Secret:     cfg.JWT.Secret,
		ExpireTime: cfg.JWT.AccessTokenDuration(),
		Issuer:     cfg.JWT.Issuer,
	})
	a.initServices()

	// 后台任务
	sched := scheduler.NewScheduler(0)
	scheduler.RegisterTasks(sched, scheduler.NewTaskHandler(a.paymentSvc),
		time.Duration(cfg.Business.ExpireCheckInterval)*time.Second)
	sched.Start()

	// 设置 Gin 模式
	switch cfg.Server.Mode {
	case "release", "production":
		gin.SetMode(gin.ReleaseMode)
	case "test":
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.DebugMode)
	}

	engine := gin.New()
	a.setupRouter(engine)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      engine,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	go func() {
		log.Info("HTTP server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start HTTP server", zap.Error(err))
		}
	}()

	// 等待中断信号
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server...")

	timeout := time.Duration(cfg.Server.ShutdownTimeout) * time.Second
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}
	sched.Stop()
	publisher.Close()
	if err := tracer.Shutdown(ctx); err != nil {
		log.Warn("Tracer shutdown failed", zap.Error(err))
	}
	if err := cache.Close(); err != nil {
		log.Warn("Redis close failed", zap.Error(err))
	}
	if err := database.Close(); err != nil {
		log.Warn("Database close failed", zap.Error(err))
	}

	log.Info("Server exited")
}

// initServices 组装仓储与服务
func (a *app) initServices() {
	cfg := a.cfg
	store := cache.NewStore(a.redis)

	bookingRepo := repository.NewBookingRepository(a.db)
	roomRepo := repository.NewRoomRepository(a.db)
	paymentRepo := repository.NewPaymentRepository(a.db)

	a.bookingSvc = bookingService.NewBookingService(a.db, bookingRepo, roomRepo, store, a.publisher, cfg.Business.DefaultCurrency)

	qr := qrcode.NewGenerator(
		qrcode.WithSize(cfg.KHQR.QRSize),
		qrcode.WithCache(cfg.KHQR.QRCacheSize, time.Duration(cfg.KHQR.QRCacheTTL)*time.Second),
	)

	opts := []paymentService.Option{
		paymentService.WithStatusCache(store),
		paymentService.WithPublisher(a.publisher),
		paymentService.WithMetrics(a.metrics),
	}
	if gw := a.newGateway(); gw != nil {
		opts = append(opts, paymentService.WithGateway(gw, breaker.New(breaker.DefaultSettings("payway"), a.metrics)))
	}
	if cards := a.newCardGateway(); cards != nil {
		opts = append(opts, paymentService.WithCardGateway(cards, breaker.New(breaker.DefaultSettings("stripe"), a.metrics)))
	}

	a.paymentSvc = paymentService.NewPaymentService(a.db, paymentRepo, a.bookingSvc, qr, paymentService.Config{
		KHQR:     cfg.KHQR,
		Payway:   cfg.Payway,
		Stripe:   cfg.Stripe,
		Business: cfg.Business,
	}, opts...)
}

// newGateway 凭证齐全且未开启 mock 时创建网关客户端
func (a *app) newGateway() paymentService.Gateway {
	p := a.cfg.Payway
	if p.MockMode || !p.Configured() {
		a.log.Info("Payment gateway disabled, using local KHQR payloads", zap.Bool("mock_mode", p.MockMode))
		return nil
	}

	client, err := payway.NewClient(&payway.Config{
		BaseURL:       p.BaseURL,
		MerchantID:    p.MerchantID,
		PublicKey:     p.PublicKey,
		PrivateKeyPEM: p.PrivateKeyPEM,
		ReturnURL:     p.ReturnURL,
		CancelURL:     p.CancelURL,
		WebhookURL:    p.WebhookURL,
		Timeout:       time.Duration(p.Timeout) * time.Second,
	})
	if err != nil {
		a.log.Error("Failed to create payment gateway client", zap.Error(err))
		return nil
	}
	a.log.Info("Payment gateway enabled", zap.String("base_url", p.BaseURL), zap.Bool("signed", client.Signed()))
	return client
}

// newCardGateway 配置了 Stripe 密钥时创建银行卡支付客户端
func (a *app) newCardGateway() paymentService.CardGateway {
	c := a.cfg.Stripe
	if !c.Configured() {
		a.log.Info("Card payments disabled, stripe secret key not set")
		return nil
	}
	if c.SecretKey != strings.TrimSpace(c.SecretKey) {
		a.log.Warn("Stripe secret key has leading or trailing whitespace, trimmed")
	}
	if !stripepay.LooksLikeSecretKey(c.SecretKey) {
		a.log.Warn("Stripe secret key does not start with sk_test_ or sk_live_")
	}

	client, err := stripepay.NewClient(&stripepay.Config{
		SecretKey: c.SecretKey,
		BaseURL:   c.BaseURL,
		Timeout:   time.Duration(c.Timeout) * time.Second,
	})
	if err != nil {
		a.log.Error("Failed to create stripe client", zap.Error(err))
		return nil
	}
	a.log.Info("Card payments enabled", zap.Bool("live", strings.HasPrefix(strings.TrimSpace(c.SecretKey), "sk_live_")))
	return client
}
