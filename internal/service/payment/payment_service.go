// Package payment 提供 KHQR 支付服务：下单、状态查询、网关回调与过期关闭
package payment

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/chensakkolmlbb2025/royal-elegance/internal/common/breaker"
	"github.com/chensakkolmlbb2025/royal-elegance/internal/common/config"
	"github.com/chensakkolmlbb2025/royal-elegance/internal/common/errors"
	"github.com/chensakkolmlbb2025/royal-elegance/internal/common/events"
	"github.com/chensakkolmlbb2025/royal-elegance/internal/common/logger"
	"github.com/chensakkolmlbb2025/royal-elegance/internal/common/metrics"
	"github.com/chensakkolmlbb2025/royal-elegance/internal/common/qrcode"
	"github.com/chensakkolmlbb2025/royal-elegance/internal/common/tracing"
	"github.com/chensakkolmlbb2025/royal-elegance/internal/common/utils"
	"github.com/chensakkolmlbb2025/royal-elegance/internal/models"
	"github.com/chensakkolmlbb2025/royal-elegance/internal/repository"
	"github.com/chensakkolmlbb2025/royal-elegance/internal/service/booking"
	"github.com/chensakkolmlbb2025/royal-elegance/pkg/khqr"
	"github.com/chensakkolmlbb2025/royal-elegance/pkg/payway"
)

// 交易号前缀
const (
	TransactionPrefix     = utils.TransactionPrefixKHQR
	MockTransactionPrefix = utils.TransactionPrefixMock
)

// 币种
const (
	CurrencyUSD = "USD"
	CurrencyKHR = "KHR"
)

// ISO 4217 数字代码
var currencyCodes = map[string]string{
	CurrencyUSD: "840",
	CurrencyKHR: "116",
}

const defaultExpire = 15 * time.Minute

// Gateway 支付网关，*payway.Client 实现了该接口
type Gateway interface {
	CreatePurchase(ctx context.Context, req *payway.PurchaseRequest) (*payway.PurchaseResponse, error)
	CheckStatus(ctx context.Context, tranID string) (*payway.StatusResponse, error)
	Ping(ctx context.Context) error
}

// StatusCache 状态缓存，*cache.Store 实现了该接口
type StatusCache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error
	Delete(ctx context.Context, keys ...string) error
}

// Config 支付服务配置
type Config struct {
	KHQR     config.KHQRConfig
	Payway   config.PaywayConfig
	Stripe   config.StripeConfig
	Business config.BusinessConfig
}

// PaymentService 支付服务
type PaymentService struct {
	db          *gorm.DB
	paymentRepo *repository.PaymentRepository
	bookings    *booking.BookingService
	qr          *qrcode.Generator
	cfg         Config

	gateway     Gateway
	breaker     *breaker.Breaker
	cards       CardGateway
	cardBreaker *breaker.Breaker
	cache       StatusCache
	publisher   events.Publisher
	metrics     *metrics.Metrics
	now         func() time.Time
}

// Option 可选依赖
type Option func(*PaymentService)

// WithGateway 启用网关下单与状态查询
func WithGateway(gw Gateway, br *breaker.Breaker) Option {
	return func(s *PaymentService) {
		s.gateway = gw
		s.breaker = br
	}
}

// WithStatusCache 启用状态缓存
func WithStatusCache(c StatusCache) Option {
	return func(s *PaymentService) { s.cache = c }
}

// WithPublisher 设置事件发布器
func WithPublisher(p events.Publisher) Option {
	return func(s *PaymentService) {
		if p != nil {
			s.publisher = p
		}
	}
}

// WithMetrics 设置指标
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *PaymentService) { s.metrics = m }
}

// WithClock 替换时钟
func WithClock(now func() time.Time) Option {
	return func(s *PaymentService) { s.now = now }
}

// NewPaymentService 创建支付服务
func NewPaymentService(
	db *gorm.DB,
	paymentRepo *repository.PaymentRepository,
	bookings *booking.BookingService,
	qr *qrcode.Generator,
	cfg Config,
	opts ...Option,
) *PaymentService {
	s := &PaymentService{
		db:          db,
		paymentRepo: paymentRepo,
		bookings:    bookings,
		qr:          qr,
		cfg:         cfg,
		publisher:   events.NopPublisher{},
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	var recorder breaker.StateRecorder
	if s.metrics != nil {
		recorder = s.metrics
	}
	if s.breaker == nil && s.gateway != nil {
		s.breaker = breaker.New(breaker.DefaultSettings("payway"), recorder)
	}
	if s.cardBreaker == nil && s.cards != nil {
		s.cardBreaker = breaker.New(breaker.DefaultSettings("stripe"), recorder)
	}
	return s
}

// CreatePaymentRequest 创建支付请求
type CreatePaymentRequest struct {
	BookingNo      string          `json:"booking_no" binding:"omitempty,max=64"`
	Amount         decimal.Decimal `json:"amount"`
	Currency       string          `json:"currency" binding:"omitempty,oneof=USD KHR"`
	SettleCurrency string          `json:"settle_currency" binding:"omitempty,oneof=USD KHR"`
	Description    string          `json:"description" binding:"omitempty,max=255"`
	CustomerEmail  string          `json:"customer_email" binding:"omitempty,email"`
}

// CreatePaymentResponse 创建支付响应
type CreatePaymentResponse struct {
	TransactionID  string          `json:"transaction_id"`
	BookingNo      string          `json:"booking_no,omitempty"`
	Amount         decimal.Decimal `json:"amount"`
	Currency       string          `json:"currency"`
	PayloadAmount  decimal.Decimal `json:"payload_amount"`
	SettleCurrency string          `json:"settle_currency"`
	Payload        string          `json:"khqr_payload"`
	QRCode         string          `json:"qr_code"`
	PaymentURL     string          `json:"payment_url,omitempty"`
	Source         string          `json:"source"`
	Status         string          `json:"status"`
	ExpiresAt      time.Time       `json:"expires_at"`
}

// CreateKHQRPayment 创建 KHQR 支付
// 网关可用时先向网关下单，失败、熔断或模拟模式下使用本地生成的载荷
func (s *PaymentService) CreateKHQRPayment(ctx context.Context, req *CreatePaymentRequest) (resp *CreatePaymentResponse, err error) {
	tranID := utils.GenerateTransactionID(TransactionPrefix)
	ctx, span := tracing.Start(ctx, "payment.create_khqr", tracing.WithTransactionID(tranID))
	defer func() { tracing.EndSpan(span, err) }()

	return s.create(ctx, tranID, req, !s.cfg.Payway.MockMode)
}

// CreateMockPayment 创建模拟支付，始终本地生成载荷，未指定结算币种时以瑞尔结算
func (s *PaymentService) CreateMockPayment(ctx context.Context, req *CreatePaymentRequest) (resp *CreatePaymentResponse, err error) {
	tranID := utils.GenerateTransactionID(MockTransactionPrefix)
	ctx, span := tracing.Start(ctx, "payment.create_mock", tracing.WithTransactionID(tranID))
	defer func() { tracing.EndSpan(span, err) }()

	if req.SettleCurrency == "" {
		req.SettleCurrency = CurrencyKHR
	}
	return s.create(ctx, tranID, req, false)
}

func (s *PaymentService) create(ctx context.Context, tranID string, req *CreatePaymentRequest, useGateway bool) (*CreatePaymentResponse, error) {
	var target *models.Booking
	if req.BookingNo != "" {
		b, err := s.payableBooking(ctx, req.BookingNo)
		if err != nil {
			return nil, err
		}
		target = b
		if req.Amount.IsZero() {
			req.Amount = b.TotalAmount
			if req.Currency == "" {
				req.Currency = b.Currency
			}
		}
	}

	currency := strings.ToUpper(req.Currency)
	if currency == "" {
		currency = s.cfg.Business.DefaultCurrency
	}
	if _, ok := currencyCodes[currency]; !ok {
		return nil, errors.ErrCurrencyUnsupported.WithMessage("不支持的币种: " + currency)
	}
	if !req.Amount.IsPositive() {
		return nil, errors.ErrInvalidParams.WithMessage("金额必须大于 0")
	}

	settle := strings.ToUpper(req.SettleCurrency)
	if settle == "" {
		settle = currency
	}
	payloadAmount, err := s.convert(req.Amount, currency, settle)
	if err != nil {
		return nil, err
	}

	payload, err := s.buildPayload(tranID, req.BookingNo, payloadAmount, settle)
	if err != nil {
		return nil, err
	}

	now := s.now()
	expiresAt := now.Add(s.expireDuration())
	source := models.PaymentSourceLocal
	if strings.HasPrefix(tranID, MockTransactionPrefix) {
		source = models.PaymentSourceMock
	}
	payment := &models.Payment{
		PaymentNo: tranID,
		BookingNo: req.BookingNo,
		Amount:    req.Amount,
		Currency:  currency,
		Method:    models.PaymentMethodKHQR,
		Payload:   payload,
		Source:    source,
		Status:    models.PaymentStatusPending,
		ExpiredAt: &expiresAt,
	}
	if target != nil {
		payment.BookingID = &target.ID
	}

	var qrImage string
	if useGateway && s.gateway != nil {
		qrImage = s.purchase(ctx, payment, req.Description)
	}
	if source == models.PaymentSourceMock {
		payment.PaymentURL = utils.StringPtr("/mock-payment/" + tranID)
	}

	if qrImage == "" {
		qrImage, err = s.qr.GenerateDataURL(payment.Payload)
		if err != nil {
			return nil, errors.ErrInternalError.WithError(err)
		}
	}

	if err := s.paymentRepo.Create(ctx, payment); err != nil {
		return nil, errors.ErrDatabaseError.WithError(err)
	}
	s.recordPayment(payment.Method, payment.Status)

	logger.FromContext(ctx).Info("khqr payment created",
		logger.TransactionID(tranID),
		logger.BookingNo(req.BookingNo),
		logger.Amount(req.Amount, currency),
		zap.String("settle_currency", settle),
		zap.String("source", payment.Source),
	)

	return &CreatePaymentResponse{
		TransactionID:  tranID,
		BookingNo:      req.BookingNo,
		Amount:         req.Amount,
		Currency:       currency,
		PayloadAmount:  payloadAmount,
		SettleCurrency: settle,
		Payload:        payment.Payload,
		QRCode:         qrImage,
		PaymentURL:     utils.SafeString(payment.PaymentURL),
		Source:         payment.Source,
		Status:         payment.Status,
		ExpiresAt:      expiresAt,
	}, nil
}

// payableBooking 获取可支付的预订，已支付或已取消的预订不能再下单
func (s *PaymentService) payableBooking(ctx context.Context, bookingNo string) (*models.Booking, error) {
	b, err := s.bookings.GetBookingModel(ctx, bookingNo)
	if err != nil {
		return nil, err
	}
	if b.PaymentStatus == models.BookingPaymentPaid {
		return nil, errors.ErrBookingStatusError.WithMessage("预订已支付")
	}
	if b.Status == models.BookingStatusCancelled {
		return nil, errors.ErrBookingStatusError.WithMessage("预订已取消")
	}
	return b, nil
}

// purchase 向网关下单，成功时可能替换载荷，返回网关下发的二维码图片（可为空）
func (s *PaymentService) purchase(ctx context.Context, payment *models.Payment, details string) string {
	ctx, span := tracing.Start(ctx, "payway.purchase", tracing.WithTransactionID(payment.PaymentNo))
	start := time.Now()
	resp, err := breaker.Do(s.breaker, func() (*payway.PurchaseResponse, error) {
		return s.gateway.CreatePurchase(ctx, &payway.PurchaseRequest{
			TranID:  payment.PaymentNo,
			Amount:  payment.Amount,
			Details: details,
		})
	})
	tracing.EndSpan(span, err)
	s.observeGateway("purchase", err, time.Since(start))

	if err != nil {
		logger.FromContext(ctx).Warn("payway purchase failed, fallback to local khqr",
			logger.TransactionID(payment.PaymentNo),
			zap.Bool("breaker_open", breaker.IsRejected(err)),
			zap.Error(err),
		)
		payment.ErrorMessage = utils.StringPtr(truncate(err.Error(), 255))
		return ""
	}

	payment.Source = models.PaymentSourceGateway
	if resp.PaymentURL != "" {
		payment.PaymentURL = utils.StringPtr(resp.PaymentURL)
	}

	// 网关可能直接下发 KHQR 字符串，也可能下发图片
	switch {
	case resp.QRCode == "":
	case strings.HasPrefix(resp.QRCode, "data:image"):
		return resp.QRCode
	case khqr.Verify(resp.QRCode) == nil:
		payment.Payload = resp.QRCode
	default:
		logger.Warn("payway returned unrecognized qr_code, keep local payload", logger.TransactionID(payment.PaymentNo))
	}
	return ""
}

// convert 按结算币种换算金额，只支持 USD→KHR，瑞尔取整
func (s *PaymentService) convert(amount decimal.Decimal, from, to string) (decimal.Decimal, error) {
	if _, ok := currencyCodes[to]; !ok {
		return decimal.Zero, errors.ErrCurrencyUnsupported.WithMessage("不支持的结算币种: " + to)
	}
	switch {
	case from == to:
		if to == CurrencyKHR {
			return amount.Round(0), nil
		}
		return amount, nil
	case from == CurrencyUSD && to == CurrencyKHR:
		rate := decimal.NewFromFloat(s.cfg.Business.KHRExchangeRate)
		if !rate.IsPositive() {
			return decimal.Zero, errors.ErrCurrencyUnsupported.WithMessage("未配置瑞尔汇率")
		}
		return amount.Mul(rate).Round(0), nil
	default:
		return decimal.Zero, errors.ErrCurrencyUnsupported.WithMessage(fmt.Sprintf("不支持 %s 到 %s 的换算", from, to))
	}
}

func (s *PaymentService) buildPayload(tranID, bookingNo string, amount decimal.Decimal, currency string) (string, error) {
	k := s.cfg.KHQR
	additional := map[string]string{khqr.AdditionalReferenceLabel: tranID}
	if bookingNo != "" {
		additional[khqr.AdditionalBillNumber] = bookingNo
	}

	payload, err := khqr.Build(&khqr.PaymentPayloadInput{
		PointOfInitiation: khqr.InitiationDynamic,
		MerchantAccount: khqr.MerchantAccount{
			Tag:        k.AccountTag,
			GUID:       k.MerchantGUID,
			MerchantID: k.MerchantID,
		},
		MerchantCategoryCode: k.CategoryCode,
		TransactionCurrency:  currencyCodes[currency],
		TransactionAmount:    &amount,
		CountryCode:          k.CountryCode,
		MerchantName:         k.MerchantName,
		MerchantCity:         k.MerchantCity,
		AdditionalData:       additional,
	})
	s.recordKHQR("build", err)
	if err != nil {
		return "", errors.FromKHQR(err)
	}
	return payload, nil
}

func (s *PaymentService) expireDuration() time.Duration {
	if d := s.cfg.KHQR.ExpireDuration(); d > 0 {
		return d
	}
	return defaultExpire
}

func (s *PaymentService) recordPayment(method, status string) {
	if s.metrics != nil {
		s.metrics.RecordPayment(method, status)
	}
}

func (s *PaymentService) recordKHQR(op string, err error) {
	if s.metrics != nil {
		s.metrics.RecordKHQR(op, err)
	}
}

func (s *PaymentService) observeGateway(op string, err error, d time.Duration) {
	if s.metrics != nil {
		s.metrics.ObserveGateway(op, err, d)
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
