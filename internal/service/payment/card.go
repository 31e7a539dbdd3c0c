package payment

import (
	"context"
	stderrors "errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/chensakkolmlbb2025/royal-elegance/internal/common/breaker"
	"github.com/chensakkolmlbb2025/royal-elegance/internal/common/errors"
	"github.com/chensakkolmlbb2025/royal-elegance/internal/common/logger"
	"github.com/chensakkolmlbb2025/royal-elegance/internal/common/tracing"
	"github.com/chensakkolmlbb2025/royal-elegance/internal/models"
	"github.com/chensakkolmlbb2025/royal-elegance/internal/repository"
	"github.com/chensakkolmlbb2025/royal-elegance/pkg/stripepay"
)

// CardGateway 银行卡支付网关，*stripepay.Client 实现了该接口
type CardGateway interface {
	CreateIntent(ctx context.Context, req *stripepay.IntentRequest) (*stripepay.Intent, error)
	Ping(ctx context.Context) error
}

// WithCardGateway 启用银行卡支付，br 为 nil 时使用默认熔断参数
func WithCardGateway(gw CardGateway, br *breaker.Breaker) Option {
	return func(s *PaymentService) {
		s.cards = gw
		s.cardBreaker = br
	}
}

// CreateCardIntentRequest 创建银行卡支付请求，金额取预订总价
type CreateCardIntentRequest struct {
	BookingNo     string            `json:"booking_no" binding:"required,max=64"`
	CustomerEmail string            `json:"customer_email" binding:"omitempty,email"`
	Metadata      map[string]string `json:"metadata" binding:"omitempty,max=20"`
}

// CardIntentResponse 银行卡支付响应，前端用 ClientSecret 完成确认
type CardIntentResponse struct {
	TransactionID string          `json:"transaction_id"`
	BookingNo     string          `json:"booking_no"`
	ClientSecret  string          `json:"client_secret"`
	Amount        decimal.Decimal `json:"amount"`
	Currency      string          `json:"currency"`
	Status        string          `json:"status"`
	Reused        bool            `json:"reused"`
}

// CreateCardIntent 为预订创建 Stripe PaymentIntent
// 幂等键为 booking:<预订ID>，重复请求返回同一个 intent 和同一条支付记录
func (s *PaymentService) CreateCardIntent(ctx context.Context, req *CreateCardIntentRequest) (resp *CardIntentResponse, err error) {
	ctx, span := tracing.Start(ctx, "payment.create_card_intent", tracing.WithBookingNo(req.BookingNo))
	defer func() { tracing.EndSpan(span, err) }()

	if s.cards == nil {
		return nil, errors.ErrPaymentMethodError.WithMessage("未开通银行卡支付")
	}

	b, err := s.payableBooking(ctx, req.BookingNo)
	if err != nil {
		return nil, err
	}
	currency := strings.ToUpper(b.Currency)
	if currency == "" {
		currency = s.cfg.Business.DefaultCurrency
	}

	start := time.Now()
	intent, err := breaker.Do(s.cardBreaker, func() (*stripepay.Intent, error) {
		return s.cards.CreateIntent(ctx, &stripepay.IntentRequest{
			BookingID:    b.ID,
			BookingNo:    b.BookingNo,
			Amount:       b.TotalAmount,
			Currency:     currency,
			ReceiptEmail: req.CustomerEmail,
			Metadata:     req.Metadata,
		})
	})
	s.observeGateway("card_intent", err, time.Since(start))
	if err != nil {
		logger.FromContext(ctx).Warn("stripe create intent failed",
			logger.BookingNo(b.BookingNo),
			zap.Bool("breaker_open", breaker.IsRejected(err)),
			zap.Error(err),
		)
		return nil, cardError(err)
	}

	payment, reused, err := s.saveCardPayment(ctx, b, intent, currency)
	if err != nil {
		return nil, err
	}

	logger.FromContext(ctx).Info("card intent created",
		logger.TransactionID(payment.PaymentNo),
		logger.BookingNo(b.BookingNo),
		logger.Amount(payment.Amount, currency),
		zap.String("intent_status", intent.Status),
		zap.Bool("reused", reused),
	)

	return &CardIntentResponse{
		TransactionID: payment.PaymentNo,
		BookingNo:     b.BookingNo,
		ClientSecret:  intent.ClientSecret,
		Amount:        payment.Amount,
		Currency:      currency,
		Status:        payment.Status,
		Reused:        reused,
	}, nil
}

// saveCardPayment 以 intent ID 作为交易号落库，已存在时直接返回
func (s *PaymentService) saveCardPayment(ctx context.Context, b *models.Booking, intent *stripepay.Intent, currency string) (*models.Payment, bool, error) {
	existing, err := s.paymentRepo.GetByPaymentNo(ctx, intent.ID)
	if err == nil {
		return existing, true, nil
	}
	if !repository.IsNotFound(err) {
		return nil, false, errors.ErrDatabaseError.WithError(err)
	}

	payment := &models.Payment{
		PaymentNo:     intent.ID,
		BookingID:     &b.ID,
		BookingNo:     b.BookingNo,
		Amount:        b.TotalAmount,
		Currency:      currency,
		Method:        models.PaymentMethodCard,
		Source:        models.PaymentSourceGateway,
		Status:        models.PaymentStatusPending,
		GatewayStatus: &intent.Status,
	}
	if err := s.paymentRepo.Create(ctx, payment); err != nil {
		return nil, false, errors.ErrDatabaseError.WithError(err)
	}
	s.recordPayment(payment.Method, payment.Status)
	return payment, false, nil
}

func cardError(err error) *errors.AppError {
	switch {
	case breaker.IsRejected(err):
		return errors.ErrPaymentGateway.WithMessage("银行卡支付暂不可用，请稍后重试").WithError(err)
	case stderrors.Is(err, stripepay.ErrFractionalAmount):
		return errors.ErrInvalidParams.WithMessage("金额精度超出币种允许范围").WithError(err)
	case stripepay.IsDeclined(err):
		return errors.ErrPaymentFailed.WithMessage(stripepay.DeclineMessage(err)).WithError(err)
	default:
		return errors.ErrPaymentGateway.WithError(err)
	}
}
