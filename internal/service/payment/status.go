package payment

import (
	"context"
	stderrors "errors"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/chensakkolmlbb2025/royal-elegance/internal/common/breaker"
	"github.com/chensakkolmlbb2025/royal-elegance/internal/common/cache"
	"github.com/chensakkolmlbb2025/royal-elegance/internal/common/errors"
	"github.com/chensakkolmlbb2025/royal-elegance/internal/common/events"
	"github.com/chensakkolmlbb2025/royal-elegance/internal/common/logger"
	"github.com/chensakkolmlbb2025/royal-elegance/internal/common/tracing"
	"github.com/chensakkolmlbb2025/royal-elegance/internal/common/utils"
	"github.com/chensakkolmlbb2025/royal-elegance/internal/models"
	"github.com/chensakkolmlbb2025/royal-elegance/internal/repository"
	"github.com/chensakkolmlbb2025/royal-elegance/internal/service/booking"
	"github.com/chensakkolmlbb2025/royal-elegance/pkg/payway"
)

const expireBatchSize = 100

// StatusResult 支付状态
type StatusResult struct {
	TransactionID     string          `json:"transaction_id"`
	BookingNo         string          `json:"booking_no,omitempty"`
	Status            string          `json:"status"`
	Amount            decimal.Decimal `json:"amount"`
	Currency          string          `json:"currency"`
	Source            string          `json:"source"`
	BankCode          string          `json:"bank_code,omitempty"`
	CustomerReference string          `json:"customer_reference,omitempty"`
	PaidAt            *time.Time      `json:"paid_at,omitempty"`
	ExpiresAt         *time.Time      `json:"expires_at,omitempty"`
	Error             string          `json:"error,omitempty"`
}

// GetPaymentStatus 查询支付状态
// 终态直接读库；网关查询失败时降级为 pending 并附带错误信息，不使轮询失败
func (s *PaymentService) GetPaymentStatus(ctx context.Context, tranID string) (*StatusResult, error) {
	key := cache.BuildKey(cache.KeyPrefixPaymentStatus, tranID)
	if s.cache != nil {
		var cached StatusResult
		err := s.cache.Get(ctx, key, &cached)
		s.recordCache(err == nil)
		if err == nil {
			return &cached, nil
		}
	}

	payment, err := s.paymentRepo.GetByPaymentNo(ctx, tranID)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, errors.ErrPaymentNotFound
		}
		return nil, errors.ErrDatabaseError.WithError(err)
	}

	if !payment.IsTerminal() && payment.ExpiredAt != nil && s.now().After(*payment.ExpiredAt) {
		if _, err := s.expire(ctx, payment); err != nil {
			return nil, err
		}
		payment.Status = models.PaymentStatusExpired
	}

	if !payment.IsTerminal() && payment.Source == models.PaymentSourceGateway && s.gateway != nil {
		remote, err := s.checkGateway(ctx, tranID)
		if err != nil {
			result := convertStatus(payment)
			result.Status = models.PaymentStatusPending
			result.Error = err.Error()
			return result, nil
		}
		if updated, err := s.applyStatus(ctx, tranID, fromGateway(remote)); err != nil {
			logger.Warn("apply gateway status failed", logger.TransactionID(tranID), zap.Error(err))
		} else {
			payment = updated
		}
	}

	result := convertStatus(payment)
	if s.cache != nil {
		if err := s.cache.Set(ctx, key, result, s.statusTTL()); err != nil {
			logger.Warn("cache payment status failed", logger.TransactionID(tranID), zap.Error(err))
		}
	}
	return result, nil
}

func (s *PaymentService) checkGateway(ctx context.Context, tranID string) (*payway.StatusResponse, error) {
	ctx, span := tracing.Start(ctx, "payway.check_status", tracing.WithTransactionID(tranID))
	start := time.Now()
	resp, err := breaker.Do(s.breaker, func() (*payway.StatusResponse, error) {
		return s.gateway.CheckStatus(ctx, tranID)
	})
	tracing.EndSpan(span, err)
	s.observeGateway("check_status", err, time.Since(start))
	if err != nil {
		logger.Warn("payway status check failed", logger.TransactionID(tranID), zap.Error(err))
	}
	return resp, err
}

// statusUpdate 一次来自网关（回调或查询）的状态变更
type statusUpdate struct {
	Status            string
	GatewayStatus     string
	BookingNo         string
	BankCode          string
	CustomerReference string
	PaidAt            *time.Time
	CallbackData      models.JSON
}

func fromGateway(r *payway.StatusResponse) statusUpdate {
	return statusUpdate{
		Status:            r.Status,
		GatewayStatus:     r.Status,
		BankCode:          r.BankCode,
		CustomerReference: r.CustomerReference,
		PaidAt:            r.PaidAt,
	}
}

// applyStatus 在一个事务内更新支付记录及关联预订，终态记录不再变更
func (s *PaymentService) applyStatus(ctx context.Context, tranID string, u statusUpdate) (*models.Payment, error) {
	var (
		payment *models.Payment
		changed bool
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := s.paymentRepo.WithTx(tx)
		p, err := repo.GetByPaymentNoForUpdate(ctx, tranID)
		if err != nil {
			if repository.IsNotFound(err) {
				return errors.ErrPaymentNotFound
			}
			return errors.ErrDatabaseError.WithError(err)
		}
		payment = p
		if p.IsTerminal() {
			return nil
		}

		fields := map[string]interface{}{}
		if u.GatewayStatus != "" {
			fields["gateway_status"] = u.GatewayStatus
			p.GatewayStatus = utils.StringPtr(u.GatewayStatus)
		}
		if u.CallbackData != nil {
			fields["callback_data"] = u.CallbackData
			p.CallbackData = u.CallbackData
		}

		switch u.Status {
		case models.PaymentStatusSuccess, models.PaymentStatusFailed, models.PaymentStatusExpired:
			fields["status"] = u.Status
			if u.BankCode != "" {
				fields["bank_code"] = u.BankCode
				p.BankCode = utils.StringPtr(u.BankCode)
			}
			if u.CustomerReference != "" {
				fields["customer_reference"] = u.CustomerReference
				p.CustomerReference = utils.StringPtr(u.CustomerReference)
			}
			if u.Status == models.PaymentStatusSuccess {
				paidAt := s.now()
				if u.PaidAt != nil {
					paidAt = *u.PaidAt
				}
				fields["paid_at"] = paidAt
				p.PaidAt = &paidAt
			}
			p.Status = u.Status
			changed = true
		case models.PaymentStatusProcessing:
			fields["status"] = u.Status
			p.Status = u.Status
		}

		if len(fields) > 0 {
			if err := repo.UpdateFields(ctx, p.ID, fields); err != nil {
				return errors.ErrDatabaseError.WithError(err)
			}
		}
		if !changed {
			return nil
		}

		bookingNo := p.BookingNo
		if bookingNo == "" {
			bookingNo = u.BookingNo
		}
		if bookingNo == "" || s.bookings == nil {
			return nil
		}
		return s.syncBooking(ctx, tx, bookingNo, p)
	})
	if err != nil {
		return nil, err
	}

	if changed {
		s.invalidate(ctx, tranID)
		s.recordPayment(payment.Method, payment.Status)
		s.publishPayment(ctx, payment)
		logger.FromContext(ctx).Info("payment status changed",
			logger.TransactionID(tranID),
			logger.BookingNo(payment.BookingNo),
			logger.PaymentStatus(payment.Status),
		)
	}
	return payment, nil
}

func (s *PaymentService) syncBooking(ctx context.Context, tx *gorm.DB, bookingNo string, p *models.Payment) error {
	var err error
	switch p.Status {
	case models.PaymentStatusSuccess:
		_, err = s.bookings.MarkPaid(ctx, tx, bookingNo, booking.PaymentResult{
			Method:    p.Method,
			Reference: p.PaymentNo,
			PaidAt:    *p.PaidAt,
		})
	case models.PaymentStatusFailed:
		err = s.bookings.MarkPaymentFailed(ctx, tx, bookingNo, p.PaymentNo)
	}
	if stderrors.Is(err, errors.ErrBookingNotFound) {
		logger.Warn("payment references unknown booking", logger.TransactionID(p.PaymentNo), logger.BookingNo(bookingNo))
		return nil
	}
	return err
}

// CloseExpiredPayments 关闭已过期的待支付记录，返回关闭数量
func (s *PaymentService) CloseExpiredPayments(ctx context.Context) (int, error) {
	payments, err := s.paymentRepo.ListExpiredPending(ctx, s.now(), expireBatchSize)
	if err != nil {
		return 0, errors.ErrDatabaseError.WithError(err)
	}

	closed := 0
	for _, p := range payments {
		ok, err := s.expire(ctx, p)
		if err != nil {
			logger.Error("close expired payment failed", logger.TransactionID(p.PaymentNo), zap.Error(err))
			continue
		}
		if ok {
			closed++
		}
	}
	if closed > 0 {
		logger.Info("expired payments closed", zap.Int("count", closed))
	}
	return closed, nil
}

func (s *PaymentService) expire(ctx context.Context, p *models.Payment) (bool, error) {
	ok, err := s.paymentRepo.MarkExpired(ctx, p.ID)
	if err != nil {
		return false, errors.ErrDatabaseError.WithError(err)
	}
	if ok {
		s.invalidate(ctx, p.PaymentNo)
		s.recordPayment(p.Method, models.PaymentStatusExpired)
	}
	return ok, nil
}

func (s *PaymentService) invalidate(ctx context.Context, tranID string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Delete(ctx, cache.BuildKey(cache.KeyPrefixPaymentStatus, tranID)); err != nil {
		logger.Warn("invalidate payment status failed", logger.TransactionID(tranID), zap.Error(err))
	}
}

func (s *PaymentService) publishPayment(ctx context.Context, p *models.Payment) {
	var eventType string
	switch p.Status {
	case models.PaymentStatusSuccess:
		eventType = events.TypePaymentSucceeded
	case models.PaymentStatusFailed:
		eventType = events.TypePaymentFailed
	default:
		return
	}
	event := events.NewEvent(eventType, events.PaymentEvent{
		TransactionID: p.PaymentNo,
		BookingNo:     p.BookingNo,
		Amount:        p.Amount.StringFixed(2),
		Currency:      p.Currency,
		Status:        p.Status,
		BankCode:      utils.SafeString(p.BankCode),
	})
	if err := s.publisher.Publish(ctx, event); err != nil {
		logger.Warn("publish payment event failed", logger.TransactionID(p.PaymentNo), zap.Error(err))
	}
}

func (s *PaymentService) statusTTL() time.Duration {
	if n := s.cfg.Business.StatusCacheSeconds; n > 0 {
		return time.Duration(n) * time.Second
	}
	return 5 * time.Second
}

func (s *PaymentService) recordCache(hit bool) {
	if s.metrics != nil {
		s.metrics.RecordCache("payment_status", hit)
	}
}

func convertStatus(p *models.Payment) *StatusResult {
	return &StatusResult{
		TransactionID:     p.PaymentNo,
		BookingNo:         p.BookingNo,
		Status:            p.Status,
		Amount:            p.Amount,
		Currency:          p.Currency,
		Source:            p.Source,
		BankCode:          utils.SafeString(p.BankCode),
		CustomerReference: utils.SafeString(p.CustomerReference),
		PaidAt:            p.PaidAt,
		ExpiresAt:         p.ExpiredAt,
	}
}
