package payment

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/chensakkolmlbb2025/royal-elegance/internal/common/crypto"
	"github.com/chensakkolmlbb2025/royal-elegance/internal/common/errors"
	"github.com/chensakkolmlbb2025/royal-elegance/internal/common/logger"
	"github.com/chensakkolmlbb2025/royal-elegance/internal/models"
	"github.com/chensakkolmlbb2025/royal-elegance/internal/repository"
)

// SignatureHeader 回调签名请求头
const SignatureHeader = "X-KHQR-Signature"

// WebhookPayload 网关回调内容
type WebhookPayload struct {
	TransactionID     string          `json:"transaction_id"`
	Status            string          `json:"status"`
	Amount            decimal.Decimal `json:"amount"`
	Currency          string          `json:"currency"`
	MerchantReference string          `json:"merchant_reference"`
	CustomerReference string          `json:"customer_reference"`
	BankCode          string          `json:"bank_code"`
	PaidAt            *time.Time      `json:"paid_at"`
}

// WebhookResult 回调处理结果
type WebhookResult struct {
	TransactionID string `json:"transaction_id"`
	BookingNo     string `json:"booking_no,omitempty"`
	Status        string `json:"status"`
	Duplicate     bool   `json:"duplicate"`
}

// WebhookStatus 回调状态映射：success/completed 为成功，failed/expired/cancelled 为失败，其余视为待支付
func WebhookStatus(status string) string {
	switch strings.ToLower(strings.TrimSpace(status)) {
	case "success", "completed":
		return models.PaymentStatusSuccess
	case "failed", "expired", "cancelled":
		return models.PaymentStatusFailed
	default:
		return models.PaymentStatusPending
	}
}

// HandleWebhook 处理网关回调，配置了回调密钥时校验 HMAC 签名
// 重复回调或已是终态的支付不会再次变更
func (s *PaymentService) HandleWebhook(ctx context.Context, body []byte, signature string) (*WebhookResult, error) {
	if secret := s.cfg.Payway.WebhookSecret; secret != "" {
		if err := crypto.VerifyHMACSHA256(secret, body, signature); err != nil {
			s.recordWebhook("rejected")
			return nil, errors.ErrCallbackSignature.WithError(err)
		}
	}

	var payload WebhookPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		s.recordWebhook("invalid")
		return nil, errors.ErrPaymentCallbackError.WithMessage("回调内容格式错误").WithError(err)
	}
	if payload.TransactionID == "" {
		s.recordWebhook("invalid")
		return nil, errors.ErrPaymentCallbackError.WithMessage("缺少 transaction_id")
	}

	var raw models.JSON
	if err := json.Unmarshal(body, &raw); err != nil {
		raw = nil
	}

	logger.FromContext(ctx).Info("khqr webhook received",
		logger.TransactionID(payload.TransactionID),
		logger.BookingNo(payload.MerchantReference),
		zap.String("status", payload.Status),
	)

	result, err := s.applyWebhook(ctx, payload, raw)
	if err != nil {
		s.recordWebhook("error")
		return nil, err
	}
	if result.Duplicate {
		s.recordWebhook("duplicate")
	} else {
		s.recordWebhook("processed")
	}
	return result, nil
}

func (s *PaymentService) applyWebhook(ctx context.Context, payload WebhookPayload, raw models.JSON) (*WebhookResult, error) {
	before, err := s.paymentRepo.GetByPaymentNo(ctx, payload.TransactionID)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, errors.ErrPaymentNotFound
		}
		return nil, errors.ErrDatabaseError.WithError(err)
	}

	status := WebhookStatus(payload.Status)
	payment, err := s.applyStatus(ctx, payload.TransactionID, statusUpdate{
		Status:            status,
		GatewayStatus:     payload.Status,
		BookingNo:         payload.MerchantReference,
		BankCode:          payload.BankCode,
		CustomerReference: payload.CustomerReference,
		PaidAt:            payload.PaidAt,
		CallbackData:      raw,
	})
	if err != nil {
		return nil, err
	}

	return &WebhookResult{
		TransactionID: payment.PaymentNo,
		BookingNo:     payment.BookingNo,
		Status:        payment.Status,
		Duplicate:     before.IsTerminal(),
	}, nil
}

// SimulateMockPayment 模拟支付结果，只适用于 MOCK_ 交易
func (s *PaymentService) SimulateMockPayment(ctx context.Context, tranID, status string) (*WebhookResult, error) {
	if !strings.HasPrefix(tranID, MockTransactionPrefix+"_") {
		return nil, errors.ErrPaymentMethodError.WithMessage("只能模拟 MOCK 交易")
	}
	switch status {
	case models.PaymentStatusSuccess, models.PaymentStatusFailed:
	default:
		return nil, errors.ErrInvalidParams.WithMessage("status 必须为 success 或 failed")
	}

	now := s.now()
	return s.applyWebhook(ctx, WebhookPayload{
		TransactionID: tranID,
		Status:        status,
		BankCode:      "MOCK",
		PaidAt:        &now,
	}, models.JSON{"simulated": true, "status": status})
}

func (s *PaymentService) recordWebhook(status string) {
	if s.metrics != nil {
		s.metrics.RecordWebhook(status)
	}
}
