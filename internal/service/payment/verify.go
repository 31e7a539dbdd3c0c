package payment

import (
	"context"
	"strings"
	"time"

	"github.com/chensakkolmlbb2025/royal-elegance/internal/common/crypto"
	"github.com/chensakkolmlbb2025/royal-elegance/internal/common/errors"
	"github.com/chensakkolmlbb2025/royal-elegance/internal/models"
	"github.com/chensakkolmlbb2025/royal-elegance/internal/repository"
	"github.com/chensakkolmlbb2025/royal-elegance/pkg/khqr"
)

// FieldInfo 解码后的 TLV 字段
type FieldInfo struct {
	Tag      string      `json:"tag"`
	Value    string      `json:"value"`
	Children []FieldInfo `json:"children,omitempty"`
}

// VerifyResult 载荷校验结果
type VerifyResult struct {
	Valid   bool                      `json:"valid"`
	CRC     string                    `json:"crc"`
	Payload *khqr.PaymentPayloadInput `json:"payload"`
	Fields  []FieldInfo               `json:"fields"`
}

// VerifyPayload 校验并解析扫描到的 KHQR 字符串
func (s *PaymentService) VerifyPayload(payload string) (*VerifyResult, error) {
	payload = strings.TrimSpace(payload)
	if payload == "" {
		return nil, errors.ErrInvalidParams.WithMessage("payload 不能为空")
	}

	fields, err := khqr.Decode(payload)
	var input *khqr.PaymentPayloadInput
	if err == nil {
		input, err = khqr.FromFields(fields)
	}
	s.recordKHQR("parse", err)
	if err != nil {
		return nil, errors.FromKHQR(err)
	}

	return &VerifyResult{
		Valid:   true,
		CRC:     payload[len(payload)-4:],
		Payload: input,
		Fields:  convertFields(fields),
	}, nil
}

func convertFields(fields []khqr.Field) []FieldInfo {
	out := make([]FieldInfo, 0, len(fields))
	for _, f := range fields {
		info := FieldInfo{Tag: f.Tag, Value: f.Value}
		if len(f.Children) > 0 {
			info.Children = convertFields(f.Children)
		}
		out = append(out, info)
	}
	return out
}

// QRCodePNG 渲染支付载荷的 PNG 二维码
func (s *PaymentService) QRCodePNG(ctx context.Context, tranID string) ([]byte, error) {
	payment, err := s.paymentRepo.GetByPaymentNo(ctx, tranID)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, errors.ErrPaymentNotFound
		}
		return nil, errors.ErrDatabaseError.WithError(err)
	}
	if payment.Status == models.PaymentStatusExpired {
		return nil, errors.ErrPaymentExpired
	}
	if payment.Payload == "" {
		return nil, errors.ErrPaymentNotFound.WithMessage("该支付没有 KHQR 载荷")
	}

	png, err := s.qr.GeneratePNG(payment.Payload)
	if err != nil {
		return nil, errors.ErrInternalError.WithError(err)
	}
	return png, nil
}

// Diagnostics 网关连通性与配置概况，敏感值脱敏
type Diagnostics struct {
	Mode     string          `json:"mode"`
	Gateway  GatewayDiag     `json:"gateway"`
	Card     GatewayDiag     `json:"card"`
	Merchant MerchantDiag    `json:"merchant"`
	Secrets  map[string]bool `json:"secrets"`
}

// GatewayDiag 网关状态
type GatewayDiag struct {
	Configured bool   `json:"configured"`
	BaseURL    string `json:"base_url,omitempty"`
	Reachable  bool   `json:"reachable"`
	Breaker    string `json:"breaker,omitempty"`
	LatencyMS  int64  `json:"latency_ms,omitempty"`
	Error      string `json:"error,omitempty"`
}

// MerchantDiag 商户信息
type MerchantDiag struct {
	GUID       string `json:"guid"`
	MerchantID string `json:"merchant_id"`
	PublicKey  string `json:"public_key,omitempty"`
	Name       string `json:"name"`
	City       string `json:"city"`
}

// Diagnostics 诊断信息
func (s *PaymentService) Diagnostics(ctx context.Context) *Diagnostics {
	p := s.cfg.Payway
	d := &Diagnostics{
		Mode: s.mode(),
		Gateway: GatewayDiag{
			Configured: p.Configured(),
			BaseURL:    p.BaseURL,
		},
		Merchant: MerchantDiag{
			GUID:       s.cfg.KHQR.MerchantGUID,
			MerchantID: crypto.Mask(s.cfg.KHQR.MerchantID, 3),
			Name:       s.cfg.KHQR.MerchantName,
			City:       s.cfg.KHQR.MerchantCity,
		},
		Secrets: map[string]bool{
			"payway_public_key":  p.PublicKey != "",
			"payway_private_key": p.PrivateKeyPEM != "",
			"webhook_secret":     p.WebhookSecret != "",
			"stripe_secret_key":  s.cfg.Stripe.Configured(),
		},
	}
	if _, masked := crypto.Configured(p.PublicKey); masked != "" {
		d.Merchant.PublicKey = masked
	}
	d.Card = s.cardDiagnostics(ctx)

	if s.gateway == nil {
		d.Gateway.Error = "gateway not configured"
		return d
	}
	d.Gateway.Breaker = s.breaker.State()

	start := time.Now()
	err := s.gateway.Ping(ctx)
	d.Gateway.LatencyMS = time.Since(start).Milliseconds()
	s.observeGateway("ping", err, time.Since(start))
	if err != nil {
		d.Gateway.Error = err.Error()
		return d
	}
	d.Gateway.Reachable = true
	return d
}

func (s *PaymentService) cardDiagnostics(ctx context.Context) GatewayDiag {
	diag := GatewayDiag{Configured: s.cards != nil}
	if s.cards == nil {
		diag.Error = "card gateway not configured"
		return diag
	}
	diag.Breaker = s.cardBreaker.State()

	start := time.Now()
	err := s.cards.Ping(ctx)
	diag.LatencyMS = time.Since(start).Milliseconds()
	s.observeGateway("card_ping", err, time.Since(start))
	if err != nil {
		diag.Error = err.Error()
		return diag
	}
	diag.Reachable = true
	return diag
}

func (s *PaymentService) mode() string {
	switch {
	case s.cfg.Payway.MockMode:
		return "mock"
	case s.gateway != nil:
		return "gateway"
	default:
		return "local"
	}
}
