// Package stripepay 封装 Stripe PaymentIntent，用于银行卡支付
package stripepay

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"
)

var (
	// ErrNotConfigured 未配置密钥
	ErrNotConfigured = errors.New("stripepay: secret key not configured")
	// ErrFractionalAmount 金额无法精确换算为最小货币单位
	ErrFractionalAmount = errors.New("stripepay: amount has more precision than the currency allows")
)

// 零小数位币种，金额本身即最小单位
var zeroDecimalCurrencies = map[string]bool{
	"bif": true, "clp": true, "djf": true, "gnf": true, "jpy": true, "kmf": true,
	"krw": true, "mga": true, "pyg": true, "rwf": true, "ugx": true, "vnd": true,
	"vuv": true, "xaf": true, "xof": true, "xpf": true,
}

// Config 客户端配置
type Config struct {
	SecretKey string
	BaseURL   string // 为空时使用 Stripe 官方地址
	Timeout   time.Duration
}

// IntentRequest 创建 PaymentIntent 请求
type IntentRequest struct {
	BookingID    int64
	BookingNo    string
	Amount       decimal.Decimal
	Currency     string
	ReceiptEmail string
	Metadata     map[string]string
}

// Intent PaymentIntent 摘要
type Intent struct {
	ID           string
	ClientSecret string
	Status       string
	Amount       int64
	Currency     string
}

// Client Stripe 客户端
type Client struct {
	api *client.API
}

// NewClient 创建客户端，密钥会去掉首尾空白
func NewClient(cfg *Config) (*Client, error) {
	key := strings.TrimSpace(cfg.SecretKey)
	if key == "" {
		return nil, ErrNotConfigured
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	backendCfg := &stripe.BackendConfig{
		HTTPClient:        &http.Client{Timeout: timeout},
		LeveledLogger:     &stripe.LeveledLogger{Level: stripe.LevelNull},
		MaxNetworkRetries: stripe.Int64(0), // 重试交给熔断器和幂等键
	}
	if cfg.BaseURL != "" {
		backendCfg.URL = stripe.String(strings.TrimRight(cfg.BaseURL, "/"))
	}

	return &Client{
		api: client.New(key, &stripe.Backends{
			API: stripe.GetBackendWithConfig(stripe.APIBackend, backendCfg),
		}),
	}, nil
}

// IdempotencyKey 同一预订重复下单返回同一个 PaymentIntent
func IdempotencyKey(bookingID int64) string {
	return fmt.Sprintf("booking:%d", bookingID)
}

// LooksLikeSecretKey 是否为 sk_test_ 或 sk_live_ 开头的密钥
func LooksLikeSecretKey(key string) bool {
	key = strings.TrimSpace(key)
	return strings.HasPrefix(key, "sk_test_") || strings.HasPrefix(key, "sk_live_")
}

// MinorUnits 换算为最小货币单位，如 12.50 USD -> 1250
func MinorUnits(amount decimal.Decimal, currency string) (int64, error) {
	exp := int32(2)
	if zeroDecimalCurrencies[strings.ToLower(currency)] {
		exp = 0
	}
	scaled := amount.Shift(exp)
	if !scaled.Equal(scaled.Truncate(0)) {
		return 0, ErrFractionalAmount
	}
	return scaled.IntPart(), nil
}

// CreateIntent 创建 PaymentIntent，幂等键按预订 ID 生成
func (c *Client) CreateIntent(ctx context.Context, req *IntentRequest) (*Intent, error) {
	amount, err := MinorUnits(req.Amount, req.Currency)
	if err != nil {
		return nil, err
	}

	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(amount),
		Currency: stripe.String(strings.ToLower(req.Currency)),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
	}
	if req.ReceiptEmail != "" {
		params.ReceiptEmail = stripe.String(req.ReceiptEmail)
	}
	params.Context = ctx
	params.SetIdempotencyKey(IdempotencyKey(req.BookingID))
	for k, v := range req.Metadata {
		params.AddMetadata(k, v)
	}
	params.AddMetadata("booking_id", fmt.Sprintf("%d", req.BookingID))
	params.AddMetadata("booking_no", req.BookingNo)

	pi, err := c.api.PaymentIntents.New(params)
	if err != nil {
		return nil, fmt.Errorf("stripepay: create payment intent: %w", err)
	}
	return &Intent{
		ID:           pi.ID,
		ClientSecret: pi.ClientSecret,
		Status:       string(pi.Status),
		Amount:       pi.Amount,
		Currency:     string(pi.Currency),
	}, nil
}

// Ping 读取账户余额确认密钥可用
func (c *Client) Ping(ctx context.Context) error {
	params := &stripe.BalanceParams{}
	params.Context = ctx
	if _, err := c.api.Balance.Get(params); err != nil {
		return fmt.Errorf("stripepay: ping: %w", err)
	}
	return nil
}

// IsDeclined 请求被 Stripe 拒绝（参数或卡片问题），重试不会成功
func IsDeclined(err error) bool {
	var se *stripe.Error
	if !errors.As(err, &se) {
		return false
	}
	return se.HTTPStatusCode >= 400 && se.HTTPStatusCode < 500 && se.HTTPStatusCode != http.StatusTooManyRequests
}

// DeclineMessage Stripe 返回的错误说明
func DeclineMessage(err error) string {
	var se *stripe.Error
	if errors.As(err, &se) && se.Msg != "" {
		return se.Msg
	}
	return err.Error()
}
