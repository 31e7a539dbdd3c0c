// Package payway 提供 ABA PayWay 支付网关客户端封装
package payway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/shopspring/decimal"
)

// PaymentOptionKHQR KHQR 扫码支付
const PaymentOptionKHQR = "khqr"

// DefaultDetails 未填写描述时使用
const DefaultDetails = "Hotel Booking"

// 内部支付状态
const (
	StatusPending    = "pending"
	StatusProcessing = "processing"
	StatusSuccess    = "success"
	StatusFailed     = "failed"
	StatusExpired    = "expired"
)

var (
	// ErrNotConfigured 未配置网关凭证
	ErrNotConfigured = errors.New("payway: gateway credentials not configured")
	// ErrNonJSONResponse 网关返回了非 JSON 内容（多为 HTML 错误页）
	ErrNonJSONResponse = errors.New("payway: non-JSON response")
)

// Config 网关配置
type Config struct {
	BaseURL       string        `mapstructure:"base_url"`
	MerchantID    string        `mapstructure:"merchant_id"`
	PublicKey     string        `mapstructure:"public_key"`
	PrivateKeyPEM string        `mapstructure:"private_key"`
	ReturnURL     string        `mapstructure:"return_url"`
	CancelURL     string        `mapstructure:"cancel_url"`
	WebhookURL    string        `mapstructure:"webhook_url"`
	Timeout       time.Duration `mapstructure:"timeout"`
}

// Client 网关客户端
type Client struct {
	config *Config
	http   *resty.Client
	signer *Signer
	now    func() time.Time
}

// NewClient 创建网关客户端，私钥为空时请求不带签名
func NewClient(config *Config) (*Client, error) {
	if config.BaseURL == "" || config.MerchantID == "" || config.PublicKey == "" {
		return nil, ErrNotConfigured
	}

	var signer *Signer
	if strings.TrimSpace(config.PrivateKeyPEM) != "" {
		s, err := NewSigner(config.PrivateKeyPEM)
		if err != nil {
			return nil, err
		}
		signer = s
	}

	timeout := config.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	httpClient := resty.New().
		SetBaseURL(strings.TrimRight(config.BaseURL, "/")).
		SetTimeout(timeout).
		SetRetryCount(0).
		SetAuthToken(config.PublicKey).
		SetHeader("Accept", "application/json")

	return &Client{config: config, http: httpClient, signer: signer, now: time.Now}, nil
}

// Signed 是否会对请求签名
func (c *Client) Signed() bool {
	return c.signer != nil
}

// PurchaseRequest 下单请求
type PurchaseRequest struct {
	TranID  string
	Amount  decimal.Decimal
	Details string
}

type purchaseBody struct {
	TranID             string      `json:"tran_id"`
	Amount             json.Number `json:"amount"`
	Details            string      `json:"details"`
	MerchantID         string      `json:"merchant_id"`
	ReqTime            string      `json:"req_time"`
	PaymentOption      string      `json:"payment_option"`
	ReturnURL          string      `json:"return_url,omitempty"`
	CancelURL          string      `json:"cancel_url,omitempty"`
	ContinueSuccessURL string      `json:"continue_success_url,omitempty"`
	WebhookURL         string      `json:"webhook_url,omitempty"`
	Signature          string      `json:"signature,omitempty"`
}

// PurchaseResponse 下单响应
type PurchaseResponse struct {
	Status     string `json:"status"`
	QRCode     string `json:"qr_code"`
	PaymentURL string `json:"payment_url"`
	Message    string `json:"message"`
	Error      string `json:"error"`
}

// StatusResponse 状态查询响应
type StatusResponse struct {
	TransactionID     string          `json:"transaction_id"`
	Status            string          `json:"status"`
	Amount            decimal.Decimal `json:"amount"`
	PaidAt            *time.Time      `json:"paid_at,omitempty"`
	BankCode          string          `json:"bank_code"`
	CustomerReference string          `json:"customer_reference"`
}

// APIError 网关返回的错误
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("payway: api error %d: %s", e.StatusCode, e.Message)
}

// CreatePurchase 创建 KHQR 支付
func (c *Client) CreatePurchase(ctx context.Context, req *PurchaseRequest) (*PurchaseResponse, error) {
	details := req.Details
	if details == "" {
		details = DefaultDetails
	}

	body := purchaseBody{
		TranID:             req.TranID,
		Amount:             json.Number(req.Amount.String()),
		Details:            details,
		MerchantID:         c.config.MerchantID,
		ReqTime:            strconv.FormatInt(c.now().Unix(), 10),
		PaymentOption:      PaymentOptionKHQR,
		ReturnURL:          c.config.ReturnURL,
		CancelURL:          c.config.CancelURL,
		ContinueSuccessURL: c.config.ReturnURL,
		WebhookURL:         c.config.WebhookURL,
	}
	if c.signer != nil {
		sig, err := c.signer.Sign(SigningString(body.ReqTime, body.MerchantID, body.TranID, string(body.Amount), body.Details, body.PaymentOption))
		if err != nil {
			return nil, err
		}
		body.Signature = sig
	}

	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(body).
		Post("/payments/purchase")
	if err != nil {
		return nil, fmt.Errorf("payway: purchase request: %w", err)
	}

	var result PurchaseResponse
	if err := decodeJSON(resp, &result); err != nil {
		return nil, err
	}
	if resp.IsError() || (result.Status != StatusSuccess && result.QRCode == "") {
		msg := result.Message
		if msg == "" {
			msg = result.Error
		}
		if msg == "" {
			msg = resp.Status()
		}
		return nil, &APIError{StatusCode: resp.StatusCode(), Message: msg}
	}
	return &result, nil
}

// CheckStatus 查询交易状态，返回的 Status 已映射为内部状态
func (c *Client) CheckStatus(ctx context.Context, tranID string) (*StatusResponse, error) {
	resp, err := c.http.R().
		SetContext(ctx).
		Get("/payments/" + url.PathEscape(tranID) + "/status")
	if err != nil {
		return nil, fmt.Errorf("payway: status request: %w", err)
	}
	if resp.IsError() {
		return nil, &APIError{StatusCode: resp.StatusCode(), Message: resp.Status()}
	}

	var result StatusResponse
	if err := decodeJSON(resp, &result); err != nil {
		return nil, err
	}
	if result.TransactionID == "" {
		result.TransactionID = tranID
	}
	result.Status = MapStatus(result.Status)
	return &result, nil
}

// Ping 检查网关连通性
func (c *Client) Ping(ctx context.Context) error {
	resp, err := c.http.R().SetContext(ctx).Get("/health")
	if err != nil {
		return fmt.Errorf("payway: ping: %w", err)
	}
	if resp.StatusCode() >= 500 {
		return &APIError{StatusCode: resp.StatusCode(), Message: resp.Status()}
	}
	return nil
}

// MapStatus 将网关状态映射为内部状态，未知状态视为 pending
func MapStatus(status string) string {
	switch strings.ToLower(strings.TrimSpace(status)) {
	case "success", "completed":
		return StatusSuccess
	case "pending", "created":
		return StatusPending
	case "processing":
		return StatusProcessing
	case "failed", "error":
		return StatusFailed
	case "expired", "cancelled":
		return StatusExpired
	default:
		return StatusPending
	}
}

func decodeJSON(resp *resty.Response, v interface{}) error {
	ct := resp.Header().Get("Content-Type")
	if !strings.Contains(strings.ToLower(ct), "json") {
		return fmt.Errorf("%w: status %d, content-type %q", ErrNonJSONResponse, resp.StatusCode(), ct)
	}
	if err := json.Unmarshal(resp.Body(), v); err != nil {
		return fmt.Errorf("payway: decode response: %w", err)
	}
	return nil
}
