package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Payment 支付记录，PaymentNo 即对外的交易号
type Payment struct {
	ID                int64           `gorm:"primaryKey;autoIncrement" json:"id"`
	PaymentNo         string          `gorm:"type:varchar(64);uniqueIndex;not null" json:"payment_no"`
	BookingID         *int64          `gorm:"index" json:"booking_id,omitempty"`
	BookingNo         string          `gorm:"type:varchar(64);index" json:"booking_no"`
	Amount            decimal.Decimal `gorm:"type:decimal(14,2);not null" json:"amount"`
	Currency          string          `gorm:"type:varchar(3);not null" json:"currency"`
	Method            string          `gorm:"type:varchar(20);not null" json:"method"`
	Payload           string          `gorm:"type:text" json:"payload,omitempty"`
	PaymentURL        *string         `gorm:"type:varchar(500)" json:"payment_url,omitempty"`
	Source            string          `gorm:"type:varchar(20);not null;default:local" json:"source"`
	Status            string          `gorm:"type:varchar(20);not null;default:pending;index" json:"status"`
	GatewayStatus     *string         `gorm:"type:varchar(32)" json:"gateway_status,omitempty"`
	BankCode          *string         `gorm:"type:varchar(32)" json:"bank_code,omitempty"`
	CustomerReference *string         `gorm:"type:varchar(64)" json:"customer_reference,omitempty"`
	PaidAt            *time.Time      `json:"paid_at,omitempty"`
	ExpiredAt         *time.Time      `gorm:"index" json:"expired_at,omitempty"`
	CallbackData      JSON            `gorm:"type:text" json:"callback_data,omitempty"`
	ErrorMessage      *string         `gorm:"type:varchar(255)" json:"error_message,omitempty"`
	CreatedAt         time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt         time.Time       `gorm:"autoUpdateTime" json:"updated_at"`

	// 关联
	Booking *Booking `gorm:"foreignKey:BookingID" json:"booking,omitempty"`
}

// TableName 表名
func (Payment) TableName() string {
	return "payments"
}

// IsTerminal 是否已是终态
func (p *Payment) IsTerminal() bool {
	switch p.Status {
	case PaymentStatusSuccess, PaymentStatusFailed, PaymentStatusExpired:
		return true
	}
	return false
}

// PaymentMethod 支付方式
const (
	PaymentMethodKHQR = "khqr" // KHQR 扫码
	PaymentMethodCard = "card" // 银行卡
)

// PaymentSource 二维码来源
const (
	PaymentSourceGateway = "gateway" // 网关下发
	PaymentSourceLocal   = "local"   // 本地生成
	PaymentSourceMock    = "mock"    // 模拟支付
)

// PaymentStatus 支付状态
const (
	PaymentStatusPending    = "pending"
	PaymentStatusProcessing = "processing"
	PaymentStatusSuccess    = "success"
	PaymentStatusFailed     = "failed"
	PaymentStatusExpired    = "expired"
)
