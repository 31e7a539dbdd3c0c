package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// RoomType 房型
type RoomType struct {
	ID           int64           `gorm:"primaryKey;autoIncrement" json:"id"`
	Name         string          `gorm:"type:varchar(100);not null" json:"name"`
	Slug         string          `gorm:"type:varchar(100);uniqueIndex;not null" json:"slug"`
	Description  *string         `gorm:"type:text" json:"description,omitempty"`
	BasePrice    decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"base_price"`
	MaxOccupancy int             `gorm:"not null;default:2" json:"max_occupancy"`
	CreatedAt    time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

// TableName 表名
func (RoomType) TableName() string {
	return "room_types"
}

// Room 房间
type Room struct {
	ID         int64           `gorm:"primaryKey;autoIncrement" json:"id"`
	RoomNo     string          `gorm:"type:varchar(20);uniqueIndex;not null" json:"room_no"`
	RoomTypeID int64           `gorm:"index;not null" json:"room_type_id"`
	Floor      int             `gorm:"not null;default:1" json:"floor"`
	BasePrice  decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"base_price"`
	Status     string          `gorm:"type:varchar(20);not null;default:available;index" json:"status"`
	CreatedAt  time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt  time.Time       `gorm:"autoUpdateTime" json:"updated_at"`

	// 关联
	RoomType *RoomType `gorm:"foreignKey:RoomTypeID" json:"room_type,omitempty"`
}

// TableName 表名
func (Room) TableName() string {
	return "rooms"
}

// RoomStatus 房间状态
const (
	RoomStatusAvailable   = "available"   // 可预订
	RoomStatusOccupied    = "occupied"    // 入住中
	RoomStatusMaintenance = "maintenance" // 维修
	RoomStatusReserved    = "reserved"    // 保留
)

// Booking 预订
type Booking struct {
	ID               int64           `gorm:"primaryKey;autoIncrement" json:"id"`
	BookingNo        string          `gorm:"type:varchar(64);uniqueIndex;not null" json:"booking_no"`
	UserID           string          `gorm:"type:varchar(64);index;not null" json:"user_id"`
	RoomID           int64           `gorm:"index;not null" json:"room_id"`
	GuestName        string          `gorm:"type:varchar(100);not null" json:"guest_name"`
	GuestEmail       *string         `gorm:"type:varchar(100)" json:"guest_email,omitempty"`
	GuestPhone       *string         `gorm:"type:varchar(20)" json:"guest_phone,omitempty"`
	Guests           int             `gorm:"not null;default:1" json:"guests"`
	CheckIn          time.Time       `gorm:"not null;index" json:"check_in"`
	CheckOut         time.Time       `gorm:"not null;index" json:"check_out"`
	Nights           int             `gorm:"not null" json:"nights"`
	RoomPrice        decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"room_price"`
	ServicesPrice    decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0" json:"services_price"`
	TotalAmount      decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"total_amount"`
	Currency         string          `gorm:"type:varchar(3);not null;default:USD" json:"currency"`
	Status           string          `gorm:"type:varchar(20);not null;default:pending;index" json:"status"`
	PaymentStatus    string          `gorm:"type:varchar(20);not null;default:pending" json:"payment_status"`
	PaymentMethod    *string         `gorm:"type:varchar(20)" json:"payment_method,omitempty"`
	PaymentReference *string         `gorm:"type:varchar(64)" json:"payment_reference,omitempty"`
	SpecialRequests  *string         `gorm:"type:varchar(500)" json:"special_requests,omitempty"`
	PaidAt           *time.Time      `json:"paid_at,omitempty"`
	CheckedInAt      *time.Time      `json:"checked_in_at,omitempty"`
	CheckedOutAt     *time.Time      `json:"checked_out_at,omitempty"`
	CancelledAt      *time.Time      `json:"cancelled_at,omitempty"`
	CancelReason     *string         `gorm:"type:varchar(255)" json:"cancel_reason,omitempty"`
	CreatedAt        time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt        time.Time       `gorm:"autoUpdateTime" json:"updated_at"`

	// 关联
	Room *Room `gorm:"foreignKey:RoomID" json:"room,omitempty"`
}

// TableName 表名
func (Booking) TableName() string {
	return "bookings"
}

// BookingStatus 预订状态
const (
	BookingStatusPending    = "pending"     // 待确认
	BookingStatusConfirmed  = "confirmed"   // 已确认
	BookingStatusCheckedIn  = "checked_in"  // 已入住
	BookingStatusCheckedOut = "checked_out" // 已退房
	BookingStatusCancelled  = "cancelled"   // 已取消
	BookingStatusNoShow     = "no_show"     // 未到店
)

// BookingPaymentStatus 预订付款状态
const (
	BookingPaymentPending  = "pending"
	BookingPaymentPaid     = "paid"
	BookingPaymentRefunded = "refunded"
	BookingPaymentPartial  = "partial"
	BookingPaymentFailed   = "failed"
)
