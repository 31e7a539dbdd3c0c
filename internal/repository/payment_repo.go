package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/chensakkolmlbb2025/royal-elegance/internal/models"
)

// PaymentRepository 支付仓储
type PaymentRepository struct {
	db *gorm.DB
}

// NewPaymentRepository 创建支付仓储
func NewPaymentRepository(db *gorm.DB) *PaymentRepository {
	return &PaymentRepository{db: db}
}

// WithTx 返回绑定到事务的仓储
func (r *PaymentRepository) WithTx(tx *gorm.DB) *PaymentRepository {
	return &PaymentRepository{db: tx}
}

// Create 创建支付记录
func (r *PaymentRepository) Create(ctx context.Context, payment *models.Payment) error {
	return r.db.WithContext(ctx).Create(payment).Error
}

// GetByID 根据 ID 获取支付记录
func (r *PaymentRepository) GetByID(ctx context.Context, id int64) (*models.Payment, error) {
	var payment models.Payment
	err := r.db.WithContext(ctx).First(&payment, id).Error
	if err != nil {
		return nil, err
	}
	return &payment, nil
}

// GetByPaymentNo 根据交易号获取
func (r *PaymentRepository) GetByPaymentNo(ctx context.Context, paymentNo string) (*models.Payment, error) {
	var payment models.Payment
	err := r.db.WithContext(ctx).Where("payment_no = ?", paymentNo).First(&payment).Error
	if err != nil {
		return nil, err
	}
	return &payment, nil
}

// GetByPaymentNoForUpdate 事务内加行锁读取，sqlite 忽略锁子句
func (r *PaymentRepository) GetByPaymentNoForUpdate(ctx context.Context, paymentNo string) (*models.Payment, error) {
	var payment models.Payment
	query := r.db.WithContext(ctx)
	if r.db.Dialector.Name() == "postgres" {
		query = query.Clauses(lockingClause())
	}
	err := query.Where("payment_no = ?", paymentNo).First(&payment).Error
	if err != nil {
		return nil, err
	}
	return &payment, nil
}

// GetLatestByBooking 获取预订最近一次支付
func (r *PaymentRepository) GetLatestByBooking(ctx context.Context, bookingNo string) (*models.Payment, error) {
	var payment models.Payment
	err := r.db.WithContext(ctx).
		Where("booking_no = ?", bookingNo).
		Order("created_at DESC").
		First(&payment).Error
	if err != nil {
		return nil, err
	}
	return &payment, nil
}

// Update 更新支付记录
func (r *PaymentRepository) Update(ctx context.Context, payment *models.Payment) error {
	return r.db.WithContext(ctx).Omit("Booking").Save(payment).Error
}

// UpdateFields 更新指定字段
func (r *PaymentRepository) UpdateFields(ctx context.Context, id int64, fields map[string]interface{}) error {
	return r.db.WithContext(ctx).Model(&models.Payment{}).Where("id = ?", id).Updates(fields).Error
}

// List 获取支付列表
func (r *PaymentRepository) List(ctx context.Context, offset, limit int, filters map[string]interface{}) ([]*models.Payment, int64, error) {
	var payments []*models.Payment
	var total int64

	query := r.db.WithContext(ctx).Model(&models.Payment{})

	if bookingNo, ok := filters["booking_no"].(string); ok && bookingNo != "" {
		query = query.Where("booking_no = ?", bookingNo)
	}
	if status, ok := filters["status"].(string); ok && status != "" {
		query = query.Where("status = ?", status)
	}
	if method, ok := filters["method"].(string); ok && method != "" {
		query = query.Where("method = ?", method)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	if err := query.Order("created_at DESC").Offset(offset).Limit(limit).Find(&payments).Error; err != nil {
		return nil, 0, err
	}
	return payments, total, nil
}

// ListExpiredPending 获取已过期仍未完成的支付
func (r *PaymentRepository) ListExpiredPending(ctx context.Context, now time.Time, limit int) ([]*models.Payment, error) {
	var payments []*models.Payment
	err := r.db.WithContext(ctx).
		Where("status IN ?", []string{models.PaymentStatusPending, models.PaymentStatusProcessing}).
		Where("expired_at IS NOT NULL AND expired_at < ?", now).
		Order("expired_at ASC").
		Limit(limit).
		Find(&payments).Error
	return payments, err
}

// MarkExpired 仅将未完成的支付标记为过期，返回是否更新
func (r *PaymentRepository) MarkExpired(ctx context.Context, id int64) (bool, error) {
	result := r.db.WithContext(ctx).Model(&models.Payment{}).
		Where("id = ?", id).
		Where("status IN ?", []string{models.PaymentStatusPending, models.PaymentStatusProcessing}).
		Update("status", models.PaymentStatusExpired)
	return result.RowsAffected > 0, result.Error
}
