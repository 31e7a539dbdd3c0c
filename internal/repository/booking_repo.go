// Package repository 提供数据访问层
package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/chensakkolmlbb2025/royal-elegance/internal/models"
)

// BookingRepository 预订仓储
type BookingRepository struct {
	db *gorm.DB
}

// NewBookingRepository 创建预订仓储
func NewBookingRepository(db *gorm.DB) *BookingRepository {
	return &BookingRepository{db: db}
}

// WithTx 返回绑定到事务的仓储
func (r *BookingRepository) WithTx(tx *gorm.DB) *BookingRepository {
	return &BookingRepository{db: tx}
}

// Create 创建预订
func (r *BookingRepository) Create(ctx context.Context, booking *models.Booking) error {
	return r.db.WithContext(ctx).Create(booking).Error
}

// GetByID 根据 ID 获取预订
func (r *BookingRepository) GetByID(ctx context.Context, id int64) (*models.Booking, error) {
	var booking models.Booking
	err := r.db.WithContext(ctx).First(&booking, id).Error
	if err != nil {
		return nil, err
	}
	return &booking, nil
}

// GetByBookingNo 根据预订号获取预订（包含房间）
func (r *BookingRepository) GetByBookingNo(ctx context.Context, bookingNo string) (*models.Booking, error) {
	var booking models.Booking
	err := r.db.WithContext(ctx).
		Preload("Room").
		Where("booking_no = ?", bookingNo).
		First(&booking).Error
	if err != nil {
		return nil, err
	}
	return &booking, nil
}

// Update 更新预订
func (r *BookingRepository) Update(ctx context.Context, booking *models.Booking) error {
	return r.db.WithContext(ctx).Omit("Room").Save(booking).Error
}

// UpdateFields 更新指定字段
func (r *BookingRepository) UpdateFields(ctx context.Context, id int64, fields map[string]interface{}) error {
	return r.db.WithContext(ctx).Model(&models.Booking{}).Where("id = ?", id).Updates(fields).Error
}

// UpdateStatus 条件更新状态，仅当当前状态为 from 时生效，返回是否更新
func (r *BookingRepository) UpdateStatus(ctx context.Context, id int64, from, to string, fields map[string]interface{}) (bool, error) {
	updates := map[string]interface{}{"status": to}
	for k, v := range fields {
		updates[k] = v
	}
	result := r.db.WithContext(ctx).Model(&models.Booking{}).
		Where("id = ? AND status = ?", id, from).
		Updates(updates)
	return result.RowsAffected > 0, result.Error
}

// List 获取预订列表
func (r *BookingRepository) List(ctx context.Context, offset, limit int, filters map[string]interface{}) ([]*models.Booking, int64, error) {
	var bookings []*models.Booking
	var total int64

	query := r.db.WithContext(ctx).Model(&models.Booking{})

	if userID, ok := filters["user_id"].(string); ok && userID != "" {
		query = query.Where("user_id = ?", userID)
	}
	if roomID, ok := filters["room_id"].(int64); ok && roomID > 0 {
		query = query.Where("room_id = ?", roomID)
	}
	if status, ok := filters["status"].(string); ok && status != "" {
		query = query.Where("status = ?", status)
	}
	if paymentStatus, ok := filters["payment_status"].(string); ok && paymentStatus != "" {
		query = query.Where("payment_status = ?", paymentStatus)
	}
	if bookingNo, ok := filters["booking_no"].(string); ok && bookingNo != "" {
		query = query.Where("booking_no LIKE ?", "%"+bookingNo+"%")
	}
	if startDate, ok := filters["start_date"].(time.Time); ok {
		query = query.Where("check_in >= ?", startDate)
	}
	if endDate, ok := filters["end_date"].(time.Time); ok {
		query = query.Where("check_in <= ?", endDate)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if err := query.
		Preload("Room").
		Order("created_at DESC").
		Offset(offset).Limit(limit).
		Find(&bookings).Error; err != nil {
		return nil, 0, err
	}

	return bookings, total, nil
}

// ListByUser 获取用户的预订列表
func (r *BookingRepository) ListByUser(ctx context.Context, userID string, offset, limit int) ([]*models.Booking, int64, error) {
	return r.List(ctx, offset, limit, map[string]interface{}{"user_id": userID})
}

// ListOverlapping 获取与时段重叠的未取消预订，roomIDs 为空时查询全部房间
func (r *BookingRepository) ListOverlapping(ctx context.Context, roomIDs []int64, checkIn, checkOut time.Time) ([]*models.Booking, error) {
	var bookings []*models.Booking
	query := r.db.WithContext(ctx).
		Where("status <> ?", models.BookingStatusCancelled).
		Where("check_in < ? AND check_out > ?", checkOut, checkIn)
	if len(roomIDs) > 0 {
		query = query.Where("room_id IN ?", roomIDs)
	}
	err := query.Find(&bookings).Error
	return bookings, err
}

// ExistsOverlap 检查房间在指定时段是否已有未取消的预订
func (r *BookingRepository) ExistsOverlap(ctx context.Context, roomID int64, checkIn, checkOut time.Time, excludeID int64) (bool, error) {
	var count int64
	query := r.db.WithContext(ctx).Model(&models.Booking{}).
		Where("room_id = ?", roomID).
		Where("status <> ?", models.BookingStatusCancelled).
		Where("check_in < ? AND check_out > ?", checkOut, checkIn)
	if excludeID > 0 {
		query = query.Where("id <> ?", excludeID)
	}
	err := query.Count(&count).Error
	return count > 0, err
}

// CountByStatus 按状态统计
func (r *BookingRepository) CountByStatus(ctx context.Context) (map[string]int64, error) {
	var rows []struct {
		Status string
		Count  int64
	}
	err := r.db.WithContext(ctx).Model(&models.Booking{}).
		Select("status, COUNT(*) AS count").
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	counts := make(map[string]int64, len(rows))
	for _, row := range rows {
		counts[row.Status] = row.Count
	}
	return counts, nil
}
