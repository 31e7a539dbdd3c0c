package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/chensakkolmlbb2025/royal-elegance/internal/models"
)

// RoomRepository 房间仓储
type RoomRepository struct {
	db *gorm.DB
}

// NewRoomRepository 创建房间仓储
func NewRoomRepository(db *gorm.DB) *RoomRepository {
	return &RoomRepository{db: db}
}

// Create 创建房间
func (r *RoomRepository) Create(ctx context.Context, room *models.Room) error {
	return r.db.WithContext(ctx).Create(room).Error
}

// CreateType 创建房型
func (r *RoomRepository) CreateType(ctx context.Context, roomType *models.RoomType) error {
	return r.db.WithContext(ctx).Create(roomType).Error
}

// GetByID 根据 ID 获取房间
func (r *RoomRepository) GetByID(ctx context.Context, id int64) (*models.Room, error) {
	var room models.Room
	err := r.db.WithContext(ctx).Preload("RoomType").First(&room, id).Error
	if err != nil {
		return nil, err
	}
	return &room, nil
}

// GetByRoomNo 根据房号获取房间
func (r *RoomRepository) GetByRoomNo(ctx context.Context, roomNo string) (*models.Room, error) {
	var room models.Room
	err := r.db.WithContext(ctx).Where("room_no = ?", roomNo).First(&room).Error
	if err != nil {
		return nil, err
	}
	return &room, nil
}

// UpdateStatus 更新房间状态
func (r *RoomRepository) UpdateStatus(ctx context.Context, id int64, status string) error {
	return r.db.WithContext(ctx).Model(&models.Room{}).Where("id = ?", id).Update("status", status).Error
}

// List 获取房间列表，roomTypeID 为 0 时不过滤
func (r *RoomRepository) List(ctx context.Context, roomTypeID int64, status string) ([]*models.Room, error) {
	var rooms []*models.Room
	query := r.db.WithContext(ctx).Preload("RoomType")
	if roomTypeID > 0 {
		query = query.Where("room_type_id = ?", roomTypeID)
	}
	if status != "" {
		query = query.Where("status = ?", status)
	}
	err := query.Order("room_no ASC").Find(&rooms).Error
	return rooms, err
}
