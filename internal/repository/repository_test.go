// Package repository 仓储单元测试
package repository

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/chensakkolmlbb2025/royal-elegance/internal/models"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(models.AllModels()...))
	return db
}

func createTestRoom(t *testing.T, db *gorm.DB, roomNo, status string) *models.Room {
	t.Helper()
	roomType := &models.RoomType{Name: "Deluxe " + roomNo, Slug: "deluxe-" + roomNo, BasePrice: decimal.NewFromInt(120), MaxOccupancy: 2}
	require.NoError(t, db.Create(roomType).Error)

	room := &models.Room{RoomNo: roomNo, RoomTypeID: roomType.ID, Floor: 1, BasePrice: decimal.NewFromInt(120), Status: status}
	require.NoError(t, db.Create(room).Error)
	return room
}

func day(d int) time.Time {
	return time.Date(2025, 3, d, 14, 0, 0, 0, time.UTC)
}

func createTestBooking(t *testing.T, db *gorm.DB, bookingNo string, roomID int64, in, out time.Time, status string) *models.Booking {
	t.Helper()
	booking := &models.Booking{
		BookingNo:     bookingNo,
		UserID:        "user-1",
		RoomID:        roomID,
		GuestName:     "Sok Dara",
		Guests:        2,
		CheckIn:       in,
		CheckOut:      out,
		Nights:        int(out.Sub(in).Hours() / 24),
		RoomPrice:     decimal.NewFromInt(240),
		TotalAmount:   decimal.NewFromInt(240),
		Currency:      "USD",
		Status:        status,
		PaymentStatus: models.BookingPaymentPending,
	}
	require.NoError(t, NewBookingRepository(db).Create(context.Background(), booking))
	return booking
}
