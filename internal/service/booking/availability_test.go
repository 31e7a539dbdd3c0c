// Package booking 房间可用性单元测试
package booking

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/chensakkolmlbb2025/royal-elegance/internal/models"
)

func date(d int) time.Time {
	return time.Date(2030, 6, d, 14, 0, 0, 0, time.UTC)
}

// ==================== IsRoomAvailable 测试 ====================

func TestIsRoomAvailable(t *testing.T) {
	room := &models.Room{ID: 1, Status: models.RoomStatusAvailable}
	bookings := []*models.Booking{
		{ID: 10, RoomID: 1, CheckIn: date(5), CheckOut: date(8), Status: models.BookingStatusConfirmed},
		{ID: 11, RoomID: 1, CheckIn: date(10), CheckOut: date(12), Status: models.BookingStatusCancelled},
		{ID: 12, RoomID: 2, CheckIn: date(1), CheckOut: date(30), Status: models.BookingStatusConfirmed},
	}

	tests := []struct {
		name      string
		in, out   int
		excludeID int64
		want      bool
	}{
		{"无重叠", 1, 5, 0, true},
		{"退房日入住", 8, 9, 0, true},
		{"部分重叠", 7, 9, 0, false},
		{"完全覆盖", 4, 9, 0, false},
		{"已取消预订不占用", 10, 12, 0, true},
		{"排除正在修改的预订", 6, 7, 10, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsRoomAvailable(room, date(tt.in), date(tt.out), bookings, tt.excludeID))
		})
	}

	t.Run("房间状态不可订", func(t *testing.T) {
		for _, status := range []string{models.RoomStatusOccupied, models.RoomStatusMaintenance, models.RoomStatusReserved} {
			r := &models.Room{ID: 1, Status: status}
			assert.False(t, IsRoomAvailable(r, date(1), date(2), nil, 0), status)
		}
	})

	t.Run("空房间", func(t *testing.T) {
		assert.False(t, IsRoomAvailable(nil, date(1), date(2), nil, 0))
	})
}

func TestGetAvailableRooms(t *testing.T) {
	rooms := []*models.Room{
		{ID: 1, RoomTypeID: 1, Status: models.RoomStatusAvailable},
		{ID: 2, RoomTypeID: 1, Status: models.RoomStatusAvailable},
		{ID: 3, RoomTypeID: 2, Status: models.RoomStatusAvailable},
		{ID: 4, RoomTypeID: 2, Status: models.RoomStatusMaintenance},
	}
	bookings := []*models.Booking{
		{ID: 1, RoomID: 1, CheckIn: date(1), CheckOut: date(3), Status: models.BookingStatusPending},
	}

	all := GetAvailableRooms(rooms, date(2), date(4), bookings, 0)
	assert.Equal(t, []int64{2, 3}, roomIDs(all))

	typed := GetAvailableRooms(rooms, date(2), date(4), bookings, 2)
	assert.Equal(t, []int64{3}, roomIDs(typed))

	assert.Empty(t, GetAvailableRooms(nil, date(2), date(4), bookings, 0))
}

func roomIDs(rooms []*models.Room) []int64 {
	ids := make([]int64, 0, len(rooms))
	for _, r := range rooms {
		ids = append(ids, r.ID)
	}
	return ids
}

// ==================== 价格计算测试 ====================

func TestCalculateNights(t *testing.T) {
	assert.Equal(t, 3, CalculateNights(date(1), date(4)))
	assert.Equal(t, 3, CalculateNights(date(4), date(1)), "顺序颠倒取绝对值")
	assert.Equal(t, 1, CalculateNights(date(1), date(1).Add(2*time.Hour)), "不足一天按一晚")
	assert.Equal(t, 0, CalculateNights(date(1), date(1)))
}

func TestCalculateTotalPrice(t *testing.T) {
	base := decimal.RequireFromString("120.50")
	services := []decimal.Decimal{decimal.NewFromInt(15), decimal.RequireFromString("4.25")}

	total := CalculateTotalPrice(base, 3, services)
	assert.Equal(t, "380.75", total.StringFixed(2))

	assert.True(t, CalculateTotalPrice(base, 2, nil).Equal(decimal.RequireFromString("241")))
}

// ==================== 状态流转测试 ====================

func TestAvailableStatusTransitions(t *testing.T) {
	tests := map[string][]string{
		models.BookingStatusPending:    {"confirmed", "cancelled"},
		models.BookingStatusConfirmed:  {"checked_in", "cancelled", "no_show"},
		models.BookingStatusCheckedIn:  {"checked_out", "cancelled"},
		models.BookingStatusCheckedOut: {"confirmed"},
		models.BookingStatusCancelled:  {"confirmed", "pending"},
		models.BookingStatusNoShow:     {"confirmed", "cancelled"},
	}
	for status, want := range tests {
		t.Run(status, func(t *testing.T) {
			assert.Equal(t, want, AvailableStatusTransitions(status))
		})
	}

	assert.Empty(t, AvailableStatusTransitions("unknown"))
}

func TestAvailableStatusTransitions_ReturnsCopy(t *testing.T) {
	got := AvailableStatusTransitions(models.BookingStatusPending)
	got[0] = "mutated"
	assert.Equal(t, models.BookingStatusConfirmed, AvailableStatusTransitions(models.BookingStatusPending)[0])
}

func TestCanTransition(t *testing.T) {
	assert.True(t, CanTransition(models.BookingStatusPending, models.BookingStatusConfirmed))
	assert.False(t, CanTransition(models.BookingStatusPending, models.BookingStatusCheckedIn))
	assert.False(t, CanTransition(models.BookingStatusCheckedOut, models.BookingStatusCancelled))
	assert.False(t, CanTransition("unknown", models.BookingStatusConfirmed))
}

func TestStatusName(t *testing.T) {
	assert.Equal(t, "已确认", StatusName(models.BookingStatusConfirmed))
	assert.Equal(t, "未知", StatusName("x"))
}
