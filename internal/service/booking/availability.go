// Package booking 提供房间可用性计算与预订服务
package booking

import (
	"math"
	"time"

	"github.com/shopspring/decimal"

	"github.com/chensakkolmlbb2025/royal-elegance/internal/models"
)

// IsRoomAvailable 房间在 [checkIn, checkOut) 内是否可订
// 房间必须为 available；同房间未取消且非 excludeID 的预订与时段重叠即不可订
func IsRoomAvailable(room *models.Room, checkIn, checkOut time.Time, bookings []*models.Booking, excludeID int64) bool {
	if room == nil || room.Status != models.RoomStatusAvailable {
		return false
	}

	for _, b := range bookings {
		if b.RoomID != room.ID || b.Status == models.BookingStatusCancelled {
			continue
		}
		if excludeID > 0 && b.ID == excludeID {
			continue
		}
		if checkIn.Before(b.CheckOut) && checkOut.After(b.CheckIn) {
			return false
		}
	}
	return true
}

// GetAvailableRooms 过滤出可订房间，roomTypeID 为 0 时不限房型
func GetAvailableRooms(rooms []*models.Room, checkIn, checkOut time.Time, bookings []*models.Booking, roomTypeID int64) []*models.Room {
	available := make([]*models.Room, 0, len(rooms))
	for _, room := range rooms {
		if roomTypeID > 0 && room.RoomTypeID != roomTypeID {
			continue
		}
		if IsRoomAvailable(room, checkIn, checkOut, bookings, 0) {
			available = append(available, room)
		}
	}
	return available
}

// CalculateNights 入住晚数，不足一天按一晚计
func CalculateNights(checkIn, checkOut time.Time) int {
	diff := checkOut.Sub(checkIn)
	if diff < 0 {
		diff = -diff
	}
	return int(math.Ceil(diff.Hours() / 24))
}

// CalculateTotalPrice 房费加附加服务费
func CalculateTotalPrice(basePrice decimal.Decimal, nights int, services []decimal.Decimal) decimal.Decimal {
	total := basePrice.Mul(decimal.NewFromInt(int64(nights)))
	for _, price := range services {
		total = total.Add(price)
	}
	return total
}

var statusTransitions = map[string][]string{
	models.BookingStatusPending:    {models.BookingStatusConfirmed, models.BookingStatusCancelled},
	models.BookingStatusConfirmed:  {models.BookingStatusCheckedIn, models.BookingStatusCancelled, models.BookingStatusNoShow},
	models.BookingStatusCheckedIn:  {models.BookingStatusCheckedOut, models.BookingStatusCancelled},
	models.BookingStatusCheckedOut: {models.BookingStatusConfirmed},
	models.BookingStatusCancelled:  {models.BookingStatusConfirmed, models.BookingStatusPending},
	models.BookingStatusNoShow:     {models.BookingStatusConfirmed, models.BookingStatusCancelled},
}

// AvailableStatusTransitions 当前状态允许流转到的状态，未知状态返回空
func AvailableStatusTransitions(status string) []string {
	next := statusTransitions[status]
	out := make([]string, len(next))
	copy(out, next)
	return out
}

// CanTransition 是否允许 from → to
func CanTransition(from, to string) bool {
	for _, s := range statusTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// StatusName 状态中文名
func StatusName(status string) string {
	switch status {
	case models.BookingStatusPending:
		return "待确认"
	case models.BookingStatusConfirmed:
		return "已确认"
	case models.BookingStatusCheckedIn:
		return "已入住"
	case models.BookingStatusCheckedOut:
		return "已退房"
	case models.BookingStatusCancelled:
		return "已取消"
	case models.BookingStatusNoShow:
		return "未到店"
	default:
		return "未知"
	}
}
