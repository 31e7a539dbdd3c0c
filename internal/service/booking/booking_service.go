package booking

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/chensakkolmlbb2025/royal-elegance/internal/common/errors"
	"github.com/chensakkolmlbb2025/royal-elegance/internal/common/events"
	"github.com/chensakkolmlbb2025/royal-elegance/internal/common/logger"
	"github.com/chensakkolmlbb2025/royal-elegance/internal/common/utils"
	"github.com/chensakkolmlbb2025/royal-elegance/internal/models"
	"github.com/chensakkolmlbb2025/royal-elegance/internal/repository"
)

const roomLockTTL = 10 * time.Second

// Locker 分布式锁，nil 时仅依赖事务内的冲突检查
type Locker interface {
	TryLock(ctx context.Context, name string, ttl time.Duration) (bool, error)
	Unlock(ctx context.Context, name string) error
}

// BookingService 预订服务
type BookingService struct {
	db              *gorm.DB
	bookingRepo     *repository.BookingRepository
	roomRepo        *repository.RoomRepository
	locker          Locker
	publisher       events.Publisher
	defaultCurrency string
	now             func() time.Time
}

// NewBookingService 创建预订服务
func NewBookingService(
	db *gorm.DB,
	bookingRepo *repository.BookingRepository,
	roomRepo *repository.RoomRepository,
	locker Locker,
	publisher events.Publisher,
	defaultCurrency string,
) *BookingService {
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	if defaultCurrency == "" {
		defaultCurrency = "USD"
	}
	return &BookingService{
		db:              db,
		bookingRepo:     bookingRepo,
		roomRepo:        roomRepo,
		locker:          locker,
		publisher:       publisher,
		defaultCurrency: defaultCurrency,
		now:             time.Now,
	}
}

// ServiceCharge 附加服务
type ServiceCharge struct {
	Name  string          `json:"name" binding:"required"`
	Price decimal.Decimal `json:"price"`
}

// CreateBookingRequest 创建预订请求
type CreateBookingRequest struct {
	RoomID          int64           `json:"room_id" binding:"required"`
	CheckIn         time.Time       `json:"check_in" binding:"required"`
	CheckOut        time.Time       `json:"check_out" binding:"required"`
	Guests          int             `json:"guests" binding:"required,min=1"`
	GuestName       string          `json:"guest_name" binding:"required,max=100"`
	GuestEmail      string          `json:"guest_email" binding:"omitempty,email"`
	GuestPhone      string          `json:"guest_phone" binding:"omitempty,max=20"`
	Services        []ServiceCharge `json:"services"`
	SpecialRequests string          `json:"special_requests" binding:"omitempty,max=500"`
}

// RoomInfo 房间信息
type RoomInfo struct {
	ID           int64           `json:"id"`
	RoomNo       string          `json:"room_no"`
	RoomTypeID   int64           `json:"room_type_id"`
	RoomTypeName string          `json:"room_type_name,omitempty"`
	Floor        int             `json:"floor"`
	BasePrice    decimal.Decimal `json:"base_price"`
	Status       string          `json:"status"`
}

// BookingInfo 预订信息
type BookingInfo struct {
	ID               int64           `json:"id"`
	BookingNo        string          `json:"booking_no"`
	Status           string          `json:"status"`
	StatusName       string          `json:"status_name"`
	PaymentStatus    string          `json:"payment_status"`
	PaymentMethod    string          `json:"payment_method,omitempty"`
	PaymentReference string          `json:"payment_reference,omitempty"`
	Room             *RoomInfo       `json:"room,omitempty"`
	GuestName        string          `json:"guest_name"`
	Guests           int             `json:"guests"`
	CheckIn          time.Time       `json:"check_in"`
	CheckOut         time.Time       `json:"check_out"`
	Nights           int             `json:"nights"`
	RoomPrice        decimal.Decimal `json:"room_price"`
	ServicesPrice    decimal.Decimal `json:"services_price"`
	TotalAmount      decimal.Decimal `json:"total_amount"`
	Currency         string          `json:"currency"`
	Transitions      []string        `json:"transitions"`
	PaidAt           *time.Time      `json:"paid_at,omitempty"`
	CreatedAt        time.Time       `json:"created_at"`
}

// CreateBooking 创建预订
func (s *BookingService) CreateBooking(ctx context.Context, userID string, req *CreateBookingRequest) (*BookingInfo, error) {
	if !req.CheckOut.After(req.CheckIn) {
		return nil, errors.ErrTimeSlotInvalid.WithMessage("退房时间必须晚于入住时间")
	}
	today := s.now().UTC().Truncate(24 * time.Hour)
	if req.CheckIn.Before(today) {
		return nil, errors.ErrTimeSlotInvalid.WithMessage("入住日期不能早于今天")
	}
	for _, svc := range req.Services {
		if svc.Price.IsNegative() {
			return nil, errors.ErrInvalidParams.WithMessage("服务价格不能为负数")
		}
	}

	room, err := s.roomRepo.GetByID(ctx, req.RoomID)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, errors.ErrRoomNotFound
		}
		return nil, errors.ErrDatabaseError.WithError(err)
	}
	if room.RoomType != nil && room.RoomType.MaxOccupancy > 0 && req.Guests > room.RoomType.MaxOccupancy {
		return nil, errors.ErrInvalidParams.WithMessage(fmt.Sprintf("该房型最多入住 %d 人", room.RoomType.MaxOccupancy))
	}

	unlock, err := s.lockRoom(ctx, room.ID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	nights := CalculateNights(req.CheckIn, req.CheckOut)
	servicePrices := make([]decimal.Decimal, 0, len(req.Services))
	servicesTotal := decimal.Zero
	for _, svc := range req.Services {
		servicePrices = append(servicePrices, svc.Price)
		servicesTotal = servicesTotal.Add(svc.Price)
	}

	booking := &models.Booking{
		BookingNo:     utils.GenerateBookingNo(),
		UserID:        userID,
		RoomID:        room.ID,
		GuestName:     req.GuestName,
		Guests:        req.Guests,
		CheckIn:       req.CheckIn.UTC(),
		CheckOut:      req.CheckOut.UTC(),
		Nights:        nights,
		RoomPrice:     room.BasePrice.Mul(decimal.NewFromInt(int64(nights))),
		ServicesPrice: servicesTotal,
		TotalAmount:   CalculateTotalPrice(room.BasePrice, nights, servicePrices),
		Currency:      s.defaultCurrency,
		Status:        models.BookingStatusPending,
		PaymentStatus: models.BookingPaymentPending,
	}
	if req.GuestEmail != "" {
		booking.GuestEmail = utils.StringPtr(req.GuestEmail)
	}
	if req.GuestPhone != "" {
		booking.GuestPhone = utils.StringPtr(req.GuestPhone)
	}
	if req.SpecialRequests != "" {
		booking.SpecialRequests = utils.StringPtr(req.SpecialRequests)
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := s.bookingRepo.WithTx(tx)

		// 事务内基于最新数据再判断一次
		existing, err := repo.ListOverlapping(ctx, []int64{room.ID}, booking.CheckIn, booking.CheckOut)
		if err != nil {
			return errors.ErrDatabaseError.WithError(err)
		}
		if !IsRoomAvailable(room, booking.CheckIn, booking.CheckOut, existing, 0) {
			if room.Status != models.RoomStatusAvailable {
				return errors.ErrRoomNotAvailable
			}
			return errors.ErrBookingConflict
		}

		if err := repo.Create(ctx, booking); err != nil {
			return errors.ErrDatabaseError.WithError(err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Info("booking created",
		logger.BookingNo(booking.BookingNo),
		zap.Int64("room_id", room.ID),
		zap.Int("nights", nights),
		zap.String("total", booking.TotalAmount.StringFixed(2)),
	)

	booking.Room = room
	return convertBookingInfo(booking), nil
}

// GetBooking 获取预订，userID 为空表示工作人员查询
func (s *BookingService) GetBooking(ctx context.Context, bookingNo, userID string) (*BookingInfo, error) {
	booking, err := s.getByNo(ctx, bookingNo)
	if err != nil {
		return nil, err
	}
	if userID != "" && booking.UserID != userID {
		return nil, errors.ErrPermissionDenied
	}
	return convertBookingInfo(booking), nil
}

// GetBookingModel 获取预订原始记录
func (s *BookingService) GetBookingModel(ctx context.Context, bookingNo string) (*models.Booking, error) {
	return s.getByNo(ctx, bookingNo)
}

// ListUserBookings 获取用户预订列表
func (s *BookingService) ListUserBookings(ctx context.Context, userID string, p utils.Pagination) ([]*BookingInfo, int64, error) {
	p.Normalize()
	bookings, total, err := s.bookingRepo.ListByUser(ctx, userID, p.GetOffset(), p.GetLimit())
	if err != nil {
		return nil, 0, errors.ErrDatabaseError.WithError(err)
	}

	result := make([]*BookingInfo, 0, len(bookings))
	for _, b := range bookings {
		result = append(result, convertBookingInfo(b))
	}
	return result, total, nil
}

// ListAvailableRooms 查询时段内可订房间
func (s *BookingService) ListAvailableRooms(ctx context.Context, checkIn, checkOut time.Time, roomTypeID int64) ([]*RoomInfo, error) {
	if !checkOut.After(checkIn) {
		return nil, errors.ErrTimeSlotInvalid.WithMessage("退房时间必须晚于入住时间")
	}

	rooms, err := s.roomRepo.List(ctx, roomTypeID, models.RoomStatusAvailable)
	if err != nil {
		return nil, errors.ErrDatabaseError.WithError(err)
	}
	if len(rooms) == 0 {
		return []*RoomInfo{}, nil
	}

	ids := make([]int64, 0, len(rooms))
	for _, r := range rooms {
		ids = append(ids, r.ID)
	}
	bookings, err := s.bookingRepo.ListOverlapping(ctx, ids, checkIn.UTC(), checkOut.UTC())
	if err != nil {
		return nil, errors.ErrDatabaseError.WithError(err)
	}

	available := GetAvailableRooms(rooms, checkIn.UTC(), checkOut.UTC(), bookings, roomTypeID)
	result := make([]*RoomInfo, 0, len(available))
	for _, r := range available {
		result = append(result, convertRoomInfo(r))
	}
	return result, nil
}

// GetTransitions 获取预订当前可流转的状态
func (s *BookingService) GetTransitions(ctx context.Context, bookingNo string) ([]string, error) {
	booking, err := s.getByNo(ctx, bookingNo)
	if err != nil {
		return nil, err
	}
	return AvailableStatusTransitions(booking.Status), nil
}

// UpdateStatusRequest 更新预订状态请求
type UpdateStatusRequest struct {
	Status string `json:"status" binding:"required"`
	Reason string `json:"reason" binding:"omitempty,max=255"`
}

// UpdateStatus 工作人员流转预订状态，拒绝不在流转表中的变更
func (s *BookingService) UpdateStatus(ctx context.Context, bookingNo, operator string, req *UpdateStatusRequest) (*BookingInfo, error) {
	booking, err := s.getByNo(ctx, bookingNo)
	if err != nil {
		return nil, err
	}

	from := booking.Status
	if !CanTransition(from, req.Status) {
		return nil, errors.ErrBookingStatusError.WithMessage(
			fmt.Sprintf("预订状态不能从 %s 变更为 %s", StatusName(from), StatusName(req.Status)))
	}

	reactivate := from == models.BookingStatusCancelled && req.Status != models.BookingStatusCancelled
	if reactivate {
		unlock, err := s.lockRoom(ctx, booking.RoomID)
		if err != nil {
			return nil, err
		}
		defer unlock()
	}

	now := s.now()
	fields := map[string]interface{}{}
	switch req.Status {
	case models.BookingStatusCheckedIn:
		fields["checked_in_at"] = now
	case models.BookingStatusCheckedOut:
		fields["checked_out_at"] = now
	case models.BookingStatusCancelled:
		fields["cancelled_at"] = now
		if req.Reason != "" {
			fields["cancel_reason"] = req.Reason
		}
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := s.bookingRepo.WithTx(tx)

		// 已取消的预订不占房，恢复前需确认时段没有被其他预订占用
		if reactivate {
			taken, err := repo.ExistsOverlap(ctx, booking.RoomID, booking.CheckIn, booking.CheckOut, booking.ID)
			if err != nil {
				return errors.ErrDatabaseError.WithError(err)
			}
			if taken {
				return errors.ErrBookingConflict.WithMessage("该时段房间已被其他预订占用，无法恢复")
			}
		}

		ok, err := repo.UpdateStatus(ctx, booking.ID, from, req.Status, fields)
		if err != nil {
			return errors.ErrDatabaseError.WithError(err)
		}
		if !ok {
			return errors.ErrBookingStatusError.WithMessage("预订状态已被修改，请刷新后重试")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Info("booking status changed",
		logger.BookingNo(bookingNo),
		zap.String("from", from),
		zap.String("to", req.Status),
		zap.String("operator", operator),
	)
	s.publishStatusChanged(ctx, bookingNo, from, req.Status, operator)

	return s.GetBooking(ctx, bookingNo, "")
}

// lockRoom 获取房间预订锁，锁服务不可用时降级为只依赖事务内检查
func (s *BookingService) lockRoom(ctx context.Context, roomID int64) (func(), error) {
	if s.locker == nil {
		return func() {}, nil
	}
	lockName := "room:" + strconv.FormatInt(roomID, 10)
	ok, err := s.locker.TryLock(ctx, lockName, roomLockTTL)
	if err != nil {
		logger.Warn("room lock unavailable", zap.Int64("room_id", roomID), zap.Error(err))
		return func() {}, nil
	}
	if !ok {
		return nil, errors.ErrBookingConflict.WithMessage("房间正在被其他用户预订，请稍后重试")
	}
	return func() { _ = s.locker.Unlock(context.WithoutCancel(ctx), lockName) }, nil
}

// PaymentResult 支付结果
type PaymentResult struct {
	Method    string
	Reference string
	PaidAt    time.Time
}

// MarkPaid 标记预订已支付；待确认的预订同时变为已确认
// tx 不为 nil 时在调用方事务内执行，返回状态是否发生变化
func (s *BookingService) MarkPaid(ctx context.Context, tx *gorm.DB, bookingNo string, result PaymentResult) (bool, error) {
	repo := s.bookingRepo
	if tx != nil {
		repo = repo.WithTx(tx)
	}

	booking, err := repo.GetByBookingNo(ctx, bookingNo)
	if err != nil {
		if repository.IsNotFound(err) {
			return false, errors.ErrBookingNotFound
		}
		return false, errors.ErrDatabaseError.WithError(err)
	}
	if booking.PaymentStatus == models.BookingPaymentPaid {
		return false, nil
	}

	fields := map[string]interface{}{
		"payment_status":    models.BookingPaymentPaid,
		"payment_method":    result.Method,
		"payment_reference": result.Reference,
		"paid_at":           result.PaidAt,
	}
	if booking.Status == models.BookingStatusPending {
		fields["status"] = models.BookingStatusConfirmed
	}
	if err := repo.UpdateFields(ctx, booking.ID, fields); err != nil {
		return false, errors.ErrDatabaseError.WithError(err)
	}

	if booking.Status == models.BookingStatusPending {
		s.publishStatusChanged(ctx, bookingNo, booking.Status, models.BookingStatusConfirmed, "payment")
	}
	return true, nil
}

// MarkPaymentFailed 标记预订付款失败，已支付的预订不受影响
func (s *BookingService) MarkPaymentFailed(ctx context.Context, tx *gorm.DB, bookingNo, reference string) error {
	repo := s.bookingRepo
	if tx != nil {
		repo = repo.WithTx(tx)
	}

	booking, err := repo.GetByBookingNo(ctx, bookingNo)
	if err != nil {
		if repository.IsNotFound(err) {
			return errors.ErrBookingNotFound
		}
		return errors.ErrDatabaseError.WithError(err)
	}
	if booking.PaymentStatus == models.BookingPaymentPaid {
		return nil
	}
	return repo.UpdateFields(ctx, booking.ID, map[string]interface{}{
		"payment_status":    models.BookingPaymentFailed,
		"payment_reference": reference,
	})
}

func (s *BookingService) getByNo(ctx context.Context, bookingNo string) (*models.Booking, error) {
	booking, err := s.bookingRepo.GetByBookingNo(ctx, bookingNo)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, errors.ErrBookingNotFound
		}
		return nil, errors.ErrDatabaseError.WithError(err)
	}
	return booking, nil
}

func (s *BookingService) publishStatusChanged(ctx context.Context, bookingNo, from, to, operator string) {
	event := events.NewEvent(events.TypeBookingStatusChanged, events.BookingStatusEvent{
		BookingNo: bookingNo,
		From:      from,
		To:        to,
		Operator:  operator,
	})
	if err := s.publisher.Publish(ctx, event); err != nil {
		logger.Warn("publish booking event failed", logger.BookingNo(bookingNo), zap.Error(err))
	}
}

func convertRoomInfo(room *models.Room) *RoomInfo {
	info := &RoomInfo{
		ID:         room.ID,
		RoomNo:     room.RoomNo,
		RoomTypeID: room.RoomTypeID,
		Floor:      room.Floor,
		BasePrice:  room.BasePrice,
		Status:     room.Status,
	}
	if room.RoomType != nil {
		info.RoomTypeName = room.RoomType.Name
	}
	return info
}

func convertBookingInfo(b *models.Booking) *BookingInfo {
	info := &BookingInfo{
		ID:               b.ID,
		BookingNo:        b.BookingNo,
		Status:           b.Status,
		StatusName:       StatusName(b.Status),
		PaymentStatus:    b.PaymentStatus,
		PaymentMethod:    utils.SafeString(b.PaymentMethod),
		PaymentReference: utils.SafeString(b.PaymentReference),
		GuestName:        b.GuestName,
		Guests:           b.Guests,
		CheckIn:          b.CheckIn,
		CheckOut:         b.CheckOut,
		Nights:           b.Nights,
		RoomPrice:        b.RoomPrice,
		ServicesPrice:    b.ServicesPrice,
		TotalAmount:      b.TotalAmount,
		Currency:         b.Currency,
		Transitions:      AvailableStatusTransitions(b.Status),
		PaidAt:           b.PaidAt,
		CreatedAt:        b.CreatedAt,
	}
	if b.Room != nil {
		info.Room = convertRoomInfo(b.Room)
	}
	return info
}
