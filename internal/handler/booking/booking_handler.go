// Package booking 提供客房预订相关的 HTTP Handler
package booking

import (
	"github.com/gin-gonic/gin"

	"github.com/chensakkolmlbb2025/royal-elegance/internal/common/handler"
	"github.com/chensakkolmlbb2025/royal-elegance/internal/common/response"
	bookingService "github.com/chensakkolmlbb2025/royal-elegance/internal/service/booking"
)

// Handler 预订处理器
type Handler struct {
	bookingService *bookingService.BookingService
}

// NewHandler 创建预订处理器
func NewHandler(bookingSvc *bookingService.BookingService) *Handler {
	return &Handler{
		bookingService: bookingSvc,
	}
}

// ListAvailableRooms 查询可订房间
// @Summary 查询时段内可订房间
// @Tags 预订
// @Produce json
// @Param check_in query string true "入住日期"
// @Param check_out query string true "退房日期"
// @Param room_type_id query int false "房型ID"
// @Success 200 {object} response.Response{data=[]bookingService.RoomInfo}
// @Router /api/v1/rooms/available [get]
func (h *Handler) ListAvailableRooms(c *gin.Context) {
	checkIn, checkOut, ok := handler.ParseStayRange(c)
	if !ok {
		return
	}
	roomTypeID, ok := handler.ParseQueryID(c, "room_type_id", "房型")
	if !ok {
		return
	}

	var typeID int64
	if roomTypeID != nil {
		typeID = *roomTypeID
	}

	rooms, err := h.bookingService.ListAvailableRooms(c.Request.Context(), checkIn, checkOut, typeID)
	handler.MustSucceed(c, err, rooms)
}

// CreateBooking 创建预订
// @Summary 创建预订
// @Tags 预订
// @Accept json
// @Produce json
// @Security Bearer
// @Param request body bookingService.CreateBookingRequest true "请求参数"
// @Success 200 {object} response.Response{data=bookingService.BookingInfo}
// @Router /api/v1/bookings [post]
func (h *Handler) CreateBooking(c *gin.Context) {
	userID, ok := handler.RequireUserID(c)
	if !ok {
		return
	}

	var req bookingService.CreateBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "参数错误")
		return
	}

	booking, err := h.bookingService.CreateBooking(c.Request.Context(), userID, &req)
	handler.MustSucceed(c, err, booking)
}

// GetBooking 获取预订详情
// @Summary 获取预订详情
// @Tags 预订
// @Produce json
// @Security Bearer
// @Param booking_no path string true "预订号"
// @Success 200 {object} response.Response{data=bookingService.BookingInfo}
// @Router /api/v1/bookings/{booking_no} [get]
func (h *Handler) GetBooking(c *gin.Context) {
	userID, ok := handler.RequireUserID(c)
	if !ok {
		return
	}
	bookingNo, ok := handler.RequireParam(c, "booking_no", "预订号")
	if !ok {
		return
	}

	booking, err := h.bookingService.GetBooking(c.Request.Context(), bookingNo, userID)
	handler.MustSucceed(c, err, booking)
}

// ListMyBookings 我的预订
// @Summary 获取当前用户的预订列表
// @Tags 预订
// @Produce json
// @Security Bearer
// @Param page query int false "页码"
// @Param page_size query int false "每页数量"
// @Success 200 {object} response.Response{data=response.PageData{list=[]bookingService.BookingInfo}}
// @Router /api/v1/bookings [get]
func (h *Handler) ListMyBookings(c *gin.Context) {
	userID, ok := handler.RequireUserID(c)
	if !ok {
		return
	}

	p := handler.BindPagination(c)
	list, total, err := h.bookingService.ListUserBookings(c.Request.Context(), userID, p)
	handler.MustSucceedPage(c, err, list, total, p.Page, p.PageSize)
}
