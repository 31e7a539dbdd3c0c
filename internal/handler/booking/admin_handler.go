package booking

import (
	"github.com/gin-gonic/gin"

	"github.com/chensakkolmlbb2025/royal-elegance/internal/common/handler"
	"github.com/chensakkolmlbb2025/royal-elegance/internal/common/response"
	"github.com/chensakkolmlbb2025/royal-elegance/internal/middleware"
	bookingService "github.com/chensakkolmlbb2025/royal-elegance/internal/service/booking"
)

// AdminHandler 预订管理处理器
type AdminHandler struct {
	bookingService *bookingService.BookingService
}

// NewAdminHandler 创建预订管理处理器
func NewAdminHandler(bookingSvc *bookingService.BookingService) *AdminHandler {
	return &AdminHandler{bookingService: bookingSvc}
}

// GetBooking 查看任意预订
// @Summary 查看预订详情
// @Tags 预订管理
// @Produce json
// @Security Bearer
// @Param booking_no path string true "预订号"
// @Success 200 {object} response.Response{data=bookingService.BookingInfo}
// @Router /api/admin/bookings/{booking_no} [get]
func (h *AdminHandler) GetBooking(c *gin.Context) {
	bookingNo, ok := handler.RequireParam(c, "booking_no", "预订号")
	if !ok {
		return
	}

	booking, err := h.bookingService.GetBooking(c.Request.Context(), bookingNo, "")
	handler.MustSucceed(c, err, booking)
}

// GetTransitions 可流转状态
// @Summary 获取预订可流转的状态
// @Tags 预订管理
// @Produce json
// @Security Bearer
// @Param booking_no path string true "预订号"
// @Success 200 {object} response.Response{data=[]string}
// @Router /api/admin/bookings/{booking_no}/transitions [get]
func (h *AdminHandler) GetTransitions(c *gin.Context) {
	bookingNo, ok := handler.RequireParam(c, "booking_no", "预订号")
	if !ok {
		return
	}

	transitions, err := h.bookingService.GetTransitions(c.Request.Context(), bookingNo)
	handler.MustSucceed(c, err, transitions)
}

// UpdateStatus 更新预订状态
// @Summary 更新预订状态
// @Tags 预订管理
// @Accept json
// @Produce json
// @Security Bearer
// @Param booking_no path string true "预订号"
// @Param request body bookingService.UpdateStatusRequest true "请求参数"
// @Success 200 {object} response.Response{data=bookingService.BookingInfo}
// @Router /api/admin/bookings/{booking_no}/status [put]
func (h *AdminHandler) UpdateStatus(c *gin.Context) {
	bookingNo, ok := handler.RequireParam(c, "booking_no", "预订号")
	if !ok {
		return
	}

	var req bookingService.UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "参数错误")
		return
	}

	booking, err := h.bookingService.UpdateStatus(c.Request.Context(), bookingNo, middleware.GetUserID(c), &req)
	handler.MustSucceedWithMessage(c, err, "状态已更新", booking)
}
