// Package khqr 提供 KHQR 支付相关的 HTTP Handler
package khqr

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/chensakkolmlbb2025/royal-elegance/internal/common/handler"
	"github.com/chensakkolmlbb2025/royal-elegance/internal/common/response"
	paymentService "github.com/chensakkolmlbb2025/royal-elegance/internal/service/payment"
)

// Handler KHQR 支付处理器
type Handler struct {
	paymentService *paymentService.PaymentService
}

// NewHandler 创建 KHQR 支付处理器
func NewHandler(paymentSvc *paymentService.PaymentService) *Handler {
	return &Handler{
		paymentService: paymentSvc,
	}
}

// CreatePayment 创建 KHQR 支付
// @Summary 创建 KHQR 支付
// @Tags KHQR
// @Accept json
// @Produce json
// @Param request body paymentService.CreatePaymentRequest true "请求参数"
// @Success 200 {object} response.Response{data=paymentService.CreatePaymentResponse}
// @Router /api/v1/khqr/payments [post]
func (h *Handler) CreatePayment(c *gin.Context) {
	var req paymentService.CreatePaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "参数错误")
		return
	}

	result, err := h.paymentService.CreateKHQRPayment(c.Request.Context(), &req)
	handler.MustSucceed(c, err, result)
}

// CreateMockPayment 创建模拟支付
// @Summary 创建模拟 KHQR 支付
// @Tags KHQR
// @Accept json
// @Produce json
// @Param request body paymentService.CreatePaymentRequest true "请求参数"
// @Success 200 {object} response.Response{data=paymentService.CreatePaymentResponse}
// @Router /api/v1/khqr/mock-payments [post]
func (h *Handler) CreateMockPayment(c *gin.Context) {
	var req paymentService.CreatePaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "参数错误")
		return
	}

	result, err := h.paymentService.CreateMockPayment(c.Request.Context(), &req)
	handler.MustSucceed(c, err, result)
}

// SimulateRequest 模拟支付结果请求
type SimulateRequest struct {
	Status string `json:"status" binding:"required,oneof=success failed"`
}

// SimulateMockPayment 模拟支付结果
// @Summary 模拟支付完成或失败
// @Tags KHQR
// @Accept json
// @Produce json
// @Param transaction_id path string true "交易号"
// @Param request body SimulateRequest true "请求参数"
// @Success 200 {object} response.Response{data=paymentService.WebhookResult}
// @Router /api/v1/khqr/mock-payments/{transaction_id}/status [post]
func (h *Handler) SimulateMockPayment(c *gin.Context) {
	tranID, ok := handler.RequireParam(c, "transaction_id", "交易号")
	if !ok {
		return
	}

	var req SimulateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "status 必须为 success 或 failed")
		return
	}

	result, err := h.paymentService.SimulateMockPayment(c.Request.Context(), tranID, req.Status)
	handler.MustSucceed(c, err, result)
}

// GetStatus 查询支付状态
// @Summary 查询支付状态
// @Description 网关不可用时返回 pending 并附带 error，前端可继续轮询
// @Tags KHQR
// @Produce json
// @Param transaction_id path string true "交易号"
// @Success 200 {object} response.Response{data=paymentService.StatusResult}
// @Router /api/v1/khqr/status/{transaction_id} [get]
func (h *Handler) GetStatus(c *gin.Context) {
	tranID, ok := handler.RequireParam(c, "transaction_id", "交易号")
	if !ok {
		return
	}

	result, err := h.paymentService.GetPaymentStatus(c.Request.Context(), tranID)
	handler.MustSucceed(c, err, result)
}

// VerifyRequest 载荷校验请求
type VerifyRequest struct {
	Payload string `json:"payload" binding:"required"`
}

// Verify 校验 KHQR 载荷
// @Summary 校验并解析 KHQR 载荷
// @Tags KHQR
// @Accept json
// @Produce json
// @Param request body VerifyRequest true "请求参数"
// @Success 200 {object} response.Response{data=paymentService.VerifyResult}
// @Router /api/v1/khqr/verify [post]
func (h *Handler) Verify(c *gin.Context) {
	var req VerifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "payload 不能为空")
		return
	}

	result, err := h.paymentService.VerifyPayload(req.Payload)
	handler.MustSucceed(c, err, result)
}

// QRCode 获取支付二维码图片
// @Summary 获取支付二维码 PNG
// @Tags KHQR
// @Produce png
// @Param transaction_id path string true "交易号"
// @Success 200 {file} binary
// @Router /api/v1/khqr/payments/{transaction_id}/qrcode.png [get]
func (h *Handler) QRCode(c *gin.Context) {
	tranID, ok := handler.RequireParam(c, "transaction_id", "交易号")
	if !ok {
		return
	}

	png, err := h.paymentService.QRCodePNG(c.Request.Context(), tranID)
	if handler.HandleError(c, err) {
		return
	}
	c.Header("Cache-Control", "private, max-age=60")
	c.Data(http.StatusOK, "image/png", png)
}

// Diagnostics 网关诊断
// @Summary 网关连通性与配置诊断
// @Tags KHQR
// @Produce json
// @Security Bearer
// @Success 200 {object} response.Response{data=paymentService.Diagnostics}
// @Router /api/v1/khqr/diagnostics [get]
func (h *Handler) Diagnostics(c *gin.Context) {
	response.Success(c, h.paymentService.Diagnostics(c.Request.Context()))
}
