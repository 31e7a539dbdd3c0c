package khqr

import (
	"github.com/gin-gonic/gin"

	"github.com/chensakkolmlbb2025/royal-elegance/internal/common/handler"
	"github.com/chensakkolmlbb2025/royal-elegance/internal/common/response"
	paymentService "github.com/chensakkolmlbb2025/royal-elegance/internal/service/payment"
)

// CreateCardIntent 创建银行卡支付
// @Summary 为预订创建 Stripe PaymentIntent
// @Tags Payment
// @Accept json
// @Produce json
// @Param request body paymentService.CreateCardIntentRequest true "请求参数"
// @Success 200 {object} response.Response{data=paymentService.CardIntentResponse}
// @Router /api/v1/payments/intents [post]
func (h *Handler) CreateCardIntent(c *gin.Context) {
	var req paymentService.CreateCardIntentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "参数错误")
		return
	}

	result, err := h.paymentService.CreateCardIntent(c.Request.Context(), &req)
	handler.MustSucceed(c, err, result)
}
