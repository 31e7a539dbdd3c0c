package khqr

import (
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/chensakkolmlbb2025/royal-elegance/internal/common/errors"
	"github.com/chensakkolmlbb2025/royal-elegance/internal/common/logger"
	"github.com/chensakkolmlbb2025/royal-elegance/internal/common/response"
	paymentService "github.com/chensakkolmlbb2025/royal-elegance/internal/service/payment"
)

const maxWebhookBody = 64 << 10

// WebhookHandler 网关回调处理器
// 回调方依赖 HTTP 状态码决定是否重试，因此这里不使用业务码
type WebhookHandler struct {
	paymentService *paymentService.PaymentService
}

// NewWebhookHandler 创建回调处理器
func NewWebhookHandler(paymentSvc *paymentService.PaymentService) *WebhookHandler {
	return &WebhookHandler{paymentService: paymentSvc}
}

// Receive 接收支付结果回调
// @Summary KHQR 支付回调
// @Tags Webhook
// @Accept json
// @Produce json
// @Param X-KHQR-Signature header string false "HMAC-SHA256 签名"
// @Param request body paymentService.WebhookPayload true "回调内容"
// @Success 200 {object} response.Response{data=paymentService.WebhookResult}
// @Failure 400 {object} response.Response
// @Failure 401 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /api/v1/webhooks/khqr [post]
func (h *WebhookHandler) Receive(c *gin.Context) {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBody))
	if err != nil {
		response.BadRequest(c, "读取回调内容失败")
		return
	}

	result, err := h.paymentService.HandleWebhook(c.Request.Context(), body, c.GetHeader(paymentService.SignatureHeader))
	if err != nil {
		appErr := errors.GetAppError(err)
		switch {
		case errors.ErrPaymentNotFound.Is(appErr):
			response.NotFound(c, appErr.Message)
		case errors.ErrCallbackSignature.Is(appErr):
			response.Unauthorized(c, appErr.Message)
		case errors.ErrPaymentCallbackError.Is(appErr):
			response.BadRequest(c, appErr.Message)
		default:
			logger.Error("khqr webhook failed", zap.Error(err))
			response.InternalError(c, "")
		}
		return
	}

	response.SuccessWithMessage(c, "Webhook processed successfully", result)
}

// Challenge 回调地址验证
// @Summary KHQR 回调地址验证
// @Tags Webhook
// @Produce json
// @Param challenge query string false "验证串"
// @Success 200 {object} map[string]string
// @Router /api/v1/webhooks/khqr [get]
func (h *WebhookHandler) Challenge(c *gin.Context) {
	if challenge := c.Query("challenge"); challenge != "" {
		c.JSON(http.StatusOK, gin.H{"challenge": challenge})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message":   "KHQR webhook endpoint",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}
