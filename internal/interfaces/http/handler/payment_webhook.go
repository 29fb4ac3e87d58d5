package handler

import (
	"context"
	"io"
	"net/http"

	"github.com/flipflop/backend/internal/application/sales"
	"github.com/flipflop/backend/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Provider notifications are small; anything larger is rejected unread.
const maxWebhookPayloadSize = 64 << 10

// PaymentNotifier applies provider payment notifications
type PaymentNotifier interface {
	HandlePaymentNotification(ctx context.Context, payload []byte, header http.Header) (*sales.OrderResponse, error)
}

// PaymentWebhookHandler receives payment provider callbacks. The route is
// unauthenticated; the gateway verifies the payload signature.
type PaymentWebhookHandler struct {
	BaseHandler
	notifier PaymentNotifier
}

// NewPaymentWebhookHandler creates a new PaymentWebhookHandler
func NewPaymentWebhookHandler(notifier PaymentNotifier) *PaymentWebhookHandler {
	return &PaymentWebhookHandler{notifier: notifier}
}

// PaymentWebhookResponse acknowledges a provider notification
//
//	@Description	Payment webhook acknowledgement
type PaymentWebhookResponse struct {
	Received      bool       `json:"received" example:"true"`
	Ignored       bool       `json:"ignored,omitempty"`
	OrderID       *uuid.UUID `json:"order_id,omitempty"`
	Status        string     `json:"status,omitempty" example:"confirmed"`
	PaymentStatus string     `json:"payment_status,omitempty" example:"paid"`
}

// Handle godoc
// @ID           handlePaymentWebhook
// @Summary      Payment provider notification
// @Description  Signed with X-Signature (HMAC-SHA256) or Stripe-Signature depending on the configured provider.
// @Description  Replayed notifications are acknowledged without side effects.
// @Tags         payments
// @Accept       json
// @Produce      json
// @Param        X-Signature header string false "HMAC-SHA256 hex digest of the body"
// @Param        Stripe-Signature header string false "Stripe webhook signature"
// @Success      200 {object} PaymentWebhookResponse
// @Failure      400 {object} ErrorEnvelope
// @Failure      401 {object} ErrorEnvelope
// @Failure      413 {object} ErrorEnvelope
// @Router       /payments/webhook [post]
func (h *PaymentWebhookHandler) Handle(c *gin.Context) {
	payload, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookPayloadSize+1))
	if err != nil {
		h.BadRequest(c, "Failed to read request body")
		return
	}
	if len(payload) > maxWebhookPayloadSize {
		h.ErrorWithCode(c, dto.ErrCodePayloadTooLarge, "Payload too large")
		return
	}

	order, err := h.notifier.HandlePaymentNotification(c.Request.Context(), payload, c.Request.Header)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	if order == nil {
		c.JSON(http.StatusOK, PaymentWebhookResponse{Received: true, Ignored: true})
		return
	}
	c.JSON(http.StatusOK, PaymentWebhookResponse{
		Received:      true,
		OrderID:       &order.ID,
		Status:        order.Status,
		PaymentStatus: order.PaymentStatus,
	})
}
