package handler

import (
	"context"

	"github.com/flipflop/backend/internal/application/assistant"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// AssistantService answers shopper questions
type AssistantService interface {
	Chat(ctx context.Context, userID uuid.UUID, req assistant.ChatRequest) (*assistant.ChatResponse, error)
}

// AssistantHandler serves the shopping assistant chat
type AssistantHandler struct {
	BaseHandler
	assistant AssistantService
}

// NewAssistantHandler creates a new AssistantHandler
func NewAssistantHandler(svc AssistantService) *AssistantHandler {
	return &AssistantHandler{assistant: svc}
}

// Chat godoc
// @ID           aiChat
// @Summary      Ask the shopping assistant
// @Description  context.productId / context.productIds add product details to the conversation
// @Tags         ai
// @Accept       json
// @Produce      json
// @Param        request body assistant.ChatRequest true "Message"
// @Success      200 {object} Envelope[assistant.ChatResponse]
// @Failure      400 {object} ErrorEnvelope
// @Failure      503 {object} ErrorEnvelope
// @Security     BearerAuth
// @Router       /ai/chat [post]
func (h *AssistantHandler) Chat(c *gin.Context) {
	userID, ok := h.requireUser(c)
	if !ok {
		return
	}
	var req assistant.ChatRequest
	if !h.bindJSON(c, &req) {
		return
	}
	reply, err := h.assistant.Chat(c.Request.Context(), userID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, reply)
}
