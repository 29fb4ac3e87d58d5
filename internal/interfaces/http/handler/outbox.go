package handler

import (
	"context"

	"github.com/flipflop/backend/internal/application/event"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// OutboxService is the outbox admin surface used by OutboxHandler
type OutboxService interface {
	GetDeadLetterEntries(ctx context.Context, filter event.OutboxFilter) (*event.OutboxListResult, error)
	GetEntry(ctx context.Context, id uuid.UUID) (*event.OutboxEntryDTO, error)
	RetryDeadEntry(ctx context.Context, id uuid.UUID) (*event.OutboxEntryDTO, error)
	RetryAllDeadEntries(ctx context.Context) (int64, error)
	GetStats(ctx context.Context) (*event.OutboxStatsDTO, error)
}

// OutboxHandler lets admins inspect undelivered events and requeue the ones
// that ran out of retries
type OutboxHandler struct {
	BaseHandler
	outbox OutboxService
}

func NewOutboxHandler(outbox OutboxService) *OutboxHandler {
	return &OutboxHandler{outbox: outbox}
}

// withEntry resolves the :id parameter, runs op and writes the entry it returns
func (h *OutboxHandler) withEntry(c *gin.Context, op func(context.Context, uuid.UUID) (*event.OutboxEntryDTO, error)) {
	id, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}
	entry, err := op(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, entry)
}

// RetryAllResponse reports how many dead entries were requeued
type RetryAllResponse struct {
	Count int64 `json:"count"`
}

// GetDeadLetterEntries godoc
// @ID           getOutboxDeadLetterEntries
// @Summary      List dead letter entries
// @Description  Events whose delivery failed after every retry
// @Tags         outbox
// @Produce      json
// @Param        page query int false "Page number" default(1)
// @Param        page_size query int false "Items per page" default(20) maximum(100)
// @Success      200 {object} Envelope[[]event.OutboxEntryDTO]
// @Failure      400 {object} ErrorEnvelope
// @Failure      403 {object} ErrorEnvelope
// @Security     BearerAuth
// @Router       /admin/outbox/dead [get]
func (h *OutboxHandler) GetDeadLetterEntries(c *gin.Context) {
	var filter event.OutboxFilter
	if !h.bindQuery(c, &filter) {
		return
	}
	result, err := h.outbox.GetDeadLetterEntries(c.Request.Context(), filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	if result.Entries == nil {
		result.Entries = []event.OutboxEntryDTO{}
	}
	h.SuccessWithMeta(c, result.Entries, result.Total, result.Page, result.PageSize)
}

// GetEntry godoc
// @ID           getOutboxEntry
// @Summary      Get an outbox entry
// @Tags         outbox
// @Produce      json
// @Param        id path string true "Outbox entry ID" format(uuid)
// @Success      200 {object} Envelope[event.OutboxEntryDTO]
// @Failure      404 {object} ErrorEnvelope
// @Security     BearerAuth
// @Router       /admin/outbox/{id} [get]
func (h *OutboxHandler) GetEntry(c *gin.Context) {
	h.withEntry(c, h.outbox.GetEntry)
}

// RetryDeadEntry godoc
// @ID           retryDeadEntryOutbox
// @Summary      Retry a dead letter entry
// @Description  Resets the entry to pending with a fresh retry budget
// @Tags         outbox
// @Produce      json
// @Param        id path string true "Outbox entry ID" format(uuid)
// @Success      200 {object} Envelope[event.OutboxEntryDTO]
// @Failure      404 {object} ErrorEnvelope
// @Failure      422 {object} ErrorEnvelope
// @Security     BearerAuth
// @Router       /admin/outbox/{id}/retry [post]
func (h *OutboxHandler) RetryDeadEntry(c *gin.Context) {
	h.withEntry(c, h.outbox.RetryDeadEntry)
}

// RetryAllDeadEntries godoc
// @ID           retryAllDeadEntriesOutbox
// @Summary      Retry all dead letter entries
// @Tags         outbox
// @Produce      json
// @Success      200 {object} Envelope[RetryAllResponse]
// @Security     BearerAuth
// @Router       /admin/outbox/dead/retry-all [post]
func (h *OutboxHandler) RetryAllDeadEntries(c *gin.Context) {
	count, err := h.outbox.RetryAllDeadEntries(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, RetryAllResponse{Count: count})
}

// GetStats godoc
// @ID           getOutboxStats
// @Summary      Outbox statistics
// @Description  Entry counts by delivery status
// @Tags         outbox
// @Produce      json
// @Success      200 {object} Envelope[event.OutboxStatsDTO]
// @Security     BearerAuth
// @Router       /admin/outbox/stats [get]
func (h *OutboxHandler) GetStats(c *gin.Context) {
	stats, err := h.outbox.GetStats(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, stats)
}
