// Package event exposes the transactional outbox to shop administrators.
package event

import (
	"context"
	"errors"
	"time"

	"github.com/flipflop/backend/internal/domain/shared"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

var errOutboxUnavailable = shared.NewDomainError("INTERNAL_ERROR", "Outbox is unavailable")

// OutboxService lets admins inspect the outbox and requeue order, stock and
// account events whose delivery ran out of retries
type OutboxService struct {
	repo   shared.OutboxRepository
	logger *zap.Logger
}

// NewOutboxService creates an OutboxService
func NewOutboxService(repo shared.OutboxRepository, logger *zap.Logger) *OutboxService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &OutboxService{repo: repo, logger: logger.Named("outbox_admin")}
}

// OutboxEntryDTO is the admin view of one outbox entry
type OutboxEntryDTO struct {
	ID            uuid.UUID  `json:"id"`
	EventID       uuid.UUID  `json:"event_id"`
	EventType     string     `json:"event_type"`
	AggregateID   uuid.UUID  `json:"aggregate_id"`
	AggregateType string     `json:"aggregate_type"`
	Status        string     `json:"status"`
	RetryCount    int        `json:"retry_count"`
	MaxRetries    int        `json:"max_retries"`
	LastError     string     `json:"last_error,omitempty"`
	NextRetryAt   *time.Time `json:"next_retry_at,omitempty"`
	ProcessedAt   *time.Time `json:"processed_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// OutboxFilter pages the dead letter list
type OutboxFilter struct {
	Page     int `form:"page,omitempty" binding:"omitempty,min=1"`
	PageSize int `form:"page_size,omitempty" binding:"omitempty,min=1,max=100"`
}

func (f OutboxFilter) normalized() OutboxFilter {
	if f.Page < 1 {
		f.Page = 1
	}
	switch {
	case f.PageSize < 1:
		f.PageSize = defaultPageSize
	case f.PageSize > maxPageSize:
		f.PageSize = maxPageSize
	}
	return f
}

// OutboxListResult is one page of dead letter entries
type OutboxListResult struct {
	Entries    []OutboxEntryDTO `json:"entries"`
	Total      int64            `json:"total"`
	Page       int              `json:"page"`
	PageSize   int              `json:"page_size"`
	TotalPages int              `json:"total_pages"`
}

// OutboxStatsDTO counts entries per delivery status
type OutboxStatsDTO struct {
	Pending    int64 `json:"pending"`
	Processing int64 `json:"processing"`
	Sent       int64 `json:"sent"`
	Failed     int64 `json:"failed"`
	Dead       int64 `json:"dead"`
	Total      int64 `json:"total"`
}

// GetDeadLetterEntries lists entries that exhausted their retries
func (s *OutboxService) GetDeadLetterEntries(ctx context.Context, filter OutboxFilter) (*OutboxListResult, error) {
	filter = filter.normalized()

	entries, total, err := s.repo.FindDead(ctx, filter.Page, filter.PageSize)
	if err != nil {
		s.logger.Error("Listing dead letter entries failed", zap.Error(err))
		return nil, errOutboxUnavailable
	}

	out := &OutboxListResult{
		Entries:    make([]OutboxEntryDTO, 0, len(entries)),
		Total:      total,
		Page:       filter.Page,
		PageSize:   filter.PageSize,
		TotalPages: int((total + int64(filter.PageSize) - 1) / int64(filter.PageSize)),
	}
	for _, e := range entries {
		out.Entries = append(out.Entries, toOutboxEntryDTO(e))
	}
	return out, nil
}

// GetEntry returns one entry of any status
func (s *OutboxService) GetEntry(ctx context.Context, id uuid.UUID) (*OutboxEntryDTO, error) {
	entry, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	dto := toOutboxEntryDTO(entry)
	return &dto, nil
}

// RetryDeadEntry puts a dead entry back in the pending queue with a fresh
// retry budget. Entries in any other status are rejected.
func (s *OutboxService) RetryDeadEntry(ctx context.Context, id uuid.UUID) (*OutboxEntryDTO, error) {
	entry, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := entry.ResetForRetry(); err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, entry); err != nil {
		s.logger.Error("Requeueing outbox entry failed", zap.Stringer("id", id), zap.Error(err))
		return nil, errOutboxUnavailable
	}

	s.logger.Info("Dead letter entry requeued",
		zap.Stringer("id", id),
		zap.String("event_type", entry.EventType),
		zap.Stringer("aggregate_id", entry.AggregateID),
	)
	dto := toOutboxEntryDTO(entry)
	return &dto, nil
}

// RetryAllDeadEntries requeues every dead entry and returns how many moved.
// Requeued entries leave the dead set, so the first page is read until it
// comes back empty or nothing on it could be requeued.
func (s *OutboxService) RetryAllDeadEntries(ctx context.Context) (int64, error) {
	var requeued int64
	for {
		entries, _, err := s.repo.FindDead(ctx, 1, maxPageSize)
		if err != nil {
			s.logger.Error("Listing dead letter entries failed", zap.Error(err))
			return requeued, errOutboxUnavailable
		}

		moved := 0
		for _, entry := range entries {
			if entry.ResetForRetry() != nil {
				continue
			}
			if err := s.repo.Update(ctx, entry); err != nil {
				s.logger.Error("Requeueing outbox entry failed", zap.Stringer("id", entry.ID), zap.Error(err))
				continue
			}
			moved++
		}
		requeued += int64(moved)

		if moved == 0 || len(entries) < maxPageSize {
			break
		}
	}

	s.logger.Info("Dead letter entries requeued", zap.Int64("count", requeued))
	return requeued, nil
}

// GetStats counts entries per status
func (s *OutboxService) GetStats(ctx context.Context) (*OutboxStatsDTO, error) {
	counts, err := s.repo.CountByStatus(ctx)
	if err != nil {
		s.logger.Error("Counting outbox entries failed", zap.Error(err))
		return nil, errOutboxUnavailable
	}

	stats := &OutboxStatsDTO{
		Pending:    counts[shared.OutboxStatusPending],
		Processing: counts[shared.OutboxStatusProcessing],
		Sent:       counts[shared.OutboxStatusSent],
		Failed:     counts[shared.OutboxStatusFailed],
		Dead:       counts[shared.OutboxStatusDead],
	}
	for _, n := range counts {
		stats.Total += n
	}
	return stats, nil
}

func (s *OutboxService) find(ctx context.Context, id uuid.UUID) (*shared.OutboxEntry, error) {
	entry, err := s.repo.FindByID(ctx, id)
	switch {
	case errors.Is(err, shared.ErrNotFound) || (err == nil && entry == nil):
		return nil, shared.NewDomainError("NOT_FOUND", "Outbox entry not found")
	case err != nil:
		s.logger.Error("Loading outbox entry failed", zap.Stringer("id", id), zap.Error(err))
		return nil, errOutboxUnavailable
	}
	return entry, nil
}

func toOutboxEntryDTO(e *shared.OutboxEntry) OutboxEntryDTO {
	return OutboxEntryDTO{
		ID:            e.ID,
		EventID:       e.EventID,
		EventType:     e.EventType,
		AggregateID:   e.AggregateID,
		AggregateType: e.AggregateType,
		Status:        string(e.Status),
		RetryCount:    e.RetryCount,
		MaxRetries:    e.MaxRetries,
		LastError:     e.LastError,
		NextRetryAt:   e.NextRetryAt,
		ProcessedAt:   e.ProcessedAt,
		CreatedAt:     e.CreatedAt,
		UpdatedAt:     e.UpdatedAt,
	}
}
