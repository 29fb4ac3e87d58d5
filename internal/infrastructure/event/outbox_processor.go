package event

import (
	"context"
	"sync"
	"time"

	"github.com/flipflop/backend/internal/domain/shared"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Outcomes passed to ThroughputRecorder
const (
	OutcomePublished = "published"
	OutcomeRetried   = "retried"
	OutcomeDead      = "dead"
)

// OutboxProcessorConfig tunes the relay loop
type OutboxProcessorConfig struct {
	BatchSize    int
	PollInterval time.Duration
	// Sent entries older than CleanupRetention are purged every
	// CleanupInterval when CleanupEnabled is set
	CleanupEnabled   bool
	CleanupRetention time.Duration
	CleanupInterval  time.Duration
}

// DefaultOutboxProcessorConfig polls every 5s and keeps sent entries a week
func DefaultOutboxProcessorConfig() OutboxProcessorConfig {
	return OutboxProcessorConfig{
		BatchSize:        100,
		PollInterval:     5 * time.Second,
		CleanupEnabled:   true,
		CleanupRetention: 7 * 24 * time.Hour,
		CleanupInterval:  time.Hour,
	}
}

// ThroughputRecorder counts relayed entries by outcome
type ThroughputRecorder interface {
	OutboxProcessed(result string, n int)
}

// OutboxProcessor relays committed outbox entries to the event bus. Delivery
// is at-least-once: an entry is marked sent only after every handler
// succeeded, and failed entries come back with exponential backoff until
// they run out of retries and go dead.
type OutboxProcessor struct {
	repo       shared.OutboxRepository
	bus        shared.EventPublisher
	serializer *EventSerializer
	cfg        OutboxProcessorConfig
	logger     *zap.Logger
	recorder   ThroughputRecorder
	now        func() time.Time

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewOutboxProcessor creates an OutboxProcessor
func NewOutboxProcessor(
	repo shared.OutboxRepository,
	bus shared.EventPublisher,
	serializer *EventSerializer,
	cfg OutboxProcessorConfig,
	logger *zap.Logger,
) *OutboxProcessor {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultOutboxProcessorConfig().BatchSize
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &OutboxProcessor{
		repo:       repo,
		bus:        bus,
		serializer: serializer,
		cfg:        cfg,
		logger:     logger.Named("outbox"),
		now:        time.Now,
	}
}

// SetRecorder attaches a throughput recorder; call before Start
func (p *OutboxProcessor) SetRecorder(r ThroughputRecorder) {
	p.recorder = r
}

// Start launches the relay loop and, if enabled, the cleanup loop
func (p *OutboxProcessor) Start(ctx context.Context) error {
	ctx, p.cancel = context.WithCancel(ctx)

	p.every(ctx, p.cfg.PollInterval, func(ctx context.Context) { p.RunOnce(ctx) })
	if p.cfg.CleanupEnabled {
		p.every(ctx, p.cfg.CleanupInterval, p.cleanup)
	}

	p.logger.Info("Outbox processor started",
		zap.Int("batch_size", p.cfg.BatchSize),
		zap.Duration("poll_interval", p.cfg.PollInterval),
	)
	return nil
}

// Stop cancels the loops and waits for the current batch, bounded by ctx
func (p *OutboxProcessor) Stop(ctx context.Context) error {
	if p.cancel != nil {
		p.cancel()
	}

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		p.logger.Info("Outbox processor stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *OutboxProcessor) every(ctx context.Context, d time.Duration, fn func(context.Context)) {
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		ticker := time.NewTicker(d)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				fn(ctx)
			}
		}
	}()
}

// RunOnce relays one batch of pending entries and one batch of due retries.
// It returns the number of entries delivered.
func (p *OutboxProcessor) RunOnce(ctx context.Context) int {
	delivered := 0

	pending, err := p.repo.FindPending(ctx, p.cfg.BatchSize)
	if err != nil {
		p.logger.Error("Loading pending outbox entries failed", zap.Error(err))
		return 0
	}
	delivered += p.relay(ctx, pending)

	due, err := p.repo.FindRetryable(ctx, p.now(), p.cfg.BatchSize)
	if err != nil {
		p.logger.Error("Loading retryable outbox entries failed", zap.Error(err))
		return delivered
	}
	return delivered + p.relay(ctx, due)
}

func (p *OutboxProcessor) relay(ctx context.Context, entries []*shared.OutboxEntry) int {
	if len(entries) == 0 {
		return 0
	}

	ids := make([]uuid.UUID, len(entries))
	for i, e := range entries {
		ids[i] = e.ID
	}
	claimed, err := p.repo.MarkProcessing(ctx, ids)
	if err != nil {
		p.logger.Error("Claiming outbox entries failed", zap.Int("count", len(ids)), zap.Error(err))
		return 0
	}

	delivered := 0
	for _, entry := range claimed {
		if p.deliver(ctx, entry) {
			delivered++
		}
	}
	return delivered
}

func (p *OutboxProcessor) deliver(ctx context.Context, entry *shared.OutboxEntry) bool {
	ev, err := p.serializer.Deserialize(entry.EventType, entry.Payload)
	if err == nil {
		err = p.bus.Publish(ctx, ev)
	}
	if err != nil {
		p.fail(ctx, entry, err)
		return false
	}

	entry.MarkSent()
	p.record(OutcomePublished)
	if err := p.repo.Update(ctx, entry); err != nil {
		// The handlers ran; a later relay will deliver the entry again and
		// idempotent handlers skip it.
		p.logger.Error("Marking outbox entry sent failed",
			zap.Stringer("event_id", entry.EventID),
			zap.Error(err),
		)
		return true
	}
	p.logger.Debug("Outbox entry delivered",
		zap.Stringer("event_id", entry.EventID),
		zap.String("event_type", entry.EventType),
	)
	return true
}

func (p *OutboxProcessor) fail(ctx context.Context, entry *shared.OutboxEntry, cause error) {
	entry.MarkFailed(cause.Error())

	fields := []zap.Field{
		zap.Stringer("event_id", entry.EventID),
		zap.String("event_type", entry.EventType),
		zap.String("aggregate_type", entry.AggregateType),
		zap.Stringer("aggregate_id", entry.AggregateID),
		zap.Int("retry_count", entry.RetryCount),
		zap.Error(cause),
	}
	if entry.IsDead() {
		p.record(OutcomeDead)
		p.logger.Warn("Outbox entry moved to dead letter queue", fields...)
	} else {
		p.record(OutcomeRetried)
		p.logger.Error("Outbox delivery failed, will retry",
			append(fields, zap.Timep("next_retry_at", entry.NextRetryAt))...)
	}

	if err := p.repo.Update(ctx, entry); err != nil {
		p.logger.Error("Recording outbox failure failed", zap.Stringer("event_id", entry.EventID), zap.Error(err))
	}
}

func (p *OutboxProcessor) record(outcome string) {
	if p.recorder != nil {
		p.recorder.OutboxProcessed(outcome, 1)
	}
}

func (p *OutboxProcessor) cleanup(ctx context.Context) {
	cutoff := p.now().Add(-p.cfg.CleanupRetention)
	deleted, err := p.repo.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		p.logger.Error("Purging sent outbox entries failed", zap.Error(err))
		return
	}
	if deleted > 0 {
		p.logger.Info("Purged sent outbox entries", zap.Int64("deleted", deleted), zap.Time("cutoff", cutoff))
	}
}
