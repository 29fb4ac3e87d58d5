package sales

import (
	"context"
	"fmt"
	"time"

	"github.com/flipflop/backend/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// Saga names, used in idempotency keys, metrics and logs
const (
	SagaCheckout       = "checkout"
	SagaPaymentInit    = "payment_init"
	SagaPaymentWebhook = "payment_webhook"
	SagaStatusChange   = "status_change"
	SagaCustomerCancel = "customer_cancel"
)

const (
	outcomeCompleted = "completed"
	outcomeFailed    = "failed"
	outcomeDuplicate = "duplicate"
	outcomeConflict  = "conflict"

	compensationTimeout = 30 * time.Second

	defaultSettleAttempts = 3
	defaultSettleDelay    = 200 * time.Millisecond
)

// Step is one unit of work of a saga. Compensate undoes Execute and may be
// nil. A failing best-effort step is logged and the saga carries on.
//
// A Pivot step cannot be undone. Once it completes nothing is compensated
// any more: a later step that fails is retried and, if it still fails, the
// saga stops with the work done so far kept.
type Step struct {
	Name       string
	Execute    func(ctx context.Context) error
	Compensate func(ctx context.Context) error
	BestEffort bool
	Pivot      bool
}

// SagaRecorder receives saga metrics
type SagaRecorder interface {
	SagaRun(saga, outcome string, elapsed time.Duration)
	Compensation(saga, step string, err error)
	ConflictRetry(saga string)
	Transition(from, to string)
	OrderPlaced(total float64)
	Webhook(provider, status string)
}

type nopRecorder struct{}

func (nopRecorder) SagaRun(string, string, time.Duration) {}
func (nopRecorder) Compensation(string, string, error)    {}
func (nopRecorder) ConflictRetry(string)                  {}
func (nopRecorder) Transition(string, string)             {}
func (nopRecorder) OrderPlaced(float64)                   {}
func (nopRecorder) Webhook(string, string)                {}

// StepError is returned when a saga step fails. It unwraps to the step's
// error so domain error codes survive.
type StepError struct {
	Saga string
	Step string
	Err  error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("saga %s: step %s: %v", e.Saga, e.Step, e.Err)
}

func (e *StepError) Unwrap() error { return e.Err }

type sagaRunner struct {
	logger   *zap.Logger
	recorder SagaRecorder
	// attempts and delay of a step that fails after the pivot
	settleAttempts int
	settleDelay    time.Duration
}

func newSagaRunner(logger *zap.Logger, recorder SagaRecorder) *sagaRunner {
	return &sagaRunner{
		logger:         logger,
		recorder:       recorder,
		settleAttempts: defaultSettleAttempts,
		settleDelay:    defaultSettleDelay,
	}
}

// run executes steps in order. On the first failing step every completed
// step is compensated in reverse order and the original error is returned.
// After a pivot step the failing step is retried instead.
func (r *sagaRunner) run(ctx context.Context, saga string, orderID uuid.UUID, steps []Step) (err error) {
	ctx, span := telemetry.StartSpan(ctx, "saga."+saga,
		attribute.String("saga.name", saga),
		attribute.String("order.id", orderID.String()),
	)
	defer func() { telemetry.EndSpan(span, err) }()

	log := r.logger.With(zap.String("saga", saga), zap.String("order_id", orderID.String()))
	completed := make([]Step, 0, len(steps))
	pivoted := false

	telemetry.WithProfilingLabels(ctx, map[string]string{"saga": saga}, func(ctx context.Context) {
		for _, step := range steps {
			stepErr := step.Execute(ctx)
			if stepErr != nil && pivoted && !step.BestEffort {
				stepErr = r.settle(ctx, step, stepErr, log)
			}
			if stepErr == nil {
				completed = append(completed, step)
				pivoted = pivoted || step.Pivot
				continue
			}
			if step.BestEffort {
				log.Warn("Best-effort saga step failed", zap.String("step", step.Name), zap.Error(stepErr))
				continue
			}
			if pivoted {
				log.Error("Saga step failed after the point of no return, manual follow-up required",
					zap.String("step", step.Name),
					zap.Error(stepErr),
				)
				err = &StepError{Saga: saga, Step: step.Name, Err: stepErr}
				return
			}
			log.Error("Saga step failed, compensating",
				zap.String("step", step.Name),
				zap.Int("completed_steps", len(completed)),
				zap.Error(stepErr),
			)
			err = &StepError{Saga: saga, Step: step.Name, Err: stepErr}
			r.compensate(ctx, saga, completed, log)
			return
		}
	})
	return err
}

// settle retries a step that failed after the pivot
func (r *sagaRunner) settle(ctx context.Context, step Step, err error, log *zap.Logger) error {
	for attempt := 1; attempt < r.settleAttempts; attempt++ {
		log.Warn("Retrying saga step", zap.String("step", step.Name), zap.Int("attempt", attempt+1), zap.Error(err))
		select {
		case <-ctx.Done():
			return err
		case <-time.After(r.settleDelay * time.Duration(attempt)):
		}
		if err = step.Execute(ctx); err == nil {
			return nil
		}
	}
	return err
}

func (r *sagaRunner) compensate(ctx context.Context, saga string, completed []Step, log *zap.Logger) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), compensationTimeout)
	defer cancel()

	for i := len(completed) - 1; i >= 0; i-- {
		step := completed[i]
		if step.Compensate == nil {
			continue
		}
		err := step.Compensate(ctx)
		r.recorder.Compensation(saga, step.Name, err)
		if err != nil {
			log.Error("Compensation failed", zap.String("step", step.Name), zap.Error(err))
			continue
		}
		log.Info("Step compensated", zap.String("step", step.Name))
	}
}

// sagaKey is the idempotency key of one saga run on an order
func sagaKey(orderID uuid.UUID, saga string, discriminator ...string) string {
	key := "order:" + orderID.String() + ":" + saga
	for _, d := range discriminator {
		if d != "" {
			key += ":" + d
		}
	}
	return key
}
