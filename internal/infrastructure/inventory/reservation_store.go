package inventory

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/flipflop/backend/internal/domain/inventory"
	"github.com/flipflop/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"
)

// DB is the subset of pgxpool.Pool the store needs
type DB interface {
	BeginTx(ctx context.Context, txOptions pgx.TxOptions) (pgx.Tx, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

const (
	insertReservationSQL = `INSERT INTO stock_reservations (id, order_id, status, lines, reserved_at)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (order_id) DO NOTHING`

	selectReservationSQL = `SELECT id, order_id, status, lines, reserved_at, committed_at, released_at
FROM stock_reservations WHERE order_id = $1`

	selectTrackingSQL = `SELECT track_inventory FROM products WHERE id = $1`

	decrementProductSQL = `UPDATE products SET stock_quantity = stock_quantity - $1, updated_at = $3
WHERE id = $2 AND stock_quantity >= $1`

	decrementVariantSQL = `UPDATE product_variants SET stock_quantity = stock_quantity - $1, updated_at = $4
WHERE id = $2 AND product_id = $3 AND stock_quantity >= $1`

	incrementProductSQL = `UPDATE products SET stock_quantity = stock_quantity + $1, updated_at = $3 WHERE id = $2`

	incrementVariantSQL = `UPDATE product_variants SET stock_quantity = stock_quantity + $1, updated_at = $4
WHERE id = $2 AND product_id = $3`

	releaseSQL = `UPDATE stock_reservations SET status = 'released', released_at = $2
WHERE order_id = $1 AND status = ANY($3)
RETURNING lines`

	commitSQL = `UPDATE stock_reservations SET status = 'committed', committed_at = $2
WHERE order_id = $1 AND status = 'reserved'`
)

// PgReservationStore implements inventory.ReservationStore on PostgreSQL
type PgReservationStore struct {
	db     DB
	logger *zap.Logger
}

// NewPgReservationStore creates a reservation store
func NewPgReservationStore(db DB, logger *zap.Logger) *PgReservationStore {
	return &PgReservationStore{db: db, logger: logger}
}

// Reserve holds stock for an order. A second call for the same order returns
// the existing reservation without touching stock.
func (s *PgReservationStore) Reserve(ctx context.Context, orderID uuid.UUID, lines []inventory.Line) (*inventory.StockReservation, error) {
	lines = inventory.MergeLines(lines)
	if len(lines) == 0 {
		return nil, shared.NewDomainError("INVALID_INPUT", "Reservation needs at least one line")
	}

	payload, err := json.Marshal(lines)
	if err != nil {
		return nil, fmt.Errorf("failed to encode reservation lines: %w", err)
	}

	now := time.Now().UTC()
	res := &inventory.StockReservation{
		ID:         uuid.New(),
		OrderID:    orderID,
		Status:     inventory.ReservationReserved,
		Lines:      lines,
		ReservedAt: now,
	}

	var existing bool
	err = s.inTx(ctx, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, insertReservationSQL, res.ID, orderID, string(res.Status), payload, now)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			existing = true
			return nil
		}
		for _, l := range lines {
			if err := decrement(ctx, tx, l, now); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if existing {
		s.logger.Debug("Reservation already exists", zap.String("order_id", orderID.String()))
		return s.Find(ctx, orderID)
	}
	s.logger.Info("Stock reserved",
		zap.String("order_id", orderID.String()),
		zap.Int("lines", len(lines)),
	)
	return res, nil
}

// Release returns the stock of an active reservation. Releasing a missing or
// already finished reservation is a no-op.
func (s *PgReservationStore) Release(ctx context.Context, orderID uuid.UUID) error {
	return s.restore(ctx, orderID, []string{string(inventory.ReservationReserved)})
}

// Restock returns the stock of a reservation, including one already committed
// by shipment
func (s *PgReservationStore) Restock(ctx context.Context, orderID uuid.UUID) error {
	return s.restore(ctx, orderID, []string{
		string(inventory.ReservationReserved),
		string(inventory.ReservationCommitted),
	})
}

func (s *PgReservationStore) restore(ctx context.Context, orderID uuid.UUID, from []string) error {
	now := time.Now().UTC()
	restored := 0
	err := s.inTx(ctx, func(tx pgx.Tx) error {
		var payload []byte
		err := tx.QueryRow(ctx, releaseSQL, orderID, now, from).Scan(&payload)
		if errors.Is(err, pgx.ErrNoRows) {
			return nil
		}
		if err != nil {
			return err
		}
		var lines []inventory.Line
		if err := json.Unmarshal(payload, &lines); err != nil {
			return fmt.Errorf("failed to decode reservation lines: %w", err)
		}
		for _, l := range lines {
			if err := increment(ctx, tx, l, now); err != nil {
				return err
			}
		}
		restored = len(lines)
		return nil
	})
	if err != nil {
		return err
	}
	if restored > 0 {
		s.logger.Info("Stock released",
			zap.String("order_id", orderID.String()),
			zap.Int("lines", restored),
		)
	}
	return nil
}

// Commit finalises an active reservation. Committing twice is a no-op;
// committing a released reservation fails with shared.ErrInvalidState.
func (s *PgReservationStore) Commit(ctx context.Context, orderID uuid.UUID) error {
	return s.inTx(ctx, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, commitSQL, orderID, time.Now().UTC())
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 1 {
			return nil
		}
		res, err := scanReservation(tx.QueryRow(ctx, selectReservationSQL, orderID))
		if err != nil {
			return err
		}
		if res.Status == inventory.ReservationReleased {
			return shared.ErrInvalidState
		}
		return nil
	})
}

// Find returns the reservation of an order
func (s *PgReservationStore) Find(ctx context.Context, orderID uuid.UUID) (*inventory.StockReservation, error) {
	return scanReservation(s.db.QueryRow(ctx, selectReservationSQL, orderID))
}

func (s *PgReservationStore) inTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func decrement(ctx context.Context, tx pgx.Tx, l inventory.Line, now time.Time) error {
	tracked, err := isTracked(ctx, tx, l.ProductID)
	if err != nil || !tracked {
		return err
	}

	var tag pgconn.CommandTag
	if l.VariantID != nil {
		tag, err = tx.Exec(ctx, decrementVariantSQL, l.Quantity, *l.VariantID, l.ProductID, now)
	} else {
		tag, err = tx.Exec(ctx, decrementProductSQL, l.Quantity, l.ProductID, now)
	}
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrInsufficientStock
	}
	return nil
}

func increment(ctx context.Context, tx pgx.Tx, l inventory.Line, now time.Time) error {
	tracked, err := isTracked(ctx, tx, l.ProductID)
	if errors.Is(err, shared.ErrNotFound) {
		// product was deleted after the reservation
		return nil
	}
	if err != nil || !tracked {
		return err
	}
	if l.VariantID != nil {
		_, err = tx.Exec(ctx, incrementVariantSQL, l.Quantity, *l.VariantID, l.ProductID, now)
	} else {
		_, err = tx.Exec(ctx, incrementProductSQL, l.Quantity, l.ProductID, now)
	}
	return err
}

func isTracked(ctx context.Context, tx pgx.Tx, productID uuid.UUID) (bool, error) {
	var tracked bool
	err := tx.QueryRow(ctx, selectTrackingSQL, productID).Scan(&tracked)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, shared.ErrNotFound
	}
	return tracked, err
}

func scanReservation(row pgx.Row) (*inventory.StockReservation, error) {
	var (
		res     inventory.StockReservation
		status  string
		payload []byte
	)
	err := row.Scan(&res.ID, &res.OrderID, &status, &payload, &res.ReservedAt, &res.CommittedAt, &res.ReleasedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, shared.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	res.Status = inventory.ReservationStatus(status)
	if err := json.Unmarshal(payload, &res.Lines); err != nil {
		return nil, fmt.Errorf("failed to decode reservation lines: %w", err)
	}
	return &res, nil
}

var _ inventory.ReservationStore = (*PgReservationStore)(nil)
