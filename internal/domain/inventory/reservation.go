package inventory

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// ReservationStatus is the lifecycle state of a stock reservation
type ReservationStatus string

const (
	ReservationReserved  ReservationStatus = "reserved"
	ReservationCommitted ReservationStatus = "committed"
	ReservationReleased  ReservationStatus = "released"
)

// Line is a quantity of one product (or variant) held for an order
type Line struct {
	ProductID uuid.UUID  `json:"product_id"`
	VariantID *uuid.UUID `json:"variant_id,omitempty"`
	Quantity  int        `json:"quantity"`
}

// StockReservation holds stock for exactly one order
type StockReservation struct {
	ID          uuid.UUID
	OrderID     uuid.UUID
	Status      ReservationStatus
	Lines       []Line
	ReservedAt  time.Time
	CommittedAt *time.Time
	ReleasedAt  *time.Time
}

// IsActive reports whether the reservation still holds stock
func (r *StockReservation) IsActive() bool {
	return r.Status == ReservationReserved
}

// ReservationStore reserves and releases catalog stock for orders.
//
// Reserve is idempotent per order: reserving an order that already has a
// reservation returns it unchanged. Tracked products are decremented with a
// stock >= quantity guard; any shortfall fails the whole reservation with
// shared.ErrInsufficientStock. Release restores stock at most once. Commit
// finalises a reservation once goods ship.
type ReservationStore interface {
	Reserve(ctx context.Context, orderID uuid.UUID, lines []Line) (*StockReservation, error)
	Release(ctx context.Context, orderID uuid.UUID) error
	Commit(ctx context.Context, orderID uuid.UUID) error
	Restock(ctx context.Context, orderID uuid.UUID) error
	Find(ctx context.Context, orderID uuid.UUID) (*StockReservation, error)
}

// MergeLines sums quantities of lines that refer to the same product and
// variant, keeping first-seen order. Non-positive quantities are dropped.
func MergeLines(lines []Line) []Line {
	type key struct {
		product uuid.UUID
		variant uuid.UUID
	}
	index := make(map[key]int, len(lines))
	out := make([]Line, 0, len(lines))
	for _, l := range lines {
		if l.Quantity <= 0 {
			continue
		}
		k := key{product: l.ProductID}
		if l.VariantID != nil {
			k.variant = *l.VariantID
		}
		if i, ok := index[k]; ok {
			out[i].Quantity += l.Quantity
			continue
		}
		index[k] = len(out)
		out = append(out, l)
	}
	return out
}
