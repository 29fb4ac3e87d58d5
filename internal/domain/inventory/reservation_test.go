package inventory

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestMergeLines(t *testing.T) {
	p1, p2 := uuid.New(), uuid.New()
	v1 := uuid.New()

	got := MergeLines([]Line{
		{ProductID: p1, Quantity: 1},
		{ProductID: p2, Quantity: 2},
		{ProductID: p1, VariantID: &v1, Quantity: 4},
		{ProductID: p1, Quantity: 3},
		{ProductID: p2, Quantity: 0},
	})

	assert.Equal(t, []Line{
		{ProductID: p1, Quantity: 4},
		{ProductID: p2, Quantity: 2},
		{ProductID: p1, VariantID: &v1, Quantity: 4},
	}, got)
}

func TestStockReservation_IsActive(t *testing.T) {
	r := &StockReservation{Status: ReservationReserved}
	assert.True(t, r.IsActive())
	r.Status = ReservationReleased
	assert.False(t, r.IsActive())
}
