package event

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/flipflop/backend/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

var insertOutbox = regexp.QuoteMeta(`INSERT INTO "outbox_events"`)

// returned fills the columns postgres reports back through RETURNING
func returned(n int) *sqlmock.Rows {
	rows := sqlmock.NewRows([]string{"created_at", "updated_at"})
	now := time.Now()
	for range n {
		rows.AddRow(now, now)
	}
	return rows
}

func newPublisher() *OutboxPublisher {
	s := NewEventSerializer()
	RegisterAllEvents(s)
	return NewOutboxPublisher(s)
}

func TestOutboxPublisher_WritesInsideTransaction(t *testing.T) {
	db, mock := mockGorm(t)
	ev := orderCreated()

	mock.ExpectBegin()
	mock.ExpectQuery(insertOutbox).WillReturnRows(returned(1))
	mock.ExpectCommit()

	err := db.Transaction(func(tx *gorm.DB) error {
		return newPublisher().SaveEvents(context.Background(), tx, ev)
	})

	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOutboxPublisher_BatchesEvents(t *testing.T) {
	db, mock := mockGorm(t)

	mock.ExpectBegin()
	mock.ExpectQuery(insertOutbox).WillReturnRows(returned(3))
	mock.ExpectCommit()

	err := db.Transaction(func(tx *gorm.DB) error {
		return newPublisher().Append(context.Background(), tx, orderCreated(), orderCreated(), orderPaid())
	})

	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOutboxPublisher_NoEventsNoWrite(t *testing.T) {
	db, mock := mockGorm(t)

	mock.ExpectBegin()
	mock.ExpectCommit()

	err := db.Transaction(func(tx *gorm.DB) error {
		return newPublisher().Append(context.Background(), tx)
	})

	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOutboxPublisher_RolledBackWithAggregate(t *testing.T) {
	db, mock := mockGorm(t)
	errStock := errors.New("insufficient stock")

	mock.ExpectBegin()
	mock.ExpectQuery(insertOutbox).WillReturnRows(returned(1))
	mock.ExpectRollback()

	err := db.Transaction(func(tx *gorm.DB) error {
		if err := newPublisher().Append(context.Background(), tx, orderCreated()); err != nil {
			return err
		}
		return errStock
	})

	assert.ErrorIs(t, err, errStock)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOutboxPublisher_NilEventAbortsBeforeWrite(t *testing.T) {
	db, mock := mockGorm(t)

	err := newPublisher().Append(context.Background(), db, orderCreated(), nil)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "event 1")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOutboxPublisher_RejectsForeignTransaction(t *testing.T) {
	err := newPublisher().SaveEvents(context.Background(), "not-a-tx", orderCreated())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "string")

	assert.NoError(t, newPublisher().SaveEvents(context.Background(), "ignored", []shared.DomainEvent{}...))
}
