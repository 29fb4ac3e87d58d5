package models

import (
	"time"

	"github.com/flipflop/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// OutboxEntryModel is a row of outbox_events. Its fields mirror
// shared.OutboxEntry one for one so the two convert directly; the
// timestamps default in the database and come back through RETURNING.
type OutboxEntryModel struct {
	ID      uuid.UUID `gorm:"type:uuid;primaryKey"`
	EventID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_outbox_events_event_id"`

	EventType     string    `gorm:"type:varchar(255);not null"`
	AggregateID   uuid.UUID `gorm:"type:uuid;not null"`
	AggregateType string    `gorm:"type:varchar(255);not null"`
	Payload       []byte    `gorm:"type:jsonb;not null"`

	Status      shared.OutboxStatus `gorm:"type:varchar(20);not null;default:PENDING;index:idx_outbox_status_created,priority:1"`
	RetryCount  int                 `gorm:"not null;default:0"`
	MaxRetries  int                 `gorm:"not null;default:5"`
	LastError   string              `gorm:"type:text"`
	NextRetryAt *time.Time          `gorm:"index:idx_outbox_next_retry"`
	ProcessedAt *time.Time

	CreatedAt time.Time `gorm:"not null;default:now();index:idx_outbox_status_created,priority:2"`
	UpdatedAt time.Time `gorm:"not null;default:now()"`
}

func (OutboxEntryModel) TableName() string { return "outbox_events" }

// ToDomain maps the row back to an outbox entry
func (m *OutboxEntryModel) ToDomain() *shared.OutboxEntry {
	e := shared.OutboxEntry(*m)
	return &e
}

// OutboxEntryModelFromDomain maps an outbox entry to its row
func OutboxEntryModelFromDomain(e *shared.OutboxEntry) *OutboxEntryModel {
	m := OutboxEntryModel(*e)
	return &m
}
