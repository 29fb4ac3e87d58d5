package models

import (
	"time"

	"github.com/flipflop/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// BaseModel holds the identity and timestamp columns every table shares
type BaseModel struct {
	ID        uuid.UUID `gorm:"type:uuid;primary_key"`
	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

func (m *BaseModel) entity() shared.BaseEntity {
	return shared.BaseEntity{ID: m.ID, CreatedAt: m.CreatedAt, UpdatedAt: m.UpdatedAt}
}

func (m *BaseModel) setEntity(e shared.BaseEntity) {
	m.ID, m.CreatedAt, m.UpdatedAt = e.ID, e.CreatedAt, e.UpdatedAt
}

// AggregateModel adds the optimistic lock column. Order saves update with
// WHERE version = ? and treat zero affected rows as a concurrency conflict.
type AggregateModel struct {
	BaseModel
	Version int `gorm:"not null;default:1"`
}

func (m *AggregateModel) setAggregate(a shared.BaseAggregateRoot) {
	m.setEntity(a.BaseEntity)
	m.Version = a.Version
}

func (m *AggregateModel) loadAggregate(a *shared.BaseAggregateRoot) {
	a.BaseEntity = m.entity()
	a.Version = m.Version
}
