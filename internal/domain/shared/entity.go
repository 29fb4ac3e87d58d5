package shared

import (
	"time"

	"github.com/google/uuid"
)

// BaseEntity is the identity and audit timestamps every persisted entity has
type BaseEntity struct {
	ID        uuid.UUID
	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewBaseEntity assigns a random ID and stamps both timestamps with the same
// instant
func NewBaseEntity() BaseEntity {
	now := time.Now()
	return BaseEntity{ID: uuid.New(), CreatedAt: now, UpdatedAt: now}
}

// Touch records a modification and returns its time
func (e *BaseEntity) Touch() time.Time {
	e.UpdatedAt = time.Now()
	return e.UpdatedAt
}
