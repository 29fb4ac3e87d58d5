package persistence

import (
	"context"
	"time"

	"github.com/flipflop/backend/internal/domain/shared"
	"gorm.io/gorm"
)

const nextSequenceSQL = `INSERT INTO document_sequences (prefix, year, value) VALUES (?, ?, 1)
ON CONFLICT (prefix, year) DO UPDATE SET value = document_sequences.value + 1
RETURNING value`

// nextDocumentNumber atomically allocates the next PREFIX-YYYY-NNNNNN number.
// The counter restarts every calendar year.
func nextDocumentNumber(ctx context.Context, db *gorm.DB, prefix string, at time.Time) (string, error) {
	var value int64
	if err := db.WithContext(ctx).Raw(nextSequenceSQL, prefix, at.Year()).Scan(&value).Error; err != nil {
		return "", err
	}
	return shared.FormatDocumentNumber(prefix, at, value), nil
}
