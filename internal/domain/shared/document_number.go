package shared

import (
	"fmt"
	"time"
)

// FormatDocumentNumber renders a yearly sequence number as PREFIX-YYYY-NNNNNN
func FormatDocumentNumber(prefix string, at time.Time, seq int64) string {
	return fmt.Sprintf("%s-%d-%06d", prefix, at.Year(), seq)
}
