package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
)

// JSON stores an arbitrary value in a jsonb column
type JSON[T any] struct {
	Data T
}

// NewJSON wraps v for storage
func NewJSON[T any](v T) JSON[T] {
	return JSON[T]{Data: v}
}

// Value implements driver.Valuer
func (j JSON[T]) Value() (driver.Value, error) {
	b, err := json.Marshal(j.Data)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements sql.Scanner
func (j *JSON[T]) Scan(value any) error {
	var raw []byte
	switch v := value.(type) {
	case nil:
		var zero T
		j.Data = zero
		return nil
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return errors.New("models: unsupported JSON column type")
	}
	if len(raw) == 0 {
		var zero T
		j.Data = zero
		return nil
	}
	return json.Unmarshal(raw, &j.Data)
}
