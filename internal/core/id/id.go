// Package id provides UUIDv7 identifiers for documents, lines and movements.
package id

import (
	"fmt"

	"github.com/google/uuid"
)

// ID is a type alias for UUID, used across all entities.
type ID = uuid.UUID

// New generates a time-ordered UUIDv7 so document rows sort by creation.
func New() ID {
	v, err := uuid.NewV7()
	if err != nil {
		return uuid.New()
	}
	return v
}

// Parse converts string to ID with validation.
func Parse(s string) (ID, error) {
	return uuid.Parse(s)
}

// ParseAll parses a list of identifiers, failing on the first bad entry.
func ParseAll(values []string) ([]ID, error) {
	out := make([]ID, 0, len(values))
	for i, s := range values {
		v, err := uuid.Parse(s)
		if err != nil {
			return nil, fmt.Errorf("element %d: %w", i, err)
		}
		out = append(out, v)
	}
	return out, nil
}

// MustParse converts string to ID, panics on error.
// Use only for constants and tests.
func MustParse(s string) ID {
	return uuid.MustParse(s)
}

// IsNil checks if ID is zero-value.
func IsNil(v ID) bool {
	return v == uuid.Nil
}
