// Package uuid generates scan run identifiers.
package uuid

import (
	"fmt"

	"github.com/google/uuid"
)

// Generator creates time-ordered UUID v7 scan IDs.
type Generator struct{}

// New creates a new Generator.
func New() *Generator {
	return &Generator{}
}

// NewScanID returns a UUID7 string; IDs sort by creation time.
func (Generator) NewScanID() (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", fmt.Errorf("generate scan id: %w", err)
	}
	return id.String(), nil
}
