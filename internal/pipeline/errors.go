package pipeline

import (
	"errors"
	"fmt"
)

// SchemaError reports a required input column missing from a source dataset.
// It is fatal for the owning source stage only; sibling stages keep running.
type SchemaError struct {
	Source string
	Column string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("source %s: required column %q not found", e.Source, e.Column)
}

// requireColumns returns a SchemaError for the first missing column.
func requireColumns(t interface{ HasColumns(...string) bool }, source string, columns ...string) error {
	for _, col := range columns {
		if !t.HasColumns(col) {
			return &SchemaError{Source: source, Column: col}
		}
	}
	return nil
}

// IsSchemaError reports whether err is (or wraps) a SchemaError.
func IsSchemaError(err error) bool {
	var se *SchemaError
	return errors.As(err, &se)
}
