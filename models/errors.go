package models

import "fmt"

// ShapeError reports a structurally invalid activity batch: a required
// column is missing, or the columns have different lengths. It is raised
// before any aggregation work and there is no partial-result mode.
type ShapeError struct {
	Field  string // the offending column, empty for a length mismatch
	Reason string
}

func (e *ShapeError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("invalid batch shape: column '%s' %s", e.Field, e.Reason)
	}
	return fmt.Sprintf("invalid batch shape: %s", e.Reason)
}

// MissingColumn builds a ShapeError for an absent required column.
func MissingColumn(field string) *ShapeError {
	return &ShapeError{Field: field, Reason: "is required"}
}
