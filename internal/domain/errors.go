package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrIncompatibleQuery signals a query structure without the expected bool shape.
	ErrIncompatibleQuery = errors.New("incompatible query")
	// ErrSchema signals a malformed mapping schema.
	ErrSchema = errors.New("invalid schema")
	// ErrNoData signals an aggregation over an empty result set.
	ErrNoData = errors.New("no data")
	// ErrNoDatasets signals a session without active datasets.
	ErrNoDatasets = errors.New("no active datasets")
	// ErrInvalidArgument signals a rejected caller-supplied value.
	ErrInvalidArgument = errors.New("invalid argument")
)

// SchemaError reports the mapping path that failed to decode.
type SchemaError struct {
	Path   string
	Reason string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("%s: %s: %s", ErrSchema.Error(), e.Path, e.Reason)
}

func (e *SchemaError) Unwrap() error { return ErrSchema }

// NewSchemaError creates a schema error for the given dotted path.
func NewSchemaError(path, reason string) error {
	return &SchemaError{Path: path, Reason: reason}
}
