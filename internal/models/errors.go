package models

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for batch validation.
var (
	ErrMissingTenant = errors.New("comp_code is required")
	ErrMixedTenants  = errors.New("all entries in a batch must share one comp_code")
	ErrEmptyBatch    = errors.New("batch must contain at least 1 entry")
	ErrBatchTooLarge = fmt.Errorf("batch exceeds maximum of %d entries", MaxBatchSize)

	ErrMetadataNotObject = errors.New("metadata must be a JSON object")
)

// ErrFieldTooLong returns an error indicating a field exceeds its maximum length.
func ErrFieldTooLong(field string, maxLen int) error {
	return fmt.Errorf("%s exceeds maximum length of %d", field, maxLen)
}

// FieldError names one offending input field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError collects every field-level problem found in a request.
type ValidationError struct {
	Fields []FieldError
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	parts := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		parts[i] = f.Field + ": " + f.Message
	}

	return "validation failed: " + strings.Join(parts, "; ")
}

// Add records a problem with field.
func (e *ValidationError) Add(field string, err error) {
	e.Fields = append(e.Fields, FieldError{Field: field, Message: err.Error()})
}

// OrNil returns e as an error when it holds at least one field, nil otherwise.
func (e *ValidationError) OrNil() error {
	if len(e.Fields) == 0 {
		return nil
	}

	return e
}
