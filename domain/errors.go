package domain

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound   = errors.New("not found")
	ErrValidation = errors.New("validation error")
)

// ValidationError reports a malformed input field. It matches ErrValidation
// under errors.Is.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

func NewValidationError(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

// NotFoundError wraps ErrNotFound with the entity that was missing.
func NotFoundError(entity, id string) error {
	return fmt.Errorf("%s %s: %w", entity, id, ErrNotFound)
}

// BatchSummary is returned by batch jobs; per-item failures are counted and
// listed, never propagated.
type BatchSummary struct {
	Job       string      `json:"job"`
	Processed int         `json:"processed"`
	Errors    int         `json:"errors"`
	Failed    []BatchFail `json:"failed,omitempty"`
}

type BatchFail struct {
	ID    string `json:"id"`
	Error string `json:"error"`
}

func (s *BatchSummary) Fail(id string, err error) {
	s.Errors++
	s.Failed = append(s.Failed, BatchFail{ID: id, Error: err.Error()})
}
