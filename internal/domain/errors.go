package domain

import (
	"errors"
	"fmt"
)

var (
	ErrSessionInvalid    = errors.New("session invalid")
	ErrUpstream          = errors.New("upstream request failed")
	ErrMalformedPayload  = errors.New("malformed payload")
	ErrUnknownField      = errors.New("unknown status field")
	ErrGateLocked        = errors.New("workflow stage locked")
	ErrNotFound          = errors.New("not found")
	ErrInvalidInput      = errors.New("invalid input")
	ErrUnsupportedUpload = errors.New("unsupported upload")
)

// PayloadError reports a backend response that failed schema validation.
type PayloadError struct {
	Kind   string
	Fields []string
	Err    error
}

func (e *PayloadError) Error() string {
	if len(e.Fields) > 0 {
		return fmt.Sprintf("malformed %s payload: invalid fields %v", e.Kind, e.Fields)
	}
	return fmt.Sprintf("malformed %s payload: %v", e.Kind, e.Err)
}

func (e *PayloadError) Is(target error) bool {
	return target == ErrMalformedPayload
}

func (e *PayloadError) Unwrap() error {
	return e.Err
}

// FieldError reports client-side input validation failures.
type FieldError struct {
	Field   string
	Message string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e *FieldError) Is(target error) bool {
	return target == ErrInvalidInput
}
