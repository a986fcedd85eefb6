package form

import "fmt"

// Kind classifies why a request body was rejected.
type Kind string

const (
	KindInvalidBody            Kind = "invalid_body"
	KindMissingField           Kind = "missing_field"
	KindInvalidType            Kind = "invalid_type"
	KindInvalidEmail           Kind = "invalid_email"
	KindEmptyAfterSanitization Kind = "empty_after_sanitization"
)

// ValidationError is a client-caused rejection. Field is empty for
// body-level problems.
type ValidationError struct {
	Kind  Kind
	Field string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("validation: %s", e.Kind)
	}
	return fmt.Sprintf("validation: %s: %s", e.Kind, e.Field)
}

// Message returns the client-facing description of the rejection.
func (e *ValidationError) Message() string {
	switch e.Kind {
	case KindInvalidBody:
		return "Invalid request body"
	case KindInvalidEmail:
		return "Invalid email format"
	case KindEmptyAfterSanitization:
		return "Name and message cannot be empty"
	default:
		return "Missing or invalid required fields"
	}
}

func fieldError(kind Kind, field string) *ValidationError {
	return &ValidationError{Kind: kind, Field: field}
}
