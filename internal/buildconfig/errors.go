package buildconfig

import (
	"errors"
	"fmt"
)

// ErrInvalidConfiguration is wrapped by every validation failure.
var ErrInvalidConfiguration = errors.New("invalid configuration")

// InvalidConfigurationError describes which field failed validation.
type InvalidConfigurationError struct {
	Field  string
	Value  any
	Reason string
}

func (e *InvalidConfigurationError) Error() string {
	return fmt.Sprintf("invalid configuration: %s %v: %s", e.Field, e.Value, e.Reason)
}

func (e *InvalidConfigurationError) Unwrap() error {
	return ErrInvalidConfiguration
}

func invalid(field string, value any, reason string) error {
	return &InvalidConfigurationError{Field: field, Value: value, Reason: reason}
}

// Invalid builds an error for a field supplied outside the provider, e.g. an env value
// that fails to parse.
func Invalid(field string, value any, reason string) error {
	return invalid(field, value, reason)
}
