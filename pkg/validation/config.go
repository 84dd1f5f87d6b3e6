package validation

import (
	"errors"
	"fmt"
	"time"
)

// FieldError is one failed check, addressed as config.field.
type FieldError struct {
	Config string
	Field  string
	Msg    string
	Err    error
}

func (e *FieldError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s.%s: %v", e.Config, e.Field, e.Err)
	}
	return fmt.Sprintf("%s.%s: %s", e.Config, e.Field, e.Msg)
}

func (e *FieldError) Unwrap() error {
	return e.Err
}

// ConfigValidator provides a fluent interface for validating configuration values.
// It collects all validation errors rather than failing on the first one.
type ConfigValidator struct {
	name   string
	errors []error
}

// NewConfigValidator creates a validator whose errors are prefixed with name.
func NewConfigValidator(name string) *ConfigValidator {
	return &ConfigValidator{name: name}
}

func (cv *ConfigValidator) check(ok bool, field, format string, args ...any) *ConfigValidator {
	if !ok {
		cv.errors = append(cv.errors, &FieldError{Config: cv.name, Field: field, Msg: fmt.Sprintf(format, args...)})
	}
	return cv
}

// Required validates that a string field is not empty.
func (cv *ConfigValidator) Required(field, value string) *ConfigValidator {
	return cv.check(value != "", field, "required field is empty")
}

// MinDuration validates that a duration is at least min.
func (cv *ConfigValidator) MinDuration(field string, value, min time.Duration) *ConfigValidator {
	return cv.check(value >= min, field, "duration %v is below minimum %v", value, min)
}

// Positive validates that an int field is > 0.
func (cv *ConfigValidator) Positive(field string, value int) *ConfigValidator {
	return cv.check(value > 0, field, "value %d must be positive", value)
}

// NonNegative validates that an int field is >= 0.
func (cv *ConfigValidator) NonNegative(field string, value int) *ConfigValidator {
	return cv.check(value >= 0, field, "value %d must be non-negative", value)
}

// PositiveFloat validates that a float field is > 0.
func (cv *ConfigValidator) PositiveFloat(field string, value float64) *ConfigValidator {
	return cv.check(value > 0, field, "value %g must be positive", value)
}

// NonNegativeFloat validates that a float field is >= 0.
func (cv *ConfigValidator) NonNegativeFloat(field string, value float64) *ConfigValidator {
	return cv.check(value >= 0, field, "value %g must be non-negative", value)
}

// Custom records the error returned by fn, if any, against field.
func (cv *ConfigValidator) Custom(field string, fn func() error) *ConfigValidator {
	if err := fn(); err != nil {
		cv.errors = append(cv.errors, &FieldError{Config: cv.name, Field: field, Err: err})
	}
	return cv
}

// When applies validations only if condition holds.
func (cv *ConfigValidator) When(condition bool, validations func(*ConfigValidator)) *ConfigValidator {
	if condition {
		validations(cv)
	}
	return cv
}

// HasErrors returns true if any validation errors occurred.
func (cv *ConfigValidator) HasErrors() bool {
	return len(cv.errors) > 0
}

// Errors returns all validation errors.
func (cv *ConfigValidator) Errors() []error {
	return cv.errors
}

// Validate joins every collected error, or returns nil.
func (cv *ConfigValidator) Validate() error {
	return errors.Join(cv.errors...)
}

// DefaultOr returns value if it is non-zero, otherwise def.
func DefaultOr[T comparable](value, def T) T {
	var zero T
	if value == zero {
		return def
	}
	return value
}
