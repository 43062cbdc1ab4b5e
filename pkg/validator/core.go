package validator

import (
	"errors"
	"fmt"
	"strings"
)

// ValidationError is a single failed rule.
type ValidationError struct {
	Field          string
	Message        string
	TranslationKey string
}

// ValidationErrors is the error returned by Apply and ApplyFirst.
type ValidationErrors []ValidationError

func (ve ValidationErrors) Error() string {
	if len(ve) == 0 {
		return "validation failed"
	}
	parts := make([]string, 0, len(ve))
	for _, err := range ve {
		parts = append(parts, fmt.Sprintf("%s: %s", err.Field, err.Message))
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

func (ve ValidationErrors) Has(field string) bool {
	for _, err := range ve {
		if err.Field == field {
			return true
		}
	}
	return false
}

// Get returns the first message reported for field, or "".
func (ve ValidationErrors) Get(field string) string {
	for _, err := range ve {
		if err.Field == field {
			return err.Message
		}
	}
	return ""
}

func (ve ValidationErrors) Fields() []string {
	var fields []string
	seen := make(map[string]bool)
	for _, err := range ve {
		if !seen[err.Field] {
			fields = append(fields, err.Field)
			seen[err.Field] = true
		}
	}
	return fields
}

// Map flattens the errors to field → first message.
func (ve ValidationErrors) Map() map[string]string {
	m := make(map[string]string, len(ve))
	for _, err := range ve {
		if _, ok := m[err.Field]; !ok {
			m[err.Field] = err.Message
		}
	}
	return m
}

func (ve ValidationErrors) IsEmpty() bool {
	return len(ve) == 0
}

// Rule represents a single validation rule.
type Rule struct {
	Check func() bool
	Error ValidationError
}

// WithMessage returns a copy of r reporting msg on failure.
func (r Rule) WithMessage(msg string) Rule {
	r.Error.Message = msg
	return r
}

// Apply executes every rule and returns all failures.
func Apply(rules ...Rule) error {
	var errs ValidationErrors
	for _, rule := range rules {
		if !rule.Check() {
			errs = append(errs, rule.Error)
		}
	}
	if errs.IsEmpty() {
		return nil
	}
	return errs
}

// ApplyFirst executes rules in order and skips the remaining rules of a field
// once that field has failed.
func ApplyFirst(rules ...Rule) error {
	var errs ValidationErrors
	for _, rule := range rules {
		if errs.Has(rule.Error.Field) {
			continue
		}
		if !rule.Check() {
			errs = append(errs, rule.Error)
		}
	}
	if errs.IsEmpty() {
		return nil
	}
	return errs
}

// When returns rules only if cond holds.
func When(cond bool, rules ...Rule) []Rule {
	if !cond {
		return nil
	}
	return rules
}

// ExtractValidationErrors returns the ValidationErrors wrapped in err, if any.
func ExtractValidationErrors(err error) ValidationErrors {
	var ve ValidationErrors
	if errors.As(err, &ve) {
		return ve
	}
	return nil
}

func IsValidationError(err error) bool {
	var ve ValidationErrors
	return errors.As(err, &ve)
}
