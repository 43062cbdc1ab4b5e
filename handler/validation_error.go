package handler

import (
	"fmt"
	"net/url"
	"sort"
	"strings"

	"github.com/componenthub/hubauth/pkg/validator"
)

// ValidationError holds field-keyed validation messages and renders as 422.
type ValidationError url.Values

func NewValidationError() ValidationError {
	return make(ValidationError)
}

// FromValidator converts validator errors, keeping their order per field.
func FromValidator(errs validator.ValidationErrors) ValidationError {
	ve := NewValidationError()
	for _, e := range errs {
		ve.Add(e.Field, e.Message)
	}
	return ve
}

func (e ValidationError) Error() string {
	if len(e) == 0 {
		return "Validation failed"
	}
	fields := make([]string, 0, len(e))
	for field := range e {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	parts := make([]string, 0, len(fields))
	for _, field := range fields {
		if msgs := e[field]; len(msgs) > 0 {
			parts = append(parts, fmt.Sprintf("%s: %s", field, msgs[0]))
		}
	}
	return "validation error: " + strings.Join(parts, ", ")
}

func (e ValidationError) Add(field, message string) {
	url.Values(e).Add(field, message)
}

// Get returns the first message for field.
func (e ValidationError) Get(field string) string {
	return url.Values(e).Get(field)
}

func (e ValidationError) Has(field string) bool {
	return len(e[field]) > 0
}

func (e ValidationError) IsEmpty() bool {
	return len(e) == 0
}
