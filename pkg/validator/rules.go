package validator

import (
	"fmt"
	"regexp"
	"slices"
	"strings"
	"unicode/utf8"
)

// emailShape accepts anything that looks like text@text.text.
var emailShape = regexp.MustCompile(`\S+@\S+\.\S+`)

// Required fails on empty or whitespace-only values.
func Required(field, value string) Rule {
	return Rule{
		Check: func() bool { return strings.TrimSpace(value) != "" },
		Error: ValidationError{
			Field:          field,
			Message:        "field is required",
			TranslationKey: "validation.required",
		},
	}
}

// MinLen fails when value has fewer than min characters.
func MinLen(field, value string, min int) Rule {
	return Rule{
		Check: func() bool { return utf8.RuneCountInString(value) >= min },
		Error: ValidationError{
			Field:          field,
			Message:        fmt.Sprintf("must be at least %d characters long", min),
			TranslationKey: "validation.min_length",
		},
	}
}

// MaxLen fails when value has more than max characters.
func MaxLen(field, value string, max int) Rule {
	return Rule{
		Check: func() bool { return utf8.RuneCountInString(value) <= max },
		Error: ValidationError{
			Field:          field,
			Message:        fmt.Sprintf("must be at most %d characters long", max),
			TranslationKey: "validation.max_length",
		},
	}
}

// EmailShape checks the loose text@text.text shape used by sign-in forms.
// It is deliberately permissive; the identity provider has the final say.
func EmailShape(field, value string) Rule {
	return Rule{
		Check: func() bool { return emailShape.MatchString(value) },
		Error: ValidationError{
			Field:          field,
			Message:        "invalid email address",
			TranslationKey: "validation.email",
		},
	}
}

// OneOf fails when value is not in allowed.
func OneOf(field, value string, allowed ...string) Rule {
	return Rule{
		Check: func() bool { return slices.Contains(allowed, value) },
		Error: ValidationError{
			Field:          field,
			Message:        fmt.Sprintf("must be one of: %s", strings.Join(allowed, ", ")),
			TranslationKey: "validation.one_of",
		},
	}
}
