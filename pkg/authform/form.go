package authform

import (
	"strings"

	"github.com/componenthub/hubauth/pkg/validator"
)

// Mode selects the login or the sign-up form.
type Mode uint8

const (
	ModeLogin Mode = iota
	ModeSignup
)

func (m Mode) String() string {
	if m == ModeSignup {
		return "signup"
	}
	return "login"
}

// ParseMode accepts "login" and "signup"; anything else is login.
func ParseMode(s string) Mode {
	if strings.EqualFold(s, "signup") {
		return ModeSignup
	}
	return ModeLogin
}

// Field names used as error keys.
const (
	FieldEmail    = "email"
	FieldPassword = "password"
	FieldName     = "name"

	// FieldSubmit carries the form-level error.
	FieldSubmit = "submit"
)

// MinPasswordLength is the shortest password the form accepts.
const MinPasswordLength = 6

// Form holds the input values.
type Form struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name,omitempty"`
}

// Validate checks f for mode and returns nil when it is valid. Each field
// reports its first failing rule only.
func (f Form) Validate(mode Mode) validator.ValidationErrors {
	err := validator.ApplyFirst(
		validator.Required(FieldEmail, f.Email).WithMessage(MsgEmailRequired),
		validator.EmailShape(FieldEmail, f.Email).WithMessage(MsgEmailInvalid),
		validator.Required(FieldPassword, f.Password).WithMessage(MsgPasswordRequired),
		validator.MinLen(FieldPassword, f.Password, MinPasswordLength).WithMessage(MsgPasswordShort),
		nameRule(mode, f.Name),
	)
	return validator.ExtractValidationErrors(err)
}

func nameRule(mode Mode, name string) validator.Rule {
	rule := validator.Required(FieldName, name).WithMessage(MsgNameRequired)
	if mode != ModeSignup {
		rule.Check = func() bool { return true }
	}
	return rule
}
