package identity

import (
	"errors"
	"fmt"
)

// Code is a stable provider error code.
type Code string

const (
	CodeUserNotFound      Code = "auth/user-not-found"
	CodeWrongPassword     Code = "auth/wrong-password"
	CodeEmailAlreadyInUse Code = "auth/email-already-in-use"
	CodeWeakPassword      Code = "auth/weak-password"
	CodeInvalidEmail      Code = "auth/invalid-email"
	CodeTooManyRequests   Code = "auth/too-many-requests"
	CodePopupClosed       Code = "auth/popup-closed-by-user"
	CodeCancelledPopup    Code = "auth/cancelled-popup-request"
	CodeNotSupported      Code = "auth/operation-not-supported"
	CodeInternal          Code = "auth/internal-error"
)

// Error is the error type every Gateway operation returns.
type Error struct {
	Code Code
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return string(e.Code)
	}
	return fmt.Sprintf("%s: %v", e.Code, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches another *Error by code.
func (e *Error) Is(target error) bool {
	var t *Error
	if errors.As(target, &t) {
		return t.Code == e.Code
	}
	return false
}

func newError(code Code, err error) *Error {
	return &Error{Code: code, Err: err}
}

// CodeOf returns the provider code of err, CodeInternal for foreign errors
// and "" for nil.
func CodeOf(err error) Code {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeInternal
}

// Store-level errors.
var (
	ErrAccountNotFound = errors.New("identity: account not found")
	ErrEmailTaken      = errors.New("identity: email already registered")
	ErrProviderLinked  = errors.New("identity: provider account already linked")
	ErrStateNotFound   = errors.New("identity: oauth state not found or expired")
	ErrNoEmail         = errors.New("identity: provider returned no email")
	ErrExchangeFailed  = errors.New("identity: oauth code exchange failed")
	ErrUnverifiedEmail = errors.New("identity: provider email is not verified")
)
