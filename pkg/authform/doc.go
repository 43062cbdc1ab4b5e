// Package authform validates the login and sign-up forms and dispatches
// them to the session resolver.
//
// Validation runs on Submit only. Errors are keyed by field; editing a
// field clears that field's error and nothing else. While a submission is
// in flight the controller reports Submitting and rejects a second Submit.
// Provider failures are shown as a form-level error using the fixed
// message table in Message.
package authform
