package session

import "github.com/componenthub/hubauth/pkg/identity"

// Codes reported by resolver actions besides the identity provider codes.
const (
	CodePermissionDenied = "permission-denied"
	CodeInvalidArgument  = "invalid-argument"
	CodeNotFound         = "not-found"
	CodeUnavailable      = "unavailable"
)

// Result is the outcome of a resolver action.
type Result struct {
	Success bool   `json:"success"`
	Code    string `json:"code,omitempty"`
	Error   string `json:"error,omitempty"`
}

// OK is the successful Result.
func OK() Result {
	return Result{Success: true}
}

// Fail builds a failed Result from an identity error.
func Fail(err error) Result {
	return Result{Code: string(identity.CodeOf(err)), Error: err.Error()}
}

func failCode(code, msg string) Result {
	return Result{Code: code, Error: msg}
}
