package audit

import (
	"fmt"
	"time"
)

// Result is the outcome of an audited action.
type Result string

const (
	ResultSuccess Result = "success"
	ResultFailure Result = "failure"
	ResultError   Result = "error"
)

// Common actions.
const (
	ActionSignIn     = "auth.sign_in"
	ActionSignUp     = "auth.sign_up"
	ActionSignOut    = "auth.sign_out"
	ActionOAuth      = "auth.oauth"
	ActionRoleChange = "user.role_changed"
)

// Event is a single audit log entry.
type Event struct {
	ID         string         `json:"id" bson:"_id"`
	UserID     string         `json:"user_id,omitempty" bson:"user_id,omitempty"`
	Action     string         `json:"action" bson:"action"`
	Resource   string         `json:"resource,omitempty" bson:"resource,omitempty"`
	ResourceID string         `json:"resource_id,omitempty" bson:"resource_id,omitempty"`
	Result     Result         `json:"result" bson:"result"`
	Error      string         `json:"error,omitempty" bson:"error,omitempty"`
	RequestID  string         `json:"request_id,omitempty" bson:"request_id,omitempty"`
	IP         string         `json:"ip,omitempty" bson:"ip,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty" bson:"metadata,omitempty"`
	CreatedAt  time.Time      `json:"created_at" bson:"created_at"`
}

// Validate checks that the event has the required fields.
func (e *Event) Validate() error {
	if e.Action == "" {
		return fmt.Errorf("%w: action is required", ErrEventValidation)
	}
	return nil
}

// EventOption customizes an Event passed to Log or LogError.
type EventOption func(*Event)

func WithResource(resource, id string) EventOption {
	return func(e *Event) {
		e.Resource = resource
		e.ResourceID = id
	}
}

// WithMetadata adds one key to the event metadata.
func WithMetadata(key string, value any) EventOption {
	return func(e *Event) {
		if e.Metadata == nil {
			e.Metadata = make(map[string]any)
		}
		e.Metadata[key] = value
	}
}

func WithResult(result Result) EventOption {
	return func(e *Event) {
		e.Result = result
	}
}

// WithUser overrides the user extracted from the context, e.g. for a
// sign-in whose session did not exist when the request started.
func WithUser(id string) EventOption {
	return func(e *Event) {
		if id != "" {
			e.UserID = id
		}
	}
}
