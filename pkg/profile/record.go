package profile

import (
	"context"
	"time"

	"github.com/componenthub/hubauth/pkg/roles"
)

// Record is the persisted profile of a subject.
type Record struct {
	ID        string     `bson:"_id" json:"id"`
	Name      string     `bson:"name" json:"name"`
	Email     string     `bson:"email" json:"email"`
	Avatar    string     `bson:"avatar,omitempty" json:"avatar,omitempty"`
	Role      roles.Role `bson:"role" json:"role"`
	CreatedAt time.Time  `bson:"created_at" json:"created_at"`
	LastLogin time.Time  `bson:"last_login" json:"last_login"`
	UpdatedAt time.Time  `bson:"updated_at,omitempty" json:"updated_at,omitempty"`
}

// Fields is a partial record. Nil members are left untouched by a merge.
type Fields struct {
	Name      *string
	Email     *string
	Avatar    *string
	Role      *roles.Role
	CreatedAt *time.Time
	LastLogin *time.Time
	UpdatedAt *time.Time
}

// Ptr is a convenience for building Fields literals.
func Ptr[T any](v T) *T {
	return &v
}

// Apply writes the non-nil members of f onto r.
func (f Fields) Apply(r *Record) {
	if f.Name != nil {
		r.Name = *f.Name
	}
	if f.Email != nil {
		r.Email = *f.Email
	}
	if f.Avatar != nil {
		r.Avatar = *f.Avatar
	}
	if f.Role != nil {
		r.Role = *f.Role
	}
	if f.CreatedAt != nil {
		r.CreatedAt = *f.CreatedAt
	}
	if f.LastLogin != nil {
		r.LastLogin = *f.LastLogin
	}
	if f.UpdatedAt != nil {
		r.UpdatedAt = *f.UpdatedAt
	}
}

// Store is the document-store contract used by the session resolver.
type Store interface {
	// Get returns ErrNotFound when the subject has no record.
	Get(ctx context.Context, id string) (*Record, error)

	// Set writes fields for id. With merge the existing record is updated in
	// place (and created if missing); without merge it is replaced.
	Set(ctx context.Context, id string, fields Fields, merge bool) error

	// CreateIfAbsent inserts rec unless a record with rec.ID exists and
	// reports whether it inserted.
	CreateIfAbsent(ctx context.Context, rec Record) (bool, error)

	// List returns every record, newest first.
	List(ctx context.Context) ([]Record, error)

	// Count returns the number of records.
	Count(ctx context.Context) (int64, error)
}
