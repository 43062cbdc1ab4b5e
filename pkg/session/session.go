package session

import (
	"time"

	"github.com/componenthub/hubauth/pkg/identity"
	"github.com/componenthub/hubauth/pkg/profile"
	"github.com/componenthub/hubauth/pkg/roles"
)

// DefaultDisplayName is used when neither the provider nor the profile
// record carries a name.
const DefaultDisplayName = "User"

// Session is the signed-in user as the application sees it.
type Session struct {
	SubjectID     string            `json:"id"`
	Email         string            `json:"email"`
	DisplayName   string            `json:"display_name"`
	AvatarURL     string            `json:"avatar_url,omitempty"`
	Role          roles.Role        `json:"role"`
	Provider      identity.Provider `json:"provider"`
	EmailVerified bool              `json:"email_verified"`
	CreatedAt     time.Time         `json:"created_at,omitzero"`
	LastLogin     time.Time         `json:"last_login,omitzero"`
}

// IsAuthenticated reports whether s is present.
func (s *Session) IsAuthenticated() bool {
	return s != nil
}

// HasRole reports whether s is present with exactly role.
func (s *Session) HasRole(role roles.Role) bool {
	return s != nil && s.Role == role
}

func (s *Session) IsAdmin() bool {
	return s.HasRole(roles.Admin)
}

// minimalSession is built from provider data alone. It never carries
// elevated privileges.
func minimalSession(sub *identity.Subject) *Session {
	return &Session{
		SubjectID:     sub.ID,
		Email:         sub.Email,
		DisplayName:   firstNonEmpty(sub.DisplayName, DefaultDisplayName),
		AvatarURL:     sub.AvatarURL,
		Role:          roles.User,
		Provider:      sub.Provider,
		EmailVerified: sub.EmailVerified,
	}
}

// mergedSession takes identity fields from the provider and the role from
// the stored record.
func mergedSession(sub *identity.Subject, rec *profile.Record) *Session {
	return &Session{
		SubjectID:     sub.ID,
		Email:         firstNonEmpty(sub.Email, rec.Email),
		DisplayName:   firstNonEmpty(sub.DisplayName, rec.Name, DefaultDisplayName),
		AvatarURL:     firstNonEmpty(sub.AvatarURL, rec.Avatar),
		Role:          rec.Role.OrDefault(),
		Provider:      sub.Provider,
		EmailVerified: sub.EmailVerified,
		CreatedAt:     rec.CreatedAt,
		LastLogin:     rec.LastLogin,
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
