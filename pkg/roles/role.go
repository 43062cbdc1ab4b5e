package roles

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Role is an application role.
type Role string

const (
	User  Role = "user"
	Admin Role = "admin"
)

// All lists the roles in ascending privilege.
var All = []Role{User, Admin}

var upper = cases.Upper(language.Und)

// Parse converts a role name, case-insensitively.
func Parse(s string) (Role, error) {
	r := Role(strings.ToLower(strings.TrimSpace(s)))
	if !r.Valid() {
		return "", ErrInvalidRole
	}
	return r, nil
}

func (r Role) Valid() bool {
	return r == User || r == Admin
}

func (r Role) String() string {
	return string(r)
}

// Label is the display form used in denial views ("ADMIN").
func (r Role) Label() string {
	return upper.String(string(r))
}

// OrDefault returns r when valid, User otherwise.
func (r Role) OrDefault() Role {
	if r.Valid() {
		return r
	}
	return User
}
