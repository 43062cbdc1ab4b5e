package roles

import "errors"

var (
	// ErrInvalidRole is returned for role names other than "user" and "admin".
	ErrInvalidRole = errors.New("roles: invalid role")

	// ErrAllowListFile is returned when the allow-list file cannot be read or parsed.
	ErrAllowListFile = errors.New("roles: failed to load admin allow-list")
)
