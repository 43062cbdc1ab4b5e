package roles

import (
	"errors"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// AllowList holds administrator email addresses and "@domain" entries.
// Matching is case-insensitive and exact; no substring matching.
type AllowList struct {
	emails  map[string]struct{}
	domains map[string]struct{}
}

// NewAllowList builds an allow-list from entries such as
// "ops@example.com" or "@example.com".
func NewAllowList(entries ...string) *AllowList {
	al := &AllowList{
		emails:  make(map[string]struct{}),
		domains: make(map[string]struct{}),
	}
	for _, e := range entries {
		e = strings.ToLower(strings.TrimSpace(e))
		switch {
		case e == "":
		case strings.HasPrefix(e, "@"):
			al.domains[e[1:]] = struct{}{}
		default:
			al.emails[e] = struct{}{}
		}
	}
	return al
}

// Allows reports whether email is listed.
func (al *AllowList) Allows(email string) bool {
	if al == nil {
		return false
	}
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return false
	}
	if _, ok := al.emails[email]; ok {
		return true
	}
	at := strings.LastIndexByte(email, '@')
	if at < 0 {
		return false
	}
	_, ok := al.domains[email[at+1:]]
	return ok
}

func (al *AllowList) Len() int {
	if al == nil {
		return 0
	}
	return len(al.emails) + len(al.domains)
}

type allowListFile struct {
	Admins []string `yaml:"admins"`
}

// LoadAllowList reads a YAML file of the form:
//
//	admins:
//	  - ops@example.com
//	  - "@componenthub.dev"
func LoadAllowList(path string) (*AllowList, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Join(ErrAllowListFile, err)
	}
	return ParseAllowList(raw)
}

// ParseAllowList decodes the YAML allow-list format.
func ParseAllowList(raw []byte) (*AllowList, error) {
	var f allowListFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, errors.Join(ErrAllowListFile, err)
	}
	return NewAllowList(f.Admins...), nil
}
