package cookie

import (
	"net/http"
	"strings"
)

// Config is loaded from COOKIE_*. Secrets is a comma separated list, newest
// first.
type Config struct {
	Secrets  string        `env:"COOKIE_SECRETS,required"`
	Path     string        `env:"COOKIE_PATH" envDefault:"/"`
	Domain   string        `env:"COOKIE_DOMAIN"`
	Secure   bool          `env:"COOKIE_SECURE" envDefault:"false"`
	SameSite http.SameSite `env:"COOKIE_SAME_SITE" envDefault:"2"`
}

func (c Config) secrets() []string {
	var out []string
	for s := range strings.SplitSeq(c.Secrets, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// NewFromConfig builds a Manager from cfg, then applies opts.
func NewFromConfig(cfg Config, opts ...Option) (*Manager, error) {
	base := []Option{WithSecure(cfg.Secure)}
	if cfg.Path != "" {
		base = append(base, WithPath(cfg.Path))
	}
	if cfg.Domain != "" {
		base = append(base, WithDomain(cfg.Domain))
	}
	if cfg.SameSite != 0 {
		base = append(base, WithSameSite(cfg.SameSite))
	}
	return New(cfg.secrets(), append(base, opts...)...)
}
