package session

import "time"

// Config holds browser session settings.
type Config struct {
	// CookieName is the cookie carrying the signed browser session id.
	CookieName    string        `env:"SESSION_COOKIE_NAME" envDefault:"hub_sid"`
	CookieMaxAge  time.Duration `env:"SESSION_COOKIE_MAX_AGE" envDefault:"720h"`
	SecureCookies bool          `env:"SESSION_SECURE_COOKIES" envDefault:"false"`

	// IdleTimeout evicts resolvers of browsers that made no request for this
	// long. Their sign-in survives in identity persistence.
	IdleTimeout     time.Duration `env:"SESSION_IDLE_TIMEOUT" envDefault:"30m"`
	CleanupInterval time.Duration `env:"SESSION_CLEANUP_INTERVAL" envDefault:"5m"`
	LookupTimeout   time.Duration `env:"SESSION_LOOKUP_TIMEOUT" envDefault:"10s"`
}

// DefaultConfig returns the defaults of the env tags.
func DefaultConfig() Config {
	return Config{
		CookieName:      "hub_sid",
		CookieMaxAge:    30 * 24 * time.Hour,
		IdleTimeout:     30 * time.Minute,
		CleanupInterval: 5 * time.Minute,
		LookupTimeout:   10 * time.Second,
	}
}
