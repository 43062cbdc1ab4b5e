package identity

import "time"

// Config holds the identity client settings, loaded from IDENTITY_* and the
// provider variables.
type Config struct {
	BcryptCost        int           `env:"IDENTITY_BCRYPT_COST" envDefault:"10"`
	MinPasswordLength int           `env:"IDENTITY_MIN_PASSWORD_LENGTH" envDefault:"6"`
	MaxFailedAttempts int           `env:"IDENTITY_MAX_FAILED_ATTEMPTS" envDefault:"5"`
	FailureWindow     time.Duration `env:"IDENTITY_FAILURE_WINDOW" envDefault:"15m"`
	StateTTL          time.Duration `env:"IDENTITY_OAUTH_STATE_TTL" envDefault:"10m"`
	SignInTTL         time.Duration `env:"IDENTITY_SIGNIN_TTL" envDefault:"720h"`

	Google   GoogleConfig
	Facebook FacebookConfig
}
