package config_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/componenthub/hubauth/pkg/config"
)

type oauthConfig struct {
	ClientID string        `env:"CLIENT_ID,required"`
	StateTTL time.Duration `env:"STATE_TTL" envDefault:"10m"`
	Scopes   []string      `env:"SCOPES" envSeparator:"," envDefault:"email,profile"`
}

type cachedConfig struct {
	Value string `env:"HUBAUTH_CONFIG_TEST_VALUE" envDefault:"first"`
}

func TestParse(t *testing.T) {
	t.Parallel()

	t.Run("reads values and defaults", func(t *testing.T) {
		t.Parallel()
		var cfg oauthConfig
		err := config.Parse(&cfg, config.WithEnvironment(map[string]string{"CLIENT_ID": "abc"}))
		require.NoError(t, err)
		assert.Equal(t, "abc", cfg.ClientID)
		assert.Equal(t, 10*time.Minute, cfg.StateTTL)
		assert.Equal(t, []string{"email", "profile"}, cfg.Scopes)
	})

	t.Run("applies prefix", func(t *testing.T) {
		t.Parallel()
		var cfg oauthConfig
		err := config.Parse(&cfg,
			config.WithPrefix("GOOGLE_"),
			config.WithEnvironment(map[string]string{"GOOGLE_CLIENT_ID": "g", "GOOGLE_STATE_TTL": "1m"}),
		)
		require.NoError(t, err)
		assert.Equal(t, "g", cfg.ClientID)
		assert.Equal(t, time.Minute, cfg.StateTTL)
	})

	t.Run("missing required value", func(t *testing.T) {
		t.Parallel()
		var cfg oauthConfig
		err := config.Parse(&cfg, config.WithEnvironment(map[string]string{}))
		require.Error(t, err)
		assert.ErrorIs(t, err, config.ErrParsingConfig)
	})

	t.Run("nil pointer", func(t *testing.T) {
		t.Parallel()
		assert.ErrorIs(t, config.Parse[oauthConfig](nil), config.ErrNilPointer)
	})
}

func TestLoad_CachesPerType(t *testing.T) {
	t.Setenv("HUBAUTH_CONFIG_TEST_VALUE", "first")

	var first cachedConfig
	require.NoError(t, config.Load(&first))
	assert.Equal(t, "first", first.Value)

	t.Setenv("HUBAUTH_CONFIG_TEST_VALUE", "second")

	var second cachedConfig
	require.NoError(t, config.Load(&second))
	assert.Equal(t, "first", second.Value)
}

func TestMustLoad_PanicsOnError(t *testing.T) {
	type requiredOnly struct {
		Value string `env:"HUBAUTH_CONFIG_TEST_REQUIRED_MISSING,required"`
	}
	assert.Panics(t, func() {
		var cfg requiredOnly
		config.MustLoad(&cfg)
	})
}
