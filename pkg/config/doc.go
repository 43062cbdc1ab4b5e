// Package config loads typed configuration from environment variables.
//
// Structs declare their variables with caarlos0/env tags:
//
//	type Config struct {
//		Addr     string        `env:"HTTP_ADDR" envDefault:":8080"`
//		StateTTL time.Duration `env:"OAUTH_STATE_TTL" envDefault:"10m"`
//	}
//
// Load reads a .env file once per process (missing files are fine), parses the
// struct and caches the result per type so every package sees the same values.
// Parse skips the cache and accepts options such as an explicit environment
// map, which keeps tests independent of the process environment.
package config
