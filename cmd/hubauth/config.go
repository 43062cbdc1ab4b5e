package main

import (
	"time"

	"github.com/componenthub/hubauth/pkg/cookie"
	"github.com/componenthub/hubauth/pkg/httpserver"
	"github.com/componenthub/hubauth/pkg/identity"
	"github.com/componenthub/hubauth/pkg/logger"
	"github.com/componenthub/hubauth/pkg/session"
)

const (
	driverMemory   = "memory"
	driverPostgres = "postgres"
	driverMongo    = "mongo"
	driverRedis    = "redis"
)

// appConfig is the process configuration. Backend specific settings
// (PG_*, MONGODB_*, REDIS_*) are loaded only for the selected drivers.
type appConfig struct {
	// StorageDriver holds accounts and profiles: memory, postgres or mongo.
	StorageDriver string `env:"STORAGE_DRIVER" envDefault:"memory"`
	// CacheDriver holds OAuth states, persisted sign-ins and throttles:
	// memory or redis. The bootstrap ledger follows it, except that a memory
	// cache over durable storage keeps the ledger in that storage.
	CacheDriver string `env:"CACHE_DRIVER" envDefault:"memory"`

	AdminAllowListPath   string `env:"ADMIN_ALLOWLIST_PATH"`
	LegacyAdminSubstring string `env:"ADMIN_LEGACY_SUBSTRING"`

	AuthRequestsPerMinute int `env:"AUTH_REQUESTS_PER_MINUTE" envDefault:"60"`

	Log      logger.Config
	HTTP     httpserver.Config
	Cookie   cookie.Config
	Session  session.Config
	Identity identity.Config
}

// throttleWindow is the refill period of the /auth request limiter.
const throttleWindow = time.Minute
