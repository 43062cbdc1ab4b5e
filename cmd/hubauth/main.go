// Command hubauth serves the ComponentHub authentication API.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/componenthub/hubauth/modules/account"
	"github.com/componenthub/hubauth/pkg/audit"
	"github.com/componenthub/hubauth/pkg/clientip"
	"github.com/componenthub/hubauth/pkg/config"
	"github.com/componenthub/hubauth/pkg/cookie"
	"github.com/componenthub/hubauth/pkg/guard"
	"github.com/componenthub/hubauth/pkg/httpserver"
	"github.com/componenthub/hubauth/pkg/identity"
	"github.com/componenthub/hubauth/pkg/logger"
	"github.com/componenthub/hubauth/pkg/metrics"
	"github.com/componenthub/hubauth/pkg/ratelimiter"
	"github.com/componenthub/hubauth/pkg/requestid"
	"github.com/componenthub/hubauth/pkg/roles"
	"github.com/componenthub/hubauth/pkg/session"
)

func main() {
	var cfg appConfig
	if err := config.Load(&cfg); err != nil {
		slog.Error("failed to load configuration", logger.Error(err))
		os.Exit(1)
	}

	log := logger.New(append(logger.FromConfig(cfg.Log),
		logger.WithContextExtractors(requestid.LoggerExtractor()),
	)...)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("hubauth stopped with error", logger.Error(err))
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg appConfig, log *slog.Logger) error {
	stores, err := openBackends(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer stores.close()

	policy, err := newPolicy(cfg, stores, log)
	if err != nil {
		return err
	}

	cookies, err := cookie.NewFromConfig(cfg.Cookie, cookie.WithSecure(cfg.Session.SecureCookies))
	if err != nil {
		return fmt.Errorf("cookie manager: %w", err)
	}

	factory, err := newIdentityFactory(cfg, stores, log)
	if err != nil {
		return err
	}

	registry := session.NewRegistry(
		session.FromFactory(factory, stores.profiles, policy,
			session.WithLogger(log),
			session.WithLookupTimeout(cfg.Session.LookupTimeout),
		),
		session.WithConfig(cfg.Session),
		session.WithTransport(session.NewCookieTransport(cookies, cfg.Session.CookieName, cfg.Session.SecureCookies)),
		session.WithRegistryLogger(log),
	)

	m := metrics.New(metrics.WithRuntimeCollectors(), metrics.WithSessionGauge(registry.Len))
	guardOpts := []guard.Option{guard.WithLogger(log), guard.WithObserver(m.GuardObserver())}

	auditor := newAuditor(stores.audit)

	throttle, err := authThrottle(cfg, stores)
	if err != nil {
		return err
	}

	router := account.Router(account.RouterOptions{
		Sessions:   registry.Middleware,
		Instrument: m.Instrument,
		Throttle:   throttle,
		Auth: account.NewAuthService(cookies,
			account.WithAuthObserver(m),
			account.WithAuthAuditor(auditor),
			account.WithSessionRotation(registry),
			account.WithAuthLogger(log),
		),
		Dashboard: account.NewDashboardService(guardOpts...),
		Admin: account.NewAdminService(stores.profiles,
			account.WithRoleApplier(registry),
			account.WithAdminAuditor(auditor),
			account.WithAdminGuard(guardOpts...),
			account.WithAdminLogger(log),
		),
		Liveness:  httpserver.LivenessHandler(),
		Readiness: httpserver.ReadinessHandler(log, stores.checks...),
		Metrics:   m.Handler(),
	})

	srv := httpserver.NewFromConfig(cfg.HTTP,
		httpserver.WithLogger(log),
		httpserver.WithStopHook(registry.Close),
	)
	log.InfoContext(ctx, "starting hubauth",
		slog.String("storage", cfg.StorageDriver),
		slog.String("cache", cfg.CacheDriver),
	)
	return srv.Run(ctx, router)
}

// newAuditor fills audit events from the request context.
func newAuditor(storage audit.Storage) *audit.Logger {
	nonEmpty := func(fn func(context.Context) string) audit.Extractor {
		return func(ctx context.Context) (string, bool) {
			v := fn(ctx)
			return v, v != ""
		}
	}
	return audit.NewLogger(storage,
		audit.WithUserIDExtractor(func(ctx context.Context) (string, bool) {
			if s := session.FromContext(ctx); s != nil {
				return s.SubjectID, true
			}
			return "", false
		}),
		audit.WithRequestIDExtractor(nonEmpty(requestid.FromContext)),
		audit.WithIPExtractor(nonEmpty(clientip.FromContext)),
	)
}

func newPolicy(cfg appConfig, stores *backends, log *slog.Logger) (*roles.Policy, error) {
	opts := []roles.PolicyOption{roles.WithPolicyLogger(log)}
	if cfg.AdminAllowListPath != "" {
		al, err := roles.LoadAllowList(cfg.AdminAllowListPath)
		if err != nil {
			return nil, fmt.Errorf("admin allow-list: %w", err)
		}
		opts = append(opts, roles.WithAllowList(al))
	}
	if cfg.LegacyAdminSubstring != "" {
		log.Warn("legacy substring admin rule enabled", slog.String("substring", cfg.LegacyAdminSubstring))
		opts = append(opts, roles.WithLegacySubstringRule(cfg.LegacyAdminSubstring))
	}
	return roles.NewPolicy(stores.profiles, stores.ledger, opts...), nil
}

func newIdentityFactory(cfg appConfig, stores *backends, log *slog.Logger) (*identity.Factory, error) {
	failures, err := ratelimiter.NewBucket(stores.limits, ratelimiter.Config{
		Capacity:       cfg.Identity.MaxFailedAttempts,
		RefillRate:     cfg.Identity.MaxFailedAttempts,
		RefillInterval: cfg.Identity.FailureWindow,
	})
	if err != nil {
		return nil, fmt.Errorf("sign-in throttle: %w", err)
	}

	opts := []identity.Option{
		identity.WithLogger(log),
		identity.WithBcryptCost(cfg.Identity.BcryptCost),
		identity.WithMinPasswordLength(cfg.Identity.MinPasswordLength),
		identity.WithStateTTL(cfg.Identity.StateTTL),
		identity.WithStateStore(stores.states),
		identity.WithPersistence(stores.persistence),
		identity.WithThrottle(failures),
	}
	if oc := cfg.Identity.Google.OAuth(); oc.Configured() {
		opts = append(opts, identity.WithConnector(identity.NewGoogleConnector(oc)))
	}
	if oc := cfg.Identity.Facebook.OAuth(); oc.Configured() {
		opts = append(opts, identity.WithConnector(identity.NewFacebookConnector(oc)))
	}
	return identity.NewFactory(stores.accounts, opts...), nil
}

func authThrottle(cfg appConfig, stores *backends) (account.Middleware, error) {
	if cfg.AuthRequestsPerMinute <= 0 {
		return nil, nil
	}
	bucket, err := ratelimiter.NewBucket(stores.limits, ratelimiter.Config{
		Capacity:       cfg.AuthRequestsPerMinute,
		RefillRate:     cfg.AuthRequestsPerMinute,
		RefillInterval: throttleWindow,
	})
	if err != nil {
		return nil, fmt.Errorf("auth request throttle: %w", err)
	}
	return ratelimiter.Middleware(bucket, ratelimiter.ByClientIP("auth:"), nil), nil
}
