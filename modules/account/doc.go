// Package account is the HTTP surface of hubauth. Router mounts the auth
// flows, the signed-in dashboard and the admin area on a chi router; every
// service reads the browser's session.Resolver from the request context.
//
//	r := account.Router(account.RouterOptions{
//		Sessions:  registry.Middleware,
//		Auth:      account.NewAuthService(cookies, account.WithAuthObserver(m)),
//		Dashboard: account.NewDashboardService(guard.WithObserver(m.GuardObserver())),
//		Admin:     account.NewAdminService(store, account.WithRoleApplier(registry)),
//	})
//
// Bodies are JSON. Form validation failures answer 422 with per-field
// details; provider failures carry the provider code and the user-facing
// message from authform.
package account
