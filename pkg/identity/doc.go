// Package identity is the identity provider behind hubauth sessions.
//
// Gateway is the contract the session resolver depends on: email/password
// sign-up and sign-in, OAuth popup sign-in, sign-out and an ordered stream of
// sign-in state events. Client implements it for one browser session on top
// of shared stores:
//
//   - AccountStore keeps password accounts and provider links
//     (MemoryAccountStore, PostgresAccountStore).
//   - StateStore issues one-time OAuth state tokens
//     (MemoryStateStore, RedisStateStore).
//   - Persistence remembers which subject a browser is signed in as
//     (MemoryPersistence, RedisPersistence).
//   - Connector talks to an OAuth provider (Google, Facebook).
//
// Every failure surfaces as *Error carrying a stable provider code such as
// auth/wrong-password; CodeOf extracts it from any wrapped error.
package identity
