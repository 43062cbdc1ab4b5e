// Package profile stores the application-side profile record of each subject:
// display name, email, avatar, role and timestamps, keyed by subject id.
//
// Store has three implementations: MemoryStore for tests and single-process
// runs, MongoStore and PostgresStore for deployments. All of them guarantee
// that CreateIfAbsent creates a record at most once per subject id.
package profile
