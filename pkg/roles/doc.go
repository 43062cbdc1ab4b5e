// Package roles defines the two application roles and decides which role a
// subject gets the first time the profile store sees it.
//
// First-contact policy, evaluated in order:
//
//  1. The profile store is empty and the BootstrapLedger grants its single
//     claim: the subject becomes the bootstrap administrator. A claimed ledger
//     never grants again, so emptying the store later cannot re-open it.
//  2. The email is on the admin allow-list (exact address or "@domain").
//  3. The legacy substring rule, when explicitly enabled, matches the email.
//  4. Otherwise the subject is a regular user.
//
// The policy only runs for subjects without a profile; returning users keep
// their stored role.
package roles
