package session

import "errors"

var (
	// ErrNoSessionID is returned when the request carries no browser session id.
	ErrNoSessionID = errors.New("session: browser session id not found")

	// ErrRegistryClosed is returned after Registry.Close.
	ErrRegistryClosed = errors.New("session: registry closed")

	// ErrUnknownSession is returned when rotating an id with no resolver.
	ErrUnknownSession = errors.New("session: no resolver for browser session")
)
