package session

import (
	"net/http"
	"time"
)

// Transport carries the browser session id between client and server.
type Transport interface {
	// GetToken returns ErrNoSessionID when the request carries no valid id.
	GetToken(r *http.Request) (string, error)
	SetToken(w http.ResponseWriter, token string, ttl time.Duration) error
	ClearToken(w http.ResponseWriter) error
}
