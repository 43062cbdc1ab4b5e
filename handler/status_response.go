package handler

import "net/http"

// statusResponse writes a bodiless status, optionally with a Location.
type statusResponse struct {
	status   int
	location string
}

func (s statusResponse) Render(w http.ResponseWriter, r *http.Request) error {
	if s.location != "" {
		http.Redirect(w, r, s.location, s.status)
		return nil
	}
	w.WriteHeader(s.status)
	return nil
}

// Empty responds with 204 No Content.
func Empty() Response {
	return statusResponse{status: http.StatusNoContent}
}

// Redirect responds with 303 See Other.
func Redirect(url string) Response {
	return statusResponse{status: http.StatusSeeOther, location: url}
}

// RedirectWithCode responds with a redirect using code, e.g. 302 for OAuth
// consent pages.
func RedirectWithCode(url string, code int) Response {
	return statusResponse{status: code, location: url}
}
