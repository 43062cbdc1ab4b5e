// Package cookie manages the cookies hubauth hands to browsers: the signed
// browser-session id and short-lived encrypted flash messages carrying OAuth
// callback errors back to the login page.
//
//	cookies, err := cookie.NewFromConfig(cfg)
//	if err != nil {
//		return err
//	}
//	cookies.SetSigned(w, "hub_sid", id, cookie.WithMaxAge(3600))
//	id, err := cookies.GetSigned(r, "hub_sid")
//
// Reads try every configured secret, so secrets can be rotated by
// prepending the new one to COOKIE_SECRETS.
package cookie
