// Package clientip resolves the address of the client behind proxies. The
// auth throttle keys on it and audit events record it.
//
//	r.Use(clientip.Middleware)
//	ip := clientip.FromContext(r.Context())
//
// Only deploy behind proxies that overwrite the headers in DefaultHeaders;
// otherwise clients can choose their own address.
package clientip
