// Package binder fills request structs from JSON bodies, chi path
// parameters and query strings. Binders share the signature expected by
// handler.Wrap and can be stacked; each one only touches the fields tagged
// for it.
package binder
