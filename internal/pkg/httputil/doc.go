// Package httputil provides the shared HTTP response helpers for handlers.
//
// Handlers use these instead of raw http.ResponseWriter calls so the
// error envelope ({error, code}) stays uniform and internal error detail
// is logged in exactly one place rather than leaking into payloads.
package httputil
