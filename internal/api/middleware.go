package api

import (
	"context"
	"net"
	"net/http"

	"github.com/cozy-blogs/carajillo/internal/pkg/apierr"
	"github.com/cozy-blogs/carajillo/internal/pkg/httputil"
	"github.com/cozy-blogs/carajillo/internal/token"
)

type contextKey string

const contextKeyEmail contextKey = "subject-email"

// requireToken authenticates the request with a bearer token and stores
// the subject email in the request context.
func (h *Handlers) requireToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, err := token.FromRequest(r)
		if err != nil {
			httputil.Fail(w, err)
			return
		}
		email, err := h.tokens.Validate(raw)
		if err != nil {
			httputil.Fail(w, err)
			return
		}
		ctx := context.WithValue(r.Context(), contextKeyEmail, email)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// rateLimited gates a route per client IP. Without a configured limiter
// the route is open.
func (h *Handlers) rateLimited(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if h.limiter != nil {
			ip := clientIP(r)
			if !h.limiter.Allow(r.Context(), ip) {
				httputil.Fail(w, apierr.RateLimited().WithDetail("client %s exceeded the sign-up window", ip))
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

// subjectEmail returns the token subject stored by requireToken. Routes
// behind the middleware always have one.
func subjectEmail(ctx context.Context) string {
	email, _ := ctx.Value(contextKeyEmail).(string)
	return email
}

// clientIP extracts the caller address. The RealIP middleware has already
// folded X-Forwarded-For into RemoteAddr, which may arrive with or
// without a port.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
