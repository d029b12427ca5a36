package api

import (
	"context"
	"net/http"
	"strings"

	"github.com/cozy-blogs/carajillo/internal/audience"
	"github.com/cozy-blogs/carajillo/internal/pkg/apierr"
	"github.com/cozy-blogs/carajillo/internal/pkg/httputil"
	"github.com/cozy-blogs/carajillo/internal/subscription"
)

// SubscriptionService is the reconciler surface the HTTP boundary drives.
type SubscriptionService interface {
	SubscribeNew(ctx context.Context, req subscription.SubscribeRequest) (*subscription.SubscribeResult, error)
	GetStatus(ctx context.Context, email string) (*subscription.Status, error)
	ApplyUpdate(ctx context.Context, req subscription.UpdateRequest) (*subscription.UpdateResult, error)
	PublicLists(ctx context.Context) ([]audience.MailingList, error)
}

// TokenValidator checks a bearer token and returns its subject email.
type TokenValidator interface {
	Validate(raw string) (string, error)
}

// RateLimiter gates the sign-up route per client key. A nil limiter
// disables the gate.
type RateLimiter interface {
	Allow(ctx context.Context, key string) bool
}

// StoreChecker reports contact store reachability for the health endpoint.
type StoreChecker interface {
	HealthCheck(ctx context.Context) error
}

// Handlers holds the collaborators behind the HTTP routes.
type Handlers struct {
	service SubscriptionService
	tokens  TokenValidator
	limiter RateLimiter
	store   StoreChecker
}

// NewHandlers creates the route handlers. limiter and store may be nil;
// rate limiting and the store health check are skipped when they are.
func NewHandlers(service SubscriptionService, tokens TokenValidator, limiter RateLimiter, store StoreChecker) *Handlers {
	return &Handlers{
		service: service,
		tokens:  tokens,
		limiter: limiter,
		store:   store,
	}
}

// Subscribe handles the public sign-up form.
//
//	POST /api/subscription
func (h *Handlers) Subscribe(w http.ResponseWriter, r *http.Request) {
	var req subscription.SubscribeRequest
	if !httputil.Decode(w, r, &req) {
		return
	}
	req.RemoteIP = clientIP(r)
	if req.Referer == "" {
		req.Referer = r.Header.Get("Referer")
	}

	result, err := h.service.SubscribeNew(r.Context(), req)
	if err != nil {
		httputil.Fail(w, err)
		return
	}
	httputil.OK(w, result)
}

// GetStatus returns the authenticated contact's subscription state.
//
//	GET /api/subscription
func (h *Handlers) GetStatus(w http.ResponseWriter, r *http.Request) {
	status, err := h.service.GetStatus(r.Context(), subjectEmail(r.Context()))
	if err != nil {
		httputil.Fail(w, err)
		return
	}
	httputil.OK(w, status)
}

// UpdateSubscription applies a subscribe/unsubscribe decision for the
// authenticated contact. The body email must name the token's subject;
// tokens never authorize changes to someone else's subscription.
//
//	PUT /api/subscription
func (h *Handlers) UpdateSubscription(w http.ResponseWriter, r *http.Request) {
	var req subscription.UpdateRequest
	if !httputil.Decode(w, r, &req) {
		return
	}

	subject := subjectEmail(r.Context())
	if !strings.EqualFold(strings.TrimSpace(req.Email), subject) {
		httputil.Fail(w, apierr.New(http.StatusForbidden, apierr.ReasonForbidden, "token does not match the requested contact").
			WithDetail("token subject %s, request email %s", subject, req.Email))
		return
	}

	result, err := h.service.ApplyUpdate(r.Context(), req)
	if err != nil {
		httputil.Fail(w, err)
		return
	}
	httputil.OK(w, result)
}

// GetLists returns the public mailing-list catalog for the sign-up form.
//
//	GET /api/lists
func (h *Handlers) GetLists(w http.ResponseWriter, r *http.Request) {
	lists, err := h.service.PublicLists(r.Context())
	if err != nil {
		httputil.Fail(w, err)
		return
	}
	httputil.OK(w, map[string]any{
		"lists": lists,
		"count": len(lists),
	})
}
