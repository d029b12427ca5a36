// Package subscription reconciles sign-ups and preference changes
// against the remote contact store. The store is the single source of
// truth; this service holds no state of its own, performs no retries,
// and resolves every request with at most three outbound calls:
// verification, a store read or write, and an optional email dispatch.
package subscription

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/cozy-blogs/carajillo/internal/audience"
	"github.com/cozy-blogs/carajillo/internal/captcha"
	"github.com/cozy-blogs/carajillo/internal/pkg/apierr"
	"github.com/cozy-blogs/carajillo/internal/pkg/logger"
)

// Verifier checks a bot-protection token before a sign-up proceeds.
type Verifier interface {
	Verify(ctx context.Context, action, token, remoteIP string) (*captcha.Outcome, error)
}

// ContactStore is the slice of the remote store this service consumes.
type ContactStore interface {
	FindByEmail(ctx context.Context, email string) (*audience.Contact, error)
	Upsert(ctx context.Context, email string, lists []string, referer string) (*audience.Contact, error)
	SetSubscription(ctx context.Context, email string, subscribed bool) error
	SetListMembership(ctx context.Context, email string, lists map[string]bool) error
	ListCatalog(ctx context.Context) ([]audience.MailingList, error)
}

// Mailer dispatches the double-opt-in confirmation email.
type Mailer interface {
	SendConfirmation(ctx context.Context, email, confirmURL, language string) error
}

// TokenIssuer mints the bearer token embedded in confirmation links.
type TokenIssuer interface {
	Issue(email string) (string, error)
}

// Service implements the subscription flows.
type Service struct {
	verifier               Verifier
	store                  ContactStore
	mailer                 Mailer
	tokens                 TokenIssuer
	publicBaseURL          string
	unsubscribeClearsLists bool
}

// NewService wires the service. A missing public base URL is a
// configuration error: without it no confirmation link can be built,
// so the process must not come up.
func NewService(verifier Verifier, store ContactStore, mailer Mailer, tokens TokenIssuer, publicBaseURL string, unsubscribeClearsLists bool) (*Service, error) {
	if strings.TrimSpace(publicBaseURL) == "" {
		return nil, errors.New("public base URL is not configured")
	}
	return &Service{
		verifier:               verifier,
		store:                  store,
		mailer:                 mailer,
		tokens:                 tokens,
		publicBaseURL:          strings.TrimRight(publicBaseURL, "/"),
		unsubscribeClearsLists: unsubscribeClearsLists,
	}, nil
}

// SubscribeNew handles a public sign-up: verify the requester is human,
// upsert the contact, and decide whether a confirmation email is due.
// A verification that says "likely bot" fails exactly like a rate
// limit so that detection internals stay invisible.
func (s *Service) SubscribeNew(ctx context.Context, req SubscribeRequest) (*SubscribeResult, error) {
	email, err := normalizeEmail(req.Email)
	if err != nil {
		return nil, err
	}
	requested := normalizeLists(req.Lists)

	outcome, err := s.verifier.Verify(ctx, "subscribe", req.CaptchaToken, req.RemoteIP)
	if err != nil {
		return nil, err
	}
	if !outcome.Passed {
		logger.Info("sign-up rejected by verification", "email", email)
		return nil, apierr.RateLimited().WithDetail("verification outcome passed=false")
	}

	contact, err := s.store.Upsert(ctx, email, requested, req.Referer)
	if err != nil {
		return nil, err
	}

	// An address that opted out stays out. The response is shaped like
	// a rate limit so the form cannot be used to probe who unsubscribed.
	if contact.OptInStatus == audience.OptInRejected {
		logger.Info("sign-up for previously unsubscribed contact", "email", email)
		return nil, apierr.RateLimited().WithDetail("contact opt-in status is rejected")
	}

	var missing []string
	for _, id := range requested {
		if !contact.Lists[id] {
			missing = append(missing, id)
		}
	}

	requiresConfirmation := !contact.Subscribed || len(missing) > 0
	if requiresConfirmation {
		tok, err := s.tokens.Issue(contact.Email)
		if err != nil {
			return nil, fmt.Errorf("issue confirmation token: %w", err)
		}
		if err := s.mailer.SendConfirmation(ctx, contact.Email, s.confirmURL(tok), req.Language); err != nil {
			return nil, err
		}
	}

	logger.Info("sign-up accepted",
		"email", email,
		"requires_confirmation", requiresConfirmation,
		"missing_lists", strings.Join(missing, ","),
	)

	return &SubscribeResult{
		Email:                contact.Email,
		Accepted:             true,
		RequiresConfirmation: requiresConfirmation,
	}, nil
}

// GetStatus returns the contact's subscription merged with the full
// list catalog, so callers always see every available list.
func (s *Service) GetStatus(ctx context.Context, email string) (*Status, error) {
	email, err := normalizeEmail(email)
	if err != nil {
		return nil, err
	}

	contact, err := s.store.FindByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if contact == nil {
		return nil, apierr.New(http.StatusNotFound, apierr.ReasonNotFound, "no subscription for this address")
	}

	catalog, err := s.store.ListCatalog(ctx)
	if err != nil {
		return nil, err
	}

	lists := make([]ListStatus, 0, len(catalog))
	for _, ml := range catalog {
		lists = append(lists, ListStatus{
			ID:          ml.ID,
			Name:        ml.Name,
			Description: ml.Description,
			Subscribed:  contact.Lists[ml.ID],
		})
	}

	return &Status{
		Email:       contact.Email,
		Subscribed:  contact.Subscribed,
		OptInStatus: contact.OptInStatus,
		Lists:       lists,
	}, nil
}

// ApplyUpdate performs exactly one of: overall subscribe (propagating a
// list delta when present) or overall unsubscribe. This is the only
// path that flips the contact's opt-in status, and it does so through
// the store's overall-subscription write. The boundary must already
// have checked that the caller is the contact.
func (s *Service) ApplyUpdate(ctx context.Context, req UpdateRequest) (*UpdateResult, error) {
	email, err := normalizeEmail(req.Email)
	if err != nil {
		return nil, err
	}

	if req.Subscribe {
		if err := s.store.SetSubscription(ctx, email, true); err != nil {
			return nil, err
		}
		if len(req.Lists) > 0 {
			if err := s.store.SetListMembership(ctx, email, req.Lists); err != nil {
				return nil, err
			}
		}
		logger.Info("subscription updated", "email", email, "subscribed", true)
		return &UpdateResult{Email: email, Subscribed: true}, nil
	}

	if err := s.store.SetSubscription(ctx, email, false); err != nil {
		return nil, err
	}

	// List deltas on an unsubscribe are ignored: membership preferences
	// survive so a later resubscribe restores them. Clearing instead is
	// an explicit configuration choice.
	if s.unsubscribeClearsLists {
		catalog, err := s.store.ListCatalog(ctx)
		if err != nil {
			return nil, err
		}
		cleared := make(map[string]bool, len(catalog))
		for _, ml := range catalog {
			cleared[ml.ID] = false
		}
		if len(cleared) > 0 {
			if err := s.store.SetListMembership(ctx, email, cleared); err != nil {
				return nil, err
			}
		}
	}

	logger.Info("subscription updated", "email", email, "subscribed", false)
	return &UpdateResult{Email: email, Subscribed: false}, nil
}

// PublicLists returns the catalog entries the sign-up form may offer.
func (s *Service) PublicLists(ctx context.Context) ([]audience.MailingList, error) {
	catalog, err := s.store.ListCatalog(ctx)
	if err != nil {
		return nil, err
	}
	public := make([]audience.MailingList, 0, len(catalog))
	for _, ml := range catalog {
		if ml.Public {
			public = append(public, ml)
		}
	}
	return public, nil
}

func (s *Service) confirmURL(token string) string {
	return s.publicBaseURL + "/subscription/confirm?token=" + url.QueryEscape(token)
}

func normalizeEmail(email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	at := strings.IndexByte(email, '@')
	if at <= 0 || at == len(email)-1 {
		return "", apierr.New(http.StatusBadRequest, apierr.ReasonInvalidRequest, "a valid email address is required")
	}
	return email, nil
}

// normalizeLists deduplicates the requested list ids, preserving order.
func normalizeLists(lists []string) []string {
	if len(lists) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(lists))
	var normalized []string
	for _, id := range lists {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		normalized = append(normalized, id)
	}
	return normalized
}
