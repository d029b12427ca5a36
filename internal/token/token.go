// Package token issues and validates the signed bearer tokens that let a
// subscriber read and change their own subscription. Tokens are
// stateless: every claim needed to authorize a request travels inside
// the token itself, so nothing is persisted and nothing can be revoked
// short of rotating the signing secret.
package token

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/cozy-blogs/carajillo/internal/pkg/apierr"
)

// DefaultTTL is the token lifetime used when none is configured.
// Subscription links sit in inboxes for a long time.
const DefaultTTL = 365 * 24 * time.Hour

// Authority signs and verifies subscriber tokens with a shared HS256
// secret. The issuer is pinned to the deployment's public hostname so a
// token minted by one environment is rejected by every other.
type Authority struct {
	secret []byte
	issuer string
	ttl    time.Duration
	now    func() time.Time
}

// New creates an Authority. An empty secret is a configuration error
// and is rejected here rather than at first use.
func New(secret, issuer string, ttl time.Duration) (*Authority, error) {
	if strings.TrimSpace(secret) == "" {
		return nil, errors.New("token signing secret is not configured")
	}
	if strings.TrimSpace(issuer) == "" {
		return nil, errors.New("token issuer is not configured")
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Authority{
		secret: []byte(secret),
		issuer: issuer,
		ttl:    ttl,
		now:    time.Now,
	}, nil
}

// Issue signs a token whose subject is the subscriber's email address.
func (a *Authority) Issue(email string) (string, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return "", errors.New("email is required")
	}

	now := a.now().UTC()
	claims := jwt.RegisteredClaims{
		Issuer:    a.issuer,
		Subject:   email,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(a.ttl)),
		ID:        uuid.NewString(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(a.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Validate checks the token and returns the subject email address.
// Failures are reported in a fixed order so callers see a stable
// reason: bad signature before expiry, expiry before a missing
// subject, subject before an issuer mismatch.
func (a *Authority) Validate(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", apierr.New(http.StatusUnauthorized, apierr.ReasonMissingToken, "authorization token required")
	}

	claims := &jwt.RegisteredClaims{}
	_, err := jwt.ParseWithClaims(raw, claims,
		func(t *jwt.Token) (any, error) {
			return a.secret, nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(a.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", apierr.New(http.StatusUnauthorized, apierr.ReasonExpiredToken, "token has expired")
		}
		return "", apierr.New(http.StatusUnauthorized, apierr.ReasonInvalidToken, "token is invalid").
			WithDetail("parse token: %v", err)
	}

	if strings.TrimSpace(claims.Subject) == "" {
		return "", apierr.New(http.StatusUnauthorized, apierr.ReasonMissingSubject, "token carries no subject")
	}
	if claims.Issuer != a.issuer {
		return "", apierr.New(http.StatusUnauthorized, apierr.ReasonInvalidToken, "token is invalid").
			WithDetail("issuer %q does not match %q", claims.Issuer, a.issuer)
	}

	return claims.Subject, nil
}

// FromRequest extracts the bearer token from the Authorization header.
// A missing header and a malformed one report the same reason: either
// way the caller has not presented a credential.
func FromRequest(r *http.Request) (string, error) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return "", apierr.New(http.StatusUnauthorized, apierr.ReasonMissingToken, "authorization token required")
	}
	scheme, raw, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(raw) == "" {
		return "", apierr.New(http.StatusUnauthorized, apierr.ReasonMissingToken, "authorization token required").
			WithDetail("malformed Authorization header")
	}
	return strings.TrimSpace(raw), nil
}
