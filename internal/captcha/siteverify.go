package captcha

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/cozy-blogs/carajillo/internal/config"
	"github.com/cozy-blogs/carajillo/internal/pkg/apierr"
	"github.com/cozy-blogs/carajillo/internal/pkg/logger"
)

const (
	recaptchaEndpoint = "https://www.google.com/recaptcha/api/siteverify"
	hcaptchaEndpoint  = "https://api.hcaptcha.com/siteverify"
)

// siteverifyResponse is the wire shape shared by reCAPTCHA and hCaptcha.
type siteverifyResponse struct {
	Success     bool     `json:"success"`
	Score       *float64 `json:"score"`
	Action      string   `json:"action"`
	ChallengeTS string   `json:"challenge_ts"`
	Hostname    string   `json:"hostname"`
	ErrorCodes  []string `json:"error-codes"`
}

// siteverify implements Provider over the form-encoded siteverify
// protocol both reCAPTCHA and hCaptcha speak. Calls are bounded by the
// configured timeout and never retried; retry policy belongs to the
// caller-facing boundary, not here.
type siteverify struct {
	name        string
	endpoint    string
	secret      string
	siteKey     string // sent by hCaptcha only
	threshold   float64
	checkAction bool
	client      HTTPDoer
}

func newRecaptcha(cfg config.CaptchaConfig) *siteverify {
	return &siteverify{
		name:        ProviderRecaptcha,
		endpoint:    recaptchaEndpoint,
		secret:      cfg.Secret,
		threshold:   cfg.ScoreThreshold,
		checkAction: true,
		client:      &http.Client{Timeout: cfg.Timeout()},
	}
}

// hCaptcha reports no action, so the action check is skipped, and it
// wants the site key alongside the secret.
func newHcaptcha(cfg config.CaptchaConfig) *siteverify {
	return &siteverify{
		name:      ProviderHcaptcha,
		endpoint:  hcaptchaEndpoint,
		secret:    cfg.Secret,
		siteKey:   cfg.SiteKey,
		threshold: cfg.ScoreThreshold,
		client:    &http.Client{Timeout: cfg.Timeout()},
	}
}

// SetHTTPClient replaces the transport. Used by tests.
func (s *siteverify) SetHTTPClient(client HTTPDoer) {
	s.client = client
}

// Verify posts the token to the provider and classifies the response.
// The decision order is fixed: transport failures, then provider error
// codes, then the action check, then the score threshold. Error codes
// outrank everything the provider also says, including success=true.
func (s *siteverify) Verify(ctx context.Context, action, token, remoteIP string) (*Outcome, error) {
	if strings.TrimSpace(token) == "" {
		return nil, apierr.New(http.StatusBadRequest, apierr.ReasonMissingCaptcha, "captcha token is required")
	}

	form := url.Values{}
	form.Set("secret", s.secret)
	form.Set("response", token)
	if remoteIP != "" {
		form.Set("remoteip", remoteIP)
	}
	if s.siteKey != "" {
		form.Set("sitekey", s.siteKey)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("build siteverify request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, apierr.Upstream("captcha provider").WithDetail("%s siteverify: %v", s.name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, apierr.Upstream("captcha provider").
			WithDetail("%s siteverify returned %d: %s", s.name, resp.StatusCode, string(body))
	}

	var sv siteverifyResponse
	if err := json.NewDecoder(resp.Body).Decode(&sv); err != nil {
		return nil, apierr.Upstream("captcha provider").WithDetail("%s siteverify decode: %v", s.name, err)
	}

	outcome := &Outcome{
		Score:       sv.Score,
		Action:      sv.Action,
		Hostname:    sv.Hostname,
		ChallengeTS: sv.ChallengeTS,
		ErrorCodes:  sv.ErrorCodes,
	}

	if len(sv.ErrorCodes) > 0 {
		clsErr := s.classify(sv.ErrorCodes)
		logger.Warn("captcha verification rejected",
			"provider", s.name,
			"reason", apierr.From(clsErr).Reason,
			"error_codes", strings.Join(sv.ErrorCodes, ","),
		)
		return outcome, clsErr
	}

	if s.checkAction && sv.Action != action {
		logger.Warn("captcha action mismatch",
			"provider", s.name,
			"requested", action,
			"reported", sv.Action,
		)
		return outcome, apierr.New(http.StatusBadRequest, apierr.ReasonCaptchaMismatch, "captcha action mismatch").
			WithDetail("requested %q, provider reported %q", action, sv.Action)
	}

	if sv.Score != nil && *sv.Score < s.threshold {
		logger.Info("captcha score below threshold",
			"provider", s.name,
			"score", *sv.Score,
			"threshold", s.threshold,
		)
		return outcome, nil
	}

	outcome.Passed = true
	return outcome, nil
}

// classify maps provider error codes to a category. When codes of
// different categories arrive together the most severe one wins:
// a misconfiguration outranks a bad solve, a bad solve outranks an
// expired one (the client must re-solve either way).
func (s *siteverify) classify(codes []string) *apierr.Error {
	badCaptcha := false
	timeout := false
	for _, code := range codes {
		switch code {
		case "invalid-input-response", "missing-input-response":
			badCaptcha = true
		case "timeout-or-duplicate", "expired-input-response":
			timeout = true
		default:
			return apierr.New(http.StatusBadGateway, apierr.ReasonCaptchaProvider, "captcha provider error").
				WithDetail("%s reported %q", s.name, strings.Join(codes, ","))
		}
	}
	if badCaptcha {
		return apierr.New(http.StatusBadRequest, apierr.ReasonBadCaptcha, "captcha verification failed").
			WithDetail("%s reported %q", s.name, strings.Join(codes, ","))
	}
	if timeout {
		return apierr.New(http.StatusBadRequest, apierr.ReasonCaptchaTimeout, "captcha token expired, please retry").
			WithDetail("%s reported %q", s.name, strings.Join(codes, ","))
	}
	// Unreachable: codes is non-empty and every branch above is covered.
	return apierr.New(http.StatusBadGateway, apierr.ReasonCaptchaProvider, "captcha provider error")
}
