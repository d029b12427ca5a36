// Package audience is the REST client for the remote contact store that
// owns all subscriber state. This service keeps nothing locally; every
// read and write goes through here. Writes are idempotent on the store
// side, which is what lets outbound calls be retried at this boundary
// while the subscription core stays retry-free.
package audience

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"

	"github.com/cozy-blogs/carajillo/internal/config"
	"github.com/cozy-blogs/carajillo/internal/pkg/apierr"
	"github.com/cozy-blogs/carajillo/internal/pkg/httpretry"
)

var errNotFound = errors.New("contact not found")

// Client is the contact store API client.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient httpretry.HTTPDoer
}

// NewClient creates a contact store client from configuration.
func NewClient(cfg config.AudienceConfig) *Client {
	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		httpClient: httpretry.NewRetryClient(&http.Client{
			Timeout: cfg.Timeout(),
		}, cfg.MaxRetries),
	}
}

// SetHTTPClient sets a custom HTTP client (useful for testing).
func (c *Client) SetHTTPClient(client httpretry.HTTPDoer) {
	c.httpClient = client
}

// doRequest performs an authenticated request against the store.
// Transport failures and 5xx responses classify as the store being
// unavailable; a 404 surfaces as errNotFound for lookups to translate.
func (c *Client) doRequest(ctx context.Context, method, endpoint string, body interface{}) ([]byte, error) {
	var reqBody io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
		reqBody = bytes.NewBuffer(jsonBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+endpoint, reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Api-Key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, apierr.Upstream("contact store").WithDetail("%s %s: %v", method, endpoint, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, apierr.Upstream("contact store").WithDetail("read response: %v", err)
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, errNotFound
	case resp.StatusCode >= 500:
		return nil, apierr.Upstream("contact store").
			WithDetail("%s %s returned %d: %s", method, endpoint, resp.StatusCode, string(respBody))
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return nil, fmt.Errorf("contact store error (status %d): %s", resp.StatusCode, string(respBody))
	}

	return respBody, nil
}

// FindByEmail looks up a contact. An absent contact is not an error:
// it returns (nil, nil) and the caller decides what absence means.
func (c *Client) FindByEmail(ctx context.Context, email string) (*Contact, error) {
	params := url.Values{}
	params.Set("email", email)

	respBody, err := c.doRequest(ctx, http.MethodGet, "/contacts?"+params.Encode(), nil)
	if errors.Is(err, errNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var response ContactResponse
	if err := json.Unmarshal(respBody, &response); err != nil {
		return nil, fmt.Errorf("failed to parse contact response: %w", err)
	}
	if response.Metadata.Error {
		return nil, fmt.Errorf("contact store rejected lookup: %s", response.Metadata.Message)
	}

	return &response.Payload, nil
}

// Upsert creates or updates a contact keyed by email and returns the
// resulting snapshot. Requested lists are additive hints; the store
// decides the actual membership and reports it back.
func (c *Client) Upsert(ctx context.Context, email string, lists []string, referer string) (*Contact, error) {
	sorted := append([]string(nil), lists...)
	sort.Strings(sorted)

	respBody, err := c.doRequest(ctx, http.MethodPost, "/contacts", upsertRequest{
		Email:   email,
		Lists:   sorted,
		Referer: referer,
	})
	if err != nil {
		return nil, err
	}

	var response ContactResponse
	if err := json.Unmarshal(respBody, &response); err != nil {
		return nil, fmt.Errorf("failed to parse upsert response: %w", err)
	}
	if response.Metadata.Error {
		return nil, fmt.Errorf("contact store rejected upsert: %s", response.Metadata.Message)
	}

	return &response.Payload, nil
}

// SetSubscription flips the overall subscription flag for a contact.
func (c *Client) SetSubscription(ctx context.Context, email string, subscribed bool) error {
	endpoint := fmt.Sprintf("/contacts/%s/subscription", url.PathEscape(email))

	respBody, err := c.doRequest(ctx, http.MethodPut, endpoint, subscriptionRequest{Subscribed: subscribed})
	if errors.Is(err, errNotFound) {
		return apierr.New(http.StatusNotFound, apierr.ReasonNotFound, "contact not found")
	}
	if err != nil {
		return err
	}

	var response StatusResponse
	if err := json.Unmarshal(respBody, &response); err != nil {
		return fmt.Errorf("failed to parse subscription response: %w", err)
	}
	if response.Metadata.Error {
		return fmt.Errorf("contact store rejected subscription write: %s", response.Metadata.Message)
	}

	return nil
}

// SetListMembership writes the desired per-list membership mapping.
// Only the lists present in the mapping change; others keep their
// current state.
func (c *Client) SetListMembership(ctx context.Context, email string, lists map[string]bool) error {
	endpoint := fmt.Sprintf("/contacts/%s/lists", url.PathEscape(email))

	respBody, err := c.doRequest(ctx, http.MethodPut, endpoint, membershipRequest{Lists: lists})
	if errors.Is(err, errNotFound) {
		return apierr.New(http.StatusNotFound, apierr.ReasonNotFound, "contact not found")
	}
	if err != nil {
		return err
	}

	var response StatusResponse
	if err := json.Unmarshal(respBody, &response); err != nil {
		return fmt.Errorf("failed to parse membership response: %w", err)
	}
	if response.Metadata.Error {
		return fmt.Errorf("contact store rejected membership write: %s", response.Metadata.Message)
	}

	return nil
}

// ListCatalog returns every mailing list the store knows about,
// including non-public ones; callers filter for their audience.
func (c *Client) ListCatalog(ctx context.Context) ([]MailingList, error) {
	respBody, err := c.doRequest(ctx, http.MethodGet, "/lists", nil)
	if err != nil {
		return nil, err
	}

	var response CatalogResponse
	if err := json.Unmarshal(respBody, &response); err != nil {
		return nil, fmt.Errorf("failed to parse catalog response: %w", err)
	}
	if response.Metadata.Error {
		return nil, fmt.Errorf("contact store rejected catalog read: %s", response.Metadata.Message)
	}

	return response.Payload, nil
}

// HealthCheck probes the store, for the service's own health endpoint.
func (c *Client) HealthCheck(ctx context.Context) error {
	_, err := c.doRequest(ctx, http.MethodGet, "/health", nil)
	if errors.Is(err, errNotFound) {
		// A store without a health route still answered.
		return nil
	}
	return err
}
