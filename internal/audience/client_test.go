package audience

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/cozy-blogs/carajillo/internal/config"
	"github.com/cozy-blogs/carajillo/internal/pkg/apierr"
)

func testClient(serverURL string) *Client {
	return NewClient(config.AudienceConfig{
		BaseURL:        serverURL,
		APIKey:         "test-api-key",
		TimeoutSeconds: 5,
		MaxRetries:     1,
	})
}

func TestNewClient(t *testing.T) {
	client := NewClient(config.AudienceConfig{
		BaseURL: "https://contacts.example.com/api/",
		APIKey:  "key",
	})

	if client.baseURL != "https://contacts.example.com/api" {
		t.Errorf("Expected trailing slash to be trimmed, got %s", client.baseURL)
	}
	if client.apiKey != "key" {
		t.Errorf("Expected apiKey 'key', got %s", client.apiKey)
	}
}

func TestFindByEmail(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-Api-Key") == "" {
			t.Error("Missing X-Api-Key header")
		}
		if got := r.URL.Query().Get("email"); got != "jane@example.com" {
			t.Errorf("Unexpected email query: %s", got)
		}

		response := ContactResponse{
			Metadata: ResponseMetadata{Error: false},
			Payload: Contact{
				ID:          "c-100",
				Email:       "jane@example.com",
				Subscribed:  true,
				OptInStatus: OptInAccepted,
				Lists:       map[string]bool{"weekly": true, "product": false},
			},
		}
		json.NewEncoder(w).Encode(response)
	}))
	defer server.Close()

	client := testClient(server.URL)

	contact, err := client.FindByEmail(context.Background(), "jane@example.com")
	if err != nil {
		t.Fatalf("FindByEmail failed: %v", err)
	}
	if contact == nil {
		t.Fatal("Expected a contact")
	}
	if contact.ID != "c-100" {
		t.Errorf("Unexpected contact ID: %s", contact.ID)
	}
	if !contact.Lists["weekly"] {
		t.Error("Expected weekly list membership")
	}
}

// An absent contact is a normal outcome, not an error.
func TestFindByEmailAbsent(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	client := testClient(server.URL)

	contact, err := client.FindByEmail(context.Background(), "nobody@example.com")
	if err != nil {
		t.Fatalf("Expected no error for an absent contact, got %v", err)
	}
	if contact != nil {
		t.Errorf("Expected nil contact, got %+v", contact)
	}
}

func TestUpsert(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("Expected POST, got %s", r.Method)
		}

		var req struct {
			Email   string   `json:"email"`
			Lists   []string `json:"lists"`
			Referer string   `json:"referer"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("Failed to decode request: %v", err)
		}
		if req.Email != "jane@example.com" {
			t.Errorf("Unexpected email: %s", req.Email)
		}
		if len(req.Lists) != 2 || req.Lists[0] != "product" || req.Lists[1] != "weekly" {
			t.Errorf("Expected sorted lists, got %v", req.Lists)
		}
		if req.Referer != "https://blog.example.com" {
			t.Errorf("Unexpected referer: %s", req.Referer)
		}

		response := ContactResponse{
			Metadata: ResponseMetadata{Error: false},
			Payload: Contact{
				ID:          "c-100",
				Email:       "jane@example.com",
				Subscribed:  false,
				OptInStatus: OptInPending,
				Lists:       map[string]bool{},
			},
		}
		json.NewEncoder(w).Encode(response)
	}))
	defer server.Close()

	client := testClient(server.URL)

	contact, err := client.Upsert(context.Background(), "jane@example.com",
		[]string{"weekly", "product"}, "https://blog.example.com")
	if err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}
	if contact.OptInStatus != OptInPending {
		t.Errorf("Unexpected opt-in status: %s", contact.OptInStatus)
	}
}

func TestSetSubscription(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPut {
			t.Errorf("Expected PUT, got %s", r.Method)
		}
		if r.URL.Path != "/contacts/jane@example.com/subscription" {
			t.Errorf("Unexpected path: %s", r.URL.Path)
		}

		var req struct {
			Subscribed bool `json:"subscribed"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("Failed to decode request: %v", err)
		}
		if !req.Subscribed {
			t.Error("Expected subscribed=true")
		}

		json.NewEncoder(w).Encode(StatusResponse{})
	}))
	defer server.Close()

	client := testClient(server.URL)

	if err := client.SetSubscription(context.Background(), "jane@example.com", true); err != nil {
		t.Fatalf("SetSubscription failed: %v", err)
	}
}

func TestSetListMembership(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Lists map[string]bool `json:"lists"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("Failed to decode request: %v", err)
		}
		if !req.Lists["weekly"] || req.Lists["product"] {
			t.Errorf("Unexpected mapping: %v", req.Lists)
		}

		json.NewEncoder(w).Encode(StatusResponse{})
	}))
	defer server.Close()

	client := testClient(server.URL)

	err := client.SetListMembership(context.Background(), "jane@example.com",
		map[string]bool{"weekly": true, "product": false})
	if err != nil {
		t.Fatalf("SetListMembership failed: %v", err)
	}
}

func TestListCatalog(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		response := CatalogResponse{
			Metadata: ResponseMetadata{Error: false},
			Payload: []MailingList{
				{ID: "weekly", Name: "Weekly Digest", Public: true},
				{ID: "product", Name: "Product News", Public: true},
				{ID: "internal", Name: "Internal", Public: false},
			},
		}
		json.NewEncoder(w).Encode(response)
	}))
	defer server.Close()

	client := testClient(server.URL)

	lists, err := client.ListCatalog(context.Background())
	if err != nil {
		t.Fatalf("ListCatalog failed: %v", err)
	}
	if len(lists) != 3 {
		t.Errorf("Expected 3 lists, got %d", len(lists))
	}
	if lists[0].ID != "weekly" {
		t.Errorf("Unexpected first list: %s", lists[0].ID)
	}
}

// Store outages must classify as upstream unavailability, never as a
// client failure.
func TestUpstreamUnavailable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close() // refuse all connections

	client := testClient(server.URL)

	_, err := client.FindByEmail(context.Background(), "jane@example.com")
	if err == nil {
		t.Fatal("Expected an error")
	}
	if got := apierr.From(err).Reason; got != apierr.ReasonUpstream {
		t.Errorf("Expected reason %s, got %s", apierr.ReasonUpstream, got)
	}
}

func TestServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client := testClient(server.URL)

	_, err := client.ListCatalog(context.Background())
	if err == nil {
		t.Fatal("Expected an error")
	}
	if got := apierr.From(err).Reason; got != apierr.ReasonUpstream {
		t.Errorf("Expected reason %s, got %s", apierr.ReasonUpstream, got)
	}
}

func TestEnvelopeError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(ContactResponse{
			Metadata: ResponseMetadata{Error: true, Message: "validation failed"},
		})
	}))
	defer server.Close()

	client := testClient(server.URL)

	_, err := client.Upsert(context.Background(), "jane@example.com", nil, "")
	if err == nil {
		t.Fatal("Expected an error for an error envelope")
	}
}
