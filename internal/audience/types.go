package audience

// Opt-in states reported by the contact store.
const (
	OptInPending  = "pending"
	OptInAccepted = "accepted"
	OptInRejected = "rejected"
)

// Contact is the store's view of a subscriber, treated as a read model.
// Callers compute a new desired state and hand it back through the
// typed write methods; a snapshot is never mutated in place. A list id
// absent from Lists means "not a member", not "unknown".
type Contact struct {
	ID          string          `json:"id"`
	Email       string          `json:"email"`
	Subscribed  bool            `json:"subscribed"`
	OptInStatus string          `json:"opt_in_status"`
	Lists       map[string]bool `json:"lists"`
	Referer     string          `json:"referer,omitempty"`
}

// MailingList is one catalog entry. Non-public lists exist in the store
// but are hidden from the sign-up form.
type MailingList struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Public      bool   `json:"public"`
}

// ResponseMetadata carries the store's per-response status envelope.
type ResponseMetadata struct {
	Error   bool   `json:"error"`
	Message string `json:"message,omitempty"`
}

// ContactResponse wraps a single contact payload.
type ContactResponse struct {
	Metadata ResponseMetadata `json:"metadata"`
	Payload  Contact          `json:"payload"`
}

// CatalogResponse wraps the mailing-list catalog payload.
type CatalogResponse struct {
	Metadata ResponseMetadata `json:"metadata"`
	Payload  []MailingList    `json:"payload"`
}

// StatusResponse wraps write acknowledgements that carry no payload.
type StatusResponse struct {
	Metadata ResponseMetadata `json:"metadata"`
}

type upsertRequest struct {
	Email   string   `json:"email"`
	Lists   []string `json:"lists,omitempty"`
	Referer string   `json:"referer,omitempty"`
}

type subscriptionRequest struct {
	Subscribed bool `json:"subscribed"`
}

type membershipRequest struct {
	Lists map[string]bool `json:"lists"`
}
