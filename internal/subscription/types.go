package subscription

// SubscribeRequest is an inbound sign-up from the public form.
type SubscribeRequest struct {
	Email        string   `json:"email"`
	CaptchaToken string   `json:"captcha_token"`
	Lists        []string `json:"lists"`
	Language     string   `json:"language"`
	Referer      string   `json:"referer"`
	RemoteIP     string   `json:"-"`
}

// SubscribeResult reports the outcome of a sign-up. Accepted is true
// whether or not a confirmation email went out; the two cases differ
// only in RequiresConfirmation.
type SubscribeResult struct {
	Email                string `json:"email"`
	Accepted             bool   `json:"accepted"`
	RequiresConfirmation bool   `json:"requires_confirmation"`
}

// ListStatus is one catalog entry merged with the contact's membership.
// Lists the contact never touched appear with Subscribed=false rather
// than being omitted.
type ListStatus struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Subscribed  bool   `json:"subscribed"`
}

// Status is the normalized view of a contact's subscription.
type Status struct {
	Email       string       `json:"email"`
	Subscribed  bool         `json:"subscribed"`
	OptInStatus string       `json:"opt_in_status"`
	Lists       []ListStatus `json:"lists"`
}

// UpdateRequest changes a contact's overall subscription, optionally
// carrying a per-list membership delta.
type UpdateRequest struct {
	Email     string          `json:"email"`
	Subscribe bool            `json:"subscribe"`
	Lists     map[string]bool `json:"lists,omitempty"`
}

// UpdateResult reports the new overall state after an update.
type UpdateResult struct {
	Email      string `json:"email"`
	Subscribed bool   `json:"subscribed"`
}
