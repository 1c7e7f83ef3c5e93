package domain

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Tenant owns forms and optionally configures one outbound webhook endpoint.
type Tenant struct {
	ID             string
	Name           string
	WebhookURL     *string
	WebhookEnabled bool
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Destination is the resolved delivery target for a form's responses.
type Destination struct {
	TenantID string
	URL      string
}

// Form belongs to a tenant; responses reference it.
type Form struct {
	ID        string
	TenantID  string
	Name      string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// FormResponse is the durable "response recorded" event that triggers
// notification enqueue. It must be persisted before enqueue runs.
type FormResponse struct {
	ID          string
	FormID      string
	Name        string
	Email       string
	Answers     json.RawMessage
	SubmittedAt time.Time
	CreatedAt   time.Time
}

func (r *FormResponse) Validate() error {
	if strings.TrimSpace(r.FormID) == "" {
		return fmt.Errorf("%w: form id is required", ErrValidation)
	}
	if len(r.Answers) > 0 && !json.Valid(r.Answers) {
		return fmt.Errorf("%w: answers must be valid JSON", ErrValidation)
	}
	return nil
}
