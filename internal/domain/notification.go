package domain

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"time"
)

// Status represents the lifecycle state of a notification record.
type Status string

const (
	StatusPending Status = "pending"
	StatusSent    Status = "sent"
	StatusFailed  Status = "failed"
)

func (s Status) String() string { return string(s) }

func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusSent, StatusFailed:
		return true
	}
	return false
}

// IsTerminal reports whether no further transition may leave the status.
func (s Status) IsTerminal() bool {
	return s == StatusSent || s == StatusFailed
}

func ParseStatusFromString(s string) (Status, error) {
	st := Status(strings.ToLower(strings.TrimSpace(s)))
	if !st.IsValid() {
		return "", fmt.Errorf("%w: invalid status %q", ErrValidation, s)
	}
	return st, nil
}

// NotificationRecord is one pending/attempted/completed delivery of a form
// response to one destination. Created only by the enqueuer, mutated only by
// the dispatcher, never deleted: the table is the delivery audit trail.
type NotificationRecord struct {
	ID            string
	WebhookURL    string
	FormID        string
	ResponseID    string
	Payload       json.RawMessage
	Status        Status
	Attempts      int
	LastAttemptAt *time.Time
	ErrorMessage  *string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

func (r *NotificationRecord) Validate() error {
	if strings.TrimSpace(r.WebhookURL) == "" {
		return fmt.Errorf("%w: webhook url is required", ErrValidation)
	}
	if _, err := url.ParseRequestURI(r.WebhookURL); err != nil {
		return fmt.Errorf("%w: invalid webhook url: %v", ErrValidation, err)
	}
	if strings.TrimSpace(r.FormID) == "" {
		return fmt.Errorf("%w: form id is required", ErrValidation)
	}
	if strings.TrimSpace(r.ResponseID) == "" {
		return fmt.Errorf("%w: response id is required", ErrValidation)
	}
	if len(r.Payload) == 0 {
		return fmt.Errorf("%w: payload is required", ErrValidation)
	}
	if !json.Valid(r.Payload) {
		return fmt.Errorf("%w: payload must be valid JSON", ErrValidation)
	}
	if !r.Status.IsValid() {
		return fmt.Errorf("%w: invalid status %q", ErrValidation, r.Status)
	}
	if r.Attempts < 0 {
		return fmt.Errorf("%w: attempts must not be negative", ErrValidation)
	}
	return nil
}

// StatusAfterFailure returns the state the record moves to when the current
// delivery attempt fails: pending while attempts remain, failed once the
// attempt being recorded reaches maxAttempts.
func (r *NotificationRecord) StatusAfterFailure(maxAttempts int) Status {
	if r.Attempts+1 >= maxAttempts {
		return StatusFailed
	}
	return StatusPending
}
