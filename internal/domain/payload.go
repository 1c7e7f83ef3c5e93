package domain

import (
	"encoding/json"
	"fmt"
	"time"
)

// DeliveryPayload is the wire body POSTed to a destination. It is fully
// materialized at enqueue time and stored on the notification record, so
// later changes to the source response cannot alter what a retry sends.
type DeliveryPayload struct {
	ResponseID  string          `json:"response_id"`
	FormID      string          `json:"form_id"`
	SubmittedAt time.Time       `json:"submitted_at"`
	Name        string          `json:"name,omitempty"`
	Email       string          `json:"email,omitempty"`
	Answers     json.RawMessage `json:"answers,omitempty"`
}

// BuildDeliveryPayload snapshots a form response into delivery-ready JSON.
func BuildDeliveryPayload(response *FormResponse) (json.RawMessage, error) {
	if response == nil {
		return nil, fmt.Errorf("%w: response is required", ErrValidation)
	}

	payload := DeliveryPayload{
		ResponseID:  response.ID,
		FormID:      response.FormID,
		SubmittedAt: response.SubmittedAt.UTC(),
		Name:        response.Name,
		Email:       response.Email,
		Answers:     response.Answers,
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal delivery payload: %w", err)
	}
	return raw, nil
}
