package delivery

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

const (
	// UserAgent identifies outbound webhook calls to receiving endpoints.
	UserAgent = "FormPipe/1.0"

	defaultDeliveryTimeout = 10 * time.Second
)

// Result stores the upstream response of a successful delivery.
type Result struct {
	StatusCode int
	Body       string
}

// Client performs a single outbound delivery attempt. No retries happen here;
// all retry policy lives in the dispatcher.
type Client interface {
	Deliver(ctx context.Context, webhookURL string, payload json.RawMessage) (*Result, error)
}

// HTTPClient posts JSON payloads to webhook endpoints with a bounded timeout.
type HTTPClient struct {
	client *resty.Client
}

func NewHTTPClient(timeout time.Duration) *HTTPClient {
	if timeout <= 0 {
		timeout = defaultDeliveryTimeout
	}

	client := resty.New()
	client.SetTimeout(timeout)
	client.SetRetryCount(0)

	return &HTTPClient{client: client}
}

// Deliver posts the stored payload bytes verbatim, so a retry sends content
// byte-identical to the first attempt.
func (c *HTTPClient) Deliver(ctx context.Context, webhookURL string, payload json.RawMessage) (*Result, error) {
	if c == nil || c.client == nil {
		return nil, fmt.Errorf("delivery client is not initialized")
	}

	trimmedURL := strings.TrimSpace(webhookURL)
	if trimmedURL == "" {
		return nil, fmt.Errorf("webhook url is required")
	}
	if _, err := url.ParseRequestURI(trimmedURL); err != nil {
		return nil, fmt.Errorf("invalid webhook url: %w", err)
	}
	if len(payload) == 0 {
		return nil, fmt.Errorf("payload is required")
	}

	response, err := c.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetHeader("User-Agent", UserAgent).
		SetBody([]byte(payload)).
		Post(trimmedURL)
	if err != nil {
		return nil, &DeliveryError{
			Message:   "delivery request failed",
			Transient: !errors.Is(err, context.Canceled),
			Cause:     err,
		}
	}
	if response == nil {
		return nil, &DeliveryError{
			Message:   "destination returned empty response",
			Transient: true,
		}
	}

	statusCode := response.StatusCode()
	responseBody := strings.TrimSpace(response.String())

	if statusCode >= http.StatusOK && statusCode < http.StatusMultipleChoices {
		return &Result{
			StatusCode: statusCode,
			Body:       responseBody,
		}, nil
	}

	return nil, &DeliveryError{
		StatusCode: statusCode,
		Body:       responseBody,
		Message:    deliveryErrorMessage(statusCode, responseBody),
		Transient:  isTransientHTTPStatus(statusCode),
	}
}

func isTransientHTTPStatus(statusCode int) bool {
	return statusCode == http.StatusTooManyRequests || (statusCode >= http.StatusInternalServerError && statusCode <= 599)
}

func deliveryErrorMessage(statusCode int, body string) string {
	base := fmt.Sprintf("destination returned status %d", statusCode)
	if body == "" {
		return base
	}
	return fmt.Sprintf("%s: %s", base, body)
}

// Host extracts the destination host for rate limiting.
func Host(webhookURL string) string {
	parsed, err := url.Parse(strings.TrimSpace(webhookURL))
	if err != nil || parsed.Host == "" {
		return "unknown"
	}
	return strings.ToLower(parsed.Hostname())
}
