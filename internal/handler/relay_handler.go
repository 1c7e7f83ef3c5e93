package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/formpipe/formpipe/internal/delivery"
	"github.com/gofiber/fiber/v2"
)

// RelayForwarder synchronously forwards a payload to a tenant's webhook URL.
type RelayForwarder interface {
	Forward(ctx context.Context, tenantID string, webhookURL string, payload json.RawMessage) (*delivery.Result, error)
}

type RelayHandler struct {
	relay RelayForwarder
}

func NewRelayHandler(relay RelayForwarder) (*RelayHandler, error) {
	if relay == nil {
		return nil, fmt.Errorf("relay forwarder is required")
	}
	return &RelayHandler{relay: relay}, nil
}

func RegisterRelayRoutes(router fiber.Router, relay RelayForwarder) error {
	h, err := NewRelayHandler(relay)
	if err != nil {
		return err
	}

	v1 := router.Group("/v1")
	v1.Post("/relay", h.RelayWebhook)

	return nil
}

type relayRequest struct {
	TenantID   string          `json:"tenantId"`
	WebhookURL string          `json:"webhookUrl"`
	Payload    json.RawMessage `json:"payload"`
}

type relayResponse struct {
	StatusCode int    `json:"statusCode"`
	Body       string `json:"body,omitempty"`
}

type relayErrorResponse struct {
	Error          string `json:"error"`
	UpstreamStatus int    `json:"upstreamStatus,omitempty"`
	UpstreamBody   string `json:"upstreamBody,omitempty"`
}

func (h *RelayHandler) RelayWebhook(c *fiber.Ctx) error {
	var req relayRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	result, err := h.relay.Forward(c.Context(), req.TenantID, req.WebhookURL, req.Payload)
	if err != nil {
		// An upstream rejection is reported with its status and body so the
		// caller can see what the destination said.
		var deliveryErr *delivery.DeliveryError
		if errors.As(err, &deliveryErr) {
			return c.Status(fiber.StatusBadGateway).JSON(relayErrorResponse{
				Error:          deliveryErr.Message,
				UpstreamStatus: deliveryErr.StatusCode,
				UpstreamBody:   deliveryErr.Body,
			})
		}
		return toHTTPError(err)
	}

	return c.Status(fiber.StatusOK).JSON(relayResponse{
		StatusCode: result.StatusCode,
		Body:       result.Body,
	})
}
