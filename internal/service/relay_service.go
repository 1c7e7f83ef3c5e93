package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/formpipe/formpipe/internal/delivery"
	"github.com/formpipe/formpipe/internal/domain"
	"github.com/formpipe/formpipe/internal/ratelimit"
	"github.com/formpipe/formpipe/internal/repository"
	"go.uber.org/zap"
)

// RelayService forwards a caller-supplied payload to a caller-supplied URL,
// synchronously and without persistence. The URL must exactly match the
// tenant's on-file endpoint and delivery must be enabled — otherwise the
// relay would be an open proxy to arbitrary third-party URLs.
type RelayService struct {
	tenants     repository.TenantRepository
	client      delivery.Client
	rateLimiter ratelimit.RateLimiter
	logger      *zap.Logger
}

func NewRelayService(
	tenants repository.TenantRepository,
	client delivery.Client,
	rateLimiter ratelimit.RateLimiter,
	logger *zap.Logger,
) (*RelayService, error) {
	if tenants == nil {
		return nil, fmt.Errorf("tenant repository is required")
	}
	if client == nil {
		return nil, fmt.Errorf("delivery client is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &RelayService{
		tenants:     tenants,
		client:      client,
		rateLimiter: rateLimiter,
		logger:      logger,
	}, nil
}

// Forward validates entitlement and relays the payload. Authorization is
// checked before any HTTP call is made.
func (s *RelayService) Forward(ctx context.Context, tenantID string, webhookURL string, payload json.RawMessage) (*delivery.Result, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	tenantID = strings.TrimSpace(tenantID)
	webhookURL = strings.TrimSpace(webhookURL)
	if tenantID == "" {
		return nil, fmt.Errorf("%w: tenant id is required", domain.ErrValidation)
	}
	if webhookURL == "" {
		return nil, fmt.Errorf("%w: webhook url is required", domain.ErrValidation)
	}
	if len(payload) == 0 || !json.Valid(payload) {
		return nil, fmt.Errorf("%w: payload must be valid JSON", domain.ErrValidation)
	}

	tenant, err := s.tenants.GetByID(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	// One opaque rejection for both checks: the relay must not act as an
	// oracle for probing which URLs a tenant has on file.
	if !tenant.WebhookEnabled || tenant.WebhookURL == nil || strings.TrimSpace(*tenant.WebhookURL) != webhookURL {
		return nil, fmt.Errorf("%w: webhook relay is not permitted for this destination", domain.ErrUnauthorized)
	}

	if s.rateLimiter != nil {
		if err := s.rateLimiter.Wait(ctx, delivery.Host(webhookURL)); err != nil {
			return nil, fmt.Errorf("rate limiter wait failed: %w", err)
		}
	}

	result, err := s.client.Deliver(ctx, webhookURL, payload)
	if err != nil {
		s.logger.Warn("relay delivery failed",
			zap.String("tenantId", tenantID),
			zap.Error(err),
		)
		return nil, err
	}

	return result, nil
}
