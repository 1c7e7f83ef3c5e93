package service

import (
	"context"
	"fmt"
	"time"

	"github.com/formpipe/formpipe/internal/domain"
	"github.com/formpipe/formpipe/internal/observability"
	"github.com/formpipe/formpipe/internal/repository"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// EnqueueService creates notification records for newly recorded form
// responses. It resolves the form's destination and snapshots the payload at
// enqueue time; retries later send exactly those bytes.
type EnqueueService struct {
	records repository.NotificationRepository
	tenants repository.TenantRepository
	logger  *zap.Logger
	metrics *observability.Metrics
	now     func() time.Time
}

func NewEnqueueService(
	records repository.NotificationRepository,
	tenants repository.TenantRepository,
	logger *zap.Logger,
) (*EnqueueService, error) {
	if records == nil {
		return nil, fmt.Errorf("notification repository is required")
	}
	if tenants == nil {
		return nil, fmt.Errorf("tenant repository is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &EnqueueService{
		records: records,
		tenants: tenants,
		logger:  logger,
		now:     time.Now,
	}, nil
}

func (s *EnqueueService) SetMetrics(metrics *observability.Metrics) {
	if s == nil {
		return
	}
	s.metrics = metrics
}

// Enqueue is best-effort relative to the response write: every failure is
// logged and swallowed so the caller recording the response never observes
// it. The response must already be durably persisted.
func (s *EnqueueService) Enqueue(ctx context.Context, response *domain.FormResponse) {
	record, err := s.enqueue(ctx, response)
	if err != nil {
		s.logger.Error("webhook enqueue failed",
			zap.String("responseId", responseID(response)),
			zap.Error(err),
		)
		return
	}
	if record == nil {
		return
	}

	s.logger.Info("notification enqueued",
		zap.String("recordId", record.ID),
		zap.String("responseId", record.ResponseID),
	)
	s.metrics.IncEnqueued()
}

func (s *EnqueueService) enqueue(ctx context.Context, response *domain.FormResponse) (*domain.NotificationRecord, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if response == nil {
		return nil, fmt.Errorf("%w: response is required", domain.ErrValidation)
	}

	dest, err := s.tenants.ResolveDestination(ctx, response.FormID)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve destination: %w", err)
	}
	if dest == nil {
		// No subscriber for this form; the normal quiet case.
		s.logger.Debug("no webhook destination configured, skipping",
			zap.String("formId", response.FormID),
		)
		return nil, nil
	}

	payload, err := domain.BuildDeliveryPayload(response)
	if err != nil {
		return nil, err
	}

	record := &domain.NotificationRecord{
		ID:         uuid.NewString(),
		WebhookURL: dest.URL,
		FormID:     response.FormID,
		ResponseID: response.ID,
		Payload:    payload,
		Status:     domain.StatusPending,
		Attempts:   0,
	}
	if err := record.Validate(); err != nil {
		return nil, err
	}

	if err := s.records.Create(ctx, record); err != nil {
		return nil, fmt.Errorf("failed to create notification record: %w", err)
	}

	return record, nil
}

func responseID(response *domain.FormResponse) string {
	if response == nil {
		return ""
	}
	return response.ID
}
