package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/formpipe/formpipe/internal/domain"
	"github.com/formpipe/formpipe/internal/repository"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Enqueuer is the best-effort notification hand-off invoked after a response
// is durably recorded.
type Enqueuer interface {
	Enqueue(ctx context.Context, response *domain.FormResponse)
}

// ResponseService records form responses and triggers webhook enqueue. The
// enqueue step runs inline but its result is deliberately discarded: the
// primary write never fails because of notification plumbing.
type ResponseService struct {
	responses repository.ResponseRepository
	tenants   repository.TenantRepository
	enqueuer  Enqueuer
	logger    *zap.Logger
	now       func() time.Time
}

func NewResponseService(
	responses repository.ResponseRepository,
	tenants repository.TenantRepository,
	enqueuer Enqueuer,
	logger *zap.Logger,
) (*ResponseService, error) {
	if responses == nil {
		return nil, fmt.Errorf("response repository is required")
	}
	if tenants == nil {
		return nil, fmt.Errorf("tenant repository is required")
	}
	if enqueuer == nil {
		return nil, fmt.Errorf("enqueuer is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &ResponseService{
		responses: responses,
		tenants:   tenants,
		enqueuer:  enqueuer,
		logger:    logger,
		now:       time.Now,
	}, nil
}

// Record persists a form response and then hands it to the enqueuer.
func (s *ResponseService) Record(ctx context.Context, formID string, name string, email string, answers json.RawMessage) (*domain.FormResponse, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	formID = strings.TrimSpace(formID)
	if formID == "" {
		return nil, fmt.Errorf("%w: form id is required", domain.ErrValidation)
	}

	if _, err := s.tenants.GetForm(ctx, formID); err != nil {
		return nil, err
	}

	response := &domain.FormResponse{
		ID:          uuid.NewString(),
		FormID:      formID,
		Name:        strings.TrimSpace(name),
		Email:       strings.TrimSpace(email),
		Answers:     answers,
		SubmittedAt: s.now().UTC(),
	}
	if err := response.Validate(); err != nil {
		return nil, err
	}

	if err := s.responses.Create(ctx, response); err != nil {
		return nil, fmt.Errorf("failed to create form response: %w", err)
	}

	// The response is durable; enqueue is best-effort from here.
	s.enqueuer.Enqueue(ctx, response)

	return response, nil
}
