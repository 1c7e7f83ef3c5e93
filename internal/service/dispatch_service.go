package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/formpipe/formpipe/internal/delivery"
	"github.com/formpipe/formpipe/internal/domain"
	"github.com/formpipe/formpipe/internal/observability"
	"github.com/formpipe/formpipe/internal/ratelimit"
	"github.com/formpipe/formpipe/internal/repository"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	// DefaultBatchSize bounds the work of a single dispatcher run.
	DefaultBatchSize = 10
	// DefaultMaxAttempts is the delivery attempt cap per record.
	DefaultMaxAttempts = 3

	maxErrorMessageLen = 2000
)

// RunSummary reports the outcome of one dispatcher run.
type RunSummary struct {
	Processed  int
	Successful int
	Failed     int
}

// DispatchService selects eligible pending records and attempts delivery for
// each, recording outcomes independently. Runs are at-least-once: there is no
// cross-run record lock, so overlapping invocations may double-send.
// Receivers de-duplicate on response_id.
type DispatchService struct {
	records     repository.NotificationRepository
	client      delivery.Client
	rateLimiter ratelimit.RateLimiter
	logger      *zap.Logger
	metrics     *observability.Metrics
	batchSize   int
	maxAttempts int
	now         func() time.Time
}

func NewDispatchService(
	records repository.NotificationRepository,
	client delivery.Client,
	rateLimiter ratelimit.RateLimiter,
	batchSize int,
	maxAttempts int,
	logger *zap.Logger,
) (*DispatchService, error) {
	if records == nil {
		return nil, fmt.Errorf("notification repository is required")
	}
	if client == nil {
		return nil, fmt.Errorf("delivery client is required")
	}
	if batchSize < 1 {
		batchSize = DefaultBatchSize
	}
	if maxAttempts < 1 {
		maxAttempts = DefaultMaxAttempts
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &DispatchService{
		records:     records,
		client:      client,
		rateLimiter: rateLimiter,
		logger:      logger,
		batchSize:   batchSize,
		maxAttempts: maxAttempts,
		now:         time.Now,
	}, nil
}

func (s *DispatchService) SetMetrics(metrics *observability.Metrics) {
	if s == nil {
		return
	}
	s.metrics = metrics
}

// Run executes one dispatch batch. Only a selection failure aborts the run;
// per-record delivery failures are recorded on the rows and counted in the
// summary.
func (s *DispatchService) Run(ctx context.Context) (*RunSummary, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	batch, err := s.records.ListPending(ctx, s.batchSize, s.maxAttempts)
	if err != nil {
		s.metrics.IncDispatchRun("error")
		return nil, fmt.Errorf("failed to select pending notifications: %w", err)
	}

	s.metrics.ObserveDispatchBatch(len(batch))

	summary := &RunSummary{Processed: len(batch)}
	if len(batch) == 0 {
		s.metrics.IncDispatchRun("ok")
		return summary, nil
	}

	var mu sync.Mutex
	g, groupCtx := errgroup.WithContext(ctx)
	g.SetLimit(s.batchSize)
	for i := range batch {
		record := batch[i]
		g.Go(func() error {
			ok := s.attempt(groupCtx, &record)
			mu.Lock()
			if ok {
				summary.Successful++
			} else {
				summary.Failed++
			}
			mu.Unlock()
			// Outcomes live on the rows; a failed record must not cancel
			// its siblings.
			return nil
		})
	}
	_ = g.Wait()

	s.logger.Info("dispatch run completed",
		zap.Int("processed", summary.Processed),
		zap.Int("successful", summary.Successful),
		zap.Int("failed", summary.Failed),
	)
	s.metrics.IncDispatchRun("ok")

	return summary, nil
}

// attempt performs one delivery try for a record and persists the outcome.
// Returns true when the destination accepted the payload.
func (s *DispatchService) attempt(ctx context.Context, record *domain.NotificationRecord) bool {
	if s.rateLimiter != nil {
		if err := s.rateLimiter.Wait(ctx, delivery.Host(record.WebhookURL)); err != nil {
			// Not a delivery attempt: leave the record untouched so the next
			// run picks it up without consuming the attempt budget.
			s.logger.Error("rate limiter wait failed, deferring record",
				zap.String("recordId", record.ID),
				zap.Error(err),
			)
			return false
		}
	}

	attemptedAt := s.now().UTC()
	sendStart := s.now()
	result, sendErr := s.client.Deliver(ctx, record.WebhookURL, record.Payload)
	s.metrics.ObserveDeliveryDuration(s.now().Sub(sendStart))

	if sendErr == nil {
		if err := s.records.MarkSent(ctx, record.ID, attemptedAt); err != nil {
			s.logger.Error("failed to mark notification as sent",
				zap.String("recordId", record.ID),
				zap.Error(err),
			)
			return false
		}
		s.logger.Info("notification delivered",
			zap.String("recordId", record.ID),
			zap.String("responseId", record.ResponseID),
			zap.Int("status", result.StatusCode),
			zap.Int("attempt", record.Attempts+1),
		)
		s.metrics.IncDeliverySent()
		return true
	}

	nextStatus := record.StatusAfterFailure(s.maxAttempts)
	errMsg := truncateError(sendErr)
	if err := s.records.MarkFailure(ctx, record.ID, nextStatus, attemptedAt, errMsg); err != nil {
		s.logger.Error("failed to record delivery failure",
			zap.String("recordId", record.ID),
			zap.Error(err),
		)
		return false
	}

	if nextStatus == domain.StatusFailed {
		s.logger.Warn("notification exhausted delivery attempts",
			zap.String("recordId", record.ID),
			zap.String("responseId", record.ResponseID),
			zap.Int("attempts", record.Attempts+1),
			zap.Bool("transient", delivery.IsTransient(sendErr)),
			zap.String("error", errMsg),
		)
		s.metrics.IncDeliveryFailed("exhausted")
	} else {
		s.logger.Info("notification delivery failed, will retry",
			zap.String("recordId", record.ID),
			zap.Int("attempt", record.Attempts+1),
			zap.Bool("transient", delivery.IsTransient(sendErr)),
			zap.String("error", errMsg),
		)
		s.metrics.IncDeliveryFailed("retrying")
	}

	return false
}

func truncateError(err error) string {
	msg := err.Error()
	if len(msg) > maxErrorMessageLen {
		return msg[:maxErrorMessageLen]
	}
	return msg
}
