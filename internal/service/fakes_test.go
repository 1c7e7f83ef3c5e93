package service

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/formpipe/formpipe/internal/delivery"
	"github.com/formpipe/formpipe/internal/domain"
	"github.com/formpipe/formpipe/internal/repository"
)

type fakeNotificationRepo struct {
	createFn      func(ctx context.Context, r *domain.NotificationRecord) error
	getByIDFn     func(ctx context.Context, id string) (*domain.NotificationRecord, error)
	listPendingFn func(ctx context.Context, limit int, maxAttempts int) ([]domain.NotificationRecord, error)
	markSentFn    func(ctx context.Context, id string, attemptedAt time.Time) error
	markFailureFn func(ctx context.Context, id string, status domain.Status, attemptedAt time.Time, errMsg string) error
	listFn        func(ctx context.Context, params repository.ListParams) ([]domain.NotificationRecord, int64, error)
}

func (f *fakeNotificationRepo) Create(ctx context.Context, r *domain.NotificationRecord) error {
	if f.createFn == nil {
		return nil
	}
	return f.createFn(ctx, r)
}

func (f *fakeNotificationRepo) GetByID(ctx context.Context, id string) (*domain.NotificationRecord, error) {
	if f.getByIDFn == nil {
		return nil, domain.ErrNotFound
	}
	return f.getByIDFn(ctx, id)
}

func (f *fakeNotificationRepo) ListPending(ctx context.Context, limit int, maxAttempts int) ([]domain.NotificationRecord, error) {
	if f.listPendingFn == nil {
		return nil, nil
	}
	return f.listPendingFn(ctx, limit, maxAttempts)
}

func (f *fakeNotificationRepo) MarkSent(ctx context.Context, id string, attemptedAt time.Time) error {
	if f.markSentFn == nil {
		return nil
	}
	return f.markSentFn(ctx, id, attemptedAt)
}

func (f *fakeNotificationRepo) MarkFailure(ctx context.Context, id string, status domain.Status, attemptedAt time.Time, errMsg string) error {
	if f.markFailureFn == nil {
		return nil
	}
	return f.markFailureFn(ctx, id, status, attemptedAt, errMsg)
}

func (f *fakeNotificationRepo) List(ctx context.Context, params repository.ListParams) ([]domain.NotificationRecord, int64, error) {
	if f.listFn == nil {
		return nil, 0, nil
	}
	return f.listFn(ctx, params)
}

// memoryRecordStore implements the notification repository with real
// selection and transition semantics, for multi-run scenarios.
type memoryRecordStore struct {
	mu      sync.Mutex
	records map[string]*domain.NotificationRecord
	listErr error
}

func newMemoryRecordStore() *memoryRecordStore {
	return &memoryRecordStore{records: make(map[string]*domain.NotificationRecord)}
}

func (s *memoryRecordStore) Create(ctx context.Context, r *domain.NotificationRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	clone := *r
	if clone.CreatedAt.IsZero() {
		clone.CreatedAt = time.Now()
	}
	s.records[clone.ID] = &clone
	return nil
}

func (s *memoryRecordStore) GetByID(ctx context.Context, id string) (*domain.NotificationRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.records[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	clone := *r
	return &clone, nil
}

func (s *memoryRecordStore) ListPending(ctx context.Context, limit int, maxAttempts int) ([]domain.NotificationRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.listErr != nil {
		return nil, s.listErr
	}

	eligible := make([]domain.NotificationRecord, 0)
	for _, r := range s.records {
		if r.Status == domain.StatusPending && r.Attempts < maxAttempts {
			eligible = append(eligible, *r)
		}
	}
	sort.Slice(eligible, func(i, j int) bool {
		return eligible[i].CreatedAt.Before(eligible[j].CreatedAt)
	})
	if len(eligible) > limit {
		eligible = eligible[:limit]
	}
	return eligible, nil
}

func (s *memoryRecordStore) MarkSent(ctx context.Context, id string, attemptedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.records[id]
	if !ok {
		return domain.ErrNotFound
	}
	r.Status = domain.StatusSent
	r.Attempts++
	at := attemptedAt
	r.LastAttemptAt = &at
	r.ErrorMessage = nil
	r.UpdatedAt = time.Now()
	return nil
}

func (s *memoryRecordStore) MarkFailure(ctx context.Context, id string, status domain.Status, attemptedAt time.Time, errMsg string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.records[id]
	if !ok {
		return domain.ErrNotFound
	}
	r.Status = status
	r.Attempts++
	at := attemptedAt
	r.LastAttemptAt = &at
	msg := errMsg
	r.ErrorMessage = &msg
	r.UpdatedAt = time.Now()
	return nil
}

func (s *memoryRecordStore) List(ctx context.Context, params repository.ListParams) ([]domain.NotificationRecord, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	all := make([]domain.NotificationRecord, 0, len(s.records))
	for _, r := range s.records {
		if params.Status != nil && r.Status != *params.Status {
			continue
		}
		all = append(all, *r)
	}
	return all, int64(len(all)), nil
}

type fakeTenantRepo struct {
	getByIDFn            func(ctx context.Context, id string) (*domain.Tenant, error)
	getFormFn            func(ctx context.Context, id string) (*domain.Form, error)
	resolveDestinationFn func(ctx context.Context, formID string) (*domain.Destination, error)
}

func (f *fakeTenantRepo) GetByID(ctx context.Context, id string) (*domain.Tenant, error) {
	if f.getByIDFn == nil {
		return nil, domain.ErrNotFound
	}
	return f.getByIDFn(ctx, id)
}

func (f *fakeTenantRepo) GetForm(ctx context.Context, id string) (*domain.Form, error) {
	if f.getFormFn == nil {
		return nil, domain.ErrNotFound
	}
	return f.getFormFn(ctx, id)
}

func (f *fakeTenantRepo) ResolveDestination(ctx context.Context, formID string) (*domain.Destination, error) {
	if f.resolveDestinationFn == nil {
		return nil, nil
	}
	return f.resolveDestinationFn(ctx, formID)
}

type fakeResponseRepo struct {
	createFn  func(ctx context.Context, r *domain.FormResponse) error
	getByIDFn func(ctx context.Context, id string) (*domain.FormResponse, error)
}

func (f *fakeResponseRepo) Create(ctx context.Context, r *domain.FormResponse) error {
	if f.createFn == nil {
		return nil
	}
	return f.createFn(ctx, r)
}

func (f *fakeResponseRepo) GetByID(ctx context.Context, id string) (*domain.FormResponse, error) {
	if f.getByIDFn == nil {
		return nil, domain.ErrNotFound
	}
	return f.getByIDFn(ctx, id)
}

type fakeDeliveryClient struct {
	mu        sync.Mutex
	calls     []deliveryCall
	deliverFn func(ctx context.Context, url string, payload json.RawMessage) (*delivery.Result, error)
}

type deliveryCall struct {
	url     string
	payload json.RawMessage
}

func (f *fakeDeliveryClient) Deliver(ctx context.Context, url string, payload json.RawMessage) (*delivery.Result, error) {
	f.mu.Lock()
	f.calls = append(f.calls, deliveryCall{url: url, payload: append(json.RawMessage(nil), payload...)})
	f.mu.Unlock()

	if f.deliverFn == nil {
		return &delivery.Result{StatusCode: 200}, nil
	}
	return f.deliverFn(ctx, url, payload)
}

func (f *fakeDeliveryClient) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

type fakeRateLimiter struct {
	allowFn func(ctx context.Context, host string) (bool, error)
	waitFn  func(ctx context.Context, host string) error
}

func (f *fakeRateLimiter) Allow(ctx context.Context, host string) (bool, error) {
	if f.allowFn == nil {
		return true, nil
	}
	return f.allowFn(ctx, host)
}

func (f *fakeRateLimiter) Wait(ctx context.Context, host string) error {
	if f.waitFn == nil {
		return nil
	}
	return f.waitFn(ctx, host)
}

func mustRecord(id string, createdAt time.Time, attempts int) *domain.NotificationRecord {
	return &domain.NotificationRecord{
		ID:         id,
		WebhookURL: fmt.Sprintf("https://hooks.example.com/%s", id),
		FormID:     "f1",
		ResponseID: fmt.Sprintf("resp-%s", id),
		Payload:    json.RawMessage(`{"response_id":"r1","form_id":"f1"}`),
		Status:     domain.StatusPending,
		Attempts:   attempts,
		CreatedAt:  createdAt,
	}
}
