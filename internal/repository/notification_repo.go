package repository

import (
	"context"
	"errors"
	"time"

	"github.com/formpipe/formpipe/internal/domain"
	"gorm.io/gorm"
)

type ListParams struct {
	Status   *domain.Status
	FormID   string
	Page     int
	PageSize int
}

type NotificationRepository interface {
	Create(ctx context.Context, r *domain.NotificationRecord) error
	GetByID(ctx context.Context, id string) (*domain.NotificationRecord, error)
	ListPending(ctx context.Context, limit int, maxAttempts int) ([]domain.NotificationRecord, error)
	MarkSent(ctx context.Context, id string, attemptedAt time.Time) error
	MarkFailure(ctx context.Context, id string, status domain.Status, attemptedAt time.Time, errMsg string) error
	List(ctx context.Context, params ListParams) ([]domain.NotificationRecord, int64, error)
}

type GormNotificationRepo struct {
	db *gorm.DB
}

func NewGormNotificationRepo(db *gorm.DB) *GormNotificationRepo {
	return &GormNotificationRepo{db: db}
}

func (r *GormNotificationRepo) Create(ctx context.Context, record *domain.NotificationRecord) error {
	model := recordModelFromDomain(record)
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		return err
	}
	if record != nil {
		*record = *recordModelToDomain(model)
	}
	return nil
}

func (r *GormNotificationRepo) GetByID(ctx context.Context, id string) (*domain.NotificationRecord, error) {
	var model NotificationRecordModel
	err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return recordModelToDomain(&model), nil
}

// ListPending selects delivery-eligible records: pending with attempts below
// the cap, oldest first to bound worst-case staleness. No row lock is taken;
// overlapping dispatcher runs may select the same record (at-least-once).
func (r *GormNotificationRepo) ListPending(ctx context.Context, limit int, maxAttempts int) ([]domain.NotificationRecord, error) {
	var models []NotificationRecordModel
	err := r.db.WithContext(ctx).
		Where("status = ? AND attempts < ?", domain.StatusPending, maxAttempts).
		Order("created_at ASC").
		Limit(limit).
		Find(&models).Error
	if err != nil {
		return nil, err
	}

	records := make([]domain.NotificationRecord, 0, len(models))
	for i := range models {
		records = append(records, *recordModelToDomain(&models[i]))
	}

	return records, nil
}

func (r *GormNotificationRepo) MarkSent(ctx context.Context, id string, attemptedAt time.Time) error {
	result := r.db.WithContext(ctx).
		Model(&NotificationRecordModel{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"status":          domain.StatusSent,
			"attempts":        gorm.Expr("attempts + 1"),
			"last_attempt_at": attemptedAt,
			"error_message":   nil,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *GormNotificationRepo) MarkFailure(ctx context.Context, id string, status domain.Status, attemptedAt time.Time, errMsg string) error {
	result := r.db.WithContext(ctx).
		Model(&NotificationRecordModel{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"status":          status,
			"attempts":        gorm.Expr("attempts + 1"),
			"last_attempt_at": attemptedAt,
			"error_message":   errMsg,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *GormNotificationRepo) List(ctx context.Context, params ListParams) ([]domain.NotificationRecord, int64, error) {
	query := r.db.WithContext(ctx).Model(&NotificationRecordModel{})

	if params.Status != nil {
		query = query.Where("status = ?", *params.Status)
	}
	if params.FormID != "" {
		query = query.Where("form_id = ?", params.FormID)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	page := max(params.Page, 1)
	pageSize := params.PageSize
	if pageSize < 1 {
		pageSize = 50
	}
	pageSize = min(pageSize, 100)

	var models []NotificationRecordModel
	err := query.
		Order("created_at DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&models).Error
	if err != nil {
		return nil, 0, err
	}

	records := make([]domain.NotificationRecord, 0, len(models))
	for i := range models {
		records = append(records, *recordModelToDomain(&models[i]))
	}

	return records, total, nil
}
