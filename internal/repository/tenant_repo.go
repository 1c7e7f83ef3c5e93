package repository

import (
	"context"
	"errors"
	"strings"

	"github.com/formpipe/formpipe/internal/domain"
	"gorm.io/gorm"
)

type TenantRepository interface {
	GetByID(ctx context.Context, id string) (*domain.Tenant, error)
	GetForm(ctx context.Context, id string) (*domain.Form, error)
	// ResolveDestination maps a form to its tenant's configured webhook
	// endpoint. Returns (nil, nil) when the tenant has no URL on file or has
	// delivery disabled: the normal no-subscriber case, not an error.
	ResolveDestination(ctx context.Context, formID string) (*domain.Destination, error)
}

type GormTenantRepo struct {
	db *gorm.DB
}

func NewGormTenantRepo(db *gorm.DB) *GormTenantRepo {
	return &GormTenantRepo{db: db}
}

func (r *GormTenantRepo) GetByID(ctx context.Context, id string) (*domain.Tenant, error) {
	var model TenantModel
	err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return tenantModelToDomain(&model), nil
}

func (r *GormTenantRepo) GetForm(ctx context.Context, id string) (*domain.Form, error) {
	var model FormModel
	err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return formModelToDomain(&model), nil
}

type destinationRow struct {
	TenantID       string  `gorm:"column:tenant_id"`
	WebhookURL     *string `gorm:"column:webhook_url"`
	WebhookEnabled bool    `gorm:"column:webhook_enabled"`
}

func (r *GormTenantRepo) ResolveDestination(ctx context.Context, formID string) (*domain.Destination, error) {
	var row destinationRow
	result := r.db.WithContext(ctx).
		Table("forms").
		Select("tenants.id AS tenant_id, tenants.webhook_url, tenants.webhook_enabled").
		Joins("JOIN tenants ON tenants.id = forms.tenant_id").
		Where("forms.id = ?", formID).
		Limit(1).
		Scan(&row)
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, domain.ErrNotFound
	}

	if !row.WebhookEnabled || row.WebhookURL == nil || strings.TrimSpace(*row.WebhookURL) == "" {
		return nil, nil
	}

	return &domain.Destination{
		TenantID: row.TenantID,
		URL:      strings.TrimSpace(*row.WebhookURL),
	}, nil
}
