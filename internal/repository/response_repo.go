package repository

import (
	"context"
	"errors"

	"github.com/formpipe/formpipe/internal/domain"
	"gorm.io/gorm"
)

type ResponseRepository interface {
	Create(ctx context.Context, response *domain.FormResponse) error
	GetByID(ctx context.Context, id string) (*domain.FormResponse, error)
}

type GormResponseRepo struct {
	db *gorm.DB
}

func NewGormResponseRepo(db *gorm.DB) *GormResponseRepo {
	return &GormResponseRepo{db: db}
}

func (r *GormResponseRepo) Create(ctx context.Context, response *domain.FormResponse) error {
	model := responseModelFromDomain(response)
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		return err
	}
	if response != nil {
		*response = *responseModelToDomain(model)
	}
	return nil
}

func (r *GormResponseRepo) GetByID(ctx context.Context, id string) (*domain.FormResponse, error) {
	var model FormResponseModel
	err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return responseModelToDomain(&model), nil
}
