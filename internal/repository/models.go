package repository

import (
	"encoding/json"
	"time"

	"github.com/formpipe/formpipe/internal/domain"
)

// NotificationRecordModel is the persistence model for notification_records.
type NotificationRecordModel struct {
	ID            string          `gorm:"type:uuid;primaryKey"`
	WebhookURL    string          `gorm:"type:text;not null"`
	FormID        string          `gorm:"type:uuid;not null"`
	ResponseID    string          `gorm:"type:uuid;not null"`
	Payload       json.RawMessage `gorm:"type:jsonb;not null"`
	Status        domain.Status   `gorm:"type:varchar(10);not null"`
	Attempts      int             `gorm:"not null;default:0"`
	LastAttemptAt *time.Time
	ErrorMessage  *string `gorm:"type:text"`
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

func (NotificationRecordModel) TableName() string {
	return "notification_records"
}

// TenantModel is the persistence model for tenants.
type TenantModel struct {
	ID             string  `gorm:"type:uuid;primaryKey"`
	Name           string  `gorm:"type:varchar(255);not null"`
	WebhookURL     *string `gorm:"type:text"`
	WebhookEnabled bool    `gorm:"not null;default:false"`
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

func (TenantModel) TableName() string {
	return "tenants"
}

// FormModel is the persistence model for forms.
type FormModel struct {
	ID        string `gorm:"type:uuid;primaryKey"`
	TenantID  string `gorm:"type:uuid;not null"`
	Name      string `gorm:"type:varchar(255);not null"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (FormModel) TableName() string {
	return "forms"
}

// FormResponseModel is the persistence model for form_responses.
type FormResponseModel struct {
	ID          string          `gorm:"type:uuid;primaryKey"`
	FormID      string          `gorm:"type:uuid;not null"`
	Name        string          `gorm:"type:varchar(255)"`
	Email       string          `gorm:"type:varchar(255)"`
	Answers     json.RawMessage `gorm:"type:jsonb"`
	SubmittedAt time.Time       `gorm:"not null"`
	CreatedAt   time.Time
}

func (FormResponseModel) TableName() string {
	return "form_responses"
}

func recordModelFromDomain(r *domain.NotificationRecord) *NotificationRecordModel {
	if r == nil {
		return nil
	}

	return &NotificationRecordModel{
		ID:            r.ID,
		WebhookURL:    r.WebhookURL,
		FormID:        r.FormID,
		ResponseID:    r.ResponseID,
		Payload:       r.Payload,
		Status:        r.Status,
		Attempts:      r.Attempts,
		LastAttemptAt: r.LastAttemptAt,
		ErrorMessage:  r.ErrorMessage,
		CreatedAt:     r.CreatedAt,
		UpdatedAt:     r.UpdatedAt,
	}
}

func recordModelToDomain(m *NotificationRecordModel) *domain.NotificationRecord {
	if m == nil {
		return nil
	}

	return &domain.NotificationRecord{
		ID:            m.ID,
		WebhookURL:    m.WebhookURL,
		FormID:        m.FormID,
		ResponseID:    m.ResponseID,
		Payload:       m.Payload,
		Status:        m.Status,
		Attempts:      m.Attempts,
		LastAttemptAt: m.LastAttemptAt,
		ErrorMessage:  m.ErrorMessage,
		CreatedAt:     m.CreatedAt,
		UpdatedAt:     m.UpdatedAt,
	}
}

func tenantModelToDomain(m *TenantModel) *domain.Tenant {
	if m == nil {
		return nil
	}

	return &domain.Tenant{
		ID:             m.ID,
		Name:           m.Name,
		WebhookURL:     m.WebhookURL,
		WebhookEnabled: m.WebhookEnabled,
		CreatedAt:      m.CreatedAt,
		UpdatedAt:      m.UpdatedAt,
	}
}

func formModelToDomain(m *FormModel) *domain.Form {
	if m == nil {
		return nil
	}

	return &domain.Form{
		ID:        m.ID,
		TenantID:  m.TenantID,
		Name:      m.Name,
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
}

func responseModelFromDomain(r *domain.FormResponse) *FormResponseModel {
	if r == nil {
		return nil
	}

	return &FormResponseModel{
		ID:          r.ID,
		FormID:      r.FormID,
		Name:        r.Name,
		Email:       r.Email,
		Answers:     r.Answers,
		SubmittedAt: r.SubmittedAt,
		CreatedAt:   r.CreatedAt,
	}
}

func responseModelToDomain(m *FormResponseModel) *domain.FormResponse {
	if m == nil {
		return nil
	}

	return &domain.FormResponse{
		ID:          m.ID,
		FormID:      m.FormID,
		Name:        m.Name,
		Email:       m.Email,
		Answers:     m.Answers,
		SubmittedAt: m.SubmittedAt,
		CreatedAt:   m.CreatedAt,
	}
}
