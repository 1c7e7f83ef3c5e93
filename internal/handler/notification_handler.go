package handler

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/formpipe/formpipe/internal/domain"
	"github.com/formpipe/formpipe/internal/repository"
	"github.com/gofiber/fiber/v2"
)

const (
	defaultPage     = 1
	defaultPageSize = 50
	maxPageSize     = 100
)

// NotificationReader is the audit surface over the notification record store.
type NotificationReader interface {
	GetByID(ctx context.Context, id string) (*domain.NotificationRecord, error)
	List(ctx context.Context, params repository.ListParams) ([]domain.NotificationRecord, int64, error)
}

type NotificationHandler struct {
	records NotificationReader
}

func NewNotificationHandler(records NotificationReader) (*NotificationHandler, error) {
	if records == nil {
		return nil, fmt.Errorf("notification reader is required")
	}
	return &NotificationHandler{records: records}, nil
}

func RegisterNotificationRoutes(router fiber.Router, records NotificationReader) error {
	h, err := NewNotificationHandler(records)
	if err != nil {
		return err
	}

	v1 := router.Group("/v1")
	v1.Get("/notifications/:id", h.GetNotification)
	v1.Get("/notifications", h.ListNotifications)

	return nil
}

type notificationResponse struct {
	ID            string     `json:"id"`
	WebhookURL    string     `json:"webhookUrl"`
	FormID        string     `json:"formId"`
	ResponseID    string     `json:"responseId"`
	Status        string     `json:"status"`
	Attempts      int        `json:"attempts"`
	LastAttemptAt *time.Time `json:"lastAttemptAt,omitempty"`
	ErrorMessage  *string    `json:"errorMessage,omitempty"`
	CreatedAt     time.Time  `json:"createdAt,omitempty"`
	UpdatedAt     time.Time  `json:"updatedAt,omitempty"`
}

type listNotificationsResponse struct {
	Data []notificationResponse `json:"data"`
	Meta listMeta               `json:"meta"`
}

type listMeta struct {
	Page     int   `json:"page"`
	PageSize int   `json:"pageSize"`
	Total    int64 `json:"total"`
}

func (h *NotificationHandler) GetNotification(c *fiber.Ctx) error {
	id := strings.TrimSpace(c.Params("id"))
	record, err := h.records.GetByID(c.Context(), id)
	if err != nil {
		return toHTTPError(err)
	}

	return c.Status(fiber.StatusOK).JSON(toNotificationResponse(record))
}

func (h *NotificationHandler) ListNotifications(c *fiber.Ctx) error {
	params, err := parseListParams(c)
	if err != nil {
		return toHTTPError(err)
	}

	records, total, err := h.records.List(c.Context(), params)
	if err != nil {
		return toHTTPError(err)
	}

	return c.Status(fiber.StatusOK).JSON(listNotificationsResponse{
		Data: toNotificationResponses(records),
		Meta: listMeta{
			Page:     params.Page,
			PageSize: params.PageSize,
			Total:    total,
		},
	})
}

func parseListParams(c *fiber.Ctx) (repository.ListParams, error) {
	params := repository.ListParams{
		Page:     c.QueryInt("page", defaultPage),
		PageSize: c.QueryInt("pageSize", defaultPageSize),
		FormID:   strings.TrimSpace(c.Query("formId")),
	}

	if params.Page < 1 {
		return repository.ListParams{}, fmt.Errorf("%w: page must be >= 1", domain.ErrValidation)
	}
	if params.PageSize < 1 || params.PageSize > maxPageSize {
		return repository.ListParams{}, fmt.Errorf("%w: pageSize must be between 1 and %d", domain.ErrValidation, maxPageSize)
	}

	if rawStatus := strings.TrimSpace(c.Query("status")); rawStatus != "" {
		status, err := domain.ParseStatusFromString(rawStatus)
		if err != nil {
			return repository.ListParams{}, err
		}
		params.Status = &status
	}

	return params, nil
}

func toNotificationResponses(records []domain.NotificationRecord) []notificationResponse {
	responses := make([]notificationResponse, 0, len(records))
	for _, record := range records {
		r := record
		responses = append(responses, toNotificationResponse(&r))
	}
	return responses
}

func toNotificationResponse(r *domain.NotificationRecord) notificationResponse {
	if r == nil {
		return notificationResponse{}
	}

	return notificationResponse{
		ID:            r.ID,
		WebhookURL:    r.WebhookURL,
		FormID:        r.FormID,
		ResponseID:    r.ResponseID,
		Status:        r.Status.String(),
		Attempts:      r.Attempts,
		LastAttemptAt: r.LastAttemptAt,
		ErrorMessage:  r.ErrorMessage,
		CreatedAt:     r.CreatedAt,
		UpdatedAt:     r.UpdatedAt,
	}
}

func toHTTPError(err error) error {
	switch {
	case errors.Is(err, domain.ErrValidation):
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrNotFound):
		return fiber.NewError(fiber.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrConflict):
		return fiber.NewError(fiber.StatusConflict, err.Error())
	case errors.Is(err, domain.ErrUnauthorized):
		return fiber.NewError(fiber.StatusForbidden, err.Error())
	default:
		return err
	}
}
