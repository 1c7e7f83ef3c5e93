package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/formpipe/formpipe/internal/domain"
	"github.com/gofiber/fiber/v2"
)

// ResponseRecorder persists a form response and triggers the webhook enqueue.
type ResponseRecorder interface {
	Record(ctx context.Context, formID string, name string, email string, answers json.RawMessage) (*domain.FormResponse, error)
}

type ResponseHandler struct {
	responses ResponseRecorder
}

func NewResponseHandler(responses ResponseRecorder) (*ResponseHandler, error) {
	if responses == nil {
		return nil, fmt.Errorf("response recorder is required")
	}
	return &ResponseHandler{responses: responses}, nil
}

func RegisterResponseRoutes(router fiber.Router, responses ResponseRecorder) error {
	h, err := NewResponseHandler(responses)
	if err != nil {
		return err
	}

	v1 := router.Group("/v1")
	v1.Post("/forms/:formId/responses", h.CreateResponse)

	return nil
}

type createResponseRequest struct {
	Name    string          `json:"name"`
	Email   string          `json:"email"`
	Answers json.RawMessage `json:"answers"`
}

type responseResponse struct {
	ID          string          `json:"id"`
	FormID      string          `json:"formId"`
	Name        string          `json:"name"`
	Email       string          `json:"email"`
	Answers     json.RawMessage `json:"answers"`
	SubmittedAt time.Time       `json:"submittedAt"`
}

func (h *ResponseHandler) CreateResponse(c *fiber.Ctx) error {
	var req createResponseRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	formID := strings.TrimSpace(c.Params("formId"))
	response, err := h.responses.Record(c.Context(), formID, req.Name, req.Email, req.Answers)
	if err != nil {
		return toHTTPError(err)
	}

	return c.Status(fiber.StatusCreated).JSON(responseResponse{
		ID:          response.ID,
		FormID:      response.FormID,
		Name:        response.Name,
		Email:       response.Email,
		Answers:     response.Answers,
		SubmittedAt: response.SubmittedAt,
	})
}
