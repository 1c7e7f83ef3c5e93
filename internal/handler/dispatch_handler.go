package handler

import (
	"context"
	"fmt"

	"github.com/formpipe/formpipe/internal/service"
	"github.com/gofiber/fiber/v2"
)

// DispatchRunner executes one dispatcher batch.
type DispatchRunner interface {
	Run(ctx context.Context) (*service.RunSummary, error)
}

type DispatchHandler struct {
	dispatcher DispatchRunner
}

func NewDispatchHandler(dispatcher DispatchRunner) (*DispatchHandler, error) {
	if dispatcher == nil {
		return nil, fmt.Errorf("dispatch runner is required")
	}
	return &DispatchHandler{dispatcher: dispatcher}, nil
}

func RegisterDispatchRoutes(router fiber.Router, dispatcher DispatchRunner) error {
	h, err := NewDispatchHandler(dispatcher)
	if err != nil {
		return err
	}

	v1 := router.Group("/v1")
	v1.Post("/dispatch/run", h.RunDispatch)

	return nil
}

type dispatchRunResponse struct {
	Processed  int `json:"processed"`
	Successful int `json:"successful"`
	Failed     int `json:"failed"`
}

// RunDispatch triggers a single batch run. Per-record failures are reported in
// the counts, not as an HTTP error; only a failure to select work at all makes
// the endpoint unhealthy.
func (h *DispatchHandler) RunDispatch(c *fiber.Ctx) error {
	summary, err := h.dispatcher.Run(c.Context())
	if err != nil {
		return fiber.NewError(fiber.StatusServiceUnavailable, err.Error())
	}

	return c.Status(fiber.StatusOK).JSON(dispatchRunResponse{
		Processed:  summary.Processed,
		Successful: summary.Successful,
		Failed:     summary.Failed,
	})
}
