package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// Poller triggers dispatcher runs on an interval for deployments without an
// external scheduler. The trigger endpoint remains the primary surface; the
// poller is off unless an interval is configured.
type Poller struct {
	dispatcher *DispatchService
	logger     *zap.Logger
	interval   time.Duration
}

func NewPoller(dispatcher *DispatchService, interval time.Duration, logger *zap.Logger) (*Poller, error) {
	if dispatcher == nil {
		return nil, fmt.Errorf("dispatch service is required")
	}
	if interval <= 0 {
		return nil, fmt.Errorf("poll interval must be positive")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Poller{
		dispatcher: dispatcher,
		logger:     logger,
		interval:   interval,
	}, nil
}

func (p *Poller) Start(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	// Run once up front so already-pending records do not wait for the first
	// ticker edge.
	p.runOnce(ctx)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			p.runOnce(ctx)
		}
	}
}

func (p *Poller) runOnce(ctx context.Context) {
	if _, err := p.dispatcher.Run(ctx); err != nil {
		if ctx.Err() != nil {
			return
		}
		// A failed run is retried at the next tick; nothing is corrupted
		// because per-record mutations are independent commits.
		p.logger.Error("scheduled dispatch run failed", zap.Error(err))
	}
}
