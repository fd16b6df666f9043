package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"reminder-service/internal/config"
	"reminder-service/internal/models"
	"reminder-service/internal/providers"
)

// BatchRunner runs one dispatch batch.
type BatchRunner interface {
	Run(ctx context.Context) (models.Summary, error)
}

// SummaryPublisher receives each finished batch summary.
type SummaryPublisher interface {
	Publish(summary models.Summary)
}

// Scheduler triggers the dispatch loop on a fixed interval. One run at a
// time; the loop itself assumes serialized invocations.
type Scheduler struct {
	runner BatchRunner
	hub    SummaryPublisher
	cfg    config.Config
	logger *logrus.Logger
}

func New(runner BatchRunner, hub SummaryPublisher, cfg config.Config, logger *logrus.Logger) *Scheduler {
	return &Scheduler{runner: runner, hub: hub, cfg: cfg, logger: logger}
}

func (s *Scheduler) Start(ctx context.Context, wg *sync.WaitGroup) {
	wg.Add(1)
	go func() {
		defer wg.Done()
		ticker := time.NewTicker(s.cfg.Dispatch.Interval)
		defer ticker.Stop()
		s.logger.Infof("Scheduler started, dispatching every %s", s.cfg.Dispatch.Interval)

		for {
			select {
			case <-ctx.Done():
				s.logger.Info("Scheduler stopped")
				return
			case <-ticker.C:
				s.runOnce(ctx)
			}
		}
	}()
}

func (s *Scheduler) runOnce(ctx context.Context) {
	summary, err := s.runner.Run(ctx)
	if err != nil {
		s.logger.Errorf("Scheduled dispatch failed: %v", err)
		return
	}
	if s.hub != nil {
		s.hub.Publish(summary)
	}
	if summary.Failed > 0 {
		if err := providers.SendBatchAlert(ctx, s.cfg, s.logger, summary); err != nil {
			s.logger.Errorf("Batch alert failed: %v", err)
		}
	}
}
