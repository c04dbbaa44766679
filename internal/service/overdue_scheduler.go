package service

import (
	"context"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/opsdesk/ticket-workflow/internal/config"
)

// OverdueScheduler periodically recomputes the overdue flag for unresolved
// tickets past their due date.
type OverdueScheduler struct {
	workflows *WorkflowService
	logger    *zap.Logger
	cfg       config.SLAConfig
	cron      *cron.Cron
}

// NewOverdueScheduler constructs the scheduler.
func NewOverdueScheduler(workflows *WorkflowService, logger *zap.Logger, cfg config.SLAConfig) *OverdueScheduler {
	return &OverdueScheduler{
		workflows: workflows,
		logger:    logger,
		cfg:       cfg,
		cron:      cron.New(),
	}
}

// Start registers and starts the sweep job.
func (s *OverdueScheduler) Start() error {
	if !s.cfg.OverdueSweepEnabled {
		s.logger.Info("overdue sweep disabled")
		return nil
	}
	_, err := s.cron.AddFunc(s.cfg.OverdueSweepSpec, s.sweep)
	if err != nil {
		return err
	}
	s.cron.Start()
	s.logger.Info("overdue sweep scheduled", zap.String("spec", s.cfg.OverdueSweepSpec))
	return nil
}

// Stop halts the scheduler, waiting for a running sweep to finish.
func (s *OverdueScheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
}

func (s *OverdueScheduler) sweep() {
	flagged, err := s.workflows.SweepOverdue(context.Background())
	if err != nil {
		s.logger.Error("overdue sweep failed", zap.Error(err))
		return
	}
	if flagged > 0 {
		s.logger.Info("overdue sweep complete", zap.Int("flagged", flagged))
	}
}
