package batch

import (
	"context"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/MiguelRipoll23/financeserver-sub001/internal/domain"
)

// Enqueuer accepts fire-and-forget recompute requests
type Enqueuer interface {
	Enqueue(class domain.AssetClass) (Ack, error)
}

// Scheduler enqueues recomputations on cron specs (with a leading seconds field)
type Scheduler struct {
	cron   *cron.Cron
	queue  Enqueuer
	logger *zap.Logger
}

// NewScheduler creates a stopped Scheduler
func NewScheduler(queue Enqueuer, logger *zap.Logger) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scheduler{
		cron:   cron.New(cron.WithSeconds()),
		queue:  queue,
		logger: logger,
	}
}

// Schedule enqueues class every time spec fires. A full queue skips that tick.
func (s *Scheduler) Schedule(spec string, class domain.AssetClass) (cron.EntryID, error) {
	if _, err := domain.ParseAssetClass(string(class)); err != nil {
		return 0, err
	}
	return s.cron.AddFunc(spec, func() {
		ack, err := s.queue.Enqueue(class)
		if err != nil {
			s.logger.Warn("scheduled recompute skipped", zap.String("class", string(class)), zap.Error(err))
			return
		}
		s.logger.Info("scheduled recompute enqueued", zap.String("class", string(class)), zap.String("run_id", ack.RunID.String()))
	})
}

// Entries returns the number of registered jobs
func (s *Scheduler) Entries() int {
	return len(s.cron.Entries())
}

func (s *Scheduler) Start() {
	s.logger.Info("scheduler started", zap.Int("jobs", s.Entries()))
	s.cron.Start()
}

// Stop stops the scheduler and waits for running jobs or ctx, whichever comes first
func (s *Scheduler) Stop(ctx context.Context) {
	done := s.cron.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
	}
	s.logger.Info("scheduler stopped")
}
