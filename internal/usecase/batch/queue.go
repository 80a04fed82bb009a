package batch

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/MiguelRipoll23/financeserver-sub001/internal/domain"
)

// ErrQueueFull is returned by Enqueue when no slot is free
var ErrQueueFull = errors.New("recompute queue is full")

// DefaultQueueSize is the queue capacity when none is configured
const DefaultQueueSize = 16

// Recomputer runs a full recomputation of one asset class
type Recomputer interface {
	RecomputeAll(ctx context.Context, class domain.AssetClass) (*Report, error)
}

// Ack acknowledges an accepted recompute request. The run itself happens later.
type Ack struct {
	RunID      uuid.UUID
	Class      domain.AssetClass
	EnqueuedAt time.Time
}

// Queue accepts recompute requests without waiting for them to run
type Queue struct {
	runner Recomputer
	jobs   chan Ack
	logger *zap.Logger

	// OnDone is called after every run when set
	OnDone func(ack Ack, report *Report, err error)

	mu      sync.RWMutex
	lastRun map[domain.AssetClass]*Report
}

// NewQueue creates a queue holding at most size pending runs
func NewQueue(runner Recomputer, size int, logger *zap.Logger) *Queue {
	if size <= 0 {
		size = DefaultQueueSize
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Queue{
		runner:  runner,
		jobs:    make(chan Ack, size),
		logger:  logger,
		lastRun: map[domain.AssetClass]*Report{},
	}
}

// Enqueue schedules a recomputation of class and returns immediately
func (q *Queue) Enqueue(class domain.AssetClass) (Ack, error) {
	class, err := domain.ParseAssetClass(string(class))
	if err != nil {
		return Ack{}, err
	}

	ack := Ack{RunID: uuid.New(), Class: class, EnqueuedAt: time.Now().UTC()}
	select {
	case q.jobs <- ack:
		q.logger.Debug("recompute enqueued", zap.String("run_id", ack.RunID.String()), zap.String("class", string(class)))
		return ack, nil
	default:
		return Ack{}, ErrQueueFull
	}
}

// Pending returns the number of runs waiting for a worker
func (q *Queue) Pending() int {
	return len(q.jobs)
}

// LastReport returns the report of the most recent finished run of class, or nil
func (q *Queue) LastReport(class domain.AssetClass) *Report {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.lastRun[class]
}

// Run drains the queue with concurrency workers until ctx ends.
// Runs that already started finish with ctx cancelled; pending ones are dropped.
func (q *Queue) Run(ctx context.Context, concurrency int) {
	if concurrency <= 0 {
		concurrency = 1
	}

	var wg sync.WaitGroup
	for i := 0; i < concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-ctx.Done():
					return
				case ack := <-q.jobs:
					q.process(ctx, ack)
				}
			}
		}()
	}
	wg.Wait()
}

func (q *Queue) process(ctx context.Context, ack Ack) {
	log := q.logger.With(zap.String("run_id", ack.RunID.String()), zap.String("class", string(ack.Class)))
	log.Info("recompute started", zap.Duration("queued_for", time.Since(ack.EnqueuedAt)))

	report, err := q.runner.RecomputeAll(ctx, ack.Class)
	if err != nil {
		log.Error("recompute failed", zap.Error(err))
	} else {
		q.mu.Lock()
		q.lastRun[ack.Class] = report
		q.mu.Unlock()
		for _, f := range report.Failures {
			log.Warn("position recompute failed", zap.Stringer("key", f.Key), zap.Error(f.Err))
		}
	}

	if q.OnDone != nil {
		q.OnDone(ack, report, err)
	}
}
