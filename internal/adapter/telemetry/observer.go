// Package telemetry reports valuation events to the process logger
package telemetry

import (
	"errors"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/MiguelRipoll23/financeserver-sub001/internal/domain"
)

// Counters is a point-in-time view of the events seen by an Observer
type Counters struct {
	Computed uint64
	Skipped  uint64
	Failed   uint64
}

// Observer logs every valuation outcome and keeps running totals
type Observer struct {
	logger   *zap.Logger
	computed atomic.Uint64
	skipped  atomic.Uint64
	failed   atomic.Uint64
}

func NewObserver(logger *zap.Logger) *Observer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Observer{logger: logger.Named("valuation")}
}

func (o *Observer) Computed(key domain.OwnerKey, snap *domain.ValuationSnapshot) {
	o.computed.Add(1)
	fields := []zap.Field{zap.Stringer("key", key)}
	if snap != nil {
		fields = append(fields,
			zap.String("value", snap.Value.StringFixed(2)),
			zap.String("currency", snap.Currency),
			zap.Time("computed_at", snap.ComputedAt),
		)
	}
	o.logger.Debug("snapshot stored", fields...)
}

func (o *Observer) Skipped(key domain.OwnerKey, reason string) {
	o.skipped.Add(1)
	o.logger.Info("valuation unavailable", zap.Stringer("key", key), zap.String("reason", reason))
}

func (o *Observer) Failed(key domain.OwnerKey, err error) {
	o.failed.Add(1)
	if errors.Is(err, domain.ErrValidation) || errors.Is(err, domain.ErrOwnerNotFound) {
		o.logger.Warn("valuation rejected", zap.Stringer("key", key), zap.Error(err))
		return
	}
	o.logger.Error("valuation failed", zap.Stringer("key", key), zap.Error(err))
}

// Counters returns the totals observed so far
func (o *Observer) Counters() Counters {
	return Counters{
		Computed: o.computed.Load(),
		Skipped:  o.skipped.Load(),
		Failed:   o.failed.Load(),
	}
}
