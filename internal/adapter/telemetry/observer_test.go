package telemetry

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/MiguelRipoll23/financeserver-sub001/internal/domain"
)

func TestObserver(t *testing.T) {
	// Setup
	core, logs := observer.New(zapcore.DebugLevel)
	obs := NewObserver(zap.New(core))
	key := domain.OwnerKey{Class: domain.AssetClassCrypto, OwnerID: uuid.New(), Symbol: "BTC"}

	// Execute
	obs.Computed(key, &domain.ValuationSnapshot{
		Class: key.Class, OwnerID: key.OwnerID, Symbol: key.Symbol,
		Value: decimal.NewFromInt(57000), Currency: "EUR", ComputedAt: time.Now(),
	})
	obs.Skipped(key, "price unavailable")
	obs.Failed(key, errors.New("connection reset"))
	obs.Failed(key, domain.ErrOwnerNotFound)

	// Assert
	assert.Equal(t, Counters{Computed: 1, Skipped: 1, Failed: 2}, obs.Counters())

	entries := logs.All()
	require.Len(t, entries, 4)
	assert.Equal(t, "snapshot stored", entries[0].Message)
	assert.Equal(t, "57000.00", entries[0].ContextMap()["value"])
	assert.Equal(t, zapcore.InfoLevel, entries[1].Level)
	assert.Equal(t, zapcore.ErrorLevel, entries[2].Level)
	assert.Equal(t, zapcore.WarnLevel, entries[3].Level)
}

func TestObserver_NilLogger(t *testing.T) {
	obs := NewObserver(nil)
	obs.Skipped(domain.OwnerKey{}, "nothing")
	assert.Equal(t, uint64(1), obs.Counters().Skipped)
}
