package snapshot

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MiguelRipoll23/financeserver-sub001/internal/adapter/repository/memory"
	"github.com/MiguelRipoll23/financeserver-sub001/internal/domain"
)

type clock struct {
	now time.Time
}

func (c *clock) Now() time.Time { return c.now }

func (c *clock) advance(d time.Duration) { c.now = c.now.Add(d) }

func newTestStore() (*Store, *clock) {
	c := &clock{now: time.Date(2026, 10, 1, 8, 0, 0, 0, time.UTC)}
	s := NewStore(memory.NewSnapshotRepository(memory.NewStore()))
	s.Now = c.Now
	return s, c
}

func TestStore_InterestUpsertIsIdempotent(t *testing.T) {
	ctx := context.Background()
	store, c := newTestStore()

	key := domain.OwnerKey{Class: domain.AssetClassInterest, OwnerID: uuid.New()}
	annual := decimal.NewFromInt(300)

	// Setup: same inputs stored twice, one minute apart
	first, err := store.Store(ctx, key, decimal.NewFromInt(25), "EUR", &annual)
	require.NoError(t, err)
	c.advance(time.Minute)
	second, err := store.Store(ctx, key, decimal.NewFromInt(25), "EUR", &annual)
	require.NoError(t, err)

	// Assert: one row, same id, timestamp advanced
	history, err := store.History(ctx, key)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, first.ID, history[0].ID)
	assert.Equal(t, second.ComputedAt, history[0].ComputedAt)
	assert.True(t, history[0].ComputedAt.After(first.ComputedAt))
	require.NotNil(t, history[0].AnnualValue)
	assert.True(t, history[0].AnnualValue.Equal(annual))
}

func TestStore_CryptoAppends(t *testing.T) {
	ctx := context.Background()
	store, c := newTestStore()

	key := domain.OwnerKey{Class: domain.AssetClassCrypto, OwnerID: uuid.New(), Symbol: "BTC"}

	_, err := store.Store(ctx, key, decimal.NewFromInt(57000), "EUR", nil)
	require.NoError(t, err)
	c.advance(time.Hour)
	_, err = store.Store(ctx, key, decimal.NewFromInt(58000), "EUR", nil)
	require.NoError(t, err)

	history, err := store.History(ctx, key)
	require.NoError(t, err)
	assert.Len(t, history, 2)

	latest, err := store.GetLatest(ctx, key)
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.True(t, latest.Value.Equal(decimal.NewFromInt(58000)))
	assert.Equal(t, c.now, latest.ComputedAt)
}

func TestStore_SymbolsAreIndependent(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore()

	exchangeID := uuid.New()
	btc := domain.OwnerKey{Class: domain.AssetClassCrypto, OwnerID: exchangeID, Symbol: "BTC"}
	eth := domain.OwnerKey{Class: domain.AssetClassCrypto, OwnerID: exchangeID, Symbol: "ETH"}

	_, err := store.Store(ctx, btc, decimal.NewFromInt(1), "EUR", nil)
	require.NoError(t, err)

	latest, err := store.GetLatest(ctx, eth)
	require.NoError(t, err)
	assert.Nil(t, latest)
}

func TestStore_GetLatestWithoutSnapshots(t *testing.T) {
	store, _ := newTestStore()

	latest, err := store.GetLatest(context.Background(), domain.OwnerKey{Class: domain.AssetClassFund, OwnerID: uuid.New()})

	assert.NoError(t, err)
	assert.Nil(t, latest)
}

func TestStore_RejectsInvalidInput(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore()

	_, err := store.Store(ctx, domain.OwnerKey{Class: domain.AssetClassCrypto, OwnerID: uuid.New()}, decimal.Zero, "EUR", nil)
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = store.Store(ctx, domain.OwnerKey{Class: domain.AssetClassFund, OwnerID: uuid.New()}, decimal.Zero, "NOPE", nil)
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestStore_ComputedAtMatchesStoragePrecision(t *testing.T) {
	ctx := context.Background()
	store, c := newTestStore()
	c.now = time.Date(2026, 10, 1, 8, 0, 0, 123456789, time.UTC)

	key := domain.OwnerKey{Class: domain.AssetClassFund, OwnerID: uuid.New()}

	snap, err := store.Store(ctx, key, decimal.NewFromInt(1000), "EUR", nil)
	require.NoError(t, err)

	assert.Equal(t, time.Date(2026, 10, 1, 8, 0, 0, 123457000, time.UTC), snap.ComputedAt)
	latest, err := store.GetLatest(ctx, key)
	require.NoError(t, err)
	assert.True(t, latest.ComputedAt.Equal(snap.ComputedAt))
}
