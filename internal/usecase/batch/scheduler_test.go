package batch

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MiguelRipoll23/financeserver-sub001/internal/domain"
)

type countingEnqueuer struct {
	mu     sync.Mutex
	counts map[domain.AssetClass]int
}

func (c *countingEnqueuer) Enqueue(class domain.AssetClass) (Ack, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.counts[class]++
	return Ack{Class: class, EnqueuedAt: time.Now()}, nil
}

func (c *countingEnqueuer) count(class domain.AssetClass) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.counts[class]
}

func TestScheduler_RejectsBadInput(t *testing.T) {
	s := NewScheduler(&countingEnqueuer{counts: map[domain.AssetClass]int{}}, nil)

	_, err := s.Schedule("not a cron spec", domain.AssetClassCrypto)
	assert.Error(t, err)

	_, err = s.Schedule("0 */5 * * * *", domain.AssetClass("stocks"))
	assert.ErrorIs(t, err, domain.ErrValidation)

	assert.Zero(t, s.Entries())
}

func TestScheduler_EnqueuesOnTick(t *testing.T) {
	enq := &countingEnqueuer{counts: map[domain.AssetClass]int{}}
	s := NewScheduler(enq, nil)

	_, err := s.Schedule("* * * * * *", domain.AssetClassFund)
	require.NoError(t, err)
	assert.Equal(t, 1, s.Entries())

	s.Start()
	defer s.Stop(context.Background())

	assert.Eventually(t, func() bool {
		return enq.count(domain.AssetClassFund) > 0
	}, 3*time.Second, 50*time.Millisecond)
	assert.Zero(t, enq.count(domain.AssetClassCrypto))
}
