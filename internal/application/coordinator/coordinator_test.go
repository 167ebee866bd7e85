package coordinator_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/pos-ledger/internal/application/coordinator"
	"github.com/jhoicas/pos-ledger/internal/domain"
	"github.com/jhoicas/pos-ledger/internal/domain/entity"
)

var (
	keyA = entity.StockKey{ProductID: "p1", BranchID: "b1"}
	keyB = entity.StockKey{ProductID: "p2", BranchID: "b1"}
)

func TestAcquire_SerializesSameKey(t *testing.T) {
	c := coordinator.New(coordinator.Config{Mode: coordinator.ModeKeyed})
	ctx := context.Background()

	var (
		mu      sync.Mutex
		inside  int
		maxSeen int
		wg      sync.WaitGroup
	)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := c.WithLock(ctx, keyA, func() error {
				mu.Lock()
				inside++
				if inside > maxSeen {
					maxSeen = inside
				}
				mu.Unlock()
				time.Sleep(time.Millisecond)
				mu.Lock()
				inside--
				mu.Unlock()
				return nil
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, maxSeen)
	assert.Equal(t, 0, c.Len(), "el registro debe quedar vacío")
}

func TestAcquire_DistinctKeysDoNotBlock(t *testing.T) {
	c := coordinator.New(coordinator.Config{Mode: coordinator.ModeKeyed, Timeout: 50 * time.Millisecond})
	ctx := context.Background()

	releaseA, err := c.Acquire(ctx, keyA)
	require.NoError(t, err)
	defer releaseA()

	releaseB, err := c.Acquire(ctx, keyB)
	require.NoError(t, err)
	releaseB()
}

func TestAcquire_TimeoutIsContention(t *testing.T) {
	c := coordinator.New(coordinator.Config{Timeout: 20 * time.Millisecond})
	ctx := context.Background()

	release, err := c.Acquire(ctx, keyA)
	require.NoError(t, err)

	_, err = c.Acquire(ctx, keyA)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrContention)
	assert.True(t, domain.IsRetryable(err))

	release()
	release() // idempotente
	assert.Equal(t, 0, c.Len())
}

func TestAcquire_CancelledContextIsNotContention(t *testing.T) {
	c := coordinator.New(coordinator.Config{})
	release, err := c.Acquire(context.Background(), keyA)
	require.NoError(t, err)
	defer release()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = c.Acquire(ctx, keyA)
	assert.ErrorIs(t, err, context.Canceled)
	assert.NotErrorIs(t, err, domain.ErrContention)
}

func TestAcquire_FIFO(t *testing.T) {
	c := coordinator.New(coordinator.Config{})
	ctx := context.Background()

	release, err := c.Acquire(ctx, keyA)
	require.NoError(t, err)

	var (
		mu    sync.Mutex
		order []int
		wg    sync.WaitGroup
	)
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			_ = c.WithLock(ctx, keyA, func() error {
				mu.Lock()
				order = append(order, n)
				mu.Unlock()
				return nil
			})
		}(i)
		// espera a que el goroutine quede encolado antes de lanzar el siguiente
		require.Eventually(t, func() bool { return coordinator.Waiting(c, keyA) == i+2 }, time.Second, time.Millisecond)
		time.Sleep(5 * time.Millisecond)
	}
	release()
	wg.Wait()

	assert.Equal(t, []int{0, 1, 2, 3, 4}, order)
}

func TestGlobalMode_SharesOneLock(t *testing.T) {
	c := coordinator.New(coordinator.Config{Mode: coordinator.ModeGlobal, Timeout: 20 * time.Millisecond})
	ctx := context.Background()

	release, err := c.Acquire(ctx, keyA)
	require.NoError(t, err)
	defer release()

	_, err = c.Acquire(ctx, keyB)
	assert.ErrorIs(t, err, domain.ErrContention)
}
