package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/jhoicas/pos-ledger/internal/domain/entity"
)

func TestMemory_SetGetInvalidate(t *testing.T) {
	ctx := context.Background()
	c := NewMemory(0)
	k := entity.StockKey{ProductID: "p", BranchID: "b"}

	_, ok := c.Get(ctx, k)
	assert.False(t, ok)

	c.Set(ctx, k, 7, 0)
	v, ok := c.Get(ctx, k)
	assert.True(t, ok)
	assert.Equal(t, int64(7), v)

	c.Invalidate(ctx, k)
	_, ok = c.Get(ctx, k)
	assert.False(t, ok)
}

func TestMemory_Expires(t *testing.T) {
	ctx := context.Background()
	c := NewMemory(time.Minute)
	now := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }
	k := entity.StockKey{ProductID: "p", BranchID: "b"}

	c.Set(ctx, k, 3, 0)
	now = now.Add(30 * time.Second)
	_, ok := c.Get(ctx, k)
	assert.True(t, ok)

	now = now.Add(time.Minute)
	_, ok = c.Get(ctx, k)
	assert.False(t, ok)
	assert.Equal(t, 0, c.Len())
}

func TestMemory_SetIgnoresStaleGeneration(t *testing.T) {
	ctx := context.Background()
	c := NewMemory(0)
	k := entity.StockKey{ProductID: "p", BranchID: "b"}

	gen, ok := c.Generation(ctx, k)
	assert.True(t, ok)
	c.Invalidate(ctx, k)
	c.Set(ctx, k, 10, gen)
	_, ok = c.Get(ctx, k)
	assert.False(t, ok, "un valor leído antes de invalidar no debe guardarse")

	gen, _ = c.Generation(ctx, k)
	assert.Equal(t, uint64(1), gen)
	c.Set(ctx, k, 4, gen)
	v, ok := c.Get(ctx, k)
	assert.True(t, ok)
	assert.Equal(t, int64(4), v)
}

func TestKey(t *testing.T) {
	k := entity.StockKey{ProductID: "p1", BranchID: "b1"}
	assert.Equal(t, "pos:avail:p1:b1", Key(k))
	assert.Equal(t, "pos:gen:p1:b1", GenKey(k))
}
