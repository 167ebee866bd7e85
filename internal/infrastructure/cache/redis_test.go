package cache

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/pos-ledger/internal/domain/entity"
)

// newTestRedis usa el servidor de POS_TEST_REDIS_ADDR (host:puerto); sin él la prueba se omite.
func newTestRedis(t *testing.T) *Redis {
	t.Helper()
	addr := os.Getenv("POS_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("POS_TEST_REDIS_ADDR no definido")
	}
	rdb := redis.NewClient(&redis.Options{Addr: addr})
	require.NoError(t, rdb.Ping(context.Background()).Err())
	t.Cleanup(func() { _ = rdb.Close() })
	return NewRedis(rdb, time.Minute, zerolog.Nop())
}

func TestRedis_SetIgnoresStaleGeneration(t *testing.T) {
	r := newTestRedis(t)
	ctx := context.Background()
	k := entity.StockKey{ProductID: uuid.NewString(), BranchID: uuid.NewString()}
	t.Cleanup(func() { r.client.Del(ctx, Key(k), GenKey(k)) })

	gen, ok := r.Generation(ctx, k)
	require.True(t, ok)
	assert.Equal(t, uint64(0), gen)

	r.Set(ctx, k, 10, gen)
	v, ok := r.Get(ctx, k)
	require.True(t, ok)
	assert.Equal(t, int64(10), v)

	r.Invalidate(ctx, k)
	_, ok = r.Get(ctx, k)
	assert.False(t, ok)

	r.Set(ctx, k, 10, gen)
	_, ok = r.Get(ctx, k)
	assert.False(t, ok, "generación vencida")

	gen, ok = r.Generation(ctx, k)
	require.True(t, ok)
	assert.Equal(t, uint64(1), gen)
	r.Set(ctx, k, 0, gen)
	v, ok = r.Get(ctx, k)
	require.True(t, ok)
	assert.Equal(t, int64(0), v)
}
