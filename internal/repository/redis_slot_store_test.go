package repository

import (
	"context"
	"testing"
	"time"

	"pipedrill/internal/domain"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newRedisStore(t *testing.T, ttl time.Duration) (SlotStore, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return NewRedisSlotStore(client, ttl), mr
}

func TestRedisSlotStore_PutGetDelete(t *testing.T) {
	store, mr := newRedisStore(t, time.Hour)
	ctx := context.Background()

	_, err := store.Get(ctx, SlotKey("abc"))
	assert.ErrorIs(t, err, ErrSlotNotFound)

	require.NoError(t, store.Put(ctx, SlotKey("abc"), []byte(`[]`)))
	assert.True(t, mr.Exists("pipeDrillCart:abc"))

	data, err := store.Get(ctx, SlotKey("abc"))
	require.NoError(t, err)
	assert.Equal(t, `[]`, string(data))

	require.NoError(t, store.Delete(ctx, SlotKey("abc")))
	_, err = store.Get(ctx, SlotKey("abc"))
	assert.ErrorIs(t, err, ErrSlotNotFound)
}

func TestRedisSlotStore_WritesRefreshTTL(t *testing.T) {
	store, mr := newRedisStore(t, 10*time.Minute)
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, SlotKey("ttl"), []byte(`[]`)))
	assert.Equal(t, 10*time.Minute, mr.TTL(SlotKey("ttl")))

	mr.FastForward(9 * time.Minute)
	require.NoError(t, store.Put(ctx, SlotKey("ttl"), []byte(`[]`)))
	assert.Equal(t, 10*time.Minute, mr.TTL(SlotKey("ttl")))

	mr.FastForward(11 * time.Minute)
	_, err := store.Get(ctx, SlotKey("ttl"))
	assert.ErrorIs(t, err, ErrSlotNotFound)
}

func TestRedisSlotStore_BackendFailure(t *testing.T) {
	store, mr := newRedisStore(t, time.Hour)
	mr.Close()

	_, err := store.Get(context.Background(), SlotKey("down"))
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrSlotNotFound)
}

func TestCartRepository_OverRedis(t *testing.T) {
	store, mr := newRedisStore(t, time.Hour)
	repo := NewCartRepository(store, zap.NewNop())
	ctx := context.Background()

	cart := domain.Cart{Items: []domain.CartItem{
		productLine(2, 8.75, 20),
		serviceLine(1700000000009, 75, 1),
	}}
	require.NoError(t, repo.Save(ctx, "redis-session", cart))

	loaded, err := repo.Load(ctx, "redis-session")
	require.NoError(t, err)
	assert.Equal(t, cart, loaded)

	mr.Set(SlotKey("redis-session"), "{corrupted")
	loaded, err = repo.Load(ctx, "redis-session")
	require.NoError(t, err)
	assert.True(t, loaded.IsEmpty())
}
