package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/ohfdesk/ohfdesk/internal/config"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type payload struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

func newTestClient(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	mr := miniredis.RunT(t)
	rdb, err := New(&config.Config{Redis: config.RedisCfg{Addr: mr.Addr()}})
	require.NoError(t, err)
	t.Cleanup(func() { _ = Close(rdb) })
	return mr, rdb
}

func TestJSONRoundTripAndMiss(t *testing.T) {
	mr, rdb := newTestClient(t)
	ctx := context.Background()

	var out payload
	assert.ErrorIs(t, GetJSON(ctx, rdb, "k", &out), ErrMiss)

	require.NoError(t, SetJSON(ctx, rdb, "k", payload{Name: "a", Count: 2}, time.Minute))
	require.NoError(t, GetJSON(ctx, rdb, "k", &out))
	assert.Equal(t, payload{Name: "a", Count: 2}, out)

	mr.FastForward(2 * time.Minute)
	assert.ErrorIs(t, GetJSON(ctx, rdb, "k", &out), ErrMiss)
}

func TestDeletePrefix(t *testing.T) {
	mr, rdb := newTestClient(t)
	ctx := context.Background()

	require.NoError(t, mr.Set("analytics:a", "1"))
	require.NoError(t, mr.Set("analytics:b", "1"))
	require.NoError(t, mr.Set("profile:c", "1"))

	require.NoError(t, DeletePrefix(ctx, rdb, "analytics:"))
	assert.False(t, mr.Exists("analytics:a"))
	assert.False(t, mr.Exists("analytics:b"))
	assert.True(t, mr.Exists("profile:c"))

	require.NoError(t, DeletePrefix(ctx, rdb, "nothing:"))
}

func TestNew_PingFails(t *testing.T) {
	_, err := New(&config.Config{Redis: config.RedisCfg{Addr: "127.0.0.1:1"}})
	assert.Error(t, err)
}
