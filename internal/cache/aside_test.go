package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type cachedThing struct {
	ID   uint   `json:"id"`
	Name string `json:"name"`
}

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return mr, rdb
}

func TestAside(t *testing.T) {
	ctx := context.Background()

	t.Run("miss then hit", func(t *testing.T) {
		_, rdb := newTestRedis(t)
		calls := 0
		fetch := func(dest *cachedThing) func() error {
			return func() error {
				calls++
				*dest = cachedThing{ID: 7, Name: "seven"}
				return nil
			}
		}

		var first cachedThing
		require.NoError(t, Aside(ctx, rdb, PrincipalKey(7), time.Minute, &first, fetch(&first)))
		var second cachedThing
		require.NoError(t, Aside(ctx, rdb, PrincipalKey(7), time.Minute, &second, fetch(&second)))

		assert.Equal(t, 1, calls)
		assert.Equal(t, first, second)
	})

	t.Run("nil client always fetches", func(t *testing.T) {
		calls := 0
		var dest cachedThing
		for i := 0; i < 2; i++ {
			require.NoError(t, Aside(ctx, nil, PrincipalKey(1), time.Minute, &dest, func() error {
				calls++
				return nil
			}))
		}
		assert.Equal(t, 2, calls)
	})

	t.Run("fetch error is returned and nothing cached", func(t *testing.T) {
		mr, rdb := newTestRedis(t)
		boom := errors.New("boom")
		var dest cachedThing
		err := Aside(ctx, rdb, PrincipalKey(2), time.Minute, &dest, func() error { return boom })
		assert.ErrorIs(t, err, boom)
		assert.False(t, mr.Exists(PrincipalKey(2)))
	})

	t.Run("invalidate removes principals", func(t *testing.T) {
		mr, rdb := newTestRedis(t)
		require.NoError(t, SetJSON(ctx, rdb, PrincipalKey(3), cachedThing{ID: 3}, time.Minute))
		require.NoError(t, SetJSON(ctx, rdb, PrincipalKey(4), cachedThing{ID: 4}, time.Minute))

		InvalidatePrincipals(ctx, rdb, 3, 4)

		assert.False(t, mr.Exists(PrincipalKey(3)))
		assert.False(t, mr.Exists(PrincipalKey(4)))
	})
}

func TestInitRedis(t *testing.T) {
	mr := miniredis.RunT(t)

	tests := []struct {
		name    string
		addr    string
		wantNil bool
	}{
		{"empty address", "", true},
		{"malformed url", "redis://:bad:port/x", true},
		{"unreachable", "127.0.0.1:1", true},
		{"bare host and port", mr.Addr(), false},
		{"redis url", "redis://" + mr.Addr() + "/0", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rdb := InitRedis(tt.addr)
			if tt.wantNil {
				assert.Nil(t, rdb)
				return
			}
			require.NotNil(t, rdb)
			t.Cleanup(func() { _ = rdb.Close() })
			assert.NoError(t, rdb.Set(context.Background(), "k", "v", time.Minute).Err())
		})
	}
}
