package session

import (
	"context"
	"net"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRedis(t *testing.T) (*RedisRegistry, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	r := NewRedisRegistryWithClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}), "")
	t.Cleanup(func() { r.Close() })
	return r, mr
}

// registries returns one constructor per backend so every behaviour is
// checked against both.
func registries() map[string]func(t *testing.T) Registry {
	return map[string]func(t *testing.T) Registry{
		"memory": func(t *testing.T) Registry { return NewMemoryRegistry() },
		"redis": func(t *testing.T) Registry {
			r, _ := newTestRedis(t)
			return r
		},
	}
}

func forEachRegistry(t *testing.T, fn func(t *testing.T, r Registry)) {
	for name, newRegistry := range registries() {
		t.Run(name, func(t *testing.T) {
			fn(t, newRegistry(t))
		})
	}
}

func TestRegistry_BindLookupUnbind(t *testing.T) {
	forEachRegistry(t, func(t *testing.T, r Registry) {
		ctx := context.Background()

		_, ok, err := r.Lookup(ctx, KindClient, "conn-1")
		require.NoError(t, err)
		assert.False(t, ok)

		require.NoError(t, r.Bind(ctx, KindClient, "conn-1", 7))

		id, ok, err := r.Lookup(ctx, KindClient, "conn-1")
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, int64(7), id)

		_, ok, _ = r.Lookup(ctx, KindMerchant, "conn-1")
		assert.False(t, ok, "kinds are independent")

		removed, err := r.Unbind(ctx, KindClient, "conn-1")
		require.NoError(t, err)
		assert.True(t, removed)

		removed, err = r.Unbind(ctx, KindClient, "conn-1")
		require.NoError(t, err)
		assert.False(t, removed)
	})
}

func TestRegistry_BindMovesPrincipal(t *testing.T) {
	forEachRegistry(t, func(t *testing.T, r Registry) {
		ctx := context.Background()

		require.NoError(t, r.Bind(ctx, KindClient, "conn-1", 7))
		require.NoError(t, r.Bind(ctx, KindClient, "conn-2", 7))

		_, ok, _ := r.Lookup(ctx, KindClient, "conn-1")
		assert.False(t, ok, "previous connection loses the binding")

		id, ok, _ := r.Lookup(ctx, KindClient, "conn-2")
		assert.True(t, ok)
		assert.Equal(t, int64(7), id)

		counts, err := r.Count(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(1), counts[KindClient])

		// the old connection no longer owns anything
		removed, err := r.Unbind(ctx, KindClient, "conn-1")
		require.NoError(t, err)
		assert.False(t, removed)

		_, ok, _ = r.Lookup(ctx, KindClient, "conn-2")
		assert.True(t, ok)
	})
}

func TestRegistry_RebindConnectionReleasesOldPrincipal(t *testing.T) {
	forEachRegistry(t, func(t *testing.T, r Registry) {
		ctx := context.Background()

		require.NoError(t, r.Bind(ctx, KindClient, "conn-1", 7))
		require.NoError(t, r.Bind(ctx, KindClient, "conn-1", 8))

		id, ok, _ := r.Lookup(ctx, KindClient, "conn-1")
		assert.True(t, ok)
		assert.Equal(t, int64(8), id)

		// principal 7 is free: binding it elsewhere must not disturb conn-1
		require.NoError(t, r.Bind(ctx, KindClient, "conn-2", 7))
		id, ok, _ = r.Lookup(ctx, KindClient, "conn-1")
		assert.True(t, ok)
		assert.Equal(t, int64(8), id)

		counts, err := r.Count(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(2), counts[KindClient])
	})
}

func TestRegistry_UnbindConn(t *testing.T) {
	forEachRegistry(t, func(t *testing.T, r Registry) {
		ctx := context.Background()

		require.NoError(t, r.Bind(ctx, KindClient, "conn-1", 1))
		require.NoError(t, r.Bind(ctx, KindMerchant, "conn-1", 2))
		require.NoError(t, r.Bind(ctx, KindClient, "conn-2", 3))

		require.NoError(t, r.UnbindConn(ctx, "conn-1"))

		counts, err := r.Count(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(1), counts[KindClient])
		assert.Equal(t, int64(0), counts[KindMerchant])

		// principal 1 can bind again elsewhere without touching conn-2
		require.NoError(t, r.Bind(ctx, KindClient, "conn-3", 1))
		id, ok, _ := r.Lookup(ctx, KindClient, "conn-2")
		assert.True(t, ok)
		assert.Equal(t, int64(3), id)
	})
}

func TestRegistry_Prune(t *testing.T) {
	forEachRegistry(t, func(t *testing.T, r Registry) {
		ctx := context.Background()

		require.NoError(t, r.Bind(ctx, KindClient, "live", 1))
		require.NoError(t, r.Bind(ctx, KindClient, "dead", 2))
		require.NoError(t, r.Bind(ctx, KindMerchant, "dead", 3))

		pruned, err := r.Prune(ctx, []string{"live"})
		require.NoError(t, err)
		assert.Equal(t, 2, pruned)

		_, ok, _ := r.Lookup(ctx, KindClient, "live")
		assert.True(t, ok)
		_, ok, _ = r.Lookup(ctx, KindMerchant, "dead")
		assert.False(t, ok)

		counts, err := r.Count(ctx)
		require.NoError(t, err)
		assert.Equal(t, map[Kind]int64{KindClient: 1, KindMerchant: 0}, counts)

		pruned, err = r.Prune(ctx, []string{"live"})
		require.NoError(t, err)
		assert.Zero(t, pruned)
	})
}

func TestJanitor_RunNow(t *testing.T) {
	forEachRegistry(t, func(t *testing.T, r Registry) {
		ctx := context.Background()
		require.NoError(t, r.Bind(ctx, KindClient, "gone", 1))

		j := NewJanitor(r, func() []string { return nil }, 0)
		pruned, err := j.RunNow()
		require.NoError(t, err)
		assert.Equal(t, 1, pruned)

		j.Start()
		j.Stop()
		j.Stop()
	})
}

func TestRedisRegistry_UnbindKeepsOtherOwner(t *testing.T) {
	r, mr := newTestRedis(t)
	ctx := context.Background()

	require.NoError(t, r.Bind(ctx, KindClient, "conn-1", 7))
	require.NoError(t, r.Bind(ctx, KindClient, "conn-2", 7))

	// a stale conn key left behind for conn-1 still points at principal 7
	require.NoError(t, mr.Set(r.connKey(KindClient, "conn-1"), "7"))

	removed, err := r.Unbind(ctx, KindClient, "conn-1")
	require.NoError(t, err)
	assert.True(t, removed)

	owner, err := mr.Get(r.principalKey(KindClient, 7))
	require.NoError(t, err)
	assert.Equal(t, "conn-2", owner, "principal key belongs to conn-2 and must survive")

	id, ok, err := r.Lookup(ctx, KindClient, "conn-2")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, int64(7), id)
}

func TestRedisRegistry_PruneCleansIndex(t *testing.T) {
	r, mr := newTestRedis(t)
	ctx := context.Background()

	require.NoError(t, r.Bind(ctx, KindClient, "dead", 1))
	// the value vanished but the index still lists the connection
	mr.Del(r.connKey(KindClient, "dead"))

	pruned, err := r.Prune(ctx, nil)
	require.NoError(t, err)
	assert.Zero(t, pruned)

	members, err := mr.SMembers(r.indexKey(KindClient))
	if err == nil {
		assert.Empty(t, members)
	}
	assert.False(t, mr.Exists(r.indexKey(KindClient)))
}

func TestRedisRegistry_Corrupt(t *testing.T) {
	r, mr := newTestRedis(t)

	require.NoError(t, mr.Set(r.connKey(KindMerchant, "conn-1"), "not-a-number"))
	_, _, err := r.Lookup(context.Background(), KindMerchant, "conn-1")
	assert.Error(t, err)
}

func TestNewRedisRegistry(t *testing.T) {
	mr := miniredis.RunT(t)

	r, err := NewRedisRegistry(RedisConfig{Addr: mr.Addr(), KeyPrefix: "test:sess"})
	require.NoError(t, err)
	defer r.Close()

	require.NoError(t, r.Bind(context.Background(), KindClient, "c", 1))
	assert.True(t, mr.Exists("test:sess:conn:client:c"))

}

func TestNewRedisRegistry_Unreachable(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	ln.Close()

	_, err = NewRedisRegistry(RedisConfig{Addr: addr})
	assert.Error(t, err)
}

func TestParseKind(t *testing.T) {
	k, err := ParseKind("merchant")
	require.NoError(t, err)
	assert.Equal(t, KindMerchant, k)

	_, err = ParseKind("admin")
	assert.Error(t, err)
}

func TestRedisRegistry_Keys(t *testing.T) {
	r := NewRedisRegistryWithClient(nil, "")
	assert.Equal(t, "cybermarket:session:conn:client:abc", r.connKey(KindClient, "abc"))
	assert.Equal(t, "cybermarket:session:principal:merchant:42", r.principalKey(KindMerchant, 42))
	assert.Equal(t, "cybermarket:session:conns:client", r.indexKey(KindClient))
}
