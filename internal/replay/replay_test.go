package replay

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Hari-1410/H4shQ4x-2026/internal/txgraph"
)

func batch() []txgraph.Record {
	return []txgraph.Record{
		{Sender: "A", Receiver: "B", Amount: 10, Timestamp: "2024-01-01T10:00:00Z"},
		{Sender: "B", Receiver: "C", Amount: 9.99, Timestamp: "2024-01-01T10:01:00Z"},
	}
}

func TestFingerprint(t *testing.T) {
	base := Fingerprint(batch())
	assert.Len(t, base, 64)
	assert.Equal(t, base, Fingerprint(batch()))

	changed := batch()
	changed[1].Amount = 9.98
	assert.NotEqual(t, base, Fingerprint(changed))

	swapped := batch()
	swapped[0], swapped[1] = swapped[1], swapped[0]
	assert.NotEqual(t, base, Fingerprint(swapped))

	// field boundaries are unambiguous
	a := []txgraph.Record{{Sender: "AB", Receiver: "C", Amount: 1, Timestamp: "t"}}
	b := []txgraph.Record{{Sender: "A", Receiver: "BC", Amount: 1, Timestamp: "t"}}
	assert.NotEqual(t, Fingerprint(a), Fingerprint(b))
}

func TestMemoryStore_Claim(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	store := NewMemoryStore()
	store.now = func() time.Time { return now }

	ok, err := store.Claim(ctx, "fp", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = store.Claim(ctx, "fp", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)

	now = now.Add(time.Minute)
	ok, err = store.Claim(ctx, "fp", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok, "expired claims are released")

	ok, err = store.Claim(ctx, "other", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestMemoryStore_Sweeps(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	store := NewMemoryStore()
	store.now = func() time.Time { return now }

	for _, fp := range []string{"a", "b", "c"} {
		_, err := store.Claim(ctx, fp, time.Second)
		require.NoError(t, err)
	}
	assert.Equal(t, 3, store.Len())

	now = now.Add(2 * time.Minute)
	_, err := store.Claim(ctx, "d", time.Second)
	require.NoError(t, err)
	assert.Equal(t, 1, store.Len())
}

func TestRedisStore_Claim(t *testing.T) {
	mr := miniredis.RunT(t)
	store := NewRedisStore(NewRedisClient(RedisConfig{Addr: mr.Addr()}))
	t.Cleanup(func() { _ = store.Close() })
	ctx := context.Background()

	require.NoError(t, store.Ping(ctx))

	ok, err := store.Claim(ctx, "fp", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.True(t, mr.Exists(keyPrefix+"fp"))
	assert.Equal(t, time.Minute, mr.TTL(keyPrefix+"fp"))

	ok, err = store.Claim(ctx, "fp", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)

	mr.FastForward(time.Minute + time.Second)
	ok, err = store.Claim(ctx, "fp", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRedisStore_ClaimFailsWhenUnavailable(t *testing.T) {
	mr := miniredis.RunT(t)
	store := NewRedisStore(NewRedisClient(RedisConfig{Addr: mr.Addr()}))
	t.Cleanup(func() { _ = store.Close() })
	mr.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_, err := store.Claim(ctx, "fp", time.Minute)
	assert.Error(t, err)
}
