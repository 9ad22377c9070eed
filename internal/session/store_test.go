package session

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type draft struct {
	Name  string `json:"name"`
	Phone string `json:"phone"`
}

func newRedisStore(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisStore(client, time.Hour), mr
}

func stores(t *testing.T) map[string]Store {
	rs, _ := newRedisStore(t)
	return map[string]Store{"redis": rs, "memory": NewMemoryStore()}
}

func TestHandleRoundTrip(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			h := Bind(store, Key{Hospital: "h1", Channel: "chat", Session: "s1", Flow: "booking"})

			var got draft
			_, found, err := h.Load(ctx, &got)
			require.NoError(t, err)
			assert.False(t, found)

			require.NoError(t, h.Save(ctx, 3, draft{Name: "Asha Rao", Phone: "9876543210"}))
			step, found, err := h.Load(ctx, &got)
			require.NoError(t, err)
			assert.True(t, found)
			assert.Equal(t, 3, step)
			assert.Equal(t, "Asha Rao", got.Name)

			require.NoError(t, h.Clear(ctx))
			_, found, err = h.Load(ctx, &got)
			require.NoError(t, err)
			assert.False(t, found)
		})
	}
}

func TestChannelsAndFlowsAreIsolated(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			base := Key{Hospital: "h1", Channel: "chat", Session: "s1"}
			chat := Bind(store, base.WithFlow("booking"))
			voice := base
			voice.Channel = "voice"

			require.NoError(t, chat.Save(ctx, 2, draft{Name: "A"}))
			_, found, err := Bind(store, voice.WithFlow("booking")).Load(ctx, nil)
			require.NoError(t, err)
			assert.False(t, found, "voice must not see chat state")

			_, found, err = Bind(store, base.WithFlow("my_appointments")).Load(ctx, nil)
			require.NoError(t, err)
			assert.False(t, found)
		})
	}
}

func TestDeleteSessionDropsEveryFlow(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			base := Key{Hospital: "h1", Channel: "voice", Session: "s1"}
			require.NoError(t, Bind(store, base.WithFlow("booking")).Save(ctx, 4, draft{}))
			require.NoError(t, Bind(store, base.WithFlow("my_appointments")).Save(ctx, 1, draft{}))
			require.NoError(t, SetCurrentFlow(ctx, store, base, "booking"))

			other := base
			other.Session = "s2"
			require.NoError(t, Bind(store, other.WithFlow("booking")).Save(ctx, 1, draft{}))

			require.NoError(t, store.DeleteSession(ctx, base))

			for _, flow := range []string{"booking", "my_appointments", MenuFlow} {
				rec, err := store.Get(ctx, base.WithFlow(flow))
				require.NoError(t, err)
				assert.Nil(t, rec, flow)
			}
			rec, err := store.Get(ctx, other.WithFlow("booking"))
			require.NoError(t, err)
			assert.NotNil(t, rec, "other sessions untouched")
		})
	}
}

func TestCurrentFlow(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	base := Key{Hospital: "h1", Channel: "chat", Session: "s1"}

	flow, err := CurrentFlow(ctx, store, base)
	require.NoError(t, err)
	assert.Empty(t, flow)

	require.NoError(t, SetCurrentFlow(ctx, store, base, "my_appointments"))
	flow, err = CurrentFlow(ctx, store, base)
	require.NoError(t, err)
	assert.Equal(t, "my_appointments", flow)

	require.NoError(t, SetCurrentFlow(ctx, store, base, ""))
	flow, err = CurrentFlow(ctx, store, base)
	require.NoError(t, err)
	assert.Empty(t, flow)
}

func TestRedisStoreAppliesTTL(t *testing.T) {
	store, mr := newRedisStore(t)
	ctx := context.Background()
	key := Key{Hospital: "h1", Channel: "chat", Session: "s1", Flow: "booking"}
	require.NoError(t, Bind(store, key).Save(ctx, 1, draft{}))

	assert.Equal(t, time.Hour, mr.TTL(key.String()))
	mr.FastForward(2 * time.Hour)

	rec, err := store.Get(ctx, key)
	require.NoError(t, err)
	assert.Nil(t, rec)
}

func TestKeyValidation(t *testing.T) {
	store := NewMemoryStore()
	_, err := store.Get(context.Background(), Key{Channel: "chat", Session: "s1", Flow: "booking"})
	assert.Error(t, err)
	assert.Equal(t, "flow:h1:chat:s1:booking", Key{Hospital: "h1", Channel: "chat", Session: "s1", Flow: "booking"}.String())
}

func TestCorruptRecordReturnsError(t *testing.T) {
	store, mr := newRedisStore(t)
	key := Key{Hospital: "h1", Channel: "chat", Session: "s1", Flow: "booking"}
	require.NoError(t, mr.Set(key.String(), "{not json"))

	_, err := store.Get(context.Background(), key)
	assert.Error(t, err)
}
