package push

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testSub(userID string) UserSubscription {
	return UserSubscription{
		UserID: userID,
		Subscription: Subscription{
			Endpoint: "https://push.example.com/ep/" + userID,
			Keys:     Keys{P256dh: "p256", Auth: "auth"},
		},
		CreatedAt: time.Now(),
	}
}

func TestSubscription_Valid(t *testing.T) {
	assert.True(t, testSub("1").Subscription.Valid())
	assert.False(t, Subscription{Endpoint: "https://x"}.Valid())
	assert.False(t, Subscription{Keys: Keys{P256dh: "p", Auth: "a"}}.Valid())
}

func TestMemoryRegistry_RoundTrip(t *testing.T) {
	reg := NewMemoryRegistry()
	ctx := context.Background()

	require.NoError(t, reg.Put(ctx, testSub("7")))

	got, err := reg.Get(ctx, "7")
	require.NoError(t, err)
	assert.Equal(t, "https://push.example.com/ep/7", got.Subscription.Endpoint)

	ids, err := reg.UserIDs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"7"}, ids)

	require.NoError(t, reg.Delete(ctx, "7"))
	_, err = reg.Get(ctx, "7")
	assert.ErrorIs(t, err, ErrNotSubscribed)
}

func TestMemoryRegistry_PutReplaces(t *testing.T) {
	reg := NewMemoryRegistry()
	ctx := context.Background()

	require.NoError(t, reg.Put(ctx, testSub("7")))
	updated := testSub("7")
	updated.Subscription.Endpoint = "https://push.example.com/ep/renewed"
	require.NoError(t, reg.Put(ctx, updated))

	got, err := reg.Get(ctx, "7")
	require.NoError(t, err)
	assert.Equal(t, "https://push.example.com/ep/renewed", got.Subscription.Endpoint)
}

func TestRedisRegistry_RoundTrip(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	reg := NewRedisRegistry(client)
	ctx := context.Background()

	require.NoError(t, reg.Put(ctx, testSub("7")))
	require.NoError(t, reg.Put(ctx, testSub("8")))

	got, err := reg.Get(ctx, "7")
	require.NoError(t, err)
	assert.Equal(t, "7", got.UserID)

	ids, err := reg.UserIDs(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"7", "8"}, ids)

	require.NoError(t, reg.Delete(ctx, "7"))
	_, err = reg.Get(ctx, "7")
	assert.ErrorIs(t, err, ErrNotSubscribed)
}

func TestNormalizeKey(t *testing.T) {
	assert.Equal(t, "ab-cd_ef", normalizeKey("ab+cd/ef=="))
	assert.Equal(t, "plain", normalizeKey("plain"))
}
