package session

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/go-cmp/cmp"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/agentrelay/core"
	"github.com/hupe1980/agentrelay/internal/testutil"
)

// Interface compliance (compile-time assertion)
var (
	_ core.SessionStore = (*InMemoryStore)(nil)
	_ core.SessionStore = (*RedisStore)(nil)
	_ core.SessionStore = (*SQLStore)(nil)
)

func sampleSession() *core.Session {
	return testutil.NewSessionBuilder("sess-1").
		ActiveAgent("Billing").
		State("customer", "Ada").
		State("tier", float64(2)).
		State("vip", true).
		State("address", map[string]any{"city": "Berlin"}).
		Transition("Triage", "Billing", "refund", time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)).
		History(testutil.NewConversation().
			User("I want a refund").
			ToolCall("c1", "transfer_to_billing_agent", `{"reason":"refund"}`).
			ToolResult("c1", "transfer_to_billing_agent", map[string]any{"type": "handoff"}).
			ToolCall("c2", "lookup_invoice", `{}`).
			ToolError("c2", "lookup_invoice", "tool error [NOT_FOUND]").
			Assistant("Your refund is on its way.").
			Build()...).
		Build()
}

func testStore(t *testing.T, store core.SessionStore) {
	t.Helper()

	ctx := context.Background()

	_, err := store.Get(ctx, "missing")
	require.ErrorIs(t, err, core.ErrSessionNotFound)

	want := sampleSession()
	require.NoError(t, store.Save(ctx, want))

	got, err := store.Get(ctx, want.ID)
	require.NoError(t, err)

	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("session mismatch (-want +got):\n%s", diff)
	}

	history, err := got.Restore()
	require.NoError(t, err)
	assert.Equal(t, len(want.History), history.Len())

	got.ActiveAgent = "Triage"
	require.NoError(t, store.Save(ctx, got))

	updated, err := store.Get(ctx, want.ID)
	require.NoError(t, err)
	assert.Equal(t, "Triage", updated.ActiveAgent)

	require.NoError(t, store.Delete(ctx, want.ID))
	_, err = store.Get(ctx, want.ID)
	require.ErrorIs(t, err, core.ErrSessionNotFound)

	require.NoError(t, store.Delete(ctx, "never-existed"))
}

func TestInMemoryStore(t *testing.T) {
	testStore(t, NewInMemoryStore())
}

func TestInMemoryStore_IsolatesCallers(t *testing.T) {
	ctx := context.Background()
	store := NewInMemoryStore()

	sess := sampleSession()
	require.NoError(t, store.Save(ctx, sess))

	sess.State["customer"] = "Mallory"
	sess.State["address"].(map[string]any)["city"] = "Paris"

	got, err := store.Get(ctx, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, "Ada", got.State["customer"])
	assert.Equal(t, "Berlin", got.State["address"].(map[string]any)["city"])

	got.State["customer"] = "Eve"

	again, err := store.Get(ctx, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, "Ada", again.State["customer"])
	assert.Equal(t, 1, store.Len())
}

func newRedisStore(t *testing.T, optFns ...func(o *RedisStoreOptions)) (*miniredis.Miniredis, *RedisStore) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return mr, NewRedisStore(client, optFns...)
}

func TestRedisStore(t *testing.T) {
	_, store := newRedisStore(t)
	testStore(t, store)
}

func TestRedisStore_PrefixAndTTL(t *testing.T) {
	mr, store := newRedisStore(t, func(o *RedisStoreOptions) {
		o.Prefix = "test:"
		o.TTL = time.Minute
	})

	ctx := context.Background()
	require.NoError(t, store.Save(ctx, sampleSession()))

	assert.True(t, mr.Exists("test:session:sess-1"))
	assert.Equal(t, time.Minute, mr.TTL("test:session:sess-1"))

	mr.FastForward(2 * time.Minute)

	_, err := store.Get(ctx, "sess-1")
	assert.ErrorIs(t, err, core.ErrSessionNotFound)
}

func TestRedisStore_CorruptPayload(t *testing.T) {
	mr, store := newRedisStore(t)
	require.NoError(t, mr.Set("agentrelay:session:bad", "{not json"))

	_, err := store.Get(context.Background(), "bad")
	require.Error(t, err)
	assert.NotErrorIs(t, err, core.ErrSessionNotFound)
}

func newSQLStore(t *testing.T) *SQLStore {
	t.Helper()

	db, err := OpenSQL("sqlite", ":memory:")
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	store, err := NewSQLStore(db)
	require.NoError(t, err)

	return store
}

func TestSQLStore(t *testing.T) {
	testStore(t, newSQLStore(t))
}

func TestSQLStore_ActiveAgentColumn(t *testing.T) {
	store := newSQLStore(t)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, sampleSession()))

	var rec sessionRecord
	require.NoError(t, store.db.First(&rec, "id = ?", "sess-1").Error)
	assert.Equal(t, "Billing", rec.ActiveAgent)
	assert.Contains(t, rec.Payload, `"function_call"`)
}

func TestOpenSQL_UnknownDriver(t *testing.T) {
	_, err := OpenSQL("oracle", "dsn")
	assert.Error(t, err)
}
