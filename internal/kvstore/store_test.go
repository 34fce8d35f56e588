package kvstore_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Additional-Code/printcore/internal/config"
	"github.com/Additional-Code/printcore/internal/database"
	"github.com/Additional-Code/printcore/internal/kvstore"
	"github.com/Additional-Code/printcore/internal/migration"
)

func exerciseStore(t *testing.T, store kvstore.Store) {
	t.Helper()
	ctx := context.Background()

	_, err := store.Get(ctx, "printed_order_ids")
	assert.ErrorIs(t, err, kvstore.ErrNotFound)

	require.NoError(t, store.Set(ctx, "printed_order_ids", `["a","b"]`))
	got, err := store.Get(ctx, "printed_order_ids")
	require.NoError(t, err)
	assert.Equal(t, `["a","b"]`, got)

	require.NoError(t, store.Set(ctx, "printed_order_ids", `["a"]`))
	got, err = store.Get(ctx, "printed_order_ids")
	require.NoError(t, err)
	assert.Equal(t, `["a"]`, got)

	require.NoError(t, store.Delete(ctx, "printed_order_ids"))
	_, err = store.Get(ctx, "printed_order_ids")
	assert.ErrorIs(t, err, kvstore.ErrNotFound)

	assert.Error(t, store.Set(ctx, "", "x"))
}

func TestMemoryStore(t *testing.T) {
	exerciseStore(t, kvstore.NewMemory())
}

func TestPrefixedStore(t *testing.T) {
	mem := kvstore.NewMemory()
	store := kvstore.WithPrefix(mem, "tablet-1:")
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "backlog_order_ids", "[]"))
	raw, err := mem.Get(ctx, "tablet-1:backlog_order_ids")
	require.NoError(t, err)
	assert.Equal(t, "[]", raw)

	_, err = mem.Get(ctx, "backlog_order_ids")
	assert.ErrorIs(t, err, kvstore.ErrNotFound)
}

func TestSQLStoreOnSQLite(t *testing.T) {
	db, err := database.Open(config.Database{
		Driver:       "sqlite",
		DSN:          "file:kvstore_test?mode=memory&cache=shared",
		MaxOpenConns: 1,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	m, err := migration.NewForDB(db, "sqlite", zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, m.Up(context.Background()))

	exerciseStore(t, kvstore.NewSQL(db))
}
