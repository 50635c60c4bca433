package ports

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunStorageContract runs a suite of tests to verify that a Storage
// implementation honors the compare-and-swap contract.
func RunStorageContract(t *testing.T, store Storage) {
	ctx := context.Background()
	prefix := fmt.Sprintf("contract/%d/", time.Now().UnixNano())
	key := func(name string) string { return prefix + name }

	t.Run("Read omits absent keys", func(t *testing.T) {
		items, err := store.Read(ctx, []string{key("missing")})
		require.NoError(t, err)
		assert.Empty(t, items)
	})

	t.Run("Create then read", func(t *testing.T) {
		k := key("create")
		etags, err := store.Write(ctx, map[string]StoreItem{k: {Value: []byte(`{"a":1}`), ETag: ETagNew}})
		require.NoError(t, err)
		require.NotEmpty(t, etags[k])

		items, err := store.Read(ctx, []string{k, key("other")})
		require.NoError(t, err)
		require.Len(t, items, 1)
		assert.JSONEq(t, `{"a":1}`, string(items[k].Value))
		assert.Equal(t, etags[k], items[k].ETag)
	})

	t.Run("Values round-trip byte for byte", func(t *testing.T) {
		values := map[string]string{
			key("raw-spaced"): "{\"a\": 1}\n",
			key("raw-html"):   `{"t":"<b>&</b>"}`,
			key("raw-binary"): "\x00\xffnot json",
		}
		changes := make(map[string]StoreItem, len(values))
		keys := make([]string, 0, len(values))
		for k, v := range values {
			changes[k] = StoreItem{Value: []byte(v)}
			keys = append(keys, k)
		}
		_, err := store.Write(ctx, changes)
		require.NoError(t, err)

		items, err := store.Read(ctx, keys)
		require.NoError(t, err)
		for k, v := range values {
			assert.Equal(t, v, string(items[k].Value), k)
		}
	})

	t.Run("Create on existing key conflicts", func(t *testing.T) {
		k := key("create-twice")
		_, err := store.Write(ctx, map[string]StoreItem{k: {Value: []byte(`1`)}})
		require.NoError(t, err)

		_, err = store.Write(ctx, map[string]StoreItem{k: {Value: []byte(`2`)}})
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrConflict))
	})

	t.Run("Stale etag conflicts and keeps the stored value", func(t *testing.T) {
		k := key("cas")
		first, err := store.Write(ctx, map[string]StoreItem{k: {Value: []byte(`"v1"`)}})
		require.NoError(t, err)

		second, err := store.Write(ctx, map[string]StoreItem{k: {Value: []byte(`"v2"`), ETag: first[k]}})
		require.NoError(t, err)
		assert.NotEqual(t, first[k], second[k], "each write must produce a new etag")

		_, err = store.Write(ctx, map[string]StoreItem{k: {Value: []byte(`"v3"`), ETag: first[k]}})
		var conflict *ConflictError
		require.ErrorAs(t, err, &conflict)
		assert.Equal(t, []string{k}, conflict.Keys)

		items, err := store.Read(ctx, []string{k})
		require.NoError(t, err)
		assert.Equal(t, `"v2"`, string(items[k].Value))
		assert.Equal(t, second[k], items[k].ETag)
	})

	t.Run("Wildcard etag writes unconditionally", func(t *testing.T) {
		k := key("any")
		_, err := store.Write(ctx, map[string]StoreItem{k: {Value: []byte(`1`), ETag: ETagAny}})
		require.NoError(t, err)
		_, err = store.Write(ctx, map[string]StoreItem{k: {Value: []byte(`2`), ETag: ETagAny}})
		require.NoError(t, err)

		items, err := store.Read(ctx, []string{k})
		require.NoError(t, err)
		assert.Equal(t, `2`, string(items[k].Value))
	})

	t.Run("Keys are independent", func(t *testing.T) {
		ok, bad := key("multi-ok"), key("multi-bad")
		_, err := store.Write(ctx, map[string]StoreItem{bad: {Value: []byte(`0`)}})
		require.NoError(t, err)

		etags, err := store.Write(ctx, map[string]StoreItem{
			ok:  {Value: []byte(`1`)},
			bad: {Value: []byte(`1`), ETag: "stale"},
		})
		require.ErrorIs(t, err, ErrConflict)
		assert.NotEmpty(t, etags[ok], "successful keys report their new etag")
		assert.NotContains(t, etags, bad)

		items, err := store.Read(ctx, []string{ok, bad})
		require.NoError(t, err)
		assert.Equal(t, `1`, string(items[ok].Value), "no rollback of successful keys")
		assert.Equal(t, `0`, string(items[bad].Value))
	})

	t.Run("Delete is idempotent", func(t *testing.T) {
		k := key("delete")
		_, err := store.Write(ctx, map[string]StoreItem{k: {Value: []byte(`1`)}})
		require.NoError(t, err)

		require.NoError(t, store.Delete(ctx, []string{k}))
		require.NoError(t, store.Delete(ctx, []string{k, key("never-existed")}))

		items, err := store.Read(ctx, []string{k})
		require.NoError(t, err)
		assert.Empty(t, items)

		_, err = store.Write(ctx, map[string]StoreItem{k: {Value: []byte(`2`)}})
		assert.NoError(t, err, "a deleted key can be created again")
	})

	if lister, ok := store.(Lister); ok {
		t.Run("List by prefix", func(t *testing.T) {
			k := key("listed/one")
			_, err := store.Write(ctx, map[string]StoreItem{k: {Value: []byte(`1`)}})
			require.NoError(t, err)

			keys, err := lister.List(ctx, prefix+"listed/")
			require.NoError(t, err)
			assert.Equal(t, []string{k}, keys)
		})
	}
}
