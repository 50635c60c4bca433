package file_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/edboykin-insight/botbuilder-dotnet/pkg/adapters/file"
	"github.com/edboykin-insight/botbuilder-dotnet/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileStore_Contract(t *testing.T) {
	store := file.New(t.TempDir())
	ports.RunStorageContract(t, store)
}

func TestFileStore_KeysWithSlashesStayFlat(t *testing.T) {
	dir := t.TempDir()
	store := file.New(dir)
	ctx := context.Background()

	_, err := store.Write(ctx, map[string]ports.StoreItem{
		"test/conversations/c1": {Value: []byte(`{"n":1}`)},
	})
	require.NoError(t, err)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.False(t, entries[0].IsDir())

	keys, err := store.List(ctx, "test/")
	require.NoError(t, err)
	assert.Equal(t, []string{"test/conversations/c1"}, keys)
}

func TestFileStore_PersistsAcrossInstances(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	etags, err := file.New(dir).Write(ctx, map[string]ports.StoreItem{"k": {Value: []byte(`"v"`)}})
	require.NoError(t, err)

	items, err := file.New(dir).Read(ctx, []string{"k"})
	require.NoError(t, err)
	assert.Equal(t, `"v"`, string(items["k"].Value))
	assert.Equal(t, etags["k"], items["k"].ETag)
}

func TestFileStore_ListMissingDirectory(t *testing.T) {
	store := file.New(filepath.Join(t.TempDir(), "absent"))
	keys, err := store.List(context.Background(), "")
	require.NoError(t, err)
	assert.Empty(t, keys)
}

func TestFileStore_CompactJSONStaysReadable(t *testing.T) {
	dir := t.TempDir()
	store := file.New(dir)
	ctx := context.Background()

	_, err := store.Write(ctx, map[string]ports.StoreItem{
		"compact": {Value: []byte(`{"a":1}`)},
		"spaced":  {Value: []byte(`{"a": 1}`)},
	})
	require.NoError(t, err)

	raw, err := os.ReadFile(filepath.Join(dir, "compact.json"))
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"value":{"a":1}`)

	items, err := store.Read(ctx, []string{"compact", "spaced"})
	require.NoError(t, err)
	assert.Equal(t, `{"a":1}`, string(items["compact"].Value))
	assert.Equal(t, `{"a": 1}`, string(items["spaced"].Value))
}
