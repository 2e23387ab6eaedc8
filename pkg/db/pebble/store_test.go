package pebble

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eigerco/statetrie/pkg/db"
	"github.com/eigerco/statetrie/pkg/db/dbtest"
)

func TestKVStore(t *testing.T) {
	dbtest.Run(t, func(t *testing.T) db.KVStore {
		store, err := NewKVStore()
		require.NoError(t, err)
		return store
	})
}

func TestKVStoreReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nodes")

	store, err := NewKVStoreAt(path)
	require.NoError(t, err)
	require.NoError(t, store.Put([]byte("root"), []byte{0x00}))
	require.NoError(t, store.Close())

	store, err = NewKVStoreAt(path)
	require.NoError(t, err)
	defer store.Close() //nolint:errcheck

	value, err := store.Get([]byte("root"))
	require.NoError(t, err)
	assert.Equal(t, []byte{0x00}, value)
}
