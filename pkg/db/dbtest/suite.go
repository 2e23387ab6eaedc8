// Package dbtest holds the behaviour every db.KVStore backend must share.
package dbtest

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eigerco/statetrie/pkg/db"
)

// Factory opens a fresh, empty store.
type Factory func(t *testing.T) db.KVStore

// Run exercises store, batch and iterator semantics against a backend.
func Run(t *testing.T, open Factory) {
	tests := []struct {
		name string
		fn   func(t *testing.T, store db.KVStore)
	}{
		{name: "basic_put_get", fn: testBasicPutGet},
		{name: "delete_operations", fn: testDelete},
		{name: "store_closure", fn: testStoreClosure},
		{name: "basic_batch_operations", fn: testBasicBatchOperations},
		{name: "batch_commit_closure", fn: testBatchCommitAndClose},
		{name: "batch_discarded", fn: testBatchDiscarded},
		{name: "full_range_iteration", fn: testFullRangeIteration},
		{name: "prefix_range_iteration", fn: testPrefixRangeIteration},
		{name: "iterator_validity", fn: testIteratorValidity},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			store := open(t)
			defer store.Close() //nolint:errcheck

			tc.fn(t, store)
		})
	}
}

func testBasicPutGet(t *testing.T, store db.KVStore) {
	key := []byte{0x04, 0xde, 0xad}
	value := []byte{0x42, 0xaa, 0x04, 0xbb}

	require.NoError(t, store.Put(key, value))

	retrieved, err := store.Get(key)
	require.NoError(t, err)
	assert.Equal(t, value, retrieved)

	// Returned slices are owned by the caller.
	retrieved[0] = 0
	again, err := store.Get(key)
	require.NoError(t, err)
	assert.Equal(t, value, again)

	_, err = store.Get([]byte("non-existent"))
	assert.ErrorIs(t, err, db.ErrNotFound)
}

func testDelete(t *testing.T, store db.KVStore) {
	key := []byte("delete-test")

	require.NoError(t, store.Put(key, []byte("to-be-deleted")))
	require.NoError(t, store.Delete(key))

	_, err := store.Get(key)
	assert.ErrorIs(t, err, db.ErrNotFound)

	// Deleting a missing key is not an error.
	assert.NoError(t, store.Delete([]byte("non-existent")))
}

func testStoreClosure(t *testing.T, store db.KVStore) {
	require.NoError(t, store.Close())

	_, err := store.Get([]byte("key"))
	assert.ErrorIs(t, err, db.ErrClosed)

	err = store.Put([]byte("key"), []byte("value"))
	assert.ErrorIs(t, err, db.ErrClosed)

	err = store.Delete([]byte("key"))
	assert.ErrorIs(t, err, db.ErrClosed)

	_, err = store.NewIterator(nil, nil)
	assert.ErrorIs(t, err, db.ErrClosed)

	assert.NoError(t, store.Close())
}

func testBasicBatchOperations(t *testing.T, store db.KVStore) {
	batch := store.NewBatch()
	defer batch.Close() //nolint:errcheck

	keys := [][]byte{[]byte("node1"), []byte("node2"), []byte("node3")}
	values := [][]byte{[]byte("enc1"), []byte("enc2"), []byte("enc3")}
	for i := range keys {
		require.NoError(t, batch.Put(keys[i], values[i]))
	}
	require.NoError(t, batch.Delete(keys[1]))

	// Nothing is visible before commit.
	_, err := store.Get(keys[0])
	assert.ErrorIs(t, err, db.ErrNotFound)

	require.NoError(t, batch.Commit())

	val1, err := store.Get(keys[0])
	require.NoError(t, err)
	assert.Equal(t, values[0], val1)

	_, err = store.Get(keys[1])
	assert.ErrorIs(t, err, db.ErrNotFound)

	val3, err := store.Get(keys[2])
	require.NoError(t, err)
	assert.Equal(t, values[2], val3)
}

func testBatchCommitAndClose(t *testing.T, store db.KVStore) {
	batch := store.NewBatch()

	require.NoError(t, batch.Put([]byte("key"), []byte("value")))
	require.NoError(t, batch.Commit())

	assert.ErrorIs(t, batch.Put([]byte("key2"), []byte("value2")), db.ErrBatchDone)
	assert.ErrorIs(t, batch.Delete([]byte("key2")), db.ErrBatchDone)
	assert.ErrorIs(t, batch.Commit(), db.ErrBatchDone)

	assert.NoError(t, batch.Close())
	assert.NoError(t, batch.Close())
}

func testBatchDiscarded(t *testing.T, store db.KVStore) {
	batch := store.NewBatch()
	require.NoError(t, batch.Put([]byte("key"), []byte("value")))
	require.NoError(t, batch.Close())

	_, err := store.Get([]byte("key"))
	assert.ErrorIs(t, err, db.ErrNotFound)
	assert.ErrorIs(t, batch.Commit(), db.ErrBatchDone)
}

func collect(t *testing.T, it db.Iterator) (keys []string, values []string) {
	t.Helper()
	for it.Next() {
		value, err := it.Value()
		require.NoError(t, err)
		keys = append(keys, string(it.Key()))
		values = append(values, string(value))
	}
	return keys, values
}

func testFullRangeIteration(t *testing.T, store db.KVStore) {
	for _, k := range []string{"d", "b", "a", "c"} {
		require.NoError(t, store.Put([]byte(k), []byte("value-"+k)))
	}

	it, err := store.NewIterator(nil, nil)
	require.NoError(t, err)
	defer it.Close() //nolint:errcheck

	keys, values := collect(t, it)
	assert.Equal(t, []string{"a", "b", "c", "d"}, keys)
	assert.Equal(t, []string{"value-a", "value-b", "value-c", "value-d"}, values)
}

func testPrefixRangeIteration(t *testing.T, store db.KVStore) {
	for space := byte(1); space <= 3; space++ {
		for i := 0; i < 3; i++ {
			require.NoError(t, store.Put([]byte{space, byte(i)}, []byte(fmt.Sprintf("%d-%d", space, i))))
		}
	}

	it, err := store.NewIterator([]byte{2}, []byte{3})
	require.NoError(t, err)
	defer it.Close() //nolint:errcheck

	_, values := collect(t, it)
	assert.Equal(t, []string{"2-0", "2-1", "2-2"}, values)
}

func testIteratorValidity(t *testing.T, store db.KVStore) {
	require.NoError(t, store.Put([]byte("key1"), []byte("value1")))
	require.NoError(t, store.Put([]byte("key2"), []byte("value2")))

	it, err := store.NewIterator(nil, nil)
	require.NoError(t, err)
	defer it.Close() //nolint:errcheck

	assert.False(t, it.Valid())

	assert.True(t, it.Next())
	assert.True(t, it.Valid())
	assert.Equal(t, []byte("key1"), it.Key())

	assert.True(t, it.Next())
	val, err := it.Value()
	require.NoError(t, err)
	assert.Equal(t, []byte("value2"), val)

	assert.False(t, it.Next())
	assert.False(t, it.Valid())

	_, err = it.Value()
	assert.ErrorIs(t, err, db.ErrIteratorInvalid)
}
