package store

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eigerco/statetrie/internal/crypto"
	"github.com/eigerco/statetrie/internal/merkle/trie"
	"github.com/eigerco/statetrie/internal/merkle/triedb"
	"github.com/eigerco/statetrie/pkg/db"
	"github.com/eigerco/statetrie/pkg/db/leveldb"
	"github.com/eigerco/statetrie/pkg/db/pebble"
)

type backend struct {
	name   string
	open   func(t *testing.T) db.KVStore
	reopen func(t *testing.T, path string) db.KVStore
}

var backends = []backend{
	{
		name: "pebble",
		open: func(t *testing.T) db.KVStore {
			kv, err := pebble.NewKVStore()
			require.NoError(t, err)
			return kv
		},
		reopen: func(t *testing.T, path string) db.KVStore {
			kv, err := pebble.NewKVStoreAt(path)
			require.NoError(t, err)
			return kv
		},
	},
	{
		name: "leveldb",
		open: func(t *testing.T) db.KVStore {
			kv, err := leveldb.NewKVStore()
			require.NoError(t, err)
			return kv
		},
		reopen: func(t *testing.T, path string) db.KVStore {
			kv, err := leveldb.Open(path)
			require.NoError(t, err)
			return kv
		},
	},
}

var storePairs = [][2][]byte{
	{[]byte("alpha"), bytes.Repeat([]byte{0x01}, 40)},
	{[]byte("alphabet"), []byte("short")},
	{[]byte("beta"), bytes.Repeat([]byte{0x02}, 64)},
	{[]byte("gamma"), []byte{}},
	{[]byte("delta"), bytes.Repeat([]byte{0x03}, 33)},
}

func commitPairs(t *testing.T, hdb trie.HashDB, root crypto.Hash, pairs [][2][]byte) crypto.Hash {
	t.Helper()
	tr, err := triedb.NewTrieDBMutFromExisting(hdb, root)
	require.NoError(t, err)
	for _, pair := range pairs {
		require.NoError(t, tr.Insert(pair[0], pair[1]))
	}
	newRoot, err := tr.Commit()
	require.NoError(t, err)
	return newRoot
}

func countNodes(t *testing.T, kv db.KVStore) int {
	t.Helper()
	it, err := kv.NewIterator([]byte{prefixTrieNode}, []byte{prefixTrieNode + 1})
	require.NoError(t, err)
	defer it.Close() //nolint:errcheck
	n := 0
	for it.Next() {
		n++
	}
	return n
}

func TestNodeStorePersistsTrie(t *testing.T) {
	for _, b := range backends {
		t.Run(b.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "nodes")
			kv := b.reopen(t, path)

			ns := NewNodeStore[trie.StateHasher](kv, NodeStoreOptions{})
			root := commitPairs(t, ns, trie.EmptyRoot(), storePairs)
			assert.Equal(t, trie.TrieRoot(storePairs), root)
			assert.NotZero(t, ns.Pending())

			require.NoError(t, ns.Commit())
			assert.Zero(t, ns.Pending())
			require.NoError(t, ns.SetHead("best", root))
			require.NoError(t, kv.Close())

			kv = b.reopen(t, path)
			defer kv.Close() //nolint:errcheck
			ns = NewNodeStore[trie.StateHasher](kv, NodeStoreOptions{})

			head, ok, err := ns.Head("best")
			require.NoError(t, err)
			require.True(t, ok)
			assert.Equal(t, root, head)

			tr, err := triedb.NewTrieDB(ns, head)
			require.NoError(t, err)
			for _, pair := range storePairs {
				value, err := tr.Get(pair[0])
				require.NoError(t, err)
				assert.Equal(t, pair[1], value)
			}
			require.NoError(t, ns.Err())
		})
	}
}

func TestNodeStoreRefCounts(t *testing.T) {
	for _, b := range backends {
		t.Run(b.name, func(t *testing.T) {
			kv := b.open(t)
			defer kv.Close() //nolint:errcheck
			ns := NewNodeStore[trie.NoMetaHasher](kv, NodeStoreOptions{})

			value := bytes.Repeat([]byte{0xaa}, 48)
			key := ns.Insert(trie.EmptyPrefix, value)
			require.NoError(t, ns.Commit())
			ns.Insert(trie.EmptyPrefix, value)
			require.NoError(t, ns.Commit())

			rc, err := ns.refCount([]byte(PrefixedKey(key, trie.EmptyPrefix)))
			require.NoError(t, err)
			assert.Equal(t, uint64(2), rc)

			ns.Remove(key, trie.EmptyPrefix)
			require.NoError(t, ns.Commit())
			assert.True(t, ns.Contains(key, trie.EmptyPrefix))

			// Pending removals are visible before Commit.
			ns.Remove(key, trie.EmptyPrefix)
			assert.False(t, ns.Contains(key, trie.EmptyPrefix))
			ns.Discard()
			assert.True(t, ns.Contains(key, trie.EmptyPrefix))

			ns.Remove(key, trie.EmptyPrefix)
			require.NoError(t, ns.Commit())
			assert.False(t, ns.Contains(key, trie.EmptyPrefix))
			assert.Zero(t, countNodes(t, kv))
		})
	}
}

func TestNodeStoreRemovesReplacedNodes(t *testing.T) {
	for _, b := range backends {
		t.Run(b.name, func(t *testing.T) {
			kv := b.open(t)
			defer kv.Close() //nolint:errcheck
			ns := NewNodeStore[trie.StateHasher](kv, NodeStoreOptions{})

			root := commitPairs(t, ns, trie.EmptyRoot(), storePairs)
			require.NoError(t, ns.Commit())
			assert.NotZero(t, countNodes(t, kv))

			tr, err := triedb.NewTrieDBMutFromExisting(ns, root)
			require.NoError(t, err)
			for _, pair := range storePairs {
				require.NoError(t, tr.Remove(pair[0]))
			}
			root, err = tr.Commit()
			require.NoError(t, err)
			assert.Equal(t, trie.EmptyRoot(), root)

			require.NoError(t, ns.Commit())
			assert.Zero(t, countNodes(t, kv))
			assert.True(t, ns.Contains(root, trie.EmptyPrefix))
		})
	}
}

func TestNodeStoreMissingHead(t *testing.T) {
	kv, err := pebble.NewKVStore()
	require.NoError(t, err)
	defer kv.Close() //nolint:errcheck

	ns := NewNodeStore[trie.StateHasher](kv, NodeStoreOptions{})
	_, ok, err := ns.Head("none")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, kv.Put(makeKey(prefixHead, []byte("broken")), []byte{1, 2, 3}))
	_, _, err = ns.Head("broken")
	assert.Error(t, err)
}

func TestNodeStoreReadError(t *testing.T) {
	for _, b := range backends {
		t.Run(b.name, func(t *testing.T) {
			kv := b.open(t)
			ns := NewNodeStore[trie.StateHasher](kv, NodeStoreOptions{})
			require.NoError(t, kv.Close())

			key := crypto.HashData([]byte("anything"))
			assert.False(t, ns.Contains(key, trie.EmptyPrefix))
			require.ErrorIs(t, ns.Err(), db.ErrClosed)

			ns.Insert(trie.EmptyPrefix, []byte("pending"))
			assert.ErrorIs(t, ns.Commit(), db.ErrClosed)

			ns.Discard()
			assert.NoError(t, ns.Err())
		})
	}
}
