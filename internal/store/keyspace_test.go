package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eigerco/statetrie/internal/crypto"
	"github.com/eigerco/statetrie/internal/merkle/trie"
)

func TestKeyspacePrefix(t *testing.T) {
	nibble := byte(0x30)
	p := KeyspacePrefix([]byte("ks"), trie.Prefix{Key: []byte{0x12}, Padded: &nibble})
	assert.Equal(t, []byte{'k', 's', 0x12}, p.Key)
	require.NotNil(t, p.Padded)
	assert.Equal(t, byte(0x30), *p.Padded)

	empty := KeyspacePrefix([]byte("ks"), trie.EmptyPrefix)
	assert.Equal(t, []byte("ks"), empty.Key)
	assert.Nil(t, empty.Padded)
}

func TestKeyspaceDBForwardsPrefixes(t *testing.T) {
	keyspace := []byte{0xca, 0xfe}
	key := crypto.HashData([]byte("node"))
	at := crypto.HashData([]byte("holder"))
	prefix := trie.Prefix{Key: []byte{0x01}}
	moved := trie.Prefix{Key: []byte{0xca, 0xfe, 0x01}}
	parent := &trie.Meta{HashPolicyActive: true}

	db := &mockHashDB{}
	db.On("Get", key, moved).Return([]byte("data"), true).Once()
	db.On("Contains", key, moved).Return(true).Once()
	db.On("GetWithMeta", key, moved, parent).Return([]byte("data"), trie.Meta{LegacyHash: true}, true).Once()
	db.On("AccessFrom", key, &at).Return([]byte("data"), true).Once()
	db.On("Insert", moved, []byte("value")).Return(key).Once()
	db.On("InsertWithMeta", moved, []byte("value"), trie.Meta{}).Return(key).Once()
	db.On("Emplace", key, moved, []byte("stored")).Return().Once()
	db.On("Remove", key, moved).Return().Once()

	ks := NewKeyspaceDBMut(db, keyspace)

	value, ok := ks.Get(key, prefix)
	assert.True(t, ok)
	assert.Equal(t, []byte("data"), value)
	assert.True(t, ks.Contains(key, prefix))

	_, meta, ok := ks.GetWithMeta(key, prefix, parent)
	assert.True(t, ok)
	assert.True(t, meta.LegacyHash)

	_, ok = ks.AccessFrom(key, &at)
	assert.True(t, ok)

	assert.Equal(t, key, ks.Insert(prefix, []byte("value")))
	assert.Equal(t, key, ks.InsertWithMeta(prefix, []byte("value"), trie.Meta{}))
	ks.Emplace(key, prefix, []byte("stored"))
	ks.Remove(key, prefix)

	db.AssertExpectations(t)
}

func TestKeyspaceIsolation(t *testing.T) {
	mdb := NewPrefixedMemoryDB[trie.NoMetaHasher]()
	first := NewKeyspaceDBMut(mdb, []byte("child-1"))
	second := NewKeyspaceDBMut(mdb, []byte("child-2"))

	value := []byte("same node in two child tries")
	key := first.Insert(trie.EmptyPrefix, value)
	assert.True(t, first.Contains(key, trie.EmptyPrefix))
	assert.False(t, second.Contains(key, trie.EmptyPrefix))
	assert.False(t, mdb.Contains(key, trie.EmptyPrefix))

	second.Insert(trie.EmptyPrefix, value)
	first.Remove(key, trie.EmptyPrefix)
	assert.False(t, first.Contains(key, trie.EmptyPrefix))
	got, ok := NewKeyspaceDB(mdb, []byte("child-2")).Get(key, trie.EmptyPrefix)
	require.True(t, ok)
	assert.Equal(t, value, got)

	// Without a prefix aware key function keyspaces share nodes.
	hashed := NewHashedMemoryDB[trie.NoMetaHasher]()
	NewKeyspaceDBMut(hashed, []byte("child-1")).Insert(trie.EmptyPrefix, value)
	assert.True(t, NewKeyspaceDB(hashed, []byte("child-2")).Contains(key, trie.EmptyPrefix))
}
