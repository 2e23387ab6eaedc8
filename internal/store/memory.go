package store

import (
	"bytes"
	"maps"

	"github.com/eigerco/statetrie/internal/crypto"
	"github.com/eigerco/statetrie/internal/merkle/trie"
)

// KeyFunction derives the map key of a node from its digest and position.
type KeyFunction func(key crypto.Hash, prefix trie.Prefix) string

// HashKey ignores the position: equal nodes anywhere in any trie share an
// entry.
func HashKey(key crypto.Hash, _ trie.Prefix) string {
	return string(key[:])
}

// PrefixedKey places the node path in front of the digest, so the same node
// under two different paths, or two keyspaces, gets two entries.
func PrefixedKey(key crypto.Hash, prefix trie.Prefix) string {
	k := make([]byte, 0, len(prefix.Key)+1+crypto.HashSize)
	k = append(k, prefix.Bytes()...)
	k = append(k, key[:]...)
	return string(k)
}

type memoryEntry struct {
	stored []byte
	rc     int32
}

// MemoryDB is a reference counted in-memory trie.HashDB. Values are kept in
// the stored form produced by the hasher H. A removal of a missing key is
// remembered as a negative count that a later insert pays back.
//
// MemoryDB is not safe for concurrent writes.
type MemoryDB[H trie.ValueHasher] struct {
	data           map[string]*memoryEntry
	keyFn          KeyFunction
	hasher         H
	nullNodeData   []byte
	hashedNullNode crypto.Hash
}

var _ trie.HashDB = (*MemoryDB[trie.StateHasher])(nil)

// NewMemoryDB returns an empty database using keyFn.
func NewMemoryDB[H trie.ValueHasher](keyFn KeyFunction) *MemoryDB[H] {
	var hasher H
	null := trie.EncodeEmpty()
	return &MemoryDB[H]{
		data:           make(map[string]*memoryEntry),
		keyFn:          keyFn,
		hasher:         hasher,
		nullNodeData:   null,
		hashedNullNode: hasher.Hash(null, trie.Meta{}),
	}
}

// NewPrefixedMemoryDB returns an empty database keyed with PrefixedKey.
func NewPrefixedMemoryDB[H trie.ValueHasher]() *MemoryDB[H] {
	return NewMemoryDB[H](PrefixedKey)
}

// NewHashedMemoryDB returns an empty database keyed with HashKey.
func NewHashedMemoryDB[H trie.ValueHasher]() *MemoryDB[H] {
	return NewMemoryDB[H](HashKey)
}

func (m *MemoryDB[H]) Get(key crypto.Hash, prefix trie.Prefix) ([]byte, bool) {
	value, _, ok := m.GetWithMeta(key, prefix, nil)
	return value, ok
}

func (m *MemoryDB[H]) Contains(key crypto.Hash, prefix trie.Prefix) bool {
	if key == m.hashedNullNode {
		return true
	}
	e, ok := m.data[m.keyFn(key, prefix)]
	return ok && e.rc > 0
}

func (m *MemoryDB[H]) GetWithMeta(key crypto.Hash, prefix trie.Prefix, parent *trie.Meta) ([]byte, trie.Meta, bool) {
	if key == m.hashedNullNode {
		return bytes.Clone(m.nullNodeData), trie.ForEmpty(), true
	}
	e, ok := m.data[m.keyFn(key, prefix)]
	if !ok || e.rc <= 0 {
		return nil, trie.Meta{}, false
	}
	value, meta := m.hasher.ExtractValue(e.stored, parent)
	return bytes.Clone(value), meta, true
}

// AccessFrom has nothing to record for a plain database.
func (m *MemoryDB[H]) AccessFrom(crypto.Hash, *crypto.Hash) ([]byte, bool) {
	return nil, false
}

func (m *MemoryDB[H]) Insert(prefix trie.Prefix, value []byte) crypto.Hash {
	return m.InsertWithMeta(prefix, value, trie.Meta{})
}

func (m *MemoryDB[H]) InsertWithMeta(prefix trie.Prefix, value []byte, meta trie.Meta) crypto.Hash {
	if bytes.Equal(value, m.nullNodeData) {
		return m.hashedNullNode
	}
	key := m.hasher.Hash(value, meta)
	m.Emplace(key, prefix, m.hasher.StoredValue(value, meta))
	return key
}

func (m *MemoryDB[H]) Emplace(key crypto.Hash, prefix trie.Prefix, stored []byte) {
	if key == m.hashedNullNode {
		return
	}
	k := m.keyFn(key, prefix)
	e, ok := m.data[k]
	if !ok {
		m.data[k] = &memoryEntry{stored: bytes.Clone(stored), rc: 1}
		return
	}
	if e.rc <= 0 {
		e.stored = bytes.Clone(stored)
	}
	e.rc++
}

func (m *MemoryDB[H]) Remove(key crypto.Hash, prefix trie.Prefix) {
	if key == m.hashedNullNode {
		return
	}
	k := m.keyFn(key, prefix)
	if e, ok := m.data[k]; ok {
		e.rc--
		return
	}
	m.data[k] = &memoryEntry{rc: -1}
}

// Purge drops entries whose reference count is back to zero.
func (m *MemoryDB[H]) Purge() {
	maps.DeleteFunc(m.data, func(_ string, e *memoryEntry) bool {
		return e.rc == 0
	})
}

// Len returns the number of live entries.
func (m *MemoryDB[H]) Len() int {
	n := 0
	for _, e := range m.data {
		if e.rc > 0 {
			n++
		}
	}
	return n
}

// Counts returns the reference count of every entry, including negative and
// zero ones.
func (m *MemoryDB[H]) Counts() map[string]int32 {
	counts := make(map[string]int32, len(m.data))
	for k, e := range m.data {
		counts[k] = e.rc
	}
	return counts
}

// RawStored returns the stored form of the entry under key, whatever its
// reference count.
func (m *MemoryDB[H]) RawStored(key crypto.Hash, prefix trie.Prefix) ([]byte, int32, bool) {
	e, ok := m.data[m.keyFn(key, prefix)]
	if !ok {
		return nil, 0, false
	}
	return bytes.Clone(e.stored), e.rc, true
}

// Consolidate moves every entry of other into m, adding up reference counts.
// other is left empty.
func (m *MemoryDB[H]) Consolidate(other *MemoryDB[H]) {
	for k, oe := range other.data {
		e, ok := m.data[k]
		if !ok {
			m.data[k] = oe
			continue
		}
		if e.rc <= 0 && oe.rc > 0 {
			e.stored = oe.stored
		}
		e.rc += oe.rc
	}
	clear(other.data)
}

// Clone returns a deep copy.
func (m *MemoryDB[H]) Clone() *MemoryDB[H] {
	data := make(map[string]*memoryEntry, len(m.data))
	for k, e := range m.data {
		data[k] = &memoryEntry{stored: bytes.Clone(e.stored), rc: e.rc}
	}
	return &MemoryDB[H]{
		data:           data,
		keyFn:          m.keyFn,
		hasher:         m.hasher,
		nullNodeData:   m.nullNodeData,
		hashedNullNode: m.hashedNullNode,
	}
}
