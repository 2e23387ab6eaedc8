package triedb

import (
	"github.com/eigerco/statetrie/internal/crypto"
	"github.com/eigerco/statetrie/internal/merkle/trie"
)

// TrieDB is a read only view of the trie under a committed root. Nodes are
// fetched lazily. It holds no mutable state, so one TrieDB may be shared by
// goroutines as long as the database itself supports concurrent reads.
type TrieDB struct {
	db   trie.HashDBReader
	root crypto.Hash
}

// NewTrieDB opens the trie under root, which must be in db.
func NewTrieDB(db trie.HashDBReader, root crypto.Hash) (*TrieDB, error) {
	if !db.Contains(root, trie.EmptyPrefix) {
		return nil, newTrieError(InvalidStateRoot, root, nil)
	}
	return &TrieDB{db: db, root: root}, nil
}

func (t *TrieDB) Root() crypto.Hash {
	return t.root
}

// Get returns the value under key, nil when there is none. A present empty
// value is returned as an empty, non nil slice.
func (t *TrieDB) Get(key []byte) ([]byte, error) {
	return t.GetWith(key, valueQuery{})
}

// GetWith is Get reporting every fetched node to query.
func (t *TrieDB) GetWith(key []byte, query Query) ([]byte, error) {
	l := &lookup{db: t.db, query: query, hash: t.root}
	return l.lookupValue(trie.KeyToNibbles(key))
}

// Contains reports whether key has a value.
func (t *TrieDB) Contains(key []byte) (bool, error) {
	v, err := t.Get(key)
	return v != nil, err
}

// Iter returns an iterator over all entries in key order.
func (t *TrieDB) Iter() *Iterator {
	return newIterator(t)
}
