package statedb

import (
	"github.com/eigerco/statetrie/internal/crypto"
	"github.com/eigerco/statetrie/internal/merkle/trie"
	"github.com/eigerco/statetrie/internal/merkle/triedb"
	"github.com/eigerco/statetrie/internal/store"
)

// ReadTrieValue returns the value under key in the trie under root, nil
// when there is none.
func ReadTrieValue(db trie.HashDBReader, root crypto.Hash, key []byte) ([]byte, error) {
	t, err := triedb.NewTrieDB(db, root)
	if err != nil {
		return nil, err
	}
	return t.Get(key)
}

// ReadTrieValueWith is ReadTrieValue reporting the fetched nodes to query.
func ReadTrieValueWith(db trie.HashDBReader, root crypto.Hash, key []byte, query triedb.Query) ([]byte, error) {
	t, err := triedb.NewTrieDB(db, root)
	if err != nil {
		return nil, err
	}
	return t.GetWith(key, query)
}

// ReadChildTrieValue reads key from the child trie stored under keyspace.
func ReadChildTrieValue(keyspace []byte, db trie.HashDBReader, rootData, key []byte) ([]byte, error) {
	root, err := childRoot(rootData)
	if err != nil {
		return nil, err
	}
	return ReadTrieValue(store.NewKeyspaceDB(db, keyspace), root, key)
}

func ReadChildTrieValueWith(keyspace []byte, db trie.HashDBReader, rootData, key []byte, query triedb.Query) ([]byte, error) {
	root, err := childRoot(rootData)
	if err != nil {
		return nil, err
	}
	return ReadTrieValueWith(store.NewKeyspaceDB(db, keyspace), root, key, query)
}

// ForKeysInChildTrie calls f with every key of the child trie in key order
// and stops as soon as f returns false.
func ForKeysInChildTrie(keyspace []byte, db trie.HashDBReader, rootData []byte, f func(key []byte) bool) error {
	root, err := childRoot(rootData)
	if err != nil {
		return err
	}
	t, err := triedb.NewTrieDB(store.NewKeyspaceDB(db, keyspace), root)
	if err != nil {
		return err
	}
	it := t.Iter()
	for it.Next() {
		if !f(it.Key()) {
			break
		}
	}
	return it.Err()
}

// RecordAllKeys looks up every key of the trie through recorder, leaving it
// with every node needed to prove all of them.
func RecordAllKeys(db trie.HashDBReader, root crypto.Hash, recorder *triedb.Recorder) error {
	t, err := triedb.NewTrieDB(db, root)
	if err != nil {
		return err
	}
	it := t.Iter()
	for it.Next() {
		if _, err := t.GetWith(it.Key(), recorder); err != nil {
			return err
		}
	}
	return it.Err()
}
