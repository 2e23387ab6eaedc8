// Package statedb computes and reads state trie roots over a node database:
// batched delta application, child tries isolated by keyspace, and the
// switch of a trie to inner value hashing.
package statedb

import (
	"bytes"
	"errors"
	"fmt"
	"slices"

	"github.com/eigerco/statetrie/internal/crypto"
	"github.com/eigerco/statetrie/internal/merkle/trie"
	"github.com/eigerco/statetrie/internal/merkle/triedb"
	"github.com/eigerco/statetrie/internal/store"
	"github.com/eigerco/statetrie/pkg/log"
)

// ErrInvalidRootLength is returned when a child root is not a digest.
var ErrInvalidRootLength = errors.New("child trie root has an invalid length")

// Change is one entry of a delta: set Key to Value, or remove Key.
type Change struct {
	Key    []byte
	Value  []byte
	Remove bool
}

// Set returns a change writing value under key.
func Set(key, value []byte) Change {
	return Change{Key: key, Value: value}
}

// Delete returns a change removing key.
func Delete(key []byte) Change {
	return Change{Key: key, Remove: true}
}

// DeltaTrieRoot applies delta to the trie under root and returns the new
// root. The result does not depend on the order of delta: changes are
// applied in key order, and for a key given more than once the last change
// in input order wins. New nodes are written to db and replaced ones are
// removed from it.
func DeltaTrieRoot(db trie.HashDB, root crypto.Hash, delta []Change) (crypto.Hash, error) {
	t, err := triedb.NewTrieDBMutFromExisting(db, root)
	if err != nil {
		return crypto.Hash{}, err
	}

	sorted := slices.Clone(delta)
	slices.SortStableFunc(sorted, func(a, b Change) int {
		return bytes.Compare(a.Key, b.Key)
	})

	for _, c := range sorted {
		if c.Remove {
			err = t.Remove(c.Key)
		} else {
			err = t.Insert(c.Key, c.Value)
		}
		if err != nil {
			return crypto.Hash{}, err
		}
	}

	newRoot, err := t.Commit()
	if err != nil {
		return crypto.Hash{}, err
	}
	log.Trie.Debug().Int("changes", len(delta)).Stringer("from", root).Stringer("to", newRoot).Msg("delta applied")
	return newRoot, nil
}

// ChildDeltaTrieRoot is DeltaTrieRoot for the child trie stored under
// keyspace. rootData is the child root as found in the parent trie.
func ChildDeltaTrieRoot(keyspace []byte, db trie.HashDB, rootData []byte, delta []Change) (crypto.Hash, error) {
	root, err := childRoot(rootData)
	if err != nil {
		return crypto.Hash{}, err
	}
	return DeltaTrieRoot(store.NewKeyspaceDBMut(db, keyspace), root, delta)
}

func childRoot(rootData []byte) (crypto.Hash, error) {
	root, err := crypto.HashFromBytes(rootData)
	if err != nil {
		return crypto.Hash{}, fmt.Errorf("%w: %d bytes", ErrInvalidRootLength, len(rootData))
	}
	return root, nil
}

// EmptyTrieRoot is the root of a trie without entries.
func EmptyTrieRoot() crypto.Hash {
	return trie.TrieRoot(nil)
}

// EmptyChildTrieRoot is the root of a child trie without entries.
func EmptyChildTrieRoot() crypto.Hash {
	return trie.TrieRoot(nil)
}

// ChildTrieRoot computes a child trie root from its entries without any
// database.
func ChildTrieRoot(pairs [][2][]byte) crypto.Hash {
	return trie.TrieRoot(pairs)
}
