package statedb

import (
	"fmt"

	"github.com/eigerco/statetrie/internal/crypto"
	"github.com/eigerco/statetrie/internal/merkle/trie"
	"github.com/eigerco/statetrie/internal/merkle/triedb"
	"github.com/eigerco/statetrie/pkg/log"
)

// FlagInnerMetaHasher switches the trie under root to inner value hashing
// and returns the new root. Nodes already stored keep their legacy form
// until they are written again.
func FlagInnerMetaHasher(db trie.HashDB, root crypto.Hash) (crypto.Hash, error) {
	t, err := triedb.NewTrieDBMutFromExisting(db, root)
	if err != nil {
		return crypto.Hash{}, err
	}
	if err := FlagMetaHasher(t); err != nil {
		return crypto.Hash{}, err
	}
	newRoot, err := t.Commit()
	if err != nil {
		return crypto.Hash{}, err
	}
	log.Trie.Debug().Stringer("from", root).Stringer("to", newRoot).Msg("inner hashing enabled")
	return newRoot, nil
}

// FlagMetaHasher records the policy marker on the node of the empty key,
// inserting an empty value there when the key is missing. That node is
// always the root.
func FlagMetaHasher(t *triedb.TrieDBMut) error {
	key := []byte{}
	ok, err := t.Contains(key)
	if err != nil {
		return err
	}
	if !ok {
		if err := t.Insert(key, []byte{}); err != nil {
			return err
		}
	}
	found, err := t.Flag(key, true)
	if err != nil {
		return err
	}
	if !found {
		return fmt.Errorf("empty key missing right after insertion")
	}
	return nil
}
