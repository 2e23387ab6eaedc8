package trie

import "github.com/eigerco/statetrie/internal/crypto"

// Prefix is the nibble path from the root to a node: the packed full bytes
// of the path and, for an odd path, the last nibble in the high half of Padded.
// Stores may use it to place nodes near each other or to avoid collisions.
type Prefix struct {
	Key    []byte
	Padded *byte
}

// EmptyPrefix is the prefix of the root node.
var EmptyPrefix = Prefix{}

// Bytes returns the prefix as one byte slice, padded nibble included.
func (p Prefix) Bytes() []byte {
	b := make([]byte, 0, len(p.Key)+1)
	b = append(b, p.Key...)
	if p.Padded != nil {
		b = append(b, *p.Padded)
	}
	return b
}

// HashDBReader is the read side of a node database keyed by node digest.
type HashDBReader interface {
	// Get returns the encoded node stored under key.
	Get(key crypto.Hash, prefix Prefix) ([]byte, bool)
	Contains(key crypto.Hash, prefix Prefix) bool
	// GetWithMeta returns the encoded node and the meta rebuilt from its
	// stored form, inheriting the hashing policy from parent.
	GetWithMeta(key crypto.Hash, prefix Prefix, parent *Meta) ([]byte, Meta, bool)
	// AccessFrom flags the value of the node under key as read.
	AccessFrom(key crypto.Hash, at *crypto.Hash) ([]byte, bool)
}

// HashDB is a node database. Inserts are reference counted: a value is
// gone once it was removed as many times as it was inserted.
type HashDB interface {
	HashDBReader
	Insert(prefix Prefix, value []byte) crypto.Hash
	InsertWithMeta(prefix Prefix, value []byte, meta Meta) crypto.Hash
	// Emplace stores an already stored-form value under a known key.
	Emplace(key crypto.Hash, prefix Prefix, stored []byte)
	Remove(key crypto.Hash, prefix Prefix)
}
