package trie

import "github.com/eigerco/statetrie/internal/crypto"

// ValueHasher decides how an encoded node is addressed and stored.
// Implementations are zero size and used as type parameters by the node
// databases, so the policy is fixed per database.
type ValueHasher interface {
	// Hash returns the address of an encoded node.
	Hash(value []byte, meta Meta) crypto.Hash
	// StoredValue returns the bytes written to the database for a node.
	StoredValue(value []byte, meta Meta) []byte
	// ExtractValue reverses StoredValue. The returned slice aliases stored.
	ExtractValue(stored []byte, parent *Meta) ([]byte, Meta)
}

// NoMetaHasher addresses nodes by the plain digest and stores them as is.
type NoMetaHasher struct{}

func (NoMetaHasher) Hash(value []byte, _ Meta) crypto.Hash {
	return crypto.HashData(value)
}

func (NoMetaHasher) StoredValue(value []byte, _ Meta) []byte {
	stored := make([]byte, len(value))
	copy(stored, value)
	return stored
}

func (NoMetaHasher) ExtractValue(stored []byte, _ *Meta) ([]byte, Meta) {
	return stored, Meta{}
}

// StateHasher applies inner hashing to values of at least InnerHashThreshold
// bytes once the policy is active, and keeps nodes written before that
// readable through the legacy marker.
type StateHasher struct{}

func (StateHasher) Hash(value []byte, meta Meta) crypto.Hash {
	if meta.Range != nil && !meta.ContainsHash && !meta.LegacyHash &&
		meta.HashPolicyActive && meta.Range.Len() >= InnerHashThreshold {
		return crypto.HashData(InnerHashedValue(value, meta.Range))
	}
	return crypto.HashData(value)
}

func (StateHasher) StoredValue(value []byte, meta Meta) []byte {
	stored := make([]byte, 0, len(value)+1)
	if meta.LegacyHash {
		stored = append(stored, LegacyMarker)
		return append(stored, value...)
	}
	if !meta.HashPolicyActive && meta.RangeLen() >= InnerHashThreshold {
		// The legacy marker keeps such a node from being read as hashed once
		// the policy gets enabled.
		stored = append(stored, LegacyMarker)
		return append(stored, value...)
	}
	if meta.ContainsHash {
		stored = append(stored, StoredHashMarker)
		return append(stored, value...)
	}
	if meta.UnusedValue && meta.RangeLen() >= InnerHashThreshold {
		// Relies on the codec never starting a node with this byte.
		stored = append(stored, StoredHashMarker)
		return append(stored, InnerHashedValue(value, meta.Range)...)
	}
	return append(stored, value...)
}

func (StateHasher) ExtractValue(stored []byte, parent *Meta) ([]byte, Meta) {
	var meta Meta
	if len(stored) > 0 && stored[0] == StoredHashMarker {
		meta.ContainsHash = true
		stored = stored[1:]
	}
	if len(stored) > 0 && stored[0] == LegacyMarker {
		meta.LegacyHash = true
		stored = stored[1:]
	}
	meta.UnusedValue = meta.ContainsHash
	// The policy marker stays in place, the codec consumes it.
	meta.ReadPolicyMarker(stored)
	meta.HashPolicyActive = meta.RecordsHashPolicy || (parent != nil && parent.HashPolicyActive)
	return stored, meta
}

var (
	_ ValueHasher = NoMetaHasher{}
	_ ValueHasher = StateHasher{}
)
