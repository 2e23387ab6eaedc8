package statedb

import (
	"github.com/ChainSafe/gossamer/pkg/scale"

	"github.com/eigerco/statetrie/internal/merkle/trie"
)

// EstimateEntrySize returns the encoded size of a node entry once stored in
// a proof: a large unused value is then replaced by its digest, hashLen
// bytes, and a marker byte.
func EstimateEntrySize(value []byte, meta trie.Meta, hashLen int) int {
	enc, err := scale.Marshal(value)
	if err != nil {
		return len(value)
	}
	size := len(enc)
	if meta.UnusedValue && meta.Range != nil {
		valueSize := meta.Range.Len()
		if valueSize >= trie.InnerHashThreshold {
			size += hashLen + 1 - valueSize
		}
	}
	return size
}

// ResolveEncodedMeta locates the value of an encoded node in meta when
// inner hashing applies to it.
func ResolveEncodedMeta(value []byte, meta *trie.Meta) {
	if meta.HashPolicyActive {
		_, _ = trie.DecodePlan(value, meta)
	}
}
