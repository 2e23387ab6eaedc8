package trie

import "math"

const (
	// InnerHashThreshold is the smallest value size that gets replaced by its
	// digest when inner hashing applies. Shorter values are always kept inline.
	InnerHashThreshold = 33

	firstPrefix byte = 0b00 << 6

	// EmptyTrieHeader is the only valid encoding of the empty node.
	EmptyTrieHeader byte = firstPrefix | 0b00

	// PolicyActiveMarker prefixes a node that records the inner hashing policy.
	// The codec never emits it as a header byte.
	PolicyActiveMarker byte = firstPrefix | 0b01

	// StoredHashMarker prefixes a stored node whose value bytes were replaced
	// by their digest.
	StoredHashMarker byte = firstPrefix | 0b10

	// LegacyMarker prefixes a stored node using the format prior to inner hashing.
	LegacyMarker byte = firstPrefix | 0b11

	// NibbleSizeBound caps the partial key nibble count a header can express.
	NibbleSizeBound = math.MaxUint16

	LeafPrefixMask    byte = 0b01 << 6
	BranchWithoutMask byte = 0b10 << 6
	BranchWithMask    byte = 0b11 << 6

	headerTypeMask  byte = 0b11 << 6
	headerSizeMask  byte = 0b0011_1111
	headerSizeLimit      = 63

	// ChildrenCapacity is the number of children of a branch node.
	ChildrenCapacity = 16
)
