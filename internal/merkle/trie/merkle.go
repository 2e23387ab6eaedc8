package trie

import (
	"bytes"
	"sort"

	"github.com/eigerco/statetrie/internal/crypto"
)

type nibbleEntry struct {
	nibbles []byte
	value   []byte
}

// TrieRoot computes the root of the trie holding pairs, without touching
// any database. For a duplicated key the last pair wins.
func TrieRoot(pairs [][2][]byte) crypto.Hash {
	return crypto.HashData(TrieRootUnhashed(pairs))
}

// TrieRootUnhashed returns the encoding of the root node of the trie
// holding pairs.
func TrieRootUnhashed(pairs [][2][]byte) []byte {
	entries := sortedEntries(pairs)
	if len(entries) == 0 {
		return EncodeEmpty()
	}
	return merklize(entries, 0)
}

func sortedEntries(pairs [][2][]byte) []nibbleEntry {
	sorted := make([][2][]byte, len(pairs))
	copy(sorted, pairs)
	sort.SliceStable(sorted, func(i, j int) bool {
		return bytes.Compare(sorted[i][0], sorted[j][0]) < 0
	})

	entries := make([]nibbleEntry, 0, len(sorted))
	for _, kv := range sorted {
		n := len(entries)
		if n > 0 && bytes.Equal(NibblesToKey(entries[n-1].nibbles), kv[0]) {
			entries[n-1].value = kv[1]
			continue
		}
		entries = append(entries, nibbleEntry{nibbles: KeyToNibbles(kv[0]), value: kv[1]})
	}
	return entries
}

// merklize encodes the node covering the sorted entries, all of which share
// the first depth nibbles.
func merklize(entries []nibbleEntry, depth int) []byte {
	if len(entries) == 1 {
		return EncodeLeaf(entries[0].nibbles[depth:], NodeValue{Data: entries[0].value}, nil)
	}

	// Sorted keys: the first and last one bound the common prefix of all.
	first, last := entries[0].nibbles[depth:], entries[len(entries)-1].nibbles[depth:]
	common := CommonPrefix(first, last)
	partial := first[:common]
	depth += common

	var value *NodeValue
	if len(entries[0].nibbles) == depth {
		value = &NodeValue{Data: entries[0].value}
		entries = entries[1:]
	}

	var children [ChildrenCapacity]*ChildReference
	for len(entries) > 0 {
		idx := entries[0].nibbles[depth]
		end := 1
		for end < len(entries) && entries[end].nibbles[depth] == idx {
			end++
		}
		children[idx] = childReference(merklize(entries[:end], depth+1))
		entries = entries[end:]
	}
	return EncodeBranch(partial, children, value, nil)
}

// childReference inlines encodings shorter than a digest.
func childReference(encoded []byte) *ChildReference {
	if len(encoded) < crypto.HashSize {
		return InlineReference(encoded)
	}
	return HashReference(crypto.HashData(encoded))
}
