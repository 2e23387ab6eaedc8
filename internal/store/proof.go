package store

import (
	"bytes"
	"maps"
	"slices"

	"github.com/eigerco/statetrie/internal/crypto"
	"github.com/eigerco/statetrie/internal/merkle/trie"
)

type recordedNode struct {
	data []byte
	meta trie.Meta
}

// ProofRecorder is a read only trie.HashDBReader that remembers every node
// fetched through it. Values are considered unused until AccessFrom reports
// a read, and the proof built from the recording leaves the large unused
// ones out.
type ProofRecorder[H trie.ValueHasher] struct {
	db       trie.HashDBReader
	hasher   H
	recorded map[crypto.Hash]*recordedNode
}

var _ trie.HashDBReader = (*ProofRecorder[trie.StateHasher])(nil)

func NewProofRecorder[H trie.ValueHasher](db trie.HashDBReader) *ProofRecorder[H] {
	return &ProofRecorder[H]{
		db:       db,
		recorded: make(map[crypto.Hash]*recordedNode),
	}
}

func (r *ProofRecorder[H]) Get(key crypto.Hash, prefix trie.Prefix) ([]byte, bool) {
	value, _, ok := r.GetWithMeta(key, prefix, nil)
	return value, ok
}

func (r *ProofRecorder[H]) Contains(key crypto.Hash, prefix trie.Prefix) bool {
	return r.db.Contains(key, prefix)
}

func (r *ProofRecorder[H]) GetWithMeta(key crypto.Hash, prefix trie.Prefix, parent *trie.Meta) ([]byte, trie.Meta, bool) {
	value, meta, ok := r.db.GetWithMeta(key, prefix, parent)
	if !ok {
		return nil, meta, false
	}
	if _, seen := r.recorded[key]; !seen {
		recMeta := meta
		// Locates the value; a node that does not decode is recorded as is.
		_, _ = trie.DecodePlan(value, &recMeta)
		recMeta.SetAccessedValue(false)
		r.recorded[key] = &recordedNode{data: bytes.Clone(value), meta: recMeta}
	}
	return value, meta, true
}

// AccessFrom flags the value held by the recorded node key as read, so the
// proof keeps it.
func (r *ProofRecorder[H]) AccessFrom(key crypto.Hash, _ *crypto.Hash) ([]byte, bool) {
	node, ok := r.recorded[key]
	if !ok {
		return nil, false
	}
	node.meta.SetAccessedValue(true)
	return node.data, true
}

// Len returns the number of recorded nodes.
func (r *ProofRecorder[H]) Len() int {
	return len(r.recorded)
}

// StorageProof returns the recorded nodes in stored form.
func (r *ProofRecorder[H]) StorageProof() StorageProof {
	nodes := make(map[crypto.Hash][]byte, len(r.recorded))
	for key, node := range r.recorded {
		nodes[key] = r.hasher.StoredValue(node.data, node.meta)
	}
	return StorageProof{nodes: nodes}
}

// StorageProof is a set of trie nodes, in stored form, keyed by the digest
// of the node they stand for.
type StorageProof struct {
	nodes map[crypto.Hash][]byte
}

// NewStorageProof builds a proof from stored-form nodes.
func NewStorageProof(nodes map[crypto.Hash][]byte) StorageProof {
	return StorageProof{nodes: maps.Clone(nodes)}
}

func (p StorageProof) Len() int {
	return len(p.nodes)
}

// Size returns the total number of bytes in the proof.
func (p StorageProof) Size() int {
	n := 0
	for _, v := range p.nodes {
		n += len(v)
	}
	return n
}

// Nodes returns the stored nodes ordered by digest.
func (p StorageProof) Nodes() [][]byte {
	keys := slices.SortedFunc(maps.Keys(p.nodes), func(a, b crypto.Hash) int {
		return bytes.Compare(a[:], b[:])
	})
	out := make([][]byte, 0, len(keys))
	for _, k := range keys {
		out = append(out, bytes.Clone(p.nodes[k]))
	}
	return out
}

// ProofMemoryDB loads proof into a database keyed by digest only.
func ProofMemoryDB[H trie.ValueHasher](proof StorageProof) *MemoryDB[H] {
	mdb := NewHashedMemoryDB[H]()
	for key, stored := range proof.nodes {
		mdb.Emplace(key, trie.EmptyPrefix, stored)
	}
	return mdb
}

// IntoMemoryDB loads the proof into a MemoryDB using the state hashing
// policy.
func (p StorageProof) IntoMemoryDB() *MemoryDB[trie.StateHasher] {
	return ProofMemoryDB[trie.StateHasher](p)
}
