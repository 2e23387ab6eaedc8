package triedb

import (
	"github.com/eigerco/statetrie/internal/crypto"
	"github.com/eigerco/statetrie/internal/merkle/trie"
)

// nodeHandle references a child: committed in the database, or loaded in
// the node storage of a TrieDBMut.
type nodeHandle interface {
	isNodeHandle()
}

type hashHandle struct {
	hash crypto.Hash
}

type inMemory struct {
	idx int
}

func (hashHandle) isNodeHandle() {}
func (inMemory) isNodeHandle()   {}

// node is the decoded, editable form of a trie node.
type node struct {
	kind     trie.NodeKind
	partial  []byte
	value    *trie.NodeValue
	children [trie.ChildrenCapacity]nodeHandle
	meta     trie.Meta
}

func newLeaf(partial []byte, value trie.NodeValue, meta trie.Meta) *node {
	return &node{kind: trie.LeafNode, partial: partial, value: &value, meta: meta}
}

func newBranch(partial []byte, children [trie.ChildrenCapacity]nodeHandle, value *trie.NodeValue, meta trie.Meta) *node {
	return &node{kind: trie.BranchNode, partial: partial, children: children, value: value, meta: meta}
}

func (n *node) childCount() int {
	count := 0
	for _, c := range n.children {
		if c != nil {
			count++
		}
	}
	return count
}

// storedNode is a node held by a TrieDBMut. A cached node is unchanged since
// it was read from the database under hash and prefix.
type storedNode struct {
	node   *node
	cached bool
	hash   crypto.Hash
	prefix trie.Prefix
}

// nodeStorage is an arena of loaded and new nodes.
type nodeStorage struct {
	nodes []*storedNode
	free  []int
}

func (s *nodeStorage) alloc(n *storedNode) int {
	if len(s.free) > 0 {
		idx := s.free[len(s.free)-1]
		s.free = s.free[:len(s.free)-1]
		s.nodes[idx] = n
		return idx
	}
	s.nodes = append(s.nodes, n)
	return len(s.nodes) - 1
}

func (s *nodeStorage) destroy(idx int) *storedNode {
	n := s.nodes[idx]
	s.nodes[idx] = nil
	s.free = append(s.free, idx)
	return n
}

func (s *nodeStorage) get(idx int) *storedNode {
	return s.nodes[idx]
}

func (s *nodeStorage) reset() {
	s.nodes = nil
	s.free = nil
}

// decodeNode builds a node from its encoding. Inline children are decoded
// as well and allocated as new nodes in storage.
func decodeNode(storage *nodeStorage, data []byte, meta trie.Meta) (*node, error) {
	plan, err := trie.DecodePlan(data, &meta)
	if err != nil {
		return nil, err
	}
	n := &node{kind: plan.Kind, meta: meta}
	if plan.Kind == trie.EmptyNode {
		return n, nil
	}
	n.partial = plan.PartialNibbles(data)
	if v, ok := plan.ValueOf(data); ok {
		n.value = &v
	}
	for i := 0; i < trie.ChildrenCapacity; i++ {
		ref := plan.ChildOf(data, i)
		if ref == nil {
			continue
		}
		if !ref.IsInline {
			n.children[i] = hashHandle{hash: ref.Hash}
			continue
		}
		child, err := decodeNode(storage, ref.Inline, trie.ForExistingInlineNode(&meta))
		if err != nil {
			return nil, err
		}
		n.children[i] = inMemory{idx: storage.alloc(&storedNode{node: child})}
	}
	return n, nil
}
