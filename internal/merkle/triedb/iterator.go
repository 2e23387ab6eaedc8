package triedb

import (
	"github.com/eigerco/statetrie/internal/crypto"
	"github.com/eigerco/statetrie/internal/merkle/trie"
)

type crumb struct {
	data []byte
	plan trie.NodePlan
	meta trie.Meta
	// hash of the node holding data, inline nodes included.
	hash crypto.Hash
	// path to the node, its partial key included.
	path []byte
	// next is the next child to visit, -1 before the value.
	next int
}

// Iterator walks a TrieDB in key order. It is not restartable, open a new
// one to start over.
//
//	it := t.Iter()
//	for it.Next() {
//		value, err := it.Value()
//		...
//	}
//	if err := it.Err(); err != nil { ... }
type Iterator struct {
	t     *TrieDB
	stack []*crumb
	key   []byte
	value trie.NodeValue
	hash  crypto.Hash
	err   error
	init  bool
}

func newIterator(t *TrieDB) *Iterator {
	return &Iterator{t: t}
}

func (it *Iterator) Next() bool {
	if it.err != nil {
		return false
	}
	if !it.init {
		it.init = true
		if !it.pushHashed(it.t.root, nil, nil, 0) {
			return false
		}
	}

	for len(it.stack) > 0 {
		c := it.stack[len(it.stack)-1]
		if c.next == -1 {
			c.next = 0
			if v, ok := c.plan.ValueOf(c.data); ok {
				it.key = trie.NibblesToKey(c.path)
				it.value = v
				it.hash = c.hash
				return true
			}
		}
		if c.plan.Kind != trie.BranchNode || c.next >= trie.ChildrenCapacity {
			it.stack = it.stack[:len(it.stack)-1]
			continue
		}
		i := c.next
		c.next++
		child := c.plan.ChildOf(c.data, i)
		if child == nil {
			continue
		}
		childPath := concat(c.path, []byte{byte(i)})
		if child.IsInline {
			if !it.push(child.Inline, trie.ForExistingInlineNode(&c.meta), c.hash, childPath) {
				return false
			}
			continue
		}
		parent := c.meta
		if !it.pushHashed(child.Hash, childPath, &parent, len(it.stack)) {
			return false
		}
	}
	return false
}

func (it *Iterator) pushHashed(hash crypto.Hash, path []byte, parent *trie.Meta, depth int) bool {
	data, meta, ok := it.t.db.GetWithMeta(hash, trie.NibblePrefix(path), parent)
	if !ok {
		kind := IncompleteDatabase
		if depth == 0 {
			kind = InvalidStateRoot
		}
		it.err = newTrieError(kind, hash, nil)
		return false
	}
	return it.push(data, meta, hash, path)
}

func (it *Iterator) push(data []byte, meta trie.Meta, hash crypto.Hash, path []byte) bool {
	plan, err := trie.DecodePlan(data, &meta)
	if err != nil {
		it.err = newTrieError(DecoderError, hash, err)
		return false
	}
	if plan.Kind == trie.EmptyNode {
		return true
	}
	it.stack = append(it.stack, &crumb{
		data: data,
		plan: plan,
		meta: meta,
		hash: hash,
		path: concat(path, plan.PartialNibbles(data)),
		next: -1,
	})
	return true
}

// Key returns the key of the current entry.
func (it *Iterator) Key() []byte {
	return it.key
}

// Value returns the value of the current entry. It fails with
// ErrValueOmitted when only the value digest is known.
func (it *Iterator) Value() ([]byte, error) {
	if it.value.Hashed {
		return nil, newTrieError(ValueOmitted, it.hash, nil)
	}
	return it.value.Data, nil
}

// Err returns the error that stopped the iteration, if any.
func (it *Iterator) Err() error {
	return it.err
}
