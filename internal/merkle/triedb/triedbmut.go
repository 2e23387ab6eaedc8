package triedb

import (
	"bytes"
	"errors"

	"github.com/eigerco/statetrie/internal/crypto"
	"github.com/eigerco/statetrie/internal/merkle/trie"
	"github.com/eigerco/statetrie/pkg/log"
)

type actionKind uint8

const (
	// actionRestore puts the node back unchanged.
	actionRestore actionKind = iota
	// actionReplace puts back a changed node.
	actionReplace
	// actionDelete drops the node.
	actionDelete
)

type action struct {
	kind actionKind
	node *node
}

type inspector func(n *node, path, partial []byte) (action, error)

type deathKey struct {
	hash   crypto.Hash
	prefix string
}

func newDeathKey(hash crypto.Hash, prefix trie.Prefix) deathKey {
	p := prefix.Bytes()
	if prefix.Padded != nil {
		p = append(p, 1)
	} else {
		p = append(p, 0)
	}
	return deathKey{hash: hash, prefix: string(p)}
}

// TrieDBMut is a trie opened for writing. Changes are kept in memory until
// Commit writes the new nodes to the database and removes the replaced
// ones. A TrieDBMut is not safe for concurrent use and must be dropped
// after an operation returned an error.
type TrieDBMut struct {
	db         trie.HashDB
	root       crypto.Hash
	rootHandle nodeHandle
	storage    nodeStorage
	deathRow   map[deathKey]trie.Prefix
	emptyRoot  crypto.Hash
}

// NewTrieDBMut opens an empty trie.
func NewTrieDBMut(db trie.HashDB) *TrieDBMut {
	empty := trie.EmptyRoot()
	return &TrieDBMut{
		db:         db,
		root:       empty,
		rootHandle: hashHandle{hash: empty},
		deathRow:   make(map[deathKey]trie.Prefix),
		emptyRoot:  empty,
	}
}

// NewTrieDBMutFromExisting opens the trie under root, which must be in db.
func NewTrieDBMutFromExisting(db trie.HashDB, root crypto.Hash) (*TrieDBMut, error) {
	t := NewTrieDBMut(db)
	if root != t.emptyRoot && !db.Contains(root, trie.EmptyPrefix) {
		return nil, newTrieError(InvalidStateRoot, root, nil)
	}
	t.root = root
	t.rootHandle = hashHandle{hash: root}
	return t, nil
}

// Root returns the root as of the last Commit.
func (t *TrieDBMut) Root() crypto.Hash {
	return t.root
}

// Get returns the value under key, nil when there is none. Uncommitted
// changes are visible.
func (t *TrieDBMut) Get(key []byte) ([]byte, error) {
	partial := trie.KeyToNibbles(key)
	handle := t.rootHandle
	var path []byte
	var parent *trie.Meta

	for {
		switch h := handle.(type) {
		case hashHandle:
			if h.hash == t.emptyRoot {
				return nil, nil
			}
			depth := 0
			if parent != nil {
				depth = 1
			}
			l := &lookup{db: t.db, query: valueQuery{}, hash: h.hash, path: path, parent: parent, depth: depth}
			return l.lookupValue(partial)
		case inMemory:
			n := t.storage.get(h.idx).node
			switch n.kind {
			case trie.EmptyNode:
				return nil, nil
			case trie.LeafNode:
				if !bytes.Equal(n.partial, partial) {
					return nil, nil
				}
				return inMemoryValue(n)
			case trie.BranchNode:
				if !bytes.HasPrefix(partial, n.partial) {
					return nil, nil
				}
				if len(partial) == len(n.partial) {
					return inMemoryValue(n)
				}
				idx := partial[len(n.partial)]
				child := n.children[idx]
				if child == nil {
					return nil, nil
				}
				path = concat(path, n.partial, []byte{idx})
				partial = partial[len(n.partial)+1:]
				parent = &n.meta
				handle = child
			}
		}
	}
}

func inMemoryValue(n *node) ([]byte, error) {
	if n.value == nil {
		return nil, nil
	}
	if n.value.Hashed {
		return nil, newTrieError(ValueOmitted, crypto.Hash{}, nil)
	}
	return append([]byte{}, n.value.Data...), nil
}

// Contains reports whether key has a value, possibly empty.
func (t *TrieDBMut) Contains(key []byte) (bool, error) {
	v, err := t.Get(key)
	return v != nil, err
}

// Insert sets the value under key. An empty value is a value.
func (t *TrieDBMut) Insert(key, value []byte) error {
	v := trie.NodeValue{Data: append([]byte{}, value...)}
	var insert inspector
	insert = func(n *node, path, partial []byte) (action, error) {
		return t.insertInspector(n, path, partial, v, insert)
	}
	idx, _, _, err := t.mutateAt(t.rootHandle, nil, trie.KeyToNibbles(key), nil, insert)
	if err != nil {
		return err
	}
	t.rootHandle = inMemory{idx: idx}
	return nil
}

// Remove deletes the value under key. Removing a missing key is a no-op.
func (t *TrieDBMut) Remove(key []byte) error {
	var remove inspector
	remove = func(n *node, path, partial []byte) (action, error) {
		return t.removeInspector(n, path, partial, remove)
	}
	idx, kept, _, err := t.mutateAt(t.rootHandle, nil, trie.KeyToNibbles(key), nil, remove)
	if err != nil {
		return err
	}
	if !kept {
		t.rootHandle = hashHandle{hash: t.emptyRoot}
		return nil
	}
	t.rootHandle = inMemory{idx: idx}
	return nil
}

// Flag records the hashing policy on the node holding key, so that the node
// and everything below it use inner hashing once committed. It reports
// whether key was found.
func (t *TrieDBMut) Flag(key []byte, active bool) (bool, error) {
	found := false
	var flag inspector
	flag = func(n *node, path, partial []byte) (action, error) {
		return t.flagInspector(n, path, partial, active, &found, flag)
	}
	idx, _, _, err := t.mutateAt(t.rootHandle, nil, trie.KeyToNibbles(key), nil, flag)
	if err != nil {
		return false, err
	}
	t.rootHandle = inMemory{idx: idx}
	return found, nil
}

// resolve returns the storage index of the node behind handle, loading it
// when it is only referenced by digest.
func (t *TrieDBMut) resolve(handle nodeHandle, path []byte, parent *trie.Meta) (int, error) {
	switch h := handle.(type) {
	case inMemory:
		return h.idx, nil
	case hashHandle:
		return t.lookupNode(h.hash, path, parent)
	}
	return 0, errors.New("unknown node handle")
}

func (t *TrieDBMut) lookupNode(hash crypto.Hash, path []byte, parent *trie.Meta) (int, error) {
	if hash == t.emptyRoot {
		return t.storage.alloc(&storedNode{node: &node{kind: trie.EmptyNode}}), nil
	}
	prefix := trie.NibblePrefix(path)
	data, meta, ok := t.db.GetWithMeta(hash, prefix, parent)
	if !ok {
		return 0, newTrieError(IncompleteDatabase, hash, nil)
	}
	n, err := decodeNode(&t.storage, data, meta)
	if err != nil {
		return 0, newTrieError(DecoderError, hash, err)
	}
	return t.storage.alloc(&storedNode{node: n, cached: true, hash: hash, prefix: prefix}), nil
}

func (t *TrieDBMut) kill(hash crypto.Hash, prefix trie.Prefix) {
	t.deathRow[newDeathKey(hash, prefix)] = prefix
}

// mutateAt runs inspect on the node behind handle and stores the outcome.
// kept is false when the node was deleted.
func (t *TrieDBMut) mutateAt(handle nodeHandle, path, partial []byte, parent *trie.Meta, inspect inspector) (idx int, kept, changed bool, err error) {
	idx, err = t.resolve(handle, path, parent)
	if err != nil {
		return 0, false, false, err
	}
	stored := t.storage.destroy(idx)
	act, err := inspect(stored.node, path, partial)
	if err != nil {
		return 0, false, false, err
	}

	switch act.kind {
	case actionRestore:
		if stored.cached {
			return t.storage.alloc(&storedNode{node: act.node, cached: true, hash: stored.hash, prefix: stored.prefix}), true, false, nil
		}
		return t.storage.alloc(&storedNode{node: act.node}), true, false, nil
	case actionReplace:
		if stored.cached {
			t.kill(stored.hash, stored.prefix)
		}
		return t.storage.alloc(&storedNode{node: act.node}), true, true, nil
	default:
		if stored.cached {
			t.kill(stored.hash, stored.prefix)
		}
		return 0, false, true, nil
	}
}

func (t *TrieDBMut) newNode(n *node) nodeHandle {
	return inMemory{idx: t.storage.alloc(&storedNode{node: n})}
}

func sameValue(old *trie.NodeValue, value trie.NodeValue) bool {
	return old != nil && !old.Hashed && bytes.Equal(old.Data, value.Data)
}

func (t *TrieDBMut) insertInspector(n *node, path, partial []byte, value trie.NodeValue, self inspector) (action, error) {
	switch n.kind {
	case trie.EmptyNode:
		return action{kind: actionReplace, node: newLeaf(concat(partial), value, n.meta)}, nil

	case trie.LeafNode:
		existing := n.partial
		common := trie.CommonPrefix(partial, existing)
		switch {
		case common == len(existing) && common == len(partial):
			if sameValue(n.value, value) {
				return action{kind: actionRestore, node: n}, nil
			}
			n.value = &value
			return action{kind: actionReplace, node: n}, nil
		case common < len(existing):
			// The existing leaf moves below a new branch.
			var children [trie.ChildrenCapacity]nodeHandle
			children[existing[common]] = t.newNode(newLeaf(concat(existing[common+1:]), *n.value, n.meta))
			branch := newBranch(concat(existing[:common]), children, nil, trie.Meta{})
			act, err := t.insertInspector(branch, path, partial, value, self)
			if err != nil {
				return action{}, err
			}
			return action{kind: actionReplace, node: act.node}, nil
		default:
			// The leaf becomes a branch holding its value.
			branch := newBranch(existing, [trie.ChildrenCapacity]nodeHandle{}, n.value, n.meta)
			act, err := t.insertInspector(branch, path, partial, value, self)
			if err != nil {
				return action{}, err
			}
			return action{kind: actionReplace, node: act.node}, nil
		}

	case trie.BranchNode:
		existing := n.partial
		common := trie.CommonPrefix(partial, existing)
		switch {
		case common == len(existing) && common == len(partial):
			if sameValue(n.value, value) {
				return action{kind: actionRestore, node: n}, nil
			}
			n.value = &value
			return action{kind: actionReplace, node: n}, nil
		case common < len(existing):
			// A new branch goes in between.
			lower := newBranch(concat(existing[common+1:]), n.children, n.value, n.meta)
			var children [trie.ChildrenCapacity]nodeHandle
			children[existing[common]] = t.newNode(lower)
			if len(partial) == common {
				return action{kind: actionReplace, node: newBranch(concat(existing[:common]), children, &value, trie.Meta{})}, nil
			}
			children[partial[common]] = t.newNode(newLeaf(concat(partial[common+1:]), value, trie.Meta{}))
			return action{kind: actionReplace, node: newBranch(concat(existing[:common]), children, nil, trie.Meta{})}, nil
		default:
			idx := partial[common]
			rest := partial[common+1:]
			child := n.children[idx]
			if child == nil {
				n.children[idx] = t.newNode(newLeaf(concat(rest), value, trie.Meta{}))
				return action{kind: actionReplace, node: n}, nil
			}
			childIdx, _, changed, err := t.mutateAt(child, concat(path, existing, []byte{idx}), rest, &n.meta, self)
			if err != nil {
				return action{}, err
			}
			n.children[idx] = inMemory{idx: childIdx}
			if !changed {
				return action{kind: actionRestore, node: n}, nil
			}
			return action{kind: actionReplace, node: n}, nil
		}
	}
	return action{}, errors.New("unknown node kind")
}

func (t *TrieDBMut) removeInspector(n *node, path, partial []byte, self inspector) (action, error) {
	switch n.kind {
	case trie.EmptyNode:
		return action{kind: actionDelete}, nil

	case trie.LeafNode:
		if bytes.Equal(n.partial, partial) {
			return action{kind: actionDelete}, nil
		}
		return action{kind: actionRestore, node: n}, nil

	case trie.BranchNode:
		existing := n.partial
		common := trie.CommonPrefix(partial, existing)
		switch {
		case common == len(existing) && common == len(partial):
			if n.value == nil {
				return action{kind: actionRestore, node: n}, nil
			}
			n.value = nil
			fixed, err := t.fix(n, path)
			if err != nil {
				return action{}, err
			}
			return action{kind: actionReplace, node: fixed}, nil
		case common < len(existing):
			return action{kind: actionRestore, node: n}, nil
		default:
			idx := partial[common]
			child := n.children[idx]
			if child == nil {
				return action{kind: actionRestore, node: n}, nil
			}
			childIdx, kept, changed, err := t.mutateAt(child, concat(path, existing, []byte{idx}), partial[common+1:], &n.meta, self)
			if err != nil {
				return action{}, err
			}
			if !kept {
				n.children[idx] = nil
				fixed, err := t.fix(n, path)
				if err != nil {
					return action{}, err
				}
				return action{kind: actionReplace, node: fixed}, nil
			}
			n.children[idx] = inMemory{idx: childIdx}
			if !changed {
				return action{kind: actionRestore, node: n}, nil
			}
			return action{kind: actionReplace, node: n}, nil
		}
	}
	return action{}, errors.New("unknown node kind")
}

func (t *TrieDBMut) flagInspector(n *node, path, partial []byte, active bool, found *bool, self inspector) (action, error) {
	switch n.kind {
	case trie.LeafNode:
		if !bytes.Equal(n.partial, partial) {
			return action{kind: actionRestore, node: n}, nil
		}
		*found = true
		n.meta.SetStateMeta(active)
		return action{kind: actionReplace, node: n}, nil

	case trie.BranchNode:
		existing := n.partial
		common := trie.CommonPrefix(partial, existing)
		switch {
		case common == len(existing) && common == len(partial):
			if n.value == nil {
				return action{kind: actionRestore, node: n}, nil
			}
			*found = true
			n.meta.SetStateMeta(active)
			return action{kind: actionReplace, node: n}, nil
		case common < len(existing):
			return action{kind: actionRestore, node: n}, nil
		default:
			idx := partial[common]
			child := n.children[idx]
			if child == nil {
				return action{kind: actionRestore, node: n}, nil
			}
			childIdx, _, changed, err := t.mutateAt(child, concat(path, existing, []byte{idx}), partial[common+1:], &n.meta, self)
			if err != nil {
				return action{}, err
			}
			n.children[idx] = inMemory{idx: childIdx}
			if !changed {
				return action{kind: actionRestore, node: n}, nil
			}
			return action{kind: actionReplace, node: n}, nil
		}
	}
	return action{kind: actionRestore, node: n}, nil
}

// fix restores the shape invariants of a branch that lost its value or a
// child: a branch without children becomes a leaf, and a branch without
// value and a single child is merged with that child.
func (t *TrieDBMut) fix(n *node, path []byte) (*node, error) {
	count := n.childCount()
	if count == 0 {
		if n.value == nil {
			return nil, errors.New("branch without value nor children")
		}
		return newLeaf(n.partial, *n.value, n.meta), nil
	}
	if count > 1 || n.value != nil {
		return n, nil
	}

	var idx byte
	for i, c := range n.children {
		if c != nil {
			idx = byte(i)
			break
		}
	}
	childIdx, err := t.resolve(n.children[idx], concat(path, n.partial, []byte{idx}), &n.meta)
	if err != nil {
		return nil, err
	}
	stored := t.storage.destroy(childIdx)
	if stored.cached {
		t.kill(stored.hash, stored.prefix)
	}
	child := stored.node

	meta := child.meta
	if n.meta.HasStateMeta() {
		meta.SetStateMeta(true)
	}
	return &node{
		kind:     child.kind,
		partial:  concat(n.partial, []byte{idx}, child.partial),
		value:    child.value,
		children: child.children,
		meta:     meta,
	}, nil
}

// Commit writes all changes and returns the new root.
func (t *TrieDBMut) Commit() (crypto.Hash, error) {
	removed := len(t.deathRow)
	for k, prefix := range t.deathRow {
		t.db.Remove(k.hash, prefix)
	}
	clear(t.deathRow)

	h, ok := t.rootHandle.(inMemory)
	if !ok {
		t.root = t.rootHandle.(hashHandle).hash
		t.storage.reset()
		return t.root, nil
	}

	stored := t.storage.destroy(h.idx)
	written := 0
	if stored.cached {
		t.root = stored.hash
	} else {
		enc := t.encodeNode(stored.node, nil, nil, &written)
		t.root = t.db.InsertWithMeta(trie.EmptyPrefix, enc, stored.node.meta)
		written++
	}
	t.rootHandle = hashHandle{hash: t.root}
	t.storage.reset()

	log.Trie.Debug().Stringer("root", t.root).Int("written", written).Int("removed", removed).Msg("trie committed")
	return t.root, nil
}

// encodeNode encodes n, committing its changed children first. The hashing
// policy is inherited from parent here, right before the value is placed.
func (t *TrieDBMut) encodeNode(n *node, path []byte, parent *trie.Meta, written *int) []byte {
	n.meta.HashPolicyActive = n.meta.RecordsHashPolicy || (parent != nil && parent.HashPolicyActive)
	n.meta.Range = nil
	n.meta.ContainsHash = false

	switch n.kind {
	case trie.LeafNode:
		return trie.EncodeLeaf(n.partial, *n.value, &n.meta)
	case trie.BranchNode:
		var refs [trie.ChildrenCapacity]*trie.ChildReference
		for i, c := range n.children {
			if c == nil {
				continue
			}
			refs[i] = t.commitChild(c, concat(path, n.partial, []byte{byte(i)}), &n.meta, written)
		}
		return trie.EncodeBranch(n.partial, refs, n.value, &n.meta)
	}
	return trie.EncodeEmpty()
}

func (t *TrieDBMut) commitChild(handle nodeHandle, path []byte, parent *trie.Meta, written *int) *trie.ChildReference {
	h, ok := handle.(inMemory)
	if !ok {
		return trie.HashReference(handle.(hashHandle).hash)
	}
	stored := t.storage.destroy(h.idx)
	if stored.cached {
		return trie.HashReference(stored.hash)
	}
	enc := t.encodeNode(stored.node, path, parent, written)
	if len(enc) < crypto.HashSize {
		return trie.InlineReference(enc)
	}
	*written++
	return trie.HashReference(t.db.InsertWithMeta(trie.NibblePrefix(path), enc, stored.node.meta))
}

// concat returns a fresh slice holding parts one after the other.
func concat(parts ...[]byte) []byte {
	n := 0
	for _, p := range parts {
		n += len(p)
	}
	out := make([]byte, 0, n)
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}
