package triedb

import (
	"bytes"

	"github.com/eigerco/statetrie/internal/crypto"
	"github.com/eigerco/statetrie/internal/merkle/trie"
)

// lookup walks committed nodes from hash down to the value of a key.
type lookup struct {
	db    trie.HashDBReader
	query Query
	hash  crypto.Hash
	// path is the nibble path leading to the node at hash.
	path []byte
	// parent is the meta of the node referencing hash, nil for the root.
	parent *trie.Meta
	depth  int
}

// lookupValue returns the value under the remaining key nibbles, nil when
// there is none.
func (l *lookup) lookupValue(partial []byte) ([]byte, error) {
	hash := l.hash
	path := bytes.Clone(l.path)
	parent := l.parent
	depth := l.depth

	for {
		data, meta, ok := l.db.GetWithMeta(hash, trie.NibblePrefix(path), parent)
		if !ok {
			if depth == 0 {
				return nil, newTrieError(InvalidStateRoot, hash, nil)
			}
			return nil, newTrieError(IncompleteDatabase, hash, nil)
		}
		l.query.Record(hash, data, depth)

		node := data
		for {
			plan, err := trie.DecodePlan(node, &meta)
			if err != nil {
				return nil, newTrieError(DecoderError, hash, err)
			}

			var nodePartial []byte
			switch plan.Kind {
			case trie.EmptyNode:
				return nil, nil
			case trie.LeafNode:
				if !bytes.Equal(plan.PartialNibbles(node), partial) {
					return nil, nil
				}
				return l.value(plan, node, hash)
			case trie.BranchNode:
				nodePartial = plan.PartialNibbles(node)
				if !bytes.HasPrefix(partial, nodePartial) {
					return nil, nil
				}
				if len(partial) == len(nodePartial) {
					return l.value(plan, node, hash)
				}
			}

			idx := partial[len(nodePartial)]
			child := plan.ChildOf(node, int(idx))
			if child == nil {
				return nil, nil
			}
			path = append(path, nodePartial...)
			path = append(path, idx)
			partial = partial[len(nodePartial)+1:]

			if child.IsInline {
				meta = trie.ForExistingInlineNode(&meta)
				node = child.Inline
				continue
			}
			parentMeta := meta
			parent = &parentMeta
			hash = child.Hash
			depth++
			break
		}
	}
}

// value extracts the value of a matched node. at is the digest of the node
// holding the encoding, inline nodes included.
func (l *lookup) value(plan trie.NodePlan, node []byte, at crypto.Hash) ([]byte, error) {
	v, ok := plan.ValueOf(node)
	if !ok {
		return nil, nil
	}
	if v.Hashed {
		return nil, newTrieError(ValueOmitted, at, nil)
	}
	l.db.AccessFrom(at, nil)
	if v.Data == nil {
		v.Data = []byte{}
	}
	return l.query.Decode(v.Data), nil
}
