package store

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/eigerco/statetrie/internal/crypto"
	"github.com/eigerco/statetrie/internal/merkle/trie"
	"github.com/eigerco/statetrie/internal/safemath"
	"github.com/eigerco/statetrie/pkg/db"
	"github.com/eigerco/statetrie/pkg/log"
)

// NodeStoreOptions configure a NodeStore.
type NodeStoreOptions struct {
	// KeyFunction places nodes in the KV store. Defaults to PrefixedKey.
	KeyFunction KeyFunction
}

// NodeStore is a trie.HashDB persisted in a db.KVStore. Writes are buffered
// in an in-memory overlay and reach the KV store on Commit, together with
// the updated reference count of every touched node.
//
// trie.HashDB has no error returns, so read failures other than a missing
// key are remembered: Err returns the first one and Commit refuses to write
// while it is set.
type NodeStore[H trie.ValueHasher] struct {
	kv      db.KVStore
	keyFn   KeyFunction
	hasher  H
	overlay *MemoryDB[H]
	err     error
}

var _ trie.HashDB = (*NodeStore[trie.StateHasher])(nil)

func NewNodeStore[H trie.ValueHasher](kv db.KVStore, opts NodeStoreOptions) *NodeStore[H] {
	keyFn := opts.KeyFunction
	if keyFn == nil {
		keyFn = PrefixedKey
	}
	return &NodeStore[H]{
		kv:      kv,
		keyFn:   keyFn,
		overlay: NewMemoryDB[H](keyFn),
	}
}

// Err returns the first read error met since the last successful Commit.
func (n *NodeStore[H]) Err() error {
	return n.err
}

func (n *NodeStore[H]) Get(key crypto.Hash, prefix trie.Prefix) ([]byte, bool) {
	value, _, ok := n.GetWithMeta(key, prefix, nil)
	return value, ok
}

func (n *NodeStore[H]) Contains(key crypto.Hash, prefix trie.Prefix) bool {
	_, ok := n.stored(key, prefix)
	return ok
}

func (n *NodeStore[H]) GetWithMeta(key crypto.Hash, prefix trie.Prefix, parent *trie.Meta) ([]byte, trie.Meta, bool) {
	if key == n.overlay.hashedNullNode {
		return trie.EncodeEmpty(), trie.ForEmpty(), true
	}
	stored, ok := n.stored(key, prefix)
	if !ok {
		return nil, trie.Meta{}, false
	}
	value, meta := n.hasher.ExtractValue(stored, parent)
	return bytes.Clone(value), meta, true
}

func (n *NodeStore[H]) AccessFrom(crypto.Hash, *crypto.Hash) ([]byte, bool) {
	return nil, false
}

func (n *NodeStore[H]) Insert(prefix trie.Prefix, value []byte) crypto.Hash {
	return n.overlay.Insert(prefix, value)
}

func (n *NodeStore[H]) InsertWithMeta(prefix trie.Prefix, value []byte, meta trie.Meta) crypto.Hash {
	return n.overlay.InsertWithMeta(prefix, value, meta)
}

func (n *NodeStore[H]) Emplace(key crypto.Hash, prefix trie.Prefix, stored []byte) {
	n.overlay.Emplace(key, prefix, stored)
}

func (n *NodeStore[H]) Remove(key crypto.Hash, prefix trie.Prefix) {
	n.overlay.Remove(key, prefix)
}

// stored returns the stored form of a live node, looking at the overlay
// first.
func (n *NodeStore[H]) stored(key crypto.Hash, prefix trie.Prefix) ([]byte, bool) {
	if key == n.overlay.hashedNullNode {
		return trie.EncodeEmpty(), true
	}
	k := []byte(n.keyFn(key, prefix))
	pending, hasPending := n.overlay.data[string(k)]
	if hasPending && pending.rc == 0 {
		hasPending = false
	}

	rc, err := n.refCount(k)
	if err != nil {
		n.fail(fmt.Errorf("read %s of node %s: %w", PrefixToString(prefixTrieNodeRefCount), key, err))
		return nil, false
	}
	if hasPending {
		if total, ok := safemath.AddSigned64(rc, int64(pending.rc)); !ok || total == 0 {
			return nil, false
		}
		if pending.rc > 0 && pending.stored != nil {
			return pending.stored, true
		}
	} else if rc == 0 {
		return nil, false
	}

	stored, err := n.kv.Get(makeKey(prefixTrieNode, k))
	if err != nil {
		if !errors.Is(err, db.ErrNotFound) {
			n.fail(fmt.Errorf("read %s %s: %w", PrefixToString(prefixTrieNode), key, err))
		}
		return nil, false
	}
	return stored, true
}

func (n *NodeStore[H]) refCount(k []byte) (uint64, error) {
	data, err := n.kv.Get(makeKey(prefixTrieNodeRefCount, k))
	if errors.Is(err, db.ErrNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	if len(data) != 8 {
		return 0, fmt.Errorf("ref count of %d bytes", len(data))
	}
	return binary.LittleEndian.Uint64(data), nil
}

func (n *NodeStore[H]) fail(err error) {
	log.Store.Error().Err(err).Msg("node store read failed")
	if n.err == nil {
		n.err = err
	}
}

// Pending returns the number of overlay entries waiting for Commit.
func (n *NodeStore[H]) Pending() int {
	return len(n.overlay.data)
}

// Commit writes the overlay to the KV store in one batch. Nodes whose
// reference count drops to zero are deleted.
func (n *NodeStore[H]) Commit() error {
	if n.err != nil {
		return fmt.Errorf("node store has a pending read error: %w", n.err)
	}
	batch := n.kv.NewBatch()
	defer batch.Close() //nolint:errcheck

	var written, deleted int
	for k, e := range n.overlay.data {
		if e.rc == 0 {
			continue
		}
		key := []byte(k)
		rc, err := n.refCount(key)
		if err != nil {
			return fmt.Errorf("read ref count: %w", err)
		}
		total, ok := safemath.AddSigned64(rc, int64(e.rc))
		if !ok && e.rc > 0 {
			return fmt.Errorf("ref count of %x: %w", key, safemath.ErrOverflow)
		}
		if !ok || total == 0 {
			if !ok {
				log.Store.Warn().Hex("key", key).Uint64("ref_count", rc).Int32("delta", e.rc).Msg("node removed more often than inserted")
			}
			if rc == 0 {
				continue
			}
			if err := batch.Delete(makeKey(prefixTrieNode, key)); err != nil {
				return err
			}
			if err := batch.Delete(makeKey(prefixTrieNodeRefCount, key)); err != nil {
				return err
			}
			deleted++
			continue
		}
		if rc == 0 || e.rc > 0 {
			if err := batch.Put(makeKey(prefixTrieNode, key), e.stored); err != nil {
				return err
			}
		}
		countBytes := make([]byte, 8)
		binary.LittleEndian.PutUint64(countBytes, total)
		if err := batch.Put(makeKey(prefixTrieNodeRefCount, key), countBytes); err != nil {
			return err
		}
		written++
	}

	if err := batch.Commit(); err != nil {
		return fmt.Errorf(ErrFailedBatchCommit, err)
	}
	clear(n.overlay.data)
	log.Store.Debug().Int("written", written).Int("deleted", deleted).Msg("node store committed")
	return nil
}

// Discard drops every uncommitted change and the remembered read error.
func (n *NodeStore[H]) Discard() {
	clear(n.overlay.data)
	n.err = nil
}

// SetHead records root under name. It is written directly, not through the
// overlay, so it should follow a successful Commit.
func (n *NodeStore[H]) SetHead(name string, root crypto.Hash) error {
	return n.kv.Put(makeKey(prefixHead, []byte(name)), root[:])
}

// Head returns the root recorded under name.
func (n *NodeStore[H]) Head(name string) (crypto.Hash, bool, error) {
	data, err := n.kv.Get(makeKey(prefixHead, []byte(name)))
	if errors.Is(err, db.ErrNotFound) {
		return crypto.Hash{}, false, nil
	}
	if err != nil {
		return crypto.Hash{}, false, err
	}
	h, err := crypto.HashFromBytes(data)
	if err != nil {
		return crypto.Hash{}, false, fmt.Errorf("head %q: %w", name, err)
	}
	return h, true, nil
}
