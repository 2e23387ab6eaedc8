package pebble

import (
	"errors"
	"fmt"
	"sync"

	"github.com/cockroachdb/pebble"
	"github.com/cockroachdb/pebble/vfs"

	"github.com/eigerco/statetrie/pkg/db"
	"github.com/eigerco/statetrie/pkg/log"
)

// Options configure the pebble instance behind a KVStore.
type Options struct {
	// CacheSize is the block cache size in bytes.
	CacheSize int64
	// MemTableSize is the size of a single memtable in bytes.
	MemTableSize uint64
	// InMemory keeps all files in memory, Path is then ignored.
	InMemory bool
	// NoSync skips fsync on writes, for tests and throwaway stores.
	NoSync bool
}

// DefaultOptions returns the options used by NewKVStoreAt.
func DefaultOptions() Options {
	return Options{
		CacheSize:    64 * 1024 * 1024, // 64MB
		MemTableSize: 32 * 1024 * 1024, // 32MB
	}
}

// KVStore is a db.KVStore backed by pebble.
type KVStore struct {
	db        *pebble.DB
	writeOpts *pebble.WriteOptions
	closed    bool
	mu        sync.RWMutex
}

var _ db.KVStore = (*KVStore)(nil)

// NewKVStore opens an in-memory store.
func NewKVStore() (*KVStore, error) {
	opts := DefaultOptions()
	opts.InMemory = true
	opts.NoSync = true
	return Open("", opts)
}

// NewKVStoreAt opens or creates a store at path with the default options.
func NewKVStoreAt(path string) (*KVStore, error) {
	return Open(path, DefaultOptions())
}

// Open opens a store at path.
func Open(path string, opts Options) (*KVStore, error) {
	cache := pebble.NewCache(opts.CacheSize)
	defer cache.Unref()

	pebbleOpts := &pebble.Options{
		Cache:                       cache,
		MemTableSize:                opts.MemTableSize,
		MemTableStopWritesThreshold: 4,
	}
	if opts.InMemory {
		pebbleOpts.FS = vfs.NewMem()
	}

	pdb, err := pebble.Open(path, pebbleOpts)
	if err != nil {
		return nil, fmt.Errorf("kv-store: open %q: %w", path, err)
	}
	log.Store.Debug().Str("backend", "pebble").Str("path", path).Bool("in_memory", opts.InMemory).Msg("store opened")

	writeOpts := pebble.Sync
	if opts.NoSync {
		writeOpts = pebble.NoSync
	}
	return &KVStore{db: pdb, writeOpts: writeOpts}, nil
}

func (p *KVStore) Get(key []byte) ([]byte, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		return nil, ErrClosed
	}

	value, closer, err := p.db.Get(key)
	if errors.Is(err, pebble.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	defer closer.Close() //nolint:errcheck

	result := make([]byte, len(value))
	copy(result, value)
	return result, nil
}

func (p *KVStore) Put(key, value []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return ErrClosed
	}

	return p.db.Set(key, value, p.writeOpts)
}

func (p *KVStore) Delete(key []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return ErrClosed
	}

	return p.db.Delete(key, p.writeOpts)
}

func (p *KVStore) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil
	}
	p.closed = true
	return p.db.Close()
}
