package leveldb

import (
	"errors"
	"fmt"
	"sync"

	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/opt"
	"github.com/syndtr/goleveldb/leveldb/storage"
	"github.com/syndtr/goleveldb/leveldb/util"

	"github.com/eigerco/statetrie/pkg/db"
	"github.com/eigerco/statetrie/pkg/log"
)

var (
	ErrClosed          = db.ErrClosed
	ErrNotFound        = db.ErrNotFound
	ErrBatchDone       = db.ErrBatchDone
	ErrIteratorInvalid = db.ErrIteratorInvalid
)

// KVStore is a db.KVStore backed by goleveldb.
type KVStore struct {
	db     *leveldb.DB
	wo     *opt.WriteOptions
	closed bool
	mu     sync.RWMutex
}

var _ db.KVStore = (*KVStore)(nil)

// NewKVStore opens a store kept entirely in memory.
func NewKVStore() (*KVStore, error) {
	ldb, err := leveldb.Open(storage.NewMemStorage(), nil)
	if err != nil {
		return nil, fmt.Errorf("kv-store: open memory storage: %w", err)
	}
	log.Store.Debug().Str("backend", "leveldb").Bool("in_memory", true).Msg("store opened")
	return &KVStore{db: ldb, wo: &opt.WriteOptions{}}, nil
}

// Open opens or creates a store at path.
func Open(path string) (*KVStore, error) {
	ldb, err := leveldb.OpenFile(path, &opt.Options{})
	if err != nil {
		return nil, fmt.Errorf("kv-store: open %q: %w", path, err)
	}
	log.Store.Debug().Str("backend", "leveldb").Str("path", path).Msg("store opened")
	return &KVStore{db: ldb, wo: &opt.WriteOptions{Sync: true}}, nil
}

func (s *KVStore) Get(key []byte) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, ErrClosed
	}
	value, err := s.db.Get(key, nil)
	if errors.Is(err, leveldb.ErrNotFound) {
		return nil, ErrNotFound
	}
	return value, err
}

func (s *KVStore) Put(key, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrClosed
	}
	return s.db.Put(key, value, s.wo)
}

func (s *KVStore) Delete(key []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrClosed
	}
	return s.db.Delete(key, s.wo)
}

func (s *KVStore) NewBatch() db.Batch {
	return &Batch{store: s, batch: new(leveldb.Batch)}
}

func (s *KVStore) NewIterator(start, end []byte) (db.Iterator, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, ErrClosed
	}
	return &Iterator{iter: s.db.NewIterator(&util.Range{Start: start, Limit: end}, nil)}, nil
}

func (s *KVStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	return s.db.Close()
}

func (s *KVStore) write(batch *leveldb.Batch) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrClosed
	}
	return s.db.Write(batch, s.wo)
}
