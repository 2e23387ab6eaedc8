package db

// KVStore is an ordered byte key-value store. Every method returns
// ErrClosed once Close was called.
type KVStore interface {
	Reader
	Writer
	// NewBatch starts an atomic group of writes. Nothing is visible before
	// Commit.
	NewBatch() Batch
	Close() error
}

type Reader interface {
	// Get returns ErrNotFound for a missing key. The returned slice is owned
	// by the caller.
	Get(key []byte) ([]byte, error)
	// NewIterator walks keys in [start, end) in ascending byte order. A nil
	// bound is open.
	NewIterator(start, end []byte) (Iterator, error)
}

type Writer interface {
	Put(key []byte, value []byte) error
	Delete(key []byte) error
}

// Batch is applied atomically by Commit. A batch cannot be reused after
// Commit or Close, both of which release it.
type Batch interface {
	Writer
	Commit() error
	Close() error
}

// Iterator provides sequential access over a range of key-value pairs.
// Iterators must be closed after use.
type Iterator interface {
	Next() bool
	Key() []byte
	Value() ([]byte, error)
	Valid() bool
	Close() error
}
