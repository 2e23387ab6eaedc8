package pebble

import (
	"sync/atomic"

	"github.com/cockroachdb/pebble"

	"github.com/eigerco/statetrie/pkg/db"
)

// Batch collects writes that are applied atomically on Commit.
type Batch struct {
	batch     *pebble.Batch
	writeOpts *pebble.WriteOptions
	done      atomic.Bool
}

func (p *KVStore) NewBatch() db.Batch {
	return &Batch{
		batch:     p.db.NewBatch(),
		writeOpts: p.writeOpts,
	}
}

func (b *Batch) Put(key, value []byte) error {
	if b.done.Load() {
		return ErrBatchDone
	}
	return b.batch.Set(key, value, nil)
}

func (b *Batch) Delete(key []byte) error {
	if b.done.Load() {
		return ErrBatchDone
	}
	return b.batch.Delete(key, nil)
}

func (b *Batch) Commit() error {
	if b.done.Load() {
		return ErrBatchDone
	}
	if err := b.batch.Commit(b.writeOpts); err != nil {
		return err
	}
	b.done.Store(true)
	return b.batch.Close()
}

// Close releases an uncommitted batch. It is a no-op after Commit.
func (b *Batch) Close() error {
	if !b.done.CompareAndSwap(false, true) {
		return nil
	}
	return b.batch.Close()
}
