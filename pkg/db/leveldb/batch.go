package leveldb

import (
	"sync/atomic"

	"github.com/syndtr/goleveldb/leveldb"
)

// Batch buffers writes in memory and applies them in one leveldb write.
type Batch struct {
	store *KVStore
	batch *leveldb.Batch
	done  atomic.Bool
}

func (b *Batch) Put(key, value []byte) error {
	if b.done.Load() {
		return ErrBatchDone
	}
	b.batch.Put(key, value)
	return nil
}

func (b *Batch) Delete(key []byte) error {
	if b.done.Load() {
		return ErrBatchDone
	}
	b.batch.Delete(key)
	return nil
}

func (b *Batch) Commit() error {
	if b.done.Load() {
		return ErrBatchDone
	}
	if err := b.store.write(b.batch); err != nil {
		return err
	}
	b.done.Store(true)
	return nil
}

func (b *Batch) Close() error {
	if b.done.CompareAndSwap(false, true) {
		b.batch.Reset()
	}
	return nil
}
