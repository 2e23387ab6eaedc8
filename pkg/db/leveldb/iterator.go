package leveldb

import (
	"fmt"

	"github.com/syndtr/goleveldb/leveldb/iterator"
)

// Iterator walks the keys in [start, end) in ascending order.
type Iterator struct {
	iter iterator.Iterator
}

func (it *Iterator) Next() bool {
	return it.iter.Next()
}

func (it *Iterator) Key() []byte {
	key := it.iter.Key()
	result := make([]byte, len(key))
	copy(result, key)
	return result
}

func (it *Iterator) Value() ([]byte, error) {
	if !it.iter.Valid() {
		return nil, ErrIteratorInvalid
	}
	if err := it.iter.Error(); err != nil {
		return nil, fmt.Errorf("kv-store: failed to read iterator value: %w", err)
	}
	val := it.iter.Value()
	result := make([]byte, len(val))
	copy(result, val)
	return result, nil
}

func (it *Iterator) Valid() bool {
	return it.iter.Valid()
}

func (it *Iterator) Close() error {
	err := it.iter.Error()
	it.iter.Release()
	return err
}
