package pebble

import "github.com/eigerco/statetrie/pkg/db"

var (
	ErrClosed          = db.ErrClosed
	ErrNotFound        = db.ErrNotFound
	ErrBatchDone       = db.ErrBatchDone
	ErrIteratorInvalid = db.ErrIteratorInvalid
)

const (
	ErrInIteratorCreation = "kv-store: failed to create iterator: %w"
	ErrIteratorValue      = "kv-store: failed to read iterator value: %w"
)
