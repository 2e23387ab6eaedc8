package triedb

import (
	"errors"
	"fmt"

	"github.com/eigerco/statetrie/internal/crypto"
)

var (
	ErrInvalidStateRoot   = errors.New("invalid state root")
	ErrIncompleteDatabase = errors.New("incomplete database")
	ErrDecoder            = errors.New("node decoding failed")
	ErrValueOmitted       = errors.New("value omitted from proof")
)

// ErrorKind classifies a TrieError.
type ErrorKind uint8

const (
	InvalidStateRoot ErrorKind = iota + 1
	IncompleteDatabase
	DecoderError
	ValueOmitted
)

func (k ErrorKind) sentinel() error {
	switch k {
	case InvalidStateRoot:
		return ErrInvalidStateRoot
	case IncompleteDatabase:
		return ErrIncompleteDatabase
	case DecoderError:
		return ErrDecoder
	case ValueOmitted:
		return ErrValueOmitted
	}
	return errors.New("unknown trie error")
}

// TrieError is returned by every trie operation that fails because of the
// database content. It matches its kind sentinel with errors.Is.
type TrieError struct {
	Kind ErrorKind
	// Hash of the node involved.
	Hash crypto.Hash
	// Err is the underlying cause, if any.
	Err error
}

func newTrieError(kind ErrorKind, hash crypto.Hash, err error) *TrieError {
	return &TrieError{Kind: kind, Hash: hash, Err: err}
}

func (e *TrieError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%v at %s: %v", e.Kind.sentinel(), e.Hash, e.Err)
	}
	return fmt.Sprintf("%v at %s", e.Kind.sentinel(), e.Hash)
}

func (e *TrieError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind.sentinel()}
	}
	return []error{e.Kind.sentinel(), e.Err}
}
