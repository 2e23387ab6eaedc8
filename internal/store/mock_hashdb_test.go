package store

import (
	"github.com/stretchr/testify/mock"

	"github.com/eigerco/statetrie/internal/crypto"
	"github.com/eigerco/statetrie/internal/merkle/trie"
)

type mockHashDB struct {
	mock.Mock
}

var _ trie.HashDB = (*mockHashDB)(nil)

func (m *mockHashDB) Get(key crypto.Hash, prefix trie.Prefix) ([]byte, bool) {
	args := m.Called(key, prefix)
	return args.Get(0).([]byte), args.Bool(1)
}

func (m *mockHashDB) Contains(key crypto.Hash, prefix trie.Prefix) bool {
	return m.Called(key, prefix).Bool(0)
}

func (m *mockHashDB) GetWithMeta(key crypto.Hash, prefix trie.Prefix, parent *trie.Meta) ([]byte, trie.Meta, bool) {
	args := m.Called(key, prefix, parent)
	return args.Get(0).([]byte), args.Get(1).(trie.Meta), args.Bool(2)
}

func (m *mockHashDB) AccessFrom(key crypto.Hash, at *crypto.Hash) ([]byte, bool) {
	args := m.Called(key, at)
	return args.Get(0).([]byte), args.Bool(1)
}

func (m *mockHashDB) Insert(prefix trie.Prefix, value []byte) crypto.Hash {
	return m.Called(prefix, value).Get(0).(crypto.Hash)
}

func (m *mockHashDB) InsertWithMeta(prefix trie.Prefix, value []byte, meta trie.Meta) crypto.Hash {
	return m.Called(prefix, value, meta).Get(0).(crypto.Hash)
}

func (m *mockHashDB) Emplace(key crypto.Hash, prefix trie.Prefix, stored []byte) {
	m.Called(key, prefix, stored)
}

func (m *mockHashDB) Remove(key crypto.Hash, prefix trie.Prefix) {
	m.Called(key, prefix)
}
