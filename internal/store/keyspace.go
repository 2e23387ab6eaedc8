package store

import (
	"github.com/eigerco/statetrie/internal/crypto"
	"github.com/eigerco/statetrie/internal/merkle/trie"
)

// KeyspacePrefix puts keyspace in front of the packed path of prefix. The
// padded nibble is kept as is.
func KeyspacePrefix(keyspace []byte, prefix trie.Prefix) trie.Prefix {
	key := make([]byte, 0, len(keyspace)+len(prefix.Key))
	key = append(key, keyspace...)
	key = append(key, prefix.Key...)
	return trie.Prefix{Key: key, Padded: prefix.Padded}
}

// KeyspaceDB is a read only view of a database in which every node position
// is moved under keyspace. Views with different keyspaces over a database
// using a prefix aware key function never see each other's nodes.
//
// Keyspaces should have a fixed length or be self delimiting, otherwise
// keyspace "a" with path "b" and keyspace "ab" with an empty path collide.
type KeyspaceDB struct {
	db       trie.HashDBReader
	keyspace []byte
}

var _ trie.HashDBReader = (*KeyspaceDB)(nil)

func NewKeyspaceDB(db trie.HashDBReader, keyspace []byte) *KeyspaceDB {
	return &KeyspaceDB{db: db, keyspace: keyspace}
}

func (k *KeyspaceDB) Get(key crypto.Hash, prefix trie.Prefix) ([]byte, bool) {
	return k.db.Get(key, KeyspacePrefix(k.keyspace, prefix))
}

func (k *KeyspaceDB) Contains(key crypto.Hash, prefix trie.Prefix) bool {
	return k.db.Contains(key, KeyspacePrefix(k.keyspace, prefix))
}

func (k *KeyspaceDB) GetWithMeta(key crypto.Hash, prefix trie.Prefix, parent *trie.Meta) ([]byte, trie.Meta, bool) {
	return k.db.GetWithMeta(key, KeyspacePrefix(k.keyspace, prefix), parent)
}

// AccessFrom addresses nodes by digest only, the keyspace does not apply.
func (k *KeyspaceDB) AccessFrom(key crypto.Hash, at *crypto.Hash) ([]byte, bool) {
	return k.db.AccessFrom(key, at)
}

// KeyspaceDBMut is the writable counterpart of KeyspaceDB.
type KeyspaceDBMut struct {
	KeyspaceDB
	db trie.HashDB
}

var _ trie.HashDB = (*KeyspaceDBMut)(nil)

func NewKeyspaceDBMut(db trie.HashDB, keyspace []byte) *KeyspaceDBMut {
	return &KeyspaceDBMut{
		KeyspaceDB: KeyspaceDB{db: db, keyspace: keyspace},
		db:         db,
	}
}

func (k *KeyspaceDBMut) Insert(prefix trie.Prefix, value []byte) crypto.Hash {
	return k.db.Insert(KeyspacePrefix(k.keyspace, prefix), value)
}

func (k *KeyspaceDBMut) InsertWithMeta(prefix trie.Prefix, value []byte, meta trie.Meta) crypto.Hash {
	return k.db.InsertWithMeta(KeyspacePrefix(k.keyspace, prefix), value, meta)
}

func (k *KeyspaceDBMut) Emplace(key crypto.Hash, prefix trie.Prefix, stored []byte) {
	k.db.Emplace(key, KeyspacePrefix(k.keyspace, prefix), stored)
}

func (k *KeyspaceDBMut) Remove(key crypto.Hash, prefix trie.Prefix) {
	k.db.Remove(key, KeyspacePrefix(k.keyspace, prefix))
}
