package main

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eigerco/statetrie/internal/crypto"
	"github.com/eigerco/statetrie/internal/merkle/trie"
	"github.com/eigerco/statetrie/internal/statedb"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return strings.TrimSpace(out.String()), err
}

func TestParseChanges(t *testing.T) {
	changes, err := parseChanges([]string{"0xaa=0xbb", "0x01=", "0x02"})
	require.NoError(t, err)
	assert.Equal(t, []statedb.Change{
		statedb.Set([]byte{0xaa}, []byte{0xbb}),
		statedb.Set([]byte{0x01}, []byte{}),
		statedb.Delete([]byte{0x02}),
	}, changes)

	_, err = parseChanges([]string{"aa=0xbb"})
	assert.Error(t, err)
	_, err = parseChanges([]string{"0xaa=0xzz"})
	assert.Error(t, err)
}

func TestRootCommand(t *testing.T) {
	out, err := run(t, "root", "0xaa=0xbb")
	require.NoError(t, err)
	assert.Equal(t, crypto.HashData([]byte{0x42, 0xaa, 0x04, 0xbb}).String(), out)

	out, err = run(t, "root")
	require.NoError(t, err)
	assert.Equal(t, trie.EmptyRoot().String(), out)

	_, err = run(t, "root", "0xaa")
	assert.Error(t, err)
}

func TestApplyAndGet(t *testing.T) {
	for _, backend := range []string{"pebble", "leveldb"} {
		t.Run(backend, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "db")
			common := []string{"--db", path, "--backend", backend, "--log-level", "error"}

			out, err := run(t, append([]string{"apply", "0x0102=0x01", "0x0203=0x0405"}, common...)...)
			require.NoError(t, err)
			want := trie.TrieRoot([][2][]byte{{{0x01, 0x02}, {0x01}}, {{0x02, 0x03}, {0x04, 0x05}}})
			assert.Equal(t, want.String(), out)

			out, err = run(t, append([]string{"get", "0x0102", "0x0999"}, common...)...)
			require.NoError(t, err)
			assert.Equal(t, "0x0102 0x01\n0x0999 none", out)

			out, err = run(t, append([]string{"apply", "0x0203"}, common...)...)
			require.NoError(t, err)
			assert.Equal(t, trie.TrieRoot([][2][]byte{{{0x01, 0x02}, {0x01}}}).String(), out)

			childArgs := append([]string{"--keyspace", "0xc0de"}, common...)
			out, err = run(t, append([]string{"apply", "0x0a=0x0b"}, childArgs...)...)
			require.NoError(t, err)
			assert.Equal(t, statedb.ChildTrieRoot([][2][]byte{{{0x0a}, {0x0b}}}).String(), out)

			out, err = run(t, append([]string{"get", "0x0a"}, childArgs...)...)
			require.NoError(t, err)
			assert.Equal(t, "0x0a 0x0b", out)
		})
	}
}

func TestEmptyKeyspaceIsTopTrie(t *testing.T) {
	path := filepath.Join(t.TempDir(), "db")

	out, err := run(t, "apply", "--db", path, "--keyspace", "0x", "0x0a=0x0b")
	require.NoError(t, err)
	assert.Equal(t, trie.TrieRoot([][2][]byte{{{0x0a}, {0x0b}}}).String(), out)

	out, err = run(t, "get", "--db", path, "0x0a")
	require.NoError(t, err)
	assert.Equal(t, "0x0a 0x0b", out)

	flags := storeFlags{head: "best", keyspace: "0x"}
	keyspace, err := flags.keyspaceBytes()
	require.NoError(t, err)
	assert.Nil(t, keyspace)
	assert.Equal(t, "best", flags.headName(keyspace))
	assert.Equal(t, "best/0xc0de", flags.headName([]byte{0xc0, 0xde}))
}

func TestApplyInnerHashing(t *testing.T) {
	path := filepath.Join(t.TempDir(), "db")
	value := "0x" + strings.Repeat("ab", 40)

	_, err := run(t, "apply", "--db", path, "--inner-hashing", "0x10="+value)
	require.NoError(t, err)

	out, err := run(t, "get", "--db", path, "0x10", "0x")
	require.NoError(t, err)
	assert.Equal(t, "0x10 "+value+"\n0x 0x", out)
}

func TestUnknownOptions(t *testing.T) {
	path := filepath.Join(t.TempDir(), "db")
	_, err := run(t, "apply", "--db", path, "--backend", "rocksdb", "0x01=0x01")
	assert.Error(t, err)
	_, err = run(t, "apply", "--db", path, "--hasher", "sha", "0x01=0x01")
	assert.Error(t, err)
	_, err = run(t, "root", "--log-level", "loud")
	assert.Error(t, err)
}
