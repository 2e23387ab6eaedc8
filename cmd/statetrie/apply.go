package main

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/spf13/cobra"

	"github.com/eigerco/statetrie/internal/crypto"
	"github.com/eigerco/statetrie/internal/merkle/trie"
	"github.com/eigerco/statetrie/internal/statedb"
	"github.com/eigerco/statetrie/internal/store"
	"github.com/eigerco/statetrie/pkg/db"
	"github.com/eigerco/statetrie/pkg/db/leveldb"
	"github.com/eigerco/statetrie/pkg/db/pebble"
	"github.com/eigerco/statetrie/pkg/log"
)

const (
	backendPebble  = "pebble"
	backendLevelDB = "leveldb"

	hasherState  = "state"
	hasherNoMeta = "nometa"
)

// storeFlags select the persisted trie a command works on.
type storeFlags struct {
	path     string
	backend  string
	hasher   string
	head     string
	keyspace string
}

func (f *storeFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.path, "db", "", "Database directory (required)")
	cmd.Flags().StringVar(&f.backend, "backend", backendPebble, "Storage backend (pebble, leveldb)")
	cmd.Flags().StringVar(&f.hasher, "hasher", hasherState, "Node hashing policy (state, nometa)")
	cmd.Flags().StringVar(&f.head, "head", "best", "Name under which the current root is kept")
	cmd.Flags().StringVar(&f.keyspace, "keyspace", "", "Hex keyspace of a child trie")
	_ = cmd.MarkFlagRequired("db")
}

func (f *storeFlags) open() (db.KVStore, error) {
	switch f.backend {
	case backendPebble:
		return pebble.NewKVStoreAt(f.path)
	case backendLevelDB:
		return leveldb.Open(f.path)
	}
	return nil, fmt.Errorf("unknown backend %q", f.backend)
}

// keyspaceBytes returns nil for the top trie, including an empty "0x".
func (f *storeFlags) keyspaceBytes() ([]byte, error) {
	if f.keyspace == "" {
		return nil, nil
	}
	keyspace, err := hexutil.Decode(f.keyspace)
	if err != nil || len(keyspace) == 0 {
		return nil, err
	}
	return keyspace, nil
}

// headName keeps the roots of child tries apart from the top trie root.
func (f *storeFlags) headName(keyspace []byte) string {
	if len(keyspace) == 0 {
		return f.head
	}
	return f.head + "/" + hexutil.Encode(keyspace)
}

// withStore runs fn on the node store selected by the flags.
func withStore(f *storeFlags, fn func(trie.HashDB, *nodeStore) error) error {
	kv, err := f.open()
	if err != nil {
		return err
	}
	defer kv.Close() //nolint:errcheck

	switch f.hasher {
	case hasherState:
		ns := store.NewNodeStore[trie.StateHasher](kv, store.NodeStoreOptions{})
		return fn(ns, newNodeStore(ns))
	case hasherNoMeta:
		ns := store.NewNodeStore[trie.NoMetaHasher](kv, store.NodeStoreOptions{})
		return fn(ns, newNodeStore(ns))
	}
	return fmt.Errorf("unknown hasher %q", f.hasher)
}

// nodeStore is the part of store.NodeStore the commands use, whatever its
// hashing policy.
type nodeStore struct {
	commit  func() error
	setHead func(string, crypto.Hash) error
	head    func(string) (crypto.Hash, bool, error)
}

func newNodeStore[H trie.ValueHasher](ns *store.NodeStore[H]) *nodeStore {
	return &nodeStore{commit: ns.Commit, setHead: ns.SetHead, head: ns.Head}
}

func currentRoot(ns *nodeStore, name string) (crypto.Hash, error) {
	root, ok, err := ns.head(name)
	if err != nil {
		return crypto.Hash{}, err
	}
	if !ok {
		return statedb.EmptyTrieRoot(), nil
	}
	return root, nil
}

func newApplyCmd() *cobra.Command {
	var (
		flags     storeFlags
		flagInner bool
	)
	cmd := &cobra.Command{
		Use:   "apply [0xkey=0xvalue | 0xkey]...",
		Short: "Apply writes and removals to the stored trie and print the new root",
		RunE: func(cmd *cobra.Command, args []string) error {
			changes, err := parseChanges(args)
			if err != nil {
				return err
			}
			keyspace, err := flags.keyspaceBytes()
			if err != nil {
				return fmt.Errorf("keyspace: %w", err)
			}
			return withStore(&flags, func(hdb trie.HashDB, ns *nodeStore) error {
				name := flags.headName(keyspace)
				root, err := currentRoot(ns, name)
				if err != nil {
					return err
				}
				if flagInner {
					var flagDB trie.HashDB = hdb
					if len(keyspace) > 0 {
						flagDB = store.NewKeyspaceDBMut(hdb, keyspace)
					}
					if root, err = statedb.FlagInnerMetaHasher(flagDB, root); err != nil {
						return err
					}
				}
				if len(keyspace) > 0 {
					root, err = statedb.ChildDeltaTrieRoot(keyspace, hdb, root[:], changes)
				} else {
					root, err = statedb.DeltaTrieRoot(hdb, root, changes)
				}
				if err != nil {
					return err
				}
				if err := ns.commit(); err != nil {
					return err
				}
				if err := ns.setHead(name, root); err != nil {
					return err
				}
				log.Root.Info().Str("head", name).Int("changes", len(changes)).Stringer("root", root).Msg("delta applied")
				_, err = fmt.Fprintln(cmd.OutOrStdout(), root)
				return err
			})
		},
	}
	flags.register(cmd)
	cmd.Flags().BoolVar(&flagInner, "inner-hashing", false, "Switch the trie to inner value hashing before applying")
	return cmd
}

func newGetCmd() *cobra.Command {
	var flags storeFlags
	cmd := &cobra.Command{
		Use:   "get 0xkey...",
		Short: "Print the values stored under keys",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			keyspace, err := flags.keyspaceBytes()
			if err != nil {
				return fmt.Errorf("keyspace: %w", err)
			}
			return withStore(&flags, func(hdb trie.HashDB, ns *nodeStore) error {
				root, err := currentRoot(ns, flags.headName(keyspace))
				if err != nil {
					return err
				}
				for _, arg := range args {
					key, err := decodeHex(arg)
					if err != nil {
						return fmt.Errorf("key %q: %w", arg, err)
					}
					var value []byte
					if len(keyspace) > 0 {
						value, err = statedb.ReadChildTrieValue(keyspace, hdb, root[:], key)
					} else {
						value, err = statedb.ReadTrieValue(hdb, root, key)
					}
					if err != nil {
						return err
					}
					out := "none"
					if value != nil {
						out = hexutil.Encode(value)
					}
					if _, err := fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", hexutil.Encode(key), out); err != nil {
						return err
					}
				}
				return nil
			})
		},
	}
	flags.register(cmd)
	return cmd
}
