package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/eigerco/statetrie/internal/statedb"
)

func newRootHashCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "root [0xkey=0xvalue...]",
		Short: "Compute the root of a trie holding the given entries",
		RunE: func(cmd *cobra.Command, args []string) error {
			changes, err := parseChanges(args)
			if err != nil {
				return err
			}
			pairs := make([][2][]byte, 0, len(changes))
			for _, c := range changes {
				if c.Remove {
					return fmt.Errorf("entry %x has no value", c.Key)
				}
				pairs = append(pairs, [2][]byte{c.Key, c.Value})
			}
			root := statedb.ChildTrieRoot(pairs)
			_, err = fmt.Fprintln(cmd.OutOrStdout(), root)
			return err
		},
	}
}
