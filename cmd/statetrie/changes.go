package main

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common/hexutil"

	"github.com/eigerco/statetrie/internal/statedb"
)

// parseChanges reads "0xkey=0xvalue" as a write and "0xkey" as a removal.
// An empty value is written as "0xkey=".
func parseChanges(args []string) ([]statedb.Change, error) {
	changes := make([]statedb.Change, 0, len(args))
	for _, arg := range args {
		keyHex, valueHex, isSet := strings.Cut(arg, "=")
		key, err := decodeHex(keyHex)
		if err != nil {
			return nil, fmt.Errorf("key of %q: %w", arg, err)
		}
		if !isSet {
			changes = append(changes, statedb.Delete(key))
			continue
		}
		value, err := decodeHex(valueHex)
		if err != nil {
			return nil, fmt.Errorf("value of %q: %w", arg, err)
		}
		changes = append(changes, statedb.Set(key, value))
	}
	return changes, nil
}

// decodeHex accepts "0x" prefixed hex, with "" and "0x" both meaning no
// bytes.
func decodeHex(s string) ([]byte, error) {
	if s == "" || s == "0x" {
		return []byte{}, nil
	}
	return hexutil.Decode(s)
}
