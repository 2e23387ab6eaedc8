package crypto

import (
	"encoding/hex"
	"fmt"
	"strings"

	"golang.org/x/crypto/blake2b"
)

// Hash is a blake2b-256 digest. Trie nodes are addressed by it.
type Hash [HashSize]byte

func HashData(data []byte) Hash {
	hash := blake2b.Sum256(data)
	return hash
}

// HashFromBytes copies a HashSize long slice into a Hash.
func HashFromBytes(b []byte) (Hash, error) {
	var h Hash
	if len(b) != HashSize {
		return h, fmt.Errorf("invalid hash length %d, expected %d", len(b), HashSize)
	}
	copy(h[:], b)
	return h, nil
}

func (h Hash) String() string {
	return "0x" + hex.EncodeToString(h[:])
}

// StringToHex converts a hex string to a byte slice
func StringToHex(s string) []byte {
	// Remove 0x prefix if present
	s = strings.TrimPrefix(s, "0x")

	bytes, err := hex.DecodeString(s)
	if err != nil {
		panic(fmt.Sprintf("error decoding hex string '%s': %v", s, err))
	}
	return bytes
}
