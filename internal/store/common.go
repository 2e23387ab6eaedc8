package store

const (
	ErrFailedBatchCommit = "failed to commit batch: %w"
)

// Prefix constants for every record kind in the backing KV store
const (
	prefixTrieNode byte = iota + 1
	prefixTrieNodeRefCount
	prefixHead
)

// PrefixToString converts a prefix byte to a string
func PrefixToString(p byte) string {
	switch p {
	case prefixTrieNode:
		return "trieNode"
	case prefixTrieNodeRefCount:
		return "trieNodeRefCount"
	case prefixHead:
		return "head"
	default:
		return "unknown"
	}
}

// makeKey creates a key from a prefix and a node key
func makeKey(prefix byte, key []byte) []byte {
	out := make([]byte, 1+len(key))
	out[0] = prefix
	copy(out[1:], key)
	return out
}
