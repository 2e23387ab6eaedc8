package trie

import "github.com/eigerco/statetrie/internal/crypto"

// InnerHashedValue returns data with the bytes in r replaced by their digest.
// A nil or out of bounds range returns an unchanged copy.
func InnerHashedValue(data []byte, r *Range) []byte {
	if r != nil && r.Start <= r.End {
		start, end, l := r.Start, r.End, len(data)
		switch {
		case start < l && end == l:
			// terminal
			h := crypto.HashData(data[start:])
			out := make([]byte, 0, start+crypto.HashSize)
			out = append(out, data[:start]...)
			return append(out, h[:]...)
		case start == 0 && end < l:
			// initial
			h := crypto.HashData(data[:start])
			out := make([]byte, 0, crypto.HashSize+l-end)
			out = append(out, h[:]...)
			return append(out, data[end:]...)
		case start > 0 && end < l:
			// middle
			h := crypto.HashData(data[start:end])
			out := make([]byte, 0, l-(end-start)+crypto.HashSize)
			out = append(out, data[:start]...)
			out = append(out, h[:]...)
			return append(out, data[end:]...)
		}
	}
	out := make([]byte, len(data))
	copy(out, data)
	return out
}
