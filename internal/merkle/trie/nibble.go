package trie

// KeyToNibbles expands a key into one nibble per byte, high nibble first.
func KeyToNibbles(key []byte) []byte {
	nibbles := make([]byte, 2*len(key))
	for i, b := range key {
		nibbles[2*i] = b >> 4
		nibbles[2*i+1] = b & 0x0f
	}
	return nibbles
}

// NibblesToKey packs an even number of nibbles back into bytes. A trailing
// odd nibble is dropped.
func NibblesToKey(nibbles []byte) []byte {
	key := make([]byte, len(nibbles)/2)
	for i := range key {
		key[i] = nibbles[2*i]<<4 | nibbles[2*i+1]
	}
	return key
}

// CommonPrefix returns the length of the common prefix of a and b.
func CommonPrefix(a, b []byte) int {
	n := min(len(a), len(b))
	for i := 0; i < n; i++ {
		if a[i] != b[i] {
			return i
		}
	}
	return n
}

// NibblePrefix builds the store prefix of a node located at the given path.
func NibblePrefix(path []byte) Prefix {
	p := Prefix{Key: NibblesToKey(path)}
	if len(path)%2 == 1 {
		padded := path[len(path)-1] << 4
		p.Padded = &padded
	}
	return p
}

// encodePartial packs partial key nibbles the way node headers expect them:
// an odd leading nibble goes alone in the low half of the first byte.
func encodePartial(nibbles []byte) []byte {
	out := make([]byte, 0, (len(nibbles)+1)/2)
	if len(nibbles)%2 == 1 {
		out = append(out, nibbles[0])
		nibbles = nibbles[1:]
	}
	return append(out, NibblesToKey(nibbles)...)
}

func decodePartial(data []byte, count int) []byte {
	nibbles := make([]byte, 0, count)
	if count%2 == 1 {
		nibbles = append(nibbles, data[0]&0x0f)
		data = data[1:]
	}
	for _, b := range data {
		nibbles = append(nibbles, b>>4, b&0x0f)
	}
	return nibbles[:count]
}
