package trie

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNibbles(t *testing.T) {
	key := []byte{0x12, 0xab}
	nibbles := KeyToNibbles(key)
	assert.Equal(t, []byte{0x1, 0x2, 0xa, 0xb}, nibbles)
	assert.Equal(t, key, NibblesToKey(nibbles))
	assert.Equal(t, []byte{0x12}, NibblesToKey(nibbles[:3]))
}

func TestCommonPrefix(t *testing.T) {
	assert.Equal(t, 0, CommonPrefix(nil, []byte{1}))
	assert.Equal(t, 2, CommonPrefix([]byte{1, 2, 3}, []byte{1, 2, 4}))
	assert.Equal(t, 2, CommonPrefix([]byte{1, 2}, []byte{1, 2, 4}))
}

func TestNibblePrefix(t *testing.T) {
	p := NibblePrefix([]byte{0x1, 0x2, 0x3})
	assert.Equal(t, []byte{0x12}, p.Key)
	if assert.NotNil(t, p.Padded) {
		assert.Equal(t, byte(0x30), *p.Padded)
	}
	assert.Equal(t, []byte{0x12, 0x30}, p.Bytes())

	even := NibblePrefix([]byte{0x1, 0x2})
	assert.Nil(t, even.Padded)
	assert.Equal(t, []byte{0x12}, even.Bytes())

	assert.Empty(t, NibblePrefix(nil).Bytes())
}

func TestPartialEncoding(t *testing.T) {
	for _, nibbles := range [][]byte{{}, {0x3}, {0x3, 0x1}, {0x3, 0x1, 0x4}} {
		enc := encodePartial(nibbles)
		assert.Equal(t, nibbles, decodePartial(enc, len(nibbles)))
	}
}
