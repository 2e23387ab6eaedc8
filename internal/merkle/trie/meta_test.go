package trie

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestForNewNode(t *testing.T) {
	t.Run("no parent", func(t *testing.T) {
		assert.Equal(t, Meta{}, ForNewNode(nil))
	})
	t.Run("inherits active policy", func(t *testing.T) {
		parent := Meta{HashPolicyActive: true, RecordsHashPolicy: true, LegacyHash: true}
		m := ForNewNode(&parent)
		assert.True(t, m.HashPolicyActive)
		assert.False(t, m.RecordsHashPolicy)
		assert.False(t, m.LegacyHash)
		assert.Equal(t, m, ForExistingInlineNode(&parent))
	})
	t.Run("empty", func(t *testing.T) {
		assert.Equal(t, Meta{}, ForEmpty())
	})
}

func TestPolicyMarkerRoundTrip(t *testing.T) {
	states := []Meta{
		{},
		{RecordsHashPolicy: true, HashPolicyActive: true},
		{HashPolicyActive: true},
		{ContainsHash: true, UnusedValue: true},
		{LegacyHash: true},
	}
	// No node encoding starts with PolicyActiveMarker, so it is not a tail.
	tails := [][]byte{nil, {0x00}, {0x42, 0xaa, 0x04, 0xbb}, {BranchWithMask | 1, 0x0a}}

	for _, m := range states {
		for _, tail := range tails {
			marker := m.EmitPolicyMarker()
			data := append(append([]byte{}, marker...), tail...)

			var got Meta
			consumed := got.ReadPolicyMarker(data)
			assert.Equal(t, len(marker), consumed)
			assert.Equal(t, m.RecordsHashPolicy, got.RecordsHashPolicy)
			if m.RecordsHashPolicy {
				assert.True(t, got.HashPolicyActive)
			}
		}
	}
}

func TestReadPolicyMarker(t *testing.T) {
	t.Run("unknown leading byte is left alone", func(t *testing.T) {
		for _, b := range []byte{EmptyTrieHeader, StoredHashMarker, LegacyMarker, 0x42, 0xff} {
			var m Meta
			assert.Equal(t, 0, m.ReadPolicyMarker([]byte{b, 0x01}))
			assert.Equal(t, Meta{}, m)
		}
	})
	t.Run("leading policy marker is consumed", func(t *testing.T) {
		var m Meta
		assert.Equal(t, 1, m.ReadPolicyMarker([]byte{PolicyActiveMarker, 0x42, 0xaa}))
		assert.True(t, m.RecordsHashPolicy)
		assert.True(t, m.HashPolicyActive)
	})
	t.Run("empty input", func(t *testing.T) {
		var m Meta
		assert.Equal(t, 0, m.ReadPolicyMarker(nil))
	})
}

func TestOnValueEncoded(t *testing.T) {
	t.Run("plain value", func(t *testing.T) {
		m := Meta{LegacyHash: true}
		m.OnValueEncoded(ValuePlan{Kind: InlineValue, Range: Range{2, 40}})
		assert.Equal(t, &Range{2, 40}, m.Range)
		assert.False(t, m.ContainsHash)
		// policy inactive: legacy flag survives
		assert.True(t, m.LegacyHash)
	})
	t.Run("active policy migrates legacy node", func(t *testing.T) {
		m := Meta{LegacyHash: true, HashPolicyActive: true}
		m.OnValueEncoded(ValuePlan{Kind: HashedValue, Range: Range{3, 35}, Size: 100})
		assert.True(t, m.ContainsHash)
		assert.False(t, m.LegacyHash)
		assert.Equal(t, 32, m.RangeLen())
	})
	t.Run("no value is a no-op", func(t *testing.T) {
		m := Meta{LegacyHash: true, HashPolicyActive: true}
		m.OnValueEncoded(ValuePlan{Kind: NoValue})
		assert.Nil(t, m.Range)
		assert.True(t, m.LegacyHash)
	})
}

func TestOnNodeDecoded(t *testing.T) {
	m := Meta{LegacyHash: true, HashPolicyActive: true}
	m.OnNodeDecoded(NodePlan{Kind: LeafNode, Value: ValuePlan{Kind: InlineValue, Range: Range{3, 4}}})
	assert.Equal(t, &Range{3, 4}, m.Range)
	assert.True(t, m.LegacyHash)

	m.OnNodeDecoded(NodePlan{Kind: BranchNode, Value: ValuePlan{Kind: NoValue}})
	assert.Equal(t, &Range{3, 4}, m.Range)
}

func TestAccessedValue(t *testing.T) {
	var m Meta
	assert.True(t, m.AccessedValue())
	m.SetAccessedValue(false)
	assert.True(t, m.UnusedValue)
	assert.False(t, m.AccessedValue())
	m.SetAccessedValue(true)
	assert.True(t, m.AccessedValue())
}

func TestSetStateMeta(t *testing.T) {
	var m Meta
	m.SetStateMeta(true)
	assert.True(t, m.HasStateMeta())
	assert.True(t, m.HashPolicyActive)
	assert.Equal(t, []byte{PolicyActiveMarker}, m.EmitPolicyMarker())
	m.SetStateMeta(false)
	assert.False(t, m.HasStateMeta())
	assert.Empty(t, m.EmitPolicyMarker())
}
