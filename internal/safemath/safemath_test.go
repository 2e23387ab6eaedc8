package safemath

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAddSigned64(t *testing.T) {
	tests := []struct {
		name   string
		a      uint64
		delta  int64
		want   uint64
		wantOk bool
	}{
		{"zero plus zero", 0, 0, 0, true},
		{"increment", 1, 1, 2, true},
		{"decrement to zero", 2, -2, 0, true},
		{"below zero", 1, -2, 0, false},
		{"max plus one", math.MaxUint64, 1, 0, false},
		{"max minus one", math.MaxUint64, -1, math.MaxUint64 - 1, true},
		{"min delta", math.MaxUint64, math.MinInt64, math.MaxUint64 - (1 << 63), true},
		{"min delta below zero", 1 << 62, math.MinInt64, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := AddSigned64(tt.a, tt.delta)
			assert.Equal(t, tt.wantOk, ok)
			if tt.wantOk {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

func TestAddSub64(t *testing.T) {
	v, ok := Add64(math.MaxUint64-1, 1)
	assert.True(t, ok)
	assert.Equal(t, uint64(math.MaxUint64), v)
	_, ok = Add64(math.MaxUint64, 1)
	assert.False(t, ok)

	v, ok = Sub64(5, 5)
	assert.True(t, ok)
	assert.Zero(t, v)
	_, ok = Sub64(0, 1)
	assert.False(t, ok)
}
