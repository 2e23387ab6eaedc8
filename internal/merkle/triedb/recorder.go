package triedb

import (
	"bytes"

	"github.com/eigerco/statetrie/internal/crypto"
)

// Query is notified of every node a lookup fetches by digest and turns the
// value found into the returned item.
type Query interface {
	Record(hash crypto.Hash, data []byte, depth int)
	Decode(value []byte) []byte
}

type valueQuery struct{}

func (valueQuery) Record(crypto.Hash, []byte, int) {}

func (valueQuery) Decode(value []byte) []byte {
	return value
}

// Record is a node seen by a Recorder.
type Record struct {
	Depth int
	Data  []byte
	Hash  crypto.Hash
}

// Recorder is a Query keeping the nodes at or below a minimum depth.
type Recorder struct {
	nodes    []Record
	minDepth int
}

var _ Query = (*Recorder)(nil)

func NewRecorder() *Recorder {
	return &Recorder{}
}

// NewRecorderWithDepth records only nodes at depth minDepth or deeper.
func NewRecorderWithDepth(minDepth int) *Recorder {
	return &Recorder{minDepth: minDepth}
}

func (r *Recorder) Record(hash crypto.Hash, data []byte, depth int) {
	if depth < r.minDepth {
		return
	}
	r.nodes = append(r.nodes, Record{Depth: depth, Data: bytes.Clone(data), Hash: hash})
}

func (r *Recorder) Decode(value []byte) []byte {
	return bytes.Clone(value)
}

// Drain returns the recorded nodes and resets the recorder.
func (r *Recorder) Drain() []Record {
	nodes := r.nodes
	r.nodes = nil
	return nodes
}

// Len returns the number of recorded nodes.
func (r *Recorder) Len() int {
	return len(r.nodes)
}
