package trie

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/ChainSafe/gossamer/pkg/scale"

	"github.com/eigerco/statetrie/internal/crypto"
)

// NodeValue is the value held by a leaf or a branch.
type NodeValue struct {
	Data []byte
	// Hashed is set when Data is the digest of a value of Size bytes that is
	// not available, as found in proofs.
	Hashed bool
	Size   int
}

// ChildReference points from a branch to a child: by digest, or by the
// child encoding itself when it is shorter than a digest.
type ChildReference struct {
	Hash     crypto.Hash
	Inline   []byte
	IsInline bool
}

func HashReference(h crypto.Hash) *ChildReference {
	return &ChildReference{Hash: h}
}

func InlineReference(encoded []byte) *ChildReference {
	return &ChildReference{Inline: encoded, IsInline: true}
}

// NodeKind is the variant of an encoded node.
type NodeKind uint8

const (
	EmptyNode NodeKind = iota
	LeafNode
	BranchNode
)

// ChildPlan locates a child reference in a branch encoding.
type ChildPlan struct {
	Range  Range
	Inline bool
}

// NodePlan describes where each part of a node lives in its encoding,
// without copying anything out of it.
type NodePlan struct {
	Kind        NodeKind
	Partial     Range
	PartialLen  int
	Value       ValuePlan
	Children    [ChildrenCapacity]*ChildPlan
	HeaderStart int
}

// PartialNibbles returns the partial key of the node.
func (p NodePlan) PartialNibbles(data []byte) []byte {
	return decodePartial(data[p.Partial.Start:p.Partial.End], p.PartialLen)
}

// ValueOf copies the node value out of data. The second result is false
// when the node has no value.
func (p NodePlan) ValueOf(data []byte) (NodeValue, bool) {
	switch p.Value.Kind {
	case InlineValue:
		return NodeValue{Data: bytes.Clone(data[p.Value.Range.Start:p.Value.Range.End])}, true
	case HashedValue:
		return NodeValue{
			Data:   bytes.Clone(data[p.Value.Range.Start:p.Value.Range.End]),
			Hashed: true,
			Size:   p.Value.Size,
		}, true
	}
	return NodeValue{}, false
}

// ChildOf returns the reference to child i, nil if there is none.
func (p NodePlan) ChildOf(data []byte, i int) *ChildReference {
	c := p.Children[i]
	if c == nil {
		return nil
	}
	b := data[c.Range.Start:c.Range.End]
	if c.Inline {
		return InlineReference(bytes.Clone(b))
	}
	var h crypto.Hash
	copy(h[:], b)
	return HashReference(h)
}

// EncodeEmpty returns the encoding of the empty node.
func EncodeEmpty() []byte {
	return []byte{EmptyTrieHeader}
}

// EmptyRoot is the digest of the empty node.
func EmptyRoot() crypto.Hash {
	return crypto.HashData(EncodeEmpty())
}

// EncodeLeaf encodes a leaf. When meta is not nil the policy marker is
// emitted and meta learns where the value was placed.
func EncodeLeaf(partial []byte, value NodeValue, meta *Meta) []byte {
	out := policyMarker(meta)
	out = appendHeader(out, LeafPrefixMask, len(partial))
	out = append(out, encodePartial(partial)...)
	out, plan := appendValue(out, value)
	if meta != nil {
		meta.OnValueEncoded(plan)
	}
	return out
}

// EncodeBranch encodes a branch with the given children and optional value.
func EncodeBranch(partial []byte, children [ChildrenCapacity]*ChildReference, value *NodeValue, meta *Meta) []byte {
	out := policyMarker(meta)
	mask := BranchWithoutMask
	if value != nil {
		mask = BranchWithMask
	}
	out = appendHeader(out, mask, len(partial))
	out = append(out, encodePartial(partial)...)

	var bitmap uint16
	for i, c := range children {
		if c != nil {
			bitmap |= 1 << i
		}
	}
	out = binary.LittleEndian.AppendUint16(out, bitmap)

	plan := ValuePlan{Kind: NoValue}
	if value != nil {
		out, plan = appendValue(out, *value)
	}
	for _, c := range children {
		if c == nil {
			continue
		}
		if c.IsInline {
			out = appendBytes(out, c.Inline)
		} else {
			out = appendBytes(out, c.Hash[:])
		}
	}
	if meta != nil {
		meta.OnValueEncoded(plan)
	}
	return out
}

// DecodePlan parses an encoded node. A leading policy marker is consumed
// into meta, and meta.ContainsHash decides whether the value is read as a
// digest. Meta is then updated through OnNodeDecoded.
func DecodePlan(data []byte, meta *Meta) (NodePlan, error) {
	if meta == nil {
		meta = &Meta{}
	}
	off := meta.ReadPolicyMarker(data)
	plan := NodePlan{HeaderStart: off}
	if off >= len(data) {
		return plan, ErrUnexpectedEOF
	}

	first := data[off]
	off++
	var hasValue bool
	switch first & headerTypeMask {
	case EmptyTrieHeader:
		if first != EmptyTrieHeader {
			return plan, fmt.Errorf("%w: %#x", ErrInvalidHeader, first)
		}
		if off != len(data) {
			return plan, ErrTrailingData
		}
		plan.Kind = EmptyNode
		meta.OnNodeDecoded(plan)
		return plan, nil
	case LeafPrefixMask:
		plan.Kind = LeafNode
		hasValue = true
	case BranchWithoutMask:
		plan.Kind = BranchNode
	case BranchWithMask:
		plan.Kind = BranchNode
		hasValue = true
	}

	count := int(first & headerSizeMask)
	if count == headerSizeLimit {
		for {
			if off >= len(data) {
				return plan, ErrUnexpectedEOF
			}
			n := data[off]
			off++
			count += int(n)
			if n < 255 {
				break
			}
			if count > NibbleSizeBound {
				count = NibbleSizeBound
				break
			}
		}
	}

	partialBytes := (count + 1) / 2
	if off+partialBytes > len(data) {
		return plan, ErrUnexpectedEOF
	}
	if count%2 == 1 && data[off]&0xf0 != 0 {
		return plan, ErrBadPartialPadding
	}
	plan.Partial = Range{Start: off, End: off + partialBytes}
	plan.PartialLen = count
	off += partialBytes

	var bitmap uint16
	if plan.Kind == BranchNode {
		if off+2 > len(data) {
			return plan, ErrUnexpectedEOF
		}
		bitmap = binary.LittleEndian.Uint16(data[off:])
		if bitmap == 0 {
			return plan, ErrInvalidChildBitmap
		}
		off += 2
	}

	plan.Value = ValuePlan{Kind: NoValue}
	if hasValue {
		size, next, err := decodeCompactLength(data, off)
		if err != nil {
			return plan, err
		}
		if meta.ContainsHash {
			if next+crypto.HashSize > len(data) {
				return plan, ErrUnexpectedEOF
			}
			plan.Value = ValuePlan{Kind: HashedValue, Range: Range{Start: next, End: next + crypto.HashSize}, Size: size}
			off = next + crypto.HashSize
		} else {
			if next+size > len(data) {
				return plan, ErrUnexpectedEOF
			}
			plan.Value = ValuePlan{Kind: InlineValue, Range: Range{Start: next, End: next + size}}
			off = next + size
		}
	}

	if plan.Kind == BranchNode {
		for i := 0; i < ChildrenCapacity; i++ {
			if bitmap&(1<<i) == 0 {
				continue
			}
			size, next, err := decodeCompactLength(data, off)
			if err != nil {
				return plan, err
			}
			if size > crypto.HashSize || next+size > len(data) {
				return plan, fmt.Errorf("%w: child %d of length %d", ErrInvalidChildReference, i, size)
			}
			plan.Children[i] = &ChildPlan{
				Range:  Range{Start: next, End: next + size},
				Inline: size != crypto.HashSize,
			}
			off = next + size
		}
	}

	if off != len(data) {
		return plan, ErrTrailingData
	}
	meta.OnNodeDecoded(plan)
	return plan, nil
}

func policyMarker(meta *Meta) []byte {
	if meta == nil {
		return []byte{}
	}
	return meta.EmitPolicyMarker()
}

func appendHeader(out []byte, mask byte, nibbleCount int) []byte {
	size := min(nibbleCount, NibbleSizeBound)
	if size < headerSizeLimit {
		return append(out, mask|byte(size))
	}
	out = append(out, mask|headerSizeLimit)
	rem := size - headerSizeLimit
	for rem >= 255 {
		out = append(out, 255)
		rem -= 255
	}
	return append(out, byte(rem))
}

func appendValue(out []byte, v NodeValue) ([]byte, ValuePlan) {
	if v.Hashed {
		out = append(out, compactLength(v.Size)...)
		start := len(out)
		out = append(out, v.Data...)
		return out, ValuePlan{Kind: HashedValue, Range: Range{Start: start, End: len(out)}, Size: v.Size}
	}
	out = appendBytes(out, v.Data)
	return out, ValuePlan{Kind: InlineValue, Range: Range{Start: len(out) - len(v.Data), End: len(out)}}
}

// appendBytes appends b as a SCALE byte sequence.
func appendBytes(out, b []byte) []byte {
	enc, err := scale.Marshal(b)
	if err != nil {
		panic(fmt.Sprintf("scale encoding of a byte slice failed: %v", err))
	}
	return append(out, enc...)
}

func compactLength(n int) []byte {
	enc, err := scale.Marshal(uint(n))
	if err != nil {
		panic(fmt.Sprintf("scale encoding of compact %d failed: %v", n, err))
	}
	return enc
}

// decodeCompactLength reads a compact integer at off and returns it with the
// offset right after it. Non canonical encodings are rejected.
func decodeCompactLength(data []byte, off int) (int, int, error) {
	if off >= len(data) {
		return 0, 0, ErrUnexpectedEOF
	}
	var n uint
	if err := scale.Unmarshal(data[off:], &n); err != nil {
		return 0, 0, fmt.Errorf("%w: %w", ErrInvalidCompact, err)
	}
	enc := compactLength(int(n))
	if !bytes.HasPrefix(data[off:], enc) {
		return 0, 0, ErrInvalidCompact
	}
	return int(n), off + len(enc), nil
}
