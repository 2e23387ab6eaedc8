package trie

// Range is a half-open byte range [Start, End) into an encoded node.
type Range struct {
	Start int
	End   int
}

// Len returns the number of bytes covered by the range.
func (r Range) Len() int {
	return r.End - r.Start
}

// ValuePlanKind tells how a node value is laid out in its encoding.
type ValuePlanKind uint8

const (
	NoValue ValuePlanKind = iota
	// InlineValue is a plain value at Range.
	InlineValue
	// HashedValue is a digest at Range standing in for a value of Size bytes.
	HashedValue
)

// ValuePlan locates the value of a node in the node encoding.
type ValuePlan struct {
	Kind  ValuePlanKind
	Range Range
	Size  int
}

// Meta records how the value of a node is represented while the node is
// encoded or decoded. It is never persisted directly, only through the
// marker bytes it makes the codec and the value hasher emit.
type Meta struct {
	// Range of the value, or of the value digest, in the node encoding.
	Range *Range
	// RecordsHashPolicy is set when the node persists the policy marker.
	RecordsHashPolicy bool
	// ContainsHash is set when Range addresses a digest instead of the value.
	ContainsHash bool
	// HashPolicyActive enables inner hashing. Children inherit it.
	HashPolicyActive bool
	// UnusedValue marks a value that was not read, see SetAccessedValue.
	UnusedValue bool
	// LegacyHash is set for nodes stored without inner hashing. The next
	// write with HashPolicyActive clears it.
	LegacyHash bool
}

// ForNewNode returns the meta of a freshly created node below parent.
func ForNewNode(parent *Meta) Meta {
	var m Meta
	if parent != nil {
		m.HashPolicyActive = parent.HashPolicyActive
	}
	return m
}

// ForExistingInlineNode returns the meta of an inline node below parent.
func ForExistingInlineNode(parent *Meta) Meta {
	return ForNewNode(parent)
}

// ForEmpty returns the meta of the empty node.
func ForEmpty() Meta {
	return Meta{}
}

// SetStateMeta records the inner hashing policy in the node and enables it.
func (m *Meta) SetStateMeta(active bool) {
	m.RecordsHashPolicy = active
	m.HashPolicyActive = active
}

func (m Meta) HasStateMeta() bool {
	return m.RecordsHashPolicy
}

// ReadPolicyMarker consumes the policy marker at the start of data, if any,
// and returns the number of bytes consumed. Any other leading byte is left
// for the caller.
func (m *Meta) ReadPolicyMarker(data []byte) int {
	if len(data) == 0 || data[0] != PolicyActiveMarker {
		return 0
	}
	m.RecordsHashPolicy = true
	m.HashPolicyActive = true
	return 1
}

// EmitPolicyMarker is the inverse of ReadPolicyMarker.
func (m Meta) EmitPolicyMarker() []byte {
	if m.RecordsHashPolicy {
		return []byte{PolicyActiveMarker}
	}
	return []byte{}
}

// OnValueEncoded is called by the encoder once the value position is known.
func (m *Meta) OnValueEncoded(plan ValuePlan) {
	if !m.setValuePlan(plan) {
		return
	}
	if m.HashPolicyActive {
		m.LegacyHash = false
	}
}

// OnNodeDecoded is called by the decoder with the plan of the decoded node.
func (m *Meta) OnNodeDecoded(plan NodePlan) {
	m.setValuePlan(plan.Value)
}

func (m *Meta) setValuePlan(plan ValuePlan) bool {
	switch plan.Kind {
	case InlineValue:
		m.ContainsHash = false
	case HashedValue:
		m.ContainsHash = true
	default:
		return false
	}
	r := plan.Range
	m.Range = &r
	return true
}

// RangeLen returns the length of the value range, 0 when unknown.
func (m Meta) RangeLen() int {
	if m.Range == nil {
		return 0
	}
	return m.Range.Len()
}

// AccessedValue reports whether the value was read.
func (m Meta) AccessedValue() bool {
	return !m.UnusedValue
}

// SetAccessedValue flags the value as read or unread. Proof recording uses
// it to leave out values nobody looked at.
func (m *Meta) SetAccessedValue(accessed bool) {
	m.UnusedValue = !accessed
}
