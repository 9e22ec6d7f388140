package operator

import "github.com/nexusdb/nexus/pkg/types"

// BindingKind tags what a Tuple slot currently holds.
type BindingKind uint8

const (
	BindNull BindingKind = iota
	BindNode
	BindRel
	BindValue
)

// Binding is one variable's current value in a Tuple: a bound node/
// relationship id (patterns bind entities, not copies of their
// properties) or a plain Value (projections, aggregates, UNWIND).
type Binding struct {
	Kind BindingKind
	Node types.NodeID
	Rel  types.RelID
	Val  types.Value
}

func NodeBinding(id types.NodeID) Binding { return Binding{Kind: BindNode, Node: id} }
func RelBinding(id types.RelID) Binding    { return Binding{Kind: BindRel, Rel: id} }
func ValueBinding(v types.Value) Binding   { return Binding{Kind: BindValue, Val: v} }

var NullBinding = Binding{Kind: BindNull}

// Tuple is one row moving through the operator pipeline, addressed by
// slot index. The slot->variable-name mapping lives in the enclosing
// plan's Scope, not in the Tuple itself.
type Tuple []Binding

func (t Tuple) Clone() Tuple {
	out := make(Tuple, len(t))
	copy(out, t)
	return out
}

// Scope maps variable names to Tuple slot indices, built once by the
// planner when it compiles a pattern.
type Scope struct {
	slots map[string]int
	width int
}

func NewScope() *Scope { return &Scope{slots: map[string]int{}} }

// Bind reserves a slot for name if it doesn't have one yet and returns
// its index.
func (s *Scope) Bind(name string) int {
	if idx, ok := s.slots[name]; ok {
		return idx
	}
	idx := s.width
	s.slots[name] = idx
	s.width++
	return idx
}

func (s *Scope) Lookup(name string) (int, bool) {
	idx, ok := s.slots[name]
	return idx, ok
}

func (s *Scope) Width() int { return s.width }
