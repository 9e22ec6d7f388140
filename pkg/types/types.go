package types

import "time"

// NodeID identifies a node record by its slot index in the Record Store.
type NodeID uint64

// RelID identifies a relationship record by its slot index in the Record Store.
type RelID uint64

// NilID marks an absent chain pointer (sentinel): no node or relationship
// ever occupies slot 0, since slot 0 of each array is reserved as the
// free-list/sentinel slot.
const NilID = 0

// LabelID, TypeID and KeyID are catalog-interned identifiers. 0 is reserved
// to mean "unset"; real ids start at 1 and are dense and monotonic.
type LabelID uint32
type TypeID uint32
type KeyID uint32

// UnsetID is the catalog's reserved zero value.
const UnsetID = 0

// ValueKind tags the variant held by a Value. It is stored as a single byte
// in both the in-memory Value and the on-disk property encoding, so it is a
// fixed-width type rather than the string-enum style used for the more
// descriptive enums below.
type ValueKind uint8

const (
	KindNull ValueKind = iota
	KindBool
	KindInt64
	KindFloat64
	KindString
	KindList
	KindMap
	KindPoint
	KindTemporal
	KindBytes
)

// TemporalKind distinguishes the four temporal shapes a Value can hold.
type TemporalKind uint8

const (
	TemporalDate TemporalKind = iota
	TemporalTime
	TemporalDateTime
	TemporalDuration
)

// Point is a 2D or 3D coordinate tagged with a coordinate reference system
// name (e.g. "cartesian", "wgs-84").
type Point struct {
	X, Y, Z float64
	Is3D    bool
	CRS     string
}

// Temporal holds one of date, time, datetime or duration. Only the fields
// relevant to Kind are meaningful.
type Temporal struct {
	Kind     TemporalKind
	At       time.Time
	Duration time.Duration
}

// Value is Nexus's dynamic property/expression value: a tagged union, not
// an interface — promotions (i64 -> f64) and comparisons are explicit,
// defined centrally in pkg/operator rather than left to per-type methods.
type Value struct {
	Kind ValueKind

	Bool    bool
	Int64   int64
	Float64 float64
	Str     string
	List    []Value
	Map     map[string]Value
	Pt      Point
	Temp    Temporal
	Bytes   []byte
}

// Null is the canonical null Value.
var Null = Value{Kind: KindNull}

// IsNull reports whether v holds the null variant.
func (v Value) IsNull() bool { return v.Kind == KindNull }

func BoolValue(b bool) Value       { return Value{Kind: KindBool, Bool: b} }
func IntValue(i int64) Value       { return Value{Kind: KindInt64, Int64: i} }
func FloatValue(f float64) Value   { return Value{Kind: KindFloat64, Float64: f} }
func StringValue(s string) Value   { return Value{Kind: KindString, Str: s} }
func ListValue(v []Value) Value    { return Value{Kind: KindList, List: v} }
func MapValue(m map[string]Value) Value { return Value{Kind: KindMap, Map: m} }
func BytesValue(b []byte) Value    { return Value{Kind: KindBytes, Bytes: b} }

// Row is an ordered tuple of Values produced by the operator pipeline. Slots
// are addressed by index; the Schema alongside a ResultSet carries the
// column names.
type Row []Value

// Schema names the columns of a stream of Rows, in order.
type Schema []string

// Node is the in-memory view of a live node record: identity, labels, the
// property map keyed by interned key id, and the two edge-chain heads.
type Node struct {
	ID         NodeID
	Labels     []LabelID
	Properties map[KeyID]Value
	OutHead    RelID // first relationship in this node's outgoing chain
	InHead     RelID // first relationship in this node's incoming chain
}

// Relationship is the in-memory view of a live relationship record.
type Relationship struct {
	ID         RelID
	Type       TypeID
	Source     NodeID
	Target     NodeID
	Properties map[KeyID]Value

	// Intrusive doubly-linked list pointers, two chains per relationship:
	// one for the source's outgoing chain, one for the target's incoming
	// chain.
	NextOutSrc RelID
	PrevOutSrc RelID
	NextInDst  RelID
	PrevInDst  RelID
}

// Direction selects which edge chain to walk from a node.
type Direction uint8

const (
	DirOutgoing Direction = iota
	DirIncoming
	DirBoth
)

// TxStatus is the lifecycle state of a Transaction.
type TxStatus string

const (
	TxActive    TxStatus = "active"
	TxCommitted TxStatus = "committed"
	TxAborted   TxStatus = "aborted"
)

// TxID identifies a Transaction for the lifetime of the process.
type TxID uint64

// StagedNode is a create or update staged against the Record Store, not yet
// applied.
type StagedNode struct {
	ID         NodeID // NilID for a staged create until allocation
	Labels     []LabelID
	Properties map[KeyID]Value
	Deleted    bool
}

// StagedRel is a create, update or delete staged against the Record Store.
type StagedRel struct {
	ID         RelID
	Type       TypeID
	Source     NodeID
	Target     NodeID
	Properties map[KeyID]Value
	Deleted    bool
}

// Transaction tracks one writer's staged work between begin and commit.
type Transaction struct {
	ID            TxID
	Status        TxStatus
	BeginLSN      uint64 // store/apply LSN visible at begin, for snapshot reads
	StagedNodes   map[NodeID]*StagedNode
	NewNodes      []*StagedNode
	StagedRels    map[RelID]*StagedRel
	NewRels       []*StagedRel
	CatalogAdds   []CatalogAdd
}

// CatalogAdd is one catalog interning event: the Catalog's JournalFunc
// appends it to the WAL as an OpCatalogAdd entry before the new id is
// handed out. The Transaction Manager does not fill Transaction.CatalogAdds.
type CatalogAdd struct {
	Namespace CatalogNamespace
	Name      string
	ID        uint32
}

// CatalogNamespace distinguishes the three disjoint interning namespaces.
type CatalogNamespace uint8

const (
	NamespaceLabel CatalogNamespace = iota
	NamespaceType
	NamespaceKey
)

// WALOpTag identifies the kind of operation a WALEntry payload encodes.
type WALOpTag uint8

const (
	OpCreateNode WALOpTag = iota + 1
	OpSetProperty
	OpCreateRel
	OpDeleteNode
	OpDeleteRel
	OpCatalogAdd
	OpCommit
)

// WALEntry is one framed record in the write-ahead log: a monotonically
// increasing LSN, an operation tag, a payload, and a CRC32 computed over
// the frame's entry_type, lsn, length and payload fields (see pkg/wal for
// the on-disk framing).
type WALEntry struct {
	LSN     uint64
	Op      WALOpTag
	Payload []byte
	CRC     uint32
}
