package store

// ConstraintKind discriminates the native constraint descriptors a backend
// knows how to apply.
type ConstraintKind int

const (
	KindWhere ConstraintKind = iota
	KindOrderBy
	KindLimit
	KindLimitToLast
	KindStartAt
	KindStartAfter
	KindEndAt
	KindEndBefore
)

// String returns the descriptor kind name, for error messages.
func (k ConstraintKind) String() string {
	switch k {
	case KindWhere:
		return "where"
	case KindOrderBy:
		return "order-by"
	case KindLimit:
		return "limit"
	case KindLimitToLast:
		return "limit-to-last"
	case KindStartAt:
		return "start-at"
	case KindStartAfter:
		return "start-after"
	case KindEndAt:
		return "end-at"
	case KindEndBefore:
		return "end-before"
	default:
		return "unknown"
	}
}

// Constraint is one native query descriptor, produced by the builder layer's
// compilation step and interpreted by a backend. Only the fields relevant to
// Kind are populated:
//
//	KindWhere                Path, Op, Value
//	KindOrderBy              Path, Desc
//	KindLimit/KindLimitToLast N
//	cursor kinds             Anchor (snapshot) or Values (field values)
type Constraint struct {
	Kind  ConstraintKind
	Path  string
	Op    string
	Value interface{}
	Desc  bool
	N     int

	// Anchor, when non-nil, pins a cursor to a previously fetched document.
	Anchor Snapshot

	// Values are explicit cursor field values, one per order-by key.
	Values []interface{}
}
