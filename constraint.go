package firedoc

// Operator is a filter comparison operator. The values are the store's
// native operator strings, so translation is a straight cast.
type Operator string

const (
	OpEqual            Operator = "=="
	OpNotEqual         Operator = "!="
	OpLess             Operator = "<"
	OpLessOrEqual      Operator = "<="
	OpGreater          Operator = ">"
	OpGreaterOrEqual   Operator = ">="
	OpArrayContains    Operator = "array-contains"
	OpArrayContainsAny Operator = "array-contains-any"
	OpIn               Operator = "in"
	OpNotIn            Operator = "not-in"
)

// Direction orders query results on a field.
type Direction int

const (
	Ascending Direction = iota
	Descending
)

// CursorKind discriminates the four pagination boundaries.
type CursorKind int

const (
	StartAt CursorKind = iota
	StartAfter
	EndAt
	EndBefore
)

// Constraint is one declarative query restriction. It is pure data; the
// closed variant set below is translated to native descriptors during
// compilation.
type Constraint interface {
	isConstraint()
}

// Filter restricts results to documents whose field at Path satisfies
// Op against Value.
type Filter struct {
	Path  string
	Op    Operator
	Value interface{}
}

// Order sorts results by the field at Path.
type Order struct {
	Path string
	Dir  Direction
}

// Limit caps the result count. ToLast selects the last N results of the
// ordered set instead of the first N.
type Limit struct {
	N      int
	ToLast bool
}

// Cursor anchors a pagination boundary. The first value may be a previously
// fetched store.Snapshot; otherwise the values are field values matched
// positionally against the query's order-by keys.
type Cursor struct {
	Kind   CursorKind
	Values []interface{}
}

func (Filter) isConstraint() {}
func (Order) isConstraint()  {}
func (Limit) isConstraint()  {}
func (Cursor) isConstraint() {}
