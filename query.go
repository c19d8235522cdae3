package firedoc

import (
	"context"
	"fmt"

	"github.com/kartikbazzad/firedoc/store"
)

// Query accumulates an ordered sequence of constraints over a collection.
// It has value semantics: every chain method returns a new Query whose
// constraint slice is a fresh copy, so two builders never alias mutable
// storage and a Query may be handed to multiple goroutines freely.
//
// The builder performs no validation of redundant or conflicting
// constraints; the remote store rejects those at execution time and the
// error propagates unchanged.
type Query struct {
	col         store.CollectionRef
	constraints []Constraint
}

// Where appends a filter constraint.
func (q Query) Where(path string, op Operator, value interface{}) Query {
	return q.with(Filter{Path: path, Op: op, Value: value})
}

// OrderBy appends an ordering constraint.
func (q Query) OrderBy(path string, dir Direction) Query {
	return q.with(Order{Path: path, Dir: dir})
}

// Limit appends a first-N limit constraint.
func (q Query) Limit(n int) Query {
	return q.with(Limit{N: n})
}

// LimitToLast appends a last-N limit constraint.
func (q Query) LimitToLast(n int) Query {
	return q.with(Limit{N: n, ToLast: true})
}

// StartAt appends an inclusive start boundary. The first value may be a
// store.Snapshot from a prior fetch; otherwise values are matched
// positionally against the query's order-by keys.
func (q Query) StartAt(values ...interface{}) Query {
	return q.with(Cursor{Kind: StartAt, Values: values})
}

// StartAfter appends an exclusive start boundary.
func (q Query) StartAfter(values ...interface{}) Query {
	return q.with(Cursor{Kind: StartAfter, Values: values})
}

// EndAt appends an inclusive end boundary.
func (q Query) EndAt(values ...interface{}) Query {
	return q.with(Cursor{Kind: EndAt, Values: values})
}

// EndBefore appends an exclusive end boundary.
func (q Query) EndBefore(values ...interface{}) Query {
	return q.with(Cursor{Kind: EndBefore, Values: values})
}

// with returns a new Query with c appended. The constraint slice is copied
// in full so the receiver's backing array is never shared.
func (q Query) with(c Constraint) Query {
	next := make([]Constraint, len(q.constraints)+1)
	copy(next, q.constraints)
	next[len(next)-1] = c
	q.constraints = next
	return q
}

// Compile translates the accumulated constraints, in the exact order they
// were appended, into the store's native descriptors. The variant set is
// closed; an unrecognized variant is a configuration error.
func (q Query) Compile() ([]store.Constraint, error) {
	out := make([]store.Constraint, 0, len(q.constraints))
	for _, c := range q.constraints {
		switch c := c.(type) {
		case Filter:
			out = append(out, store.Constraint{
				Kind:  store.KindWhere,
				Path:  c.Path,
				Op:    string(c.Op),
				Value: c.Value,
			})
		case Order:
			out = append(out, store.Constraint{
				Kind: store.KindOrderBy,
				Path: c.Path,
				Desc: c.Dir == Descending,
			})
		case Limit:
			kind := store.KindLimit
			if c.ToLast {
				kind = store.KindLimitToLast
			}
			out = append(out, store.Constraint{Kind: kind, N: c.N})
		case Cursor:
			out = append(out, compileCursor(c))
		default:
			return nil, fmt.Errorf("%w: %T", ErrUnknownConstraint, c)
		}
	}
	return out, nil
}

func compileCursor(c Cursor) store.Constraint {
	var kind store.ConstraintKind
	switch c.Kind {
	case StartAfter:
		kind = store.KindStartAfter
	case EndAt:
		kind = store.KindEndAt
	case EndBefore:
		kind = store.KindEndBefore
	default:
		kind = store.KindStartAt
	}

	// A snapshot anchor covers every order-by key by itself; explicit
	// values travel as-is.
	if len(c.Values) > 0 {
		if snap, ok := c.Values[0].(store.Snapshot); ok {
			return store.Constraint{Kind: kind, Anchor: snap, Values: c.Values[1:]}
		}
	}
	return store.Constraint{Kind: kind, Values: c.Values}
}

// Fetch compiles the query and executes one read, returning the store's
// result set in store order. Every call recompiles and reissues the read;
// nothing is cached.
func (q Query) Fetch(ctx context.Context) ([]store.Snapshot, error) {
	compiled, err := q.Compile()
	if err != nil {
		return nil, err
	}
	return q.col.Query(compiled).Run(ctx)
}

// FetchAll is Fetch projected to data payloads, discarding existence
// metadata. It returns an empty slice, never an error, when no documents
// match.
func (q Query) FetchAll(ctx context.Context) ([]map[string]interface{}, error) {
	snaps, err := q.Fetch(ctx)
	if err != nil {
		return nil, err
	}
	docs := make([]map[string]interface{}, 0, len(snaps))
	for _, snap := range snaps {
		if !snap.Exists() {
			continue
		}
		docs = append(docs, snap.Data())
	}
	return docs, nil
}
