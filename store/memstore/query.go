package memstore

import (
	"context"
	"fmt"
	"sort"

	"github.com/kartikbazzad/firedoc/store"
)

type runner struct {
	col         *colRef
	constraints []store.Constraint
}

// plan is the runner's working form of a constraint list: filters, ordering,
// cursor bounds and the limit, separated by role. Relative order matters only
// within the order-by keys, which keep their appended sequence.
type plan struct {
	filters []store.Constraint
	orders  []store.Constraint
	limit   int
	hasLim  bool
	toLast  bool
	starts  []store.Constraint
	ends    []store.Constraint
}

func buildPlan(constraints []store.Constraint) (plan, error) {
	var p plan
	for _, c := range constraints {
		switch c.Kind {
		case store.KindWhere:
			p.filters = append(p.filters, c)
		case store.KindOrderBy:
			p.orders = append(p.orders, c)
		case store.KindLimit:
			p.limit, p.hasLim, p.toLast = c.N, true, false
		case store.KindLimitToLast:
			p.limit, p.hasLim, p.toLast = c.N, true, true
		case store.KindStartAt, store.KindStartAfter:
			p.starts = append(p.starts, c)
		case store.KindEndAt, store.KindEndBefore:
			p.ends = append(p.ends, c)
		default:
			return plan{}, fmt.Errorf("memstore: unsupported constraint kind %v", c.Kind)
		}
	}
	return p, nil
}

func (r *runner) Run(_ context.Context) ([]store.Snapshot, error) {
	p, err := buildPlan(r.constraints)
	if err != nil {
		return nil, err
	}

	s := r.col.s
	s.mu.RLock()
	var matched []*snapshot
	if col, ok := s.cols[r.col.path]; ok {
		for _, id := range col.order {
			data := col.docs[id]
			if !matchesAll(data, p.filters) {
				continue
			}
			ref := &docRef{s: s, col: r.col.path, id: id}
			matched = append(matched, &snapshot{ref: ref, data: cloneDoc(data), exists: true})
		}
	}
	s.mu.RUnlock()

	if len(p.orders) > 0 {
		// Documents missing an ordered field drop out, as they do on the
		// remote store.
		kept := matched[:0]
		for _, snap := range matched {
			complete := true
			for _, o := range p.orders {
				if _, ok := getPath(snap.data, o.Path); !ok {
					complete = false
					break
				}
			}
			if complete {
				kept = append(kept, snap)
			}
		}
		matched = kept

		sort.SliceStable(matched, func(i, j int) bool {
			return compareByOrders(matched[i], matched[j], p.orders) < 0
		})
	}

	for _, c := range p.starts {
		matched = applyStart(matched, c, p.orders)
	}
	for _, c := range p.ends {
		matched = applyEnd(matched, c, p.orders)
	}

	if p.hasLim && p.limit < len(matched) {
		if p.toLast {
			matched = matched[len(matched)-p.limit:]
		} else {
			matched = matched[:p.limit]
		}
	}

	out := make([]store.Snapshot, len(matched))
	for i, snap := range matched {
		out[i] = snap
	}
	return out, nil
}

func matchesAll(data map[string]interface{}, filters []store.Constraint) bool {
	for _, f := range filters {
		value, ok := getPath(data, f.Path)
		if !ok {
			// Filters never match documents missing the field, for any
			// operator, matching the remote store.
			return false
		}
		if !matchOp(value, f.Op, f.Value) {
			return false
		}
	}
	return true
}

func matchOp(actual interface{}, op string, expected interface{}) bool {
	switch op {
	case "==":
		return equalValues(actual, expected)
	case "!=":
		return !equalValues(actual, expected)
	case "<":
		return compareValues(actual, expected) < 0
	case "<=":
		return compareValues(actual, expected) <= 0
	case ">":
		return compareValues(actual, expected) > 0
	case ">=":
		return compareValues(actual, expected) >= 0
	case "array-contains":
		items, ok := actual.([]interface{})
		if !ok {
			return false
		}
		for _, item := range items {
			if equalValues(item, expected) {
				return true
			}
		}
		return false
	case "array-contains-any":
		items, ok := actual.([]interface{})
		wants, wok := expected.([]interface{})
		if !ok || !wok {
			return false
		}
		for _, item := range items {
			for _, want := range wants {
				if equalValues(item, want) {
					return true
				}
			}
		}
		return false
	case "in":
		wants, ok := expected.([]interface{})
		if !ok {
			return false
		}
		for _, want := range wants {
			if equalValues(actual, want) {
				return true
			}
		}
		return false
	case "not-in":
		wants, ok := expected.([]interface{})
		if !ok {
			return false
		}
		for _, want := range wants {
			if equalValues(actual, want) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

// compareByOrders orders two result snapshots by the order-by key sequence,
// honoring per-key direction, with the document id as final tiebreaker.
func compareByOrders(a, b *snapshot, orders []store.Constraint) int {
	for _, o := range orders {
		av, _ := getPath(a.data, o.Path)
		bv, _ := getPath(b.data, o.Path)
		cmp := compareValues(av, bv)
		if o.Desc {
			cmp = -cmp
		}
		if cmp != 0 {
			return cmp
		}
	}
	return compareValues(a.ref.id, b.ref.id)
}

// cursorTuple extracts the cursor's comparison values: from the anchor
// snapshot's data at the order-by keys, or the explicit field values.
// The second result is the anchor's document id, for exact positioning.
func cursorTuple(c store.Constraint, orders []store.Constraint) ([]interface{}, string) {
	if c.Anchor != nil {
		values := make([]interface{}, 0, len(orders))
		for _, o := range orders {
			v, _ := getPath(c.Anchor.Data(), o.Path)
			values = append(values, v)
		}
		return values, c.Anchor.ID()
	}
	return c.Values, ""
}

// compareToCursor positions a snapshot against a cursor: negative when the
// snapshot sorts before the boundary, zero at it, positive after it. A
// cursor supplying fewer values than order-by keys compares on that prefix.
func compareToCursor(snap *snapshot, values []interface{}, anchorID string, orders []store.Constraint) int {
	n := len(values)
	if n > len(orders) {
		n = len(orders)
	}
	for i := 0; i < n; i++ {
		docVal, _ := getPath(snap.data, orders[i].Path)
		cmp := compareValues(docVal, values[i])
		if orders[i].Desc {
			cmp = -cmp
		}
		if cmp != 0 {
			return cmp
		}
	}
	if anchorID != "" {
		return compareValues(snap.ref.id, anchorID)
	}
	return 0
}

func applyStart(snaps []*snapshot, c store.Constraint, orders []store.Constraint) []*snapshot {
	values, anchorID := cursorTuple(c, orders)
	out := snaps[:0]
	for _, snap := range snaps {
		cmp := compareToCursor(snap, values, anchorID, orders)
		if cmp > 0 || (cmp == 0 && c.Kind == store.KindStartAt) {
			out = append(out, snap)
		}
	}
	return out
}

func applyEnd(snaps []*snapshot, c store.Constraint, orders []store.Constraint) []*snapshot {
	values, anchorID := cursorTuple(c, orders)
	out := snaps[:0]
	for _, snap := range snaps {
		cmp := compareToCursor(snap, values, anchorID, orders)
		if cmp < 0 || (cmp == 0 && c.Kind == store.KindEndAt) {
			out = append(out, snap)
		}
	}
	return out
}
