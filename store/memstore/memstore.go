// Package memstore is an in-memory store.Store backend. It implements the
// full collaborator contract, including sentinel values, merge writes,
// dot-path updates and query execution, with the semantics of the remote
// store it stands in for. It backs the module's test suite and is usable as
// a lightweight fake in caller tests; it is not a durability layer.
package memstore

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/kartikbazzad/firedoc/store"
)

// Store holds every collection, keyed by full slash-delimited path
// (e.g. "users", "users/u1/posts"). Safe for concurrent use.
type Store struct {
	mu   sync.RWMutex
	cols map[string]*collection
	now  func() time.Time
}

type collection struct {
	docs  map[string]map[string]interface{}
	order []string // document ids in insertion order
}

// New returns an empty store.
func New() *Store {
	return &Store{
		cols: make(map[string]*collection),
		now:  time.Now,
	}
}

// SetClock replaces the time source used for server timestamps. Tests use it
// to get deterministic values.
func (s *Store) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

// Collection implements store.Store.
func (s *Store) Collection(id string) store.CollectionRef {
	return &colRef{s: s, path: id}
}

// Sentinels implements store.Store.
func (s *Store) Sentinels() store.Sentinels {
	return sentinels{}
}

func (s *Store) getOrCreate(path string) *collection {
	col, ok := s.cols[path]
	if !ok {
		col = &collection{docs: make(map[string]map[string]interface{})}
		s.cols[path] = col
	}
	return col
}

// Sentinel markers. Opaque to callers; resolved when a write lands.
type (
	incrementValue       struct{ delta float64 }
	arrayUnionValue      struct{ values []interface{} }
	arrayRemoveValue     struct{ values []interface{} }
	deleteValue          struct{}
	serverTimestampValue struct{}
)

type sentinels struct{}

func (sentinels) Increment(delta float64) interface{} { return incrementValue{delta} }
func (sentinels) ArrayUnion(values ...interface{}) interface{} {
	return arrayUnionValue{values}
}
func (sentinels) ArrayRemove(values ...interface{}) interface{} {
	return arrayRemoveValue{values}
}
func (sentinels) Delete() interface{} { return deleteValue{} }
func (sentinels) ServerTimestamp() interface{} { return serverTimestampValue{} }

type colRef struct {
	s    *Store
	path string
}

func (c *colRef) ID() string {
	segments := strings.Split(c.path, "/")
	return segments[len(segments)-1]
}

func (c *colRef) Doc(id string) store.DocumentRef {
	return &docRef{s: c.s, col: c.path, id: id}
}

func (c *colRef) Add(ctx context.Context, data map[string]interface{}) (store.DocumentRef, error) {
	doc := c.Doc(uuid.NewString())
	if err := doc.Set(ctx, data, store.SetOptions{}); err != nil {
		return nil, err
	}
	return doc, nil
}

func (c *colRef) Query(constraints []store.Constraint) store.Runner {
	return &runner{col: c, constraints: constraints}
}

type docRef struct {
	s   *Store
	col string
	id  string
}

func (d *docRef) ID() string { return d.id }
func (d *docRef) Path() string { return d.col + "/" + d.id }

func (d *docRef) Collection(id string) store.CollectionRef {
	return &colRef{s: d.s, path: d.Path() + "/" + id}
}

func (d *docRef) Set(_ context.Context, data map[string]interface{}, opts store.SetOptions) error {
	d.s.mu.Lock()
	defer d.s.mu.Unlock()

	col := d.s.getOrCreate(d.col)
	existing, existed := col.docs[d.id]

	var next map[string]interface{}
	switch {
	case opts.MergeAll:
		next = cloneDoc(existing)
		d.s.mergeInto(next, data)
	case len(opts.MergeFields) > 0:
		next = cloneDoc(existing)
		for _, path := range opts.MergeFields {
			value, ok := getPath(data, path)
			if !ok {
				continue
			}
			d.s.applyPath(next, path, value)
		}
	default:
		next = make(map[string]interface{}, len(data))
		d.s.mergeInto(next, data)
	}

	if !existed {
		col.order = append(col.order, d.id)
	}
	col.docs[d.id] = next
	return nil
}

func (d *docRef) Update(_ context.Context, fields map[string]interface{}) error {
	d.s.mu.Lock()
	defer d.s.mu.Unlock()

	col, ok := d.s.cols[d.col]
	if ok {
		_, ok = col.docs[d.id]
	}
	if !ok {
		return status.Errorf(codes.NotFound, "no document to update: %s", d.Path())
	}

	next := cloneDoc(col.docs[d.id])
	for path, value := range fields {
		d.s.applyPath(next, path, value)
	}
	col.docs[d.id] = next
	return nil
}

func (d *docRef) Delete(_ context.Context) error {
	d.s.mu.Lock()
	defer d.s.mu.Unlock()

	col, ok := d.s.cols[d.col]
	if !ok {
		return nil
	}
	if _, ok := col.docs[d.id]; !ok {
		return nil
	}
	delete(col.docs, d.id)
	for i, id := range col.order {
		if id == d.id {
			col.order = append(col.order[:i], col.order[i+1:]...)
			break
		}
	}
	return nil
}

func (d *docRef) Get(_ context.Context) (store.Snapshot, error) {
	d.s.mu.RLock()
	defer d.s.mu.RUnlock()

	if col, ok := d.s.cols[d.col]; ok {
		if data, ok := col.docs[d.id]; ok {
			return &snapshot{ref: d, data: cloneDoc(data), exists: true}, nil
		}
	}
	return &snapshot{ref: d}, nil
}

type snapshot struct {
	ref    *docRef
	data   map[string]interface{}
	exists bool
}

func (s *snapshot) ID() string { return s.ref.id }
func (s *snapshot) Exists() bool { return s.exists }
func (s *snapshot) Data() map[string]interface{} { return s.data }
func (s *snapshot) Ref() store.DocumentRef { return s.ref }

// mergeInto merges src into dst, resolving sentinel markers against dst's
// current values. Nested maps merge recursively; everything else replaces.
// Callers pass a dst they own (already cloned), so mutation in place is safe.
func (s *Store) mergeInto(dst, src map[string]interface{}) {
	for key, value := range src {
		s.writeValue(dst, key, value)
	}
}

func (s *Store) writeValue(dst map[string]interface{}, key string, value interface{}) {
	switch v := value.(type) {
	case deleteValue:
		delete(dst, key)
	case serverTimestampValue:
		dst[key] = s.now().UTC()
	case incrementValue:
		base, _ := toFloat(dst[key])
		dst[key] = base + v.delta
	case arrayUnionValue:
		dst[key] = arrayUnion(dst[key], v.values)
	case arrayRemoveValue:
		dst[key] = arrayRemove(dst[key], v.values)
	case map[string]interface{}:
		sub, ok := dst[key].(map[string]interface{})
		if !ok {
			sub = make(map[string]interface{}, len(v))
		}
		s.mergeInto(sub, v)
		dst[key] = sub
	case []interface{}:
		dst[key] = cloneValue(v)
	default:
		dst[key] = v
	}
}

// applyPath writes a value at a dot-delimited path, creating intermediate
// maps as needed. A delete sentinel navigates without creating: removing a
// field that is not there must leave no trace.
func (s *Store) applyPath(doc map[string]interface{}, path string, value interface{}) {
	keys := strings.Split(path, ".")
	if _, isDelete := value.(deleteValue); isDelete {
		deletePath(doc, keys)
		return
	}

	current := doc
	for _, key := range keys[:len(keys)-1] {
		next, ok := current[key].(map[string]interface{})
		if !ok {
			// Traversing into a non-map overwrites it, matching the
			// remote store's nested-update behavior.
			next = make(map[string]interface{})
			current[key] = next
		}
		current = next
	}
	s.writeValue(current, keys[len(keys)-1], value)
}

func deletePath(doc map[string]interface{}, keys []string) {
	current := doc
	for _, key := range keys[:len(keys)-1] {
		next, ok := current[key].(map[string]interface{})
		if !ok {
			return
		}
		current = next
	}
	delete(current, keys[len(keys)-1])
}

func arrayUnion(existing interface{}, values []interface{}) []interface{} {
	out, _ := existing.([]interface{})
	out = append([]interface{}{}, out...)
	for _, v := range values {
		present := false
		for _, have := range out {
			if equalValues(have, v) {
				present = true
				break
			}
		}
		if !present {
			out = append(out, v)
		}
	}
	return out
}

func arrayRemove(existing interface{}, values []interface{}) []interface{} {
	have, _ := existing.([]interface{})
	out := make([]interface{}, 0, len(have))
	for _, item := range have {
		removed := false
		for _, v := range values {
			if equalValues(item, v) {
				removed = true
				break
			}
		}
		if !removed {
			out = append(out, item)
		}
	}
	return out
}
