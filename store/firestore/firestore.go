// Package firestore adapts a Cloud Firestore client to the store.Store
// contract. The adapter is a thin translation layer: it adds no retry,
// batching or timeout of its own, and store errors pass through untouched.
package firestore

import (
	"context"
	"fmt"
	"strings"

	fs "cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/kartikbazzad/firedoc/store"
)

// Store wraps a *firestore.Client. The caller owns the client's lifecycle.
type Store struct {
	client *fs.Client
}

// Wrap adapts an existing Firestore client.
func Wrap(client *fs.Client) *Store {
	return &Store{client: client}
}

// Collection implements store.Store.
func (s *Store) Collection(id string) store.CollectionRef {
	return colRef{ref: s.client.Collection(id)}
}

// Sentinels implements store.Store.
func (s *Store) Sentinels() store.Sentinels {
	return sentinels{}
}

type sentinels struct{}

func (sentinels) Increment(delta float64) interface{} { return fs.Increment(delta) }
func (sentinels) ArrayUnion(values ...interface{}) interface{} {
	return fs.ArrayUnion(values...)
}
func (sentinels) ArrayRemove(values ...interface{}) interface{} {
	return fs.ArrayRemove(values...)
}
func (sentinels) Delete() interface{} { return fs.Delete }
func (sentinels) ServerTimestamp() interface{} { return fs.ServerTimestamp }

type colRef struct {
	ref *fs.CollectionRef
}

func (c colRef) ID() string { return c.ref.ID }

func (c colRef) Doc(id string) store.DocumentRef {
	return docRef{ref: c.ref.Doc(id)}
}

func (c colRef) Add(ctx context.Context, data map[string]interface{}) (store.DocumentRef, error) {
	ref, _, err := c.ref.Add(ctx, data)
	if err != nil {
		return nil, err
	}
	return docRef{ref: ref}, nil
}

// Query translates descriptors onto a firestore.Query in the given order.
// Firestore is order-sensitive for cursor/order-by pairing, so application
// order is exactly the descriptor order.
func (c colRef) Query(constraints []store.Constraint) store.Runner {
	q := c.ref.Query
	for _, cons := range constraints {
		switch cons.Kind {
		case store.KindWhere:
			q = q.Where(cons.Path, cons.Op, cons.Value)
		case store.KindOrderBy:
			dir := fs.Asc
			if cons.Desc {
				dir = fs.Desc
			}
			q = q.OrderBy(cons.Path, dir)
		case store.KindLimit:
			q = q.Limit(cons.N)
		case store.KindLimitToLast:
			q = q.LimitToLast(cons.N)
		case store.KindStartAt:
			q = q.StartAt(cursorArgs(cons)...)
		case store.KindStartAfter:
			q = q.StartAfter(cursorArgs(cons)...)
		case store.KindEndAt:
			q = q.EndAt(cursorArgs(cons)...)
		case store.KindEndBefore:
			q = q.EndBefore(cursorArgs(cons)...)
		default:
			return runner{err: fmt.Errorf("firestore: unsupported constraint kind %v", cons.Kind)}
		}
	}
	return runner{query: q}
}

// cursorArgs unwraps a snapshot anchor back to the native snapshot; a
// snapshot covers every order-by key by itself, so extra values are only
// forwarded for value-anchored cursors.
func cursorArgs(c store.Constraint) []interface{} {
	if c.Anchor != nil {
		if snap, ok := c.Anchor.(docSnap); ok {
			return []interface{}{snap.snap}
		}
	}
	return c.Values
}

type runner struct {
	query fs.Query
	err   error
}

func (r runner) Run(ctx context.Context) ([]store.Snapshot, error) {
	if r.err != nil {
		return nil, r.err
	}
	snaps, err := r.query.Documents(ctx).GetAll()
	if err != nil {
		return nil, err
	}
	out := make([]store.Snapshot, len(snaps))
	for i, snap := range snaps {
		out[i] = docSnap{snap: snap}
	}
	return out, nil
}

type docRef struct {
	ref *fs.DocumentRef
}

func (d docRef) ID() string { return d.ref.ID }
func (d docRef) Path() string { return d.ref.Path }

func (d docRef) Collection(id string) store.CollectionRef {
	return colRef{ref: d.ref.Collection(id)}
}

func (d docRef) Set(ctx context.Context, data map[string]interface{}, opts store.SetOptions) error {
	var fsOpts []fs.SetOption
	switch {
	case opts.MergeAll:
		fsOpts = append(fsOpts, fs.MergeAll)
	case len(opts.MergeFields) > 0:
		paths := make([]fs.FieldPath, 0, len(opts.MergeFields))
		for _, p := range opts.MergeFields {
			paths = append(paths, strings.Split(p, "."))
		}
		fsOpts = append(fsOpts, fs.Merge(paths...))
	}
	_, err := d.ref.Set(ctx, data, fsOpts...)
	return err
}

func (d docRef) Update(ctx context.Context, fields map[string]interface{}) error {
	updates := make([]fs.Update, 0, len(fields))
	for path, value := range fields {
		updates = append(updates, fs.Update{Path: path, Value: value})
	}
	_, err := d.ref.Update(ctx, updates)
	return err
}

func (d docRef) Delete(ctx context.Context) error {
	_, err := d.ref.Delete(ctx)
	return err
}

// Get normalizes the NotFound read: a missing document is reported through
// the snapshot's Exists, not as an error.
func (d docRef) Get(ctx context.Context) (store.Snapshot, error) {
	snap, err := d.ref.Get(ctx)
	if err != nil && status.Code(err) != codes.NotFound {
		return nil, err
	}
	return docSnap{snap: snap}, nil
}

type docSnap struct {
	snap *fs.DocumentSnapshot
}

func (s docSnap) ID() string { return s.snap.Ref.ID }
func (s docSnap) Exists() bool { return s.snap.Exists() }

func (s docSnap) Data() map[string]interface{} {
	if !s.snap.Exists() {
		return nil
	}
	return s.snap.Data()
}

func (s docSnap) Ref() store.DocumentRef {
	return docRef{ref: s.snap.Ref}
}
