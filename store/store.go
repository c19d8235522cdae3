// Package store defines the contract between the firedoc builder layer and a
// document store backend. It exists so the builders never import a concrete
// backend: the core compiles declarative constraints and update operations
// into the descriptor and sentinel forms below, and a backend (Cloud
// Firestore, or the in-memory store used in tests) executes them.
package store

import (
	"context"

	"github.com/mitchellh/mapstructure"
)

// Store is a handle to a document store. Implementations must be safe for
// concurrent use; every method is a pure handle constructor except Sentinels,
// which returns a stateless factory.
type Store interface {
	// Collection returns a handle to a root-level collection. No I/O.
	Collection(id string) CollectionRef

	// Sentinels returns the store's factory for opaque server-computed
	// write values.
	Sentinels() Sentinels
}

// CollectionRef is a handle to a collection, root-level or nested under a
// parent document.
type CollectionRef interface {
	// ID returns the collection's own id (the last path segment).
	ID() string

	// Doc returns a handle to the document with the given id. No I/O.
	Doc(id string) DocumentRef

	// Add creates a document with a store-generated id.
	Add(ctx context.Context, data map[string]interface{}) (DocumentRef, error)

	// Query combines the collection with an ordered constraint list into an
	// executable query. Constraint order is significant and must be applied
	// exactly as given.
	Query(constraints []Constraint) Runner
}

// Runner is an executable query.
type Runner interface {
	// Run executes the query and returns matched documents in store order.
	Run(ctx context.Context) ([]Snapshot, error)
}

// DocumentRef is a handle to a single document.
type DocumentRef interface {
	// ID returns the document id.
	ID() string

	// Path returns the full slash-delimited path of the document.
	Path() string

	// Collection returns a handle to a sub-collection nested under this
	// document. No I/O.
	Collection(id string) CollectionRef

	// Set writes the document. Without merge options the write is a full
	// overwrite; with them only the merged fields are touched.
	Set(ctx context.Context, data map[string]interface{}, opts SetOptions) error

	// Update applies field-level mutations. Keys are dot-delimited field
	// paths; values may be literals or sentinel values from Sentinels.
	Update(ctx context.Context, fields map[string]interface{}) error

	// Delete removes the document. Deleting a document that does not exist
	// is a success.
	Delete(ctx context.Context) error

	// Get reads the document. A missing document is reported through the
	// snapshot's Exists, never as an error.
	Get(ctx context.Context) (Snapshot, error)
}

// Snapshot is one read result: document data plus existence metadata.
type Snapshot interface {
	ID() string
	Exists() bool
	Data() map[string]interface{}
	Ref() DocumentRef
}

// Sentinels produces the store's opaque placeholder values for
// server-computed writes. The builder layer treats the returned values as
// write-acceptable black boxes.
type Sentinels interface {
	Increment(delta float64) interface{}
	ArrayUnion(values ...interface{}) interface{}
	ArrayRemove(values ...interface{}) interface{}
	Delete() interface{}
	ServerTimestamp() interface{}
}

// SetOptions selects between a full-overwrite set and the two merge forms.
type SetOptions struct {
	// MergeAll merges every field present in the payload.
	MergeAll bool

	// MergeFields, when non-empty, merges only the listed dot-delimited
	// field paths.
	MergeFields []string
}

// IsMerge reports whether the options describe a partial write.
func (o SetOptions) IsMerge() bool {
	return o.MergeAll || len(o.MergeFields) > 0
}

// DataTo decodes a document data map into dst, which must be a pointer to a
// struct or map. Field names are matched case-insensitively; use
// `mapstructure` struct tags to override.
func DataTo(data map[string]interface{}, dst interface{}) error {
	return mapstructure.Decode(data, dst)
}
