// Package firedoc is a typed, immutable builder layer in front of a remote
// document store.
//
// Callers obtain a Collection resolver (root-level, or nested via
// SubCollection), compose read queries and field-level updates as value
// objects through chained calls, and only hit the store on an explicit
// terminal call (Fetch, FetchAll, Commit, Add, Set, Delete, Get).
//
// The package performs no transport of its own: every store-facing primitive
// goes through the store.Store contract. Two backends ship with the module,
// an adapter over Cloud Firestore and an in-memory store used as the test
// harness.
package firedoc

import (
	"context"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
	"go.uber.org/zap"

	"github.com/kartikbazzad/firedoc/store"
)

// Collection resolves documents, builders and sub-collections for one
// collection path. It holds only immutable state after construction and is
// safe for concurrent use.
type Collection struct {
	st        store.Store
	ref       store.CollectionRef
	id        string
	schema    *Schema
	parent    store.DocumentRef
	validator *gojsonschema.Schema
	log       *zap.Logger
}

// Option configures a Collection at construction time.
type Option func(*Collection)

// WithSchema attaches the static schema driving defaults, validation and
// sub-collection resolution.
func WithSchema(s *Schema) Option {
	return func(c *Collection) { c.schema = s }
}

// WithParent nests the collection under a parent document instead of the
// store root.
func WithParent(parent store.DocumentRef) Option {
	return func(c *Collection) { c.parent = parent }
}

// WithLogger installs a logger for diagnostics. The default is a no-op
// logger.
func WithLogger(log *zap.Logger) Option {
	return func(c *Collection) { c.log = log }
}

// New constructs a collection resolver. When the schema declares a JSON
// document schema it is compiled here; a source that does not compile is a
// configuration error.
func New(st store.Store, id string, opts ...Option) (*Collection, error) {
	c := &Collection{st: st, id: id, log: zap.NewNop()}
	for _, opt := range opts {
		opt(c)
	}

	if c.parent != nil {
		c.ref = c.parent.Collection(id)
	} else {
		c.ref = st.Collection(id)
	}

	if c.schema != nil && c.schema.Document != "" {
		loader := gojsonschema.NewStringLoader(c.schema.Document)
		compiled, err := gojsonschema.NewSchema(loader)
		if err != nil {
			return nil, fmt.Errorf("%w: collection %s: %v", ErrInvalidDocumentSchema, id, err)
		}
		c.validator = compiled
	}

	return c, nil
}

// NewSubCollection is the standard resolver factory: it builds a plain
// Collection from a SubConfig. Schemas wanting custom resolver types supply
// their own Factory instead.
func NewSubCollection(cfg SubConfig) (*Collection, error) {
	opts := []Option{WithParent(cfg.Parent)}
	if cfg.Schema != nil {
		opts = append(opts, WithSchema(cfg.Schema))
	}
	if cfg.Logger != nil {
		opts = append(opts, WithLogger(cfg.Logger))
	}
	return New(cfg.Store, cfg.Name, opts...)
}

// ID returns the collection id this resolver was constructed with.
func (c *Collection) ID() string {
	return c.id
}

// Doc returns the native handle for the document with the given id. No I/O
// is performed.
func (c *Collection) Doc(id string) store.DocumentRef {
	return c.ref.Doc(id)
}

// Query returns an empty query builder over this collection.
func (c *Collection) Query() Query {
	return Query{col: c.ref}
}

// Update returns an empty update builder targeting the document with the
// given id.
func (c *Collection) Update(id string) Update {
	return Update{
		doc:       c.ref.Doc(id),
		sentinels: c.st.Sentinels(),
		log:       c.log,
	}
}

// ApplyDefaults returns data with every schema-declared default injected for
// fields the payload omits. Present fields are never overwritten, which also
// makes the function idempotent. The input map is not mutated; when nothing
// needs injecting it is returned as-is.
func (c *Collection) ApplyDefaults(data map[string]interface{}) map[string]interface{} {
	if c.schema == nil {
		return data
	}

	out := data
	cloned := false
	for name, spec := range c.schema.Fields {
		if spec.Default == nil {
			continue
		}
		if _, present := data[name]; present {
			continue
		}
		if !cloned {
			out = cloneShallow(data)
			cloned = true
		}
		switch spec.Default.Kind {
		case DefaultServerTimestamp:
			out[name] = c.st.Sentinels().ServerTimestamp()
		default:
			out[name] = spec.Default.Value
		}
	}
	return out
}

// Add applies validation and defaults, then creates a document with a
// store-generated id, returning its reference.
func (c *Collection) Add(ctx context.Context, data map[string]interface{}) (store.DocumentRef, error) {
	if err := c.validate(data); err != nil {
		return nil, err
	}
	ref, err := c.ref.Add(ctx, c.ApplyDefaults(data))
	if err != nil {
		return nil, err
	}
	c.log.Debug("document added",
		zap.String("collection", c.id),
		zap.String("id", ref.ID()))
	return ref, nil
}

// Set writes the document with the given id. Without options the write is a
// full overwrite and receives schema defaults (and validation) for omitted
// fields. Any merge form skips defaults entirely: injecting a default into a
// partial write would silently overwrite fields the caller did not intend to
// touch.
func (c *Collection) Set(ctx context.Context, id string, data map[string]interface{}, opts ...SetOption) error {
	var so store.SetOptions
	for _, opt := range opts {
		opt(&so)
	}

	if !so.IsMerge() {
		if err := c.validate(data); err != nil {
			return err
		}
		data = c.ApplyDefaults(data)
	}
	return c.ref.Doc(id).Set(ctx, data, so)
}

// Delete removes the document with the given id. Deleting a document that
// does not exist is a success.
func (c *Collection) Delete(ctx context.Context, id string) error {
	return c.ref.Doc(id).Delete(ctx)
}

// Get reads the document with the given id. A missing document is reported
// as found=false with a nil error, never as a failure.
func (c *Collection) Get(ctx context.Context, id string) (map[string]interface{}, bool, error) {
	snap, err := c.ref.Doc(id).Get(ctx)
	if err != nil {
		return nil, false, err
	}
	if !snap.Exists() {
		return nil, false, nil
	}
	return snap.Data(), true, nil
}

// SubCollection resolves a schema-declared sub-collection under the document
// with the given parent id. Each call instantiates a fresh resolver through
// the declared factory; instances are never cached or shared. An absent
// schema, an undeclared name, or a declaration without a factory is a
// configuration error.
func (c *Collection) SubCollection(parentID, name string) (*Collection, error) {
	if c.schema == nil {
		return nil, fmt.Errorf("%w: %q on collection %s (no schema configured)",
			ErrUnknownSubCollection, name, c.id)
	}
	spec, ok := c.schema.SubCollections[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q on collection %s", ErrUnknownSubCollection, name, c.id)
	}
	if spec.New == nil {
		return nil, fmt.Errorf("%w: %q on collection %s", ErrMissingResolverFactory, name, c.id)
	}

	return spec.New(SubConfig{
		Store:  c.st,
		Name:   name,
		Schema: spec.Schema,
		Parent: c.ref.Doc(parentID),
		Logger: c.log,
	})
}

// validate checks a caller-supplied payload against the compiled document
// schema, if one is configured. Defaults are injected after validation, so
// the JSON Schema describes what callers send, not what the store computes.
func (c *Collection) validate(data map[string]interface{}) error {
	if c.validator == nil {
		return nil
	}

	result, err := c.validator.Validate(gojsonschema.NewGoLoader(data))
	if err != nil {
		return fmt.Errorf("%w: collection %s: %v", ErrDocumentInvalid, c.id, err)
	}
	if !result.Valid() {
		descs := make([]string, 0, len(result.Errors()))
		for _, desc := range result.Errors() {
			descs = append(descs, desc.String())
		}
		return fmt.Errorf("%w: collection %s: %s", ErrDocumentInvalid, c.id, strings.Join(descs, "; "))
	}
	return nil
}

// SetOption configures a Set call.
type SetOption func(*store.SetOptions)

// MergeAll makes Set merge every field present in the payload instead of
// overwriting the whole document.
var MergeAll SetOption = func(o *store.SetOptions) { o.MergeAll = true }

// MergeFields makes Set merge only the listed dot-delimited field paths.
func MergeFields(paths ...string) SetOption {
	return func(o *store.SetOptions) { o.MergeFields = paths }
}

func cloneShallow(m map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(m)+1)
	for k, v := range m {
		out[k] = v
	}
	return out
}
