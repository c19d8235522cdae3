package firedoc

import (
	"go.uber.org/zap"

	"github.com/kartikbazzad/firedoc/store"
)

// Schema statically describes a collection: its defaulted fields, its
// declared sub-collections, and optionally a JSON Schema the documents must
// satisfy. A Schema is configuration supplied once at collection
// construction and never mutated afterwards.
type Schema struct {
	// Fields maps a field name to its spec. Fields not listed here pass
	// through writes untouched.
	Fields map[string]FieldSpec

	// SubCollections declares which sub-collections may be resolved under
	// this collection's documents, and how.
	SubCollections map[string]SubCollectionSpec

	// Document, when non-empty, is a JSON Schema source validating
	// caller-supplied payloads on Add and full-overwrite Set.
	Document string
}

// FieldSpec configures one schema field.
type FieldSpec struct {
	// Default, when non-nil, is injected into full writes that omit the
	// field.
	Default *Default
}

// DefaultKind discriminates default-value directives.
type DefaultKind int

const (
	// DefaultLiteral injects a fixed value.
	DefaultLiteral DefaultKind = iota
	// DefaultServerTimestamp injects the store's server-timestamp sentinel.
	DefaultServerTimestamp
)

// Default is a schema-declared default-value directive.
type Default struct {
	Kind  DefaultKind
	Value interface{}
}

// LiteralDefault declares a fixed default value for a field.
func LiteralDefault(v interface{}) *Default {
	return &Default{Kind: DefaultLiteral, Value: v}
}

// ServerTimestampDefault declares that an omitted field defaults to the
// store's current server time.
func ServerTimestampDefault() *Default {
	return &Default{Kind: DefaultServerTimestamp}
}

// SubConfig carries everything a resolver factory needs to construct a
// sub-collection resolver bound to a specific parent document.
type SubConfig struct {
	Store  store.Store
	Name   string
	Schema *Schema
	Parent store.DocumentRef
	Logger *zap.Logger
}

// Factory constructs a collection resolver from a SubConfig. Factories are
// plain function values supplied in the schema declaration; resolution never
// goes through name-based lookup or reflection.
type Factory func(cfg SubConfig) (*Collection, error)

// SubCollectionSpec declares one sub-collection: the schema handed to the
// nested resolver (may be nil) and the factory that builds it.
type SubCollectionSpec struct {
	Schema *Schema
	New    Factory
}
