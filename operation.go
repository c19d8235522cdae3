package firedoc

import (
	"fmt"

	"github.com/kartikbazzad/firedoc/store"
)

// OperationKind discriminates field-level write mutations.
type OperationKind int

const (
	// OpLiteral writes Value as-is.
	OpLiteral OperationKind = iota
	// OpIncrement adds Delta to the field's current numeric value.
	OpIncrement
	// OpArrayUnion appends Values not already present in the array field.
	OpArrayUnion
	// OpArrayRemove removes every occurrence of Values from the array field.
	OpArrayRemove
	// OpDeleteField removes the field from the document.
	OpDeleteField
	// OpServerTimestamp sets the field to the store's current time.
	OpServerTimestamp
)

// Operation is one declarative mutation of a single field path. Only the
// fields relevant to Kind are populated.
type Operation struct {
	Kind   OperationKind
	Value  interface{}
	Delta  float64
	Values []interface{}
}

// resolve translates an operation into a value acceptable to the store's
// write call. Sentinel kinds are produced through the store's own factory,
// so their internal representation stays opaque to this package.
func resolve(op Operation, s store.Sentinels) (interface{}, error) {
	switch op.Kind {
	case OpLiteral:
		return op.Value, nil
	case OpIncrement:
		return s.Increment(op.Delta), nil
	case OpArrayUnion:
		return s.ArrayUnion(op.Values...), nil
	case OpArrayRemove:
		return s.ArrayRemove(op.Values...), nil
	case OpDeleteField:
		return s.Delete(), nil
	case OpServerTimestamp:
		return s.ServerTimestamp(), nil
	default:
		return nil, fmt.Errorf("%w: kind %d", ErrUnknownOperation, op.Kind)
	}
}
