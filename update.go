package firedoc

import (
	"context"

	"go.uber.org/zap"

	"github.com/kartikbazzad/firedoc/store"
)

// Update accumulates field-level mutations for one document. Like Query it
// has value semantics: every chain method clones the operation map, so the
// receiver is never mutated. At most one operation exists per field path;
// a later call for the same path replaces the earlier one.
//
// Field paths are dot-delimited and opaque to the builder; no path syntax is
// validated locally.
type Update struct {
	doc       store.DocumentRef
	sentinels store.Sentinels
	log       *zap.Logger
	ops       map[string]Operation
}

// Set installs a literal value at path.
func (u Update) Set(path string, value interface{}) Update {
	return u.install(path, Operation{Kind: OpLiteral, Value: value})
}

// Increment installs a numeric increment at path.
func (u Update) Increment(path string, delta float64) Update {
	return u.install(path, Operation{Kind: OpIncrement, Delta: delta})
}

// ArrayUnion installs an array-union of values at path.
func (u Update) ArrayUnion(path string, values ...interface{}) Update {
	return u.install(path, Operation{Kind: OpArrayUnion, Values: values})
}

// ArrayRemove installs an array-remove of values at path.
func (u Update) ArrayRemove(path string, values ...interface{}) Update {
	return u.install(path, Operation{Kind: OpArrayRemove, Values: values})
}

// DeleteField installs a field deletion at path.
func (u Update) DeleteField(path string) Update {
	return u.install(path, Operation{Kind: OpDeleteField})
}

// ServerTimestamp installs the server-timestamp sentinel at path.
func (u Update) ServerTimestamp(path string) Update {
	return u.install(path, Operation{Kind: OpServerTimestamp})
}

func (u Update) install(path string, op Operation) Update {
	next := make(map[string]Operation, len(u.ops)+1)
	for k, v := range u.ops {
		next[k] = v
	}
	next[path] = op
	u.ops = next
	return u
}

// Commit resolves every accumulated operation through the store's sentinel
// factory and issues one atomic field-level update. A builder with no
// operations performs no store call and succeeds; the skipped write is
// logged as a warning so accidental empty commits stay observable.
func (u Update) Commit(ctx context.Context) error {
	if len(u.ops) == 0 {
		if u.log != nil {
			u.log.Warn("empty update commit, no write issued",
				zap.String("doc", u.doc.Path()))
		}
		return nil
	}

	fields := make(map[string]interface{}, len(u.ops))
	for path, op := range u.ops {
		value, err := resolve(op, u.sentinels)
		if err != nil {
			return err
		}
		fields[path] = value
	}
	return u.doc.Update(ctx, fields)
}
