package firedoc

import "errors"

// Configuration errors indicate a programming or schema-authoring mistake.
// They are detected synchronously, before any store call, and are not
// retryable. Store errors are never wrapped by this package; they propagate
// to the caller exactly as the backend surfaced them.
var (
	ErrUnknownSubCollection   = errors.New("sub-collection not declared in schema")
	ErrMissingResolverFactory = errors.New("sub-collection declared without a resolver factory")
	ErrUnknownConstraint      = errors.New("unknown query constraint")
	ErrUnknownOperation       = errors.New("unknown update operation")
	ErrInvalidDocumentSchema  = errors.New("invalid document schema")
	ErrDocumentInvalid        = errors.New("document failed schema validation")
)
