package models

import "errors"

// Engine error taxonomy. Everything else (I/O from collaborators) is wrapped
// with context by the layer that hit it.
var (
	// ErrSchemaMismatch: an artifact's recorded schema differs from the live
	// extractor. The adapter is excluded; fatal only when it empties the
	// adapter set and heuristic fallback is disallowed.
	ErrSchemaMismatch = errors.New("model schema mismatch")

	// ErrDataUnavailable: upstream data missing; recovered via neutral
	// defaults and reported as a caveat on the output.
	ErrDataUnavailable = errors.New("upstream data unavailable")

	// ErrModelNotTrained: model mode requested with zero adapters and
	// fallback disabled.
	ErrModelNotTrained = errors.New("no trained model available")

	// ErrInvalidFeatureVector: length/order violation detected before any
	// model call. Always fatal for the request.
	ErrInvalidFeatureVector = errors.New("invalid feature vector")
)
