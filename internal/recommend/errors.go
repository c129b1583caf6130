package recommend

import "errors"

// Error taxonomy of the engine. Handlers translate these into HTTP status
// codes; everything else is an internal failure.
var (
	// ErrInvalidArgument covers caller mistakes such as a non-positive limit.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrNotFound is returned by Explain when the (user, product) pair has no
	// recorded contribution.
	ErrNotFound = errors.New("not found")

	// ErrUpstreamUnavailable means the interaction or metadata collaborator
	// failed and no usable snapshot exists. It is retryable.
	ErrUpstreamUnavailable = errors.New("upstream unavailable")

	// ErrCacheMiss is the absence marker of the result cache store. It is a
	// signal, not a failure.
	ErrCacheMiss = errors.New("cache miss")
)
