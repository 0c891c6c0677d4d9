package router

import "errors"

// Local-misuse errors surface immediately, before any communication.
// Distributed misuse (a rank skipping a collective its peers perform) is
// not detectable at this layer and shows up as an indefinite block
// instead; under the simulator it is reported as an event-loop deadlock.
var (
	// ErrUnknownPattern is returned by Route for a pattern name that
	// does not map to any redistribution operation.
	ErrUnknownPattern = errors.New("unknown redistribution pattern")

	// ErrInvalidRank is returned when a destination or root rank falls
	// outside [0, group size).
	ErrInvalidRank = errors.New("rank out of range")

	// ErrInvalidTag is returned for negative caller tags, which would
	// collide with the communicator's reserved collective tag space.
	ErrInvalidTag = errors.New("tag must be non-negative")

	// ErrPayloadCount is returned when a per-destination payload list
	// does not line up with the destination list.
	ErrPayloadCount = errors.New("payload count does not match destination count")
)
