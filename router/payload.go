package router

import (
	"fmt"

	"github.com/flowtools/redist/comm"
)

// A Payload specifies what Distribute sends: either a distinct buffer per
// destination, or one buffer broadcast identically to every destination.
// It is resolved once at the call boundary into a uniform per-destination
// view before the exchange runs.
type Payload[T comm.Elem] interface {
	resolve(ndests int) ([][]T, error)
}

// PerDest supplies one payload per destination; bufs[i] goes to the i-th
// destination rank.
func PerDest[T comm.Elem](bufs [][]T) Payload[T] {
	return perDest[T]{bufs: bufs}
}

type perDest[T comm.Elem] struct {
	bufs [][]T
}

func (p perDest[T]) resolve(ndests int) ([][]T, error) {
	if len(p.bufs) != ndests {
		return nil, fmt.Errorf("%w: %d buffers for %d destinations",
			ErrPayloadCount, len(p.bufs), ndests)
	}
	return p.bufs, nil
}

// Broadcast sends the same buffer to every destination rank.
func Broadcast[T comm.Elem](buf []T) Payload[T] {
	return broadcast[T]{buf: buf}
}

type broadcast[T comm.Elem] struct {
	buf []T
}

func (b broadcast[T]) resolve(ndests int) ([][]T, error) {
	bufs := make([][]T, ndests)
	for i := range bufs {
		bufs[i] = b.buf
	}
	return bufs, nil
}
