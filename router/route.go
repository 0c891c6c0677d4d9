package router

import (
	"fmt"

	"github.com/flowtools/redist/comm"
)

// A Pattern names one of the redistribution operations for dispatch
// through Route.
type Pattern string

const (
	PatternDistribute Pattern = "distribute"
	PatternGather     Pattern = "gather"
	PatternScatter    Pattern = "scatter"
)

// A Request carries the union of the inputs the three patterns take.
// Each pattern reads only its own fields.
type Request[T comm.Elem] struct {
	// Distribute.
	Dests   []int
	Payload Payload[T]
	Tag     int

	// Gather.
	Local []T

	// Scatter; Buf is meaningful on root only, Counts may be nil for
	// equal integer division.
	Buf    []T
	Counts []uint64

	// Gather and Scatter.
	Root int
}

// A Response carries the union of the three patterns' outputs.
type Response[T comm.Elem] struct {
	// Distribute: parallel, ascending by source rank.
	Sources  []int
	Received [][]T

	// Gather: Gathered is nil off root; Counts on every rank.
	Gathered []T
	Counts   []uint64

	// Scatter.
	Local []T
}

// Route dispatches a named pattern. An unrecognized pattern fails with
// ErrUnknownPattern before any communication happens and without touching
// the Router's scratch vectors.
func Route[T comm.Elem](rt *Router, pattern Pattern, req Request[T]) (*Response[T], error) {
	switch pattern {
	case PatternDistribute:
		sources, received, err := Distribute(rt, req.Dests, req.Payload, req.Tag)
		if err != nil {
			return nil, err
		}
		return &Response[T]{Sources: sources, Received: received}, nil
	case PatternGather:
		gathered, counts, err := Gather(rt, req.Local, req.Root)
		if err != nil {
			return nil, err
		}
		return &Response[T]{Gathered: gathered, Counts: counts}, nil
	case PatternScatter:
		local, err := Scatter(rt, req.Buf, req.Counts, req.Root)
		if err != nil {
			return nil, err
		}
		return &Response[T]{Local: local}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownPattern, pattern)
	}
}
