// Package router moves flat numeric buffers between the ranks of a fixed
// process group in three patterns: an irregular all-pairs exchange with
// per-destination payload sizes and a self-discovered receive set
// (Distribute), a variable-length collection into one root (Gather), and
// a variable-length fan-out from one root (Scatter).
//
// Every operation is collective: all ranks of the group must invoke it
// together, and a rank that skips a call leaves the others blocked.
// Buffers are always flat; a caller with multi-dimensional data flattens
// before sending and reshapes after receiving using its own knowledge of
// the shape. The router transmits no shape metadata.
package router

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/flowtools/redist/comm"
)

// A Router performs redistribution patterns over one communicator.
//
// It owns two scratch count vectors that are re-zeroed on every
// Distribute call; they carry nothing between calls and exist to avoid
// per-call allocation. A Router must not have two calls in flight at
// once.
type Router struct {
	comm *comm.Comm
	log  *zap.Logger

	// Scratch, indexed by rank: how many elements this rank sends to
	// and receives from each peer during one Distribute round.
	destCount []uint64
	srcCount  []uint64
}

// An Option configures a Router.
type Option func(*Router)

// WithLogger sets the logger used for caller-visible sharp edges, such as
// the remainder dropped by equal-division Scatter. The default discards
// everything.
func WithLogger(log *zap.Logger) Option {
	return func(rt *Router) {
		rt.log = log
	}
}

// New creates a Router bound to the communicator.
func New(c *comm.Comm, opts ...Option) *Router {
	rt := &Router{
		comm:      c,
		log:       zap.NewNop(),
		destCount: make([]uint64, c.Size()),
		srcCount:  make([]uint64, c.Size()),
	}
	for _, opt := range opts {
		opt(rt)
	}
	return rt
}

// Comm returns the communicator the Router is bound to.
func (rt *Router) Comm() *comm.Comm {
	return rt.comm
}

func (rt *Router) checkRank(r int) error {
	if r < 0 || r >= rt.comm.Size() {
		return fmt.Errorf("%w: %d with %d ranks", ErrInvalidRank, r, rt.comm.Size())
	}
	return nil
}

// Distribute sends a variable-size payload to each destination rank and
// receives whatever payloads other ranks addressed here, without knowing
// the senders in advance.
//
// The exchange runs in two phases. First a count exchange: the
// per-destination element counts are written into the destination-count
// scratch vector (a duplicate destination silently overwrites the earlier
// entry) and traded all-to-all, so every rank learns how much it will
// receive from whom. Then the transfer: one exactly-sized receive buffer
// is allocated per active source before any send is issued, sends go out
// one at a time in caller order, and finally all owed receives are
// drained. Out-of-order arrivals are stashed by the communicator, so
// completion does not depend on network timing. Keeping the send side
// sequential while only the receive side pipelines avoids the resource
// deadlocks that unmatched outstanding sends can cause.
//
// The returned source ranks are in strictly ascending order and bufs[i]
// holds the elements received from sources[i]. A rank with no
// destinations and nothing addressed to it returns empty slices, but
// still participates in the count exchange.
//
// The tag scopes message matching for this invocation; every rank
// involved in one logical exchange must agree on it. Senders and
// receivers must also agree on the element type T; a mismatch is not
// detected by the protocol.
func Distribute[T comm.Elem](rt *Router, dests []int, payload Payload[T],
	tag int) (sources []int, bufs [][]T, err error) {
	if tag < 0 {
		return nil, nil, fmt.Errorf("%w: %d", ErrInvalidTag, tag)
	}
	sendBufs, err := payload.resolve(len(dests))
	if err != nil {
		return nil, nil, err
	}
	for _, d := range dests {
		if d < 0 || d >= rt.comm.Size() {
			return nil, nil, fmt.Errorf("%w: destination %d with %d ranks",
				ErrInvalidRank, d, rt.comm.Size())
		}
	}

	// Count exchange.
	for i := range rt.destCount {
		rt.destCount[i] = 0
	}
	for i, d := range dests {
		rt.destCount[d] = uint64(len(sendBufs[i]))
	}
	for i := range rt.srcCount {
		rt.srcCount[i] = 0
	}
	rt.comm.AlltoallCounts(rt.destCount, rt.srcCount)

	// Active sources in ascending rank order; this fixes the ordering of
	// both return values.
	sources = make([]int, 0, rt.comm.Size())
	for r, n := range rt.srcCount {
		if n != 0 {
			sources = append(sources, r)
		}
	}

	// Allocate every receive buffer before the first send goes out.
	bufs = make([][]T, len(sources))
	for i, s := range sources {
		bufs[i] = make([]T, rt.srcCount[s])
	}

	// Sends complete one at a time, in caller order. A zero-length
	// payload announces a zero count, so no message is owed for it.
	for i, d := range dests {
		if len(sendBufs[i]) == 0 {
			continue
		}
		comm.Send(rt.comm, d, tag, sendBufs[i])
	}

	// Drain everything we are owed.
	for i, s := range sources {
		comm.RecvInto(rt.comm, s, tag, bufs[i])
	}

	return sources, bufs, nil
}

// Gather collects every rank's flat buffer into one contiguous buffer at
// root, with contributions laid out at prefix-sum offsets in ascending
// rank order. Per-rank sizes may differ; they are learned through an
// all-gather of counts first.
//
// Root receives the gathered buffer; every other rank gets nil. The count
// vector is returned on every rank, since the all-gather already made it
// globally known.
func Gather[T comm.Elem](rt *Router, local []T, root int) (gathered []T, counts []uint64, err error) {
	if err := rt.checkRank(root); err != nil {
		return nil, nil, err
	}
	counts = rt.comm.AllgatherCounts(uint64(len(local)))
	gathered = comm.Gatherv(rt.comm, local, counts, root)
	return gathered, counts, nil
}

// Scatter slices root's contiguous buffer out to every rank; rank r
// receives counts[r] elements from r's prefix-sum offset. Only root needs
// buf; an explicit count vector must already be identically known to all
// ranks (the router does not broadcast it).
//
// With nil counts, root divides its buffer length by the group size using
// integer division. A remainder is silently dropped from the transfer —
// preserved origin behavior, flagged through the Router's logger rather
// than corrected.
func Scatter[T comm.Elem](rt *Router, buf []T, counts []uint64, root int) ([]T, error) {
	if err := rt.checkRank(root); err != nil {
		return nil, err
	}
	if rt.comm.Rank() == root && counts == nil {
		size := uint64(rt.comm.Size())
		per := uint64(len(buf)) / size
		if rem := uint64(len(buf)) % size; rem != 0 {
			rt.log.Warn("equal-division scatter drops trailing elements",
				zap.Int("bufferLen", len(buf)),
				zap.Uint64("perRank", per),
				zap.Uint64("dropped", rem))
		}
		counts = make([]uint64, size)
		for i := range counts {
			counts[i] = per
		}
	}
	return comm.Scatterv(rt.comm, buf, counts, root), nil
}
