// Package comm implements a per-rank communicator for a fixed process
// group over a simulated network: tagged point-to-point send/receive with
// (source, tag) matching, plus the collective primitives needed for
// rank-to-rank data redistribution.
package comm

import (
	"unsafe"

	"github.com/unixpickle/essentials"

	"github.com/flowtools/redist/simulator"
)

// Elem is the set of element datatypes that can travel through the
// communicator. Buffers are always flat slices of one such type.
type Elem interface {
	~int8 | ~int16 | ~int32 | ~int64 | ~int |
		~uint8 | ~uint16 | ~uint32 | ~uint64 | ~uint |
		~float32 | ~float64 | ~complex64 | ~complex128
}

// packetHeaderBytes is charged per message on top of the payload, so that
// zero-payload control traffic still takes nonzero wire time.
const packetHeaderBytes = 16.0

// A packet is the wire envelope for all communicator traffic.
type packet struct {
	src     int
	tag     int
	payload any
}

// A Comm is one rank's view of the process group during a collective
// operation.
//
// A Comm is not safe for use from more than one goroutine, and no two
// calls on the same Comm may be in flight at once. All ranks must invoke
// each collective in the same order; a rank that skips a call leaves its
// peers blocked.
type Comm struct {
	handle  *simulator.Handle
	network simulator.Network
	rank    int
	ports   []*simulator.Port

	// Messages that arrived before anyone asked for them.
	stash []*packet

	// Advances identically on every rank because collectives run in
	// lockstep.
	collSeq int
}

// Spawn creates a Comm for every node and calls f for each rank in its
// own goroutine.
func Spawn(loop *simulator.EventLoop, network simulator.Network, nodes []*simulator.Node,
	f func(c *Comm)) {
	ports := make([]*simulator.Port, len(nodes))
	for i, node := range nodes {
		ports[i] = node.Port(loop)
	}
	for i := range nodes {
		rank := i
		loop.Go(func(h *simulator.Handle) {
			f(&Comm{
				handle:  h,
				network: network,
				rank:    rank,
				ports:   ports,
			})
		})
	}
}

// Rank returns the current rank, in [0, Size()).
func (c *Comm) Rank() int {
	return c.rank
}

// Size returns the number of ranks in the group.
func (c *Comm) Size() int {
	return len(c.ports)
}

// Handle returns the rank's event-loop handle.
func (c *Comm) Handle() *simulator.Handle {
	return c.handle
}

// Send transmits a flat buffer to the destination rank under the given
// tag. Tags chosen by callers must be non-negative; negative tags are
// reserved for collective traffic.
//
// The send completes locally: the payload is copied out before Send
// returns, so the caller may immediately reuse or mutate its buffer.
func Send[T Elem](c *Comm, dst, tag int, data []T) {
	wire := make([]T, len(data))
	copy(wire, data)
	c.send(dst, tag, wire, float64(len(wire))*elemBytes[T]())
}

// Recv blocks until a message from src under tag arrives, and returns its
// payload in a freshly allocated buffer.
//
// Messages that arrive while waiting but match neither src nor tag are
// stashed and handed out by later receives, so arrival order never
// matters.
func Recv[T Elem](c *Comm, src, tag int) []T {
	data := c.recvMatch(src, tag).([]T)
	out := make([]T, len(data))
	copy(out, data)
	return out
}

// RecvInto is like Recv but fills a buffer the caller allocated. If the
// sender's buffer length disagrees with len(buf), the transfer is
// undefined; no length is validated.
func RecvInto[T Elem](c *Comm, src, tag int, buf []T) {
	copy(buf, c.recvMatch(src, tag).([]T))
}

func (c *Comm) send(dst, tag int, payload any, payloadBytes float64) {
	c.network.Send(c.handle, &simulator.Message{
		Source:  c.ports[c.rank],
		Dest:    c.ports[dst],
		Payload: &packet{src: c.rank, tag: tag, payload: payload},
		Size:    payloadBytes + packetHeaderBytes,
	})
}

// recvMatch returns the payload of the next packet from src under tag,
// stashing everything else that arrives in the meantime.
func (c *Comm) recvMatch(src, tag int) any {
	for i, p := range c.stash {
		if p.src == src && p.tag == tag {
			essentials.OrderedDelete(&c.stash, i)
			return p.payload
		}
	}
	for {
		p := c.ports[c.rank].Recv(c.handle).Payload.(*packet)
		if p.src == src && p.tag == tag {
			return p.payload
		}
		c.stash = append(c.stash, p)
	}
}

// recvTag is like recvMatch but accepts any source, returning it.
func (c *Comm) recvTag(tag int) (int, any) {
	for i, p := range c.stash {
		if p.tag == tag {
			essentials.OrderedDelete(&c.stash, i)
			return p.src, p.payload
		}
	}
	for {
		p := c.ports[c.rank].Recv(c.handle).Payload.(*packet)
		if p.tag == tag {
			return p.src, p.payload
		}
		c.stash = append(c.stash, p)
	}
}

// collTag returns the reserved tag for the next collective call.
func (c *Comm) collTag() int {
	c.collSeq++
	return -c.collSeq
}

func elemBytes[T Elem]() float64 {
	var z T
	return float64(unsafe.Sizeof(z))
}
