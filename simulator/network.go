package simulator

import "math/rand"

// A Node represents a machine on a virtual network.
type Node struct {
	// Keeps Node non-zero-sized so each allocation is distinct.
	unused int
}

// NewNode creates a new, unique Node.
func NewNode() *Node {
	return &Node{}
}

// Port creates a new Port attached to the Node.
func (n *Node) Port(loop *EventLoop) *Port {
	return &Port{Node: n, Incoming: loop.Stream()}
}

// A Port is a point of communication on a Node. Messages are sent from
// Ports and arrive on Ports.
type Port struct {
	// The Node to which the Port is attached.
	Node *Node

	// A stream of *Message objects.
	Incoming *EventStream
}

// Recv blocks until the next message arrives on the port.
func (p *Port) Recv(h *Handle) *Message {
	return h.Poll(p.Incoming).Message.(*Message)
}

// A Message is a chunk of data sent between nodes over a network. Size is
// in bytes and drives the simulated transfer time; Payload is opaque to
// the network.
type Message struct {
	Source  *Port
	Dest    *Port
	Payload any
	Size    float64
}

// A Network is an abstract way of moving messages between nodes.
type Network interface {
	// Send message objects from one node to another. Each message
	// eventually shows up on its destination port's incoming stream.
	//
	// This is a non-blocking operation.
	//
	// Pass multiple messages at once where possible; some networks
	// re-plan the whole delivery timeline on every call.
	Send(h *Handle, msgs ...*Message)
}

// A RandomNetwork delivers every message after an independent random
// delay, regardless of size. Useful for shaking out any dependence on
// arrival order.
type RandomNetwork struct{}

// Send sends the messages with random delays.
func (r RandomNetwork) Send(h *Handle, msgs ...*Message) {
	for _, msg := range msgs {
		h.Schedule(msg.Dest.Incoming, msg, rand.Float64())
	}
}
