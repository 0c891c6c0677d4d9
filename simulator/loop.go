// Package simulator provides a virtual-time event loop and a simulated
// network for running a fixed group of communicating processes, one
// goroutine per process. Virtual time only advances while every goroutine
// is blocked polling, so simulated machines can compute in real time
// without skewing the clock.
package simulator

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
	"sync"

	"github.com/unixpickle/essentials"
)

// An EventStream is a uni-directional channel of events delivered through
// an EventLoop.
//
// A stream must only be used with the loop that created it.
type EventStream struct {
	loop    *EventLoop
	pending []any
}

// An Event is a value received on some EventStream.
type Event struct {
	Message any
	Stream  *EventStream
}

// A Timer is a single delivery scheduled for a point in the virtual
// future.
type Timer struct {
	time  float64
	event *Event
}

// Time gets the virtual time at which the timer fires.
//
// While the loop's clock is below this value, the timer is guaranteed not
// to have fired yet.
func (t *Timer) Time() float64 {
	return t.time
}

// A Handle is one goroutine's grip on an EventLoop. Handles must not be
// shared between goroutines.
type Handle struct {
	*EventLoop

	// Empty whenever the goroutine is not polling.
	pollStreams []*EventStream
	pollChan    chan<- *Event
}

// Poll blocks until the next event arrives on any of the given streams.
func (h *Handle) Poll(streams ...*EventStream) *Event {
	ch := make(chan *Event, 1)
	h.modifyHandles(func() {
		if h.pollStreams != nil {
			panic("Handle is shared between goroutines")
		}
		for _, stream := range streams {
			if len(stream.pending) > 0 {
				msg := stream.pending[0]
				essentials.OrderedDelete(&stream.pending, 0)
				ch <- &Event{Message: msg, Stream: stream}
				return
			}
		}
		h.pollStreams = streams
		h.pollChan = ch
	})
	return <-ch
}

// Schedule arranges for msg to be delivered on stream after delay units of
// virtual time, returning the timer that controls the delivery.
func (h *Handle) Schedule(stream *EventStream, msg any, delay float64) *Timer {
	if stream.loop != h.EventLoop {
		panic("EventStream belongs to a different EventLoop")
	}
	var timer *Timer
	h.modify(func() {
		timer = &Timer{
			time:  h.time + delay,
			event: &Event{Message: msg, Stream: stream},
		}
		if math.IsInf(timer.time, 0) || math.IsNaN(timer.time) {
			panic(fmt.Sprintf("invalid deadline: %f", timer.time))
		}
		h.timers = append(h.timers, timer)
	})
	return timer
}

// Cancel stops a timer. Canceling a timer that already fired or was never
// scheduled has no effect.
func (h *Handle) Cancel(t *Timer) {
	h.modify(func() {
		for i, timer := range h.timers {
			if timer == t {
				essentials.UnorderedDelete(&h.timers, i)
			}
		}
	})
}

// Sleep blocks until delay units of virtual time have elapsed.
func (h *Handle) Sleep(delay float64) {
	stream := h.Stream()
	h.Schedule(stream, nil, delay)
	h.Poll(stream)
}

// An EventLoop is the global scheduler for a simulated process group.
//
// Every goroutine that touches the loop must be started through Go().
// The loop only steps the clock when all active goroutines are polling;
// a state where every goroutine polls and no timer is pending is reported
// as a deadlock.
type EventLoop struct {
	lock    sync.Mutex
	timers  []*Timer
	handles []*Handle

	time float64

	running  bool
	notifyCh chan struct{}
}

// NewEventLoop creates an event loop with its clock at 0.
func NewEventLoop() *EventLoop {
	return &EventLoop{notifyCh: make(chan struct{}, 1)}
}

// Stream creates a new EventStream bound to this loop.
func (e *EventLoop) Stream() *EventStream {
	return &EventStream{loop: e}
}

// Go runs f in its own goroutine with a fresh Handle.
func (e *EventLoop) Go(f func(h *Handle)) {
	h := &Handle{EventLoop: e}
	e.lock.Lock()
	e.handles = append(e.handles, h)
	e.lock.Unlock()
	go func() {
		f(h)
		e.modifyHandles(func() {
			for i, handle := range e.handles {
				if handle == h {
					essentials.UnorderedDelete(&e.handles, i)
					return
				}
			}
			panic("cannot free handle that does not exist")
		})
	}()
}

// Run drives the loop until every handle has been released.
//
// It is not safe to run the loop from more than one goroutine at once.
//
// Returns an error if the group deadlocks: all goroutines polling with no
// timer left to fire.
func (e *EventLoop) Run() error {
	e.lock.Lock()
	if e.running {
		e.lock.Unlock()
		panic("EventLoop is already running")
	}
	e.running = true
	e.lock.Unlock()

	defer func() {
		e.lock.Lock()
		e.running = false
		e.lock.Unlock()
	}()

	for range e.notifyCh {
		if shouldContinue, err := e.step(); !shouldContinue {
			return err
		}
	}

	panic("unreachable")
}

// MustRun is like Run, but panics on deadlock.
func (e *EventLoop) MustRun() {
	if err := e.Run(); err != nil {
		panic(err)
	}
}

// Time gets the current virtual time.
func (e *EventLoop) Time() float64 {
	e.lock.Lock()
	defer e.lock.Unlock()
	return e.time
}

// modify runs f with the loop state locked. It assumes no handle state
// changes, i.e. no scheduling decision can be affected. Otherwise use
// modifyHandles.
func (e *EventLoop) modify(f func()) {
	e.lock.Lock()
	defer e.lock.Unlock()
	f()
}

// modifyHandles is like modify, but wakes the loop afterwards because f
// may have changed which goroutines are pollable.
func (e *EventLoop) modifyHandles(f func()) {
	e.lock.Lock()
	defer func() {
		e.lock.Unlock()
		select {
		case e.notifyCh <- struct{}{}:
		default:
		}
	}()
	f()
}

// step fires the next timer, if any. The first return value is false once
// the loop can make no more progress; the error reports a deadlock.
func (e *EventLoop) step() (bool, error) {
	e.lock.Lock()
	defer e.lock.Unlock()

	if len(e.handles) == 0 {
		return false, nil
	}

	for _, h := range e.handles {
		if len(h.pollStreams) == 0 {
			// A goroutine is computing in real time; let it finish
			// before advancing the clock.
			return true, nil
		}
	}

	for len(e.timers) > 0 {
		// Shuffle so that timers with equal deadlines don't fire in a
		// deterministic order.
		indices := rand.Perm(len(e.timers))

		minTimerIdx := indices[0]
		for _, i := range indices[1:] {
			if e.timers[i].time < e.timers[minTimerIdx].time {
				minTimerIdx = i
			}
		}
		timer := e.timers[minTimerIdx]

		essentials.UnorderedDelete(&e.timers, minTimerIdx)
		e.time = math.Max(e.time, timer.time)
		if e.deliver(timer.event) {
			return true, nil
		}
	}

	return false, errors.New("deadlock: all Handles are polling")
}

func (e *EventLoop) deliver(event *Event) bool {
	// Shuffle the handles so that two receivers don't observe messages in
	// a deterministic order.
	indices := rand.Perm(len(e.handles))
	for _, i := range indices {
		h := e.handles[i]
		for _, stream := range h.pollStreams {
			if stream == event.Stream {
				h.pollChan <- event
				h.pollChan = nil
				h.pollStreams = nil
				return true
			}
		}
	}
	event.Stream.pending = append(event.Stream.pending, event.Message)
	return false
}
