package simulator

import (
	"math"
	"sync"
)

// A SwitcherNetwork is a network where data flows through a Switcher.
// Messages sharing an edge are transmitted concurrently, so each one may
// take longer to arrive.
type SwitcherNetwork struct {
	lock sync.Mutex

	switcher Switcher
	nodes    []*Node
	latency  float64

	plan switchedPlan
}

// NewSwitcherNetwork creates a new SwitcherNetwork.
//
// The latency argument adds a constant-length delay to every message
// delivery. The latency period participates in oversubscription, so one
// message's latency can interfere with another message's transmission;
// in practice this roughly doubles latency-based congestion compared to a
// real network.
func NewSwitcherNetwork(switcher Switcher, nodes []*Node, latency float64) *SwitcherNetwork {
	return &SwitcherNetwork{
		switcher: switcher,
		nodes:    nodes,
		latency:  latency,
	}
}

// Send sends the messages over the network.
//
// This may change the speed of messages already in flight.
func (s *SwitcherNetwork) Send(h *Handle, msgs ...*Message) {
	s.lock.Lock()
	defer s.lock.Unlock()

	state := s.stopPlan(h)
	for _, msg := range msgs {
		state = append(state, &switchedMsg{
			msg:              msg,
			remainingLatency: s.latency,
			remainingSize:    msg.Size,
		})
	}
	s.createPlan(h, state)
}

func (s *SwitcherNetwork) stopPlan(h *Handle) []*switchedMsg {
	var currentState []*switchedMsg
	for _, step := range s.plan {
		if h.Time() >= step.endTime {
			// The timers may already have fired; let this segment go.
			continue
		}
		if h.Time() >= step.startTime {
			// Interpolate within the current segment.
			elapsed := h.Time() - step.startTime
			for _, msg := range step.startState {
				currentState = append(currentState, msg.AddTime(elapsed))
			}
		}
		for _, timer := range step.timers {
			h.Cancel(timer)
		}
	}
	return currentState
}

func (s *SwitcherNetwork) computeDataRates(state []*switchedMsg) {
	nodeToIndex := map[*Node]int{}
	for i, node := range s.nodes {
		nodeToIndex[node] = i
	}

	// Slightly inexact: during the latency period the sender NIC is
	// occupied but the receiver NIC is not, which this ignores.

	mat := NewConnMat(len(s.nodes))
	counts := NewConnMat(len(s.nodes))
	for _, msg := range state {
		src, dst := nodeToIndex[msg.msg.Source.Node], nodeToIndex[msg.msg.Dest.Node]
		mat.Set(src, dst, 1)
		counts.Set(src, dst, counts.Get(src, dst)+1)
	}
	s.switcher.SwitchedRates(mat)
	for _, msg := range state {
		src, dst := nodeToIndex[msg.msg.Source.Node], nodeToIndex[msg.msg.Dest.Node]
		msg.dataRate = mat.Get(src, dst) / counts.Get(src, dst)
	}
}

func (s *SwitcherNetwork) createPlan(h *Handle, state []*switchedMsg) {
	s.plan = make(switchedPlan, 0, len(state))
	startTime := h.Time()
	for len(state) > 0 {
		s.computeDataRates(state)

		nextMsgs, newState, lowestETA := messagesWithLowestETA(state)

		timers := make([]*Timer, len(nextMsgs))
		for i, msg := range nextMsgs {
			delay := startTime - h.Time() + lowestETA
			timers[i] = h.Schedule(msg.msg.Dest.Incoming, msg.msg, delay)
		}

		endTime := timers[0].Time()
		s.plan = append(s.plan, &switchedPlanSegment{
			startTime:  startTime,
			endTime:    endTime,
			timers:     timers,
			startState: state,
		})

		for i, msg := range newState {
			newState[i] = msg.AddTime(endTime - startTime)
		}
		state = newState
		startTime = endTime
	}
}

// switchedMsg is the in-flight state of one message.
type switchedMsg struct {
	msg *Message

	remainingLatency float64

	remainingSize float64
	dataRate      float64
}

// ETA gets the time until the message is fully delivered.
func (s *switchedMsg) ETA() float64 {
	return math.Max(0, s.remainingLatency+s.remainingSize/s.dataRate)
}

// AddTime returns the message's state after t units of time elapse.
func (s *switchedMsg) AddTime(t float64) *switchedMsg {
	res := *s

	if t < res.remainingLatency {
		res.remainingLatency -= t
		return &res
	}

	t -= res.remainingLatency
	res.remainingLatency = 0
	res.remainingSize -= res.dataRate * t

	return &res
}

// switchedPlanSegment is a period of time during which the message state
// changes only by data flowing or latency being paid down. Each segment
// ends with at least one Timer delivering a message.
type switchedPlanSegment struct {
	startTime float64
	endTime   float64
	timers    []*Timer

	startState []*switchedMsg
}

// switchedPlan is a sequence of segments that, together, deliver every
// message currently on the network.
type switchedPlan []*switchedPlanSegment

func messagesWithLowestETA(msgs []*switchedMsg) (lowest, rest []*switchedMsg, lowestETA float64) {
	etas := make([]float64, len(msgs))
	for i, msg := range msgs {
		etas[i] = msg.ETA()
	}
	lowestETA = etas[0]
	for _, eta := range etas {
		if eta < lowestETA {
			lowestETA = eta
		}
	}

	lowest = make([]*switchedMsg, 0, 1)
	rest = make([]*switchedMsg, 0, len(msgs)-1)

	for i, msg := range msgs {
		if etas[i] == lowestETA {
			lowest = append(lowest, msg)
		} else {
			rest = append(rest, msg)
		}
	}

	return lowest, rest, lowestETA
}
