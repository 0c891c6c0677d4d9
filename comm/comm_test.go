package comm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flowtools/redist/simulator"
)

// runGroup spawns a communicator group of the given size over the network
// and runs fn on every rank, failing the test on deadlock.
func runGroup(t *testing.T, size int, network simulator.Network, fn func(c *Comm)) {
	t.Helper()
	loop := simulator.NewEventLoop()
	nodes := make([]*simulator.Node, size)
	for i := range nodes {
		nodes[i] = simulator.NewNode()
	}
	if network == nil {
		network = simulator.RandomNetwork{}
	}
	Spawn(loop, network, nodes, fn)
	require.NoError(t, loop.Run())
}

func TestSendRecvTagMatching(t *testing.T) {
	// Rank 1 asks for the tags in the opposite order of sending; the
	// mismatching arrival must be stashed, not lost.
	runGroup(t, 2, nil, func(c *Comm) {
		switch c.Rank() {
		case 0:
			Send(c, 1, 7, []float64{1, 2, 3})
			Send(c, 1, 8, []float64{4, 5})
		case 1:
			second := Recv[float64](c, 0, 8)
			first := Recv[float64](c, 0, 7)
			assert.Equal(t, []float64{4, 5}, second)
			assert.Equal(t, []float64{1, 2, 3}, first)
		}
	})
}

func TestSendCopiesPayload(t *testing.T) {
	runGroup(t, 2, nil, func(c *Comm) {
		switch c.Rank() {
		case 0:
			buf := []int32{10, 20, 30}
			Send(c, 1, 0, buf)
			// Reuse after local completion must not corrupt the
			// in-flight message.
			buf[0] = -1
		case 1:
			got := Recv[int32](c, 0, 0)
			assert.Equal(t, []int32{10, 20, 30}, got)
		}
	})
}

func TestSelfSend(t *testing.T) {
	runGroup(t, 3, nil, func(c *Comm) {
		if c.Rank() == 2 {
			Send(c, 2, 5, []uint64{42})
			assert.Equal(t, []uint64{42}, Recv[uint64](c, 2, 5))
		}
	})
}

func TestAlltoallCounts(t *testing.T) {
	const size = 4
	runGroup(t, size, nil, func(c *Comm) {
		send := make([]uint64, size)
		for r := range send {
			send[r] = uint64(c.Rank()*10 + r)
		}
		recv := make([]uint64, size)
		c.AlltoallCounts(send, recv)
		for r := range recv {
			assert.Equal(t, uint64(r*10+c.Rank()), recv[r],
				"count from rank %d at rank %d", r, c.Rank())
		}
	})
}

func TestAllgatherCounts(t *testing.T) {
	runGroup(t, 5, nil, func(c *Comm) {
		counts := c.AllgatherCounts(uint64(c.Rank() + 1))
		assert.Equal(t, []uint64{1, 2, 3, 4, 5}, counts)
	})
}

func TestCollectiveSequencing(t *testing.T) {
	// Two back-to-back collectives must not cross-match, whatever the
	// delivery order.
	runGroup(t, 4, nil, func(c *Comm) {
		first := c.AllgatherCounts(uint64(c.Rank()))
		second := c.AllgatherCounts(uint64(100 + c.Rank()))
		assert.Equal(t, []uint64{0, 1, 2, 3}, first)
		assert.Equal(t, []uint64{100, 101, 102, 103}, second)
	})
}

func TestGathervScattervRoundTrip(t *testing.T) {
	counts := []uint64{3, 1, 4, 2}
	original := []float64{0, 1, 2, 3, 4, 5, 6, 7, 8, 9}
	const root = 1

	runGroup(t, 4, nil, func(c *Comm) {
		var buf []float64
		if c.Rank() == root {
			buf = original
		}
		local := Scatterv(c, buf, counts, root)
		assert.Len(t, local, int(counts[c.Rank()]))

		gathered := Gatherv(c, local, counts, root)
		if c.Rank() == root {
			assert.Equal(t, original, gathered)
		} else {
			assert.Nil(t, gathered)
		}
	})
}

func TestScattervNilCountsOffRoot(t *testing.T) {
	// Only root knows the count table; the data message itself sizes the
	// local buffer everywhere else.
	counts := []uint64{2, 3}
	runGroup(t, 2, nil, func(c *Comm) {
		var local []int64
		if c.Rank() == 0 {
			local = Scatterv(c, []int64{5, 6, 7, 8, 9}, counts, 0)
		} else {
			local = Scatterv[int64](c, nil, nil, 0)
		}
		if c.Rank() == 0 {
			assert.Equal(t, []int64{5, 6}, local)
		} else {
			assert.Equal(t, []int64{7, 8, 9}, local)
		}
	})
}

func TestOffsets(t *testing.T) {
	assert.Equal(t, []uint64{0, 3, 4, 8}, Offsets([]uint64{3, 1, 4, 2}))
	assert.Empty(t, Offsets(nil))
}

func TestSkippedCollectiveDeadlocks(t *testing.T) {
	loop := simulator.NewEventLoop()
	nodes := make([]*simulator.Node, 3)
	for i := range nodes {
		nodes[i] = simulator.NewNode()
	}
	Spawn(loop, simulator.RandomNetwork{}, nodes, func(c *Comm) {
		if c.Rank() == 0 {
			// Desynchronized rank: never calls in.
			return
		}
		c.AllgatherCounts(1)
	})
	require.Error(t, loop.Run())
}
