package simulator

// A Switcher is a switching algorithm that decides how fast data moves
// along each edge of a node graph, including how oversubscription is
// resolved.
type Switcher interface {
	// Apply the switching algorithm to compute per-connection transfer
	// rates.
	//
	// On entry, mat holds 1 wherever a node wants to send to another
	// node and 0 everywhere else. On return, mat holds the data rate
	// between every pair of nodes.
	SwitchedRates(mat *ConnMat)
}

// A GreedyDropSwitcher emulates a switch where a node's outgoing data is
// spread evenly across its outputs, and a node's inputs are dropped
// uniformly at random when it is oversubscribed.
//
// Equivalent to normalizing the rows of a connection matrix and then
// normalizing the columns.
type GreedyDropSwitcher struct {
	SendRates []float64
	RecvRates []float64
}

// NewGreedyDropSwitcher creates a GreedyDropSwitcher with uniform upload
// and download rates across all nodes.
func NewGreedyDropSwitcher(numNodes int, rate float64) *GreedyDropSwitcher {
	rates := make([]float64, numNodes)
	for i := range rates {
		rates[i] = rate
	}
	return &GreedyDropSwitcher{
		SendRates: rates,
		RecvRates: rates,
	}
}

// NumNodes gets the number of nodes the switch expects.
func (g *GreedyDropSwitcher) NumNodes() int {
	return len(g.SendRates)
}

// SwitchedRates performs the switching algorithm.
func (g *GreedyDropSwitcher) SwitchedRates(mat *ConnMat) {
	if mat.NumNodes() != g.NumNodes() {
		panic("unexpected number of nodes")
	}
	g.spreadUploads(mat)
	g.dropOverloadedDownloads(mat)
}

// spreadUploads splits each node's upload rate evenly across the
// connections it wants to send on.
func (g *GreedyDropSwitcher) spreadUploads(mat *ConnMat) {
	for src, rate := range g.SendRates {
		if numDests := mat.SumSource(src); numDests > 0 {
			mat.ScaleSource(src, rate/numDests)
		}
	}
}

// dropOverloadedDownloads clamps each node's incoming traffic to its
// download rate, dropping every inbound connection proportionally.
func (g *GreedyDropSwitcher) dropOverloadedDownloads(mat *ConnMat) {
	for dst, rate := range g.RecvRates {
		if incoming := mat.SumDest(dst); incoming > rate {
			mat.ScaleDest(dst, rate/incoming)
		}
	}
}
