package simulator

// A ConnMat tracks the data rate between every ordered pair of nodes:
// row = sending node, column = receiving node.
type ConnMat struct {
	rows [][]float64
}

// NewConnMat creates an all-zero connection matrix.
func NewConnMat(numNodes int) *ConnMat {
	backing := make([]float64, numNodes*numNodes)
	rows := make([][]float64, numNodes)
	for i := range rows {
		rows[i] = backing[i*numNodes : (i+1)*numNodes]
	}
	return &ConnMat{rows: rows}
}

// NumNodes returns the number of nodes.
func (c *ConnMat) NumNodes() int {
	return len(c.rows)
}

// Get an entry in the matrix.
func (c *ConnMat) Get(src, dst int) float64 {
	return c.rows[src][dst]
}

// Set an entry in the matrix.
func (c *ConnMat) Set(src, dst int, value float64) {
	c.rows[src][dst] = value
}

// SumSource sums the rates leaving src.
func (c *ConnMat) SumSource(src int) float64 {
	var sum float64
	for _, v := range c.rows[src] {
		sum += v
	}
	return sum
}

// SumDest sums the rates arriving at dst.
func (c *ConnMat) SumDest(dst int) float64 {
	var sum float64
	for _, row := range c.rows {
		sum += row[dst]
	}
	return sum
}

// ScaleSource multiplies every rate leaving src by scale.
func (c *ConnMat) ScaleSource(src int, scale float64) {
	row := c.rows[src]
	for i := range row {
		row[i] *= scale
	}
}

// ScaleDest multiplies every rate arriving at dst by scale.
func (c *ConnMat) ScaleDest(dst int, scale float64) {
	for _, row := range c.rows {
		row[dst] *= scale
	}
}
