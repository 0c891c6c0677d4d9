package comm

// countBytes is the wire size of one element count.
const countBytes = 8.0

// AlltoallCounts exchanges one element count with every other rank:
// send[r] goes to rank r, and recv[r] ends up holding the count that rank
// r sent here. Both vectors must have length Size().
func (c *Comm) AlltoallCounts(send, recv []uint64) {
	if len(send) != c.Size() || len(recv) != c.Size() {
		panic("count vector length does not match group size")
	}
	tag := c.collTag()
	for r := range c.ports {
		if r == c.rank {
			continue
		}
		c.send(r, tag, send[r], countBytes)
	}
	recv[c.rank] = send[c.rank]
	for i := 0; i < c.Size()-1; i++ {
		src, payload := c.recvTag(tag)
		recv[src] = payload.(uint64)
	}
}

// AllgatherCounts makes every rank's count known to every rank. The
// returned vector is indexed by rank and identical across the group.
func (c *Comm) AllgatherCounts(n uint64) []uint64 {
	tag := c.collTag()
	counts := make([]uint64, c.Size())
	for r := range c.ports {
		if r == c.rank {
			continue
		}
		c.send(r, tag, n, countBytes)
	}
	counts[c.rank] = n
	for i := 0; i < c.Size()-1; i++ {
		src, payload := c.recvTag(tag)
		counts[src] = payload.(uint64)
	}
	return counts
}

// Offsets returns each rank's prefix-sum offset within a buffer that
// concatenates per-rank slices in ascending rank order.
func Offsets(counts []uint64) []uint64 {
	offs := make([]uint64, len(counts))
	var total uint64
	for i, n := range counts {
		offs[i] = total
		total += n
	}
	return offs
}

// Gatherv collects every rank's flat buffer into one contiguous buffer at
// root, with each rank's contribution landing at its prefix-sum offset in
// ascending rank order. The count vector must already be identically
// known to all ranks (see AllgatherCounts). Non-root ranks return nil.
func Gatherv[T Elem](c *Comm, local []T, counts []uint64, root int) []T {
	tag := c.collTag()
	if c.rank != root {
		Send(c, root, tag, local)
		return nil
	}

	offs := Offsets(counts)
	var total uint64
	for _, n := range counts {
		total += n
	}
	out := make([]T, total)
	copy(out[offs[root]:offs[root]+counts[root]], local)
	for i := 0; i < c.Size()-1; i++ {
		src, payload := c.recvTag(tag)
		copy(out[offs[src]:offs[src]+counts[src]], payload.([]T))
	}
	return out
}

// Scatterv slices root's contiguous buffer out to every rank, rank r
// receiving counts[r] elements starting at r's prefix-sum offset. Root
// must supply counts; other ranks may pass nil counts, in which case the
// received message itself determines the local buffer length. Every rank,
// root included, returns its own freshly allocated slice.
func Scatterv[T Elem](c *Comm, buf []T, counts []uint64, root int) []T {
	tag := c.collTag()
	if c.rank == root {
		if counts == nil {
			panic("root must supply a count vector")
		}
		offs := Offsets(counts)
		for r := range c.ports {
			if r == root {
				continue
			}
			Send(c, r, tag, buf[offs[r]:offs[r]+counts[r]])
		}
		out := make([]T, counts[root])
		copy(out, buf[offs[root]:])
		return out
	}

	payload := c.recvMatch(root, tag).([]T)
	n := len(payload)
	if counts != nil {
		n = int(counts[c.rank])
	}
	out := make([]T, n)
	copy(out, payload)
	return out
}
