package geometry

import "container/heap"

// triangleArea returns the area of the triangle spanned by three vertices.
func triangleArea(a, b, c Point) float64 {
	cross := (b.X-a.X)*(c.Y-a.Y) - (c.X-a.X)*(b.Y-a.Y)
	if cross < 0 {
		cross = -cross
	}
	return float64(cross) / 2
}

// vwEntry is a heap entry for one interior vertex. Entries go stale when a
// neighbor removal changes the vertex's effective area; stale entries are
// skipped on pop (lazy deletion).
type vwEntry struct {
	index   int
	version int
	area    float64
}

type vwHeap []vwEntry

func (h vwHeap) Len() int            { return len(h) }
func (h vwHeap) Less(i, j int) bool  { return h[i].area < h[j].area }
func (h vwHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *vwHeap) Push(x any)         { *h = append(*h, x.(vwEntry)) }
func (h *vwHeap) Pop() any {
	old := *h
	n := len(old)
	entry := old[n-1]
	*h = old[:n-1]
	return entry
}

// vwQueue removes vertices one at a time in Visvalingam–Whyatt order: the
// interior vertex spanning the smallest triangle with its current neighbors
// goes first. The first and last vertices are never removed. Effective areas
// are kept monotone so removal order is stable when a neighbor's recomputed
// triangle shrinks below an already removed one.
type vwQueue struct {
	poly     Polygon
	prev     []int
	next     []int
	removed  []bool
	version  []int
	heap     vwHeap
	alive    int
	lastArea float64
}

func newVWQueue(polygon Polygon) *vwQueue {
	n := len(polygon)
	q := &vwQueue{
		poly:    polygon,
		prev:    make([]int, n),
		next:    make([]int, n),
		removed: make([]bool, n),
		version: make([]int, n),
		alive:   n,
	}
	for i := range polygon {
		q.prev[i] = i - 1
		q.next[i] = i + 1
	}
	q.heap = make(vwHeap, 0, n)
	for i := 1; i < n-1; i++ {
		q.heap = append(q.heap, vwEntry{
			index: i,
			area:  triangleArea(polygon[i-1], polygon[i], polygon[i+1]),
		})
	}
	heap.Init(&q.heap)
	return q
}

// removeOne removes the current minimum-area interior vertex. It reports
// false when only the endpoints remain.
func (q *vwQueue) removeOne() bool {
	for q.heap.Len() > 0 {
		entry := heap.Pop(&q.heap).(vwEntry)
		i := entry.index
		if q.removed[i] || entry.version != q.version[i] {
			continue
		}

		if entry.area > q.lastArea {
			q.lastArea = entry.area
		}

		q.removed[i] = true
		q.alive--

		p, nx := q.prev[i], q.next[i]
		q.next[p] = nx
		q.prev[nx] = p

		for _, j := range [2]int{p, nx} {
			if j <= 0 || j >= len(q.poly)-1 {
				continue
			}
			area := triangleArea(q.poly[q.prev[j]], q.poly[j], q.poly[q.next[j]])
			if area < q.lastArea {
				area = q.lastArea
			}
			q.version[j]++
			heap.Push(&q.heap, vwEntry{index: j, version: q.version[j], area: area})
		}
		return true
	}
	return false
}

// polygon returns the surviving vertices in their original order.
func (q *vwQueue) polygon() Polygon {
	out := make(Polygon, 0, q.alive)
	for i, p := range q.poly {
		if !q.removed[i] {
			out = append(out, p)
		}
	}
	return out
}

// Simplify reduces the polygon to at most n vertices with Visvalingam–Whyatt
// simplification. The endpoints are always kept, so n below 2 yields the two
// endpoints. Polygons already within the limit are returned as a copy.
func Simplify(polygon Polygon, n int) Polygon {
	if len(polygon) <= 2 || n >= len(polygon) {
		out := make(Polygon, len(polygon))
		copy(out, polygon)
		return out
	}
	q := newVWQueue(polygon)
	for q.alive > n {
		if !q.removeOne() {
			break
		}
	}
	return q.polygon()
}

// SimplifyToEncodedLimit removes vertices in Visvalingam–Whyatt order, one
// at a time, until the encoded polygon string fits maxLen characters. The
// polygon is returned unchanged when it already fits.
func SimplifyToEncodedLimit(polygon Polygon, maxLen int) Polygon {
	if len(PolygonToString(polygon)) <= maxLen {
		out := make(Polygon, len(polygon))
		copy(out, polygon)
		return out
	}
	q := newVWQueue(polygon)
	current := polygon
	for len(PolygonToString(current)) > maxLen {
		if !q.removeOne() {
			break
		}
		current = q.polygon()
	}
	return current
}
