package spatial

import (
	"container/heap"
	"sort"

	"github.com/dd0wney/anchorlink/pkg/mesh"
)

type item struct {
	id    int64
	coord [3]float64
}

// Index is a static 3-d k-d tree over a node set. It is read-only once built
// and safe for concurrent queries.
//
// The tree is stored implicitly: for a range [lo, hi) the splitting item sits
// at the midpoint and the split axis is depth mod 3.
type Index struct {
	items []item
}

// Build constructs an index over nodes.
func Build(nodes []mesh.Node) (*Index, error) {
	if len(nodes) == 0 {
		return nil, ErrEmptySet
	}

	items := make([]item, len(nodes))
	for i, n := range nodes {
		items[i] = item{id: n.ID, coord: [3]float64{n.X, n.Y, n.Z}}
	}

	idx := &Index{items: items}
	idx.build(0, len(items), 0)
	return idx, nil
}

func (idx *Index) build(lo, hi, depth int) {
	if hi-lo <= 1 {
		return
	}
	axis := depth % 3
	part := idx.items[lo:hi]
	sort.Slice(part, func(i, j int) bool {
		if part[i].coord[axis] != part[j].coord[axis] {
			return part[i].coord[axis] < part[j].coord[axis]
		}
		return part[i].id < part[j].id
	})
	mid := lo + (hi-lo)/2
	idx.build(lo, mid, depth+1)
	idx.build(mid+1, hi, depth+1)
}

// Len returns the number of indexed points.
func (idx *Index) Len() int {
	return len(idx.items)
}

// QueryRadius returns every point within radius of p (inclusive), nearest first.
// Equal distances are ordered by ascending id.
func (idx *Index) QueryRadius(p mesh.Point, radius float64) []Neighbor {
	if radius < 0 {
		return nil
	}
	q := [3]float64{p.X, p.Y, p.Z}
	out := make([]Neighbor, 0)
	idx.radius(q, p, radius, 0, len(idx.items), 0, &out)
	sortNeighbors(out)
	return out
}

func (idx *Index) radius(q [3]float64, p mesh.Point, r float64, lo, hi, depth int, out *[]Neighbor) {
	if lo >= hi {
		return
	}
	mid := lo + (hi-lo)/2
	it := idx.items[mid]
	if d := Distance(p, it.point()); d <= r {
		*out = append(*out, Neighbor{ID: it.id, Distance: d})
	}

	axis := depth % 3
	diff := q[axis] - it.coord[axis]
	if diff <= 0 {
		idx.radius(q, p, r, lo, mid, depth+1, out)
		if -diff <= r {
			idx.radius(q, p, r, mid+1, hi, depth+1, out)
		}
	} else {
		idx.radius(q, p, r, mid+1, hi, depth+1, out)
		if diff <= r {
			idx.radius(q, p, r, lo, mid, depth+1, out)
		}
	}
}

// QueryKNearest returns the min(k, Len()) points nearest to p, nearest first.
func (idx *Index) QueryKNearest(p mesh.Point, k int) []Neighbor {
	if k <= 0 {
		return nil
	}
	if k > len(idx.items) {
		k = len(idx.items)
	}
	q := [3]float64{p.X, p.Y, p.Z}
	h := make(neighborHeap, 0, k+1)
	idx.nearest(q, p, k, 0, len(idx.items), 0, &h)

	out := make([]Neighbor, len(h))
	copy(out, h)
	sortNeighbors(out)
	return out
}

func (idx *Index) nearest(q [3]float64, p mesh.Point, k, lo, hi, depth int, h *neighborHeap) {
	if lo >= hi {
		return
	}
	mid := lo + (hi-lo)/2
	it := idx.items[mid]
	cand := Neighbor{ID: it.id, Distance: Distance(p, it.point())}
	if h.Len() < k {
		heap.Push(h, cand)
	} else if less(cand, (*h)[0]) {
		(*h)[0] = cand
		heap.Fix(h, 0)
	}

	axis := depth % 3
	diff := q[axis] - it.coord[axis]
	near, far := [2]int{lo, mid}, [2]int{mid + 1, hi}
	if diff > 0 {
		near, far = far, near
	}
	idx.nearest(q, p, k, near[0], near[1], depth+1, h)

	// Ties on the worst distance may still be won by a smaller id on the far side.
	if diff < 0 {
		diff = -diff
	}
	if h.Len() < k || diff <= (*h)[0].Distance {
		idx.nearest(q, p, k, far[0], far[1], depth+1, h)
	}
}

func (it item) point() mesh.Point {
	return mesh.Point{X: it.coord[0], Y: it.coord[1], Z: it.coord[2]}
}
