package spatial

import (
	"errors"
	"math"
	"sort"

	"github.com/dd0wney/anchorlink/pkg/mesh"
)

// ErrEmptySet is returned when an index is built from no points.
var ErrEmptySet = errors.New("spatial index: empty point set")

// Neighbor is a query hit.
type Neighbor struct {
	ID       int64
	Distance float64
}

// Distance returns the Euclidean distance between two points.
func Distance(a, b mesh.Point) float64 {
	dx := a.X - b.X
	dy := a.Y - b.Y
	dz := a.Z - b.Z
	return math.Sqrt(dx*dx + dy*dy + dz*dz)
}

// less orders neighbors by distance, then by id.
func less(a, b Neighbor) bool {
	if a.Distance != b.Distance {
		return a.Distance < b.Distance
	}
	return a.ID < b.ID
}

func sortNeighbors(ns []Neighbor) {
	sort.Slice(ns, func(i, j int) bool { return less(ns[i], ns[j]) })
}

// neighborHeap is a max-heap: the worst candidate sits on top.
type neighborHeap []Neighbor

func (h neighborHeap) Len() int { return len(h) }

func (h neighborHeap) Less(i, j int) bool {
	return less(h[j], h[i])
}

func (h neighborHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
}

func (h *neighborHeap) Push(x any) {
	*h = append(*h, x.(Neighbor))
}

func (h *neighborHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[0 : n-1]
	return item
}
