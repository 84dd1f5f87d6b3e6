package algorithms

import (
	"container/list"
	"sort"

	"github.com/dd0wney/anchorlink/pkg/mesh"
)

// BuildComponents groups line elements into connected components.
//
// Self-loops and repeated element ids are rejected. Components are numbered
// in ascending order of their smallest element id, so the result does not
// depend on input order.
func BuildComponents(elements []mesh.LineElement) *ComponentResult {
	result := &ComponentResult{
		Components:    make([]*Component, 0),
		Rejected:      make([]*DegenerateElementError, 0),
		NodeComponent: make(map[int64]int),
	}

	sorted := make([]mesh.LineElement, len(elements))
	copy(sorted, elements)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].ID < sorted[j].ID })

	accepted := make([]mesh.LineElement, 0, len(sorted))
	for i, e := range sorted {
		if i > 0 && sorted[i-1].ID == e.ID {
			result.Rejected = append(result.Rejected, &DegenerateElementError{ElementID: e.ID, Reason: "duplicate element id"})
			continue
		}
		if e.NodeA == e.NodeB {
			result.Rejected = append(result.Rejected, &DegenerateElementError{ElementID: e.ID, Reason: "self-loop"})
			continue
		}
		accepted = append(accepted, e)
	}

	// node -> indices into accepted
	incident := make(map[int64][]int)
	for i, e := range accepted {
		incident[e.NodeA] = append(incident[e.NodeA], i)
		incident[e.NodeB] = append(incident[e.NodeB], i)
	}

	visitedElem := make([]bool, len(accepted))
	visitedNode := make(map[int64]bool)
	componentID := 0

	for start := range accepted {
		if visitedElem[start] {
			continue
		}

		comp := &Component{
			ID:       componentID,
			Nodes:    make([]int64, 0),
			Elements: make([]int64, 0),
			Degree:   make(map[int64]int),
		}

		queue := list.New()
		queue.PushBack(accepted[start].NodeA)
		visitedNode[accepted[start].NodeA] = true

		for queue.Len() > 0 {
			nodeID, ok := queue.Remove(queue.Front()).(int64)
			if !ok {
				continue
			}
			comp.Nodes = append(comp.Nodes, nodeID)
			comp.Degree[nodeID] = len(incident[nodeID])
			result.NodeComponent[nodeID] = componentID

			for _, ei := range incident[nodeID] {
				if !visitedElem[ei] {
					visitedElem[ei] = true
					comp.Elements = append(comp.Elements, accepted[ei].ID)
				}
				other := accepted[ei].NodeA
				if other == nodeID {
					other = accepted[ei].NodeB
				}
				if !visitedNode[other] {
					visitedNode[other] = true
					queue.PushBack(other)
				}
			}
		}

		sort.Slice(comp.Nodes, func(i, j int) bool { return comp.Nodes[i] < comp.Nodes[j] })
		sort.Slice(comp.Elements, func(i, j int) bool { return comp.Elements[i] < comp.Elements[j] })
		result.Components = append(result.Components, comp)
		componentID++
	}

	return result
}
