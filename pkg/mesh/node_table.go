package mesh

import (
	"errors"
	"fmt"
	"sort"
)

var (
	// ErrEmptyNodeTable is returned when no nodes were supplied.
	ErrEmptyNodeTable = errors.New("node table is empty")
	// ErrDuplicateNode is returned when two nodes share an id.
	ErrDuplicateNode = errors.New("duplicate node id")
)

// NodeTable is a read-only id lookup built once per run.
type NodeTable struct {
	nodes map[int64]Node
	ids   []int64
}

// NewNodeTable indexes nodes by id.
func NewNodeTable(nodes []Node) (*NodeTable, error) {
	if len(nodes) == 0 {
		return nil, ErrEmptyNodeTable
	}

	t := &NodeTable{
		nodes: make(map[int64]Node, len(nodes)),
		ids:   make([]int64, 0, len(nodes)),
	}
	for _, n := range nodes {
		if _, exists := t.nodes[n.ID]; exists {
			return nil, fmt.Errorf("%w: %d", ErrDuplicateNode, n.ID)
		}
		t.nodes[n.ID] = n
		t.ids = append(t.ids, n.ID)
	}
	sort.Slice(t.ids, func(i, j int) bool { return t.ids[i] < t.ids[j] })
	return t, nil
}

// Get returns the node with the given id.
func (t *NodeTable) Get(id int64) (Node, bool) {
	n, ok := t.nodes[id]
	return n, ok
}

// Has reports whether id is a known node.
func (t *NodeTable) Has(id int64) bool {
	_, ok := t.nodes[id]
	return ok
}

// Point returns the position of id.
func (t *NodeTable) Point(id int64) (Point, bool) {
	n, ok := t.nodes[id]
	return n.Point(), ok
}

// Len returns the number of nodes.
func (t *NodeTable) Len() int {
	return len(t.nodes)
}

// IDs returns all node ids in ascending order. Callers must not modify the slice.
func (t *NodeTable) IDs() []int64 {
	return t.ids
}
