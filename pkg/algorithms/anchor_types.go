package algorithms

import (
	"errors"
	"fmt"

	"github.com/dd0wney/anchorlink/pkg/mesh"
)

var (
	// ErrDegenerateElement marks a line element that cannot be part of an anchor.
	ErrDegenerateElement = errors.New("degenerate element")
	// ErrInvalidComponent marks a component without exactly two open ends.
	ErrInvalidComponent = errors.New("invalid anchor component")
)

// Component is a connected group of anchor elements.
type Component struct {
	ID       int
	Nodes    []int64       // ascending
	Elements []int64       // ascending
	Degree   map[int64]int // incident element count per node
}

// Size returns the number of nodes in the component.
func (c *Component) Size() int {
	return len(c.Nodes)
}

// ComponentResult is the output of BuildComponents.
type ComponentResult struct {
	Components    []*Component
	Rejected      []*DegenerateElementError
	NodeComponent map[int64]int // node id -> component id
}

// DegenerateElementError describes an element dropped before graph building.
type DegenerateElementError struct {
	ElementID int64
	Reason    string
}

func (e *DegenerateElementError) Error() string {
	return fmt.Sprintf("element %d: %s", e.ElementID, e.Reason)
}

func (e *DegenerateElementError) Unwrap() error {
	return ErrDegenerateElement
}

// ComponentFault classifies an invalid component.
type ComponentFault string

const (
	FaultClosedLoop ComponentFault = "closed_loop"
	FaultBranching  ComponentFault = "branching"
)

// InvalidComponentError reports a component that is not a simple open chain.
// Nodes lists the offending endpoints, or every node for a closed loop.
type InvalidComponentError struct {
	ComponentID int
	Fault       ComponentFault
	Nodes       []int64
}

func (e *InvalidComponentError) Error() string {
	return fmt.Sprintf("component %d: %s (nodes %v)", e.ComponentID, e.Fault, e.Nodes)
}

func (e *InvalidComponentError) Unwrap() error {
	return ErrInvalidComponent
}

// Endpoints is the classified pair of open ends of a valid anchor.
type Endpoints struct {
	ComponentID int
	Head        int64   // couples to the structure
	Tail        int64   // embeds in soil
	Interior    []int64 // degree-2 nodes, ascending
}

// NodeLookup resolves node coordinates.
type NodeLookup interface {
	Point(id int64) (mesh.Point, bool)
}
