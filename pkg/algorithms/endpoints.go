package algorithms

import (
	"context"
	"errors"
	"fmt"

	"github.com/dd0wney/anchorlink/pkg/mesh"
	"github.com/dd0wney/anchorlink/pkg/parallel"
)

// ClassifyEndpoints picks the head and tail of an anchor.
//
// The two degree-1 nodes are compared by their projection on up; the higher
// one is the head. Equal projections resolve to the lower node id as head.
// Any other number of degree-1 nodes yields an *InvalidComponentError.
func ClassifyEndpoints(c *Component, coords NodeLookup, up mesh.Axis) (Endpoints, error) {
	ends := make([]int64, 0, 2)
	interior := make([]int64, 0, len(c.Nodes))
	for _, id := range c.Nodes {
		switch c.Degree[id] {
		case 1:
			ends = append(ends, id)
		case 2:
			interior = append(interior, id)
		}
	}

	switch {
	case len(ends) == 0:
		nodes := make([]int64, len(c.Nodes))
		copy(nodes, c.Nodes)
		return Endpoints{}, &InvalidComponentError{ComponentID: c.ID, Fault: FaultClosedLoop, Nodes: nodes}
	case len(ends) != 2:
		return Endpoints{}, &InvalidComponentError{ComponentID: c.ID, Fault: FaultBranching, Nodes: ends}
	}

	// c.Nodes is ascending, so ends[0] < ends[1].
	a, b := ends[0], ends[1]
	pa, ok := coords.Point(a)
	if !ok {
		return Endpoints{}, fmt.Errorf("component %d: endpoint %d has no coordinates", c.ID, a)
	}
	pb, ok := coords.Point(b)
	if !ok {
		return Endpoints{}, fmt.Errorf("component %d: endpoint %d has no coordinates", c.ID, b)
	}

	head, tail := a, b
	if up.Project(pb) > up.Project(pa) {
		head, tail = b, a
	}

	return Endpoints{ComponentID: c.ID, Head: head, Tail: tail, Interior: interior}, nil
}

// Classification is the outcome of ClassifyAll.
type Classification struct {
	Valid   []Endpoints
	Invalid []*InvalidComponentError
}

// ClassifyAll classifies every component on the worker pool. Results keep
// component order; cancellation is checked before each component.
func ClassifyAll(ctx context.Context, comps []*Component, coords NodeLookup, up mesh.Axis, workers int) (*Classification, error) {
	pool, err := parallel.NewWorkerPool(workers)
	if err != nil {
		return nil, err
	}

	ends := make([]Endpoints, len(comps))
	errs := make([]error, len(comps))
	for i := range comps {
		if ctx.Err() != nil {
			break
		}
		pool.Submit(func(int) {
			if ctx.Err() != nil {
				errs[i] = ctx.Err()
				return
			}
			ends[i], errs[i] = ClassifyEndpoints(comps[i], coords, up)
		})
	}
	pool.Wait()
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	result := &Classification{
		Valid:   make([]Endpoints, 0, len(comps)),
		Invalid: make([]*InvalidComponentError, 0),
	}
	for i, err := range errs {
		if err == nil {
			result.Valid = append(result.Valid, ends[i])
			continue
		}
		var invalid *InvalidComponentError
		if !errors.As(err, &invalid) {
			return nil, err
		}
		result.Invalid = append(result.Invalid, invalid)
	}
	return result, nil
}
