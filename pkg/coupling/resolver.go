package coupling

import (
	"errors"
	"fmt"

	"github.com/dd0wney/anchorlink/pkg/mesh"
	"github.com/dd0wney/anchorlink/pkg/mpc"
	"github.com/dd0wney/anchorlink/pkg/spatial"
)

var (
	// ErrEmptyMasterSet is returned when a pass has no candidate masters.
	ErrEmptyMasterSet = errors.New("master candidate set is empty")
	// ErrNoCandidatesInRange is the sentinel wrapped by *NoCandidatesError.
	ErrNoCandidatesInRange = errors.New("no candidates in range")
	// ErrSharedNode means the slave already belongs to the master set and
	// needs no constraint.
	ErrSharedNode = errors.New("slave is a member of the master set")
	// ErrConflictingMaster is returned when a master set lists one id at two
	// different positions.
	ErrConflictingMaster = errors.New("master node listed with conflicting coordinates")
)

// NoCandidatesError reports a slave that could not gather enough masters.
type NoCandidatesError struct {
	Slave  int64
	Found  int
	Radius float64
}

func (e *NoCandidatesError) Error() string {
	return fmt.Sprintf("slave %d: %d candidates within radius %g", e.Slave, e.Found, e.Radius)
}

func (e *NoCandidatesError) Unwrap() error {
	return ErrNoCandidatesInRange
}

// Searcher is the query surface the resolver needs from a spatial index.
type Searcher interface {
	QueryRadius(p mesh.Point, radius float64) []spatial.Neighbor
	QueryKNearest(p mesh.Point, k int) []spatial.Neighbor
}

// Resolution is a synthesized constraint plus how it was found. RadiusUsed is
// the last search radius, or the distance to the farthest master when the
// k-nearest fallback reached further than that.
type Resolution struct {
	Constraint      mpc.Constraint
	RadiusUsed      float64
	Retries         int
	Fallback        bool
	NearestDistance float64
}

// Resolver couples slave nodes to one master candidate set.
type Resolver struct {
	set        string
	index      Searcher
	members    map[int64]struct{}
	params     Params
	duplicates int
}

// NewResolver indexes the master set and validates params. Repeated master
// ids are indexed once; repeats at a different position are an error.
func NewResolver(set mesh.MasterSet, params Params) (*Resolver, error) {
	if params.Epsilon == 0 {
		params.Epsilon = DefaultEpsilon
	}
	if err := params.Validate(); err != nil {
		return nil, err
	}
	if set.Len() == 0 {
		return nil, fmt.Errorf("%s: %w", set.Name, ErrEmptyMasterSet)
	}

	nodes, members, err := uniqueMasters(set.Nodes)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", set.Name, err)
	}
	index, err := spatial.Build(nodes)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", set.Name, err)
	}

	return &Resolver{
		set:        set.Name,
		index:      index,
		members:    members,
		params:     params,
		duplicates: len(set.Nodes) - len(nodes),
	}, nil
}

// uniqueMasters keeps the first copy of every master id.
func uniqueMasters(in []mesh.Node) ([]mesh.Node, map[int64]struct{}, error) {
	seen := make(map[int64]mesh.Node, len(in))
	out := make([]mesh.Node, 0, len(in))
	for _, n := range in {
		if prev, ok := seen[n.ID]; ok {
			if prev.Point() != n.Point() {
				return nil, nil, fmt.Errorf("%w: node %d", ErrConflictingMaster, n.ID)
			}
			continue
		}
		seen[n.ID] = n
		out = append(out, n)
	}

	members := make(map[int64]struct{}, len(out))
	for _, n := range out {
		members[n.ID] = struct{}{}
	}
	return out, members, nil
}

// Duplicates returns how many repeated master entries were dropped.
func (r *Resolver) Duplicates() int {
	return r.duplicates
}

// Len returns the number of distinct masters indexed.
func (r *Resolver) Len() int {
	return len(r.members)
}

// Params returns the effective parameters.
func (r *Resolver) Params() Params {
	return r.params
}

// SetName returns the name of the master set this resolver couples into.
func (r *Resolver) SetName() string {
	return r.set
}

// Resolve finds masters for slave and builds its constraint over dofs.
//
// The search radius starts at InitialRadius and doubles, capped at MaxRadius,
// until MinNeighbors candidates are found or RetryBudget is spent. If that
// fails a k-nearest query with k = MinNeighbors is tried. The nearest KMax
// candidates are kept and weighted by inverse distance.
func (r *Resolver) Resolve(slave mesh.Node, dofs []string) (Resolution, error) {
	if _, shared := r.members[slave.ID]; shared {
		return Resolution{}, ErrSharedNode
	}

	p := r.params
	pt := slave.Point()

	radius := p.InitialRadius
	cands := withoutSelf(r.index.QueryRadius(pt, radius), slave.ID)
	retries := 0
	for len(cands) < p.MinNeighbors && retries < p.RetryBudget && radius < p.MaxRadius {
		radius = min(2*radius, p.MaxRadius)
		retries++
		cands = withoutSelf(r.index.QueryRadius(pt, radius), slave.ID)
	}

	fallback := false
	if len(cands) < p.MinNeighbors {
		fallback = true
		cands = withoutSelf(r.index.QueryKNearest(pt, p.MinNeighbors+1), slave.ID)
		if len(cands) > p.MinNeighbors {
			cands = cands[:p.MinNeighbors]
		}
		if p.FallbackMaxDistance > 0 {
			cands = within(cands, p.FallbackMaxDistance)
		}
	}

	if len(cands) < p.MinNeighbors {
		return Resolution{}, &NoCandidatesError{Slave: slave.ID, Found: len(cands), Radius: radius}
	}
	if len(cands) > p.KMax {
		cands = cands[:p.KMax]
	}

	c, err := mpc.NewConstraint(slave.ID, dofs, Weights(cands, p.Epsilon))
	if err != nil {
		return Resolution{}, err
	}

	if fallback {
		radius = max(radius, cands[len(cands)-1].Distance)
	}

	return Resolution{
		Constraint:      c,
		RadiusUsed:      radius,
		Retries:         retries,
		Fallback:        fallback,
		NearestDistance: cands[0].Distance,
	}, nil
}

// Weights computes normalized inverse-distance weights for neighbors sorted
// nearest first. A zero distance gives that master the full weight and every
// other master zero.
func Weights(neighbors []spatial.Neighbor, epsilon float64) []mpc.Master {
	masters := make([]mpc.Master, len(neighbors))
	for i, nb := range neighbors {
		masters[i].Node = nb.ID
	}
	if len(neighbors) == 0 {
		return masters
	}

	for i, nb := range neighbors {
		if nb.Distance == 0 {
			masters[i].Weight = 1
			return masters
		}
	}

	total := 0.0
	for i, nb := range neighbors {
		w := 1 / max(nb.Distance, epsilon)
		masters[i].Weight = w
		total += w
	}
	for i := range masters {
		masters[i].Weight /= total
	}
	return masters
}

func withoutSelf(ns []spatial.Neighbor, self int64) []spatial.Neighbor {
	for i, nb := range ns {
		if nb.ID == self {
			return append(ns[:i:i], ns[i+1:]...)
		}
	}
	return ns
}

func within(ns []spatial.Neighbor, limit float64) []spatial.Neighbor {
	for i, nb := range ns {
		if nb.Distance > limit {
			return ns[:i]
		}
	}
	return ns
}
