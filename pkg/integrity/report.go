package integrity

import (
	"sort"
	"sync"
)

// SkipReason explains why a slave produced no constraint.
type SkipReason string

const (
	SkipNoCandidates      SkipReason = "no_candidates"
	SkipInvalidConstraint SkipReason = "invalid_constraint"
	SkipDanglingReference SkipReason = "dangling_reference"
	SkipDuplicateDOF      SkipReason = "duplicate_dof"
	// SkipSharedNode is informational: the slave is already part of the
	// master mesh. It does not count towards the skip rate.
	SkipSharedNode SkipReason = "shared_node"
)

// Failing reports whether the reason counts towards the skip rate.
func (r SkipReason) Failing() bool {
	return r != SkipSharedNode
}

// DistanceBuckets are the upper bounds of the nearest-master histogram.
// The last bucket is open-ended.
var DistanceBuckets = []float64{1, 2, 5, 10, 20}

// DistanceBucketLabels names each histogram slot.
var DistanceBucketLabels = []string{"<=1", "<=2", "<=5", "<=10", "<=20", ">20"}

// Skip is one itemized skip.
type Skip struct {
	Node   int64      `json:"node"`
	Reason SkipReason `json:"reason"`
	Detail string     `json:"detail,omitempty"`
}

// PassReport collects per-pass statistics.
type PassReport struct {
	Pass          string             `json:"pass"`
	Attempted     int                `json:"slaves_attempted"`
	Emitted       int                `json:"constraints_emitted"`
	SkipCounts    map[SkipReason]int `json:"skips_by_reason"`
	Skipped       []Skip             `json:"skipped"`
	Fallbacks     int                `json:"fallbacks"`
	Escalated     int                `json:"escalated"`
	MaxRadiusUsed float64            `json:"max_radius_used"`
	Distances     []int              `json:"nearest_distance_histogram"`
}

// NewPassReport creates an empty report for pass.
func NewPassReport(pass string) *PassReport {
	return &PassReport{
		Pass:       pass,
		SkipCounts: make(map[SkipReason]int),
		Skipped:    make([]Skip, 0),
		Distances:  make([]int, len(DistanceBucketLabels)),
	}
}

// AddSkip records a skipped slave.
func (p *PassReport) AddSkip(node int64, reason SkipReason, detail string) {
	p.SkipCounts[reason]++
	p.Skipped = append(p.Skipped, Skip{Node: node, Reason: reason, Detail: detail})
}

// AddDistance places d in the nearest-distance histogram.
func (p *PassReport) AddDistance(d float64) {
	p.Distances[bucketOf(d)]++
}

// FailingSkips returns the skips that count towards the skip rate.
func (p *PassReport) FailingSkips() int {
	n := 0
	for reason, c := range p.SkipCounts {
		if reason.Failing() {
			n += c
		}
	}
	return n
}

// Finalize sorts itemized skips by node id for stable output.
func (p *PassReport) Finalize() {
	sort.SliceStable(p.Skipped, func(i, j int) bool {
		return p.Skipped[i].Node < p.Skipped[j].Node
	})
}

func bucketOf(d float64) int {
	for i, ub := range DistanceBuckets {
		if d <= ub {
			return i
		}
	}
	return len(DistanceBuckets)
}

// InvalidComponent records an anchor that was not a simple open chain.
type InvalidComponent struct {
	ID    int     `json:"id"`
	Fault string  `json:"fault"`
	Nodes []int64 `json:"nodes"`
}

// RejectedElement records an element dropped before classification.
type RejectedElement struct {
	ID     int64  `json:"id"`
	Reason string `json:"reason"`
}

// UnknownMaster is a master candidate whose id is not in the node table.
type UnknownMaster struct {
	Set  string `json:"set"`
	Node int64  `json:"node"`
}

// Report is the run summary returned with every pipeline result.
type Report struct {
	mu sync.Mutex

	AnchorsFound        int                `json:"anchors_found"`
	EndpointsClassified int                `json:"endpoints_classified"`
	InvalidComponents   []InvalidComponent `json:"invalid_components"`
	RejectedElements    []RejectedElement  `json:"rejected_elements"`
	UnknownMasters      []UnknownMaster    `json:"unknown_masters"`
	Passes              []*PassReport      `json:"passes"`
	Violations          int                `json:"violations"`
	SkipRate            float64            `json:"skip_rate"`
}

// NewReport creates an empty report.
func NewReport() *Report {
	return &Report{
		InvalidComponents: make([]InvalidComponent, 0),
		RejectedElements:  make([]RejectedElement, 0),
		UnknownMasters:    make([]UnknownMaster, 0),
		Passes:            make([]*PassReport, 0, 2),
	}
}

// AddPass attaches a pass report. Safe for concurrent passes.
func (r *Report) AddPass(p *PassReport) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Passes = append(r.Passes, p)
}

// Pass returns the report for name, or nil.
func (r *Report) Pass(name string) *PassReport {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.Passes {
		if p.Pass == name {
			return p
		}
	}
	return nil
}

// RecordPruned moves pruned constraints from emitted to skipped.
func (r *Report) RecordPruned(removed []Violation) {
	r.Violations += len(removed)
	for _, v := range removed {
		p := r.Pass(v.Pass)
		if p == nil {
			continue
		}
		p.Emitted--
		p.AddSkip(v.Slave, v.Type.SkipReason(), v.Message)
	}
}

// ComputeSkipRate sets SkipRate to failing skips plus invalid components over
// attempted slaves (shared nodes excluded) plus invalid components.
func (r *Report) ComputeSkipRate() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()

	failed := len(r.InvalidComponents)
	total := len(r.InvalidComponents)
	for _, p := range r.Passes {
		failed += p.FailingSkips()
		total += p.Attempted - p.SkipCounts[SkipSharedNode]
	}
	if total <= 0 {
		r.SkipRate = 0
	} else {
		r.SkipRate = float64(failed) / float64(total)
	}
	return r.SkipRate
}

// Finalize orders passes by name and itemized entries by id.
func (r *Report) Finalize() {
	r.mu.Lock()
	defer r.mu.Unlock()
	sort.SliceStable(r.Passes, func(i, j int) bool {
		return passRank(r.Passes[i].Pass) < passRank(r.Passes[j].Pass)
	})
	for _, p := range r.Passes {
		p.Finalize()
	}
	sort.SliceStable(r.InvalidComponents, func(i, j int) bool {
		return r.InvalidComponents[i].ID < r.InvalidComponents[j].ID
	})
	sort.SliceStable(r.RejectedElements, func(i, j int) bool {
		return r.RejectedElements[i].ID < r.RejectedElements[j].ID
	})
}

// passRank keeps "wall" before "soil" and anything else after, by name.
func passRank(name string) string {
	switch name {
	case "wall":
		return "0"
	case "soil":
		return "1"
	default:
		return "2" + name
	}
}

// HasSkips reports whether anything was dropped or rejected.
func (r *Report) HasSkips() bool {
	if len(r.InvalidComponents) > 0 || len(r.RejectedElements) > 0 {
		return true
	}
	for _, p := range r.Passes {
		if p.FailingSkips() > 0 {
			return true
		}
	}
	return false
}
