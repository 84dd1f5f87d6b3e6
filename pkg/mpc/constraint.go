package mpc

import (
	"errors"
	"fmt"
	"math"
	"sort"
)

// Translational degrees of freedom.
const (
	DisplacementX = "DISPLACEMENT_X"
	DisplacementY = "DISPLACEMENT_Y"
	DisplacementZ = "DISPLACEMENT_Z"
)

// DefaultDOFs is the translational DOF set used when none is configured.
var DefaultDOFs = []string{DisplacementX, DisplacementY, DisplacementZ}

// WeightTolerance bounds |sum(weights) - 1|.
const WeightTolerance = 1e-6

// ErrInvalidConstraint is the sentinel for constraint invariant violations.
var ErrInvalidConstraint = errors.New("invalid constraint")

// InvalidConstraintError names the slave and the broken invariant.
type InvalidConstraintError struct {
	Slave  int64
	Reason string
}

func (e *InvalidConstraintError) Error() string {
	return fmt.Sprintf("constraint for slave %d: %s", e.Slave, e.Reason)
}

func (e *InvalidConstraintError) Unwrap() error {
	return ErrInvalidConstraint
}

// Master is one weighted term of a constraint.
type Master struct {
	Node   int64   `json:"node" yaml:"node"`
	Weight float64 `json:"weight" yaml:"weight"`
}

// Constraint ties the slave's DOFs to a weighted combination of masters:
// u_slave = sum(w_i * u_master_i) for every listed DOF.
type Constraint struct {
	Slave   int64    `json:"slave" yaml:"slave"`
	DOFs    []string `json:"dofs" yaml:"dofs,flow"`
	Masters []Master `json:"masters" yaml:"masters"`
}

// NewConstraint validates and builds a constraint. The inputs are copied.
func NewConstraint(slave int64, dofs []string, masters []Master) (Constraint, error) {
	c := Constraint{
		Slave:   slave,
		DOFs:    append([]string(nil), dofs...),
		Masters: append([]Master(nil), masters...),
	}
	if err := c.Validate(); err != nil {
		return Constraint{}, err
	}
	return c, nil
}

// Validate checks every constraint invariant.
func (c Constraint) Validate() error {
	if len(c.DOFs) == 0 {
		return &InvalidConstraintError{Slave: c.Slave, Reason: "empty DOF list"}
	}
	if len(c.Masters) == 0 {
		return &InvalidConstraintError{Slave: c.Slave, Reason: "no masters"}
	}

	seenDOF := make(map[string]bool, len(c.DOFs))
	for _, d := range c.DOFs {
		if d == "" {
			return &InvalidConstraintError{Slave: c.Slave, Reason: "blank DOF name"}
		}
		if seenDOF[d] {
			return &InvalidConstraintError{Slave: c.Slave, Reason: fmt.Sprintf("duplicate DOF %s", d)}
		}
		seenDOF[d] = true
	}

	seen := make(map[int64]bool, len(c.Masters))
	sum := 0.0
	for _, m := range c.Masters {
		if m.Node == c.Slave {
			return &InvalidConstraintError{Slave: c.Slave, Reason: "slave listed as its own master"}
		}
		if seen[m.Node] {
			return &InvalidConstraintError{Slave: c.Slave, Reason: fmt.Sprintf("duplicate master %d", m.Node)}
		}
		seen[m.Node] = true
		if math.IsNaN(m.Weight) || math.IsInf(m.Weight, 0) || m.Weight < 0 || m.Weight > 1 {
			return &InvalidConstraintError{Slave: c.Slave, Reason: fmt.Sprintf("weight %v of master %d out of [0,1]", m.Weight, m.Node)}
		}
		sum += m.Weight
	}
	if math.Abs(sum-1) > WeightTolerance {
		return &InvalidConstraintError{Slave: c.Slave, Reason: fmt.Sprintf("weights sum to %.9f", sum)}
	}
	return nil
}

// WeightSum returns the sum of master weights.
func (c Constraint) WeightSum() float64 {
	sum := 0.0
	for _, m := range c.Masters {
		sum += m.Weight
	}
	return sum
}

// MasterIDs returns the master node ids in stored order.
func (c Constraint) MasterIDs() []int64 {
	ids := make([]int64, len(c.Masters))
	for i, m := range c.Masters {
		ids[i] = m.Node
	}
	return ids
}

// Provenance records how a pass produced its constraints.
type Provenance struct {
	InitialRadius float64 `json:"initial_radius" yaml:"initial_radius"`
	MaxRadius     float64 `json:"max_radius" yaml:"max_radius"`
	MaxRadiusUsed float64 `json:"max_radius_used" yaml:"max_radius_used"`
	MinNeighbors  int     `json:"min_neighbors" yaml:"min_neighbors"`
	KMax          int     `json:"k_max" yaml:"k_max"`
	Fallbacks     int     `json:"fallbacks" yaml:"fallbacks"`
}

// ConstraintSet is the output of one coupling pass.
type ConstraintSet struct {
	Pass        string       `json:"pass" yaml:"pass"`
	Provenance  Provenance   `json:"provenance" yaml:"provenance"`
	Constraints []Constraint `json:"constraints" yaml:"constraints"`
}

// Sort orders constraints by slave id. The sort is stable so constraints for
// the same slave keep their relative order.
func (s *ConstraintSet) Sort() {
	sort.SliceStable(s.Constraints, func(i, j int) bool {
		return s.Constraints[i].Slave < s.Constraints[j].Slave
	})
}

// Len returns the number of constraints.
func (s *ConstraintSet) Len() int {
	return len(s.Constraints)
}

// Filter drops every constraint for which keep returns false and reports how
// many were removed.
func (s *ConstraintSet) Filter(keep func(Constraint) bool) int {
	kept := s.Constraints[:0]
	removed := 0
	for _, c := range s.Constraints {
		if keep(c) {
			kept = append(kept, c)
		} else {
			removed++
		}
	}
	s.Constraints = kept
	return removed
}
