package integrity

import (
	"fmt"
	"math"
)

// DanglingReferenceRule requires every slave and master id to be a known node.
type DanglingReferenceRule struct{}

func (DanglingReferenceRule) Name() string { return "dangling_reference" }

func (r DanglingReferenceRule) Check(in *Input) ([]Violation, error) {
	if in.Nodes == nil {
		return nil, fmt.Errorf("no node table")
	}
	violations := make([]Violation, 0)
	for si, set := range in.Sets {
		for ci, c := range set.Constraints {
			missing := make([]int64, 0)
			if !in.Nodes.Has(c.Slave) {
				missing = append(missing, c.Slave)
			}
			for _, m := range c.Masters {
				if !in.Nodes.Has(m.Node) {
					missing = append(missing, m.Node)
				}
			}
			if len(missing) == 0 {
				continue
			}
			violations = append(violations, Violation{
				Type:     DanglingReference,
				Severity: Error,
				Rule:     r.Name(),
				Pass:     set.Pass,
				Set:      si,
				Index:    ci,
				Slave:    c.Slave,
				Message:  fmt.Sprintf("constraint for slave %d references unknown nodes %v", c.Slave, missing),
				Details:  map[string]any{"missing": missing},
			})
		}
	}
	return violations, nil
}

// WeightSumRule re-checks the constraint invariants on the assembled sets.
type WeightSumRule struct{}

func (WeightSumRule) Name() string { return "weight_sum" }

func (r WeightSumRule) Check(in *Input) ([]Violation, error) {
	violations := make([]Violation, 0)
	for si, set := range in.Sets {
		for ci, c := range set.Constraints {
			err := c.Validate()
			if err == nil {
				continue
			}
			violations = append(violations, Violation{
				Type:     WeightSum,
				Severity: Error,
				Rule:     r.Name(),
				Pass:     set.Pass,
				Set:      si,
				Index:    ci,
				Slave:    c.Slave,
				Message:  err.Error(),
				Details:  map[string]any{"weight_sum": c.WeightSum(), "deviation": math.Abs(c.WeightSum() - 1)},
			})
		}
	}
	return violations, nil
}

// DuplicateSlaveDOFRule forbids constraining the same slave DOF twice.
// The first occurrence in pass order wins; later ones are flagged.
type DuplicateSlaveDOFRule struct{}

func (DuplicateSlaveDOFRule) Name() string { return "duplicate_slave_dof" }

func (r DuplicateSlaveDOFRule) Check(in *Input) ([]Violation, error) {
	type slot struct {
		slave int64
		dof   string
	}
	owner := make(map[slot]string)
	violations := make([]Violation, 0)

	for si, set := range in.Sets {
		for ci, c := range set.Constraints {
			var clash *Violation
			for _, dof := range c.DOFs {
				if first, taken := owner[slot{c.Slave, dof}]; taken {
					clash = &Violation{
						Type:     DuplicateSlaveDOF,
						Severity: Error,
						Rule:     r.Name(),
						Pass:     set.Pass,
						Set:      si,
						Index:    ci,
						Slave:    c.Slave,
						Message:  fmt.Sprintf("slave %d %s already constrained by pass %s", c.Slave, dof, first),
						Details:  map[string]any{"dof": dof, "first_pass": first},
					}
					break
				}
			}
			if clash != nil {
				violations = append(violations, *clash)
				continue
			}
			for _, dof := range c.DOFs {
				owner[slot{c.Slave, dof}] = set.Pass
			}
		}
	}
	return violations, nil
}

var (
	_ Rule = DanglingReferenceRule{}
	_ Rule = WeightSumRule{}
	_ Rule = DuplicateSlaveDOFRule{}
)
