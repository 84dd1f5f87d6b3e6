package integrity

import (
	"fmt"
	"time"
)

// ValidationResult contains the outcome of running every rule
type ValidationResult struct {
	Valid      bool
	Violations []Violation
	CheckedAt  time.Time
}

// BySeverity returns violations filtered by severity level
func (vr *ValidationResult) BySeverity(severity Severity) []Violation {
	filtered := make([]Violation, 0)
	for _, v := range vr.Violations {
		if v.Severity == severity {
			filtered = append(filtered, v)
		}
	}
	return filtered
}

// ByType returns violations filtered by type
func (vr *ValidationResult) ByType(violationType ViolationType) []Violation {
	filtered := make([]Violation, 0)
	for _, v := range vr.Violations {
		if v.Type == violationType {
			filtered = append(filtered, v)
		}
	}
	return filtered
}

// Validator runs a list of rules in order
type Validator struct {
	rules []Rule
}

// NewValidator creates a validator with no rules
func NewValidator() *Validator {
	return &Validator{rules: make([]Rule, 0)}
}

// DefaultValidator creates a validator with every built-in rule
func DefaultValidator() *Validator {
	v := NewValidator()
	v.AddRules(DanglingReferenceRule{}, WeightSumRule{}, DuplicateSlaveDOFRule{})
	return v
}

// AddRule adds a rule to the validator
func (v *Validator) AddRule(rule Rule) {
	v.rules = append(v.rules, rule)
}

// AddRules adds multiple rules to the validator
func (v *Validator) AddRules(rules ...Rule) {
	v.rules = append(v.rules, rules...)
}

// Rules returns the configured rules
func (v *Validator) Rules() []Rule {
	return v.rules
}

// Validate runs every rule against in
func (v *Validator) Validate(in *Input) (*ValidationResult, error) {
	result := &ValidationResult{
		Valid:      true,
		Violations: make([]Violation, 0),
		CheckedAt:  time.Now(),
	}

	for _, rule := range v.rules {
		violations, err := rule.Check(in)
		if err != nil {
			return nil, fmt.Errorf("rule %s: %w", rule.Name(), err)
		}
		if len(violations) > 0 {
			result.Valid = false
			result.Violations = append(result.Violations, violations...)
		}
	}

	return result, nil
}

// Prune removes every constraint named by an error-severity violation and
// returns the removed violations, one per dropped constraint.
func Prune(in *Input, result *ValidationResult) []Violation {
	type key struct{ set, index int }
	drop := make(map[key]Violation)
	order := make([]key, 0)
	for _, v := range result.Violations {
		if v.Severity != Error {
			continue
		}
		k := key{v.Set, v.Index}
		if _, seen := drop[k]; !seen {
			drop[k] = v
			order = append(order, k)
		}
	}
	if len(drop) == 0 {
		return nil
	}

	for si, set := range in.Sets {
		kept := set.Constraints[:0]
		for ci, c := range set.Constraints {
			if _, ok := drop[key{si, ci}]; ok {
				continue
			}
			kept = append(kept, c)
		}
		set.Constraints = kept
	}

	removed := make([]Violation, 0, len(order))
	for _, k := range order {
		removed = append(removed, drop[k])
	}
	return removed
}
