package integrity

import (
	"github.com/dd0wney/anchorlink/pkg/mpc"
)

// NodeChecker answers whether a node id exists in the model.
type NodeChecker interface {
	Has(id int64) bool
}

// Input is what the rules inspect: the node table and every pass output.
type Input struct {
	Nodes NodeChecker
	Sets  []*mpc.ConstraintSet
}

// Severity indicates the importance of a violation
type Severity int

const (
	Info Severity = iota
	Warning
	Error
)

func (s Severity) String() string {
	switch s {
	case Info:
		return "Info"
	case Warning:
		return "Warning"
	case Error:
		return "Error"
	default:
		return "Unknown"
	}
}

// ViolationType categorizes the problem found
type ViolationType int

const (
	DanglingReference ViolationType = iota
	DuplicateSlaveDOF
	WeightSum
)

func (vt ViolationType) String() string {
	switch vt {
	case DanglingReference:
		return "DanglingReference"
	case DuplicateSlaveDOF:
		return "DuplicateSlaveDOF"
	case WeightSum:
		return "WeightSum"
	default:
		return "Unknown"
	}
}

// SkipReason maps the violation type to the report's skip reason.
func (vt ViolationType) SkipReason() SkipReason {
	switch vt {
	case DanglingReference:
		return SkipDanglingReference
	case DuplicateSlaveDOF:
		return SkipDuplicateDOF
	default:
		return SkipInvalidConstraint
	}
}

// Violation points at one constraint: Sets[set].Constraints[Index].
type Violation struct {
	Type     ViolationType
	Severity Severity
	Rule     string
	Pass     string
	Set      int
	Index    int
	Slave    int64
	Message  string
	Details  map[string]any
}

// Rule is one integrity check over the assembled constraint sets.
type Rule interface {
	// Check returns the violations found (empty if valid)
	Check(in *Input) ([]Violation, error)

	// Name returns a human-readable name for the rule
	Name() string
}
