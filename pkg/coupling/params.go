package coupling

import (
	"errors"
	"fmt"

	"github.com/dd0wney/anchorlink/pkg/validation"
)

// DefaultEpsilon is the distance floor used in inverse-distance weighting.
const DefaultEpsilon = 1e-12

// Params configures one coupling pass.
type Params struct {
	InitialRadius float64
	MaxRadius     float64
	MinNeighbors  int
	KMax          int
	RetryBudget   int
	Epsilon       float64
	// FallbackMaxDistance discards k-nearest fallback candidates farther than
	// this. Zero means unbounded.
	FallbackMaxDistance float64
}

// Validate reports every inconsistent parameter at once.
func (p Params) Validate() error {
	cv := validation.NewConfigValidator("coupling")
	cv.PositiveFloat("InitialRadius", p.InitialRadius).
		PositiveFloat("MaxRadius", p.MaxRadius).
		Positive("MinNeighbors", p.MinNeighbors).
		Positive("KMax", p.KMax).
		NonNegative("RetryBudget", p.RetryBudget).
		PositiveFloat("Epsilon", p.Epsilon).
		NonNegativeFloat("FallbackMaxDistance", p.FallbackMaxDistance).
		Custom("MaxRadius", func() error {
			if p.MaxRadius < p.InitialRadius {
				return fmt.Errorf("max radius %g is below initial radius %g", p.MaxRadius, p.InitialRadius)
			}
			return nil
		}).
		Custom("KMax", func() error {
			if p.KMax < p.MinNeighbors {
				return errors.New("k_max must be at least min_neighbors")
			}
			return nil
		})
	return cv.Validate()
}
