package pipeline

import (
	"errors"
	"fmt"

	"github.com/dd0wney/anchorlink/pkg/integrity"
)

// ErrSkipRateExceeded is the sentinel wrapped by *SkipRateError.
var ErrSkipRateExceeded = errors.New("skip rate exceeded")

// SkipRateError carries the itemized report of a run whose skip rate went
// over the configured limit. The run's result is still returned alongside it.
type SkipRateError struct {
	Rate   float64
	Limit  float64
	Report *integrity.Report
}

func (e *SkipRateError) Error() string {
	return fmt.Sprintf("skip rate %.4f exceeds limit %.4f", e.Rate, e.Limit)
}

func (e *SkipRateError) Unwrap() error {
	return ErrSkipRateExceeded
}
