package mesh

import (
	"fmt"

	"github.com/dd0wney/anchorlink/pkg/validation"
)

// Validate checks the struct-level constraints on every record of the model.
// Node and element ids are 1-based.
func (m *Model) Validate() error {
	if err := validation.Struct(m); err != nil {
		return fmt.Errorf("model: %w", err)
	}
	return nil
}
