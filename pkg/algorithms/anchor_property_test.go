package algorithms

import (
	"errors"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/dd0wney/anchorlink/pkg/mesh"
)

// Random edge lists over a small node range produce chains, loops and trees.
func TestPropertyClassificationIsTwoEndsOrInvalid(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	properties.Property("every component yields a head/tail pair or InvalidComponent", prop.ForAll(
		func(pairs []int) bool {
			elements := make([]mesh.LineElement, 0, len(pairs)/2)
			coords := make(pointMap)
			for i := 0; i+1 < len(pairs); i += 2 {
				a, b := int64(pairs[i]), int64(pairs[i+1])
				elements = append(elements, anchor(int64(i+1), a, b))
				coords[a] = mesh.Point{Z: float64(a % 5)}
				coords[b] = mesh.Point{Z: float64(b % 5)}
			}

			result := BuildComponents(elements)
			for _, c := range result.Components {
				ends, err := ClassifyEndpoints(c, coords, mesh.AxisZ)
				if err != nil {
					if !errors.Is(err, ErrInvalidComponent) {
						return false
					}
					continue
				}
				if ends.Head == ends.Tail || c.Degree[ends.Head] != 1 || c.Degree[ends.Tail] != 1 {
					return false
				}
			}
			return true
		},
		gen.SliceOf(gen.IntRange(1, 12)),
	))

	properties.Property("components partition the accepted elements", prop.ForAll(
		func(pairs []int) bool {
			elements := make([]mesh.LineElement, 0, len(pairs)/2)
			for i := 0; i+1 < len(pairs); i += 2 {
				elements = append(elements, anchor(int64(i+1), int64(pairs[i]), int64(pairs[i+1])))
			}
			result := BuildComponents(elements)

			seen := make(map[int64]int)
			for _, c := range result.Components {
				for _, e := range c.Elements {
					seen[e]++
				}
			}
			for _, n := range seen {
				if n != 1 {
					return false
				}
			}
			return len(seen)+len(result.Rejected) == len(elements)
		},
		gen.SliceOf(gen.IntRange(1, 12)),
	))

	properties.TestingRun(t)
}
