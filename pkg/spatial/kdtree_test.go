package spatial

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dd0wney/anchorlink/pkg/mesh"
)

func randomNodes(r *rand.Rand, n int) []mesh.Node {
	nodes := make([]mesh.Node, n)
	for i := range nodes {
		nodes[i] = mesh.Node{
			ID: int64(i + 1),
			X:  r.Float64()*20 - 10,
			Y:  r.Float64()*20 - 10,
			Z:  r.Float64()*20 - 10,
		}
	}
	return nodes
}

func bruteForce(nodes []mesh.Node, p mesh.Point) []Neighbor {
	out := make([]Neighbor, len(nodes))
	for i, n := range nodes {
		out[i] = Neighbor{ID: n.ID, Distance: Distance(p, n.Point())}
	}
	sortNeighbors(out)
	return out
}

func TestBuildEmpty(t *testing.T) {
	_, err := Build(nil)
	assert.ErrorIs(t, err, ErrEmptySet)
}

func TestQueryRadiusMatchesBruteForce(t *testing.T) {
	r := rand.New(rand.NewSource(42))
	nodes := randomNodes(r, 500)
	idx, err := Build(nodes)
	require.NoError(t, err)
	require.Equal(t, 500, idx.Len())

	for i := 0; i < 50; i++ {
		p := mesh.Point{X: r.Float64()*20 - 10, Y: r.Float64()*20 - 10, Z: r.Float64()*20 - 10}
		radius := r.Float64() * 6

		want := make([]Neighbor, 0)
		for _, nb := range bruteForce(nodes, p) {
			if nb.Distance <= radius {
				want = append(want, nb)
			}
		}
		assert.Equal(t, want, idx.QueryRadius(p, radius))
	}
}

func TestQueryKNearestMatchesBruteForce(t *testing.T) {
	r := rand.New(rand.NewSource(7))
	nodes := randomNodes(r, 300)
	idx, err := Build(nodes)
	require.NoError(t, err)

	for _, k := range []int{1, 3, 8, 50} {
		p := mesh.Point{X: r.Float64(), Y: r.Float64(), Z: r.Float64()}
		want := bruteForce(nodes, p)[:k]
		assert.Equal(t, want, idx.QueryKNearest(p, k), "k=%d", k)
	}
}

func TestQueryKNearestClampsToSize(t *testing.T) {
	idx, err := Build([]mesh.Node{{ID: 1}, {ID: 2, X: 1}})
	require.NoError(t, err)

	got := idx.QueryKNearest(mesh.Point{}, 5)
	require.Len(t, got, 2)
	assert.Equal(t, int64(1), got[0].ID)
	assert.Nil(t, idx.QueryKNearest(mesh.Point{}, 0))
}

func TestEquidistantTieBreakByID(t *testing.T) {
	// Four points on a circle around the origin, inserted out of id order.
	nodes := []mesh.Node{
		{ID: 40, X: 0, Y: -1},
		{ID: 10, X: 1, Y: 0},
		{ID: 30, X: 0, Y: 1},
		{ID: 20, X: -1, Y: 0},
	}
	idx, err := Build(nodes)
	require.NoError(t, err)

	got := idx.QueryRadius(mesh.Point{}, 1)
	ids := make([]int64, len(got))
	for i, nb := range got {
		ids[i] = nb.ID
	}
	assert.Equal(t, []int64{10, 20, 30, 40}, ids)

	nearest := idx.QueryKNearest(mesh.Point{}, 2)
	assert.Equal(t, int64(10), nearest[0].ID)
	assert.Equal(t, int64(20), nearest[1].ID)
}

func TestDuplicateCoordinates(t *testing.T) {
	nodes := []mesh.Node{{ID: 3}, {ID: 1}, {ID: 2}, {ID: 4, Z: 5}}
	idx, err := Build(nodes)
	require.NoError(t, err)

	got := idx.QueryRadius(mesh.Point{}, 0)
	require.Len(t, got, 3)
	assert.Equal(t, int64(1), got[0].ID)
	assert.Equal(t, 0.0, got[0].Distance)
}

func TestNegativeRadius(t *testing.T) {
	idx, err := Build([]mesh.Node{{ID: 1}})
	require.NoError(t, err)
	assert.Empty(t, idx.QueryRadius(mesh.Point{}, -1))
}
