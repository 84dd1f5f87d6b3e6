package pipeline

import (
	"context"
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dd0wney/anchorlink/pkg/codec"
	"github.com/dd0wney/anchorlink/pkg/config"
	"github.com/dd0wney/anchorlink/pkg/coupling"
	"github.com/dd0wney/anchorlink/pkg/integrity"
	"github.com/dd0wney/anchorlink/pkg/mesh"
	"github.com/dd0wney/anchorlink/pkg/metrics"
	"github.com/dd0wney/anchorlink/pkg/mpc"
	"github.com/dd0wney/anchorlink/pkg/sink"
)

// site is a wall panel in the x=0 plane (ids 101-112), a soil block at
// x=4..6 (ids 201-227) and two straight anchors 1-2-3 and 4-5-6 running
// down from the wall into the soil.
func site() *mesh.Model {
	m := &mesh.Model{}

	id := int64(100)
	for y := 0; y <= 2; y++ {
		for z := 8; z <= 11; z++ {
			id++
			n := mesh.Node{ID: id, X: 0, Y: float64(y), Z: float64(z)}
			m.Nodes = append(m.Nodes, n)
			m.Wall = append(m.Wall, n)
		}
	}

	id = 200
	for x := 4; x <= 6; x++ {
		for y := 0; y <= 2; y++ {
			for z := 6; z <= 8; z++ {
				id++
				n := mesh.Node{ID: id, X: float64(x), Y: float64(y), Z: float64(z)}
				m.Nodes = append(m.Nodes, n)
				m.Soil = append(m.Soil, n)
			}
		}
	}

	m.Nodes = append(m.Nodes,
		mesh.Node{ID: 1, X: 0.2, Y: 0.5, Z: 10},
		mesh.Node{ID: 2, X: 2.5, Y: 0.5, Z: 8.5},
		mesh.Node{ID: 3, X: 5, Y: 0.5, Z: 7},
		mesh.Node{ID: 4, X: 0.2, Y: 1.5, Z: 10},
		mesh.Node{ID: 5, X: 2.5, Y: 1.5, Z: 8.5},
		mesh.Node{ID: 6, X: 5, Y: 1.5, Z: 7},
	)
	m.Elements = append(m.Elements,
		element(1, 1, 2, mesh.RoleAnchor),
		element(2, 2, 3, mesh.RoleAnchor),
		element(3, 4, 5, mesh.RoleAnchor),
		element(4, 5, 6, mesh.RoleAnchor),
		element(50, 101, 102, mesh.RoleOther),
	)
	return m
}

func element(id, a, b int64, role mesh.Role) mesh.LineElement {
	return mesh.LineElement{ID: id, NodeA: a, NodeB: b, Role: role}
}

func testConfig(workers int) *config.Config {
	cfg := config.Default()
	cfg.Workers = workers
	return cfg
}

func newTestOrchestrator(t *testing.T, cfg *config.Config) *Orchestrator {
	t.Helper()
	o, err := New(cfg, nil, nil)
	require.NoError(t, err)
	return o
}

func slaves(set *mpc.ConstraintSet) []int64 {
	ids := make([]int64, 0, set.Len())
	for _, c := range set.Constraints {
		ids = append(ids, c.Slave)
	}
	return ids
}

func counterValue(t *testing.T, c prometheus.Counter) float64 {
	t.Helper()
	var metric dto.Metric
	require.NoError(t, c.Write(&metric))
	return metric.Counter.GetValue()
}

func TestRunCouplesHeadsAndTails(t *testing.T) {
	model := site()
	o := newTestOrchestrator(t, testConfig(4))

	result, err := o.Run(context.Background(), model)
	require.NoError(t, err)
	require.NotNil(t, result.Document)

	wall := result.Document.Pass(PassWall)
	soil := result.Document.Pass(PassSoil)
	require.NotNil(t, wall)
	require.NotNil(t, soil)
	assert.Equal(t, []int64{1, 4}, slaves(wall))
	assert.Equal(t, []int64{3, 6}, slaves(soil))

	wallIDs := idSet(model.Wall)
	soilIDs := idSet(model.Soil)
	for _, c := range wall.Constraints {
		assert.InDelta(t, 1.0, c.WeightSum(), mpc.WeightTolerance)
		assert.Equal(t, mpc.DefaultDOFs, c.DOFs)
		for _, m := range c.Masters {
			assert.Contains(t, wallIDs, m.Node)
		}
	}
	for _, c := range soil.Constraints {
		assert.InDelta(t, 1.0, c.WeightSum(), mpc.WeightTolerance)
		for _, m := range c.Masters {
			assert.Contains(t, soilIDs, m.Node)
		}
	}

	// The heads sit 0.539 from the wall, so the first radius is too small.
	assert.Equal(t, 0.5, wall.Provenance.InitialRadius)
	assert.Equal(t, 2.0, wall.Provenance.MaxRadiusUsed)

	report := result.Report
	assert.Equal(t, 2, report.AnchorsFound)
	assert.Equal(t, 2, report.EndpointsClassified)
	assert.Empty(t, report.InvalidComponents)
	assert.Empty(t, report.RejectedElements)
	assert.Zero(t, report.SkipRate)
	require.Len(t, report.Passes, 2)
	assert.Equal(t, PassWall, report.Passes[0].Pass)
	assert.Equal(t, 2, report.Passes[0].Escalated)
	assert.Equal(t, 2, report.Passes[1].Emitted)

	assert.NotEmpty(t, result.Document.Fingerprint)
	assert.Equal(t, StateIdle, result.States[0])
	assert.Equal(t, StateDone, result.States[len(result.States)-1])
	assert.Contains(t, result.States, StateWallPassDone)
	assert.Contains(t, result.States, StateSoilPassDone)

	reg := o.Metrics()
	assert.Equal(t, 1.0, counterValue(t, reg.PipelineRunsTotal.WithLabelValues("ok")))
	assert.Equal(t, 2.0, counterValue(t, reg.ConstraintsEmitted.WithLabelValues(PassWall)))
}

func idSet(nodes []mesh.Node) map[int64]bool {
	ids := make(map[int64]bool, len(nodes))
	for _, n := range nodes {
		ids[n.ID] = true
	}
	return ids
}

func TestRunIsByteIdentical(t *testing.T) {
	first, err := newTestOrchestrator(t, testConfig(1)).Run(context.Background(), site())
	require.NoError(t, err)
	second, err := newTestOrchestrator(t, testConfig(8)).Run(context.Background(), site())
	require.NoError(t, err)

	a, err := Serialize(first.Document, "json", false)
	require.NoError(t, err)
	b, err := Serialize(second.Document, "json", false)
	require.NoError(t, err)
	assert.Equal(t, string(a), string(b))

	ra, err := EncodeReport(first.Report)
	require.NoError(t, err)
	rb, err := EncodeReport(second.Report)
	require.NoError(t, err)
	assert.Equal(t, string(ra), string(rb))
}

func TestRunFingerprintTracksSettings(t *testing.T) {
	base, err := newTestOrchestrator(t, testConfig(2)).Run(context.Background(), site())
	require.NoError(t, err)

	cfg := testConfig(2)
	cfg.Wall.KMax = 4
	tuned, err := newTestOrchestrator(t, cfg).Run(context.Background(), site())
	require.NoError(t, err)

	assert.NotEqual(t, base.Document.Fingerprint, tuned.Document.Fingerprint)
	for _, c := range tuned.Document.Pass(PassWall).Constraints {
		assert.LessOrEqual(t, len(c.Masters), 4)
	}
}

func TestRunBondedSoilCouplesInterior(t *testing.T) {
	cfg := testConfig(4)
	cfg.SoilSlaves = config.SoilSlavesBonded

	result, err := newTestOrchestrator(t, cfg).Run(context.Background(), site())
	require.NoError(t, err)
	assert.Equal(t, []int64{2, 3, 5, 6}, slaves(result.Document.Pass(PassSoil)))
	assert.Equal(t, []int64{1, 4}, slaves(result.Document.Pass(PassWall)))
}

func TestRunClosedLoopDoesNotBlockSiblings(t *testing.T) {
	model := site()
	model.Nodes = append(model.Nodes,
		mesh.Node{ID: 9, X: 3, Y: 3, Z: 3},
		mesh.Node{ID: 10, X: 3, Y: 4, Z: 3},
		mesh.Node{ID: 11, X: 4, Y: 3, Z: 3},
	)
	model.Elements = append(model.Elements,
		element(6, 9, 10, mesh.RoleAnchor),
		element(7, 10, 11, mesh.RoleAnchor),
		element(8, 11, 9, mesh.RoleAnchor),
	)
	cfg := testConfig(4)
	cfg.MaxSkipRate = 0.5

	result, err := newTestOrchestrator(t, cfg).Run(context.Background(), model)
	require.NoError(t, err)

	report := result.Report
	assert.Equal(t, 3, report.AnchorsFound)
	require.Len(t, report.InvalidComponents, 1)
	assert.Equal(t, "closed_loop", report.InvalidComponents[0].Fault)
	assert.Equal(t, []int64{9, 10, 11}, report.InvalidComponents[0].Nodes)

	assert.Equal(t, []int64{1, 4}, slaves(result.Document.Pass(PassWall)))
	assert.Equal(t, []int64{3, 6}, slaves(result.Document.Pass(PassSoil)))
	// one invalid component over four attempted slaves plus itself
	assert.InDelta(t, 0.2, report.SkipRate, 1e-12)
}

func TestRunSkipRateAtLimitSucceeds(t *testing.T) {
	model := site()
	model.Nodes = append(model.Nodes,
		mesh.Node{ID: 9, X: 3, Y: 3, Z: 3},
		mesh.Node{ID: 10, X: 3, Y: 4, Z: 3},
		mesh.Node{ID: 11, X: 4, Y: 3, Z: 3},
	)
	model.Elements = append(model.Elements,
		element(6, 9, 10, mesh.RoleAnchor),
		element(7, 10, 11, mesh.RoleAnchor),
		element(8, 11, 9, mesh.RoleAnchor),
	)

	atLimit := testConfig(2)
	atLimit.MaxSkipRate = 0.2
	result, err := newTestOrchestrator(t, atLimit).Run(context.Background(), model)
	require.NoError(t, err)
	assert.Equal(t, 0.2, result.Report.SkipRate)

	below := testConfig(2)
	below.MaxSkipRate = 0.19
	_, err = newTestOrchestrator(t, below).Run(context.Background(), model)
	assert.ErrorIs(t, err, ErrSkipRateExceeded)
}

func withUnreachableTail(model *mesh.Model) *mesh.Model {
	model.Nodes = append(model.Nodes,
		mesh.Node{ID: 7, X: 0.2, Y: 1, Z: 10.5},
		mesh.Node{ID: 8, X: 60, Y: 1, Z: -40},
	)
	model.Elements = append(model.Elements, element(5, 7, 8, mesh.RoleAnchor))
	return model
}

func TestRunSkipsSlaveWithoutCandidates(t *testing.T) {
	cfg := testConfig(4)
	cfg.MaxSkipRate = 0.5
	cfg.Soil.FallbackMaxDistance = 5

	result, err := newTestOrchestrator(t, cfg).Run(context.Background(), withUnreachableTail(site()))
	require.NoError(t, err)

	assert.Equal(t, []int64{1, 4, 7}, slaves(result.Document.Pass(PassWall)))
	assert.Equal(t, []int64{3, 6}, slaves(result.Document.Pass(PassSoil)))

	soil := result.Report.Pass(PassSoil)
	require.NotNil(t, soil)
	assert.Equal(t, 3, soil.Attempted)
	assert.Equal(t, 1, soil.SkipCounts[integrity.SkipNoCandidates])
	require.Len(t, soil.Skipped, 1)
	assert.Equal(t, int64(8), soil.Skipped[0].Node)
	assert.InDelta(t, 1.0/6.0, result.Report.SkipRate, 1e-12)
}

func TestRunSkipRateExceeded(t *testing.T) {
	cfg := testConfig(4)
	cfg.Soil.FallbackMaxDistance = 5

	result, err := newTestOrchestrator(t, cfg).Run(context.Background(), withUnreachableTail(site()))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrSkipRateExceeded))

	var skipErr *SkipRateError
	require.True(t, errors.As(err, &skipErr))
	assert.InDelta(t, 1.0/6.0, skipErr.Rate, 1e-12)
	assert.Equal(t, 0.1, skipErr.Limit)
	assert.Same(t, result.Report, skipErr.Report)

	// The partial result is still usable.
	require.NotNil(t, result)
	assert.Equal(t, 2, result.Document.Pass(PassSoil).Len())
}

func TestRunRepeatedMastersIndexedOnce(t *testing.T) {
	model := site()
	model.Wall = append(model.Wall, model.Wall...)

	result, err := newTestOrchestrator(t, testConfig(4)).Run(context.Background(), model)
	require.NoError(t, err)

	assert.Equal(t, []int64{1, 4}, slaves(result.Document.Pass(PassWall)))
	assert.Empty(t, result.Report.Pass(PassWall).SkipCounts)
	for _, c := range result.Document.Pass(PassWall).Constraints {
		seen := make(map[int64]bool)
		for _, id := range c.MasterIDs() {
			assert.False(t, seen[id], "slave %d uses master %d twice", c.Slave, id)
			seen[id] = true
		}
	}
}

func TestRunDropsMastersMissingFromNodeTable(t *testing.T) {
	model := site()
	// Closest soil candidate to tail 3, but absent from the node table.
	model.Soil = append(model.Soil, mesh.Node{ID: 998, X: 5, Y: 0.5, Z: 7.1})

	result, err := newTestOrchestrator(t, testConfig(4)).Run(context.Background(), model)
	require.NoError(t, err)

	assert.Equal(t, []integrity.UnknownMaster{{Set: mesh.SoilNodes, Node: 998}}, result.Report.UnknownMasters)
	assert.Equal(t, []int64{3, 6}, slaves(result.Document.Pass(PassSoil)))
	assert.Empty(t, result.Report.Pass(PassSoil).SkipCounts)
	for _, c := range result.Document.Pass(PassSoil).Constraints {
		assert.NotContains(t, c.MasterIDs(), int64(998))
	}
}

func TestRunSharedNodeIsNotAFailure(t *testing.T) {
	model := site()
	model.Nodes = append(model.Nodes,
		mesh.Node{ID: 12, X: 2, Y: 0, Z: 7},
		mesh.Node{ID: 13, X: 5, Y: 0, Z: 6.5},
	)
	// Node 101 is a wall node at (0,0,8).
	model.Elements = append(model.Elements,
		element(10, 101, 12, mesh.RoleAnchor),
		element(11, 12, 13, mesh.RoleAnchor),
	)

	result, err := newTestOrchestrator(t, testConfig(4)).Run(context.Background(), model)
	require.NoError(t, err)

	wall := result.Report.Pass(PassWall)
	assert.Equal(t, 3, wall.Attempted)
	assert.Equal(t, 1, wall.SkipCounts[integrity.SkipSharedNode])
	assert.Equal(t, []int64{1, 4}, slaves(result.Document.Pass(PassWall)))
	assert.Equal(t, []int64{3, 6, 13}, slaves(result.Document.Pass(PassSoil)))
	assert.Zero(t, result.Report.SkipRate)
}

func TestRunRejectsDanglingAndDegenerateElements(t *testing.T) {
	model := site()
	model.Elements = append(model.Elements,
		element(60, 1, 999, mesh.RoleAnchor),
		element(61, 7, 7, mesh.RoleAnchor),
	)
	model.Nodes = append(model.Nodes, mesh.Node{ID: 7, X: 1, Y: 1, Z: 1})

	result, err := newTestOrchestrator(t, testConfig(2)).Run(context.Background(), model)
	require.NoError(t, err)

	assert.Equal(t, []integrity.RejectedElement{
		{ID: 60, Reason: string(integrity.SkipDanglingReference)},
		{ID: 61, Reason: "self-loop"},
	}, result.Report.RejectedElements)
	assert.Equal(t, 2, result.Report.AnchorsFound)
	assert.Equal(t, []int64{1, 4}, slaves(result.Document.Pass(PassWall)))
}

func TestRunOutputHasNoDanglingReferences(t *testing.T) {
	model := site()
	result, err := newTestOrchestrator(t, testConfig(4)).Run(context.Background(), model)
	require.NoError(t, err)

	table, err := mesh.NewNodeTable(model.Nodes)
	require.NoError(t, err)
	check, err := integrity.DefaultValidator().Validate(&integrity.Input{Nodes: table, Sets: result.Document.Passes})
	require.NoError(t, err)
	assert.True(t, check.Valid, "violations: %v", check.Violations)
}

func TestRunFatalErrors(t *testing.T) {
	noWall := site()
	noWall.Wall = nil
	noSoil := site()
	noSoil.Soil = nil

	tests := []struct {
		name  string
		model *mesh.Model
		want  error
	}{
		{"nil model", nil, mesh.ErrEmptyNodeTable},
		{"no nodes", &mesh.Model{}, mesh.ErrEmptyNodeTable},
		{"no wall", noWall, coupling.ErrEmptyMasterSet},
		{"no soil", noSoil, coupling.ErrEmptyMasterSet},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := newTestOrchestrator(t, testConfig(2))
			result, err := o.Run(context.Background(), tt.model)
			assert.Nil(t, result)
			assert.ErrorIs(t, err, tt.want)
			assert.Equal(t, 1.0, counterValue(t, o.Metrics().PipelineRunsTotal.WithLabelValues("failed")))
		})
	}
}

func TestRunCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result, err := newTestOrchestrator(t, testConfig(2)).Run(ctx, site())
	assert.Nil(t, result)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	_, err := New(nil, nil, nil)
	assert.Error(t, err)

	cfg := config.Default()
	cfg.Wall.MaxRadius = 0.1
	_, err = New(cfg, nil, nil)
	assert.Error(t, err)
}

func TestArtifactNames(t *testing.T) {
	doc, report := ArtifactNames(config.OutputConfig{Path: "out/site.json"})
	assert.Equal(t, "site.json", doc)
	assert.Equal(t, "site.report.json", report)

	doc, report = ArtifactNames(config.OutputConfig{Path: "site.yaml", Compress: true, Report: "runs/summary.json"})
	assert.Equal(t, "site.yaml.sz", doc)
	assert.Equal(t, "summary.json", report)
}

func TestPublishRoundTrip(t *testing.T) {
	result, err := newTestOrchestrator(t, testConfig(2)).Run(context.Background(), site())
	require.NoError(t, err)

	out := config.OutputConfig{Path: "constraints.json", Format: "json", Compress: true}
	artifacts, err := BuildArtifacts(result, out)
	require.NoError(t, err)
	require.Len(t, artifacts, 2)

	dir := t.TempDir()
	reg := metrics.NewRegistry()
	require.NoError(t, Publish(context.Background(), sink.NewFileSink(dir), artifacts, reg, nil))
	assert.Equal(t, filepath.Join(dir, "constraints.json.sz"), artifacts[0].Location)
	assert.Equal(t, 2.0, counterValue(t, reg.ArtifactWrites.WithLabelValues("file", "ok")))

	doc, err := codec.OpenDocument(artifacts[0].Location)
	require.NoError(t, err)
	assert.Equal(t, result.Document.Fingerprint, doc.Fingerprint)
	assert.Equal(t, slaves(result.Document.Pass(PassWall)), slaves(doc.Pass(PassWall)))

	_, err = os.Stat(filepath.Join(dir, "constraints.report.json"))
	assert.NoError(t, err)
}

func TestWeightsStayInRange(t *testing.T) {
	result, err := newTestOrchestrator(t, testConfig(3)).Run(context.Background(), site())
	require.NoError(t, err)
	for _, set := range result.Document.Passes {
		for _, c := range set.Constraints {
			for _, m := range c.Masters {
				assert.False(t, math.IsNaN(m.Weight))
				assert.GreaterOrEqual(t, m.Weight, 0.0)
				assert.LessOrEqual(t, m.Weight, 1.0)
				assert.NotEqual(t, c.Slave, m.Node)
			}
		}
	}
}

func TestInspectClassifiesWithoutCoupling(t *testing.T) {
	model := site()
	model.Wall = nil // not needed for inspection

	report, err := newTestOrchestrator(t, testConfig(2)).Inspect(context.Background(), model)
	require.NoError(t, err)
	assert.Equal(t, 2, report.AnchorsFound)
	assert.Equal(t, 2, report.EndpointsClassified)
	assert.Empty(t, report.Passes)
}
