package integrity

import (
	"math"
	"testing"
)

func TestPassReportHistogram(t *testing.T) {
	p := NewPassReport("wall")
	for _, d := range []float64{0, 1, 1.5, 4, 10, 19.9, 20, 21, 500} {
		p.AddDistance(d)
	}

	want := []int{2, 1, 1, 1, 2, 2}
	for i, w := range want {
		if p.Distances[i] != w {
			t.Errorf("bucket %s = %d, want %d", DistanceBucketLabels[i], p.Distances[i], w)
		}
	}
}

func TestSkipRate(t *testing.T) {
	r := NewReport()
	r.InvalidComponents = append(r.InvalidComponents, InvalidComponent{ID: 3, Fault: "closed_loop"})

	wall := NewPassReport("wall")
	wall.Attempted = 10
	wall.AddSkip(5, SkipNoCandidates, "")
	wall.AddSkip(6, SkipSharedNode, "")
	r.AddPass(wall)

	soil := NewPassReport("soil")
	soil.Attempted = 10
	soil.AddSkip(9, SkipInvalidConstraint, "")
	r.AddPass(soil)

	// (1 invalid + 1 + 1) / (1 + 9 + 10)
	got := r.ComputeSkipRate()
	if math.Abs(got-3.0/20.0) > 1e-12 {
		t.Errorf("SkipRate = %v, want 0.15", got)
	}
	if !r.HasSkips() {
		t.Error("HasSkips() should be true")
	}
}

func TestSkipRateEmpty(t *testing.T) {
	r := NewReport()
	if r.ComputeSkipRate() != 0 {
		t.Error("empty report should have zero skip rate")
	}
	if r.HasSkips() {
		t.Error("empty report has no skips")
	}
}

func TestRecordPruned(t *testing.T) {
	r := NewReport()
	soil := NewPassReport("soil")
	soil.Attempted = 2
	soil.Emitted = 2
	r.AddPass(soil)

	r.RecordPruned([]Violation{{Type: DanglingReference, Pass: "soil", Slave: 4, Message: "gone"}})

	if soil.Emitted != 1 || soil.SkipCounts[SkipDanglingReference] != 1 {
		t.Errorf("emitted=%d skips=%v", soil.Emitted, soil.SkipCounts)
	}
	if r.Violations != 1 {
		t.Errorf("Violations = %d, want 1", r.Violations)
	}
}

func TestReportFinalizeOrdering(t *testing.T) {
	r := NewReport()
	soil := NewPassReport("soil")
	soil.AddSkip(9, SkipNoCandidates, "")
	soil.AddSkip(2, SkipNoCandidates, "")
	r.AddPass(soil)
	r.AddPass(NewPassReport("wall"))
	r.InvalidComponents = []InvalidComponent{{ID: 4}, {ID: 1}}

	r.Finalize()

	if r.Passes[0].Pass != "wall" || r.Passes[1].Pass != "soil" {
		t.Errorf("pass order = %s, %s", r.Passes[0].Pass, r.Passes[1].Pass)
	}
	if soil.Skipped[0].Node != 2 {
		t.Errorf("skips not sorted: %v", soil.Skipped)
	}
	if r.InvalidComponents[0].ID != 1 {
		t.Errorf("invalid components not sorted: %v", r.InvalidComponents)
	}
	if r.Pass("missing") != nil {
		t.Error("Pass(missing) should be nil")
	}
}
