package pipeline

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/dd0wney/anchorlink/pkg/algorithms"
	"github.com/dd0wney/anchorlink/pkg/codec"
	"github.com/dd0wney/anchorlink/pkg/config"
	"github.com/dd0wney/anchorlink/pkg/coupling"
	"github.com/dd0wney/anchorlink/pkg/integrity"
	"github.com/dd0wney/anchorlink/pkg/logging"
	"github.com/dd0wney/anchorlink/pkg/mesh"
	"github.com/dd0wney/anchorlink/pkg/metrics"
	"github.com/dd0wney/anchorlink/pkg/mpc"
)

// Result is the output of a run.
type Result struct {
	Document *codec.Document
	Report   *integrity.Report
	States   []State
}

// Orchestrator runs the anchor coupling pipeline.
type Orchestrator struct {
	cfg     *config.Config
	logger  logging.Logger
	metrics *metrics.Registry
}

// New validates cfg and returns an orchestrator. A nil logger discards
// output; a nil registry gets a private one.
func New(cfg *config.Config, logger logging.Logger, reg *metrics.Registry) (*Orchestrator, error) {
	if cfg == nil {
		return nil, errors.New("pipeline: config is required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	if reg == nil {
		reg = metrics.NewRegistry()
	}
	return &Orchestrator{
		cfg:     cfg,
		logger:  logger.With(logging.Component("pipeline")),
		metrics: reg,
	}, nil
}

// Metrics returns the registry the orchestrator records into.
func (o *Orchestrator) Metrics() *metrics.Registry {
	return o.metrics
}

// Run couples every valid anchor in model to the wall and soil meshes.
//
// Structural problems (empty node table, empty master set) abort the run.
// Per-anchor and per-slave problems are recorded in the report and skipped.
// When the skip rate is over the limit, the result is returned together
// with a *SkipRateError.
func (o *Orchestrator) Run(ctx context.Context, model *mesh.Model) (*Result, error) {
	rc, err := o.newContext(model)
	if err != nil {
		o.metrics.RecordRun("failed", 0)
		o.logger.Error("pipeline aborted", logging.Error(err))
		return nil, err
	}

	result, err := o.run(ctx, rc, model)
	if err != nil && !errors.Is(err, ErrSkipRateExceeded) {
		rc.state.Fail()
		o.metrics.RecordRun("failed", 0)
		rc.Logger.Error("pipeline failed", logging.State(rc.State().String()), logging.Error(err))
		return nil, err
	}
	result.States = rc.state.History()
	return result, err
}

// Inspect builds and classifies the anchor graph without coupling anything.
// The returned report has no passes.
func (o *Orchestrator) Inspect(ctx context.Context, model *mesh.Model) (*integrity.Report, error) {
	rc, err := o.newContext(model)
	if err != nil {
		return nil, err
	}
	graph := buildGraph(rc, model.AnchorElements())
	if err := rc.advance(StateGraphBuilt); err != nil {
		return nil, err
	}
	if _, err := classify(ctx, rc, graph); err != nil {
		return nil, err
	}
	if err := rc.advance(StateEndpointsClassified); err != nil {
		return nil, err
	}
	rc.Report.Finalize()
	return rc.Report, nil
}

func (o *Orchestrator) newContext(model *mesh.Model) (*Context, error) {
	if model == nil {
		return nil, fmt.Errorf("pipeline: %w", mesh.ErrEmptyNodeTable)
	}
	nodes, err := mesh.NewNodeTable(model.Nodes)
	if err != nil {
		return nil, fmt.Errorf("pipeline: %w", err)
	}
	up, err := o.cfg.Axis()
	if err != nil {
		return nil, err
	}

	rc := &Context{
		Config:  o.cfg,
		Logger:  o.logger,
		Metrics: o.metrics,
		Nodes:   nodes,
		Up:      up,
		Report:  integrity.NewReport(),
	}
	rc.state = newStateMachine(func(from, to State) {
		rc.Logger.Debug("state transition",
			logging.String("from", from.String()),
			logging.State(to.String()))
	})
	return rc, nil
}

func (o *Orchestrator) run(ctx context.Context, rc *Context, model *mesh.Model) (*Result, error) {
	wall, err := newResolver(rc, model.WallSet(), rc.Config.Wall.Params())
	if err != nil {
		return nil, fmt.Errorf("%s pass: %w", PassWall, err)
	}
	soil, err := newResolver(rc, model.SoilSet(), rc.Config.Soil.Params())
	if err != nil {
		return nil, fmt.Errorf("%s pass: %w", PassSoil, err)
	}

	graph := buildGraph(rc, model.AnchorElements())
	if err := rc.advance(StateGraphBuilt); err != nil {
		return nil, err
	}

	cls, err := classify(ctx, rc, graph)
	if err != nil {
		return nil, err
	}
	if err := rc.advance(StateEndpointsClassified); err != nil {
		return nil, err
	}

	wallPass := &pass{name: PassWall, done: StateWallPassDone, resolver: wall, slaves: wallSlaves(cls)}
	soilPass := &pass{name: PassSoil, done: StateSoilPassDone, resolver: soil, slaves: soilSlaves(cls, rc.Config.SoilSlaves)}

	g, gctx := errgroup.WithContext(ctx)
	for _, p := range []*pass{wallPass, soilPass} {
		g.Go(func() error {
			set, err := runPass(gctx, rc, p)
			if err != nil {
				return fmt.Errorf("%s pass: %w", p.name, err)
			}
			p.set = set
			return rc.advance(p.done)
		})
	}
	if err := g.Wait(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, err
	}

	sets := []*mpc.ConstraintSet{wallPass.set, soilPass.set}
	if err := validate(rc, sets); err != nil {
		return nil, err
	}
	if err := rc.advance(StateValidated); err != nil {
		return nil, err
	}

	for _, s := range sets {
		s.Sort()
	}
	fp, err := codec.Fingerprint(model, rc.Config)
	if err != nil {
		return nil, err
	}
	doc := &codec.Document{Fingerprint: fp.String(), Passes: sets}
	if err := rc.advance(StateSerialized); err != nil {
		return nil, err
	}

	return o.finish(rc, doc)
}

func (o *Orchestrator) finish(rc *Context, doc *codec.Document) (*Result, error) {
	report := rc.Report
	report.Finalize()
	rate := report.ComputeSkipRate()
	if err := rc.advance(StateDone); err != nil {
		return nil, err
	}
	result := &Result{Document: doc, Report: report}

	fields := []logging.Field{
		logging.Int("anchors", report.AnchorsFound),
		logging.Int("invalid_components", len(report.InvalidComponents)),
		logging.Float64("skip_rate", rate),
	}
	for _, s := range doc.Passes {
		fields = append(fields, logging.Int(s.Pass+"_constraints", s.Len()))
	}

	// The limit itself is still acceptable.
	if rate > rc.Config.MaxSkipRate {
		rc.Metrics.RecordRun("skip_rate_exceeded", rate)
		rc.Logger.Error("skip rate over limit", append(fields, logging.Float64("limit", rc.Config.MaxSkipRate))...)
		return result, &SkipRateError{Rate: rate, Limit: rc.Config.MaxSkipRate, Report: report}
	}

	status := "ok"
	if report.HasSkips() {
		status = "degraded"
		rc.Logger.Warn("pipeline completed with skips", fields...)
	} else {
		rc.Logger.Info("pipeline completed", fields...)
	}
	rc.Metrics.RecordRun(status, rate)
	return result, nil
}

// newResolver indexes the masters of set that exist in the node table.
func newResolver(rc *Context, set mesh.MasterSet, params coupling.Params) (*coupling.Resolver, error) {
	known := make([]mesh.Node, 0, set.Len())
	for _, n := range set.Nodes {
		if rc.Nodes.Has(n.ID) {
			known = append(known, n)
			continue
		}
		rc.Report.UnknownMasters = append(rc.Report.UnknownMasters, integrity.UnknownMaster{Set: set.Name, Node: n.ID})
		rc.Logger.Warn("master candidate missing from node table",
			logging.String("set", set.Name), logging.NodeID(n.ID))
	}

	r, err := coupling.NewResolver(mesh.MasterSet{Name: set.Name, Nodes: known}, params)
	if err != nil {
		return nil, err
	}
	if d := r.Duplicates(); d > 0 {
		rc.Logger.Warn("repeated master candidates indexed once",
			logging.String("set", set.Name), logging.Count(d))
	}
	return r, nil
}

// buildGraph drops anchor elements that reference unknown nodes, then groups
// the rest into components.
func buildGraph(rc *Context, anchors []mesh.LineElement) *algorithms.ComponentResult {
	timer := logging.StartTimer(rc.Logger, "build anchor graph", logging.Count(len(anchors)))

	kept := make([]mesh.LineElement, 0, len(anchors))
	for _, e := range anchors {
		if !rc.Nodes.Has(e.NodeA) || !rc.Nodes.Has(e.NodeB) {
			rc.Report.RejectedElements = append(rc.Report.RejectedElements, integrity.RejectedElement{
				ID:     e.ID,
				Reason: string(integrity.SkipDanglingReference),
			})
			rc.Logger.Warn("anchor element references a missing node",
				logging.ElementID(e.ID), logging.Reason(string(integrity.SkipDanglingReference)))
			continue
		}
		kept = append(kept, e)
	}

	graph := algorithms.BuildComponents(kept)
	for _, r := range graph.Rejected {
		rc.Report.RejectedElements = append(rc.Report.RejectedElements, integrity.RejectedElement{
			ID:     r.ElementID,
			Reason: r.Reason,
		})
		rc.Logger.Warn("degenerate anchor element rejected", logging.ElementID(r.ElementID), logging.Reason(r.Reason))
	}
	rc.Report.AnchorsFound = len(graph.Components)

	rc.Metrics.RecordPhase("graph", timer.End(logging.Int("components", len(graph.Components))))
	return graph
}

func classify(ctx context.Context, rc *Context, graph *algorithms.ComponentResult) (*algorithms.Classification, error) {
	timer := logging.StartTimer(rc.Logger, "classify endpoints", logging.Count(len(graph.Components)))

	cls, err := algorithms.ClassifyAll(ctx, graph.Components, rc.Nodes, rc.Up, rc.Config.Workers)
	if err != nil {
		timer.EndError(err)
		return nil, err
	}

	invalid := make(map[string]int)
	for _, e := range cls.Invalid {
		rc.Report.InvalidComponents = append(rc.Report.InvalidComponents, integrity.InvalidComponent{
			ID:    e.ComponentID,
			Fault: string(e.Fault),
			Nodes: e.Nodes,
		})
		invalid[string(e.Fault)]++
		rc.Logger.Warn("invalid anchor component",
			logging.AnchorID(e.ComponentID), logging.Reason(string(e.Fault)), logging.Any("nodes", e.Nodes))
	}
	rc.Report.EndpointsClassified = len(cls.Valid)

	rejected := make(map[string]int)
	for _, r := range rc.Report.RejectedElements {
		rejected[r.Reason]++
	}
	rc.Metrics.RecordGraph(rc.Report.AnchorsFound, rejected, invalid)
	rc.Metrics.RecordPhase("classify", timer.End(logging.Int("valid", len(cls.Valid))))
	return cls, nil
}

// validate runs the integrity rules over both passes and prunes every
// constraint they reject.
func validate(rc *Context, sets []*mpc.ConstraintSet) error {
	timer := logging.StartTimer(rc.Logger, "validate constraints")

	in := &integrity.Input{Nodes: rc.Nodes, Sets: sets}
	result, err := integrity.DefaultValidator().Validate(in)
	if err != nil {
		timer.EndError(err)
		return err
	}

	removed := integrity.Prune(in, result)
	rc.Report.RecordPruned(removed)
	for _, v := range removed {
		rc.Metrics.RecordPruned(v.Pass, string(v.Type.SkipReason()))
		rc.Logger.Warn("constraint pruned",
			logging.Pass(v.Pass), logging.NodeID(v.Slave),
			logging.Reason(v.Rule), logging.String("detail", v.Message))
	}
	for _, s := range sets {
		rc.Metrics.RecordEmitted(s.Pass, s.Len())
	}

	rc.Metrics.RecordPhase("validate", timer.End(logging.Int("pruned", len(removed))))
	return nil
}
