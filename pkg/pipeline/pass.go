package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/dd0wney/anchorlink/pkg/algorithms"
	"github.com/dd0wney/anchorlink/pkg/config"
	"github.com/dd0wney/anchorlink/pkg/coupling"
	"github.com/dd0wney/anchorlink/pkg/integrity"
	"github.com/dd0wney/anchorlink/pkg/logging"
	"github.com/dd0wney/anchorlink/pkg/mpc"
	"github.com/dd0wney/anchorlink/pkg/parallel"
)

type pass struct {
	name     string
	done     State
	resolver *coupling.Resolver
	slaves   []int64 // ascending
	set      *mpc.ConstraintSet
}

type outcome struct {
	slave int64
	res   coupling.Resolution
	err   error
}

// wallSlaves returns the head of every valid anchor.
func wallSlaves(cls *algorithms.Classification) []int64 {
	ids := make([]int64, 0, len(cls.Valid))
	for _, e := range cls.Valid {
		ids = append(ids, e.Head)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// soilSlaves returns the tail of every valid anchor, plus the interior nodes
// in bonded mode.
func soilSlaves(cls *algorithms.Classification, mode string) []int64 {
	ids := make([]int64, 0, len(cls.Valid))
	for _, e := range cls.Valid {
		ids = append(ids, e.Tail)
		if mode == config.SoilSlavesBonded {
			ids = append(ids, e.Interior...)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// runPass resolves every slave of p on the worker pool. Each worker appends
// to its own buffer; the buffers are merged and ordered by slave id once the
// pool drains.
func runPass(ctx context.Context, rc *Context, p *pass) (*mpc.ConstraintSet, error) {
	logger := rc.Logger.With(logging.Pass(p.name))
	timer := logging.StartTimer(logger, "coupling pass", logging.Count(len(p.slaves)))

	pool, err := parallel.NewWorkerPoolWithLogger(rc.Config.Workers, logger)
	if err != nil {
		return nil, err
	}
	buffers := parallel.NewBuffers[outcome](pool.Workers())
	dofs := rc.Config.DOFs

	for _, id := range p.slaves {
		if ctx.Err() != nil {
			break
		}
		node, ok := rc.Nodes.Get(id)
		if !ok {
			pool.Close()
			return nil, fmt.Errorf("slave %d is not in the node table", id)
		}
		pool.Submit(func(worker int) {
			if ctx.Err() != nil {
				return
			}
			res, err := p.resolver.Resolve(node, dofs)
			buffers.Append(worker, outcome{slave: id, res: res, err: err})
		})
	}
	pool.Wait()

	if err := ctx.Err(); err != nil {
		timer.EndError(err)
		return nil, err
	}
	if n := pool.Panics(); n > 0 {
		err := fmt.Errorf("%d slave resolutions panicked", n)
		timer.EndError(err)
		return nil, err
	}

	outcomes := buffers.Merge()
	sort.Slice(outcomes, func(i, j int) bool { return outcomes[i].slave < outcomes[j].slave })

	params := p.resolver.Params()
	set := &mpc.ConstraintSet{
		Pass: p.name,
		Provenance: mpc.Provenance{
			InitialRadius: params.InitialRadius,
			MaxRadius:     params.MaxRadius,
			MinNeighbors:  params.MinNeighbors,
			KMax:          params.KMax,
		},
		Constraints: make([]mpc.Constraint, 0, len(outcomes)),
	}
	report := integrity.NewPassReport(p.name)

	for _, oc := range outcomes {
		report.Attempted++
		if oc.err != nil {
			reason, err := skipReason(oc.err)
			if err != nil {
				timer.EndError(err)
				return nil, err
			}
			report.AddSkip(oc.slave, reason, oc.err.Error())
			rc.Metrics.RecordSkip(p.name, string(reason))
			if reason.Failing() {
				logger.Warn("slave skipped", logging.NodeID(oc.slave), logging.Reason(string(reason)), logging.Error(oc.err))
			} else {
				logger.Debug("slave already conforming", logging.NodeID(oc.slave))
			}
			continue
		}

		r := oc.res
		set.Constraints = append(set.Constraints, r.Constraint)
		report.Emitted++
		if r.Fallback {
			report.Fallbacks++
			logger.Debug("nearest-neighbour fallback", logging.NodeID(oc.slave), logging.Radius(r.RadiusUsed))
		}
		if r.Retries > 0 {
			report.Escalated++
		}
		report.MaxRadiusUsed = max(report.MaxRadiusUsed, r.RadiusUsed)
		report.AddDistance(r.NearestDistance)
		rc.Metrics.RecordResolution(p.name, r.Retries, len(r.Constraint.Masters), r.Fallback, r.NearestDistance)
	}

	set.Provenance.MaxRadiusUsed = report.MaxRadiusUsed
	set.Provenance.Fallbacks = report.Fallbacks
	rc.Report.AddPass(report)

	rc.Metrics.RecordPhase(p.name+"_pass", timer.End(
		logging.Int("emitted", report.Emitted),
		logging.Int("skipped", len(report.Skipped))))
	return set, nil
}

// skipReason maps a per-slave resolution error to its report category.
// Anything else is unexpected and aborts the pass.
func skipReason(err error) (integrity.SkipReason, error) {
	switch {
	case errors.Is(err, coupling.ErrSharedNode):
		return integrity.SkipSharedNode, nil
	case errors.Is(err, coupling.ErrNoCandidatesInRange):
		return integrity.SkipNoCandidates, nil
	case errors.Is(err, mpc.ErrInvalidConstraint):
		return integrity.SkipInvalidConstraint, nil
	}
	return "", err
}
