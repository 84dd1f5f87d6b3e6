package pipeline

import (
	"github.com/dd0wney/anchorlink/pkg/config"
	"github.com/dd0wney/anchorlink/pkg/integrity"
	"github.com/dd0wney/anchorlink/pkg/logging"
	"github.com/dd0wney/anchorlink/pkg/mesh"
	"github.com/dd0wney/anchorlink/pkg/metrics"
)

// Pass names, as they appear in the document and the report.
const (
	PassWall = "wall"
	PassSoil = "soil"
)

// Context carries everything a single run needs from stage to stage.
// A fresh Context is built per Run; nothing is shared between runs.
type Context struct {
	Config  *config.Config
	Logger  logging.Logger
	Metrics *metrics.Registry
	Nodes   *mesh.NodeTable
	Up      mesh.Axis
	Report  *integrity.Report

	state *stateMachine
}

// State returns the stage the run has reached.
func (c *Context) State() State {
	return c.state.Current()
}

func (c *Context) advance(next State) error {
	return c.state.Advance(next)
}
