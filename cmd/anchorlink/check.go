package main

import (
	"errors"
	"fmt"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/dd0wney/anchorlink/pkg/codec"
	"github.com/dd0wney/anchorlink/pkg/mesh"
	"github.com/dd0wney/anchorlink/pkg/pipeline"
)

func newCheckCmd(global *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "check <model>",
		Short: "Validate the configuration and model and list the anchors found",
		Args:  exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(global.configPath)
			if err != nil {
				return err
			}
			if cfg.Workers == 0 {
				cfg.Workers = defaultWorkers()
			}
			logger := newLogger(cmd.ErrOrStderr(), global, cfg)

			model, err := openModel(args[0])
			if err != nil {
				return err
			}
			orch, err := pipeline.New(cfg, logger, nil)
			if err != nil {
				return usageError(err)
			}
			report, err := orch.Inspect(cmd.Context(), model)
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), renderCheck(model, report))
			return nil
		},
	}
}

func defaultWorkers() int {
	return runtime.GOMAXPROCS(0)
}

// openModel loads a model file. A model that fails validation is a usage
// error; an unreadable file is fatal.
func openModel(path string) (*mesh.Model, error) {
	model, err := codec.OpenModel(path)
	switch {
	case errors.Is(err, codec.ErrInvalidModel):
		return nil, usageError(err)
	case err != nil:
		return nil, &ExitError{Code: ExitFatal, Err: err}
	}
	return model, nil
}
