package main

import (
	"io"

	"github.com/spf13/cobra"

	"github.com/dd0wney/anchorlink/pkg/config"
	"github.com/dd0wney/anchorlink/pkg/logging"
)

type globalOptions struct {
	configPath string
	logLevel   string
}

func newRootCmd() *cobra.Command {
	opts := &globalOptions{}

	root := &cobra.Command{
		Use:   "anchorlink",
		Short: "Couple anchor line elements to wall and soil meshes with MPC constraints",
		Long: `anchorlink finds the anchors in a finite element model, decides which end
meets the retaining wall and which end sits in the soil, and writes the
multi-point constraints that tie each end to the surrounding mesh.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return usageError(err)
	})

	root.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "YAML configuration file")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "log level (debug, info, warn, error)")

	root.AddCommand(newRunCmd(opts), newCheckCmd(opts))
	return root
}

// exactArgs is cobra.ExactArgs with the error marked as a usage error.
func exactArgs(n int) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if err := cobra.ExactArgs(n)(cmd, args); err != nil {
			return usageError(err)
		}
		return nil
	}
}

// loadConfig reads the configuration file, or the defaults when none is given.
func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		return config.Default(), nil
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, usageError(err)
	}
	return cfg, nil
}

// newLogger picks the level from --log-level, then LOG_LEVEL, then the config.
func newLogger(w io.Writer, opts *globalOptions, cfg *config.Config) logging.Logger {
	level := logging.LevelFromEnv(logging.ParseLevel(cfg.Log.Level))
	if opts.logLevel != "" {
		level = logging.ParseLevel(opts.logLevel)
	}
	return logging.NewJSONLogger(w, level).With(logging.String("app", "anchorlink"))
}
