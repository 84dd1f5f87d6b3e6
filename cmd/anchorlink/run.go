package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/dd0wney/anchorlink/pkg/config"
	"github.com/dd0wney/anchorlink/pkg/logging"
	"github.com/dd0wney/anchorlink/pkg/metrics"
	"github.com/dd0wney/anchorlink/pkg/pipeline"
	"github.com/dd0wney/anchorlink/pkg/sink"
)

type runOptions struct {
	global *globalOptions

	output      string
	format      string
	compress    bool
	report      string
	workers     int
	upAxis      string
	maxSkipRate float64
	soilSlaves  string
	metricsFile string
	s3Bucket    string
	s3Prefix    string
	s3Region    string
	s3Endpoint  string
}

func newRunCmd(global *globalOptions) *cobra.Command {
	opts := &runOptions{global: global}

	cmd := &cobra.Command{
		Use:   "run <model>",
		Short: "Generate wall and soil constraints for every anchor in a model",
		Example: `  anchorlink run model.json
  anchorlink run -c site.yaml --output out/constraints.yaml --format yaml model.yaml
  anchorlink run --compress --s3-bucket fe-runs --s3-region eu-west-1 model.json`,
		Args: exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPipeline(cmd, opts, args[0])
		},
	}

	f := cmd.Flags()
	f.StringVarP(&opts.output, "output", "o", "", "constraint document path")
	f.StringVar(&opts.format, "format", "", "output format (json, yaml)")
	f.BoolVar(&opts.compress, "compress", false, "snappy-compress the constraint document")
	f.StringVar(&opts.report, "report", "", "report file name (default <output stem>.report.json)")
	f.IntVarP(&opts.workers, "workers", "w", 0, "worker goroutines per pass (0 = one per CPU)")
	f.StringVar(&opts.upAxis, "up-axis", "", "vertical axis, optionally signed (x, y, z, -y, ...)")
	f.Float64Var(&opts.maxSkipRate, "max-skip-rate", 0, "fail when more than this fraction of slaves is skipped")
	f.StringVar(&opts.soilSlaves, "soil-slaves", "", "soil slaves: tail or bonded")
	f.StringVar(&opts.metricsFile, "metrics-file", "", "write Prometheus metrics to this file")
	f.StringVar(&opts.s3Bucket, "s3-bucket", "", "also upload artifacts to this bucket")
	f.StringVar(&opts.s3Prefix, "s3-prefix", "", "key prefix for uploaded artifacts")
	f.StringVar(&opts.s3Region, "s3-region", "", "bucket region")
	f.StringVar(&opts.s3Endpoint, "s3-endpoint", "", "custom endpoint for S3-compatible stores")
	return cmd
}

// applyFlags overrides cfg with every flag that was set on the command line.
func (o *runOptions) applyFlags(cmd *cobra.Command, cfg *config.Config) {
	f := cmd.Flags()
	if f.Changed("output") {
		cfg.Output.Path = o.output
	}
	if f.Changed("format") {
		cfg.Output.Format = o.format
	}
	if f.Changed("compress") {
		cfg.Output.Compress = o.compress
	}
	if f.Changed("report") {
		cfg.Output.Report = o.report
	}
	if f.Changed("workers") {
		cfg.Workers = o.workers
	}
	if f.Changed("up-axis") {
		cfg.UpAxis = o.upAxis
	}
	if f.Changed("max-skip-rate") {
		cfg.MaxSkipRate = o.maxSkipRate
	}
	if f.Changed("soil-slaves") {
		cfg.SoilSlaves = o.soilSlaves
	}
	if f.Changed("metrics-file") {
		cfg.Metrics.TextfilePath = o.metricsFile
	}
	if f.Changed("s3-bucket") {
		cfg.Output.S3.Bucket = o.s3Bucket
	}
	if f.Changed("s3-prefix") {
		cfg.Output.S3.Prefix = o.s3Prefix
	}
	if f.Changed("s3-region") {
		cfg.Output.S3.Region = o.s3Region
	}
	if f.Changed("s3-endpoint") {
		cfg.Output.S3.Endpoint = o.s3Endpoint
	}
}

func runPipeline(cmd *cobra.Command, opts *runOptions, modelPath string) error {
	cfg, err := loadConfig(opts.global.configPath)
	if err != nil {
		return err
	}
	opts.applyFlags(cmd, cfg)
	if err := cfg.Validate(); err != nil {
		return usageError(err)
	}
	if cfg.Workers == 0 {
		cfg.Workers = defaultWorkers()
	}

	logger := newLogger(cmd.ErrOrStderr(), opts.global, cfg)

	model, err := openModel(modelPath)
	if err != nil {
		return err
	}
	logger.Info("model loaded",
		logging.Path(modelPath),
		logging.Int("nodes", len(model.Nodes)),
		logging.Int("elements", len(model.Elements)))

	reg := metrics.NewRegistry()
	orch, err := pipeline.New(cfg, logger, reg)
	if err != nil {
		return usageError(err)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	result, runErr := orch.Run(ctx, model)
	if result == nil {
		writeMetrics(cfg, reg, logger)
		return runErr
	}

	artifacts, err := pipeline.BuildArtifacts(result, cfg.Output)
	if err != nil {
		return err
	}
	out, err := newSink(ctx, cfg.Output)
	if err != nil {
		return err
	}
	if err := pipeline.Publish(ctx, out, artifacts, reg, logger); err != nil {
		return err
	}
	writeMetrics(cfg, reg, logger)

	fmt.Fprintln(cmd.OutOrStdout(), renderSummary(result, artifacts, cfg.MaxSkipRate))

	if errors.Is(runErr, pipeline.ErrSkipRateExceeded) {
		return &ExitError{Code: ExitSkipRate, Err: runErr}
	}
	return runErr
}

// newSink writes next to the configured output path, and to S3 when a bucket
// is configured.
func newSink(ctx context.Context, out config.OutputConfig) (sink.Sink, error) {
	sinks := sink.Multi{sink.NewFileSink(filepath.Dir(out.Path))}
	if out.S3.Enabled() {
		s3, err := sink.NewS3Sink(ctx, out.S3)
		if err != nil {
			return nil, err
		}
		sinks = append(sinks, s3)
	}
	return sinks, nil
}

func writeMetrics(cfg *config.Config, reg *metrics.Registry, logger logging.Logger) {
	if cfg.Metrics.TextfilePath == "" {
		return
	}
	if err := reg.WriteTextfile(cfg.Metrics.TextfilePath); err != nil {
		logger.Warn("metrics not written", logging.Path(cfg.Metrics.TextfilePath), logging.Error(err))
	}
}
