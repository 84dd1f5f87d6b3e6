package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/dd0wney/anchorlink/pkg/coupling"
	"github.com/dd0wney/anchorlink/pkg/mesh"
	"github.com/dd0wney/anchorlink/pkg/mpc"
	"github.com/dd0wney/anchorlink/pkg/validation"
)

// Soil slave selection modes.
const (
	SoilSlavesTail   = "tail"
	SoilSlavesBonded = "bonded"
)

// Config is the complete run configuration.
//
// MaxSkipRate is inclusive: a run whose skip rate equals it still succeeds,
// so 0 tolerates no failing skips at all.
type Config struct {
	UpAxis      string        `yaml:"up_axis" json:"up_axis" validate:"required"`
	Workers     int           `yaml:"workers" json:"-" validate:"gte=0"`
	MaxSkipRate float64       `yaml:"max_skip_rate" json:"max_skip_rate" validate:"gte=0,lte=1"`
	SoilSlaves  string        `yaml:"soil_slaves" json:"soil_slaves" validate:"oneof=tail bonded"`
	DOFs        []string      `yaml:"dofs" json:"dofs" validate:"min=1,dive,required"`
	Wall        PassConfig    `yaml:"wall" json:"wall"`
	Soil        PassConfig    `yaml:"soil" json:"soil"`
	Output      OutputConfig  `yaml:"output" json:"-"`
	Log         LogConfig     `yaml:"log" json:"-"`
	Metrics     MetricsConfig `yaml:"metrics" json:"-"`
}

// PassConfig holds the coupling parameters of one pass.
type PassConfig struct {
	InitialRadius       float64 `yaml:"initial_radius" json:"initial_radius" validate:"gt=0"`
	MaxRadius           float64 `yaml:"max_radius" json:"max_radius" validate:"gt=0"`
	MinNeighbors        int     `yaml:"min_neighbors" json:"min_neighbors" validate:"min=1"`
	KMax                int     `yaml:"k_max" json:"k_max" validate:"min=1"`
	RetryBudget         int     `yaml:"retry_budget" json:"retry_budget" validate:"gte=0"`
	Epsilon             float64 `yaml:"epsilon" json:"epsilon" validate:"gte=0"`
	FallbackMaxDistance float64 `yaml:"fallback_max_distance" json:"fallback_max_distance" validate:"gte=0"`
}

// Params converts the pass configuration for the resolver.
func (p PassConfig) Params() coupling.Params {
	return coupling.Params{
		InitialRadius:       p.InitialRadius,
		MaxRadius:           p.MaxRadius,
		MinNeighbors:        p.MinNeighbors,
		KMax:                p.KMax,
		RetryBudget:         p.RetryBudget,
		Epsilon:             validation.DefaultOr(p.Epsilon, coupling.DefaultEpsilon),
		FallbackMaxDistance: p.FallbackMaxDistance,
	}
}

// OutputConfig controls where artifacts go.
type OutputConfig struct {
	Path     string   `yaml:"path"`
	Format   string   `yaml:"format" validate:"oneof=json yaml"`
	Compress bool     `yaml:"compress"`
	Report   string   `yaml:"report"`
	S3       S3Config `yaml:"s3"`
}

// S3Config enables upload of the artifacts to a bucket. Static keys are
// optional; without them the default AWS credential chain is used.
type S3Config struct {
	Bucket          string        `yaml:"bucket"`
	Prefix          string        `yaml:"prefix"`
	Region          string        `yaml:"region"`
	Endpoint        string        `yaml:"endpoint"`
	AccessKeyID     string        `yaml:"access_key_id"`
	SecretAccessKey string        `yaml:"secret_access_key"`
	UploadTimeout   time.Duration `yaml:"upload_timeout"`
}

// Enabled reports whether an S3 bucket is configured.
func (s S3Config) Enabled() bool {
	return s.Bucket != ""
}

// LogConfig sets the log level.
type LogConfig struct {
	Level string `yaml:"level" validate:"omitempty,oneof=debug info warn warning error"`
}

// MetricsConfig sets where Prometheus text output is written, if anywhere.
type MetricsConfig struct {
	TextfilePath string `yaml:"textfile_path"`
}

// Default returns the built-in configuration. The radii are starting points
// and are expected to be tuned to the mesh size.
func Default() *Config {
	return &Config{
		UpAxis:      "z",
		MaxSkipRate: 0.1,
		SoilSlaves:  SoilSlavesTail,
		DOFs:        append([]string(nil), mpc.DefaultDOFs...),
		Wall: PassConfig{
			InitialRadius: 0.5,
			MaxRadius:     8,
			MinNeighbors:  3,
			KMax:          8,
			RetryBudget:   4,
		},
		Soil: PassConfig{
			InitialRadius: 1.0,
			MaxRadius:     20,
			MinNeighbors:  3,
			KMax:          8,
			RetryBudget:   5,
		},
		Output: OutputConfig{
			Path:   "constraints.json",
			Format: "json",
			S3:     S3Config{UploadTimeout: 30 * time.Second},
		},
		Log: LogConfig{Level: "info"},
	}
}

// Load reads a YAML file over the defaults and validates the result.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML over the defaults and validates the result.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Axis returns the parsed up axis.
func (c *Config) Axis() (mesh.Axis, error) {
	return mesh.ParseAxis(c.UpAxis)
}

// Validate checks field tags first, then cross-field rules.
func (c *Config) Validate() error {
	if err := validation.Struct(c); err != nil {
		return fmt.Errorf("config: %w", err)
	}

	cv := validation.NewConfigValidator("config")
	cv.Custom("up_axis", func() error {
		_, err := c.Axis()
		return err
	})
	validatePass(cv, "wall", c.Wall)
	validatePass(cv, "soil", c.Soil)
	cv.Required("output.path", c.Output.Path)
	cv.When(c.Output.S3.Enabled(), func(cv *validation.ConfigValidator) {
		cv.Required("output.s3.region", c.Output.S3.Region).
			MinDuration("output.s3.upload_timeout", c.Output.S3.UploadTimeout, time.Second)
	})
	return cv.Validate()
}

func validatePass(cv *validation.ConfigValidator, name string, p PassConfig) {
	cv.Custom(name+".max_radius", func() error {
		if p.MaxRadius < p.InitialRadius {
			return fmt.Errorf("max radius %g is below initial radius %g", p.MaxRadius, p.InitialRadius)
		}
		return nil
	})
	cv.Custom(name+".k_max", func() error {
		if p.KMax < p.MinNeighbors {
			return errors.New("k_max must be at least min_neighbors")
		}
		return nil
	})
}
