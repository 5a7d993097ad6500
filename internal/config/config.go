// Package config loads the YAML run configuration used by the blobnet CLI.
package config

import (
	"bytes"
	"io"
	"os"
	"runtime"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/born-ml/blobnet/internal/netspec"
	"github.com/born-ml/blobnet/internal/parallel"
)

// StateConf overrides the run state declared in the network document.
type StateConf struct {
	Phase  string   `yaml:"phase"`
	Level  int      `yaml:"level"`
	Stages []string `yaml:"stage"`
}

// ParallelConf controls kernel parallelism.
type ParallelConf struct {
	Enabled      *bool `yaml:"enabled"`
	Workers      int   `yaml:"workers"`
	MinChunkSize int   `yaml:"min_chunk_size"`
}

// Config is one CLI run.
type Config struct {
	Net      string           `yaml:"net"`
	Weights  string           `yaml:"weights"`
	State    *StateConf       `yaml:"state"`
	Inputs   map[string][]int `yaml:"inputs"` // Input buffer name -> shape
	Fill     float32          `yaml:"fill"`   // Constant written to every input before a run
	LogLevel string           `yaml:"log_level"`
	Parallel ParallelConf     `yaml:"parallel"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{LogLevel: "info"}
}

// Load reads a configuration file. Missing keys keep their defaults.
func Load(path string) (*Config, error) {
	//nolint:gosec // G304: config path is user supplied by design
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read config")
	}
	cfg, err := Parse(data)
	if err != nil {
		return nil, errors.Wrapf(err, "config %s", path)
	}
	return cfg, nil
}

// Parse decodes a YAML configuration document.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, errors.Wrap(err, "failed to decode config")
	}
	if _, err := cfg.Level(); err != nil {
		return nil, err
	}
	if _, err := cfg.RunState(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Level parses LogLevel.
func (c *Config) Level() (logrus.Level, error) {
	if c.LogLevel == "" {
		return logrus.InfoLevel, nil
	}
	level, err := logrus.ParseLevel(c.LogLevel)
	if err != nil {
		return 0, errors.Wrap(err, "log_level")
	}
	return level, nil
}

// RunState returns the run state override, or nil when none is configured.
func (c *Config) RunState() (*netspec.RunState, error) {
	if c.State == nil {
		return nil, nil
	}
	phase := netspec.Test
	if c.State.Phase != "" {
		p, err := netspec.ParsePhase(c.State.Phase)
		if err != nil {
			return nil, errors.Wrap(err, "state")
		}
		phase = p
	}
	return &netspec.RunState{
		Phase:  phase,
		Level:  c.State.Level,
		Stages: append([]string(nil), c.State.Stages...),
	}, nil
}

// ParallelConfig converts the parallel section, filling unset values from
// parallel.DefaultConfig.
func (c *Config) ParallelConfig() parallel.Config {
	cfg := parallel.DefaultConfig()
	if c.Parallel.Enabled != nil {
		cfg.Enabled = *c.Parallel.Enabled
	}
	if c.Parallel.Workers > 0 {
		cfg.NumWorkers = min(c.Parallel.Workers, runtime.NumCPU()*4)
	}
	if c.Parallel.MinChunkSize > 0 {
		cfg.MinChunkSize = c.Parallel.MinChunkSize
	}
	return cfg
}
