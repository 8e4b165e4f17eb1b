// Package config reads the optional mapbridge.yaml file.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/mod/semver"
	"gopkg.in/yaml.v3"

	"github.com/go-drift/mapbridge/pkg/logging"
	"github.com/go-drift/mapbridge/pkg/maps"
	"github.com/go-drift/mapbridge/pkg/platform"
)

// FileName is the configuration file looked up by LoadOptional.
const FileName = "mapbridge.yaml"

// Config represents mapbridge.yaml.
type Config struct {
	Log      LogConfig      `yaml:"log"`
	Snapshot SnapshotConfig `yaml:"snapshot"`
	Channels ChannelsConfig `yaml:"channels"`
	Host     HostConfig     `yaml:"host"`
	Engine   EngineConfig   `yaml:"engine"`
}

// LogConfig controls logging.
type LogConfig struct {
	Level string `yaml:"level,omitempty"`
	// Verbose adds stack traces to reported errors.
	Verbose bool `yaml:"verbose,omitempty"`
}

// SnapshotConfig controls map snapshots.
type SnapshotConfig struct {
	// MaxDimension caps the longer side of written snapshots. Zero keeps
	// the native size.
	MaxDimension int    `yaml:"max_dimension,omitempty"`
	Dir          string `yaml:"dir,omitempty"`
}

// ChannelsConfig names the channels the bridge listens on.
type ChannelsConfig struct {
	Prefix string `yaml:"prefix,omitempty"`
}

// HostConfig describes the simulated host.
type HostConfig struct {
	Phase   string  `yaml:"phase,omitempty"`
	Density float64 `yaml:"density,omitempty"`
}

// EngineConfig pins the native map engine.
type EngineConfig struct {
	Version string `yaml:"version,omitempty"`
}

// Resolved contains validated configuration with defaults applied.
type Resolved struct {
	LogLevel             slog.Level
	LogVerbose           bool
	SnapshotMaxDimension int
	SnapshotDir          string
	ChannelPrefix        string
	HostPhase            platform.HostPhase
	Density              float64
	EngineVersion        string
}

// LoadOptional reads mapbridge.yaml from dir if present.
func LoadOptional(dir string) (*Config, error) {
	cfg, err := Load(filepath.Join(dir, FileName))
	if errors.Is(err, os.ErrNotExist) {
		return &Config{}, nil
	}
	return cfg, err
}

// Load reads a configuration file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", filepath.Base(path), err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", filepath.Base(path), err)
	}
	return &cfg, nil
}

// Resolve validates cfg and fills in defaults.
func Resolve(cfg *Config) (*Resolved, error) {
	if cfg == nil {
		cfg = &Config{}
	}

	level := strings.TrimSpace(cfg.Log.Level)
	if level == "" {
		level = logging.LevelInfo
	}
	if err := validateLevel(level); err != nil {
		return nil, err
	}

	if cfg.Snapshot.MaxDimension < 0 {
		return nil, fmt.Errorf("snapshot.max_dimension must not be negative, got %d", cfg.Snapshot.MaxDimension)
	}

	prefix := strings.TrimSpace(cfg.Channels.Prefix)
	if prefix == "" {
		prefix = maps.DefaultChannelPrefix
	}

	phase := platform.PhaseResumed
	if name := strings.TrimSpace(cfg.Host.Phase); name != "" {
		p, err := platform.ParseHostPhase(name)
		if err != nil {
			return nil, fmt.Errorf("host.phase: %w", err)
		}
		phase = p
	}

	density := cfg.Host.Density
	if density == 0 {
		density = 1
	}
	if density < 0 {
		return nil, fmt.Errorf("host.density must be positive, got %g", density)
	}

	engineVersion := strings.TrimSpace(cfg.Engine.Version)
	if engineVersion == "" {
		engineVersion = "latest"
	}
	if err := validateEngineVersion(engineVersion); err != nil {
		return nil, err
	}

	return &Resolved{
		LogLevel:             logging.ParseLevel(level),
		LogVerbose:           cfg.Log.Verbose,
		SnapshotMaxDimension: cfg.Snapshot.MaxDimension,
		SnapshotDir:          strings.TrimSpace(cfg.Snapshot.Dir),
		ChannelPrefix:        prefix,
		HostPhase:            phase,
		Density:              density,
		EngineVersion:        engineVersion,
	}, nil
}

func validateLevel(level string) error {
	switch strings.ToUpper(level) {
	case logging.LevelDebug, logging.LevelInfo, logging.LevelWarn, "WARNING", logging.LevelError:
		return nil
	}
	return fmt.Errorf("log.level %q is not one of debug, info, warn, error", level)
}

// validateEngineVersion accepts "latest" or a semantic version such as v2.4.1.
func validateEngineVersion(version string) error {
	if version == "latest" {
		return nil
	}
	if !strings.HasPrefix(version, "v") {
		version = "v" + version
	}
	if !semver.IsValid(version) {
		return fmt.Errorf("engine.version %q is not a semantic version", version)
	}
	return nil
}
