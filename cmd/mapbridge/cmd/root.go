// Package cmd implements the mapbridge CLI commands.
package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/go-drift/mapbridge/pkg/config"
)

// Version information set at build time.
var (
	Version   = "0.1.0-dev"
	BuildTime = "unknown"
)

var rootCmd = &cobra.Command{
	Use:   "mapbridge",
	Short: "Bridge embedded native maps to a remote caller",
	Long: `mapbridge hosts embedded native map views and answers the commands a
remote caller sends over platform channels.

Use "mapbridge replay" to drive a bridge against the simulated map engine.`,
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	flags := rootCmd.PersistentFlags()
	flags.StringP("config", "c", "", "config file (default is ./"+config.FileName+")")
	flags.String("log-level", "", "log level: debug, info, warn or error")
	flags.String("phase", "", "host phase new views attach in: created, started, resumed, paused or stopped")
	flags.String("snapshot-dir", "", "directory snapshot and image paths are resolved in")
	_ = viper.BindPFlag("config", flags.Lookup("config"))
	_ = viper.BindPFlag("log.level", flags.Lookup("log-level"))
	_ = viper.BindPFlag("host.phase", flags.Lookup("phase"))
	_ = viper.BindPFlag("snapshot.dir", flags.Lookup("snapshot-dir"))
}

func initConfig() {
	viper.AutomaticEnv()
	viper.SetEnvPrefix("MAPBRIDGE")
	// MAPBRIDGE_SNAPSHOT_MAX_DIMENSION for snapshot.max_dimension
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
}

// loadConfig reads mapbridge.yaml, applies flag and environment overrides
// and validates the result.
func loadConfig(v *viper.Viper) (*config.Resolved, error) {
	var (
		cfg *config.Config
		err error
	)
	if path := v.GetString("config"); path != "" {
		cfg, err = config.Load(path)
	} else {
		var cwd string
		if cwd, err = os.Getwd(); err != nil {
			return nil, fmt.Errorf("failed to get current directory: %w", err)
		}
		cfg, err = config.LoadOptional(cwd)
	}
	if err != nil {
		return nil, err
	}

	overrideString(v, "log.level", &cfg.Log.Level)
	overrideString(v, "host.phase", &cfg.Host.Phase)
	overrideString(v, "snapshot.dir", &cfg.Snapshot.Dir)
	overrideString(v, "channels.prefix", &cfg.Channels.Prefix)
	overrideString(v, "engine.version", &cfg.Engine.Version)
	if v.IsSet("log.verbose") {
		cfg.Log.Verbose = v.GetBool("log.verbose")
	}
	if v.IsSet("snapshot.max_dimension") {
		cfg.Snapshot.MaxDimension = v.GetInt("snapshot.max_dimension")
	}
	if v.IsSet("host.density") {
		cfg.Host.Density = v.GetFloat64("host.density")
	}
	return config.Resolve(cfg)
}

func overrideString(v *viper.Viper, key string, dst *string) {
	if v.IsSet(key) {
		if s := v.GetString(key); s != "" {
			*dst = s
		}
	}
}
