package cmd

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/go-drift/mapbridge/cmd/mapbridge/internal/replay"
	"github.com/go-drift/mapbridge/pkg/errors"
	"github.com/go-drift/mapbridge/pkg/logging"
)

var replayCmd = &cobra.Command{
	Use:   "replay <script.jsonl>",
	Short: "Run a command script against the simulated map engine",
	Long: `Replay feeds a script of JSON lines to one bridge instance backed by the
simulated map engine and prints every reply and outbound event as a JSON
line. Use "-" to read the script from standard input.`,
	Args: cobra.ExactArgs(1),
	RunE: runReplay,
}

func init() {
	replayCmd.Flags().Int("width", 256, "simulated map width in pixels")
	replayCmd.Flags().Int("height", 256, "simulated map height in pixels")
	rootCmd.AddCommand(replayCmd)
}

func runReplay(cmd *cobra.Command, args []string) error {
	res, err := loadConfig(viper.GetViper())
	if err != nil {
		return err
	}

	logger := logging.New(cmd.ErrOrStderr(), res.LogLevel.String())
	logging.SetDefault(logger)
	errors.SetHandler(&errors.LogHandler{Verbose: res.LogVerbose, Logger: logger})
	defer errors.SetHandler(nil)

	var script io.Reader = cmd.InOrStdin()
	if args[0] != "-" {
		f, err := os.Open(args[0])
		if err != nil {
			return fmt.Errorf("failed to open script: %w", err)
		}
		defer f.Close()
		script = f
	}

	var fs afero.Fs = afero.NewOsFs()
	if res.SnapshotDir != "" {
		if err := fs.MkdirAll(res.SnapshotDir, 0o755); err != nil {
			return fmt.Errorf("failed to create snapshot directory: %w", err)
		}
		fs = afero.NewBasePathFs(fs, res.SnapshotDir)
	}

	width, _ := cmd.Flags().GetInt("width")
	height, _ := cmd.Flags().GetInt("height")

	logger.Debug("starting replay",
		slog.String("script", args[0]),
		slog.String("phase", res.HostPhase.String()),
		slog.String("engine", res.EngineVersion),
	)
	r := replay.New(cmd.OutOrStdout(), replay.Options{
		Phase:                res.HostPhase,
		Density:              res.Density,
		SnapshotMaxDimension: res.SnapshotMaxDimension,
		ChannelPrefix:        res.ChannelPrefix,
		Fs:                   fs,
		Width:                width,
		Height:               height,
		Logger:               logger,
	})
	runErr := r.Run(cmd.Context(), script)
	if err := r.Close(); err != nil && runErr == nil {
		runErr = err
	}
	return runErr
}
