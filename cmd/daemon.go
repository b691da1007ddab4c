package cmd

import (
	"fmt"

	"github.com/jfmyers9/yamp/internal/daemon"
	"github.com/spf13/cobra"
)

// daemonCmd represents the daemon command
var daemonCmd = &cobra.Command{
	Use:   "daemon",
	Short: "Run the playback daemon",
	Long: `Run the playback daemon.

The daemon will:
- Restore the last track list and resume playback if it was playing
- Resolve tracks through the Yandex Music API and play them with mpv
- Advance through the track list, wrapping at either end
- Serve the local API used by the other yamp commands
- Mirror the current track to Discord when discord.app_id is set
- Handle graceful shutdown on SIGINT/SIGTERM

The daemon runs in the foreground and logs to stderr by default.
Use the --log-file flag to log to a file (useful for launchd or systemd).`,
	Args: cobra.NoArgs,
	RunE: runDaemon,
}

func init() {
	rootCmd.AddCommand(daemonCmd)
}

func runDaemon(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	logger := setupLogger(logFile, logLevel)
	logger.Info().
		Str("version", version).
		Str("data_dir", cfg.DataDir).
		Msg("Starting yamp daemon")

	d, err := daemon.New(cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to create daemon: %w", err)
	}

	// Run daemon (blocks until shutdown signal)
	runErr := d.Run()

	if err := d.Shutdown(); err != nil {
		logger.Error().Err(err).Msg("Error during shutdown")
		if runErr == nil {
			runErr = err
		}
	}
	if runErr != nil {
		return fmt.Errorf("daemon error: %w", runErr)
	}

	logger.Info().Msg("Daemon stopped")
	return nil
}
