package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/jfmyers9/yamp/internal/api"
	"github.com/jfmyers9/yamp/internal/tui"
	"github.com/spf13/cobra"
)

var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Display a terminal UI for the daemon's playback",
	Long: `Display a terminal user interface driven by the running daemon.

The TUI follows the daemon's state stream and sends intents on key presses:

  space   pause / resume
  n, p    next / previous track
  ←, →    seek backward / forward
  +, -    volume up / down
  enter   play the highlighted track
  q       quit`,
	RunE: runTUI,
}

func init() {
	rootCmd.AddCommand(tuiCmd)
}

func runTUI(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	client := daemonClient(cfg)

	ctx, cancel := context.WithTimeout(cmd.Context(), clientTimeout)
	_, err = client.State(ctx)
	cancel()
	if errors.Is(err, api.ErrDaemonUnavailable) {
		return fmt.Errorf("%w (start it with 'yamp daemon')", err)
	}

	app := tui.New(client, tui.DefaultConfig())
	return app.Run(cmd.Context())
}
