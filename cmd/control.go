package cmd

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/jfmyers9/yamp/internal/api"
	"github.com/jfmyers9/yamp/internal/playback"
	"github.com/spf13/cobra"
)

// playCmd represents the play command
var playCmd = &cobra.Command{
	Use:   "play [index]",
	Short: "Play a track from the loaded list",
	Long: `Play the track at index (0-based) in the loaded track list.

Without an index, resumes the current track, starting it if nothing has
been loaded into the audio sink yet.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runPlay,
}

// pauseCmd represents the pause command
var pauseCmd = &cobra.Command{
	Use:   "pause",
	Short: "Pause playback",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return sendEvent(playback.Pause{})
	},
}

// resumeCmd represents the resume command
var resumeCmd = &cobra.Command{
	Use:   "resume",
	Short: "Resume or start the current track",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return sendEvent(playback.ResumeOrPlayCurrent{})
	},
}

// nextCmd represents the next command
var nextCmd = &cobra.Command{
	Use:   "next",
	Short: "Skip to the next track",
	Long:  `Skip to the next track. After the last track, playback wraps to the first.`,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return sendEvent(playback.Next{})
	},
}

// prevCmd represents the prev command
var prevCmd = &cobra.Command{
	Use:   "prev",
	Short: "Go to the previous track",
	Long:  `Go to the previous track. Before the first track, playback wraps to the last.`,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return sendEvent(playback.Previous{})
	},
}

// volumeCmd represents the volume command
var volumeCmd = &cobra.Command{
	Use:   "volume <0-100>",
	Short: "Set playback volume",
	Long:  `Set the playback volume. Level must be between 0 (muted) and 100 (maximum).`,
	Args:  cobra.ExactArgs(1),
	RunE:  runVolume,
}

// seekCmd represents the seek command
var seekCmd = &cobra.Command{
	Use:   "seek <seconds>",
	Short: "Seek within the current track",
	Args:  cobra.ExactArgs(1),
	RunE:  runSeek,
}

func init() {
	rootCmd.AddCommand(playCmd)
	rootCmd.AddCommand(pauseCmd)
	rootCmd.AddCommand(resumeCmd)
	rootCmd.AddCommand(nextCmd)
	rootCmd.AddCommand(prevCmd)
	rootCmd.AddCommand(volumeCmd)
	rootCmd.AddCommand(seekCmd)
}

// clientTimeout bounds a single request to the daemon.
const clientTimeout = 5 * time.Second

// sendEvent delivers ev to the running daemon.
func sendEvent(ev playback.Event) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), clientTimeout)
	defer cancel()

	if err := daemonClient(cfg).Send(ctx, ev); err != nil {
		if errors.Is(err, api.ErrDaemonUnavailable) {
			return fmt.Errorf("%w (start it with 'yamp daemon')", err)
		}
		return err
	}
	return nil
}

func runPlay(cmd *cobra.Command, args []string) error {
	if len(args) == 0 {
		return sendEvent(playback.ResumeOrPlayCurrent{})
	}

	index, err := strconv.Atoi(args[0])
	if err != nil || index < 0 {
		return fmt.Errorf("invalid track index: %s (must be a number >= 0)", args[0])
	}
	return sendEvent(playback.PlayAt{Index: index})
}

// parseVolume converts a 0-100 level to the sink's 0-1 range.
func parseVolume(arg string) (float64, error) {
	level, err := strconv.Atoi(arg)
	if err != nil || level < 0 || level > 100 {
		return 0, fmt.Errorf("invalid volume level: %s (must be a number 0-100)", arg)
	}
	return float64(level) / 100, nil
}

func runVolume(cmd *cobra.Command, args []string) error {
	value, err := parseVolume(args[0])
	if err != nil {
		return err
	}
	return sendEvent(playback.SetVolume{Value: value})
}

func runSeek(cmd *cobra.Command, args []string) error {
	seconds, err := strconv.ParseFloat(args[0], 64)
	if err != nil || seconds < 0 {
		return fmt.Errorf("invalid position: %s (must be seconds >= 0)", args[0])
	}
	return sendEvent(playback.Seek{Value: seconds})
}
