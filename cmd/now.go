package cmd

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"text/template"
	"time"

	"github.com/jfmyers9/yamp/internal/api"
	"github.com/jfmyers9/yamp/internal/playback"
	"github.com/mattn/go-runewidth"
	"github.com/spf13/cobra"
)

// nowCmd represents the now command
var nowCmd = &cobra.Command{
	Use:   "now",
	Short: "Display the currently playing track",
	Long: `Ask the daemon for the current track and print it.

The output format can be customized in ~/.config/yamp/config.yaml
using a Go template. Available fields: .Title, .Artists, .Cover, .ID,
.Index, .Total, .PlaylistID, .Position, .Duration

Exit codes:
  0 - Track is currently playing
  1 - Nothing playing, paused, or daemon not running`,
	Args: cobra.NoArgs,
	RunE: runNow,
}

func init() {
	rootCmd.AddCommand(nowCmd)

	nowCmd.Flags().StringP("format", "f", "", "Output format template (overrides config)")
	nowCmd.Flags().IntP("width", "w", 0, "Fixed output width (0=disabled, overrides config)")
	nowCmd.Flags().Bool("marquee", false, "Enable marquee scrolling for long text (overrides config)")
}

// NowPlaying is the data available to the now output template.
type NowPlaying struct {
	ID         string
	Title      string
	Artists    string
	Cover      string
	Index      int
	Total      int
	PlaylistID string
	Position   time.Duration
	Duration   time.Duration
}

// nowPlaying builds template data from v. ok is false unless a track is playing.
func nowPlaying(v playback.View) (NowPlaying, bool) {
	id := v.CurrentTrackID()
	if !v.IsPlaying || id == "" {
		return NowPlaying{}, false
	}

	np := NowPlaying{
		ID:         id,
		Title:      "Track " + id,
		Index:      v.CurrentIndex,
		Total:      len(v.TrackList),
		PlaylistID: v.PlaylistID,
		Position:   time.Duration(v.CurrentTime * float64(time.Second)),
		Duration:   time.Duration(v.Duration * float64(time.Second)),
	}
	// Metadata is absent until a UI reloads the playlist after a restart.
	if info, ok := v.Current(); ok {
		np.Title = info.Title
		np.Artists = info.Artists
		np.Cover = info.Cover
	}
	return np, true
}

func runNow(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(context.Background(), clientTimeout)
	defer cancel()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	formatFlag, _ := cmd.Flags().GetString("format")
	if formatFlag != "" {
		cfg.OutputFormat = formatFlag
	}

	v, err := daemonClient(cfg).State(ctx)
	if err != nil {
		// Daemon not running reads the same as nothing playing.
		if errors.Is(err, api.ErrDaemonUnavailable) {
			os.Exit(1)
		}
		return fmt.Errorf("failed to get playback state: %w", err)
	}

	np, ok := nowPlaying(v)
	if !ok {
		os.Exit(1)
		return nil
	}

	output, err := formatTrack(np, cfg.OutputFormat)
	if err != nil {
		return fmt.Errorf("failed to format output: %w", err)
	}

	width, _ := cmd.Flags().GetInt("width")
	if width == 0 {
		width = cfg.OutputWidth
	}

	marquee, _ := cmd.Flags().GetBool("marquee")
	if !cmd.Flags().Changed("marquee") {
		marquee = cfg.MarqueeEnabled
	}

	if width > 0 {
		if marquee {
			output = marqueeText(output, width, cfg.MarqueeSpeed, cfg.MarqueeSeparator, time.Now())
		} else {
			output = padToWidth(output, width)
		}
	}

	fmt.Println(output)
	return nil
}

// formatTrack applies the template to the track data
func formatTrack(np NowPlaying, templateStr string) (string, error) {
	tmpl, err := template.New("output").Parse(templateStr)
	if err != nil {
		return "", fmt.Errorf("invalid template: %w", err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, np); err != nil {
		return "", fmt.Errorf("template execution failed: %w", err)
	}

	return buf.String(), nil
}

// padToWidth pads or truncates text to exactly width display columns.
// Truncated text ends in "...". If width <= 0, returns text unchanged.
func padToWidth(text string, width int) string {
	if width <= 0 {
		return text
	}

	const ellipsis = "..."
	if runewidth.StringWidth(text) > width {
		if width <= runewidth.StringWidth(ellipsis) {
			return runewidth.Truncate(ellipsis, width, "")
		}
		text = runewidth.Truncate(text, width, ellipsis)
	}
	return runewidth.FillRight(text, width)
}

// marqueeText scrolls text longer than width through a fixed window.
//
// The window start is derived from now (speed columns per second) over
// "text{separator}text", so repeated invocations from a status bar step
// through the text without keeping state.
func marqueeText(text string, width int, speed int, separator string, now time.Time) string {
	if width <= 0 {
		return text
	}
	if runewidth.StringWidth(text) <= width {
		return padToWidth(text, width)
	}

	extended := []rune(text + separator + text)
	total := len(extended)
	position := int(now.Unix()*int64(speed)) % total

	var b strings.Builder
	used := 0
	for i := 0; i < total; i++ {
		r := extended[(position+i)%total]
		rw := runewidth.RuneWidth(r)
		if used+rw > width {
			break
		}
		b.WriteRune(r)
		used += rw
	}

	return runewidth.FillRight(b.String(), width)
}
