package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/jfmyers9/yamp/internal/playback"
	"github.com/rivo/tview"
)

const (
	sendTimeout       = 2 * time.Second
	baseRetryInterval = 1 * time.Second
	maxRetryInterval  = 16 * time.Second
)

// Controller is the daemon surface the TUI drives.
type Controller interface {
	Send(ctx context.Context, ev playback.Event) error
	Stream(ctx context.Context, fn func(playback.Message) error) error
}

// Config holds TUI configuration options
type Config struct {
	RefreshRate time.Duration // How often to redraw the display
	SeekStep    float64       // Seconds moved by the arrow keys
	VolumeStep  float64       // Volume change per key press, 0 to 1
}

// DefaultConfig returns the default TUI configuration
func DefaultConfig() Config {
	return Config{
		RefreshRate: 250 * time.Millisecond,
		SeekStep:    10,
		VolumeStep:  0.05,
	}
}

// App is the terminal UI for the daemon's playback state
type App struct {
	app        *tview.Application
	nowPlaying *tview.TextView
	progress   *tview.TextView
	tracks     *tview.List
	status     *tview.TextView

	config Config
	ctl    Controller

	// mu guards everything below; the stream consumer writes while the
	// redraw ticker and key handlers read.
	mu        sync.Mutex
	view      *playback.View
	volume    float64
	lastErr   string
	connected bool

	// Last-rendered content for change detection
	lastNowPlaying string
	lastProgress   string
	lastStatus     string
	listKey        string
	listIndex      int

	// Cached progress bar width to stabilize change detection.
	lastBarWidth int

	cancelFunc context.CancelFunc
}

// New creates a TUI driving ctl with the given config
func New(ctl Controller, cfg Config) *App {
	a := &App{
		app:       tview.NewApplication(),
		config:    cfg,
		ctl:       ctl,
		volume:    1,
		listIndex: -1,
	}
	a.setupUI()
	return a
}

func (a *App) setupUI() {
	a.nowPlaying = tview.NewTextView().
		SetDynamicColors(true).
		SetTextAlign(tview.AlignCenter)
	a.nowPlaying.SetBorder(true).
		SetTitle(" Now Playing ").
		SetTitleAlign(tview.AlignLeft)

	a.progress = tview.NewTextView().
		SetDynamicColors(true).
		SetTextAlign(tview.AlignCenter)
	a.progress.SetBorder(true)

	a.tracks = tview.NewList().
		ShowSecondaryText(false).
		SetHighlightFullLine(true)
	a.tracks.SetBorder(true).
		SetTitle(" Tracks ").
		SetTitleAlign(tview.AlignLeft)
	a.tracks.SetSelectedFunc(func(index int, _, _ string, _ rune) {
		a.playSelected(index)
	})

	a.status = tview.NewTextView().
		SetDynamicColors(true).
		SetTextAlign(tview.AlignCenter)

	flex := tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(a.nowPlaying, 7, 1, false).
		AddItem(a.progress, 3, 1, false).
		AddItem(a.tracks, 0, 3, true).
		AddItem(a.status, 1, 1, false)

	a.app.SetInputCapture(a.handleKeyEvent)
	a.app.SetRoot(flex, true).SetFocus(a.tracks)
}

// handleKeyEvent maps key presses to playback intents
func (a *App) handleKeyEvent(event *tcell.EventKey) *tcell.EventKey {
	switch event.Key() {
	case tcell.KeyLeft:
		a.seekBy(-a.config.SeekStep)
		return nil
	case tcell.KeyRight:
		a.seekBy(a.config.SeekStep)
		return nil
	case tcell.KeyRune:
	default:
		return event
	}

	switch event.Rune() {
	case 'q', 'Q':
		a.Stop()
		return nil
	case ' ':
		a.togglePlayback()
		return nil
	case 'n', 'N':
		a.send(playback.Next{})
		return nil
	case 'p', 'P':
		a.send(playback.Previous{})
		return nil
	case '+', '=':
		a.changeVolume(a.config.VolumeStep)
		return nil
	case '-', '_':
		a.changeVolume(-a.config.VolumeStep)
		return nil
	}
	return event
}

func (a *App) togglePlayback() {
	a.mu.Lock()
	playing := a.view != nil && a.view.IsPlaying
	a.mu.Unlock()

	if playing {
		a.send(playback.Pause{})
	} else {
		a.send(playback.ResumeOrPlayCurrent{})
	}
}

func (a *App) seekBy(delta float64) {
	a.mu.Lock()
	if a.view == nil {
		a.mu.Unlock()
		return
	}
	target := a.view.CurrentTime + delta
	if a.view.Duration > 0 && target > a.view.Duration {
		target = a.view.Duration
	}
	a.mu.Unlock()

	if target < 0 {
		target = 0
	}
	a.send(playback.Seek{Value: target})
}

func (a *App) changeVolume(delta float64) {
	a.mu.Lock()
	a.volume += delta
	if a.volume > 1 {
		a.volume = 1
	}
	if a.volume < 0 {
		a.volume = 0
	}
	level := a.volume
	a.mu.Unlock()

	a.send(playback.SetVolume{Value: level})
}

func (a *App) playSelected(index int) {
	a.mu.Lock()
	var pid string
	if a.view != nil {
		pid = a.view.PlaylistID
	}
	a.mu.Unlock()

	a.send(playback.PlayAt{Index: index, PlaylistID: pid})
}

// send delivers ev to the daemon; failures land in the status line.
func (a *App) send(ev playback.Event) {
	ctx, cancel := context.WithTimeout(context.Background(), sendTimeout)
	defer cancel()

	err := a.ctl.Send(ctx, ev)

	a.mu.Lock()
	defer a.mu.Unlock()
	if err != nil {
		a.lastErr = err.Error()
		return
	}
	a.lastErr = ""
}

// Run starts the TUI and blocks until it exits
func (a *App) Run(ctx context.Context) error {
	ctx, a.cancelFunc = context.WithCancel(ctx)
	defer a.cancelFunc()

	go a.consume(ctx)
	go a.redraw(ctx)

	if err := a.app.Run(); err != nil {
		return fmt.Errorf("TUI error: %w", err)
	}
	return nil
}

// consume keeps a stream open to the daemon, reconnecting with exponential
// backoff while it is unreachable.
func (a *App) consume(ctx context.Context) {
	interval := baseRetryInterval
	for {
		err := a.ctl.Stream(ctx, func(m playback.Message) error {
			interval = baseRetryInterval
			a.apply(m)
			return nil
		})
		if ctx.Err() != nil {
			return
		}

		a.mu.Lock()
		a.connected = false
		if err != nil && !errors.Is(err, context.Canceled) {
			a.lastErr = err.Error()
		}
		a.mu.Unlock()

		select {
		case <-ctx.Done():
			return
		case <-time.After(interval):
		}
		if interval < maxRetryInterval {
			interval *= 2
			if interval > maxRetryInterval {
				interval = maxRetryInterval
			}
		}
	}
}

// apply folds one broadcast into the displayed state.
func (a *App) apply(m playback.Message) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.connected = true
	switch m.Action {
	case playback.ActionStateUpdated:
		if m.View != nil {
			v := *m.View
			a.view = &v
		}
	case playback.ActionError:
		if m.Operation != "" {
			a.lastErr = m.Operation + ": " + m.Error
		} else {
			a.lastErr = m.Error
		}
	case playback.ActionTokenUpdated:
		a.lastErr = ""
	}
}

// redraw is the only source of draws, so a fast progress stream cannot
// pile up queued updates.
func (a *App) redraw(ctx context.Context) {
	rate := a.config.RefreshRate
	if rate <= 0 {
		rate = DefaultConfig().RefreshRate
	}
	ticker := time.NewTicker(rate)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			a.app.Stop()
			return
		case <-ticker.C:
			a.app.QueueUpdateDraw(a.render)
		}
	}
}

func (a *App) render() {
	a.mu.Lock()
	defer a.mu.Unlock()

	if text := nowPlayingText(a.view); text != a.lastNowPlaying {
		a.lastNowPlaying = text
		a.nowPlaying.SetText(text)
	}

	_, _, width, _ := a.progress.GetInnerRect()
	if barWidth := width - 14; barWidth > 0 {
		a.lastBarWidth = barWidth
	}
	if a.lastBarWidth < 10 {
		a.lastBarWidth = 10
	}
	if text := progressText(a.view, a.lastBarWidth); text != a.lastProgress {
		a.lastProgress = text
		a.progress.SetText(text)
	}

	a.renderTracks()

	if text := statusText(a.connected, a.volume, a.lastErr); text != a.lastStatus {
		a.lastStatus = text
		a.status.SetText(text)
	}
}

// renderTracks rebuilds the list only when the track list changes and
// moves the cursor only when the current index changes, leaving manual
// navigation alone otherwise.
func (a *App) renderTracks() {
	if a.view == nil {
		return
	}
	key := a.view.PlaylistID + "\x00" + strings.Join(a.view.TrackList, "\x00")
	labelsChanged := key != a.listKey
	if labelsChanged {
		a.listKey = key
		a.tracks.Clear()
		for i := range a.view.TrackList {
			a.tracks.AddItem(trackLabel(*a.view, i), "", 0, nil)
		}
	}
	if labelsChanged || a.view.CurrentIndex != a.listIndex {
		a.listIndex = a.view.CurrentIndex
		if a.listIndex < a.tracks.GetItemCount() {
			a.tracks.SetCurrentItem(a.listIndex)
		}
	}
	if !labelsChanged {
		for i := 0; i < a.tracks.GetItemCount(); i++ {
			a.tracks.SetItemText(i, trackLabel(*a.view, i), "")
		}
	}
}

// Stop stops the TUI application
func (a *App) Stop() {
	if a.cancelFunc != nil {
		a.cancelFunc()
	}
	a.app.Stop()
}

func nowPlayingText(v *playback.View) string {
	if v == nil || len(v.TrackList) == 0 {
		return "\n\n[gray]Nothing loaded[-]"
	}

	title := "Track " + v.CurrentTrackID()
	var artists, cover string
	if info, ok := v.Current(); ok {
		title, artists, cover = info.Title, info.Artists, info.Cover
	}

	var sb strings.Builder
	sb.WriteString("\n")
	sb.WriteString(fmt.Sprintf("[white::b]%s[-:-:-]\n", tview.Escape(title)))
	sb.WriteString(fmt.Sprintf("[yellow]%s[-]\n", tview.Escape(artists)))
	sb.WriteString(fmt.Sprintf("[gray]%d/%d  %s[-]", v.CurrentIndex+1, len(v.TrackList), tview.Escape(cover)))

	stateIcon := "[yellow]⏸[-]"
	if v.IsPlaying {
		stateIcon = "[green]▶[-]"
	}
	sb.WriteString(fmt.Sprintf("\n\n%s", stateIcon))
	return sb.String()
}

func progressText(v *playback.View, barWidth int) string {
	if v == nil || len(v.TrackList) == 0 {
		return ""
	}
	position := seconds(v.CurrentTime)
	duration := seconds(v.Duration)
	return fmt.Sprintf("%s %s %s",
		formatDuration(position),
		buildProgressBar(position, duration, barWidth),
		formatDuration(duration))
}

func statusText(connected bool, volume float64, lastErr string) string {
	help := "q:quit  space:play/pause  n:next  p:prev  ←/→:seek  +/-:volume  enter:play"
	var sb strings.Builder
	if !connected {
		sb.WriteString("[red]daemon unreachable[-]  ")
	}
	if lastErr != "" {
		sb.WriteString(fmt.Sprintf("[red]%s[-]  ", tview.Escape(lastErr)))
	}
	sb.WriteString(fmt.Sprintf("[gray]vol %d%%  %s[-]", int(volume*100+0.5), help))
	return sb.String()
}

// trackLabel is the list row for index i; the playing row is marked.
func trackLabel(v playback.View, i int) string {
	name := "Track " + v.TrackList[i]
	if i < len(v.FullTrackInfo) {
		info := v.FullTrackInfo[i]
		name = info.Title
		if info.Artists != "" {
			name = info.Artists + " - " + info.Title
		}
	}
	marker := "  "
	if i == v.CurrentIndex {
		marker = "▶ "
		if !v.IsPlaying {
			marker = "⏸ "
		}
	}
	return fmt.Sprintf("%s%3d. %s", marker, i+1, tview.Escape(name))
}

func seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}

// buildProgressBar creates a text-based progress bar
func buildProgressBar(position, duration time.Duration, width int) string {
	if duration == 0 || width <= 0 {
		return strings.Repeat("-", width)
	}

	progress := float64(position) / float64(duration)
	if progress > 1 {
		progress = 1
	}
	if progress < 0 {
		progress = 0
	}

	filled := int(progress * float64(width))
	empty := width - filled

	return "[green]" + strings.Repeat("█", filled) + "[-]" +
		"[gray]" + strings.Repeat("░", empty) + "[-]"
}

// formatDuration formats a duration as MM:SS or HH:MM:SS for longer durations
func formatDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}

	hours := int(d.Hours())
	minutes := int(d.Minutes()) % 60
	secs := int(d.Seconds()) % 60

	if hours > 0 {
		return fmt.Sprintf("%d:%02d:%02d", hours, minutes, secs)
	}
	return fmt.Sprintf("%02d:%02d", minutes, secs)
}
