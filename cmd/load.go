package cmd

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jfmyers9/yamp/internal/playback"
	"github.com/jfmyers9/yamp/internal/store"
	"github.com/jfmyers9/yamp/pkg/ymusic"
	"github.com/spf13/cobra"
)

// loadCmd represents the load command
var loadCmd = &cobra.Command{
	Use:   "load [playlistId]",
	Short: "Load a playlist into the daemon",
	Long: `Fetch a playlist from the catalog and hand its tracks to the daemon.

playlistId has the form <ownerUid>:<playlistKind> as printed by
'yamp playlists'. Use "day" for the playlist of the day. Without an
argument the last loaded playlist is reloaded.

With --play, playback starts at the first track. With --resume, it starts
at the track last played from this playlist.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runLoad,
}

func init() {
	rootCmd.AddCommand(loadCmd)

	loadCmd.Flags().Bool("play", false, "Start playing the first track")
	loadCmd.Flags().Bool("resume", false, "Start playing where this playlist was left off")
}

// PlaylistOfTheDay is the load argument naming the playlist of the day.
const PlaylistOfTheDay = "day"

type playlistSource interface {
	Get(ctx context.Context, playlistID string) (*ymusic.Playlist, error)
	OfTheDay(ctx context.Context) (ymusic.PlaylistRef, error)
}

type eventSender interface {
	Send(ctx context.Context, ev playback.Event) error
}

type playlistBookkeeping interface {
	LastIndex(ctx context.Context, playlistID string) (int, bool, error)
	CurrentPlaylist(ctx context.Context) (string, error)
	SetCurrentPlaylist(ctx context.Context, playlistID string) error
}

// startMode selects what happens after the track list is handed over.
type startMode int

const (
	startNone startMode = iota
	startFirst
	startResume
)

// loader fetches a playlist and hands it to the coordinator.
type loader struct {
	playlists playlistSource
	daemon    eventSender
	books     playlistBookkeeping
}

// resolveID turns the load argument into a playlist id.
func (l *loader) resolveID(ctx context.Context, arg string) (string, error) {
	switch arg {
	case "":
		id, err := l.books.CurrentPlaylist(ctx)
		if err != nil {
			return "", err
		}
		if id == "" {
			return "", errors.New("no playlist loaded yet, pass a playlist id")
		}
		return id, nil
	case PlaylistOfTheDay:
		ref, err := l.playlists.OfTheDay(ctx)
		if err != nil {
			return "", fmt.Errorf("failed to find playlist of the day: %w", err)
		}
		return ref.ID, nil
	default:
		if _, _, err := ymusic.SplitPlaylistID(arg); err != nil {
			return "", err
		}
		return arg, nil
	}
}

// load returns the loaded playlist and the index playback started at, or -1.
func (l *loader) load(ctx context.Context, arg string, mode startMode) (*ymusic.Playlist, int, error) {
	id, err := l.resolveID(ctx, arg)
	if err != nil {
		return nil, -1, err
	}

	pl, err := l.playlists.Get(ctx, id)
	if err != nil {
		return nil, -1, fmt.Errorf("failed to fetch playlist %s: %w", id, err)
	}
	trackIDs := pl.TrackIDs()
	if len(trackIDs) == 0 {
		return nil, -1, fmt.Errorf("%s: %w", id, ymusic.ErrEmptyPlaylist)
	}
	pid := pl.ID()

	err = l.daemon.Send(ctx, playback.SetPlaylist{
		PlaylistID:    pid,
		TrackIDs:      trackIDs,
		FullTrackInfo: pl.TrackInfos(),
	})
	if err != nil {
		return nil, -1, err
	}
	if err := l.books.SetCurrentPlaylist(ctx, pid); err != nil {
		return nil, -1, fmt.Errorf("failed to record current playlist: %w", err)
	}

	index := -1
	switch mode {
	case startFirst:
		index = 0
	case startResume:
		index = 0
		last, ok, err := l.books.LastIndex(ctx, pid)
		if err != nil {
			return nil, -1, err
		}
		if ok && last >= 0 && last < len(trackIDs) {
			index = last
		}
	}
	if index >= 0 {
		if err := l.daemon.Send(ctx, playback.PlayAt{Index: index, PlaylistID: pid}); err != nil {
			return nil, -1, err
		}
	}
	return pl, index, nil
}

// authHint points the user at 'yamp auth' when err means the stored token
// is missing or was rejected.
func authHint(err error) error {
	if errors.Is(err, ymusic.ErrNoToken) {
		return fmt.Errorf("%w (run 'yamp auth' first)", err)
	}
	var apiErr *ymusic.Error
	if errors.As(err, &apiErr) && apiErr.Unauthorized() {
		return fmt.Errorf("%w (token rejected, run 'yamp auth' again)", err)
	}
	return err
}

func runLoad(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	session, err := openCatalog(cfg)
	if err != nil {
		return err
	}
	defer session.Close()

	mode := startNone
	if play, _ := cmd.Flags().GetBool("play"); play {
		mode = startFirst
	}
	if resume, _ := cmd.Flags().GetBool("resume"); resume {
		mode = startResume
	}

	arg := ""
	if len(args) > 0 {
		arg = args[0]
	}

	l := &loader{
		playlists: session.catalog.Playlists(),
		daemon:    daemonClient(cfg),
		books:     store.NewSnapshots(session.store),
	}
	pl, index, err := l.load(ctx, arg, mode)
	if err != nil {
		return authHint(err)
	}

	fmt.Printf("✓ Loaded %s (%d tracks)\n", pl.Title, len(pl.Tracks))
	if index >= 0 {
		fmt.Printf("✓ Playing track %d\n", index)
	}
	return nil
}
