package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"testing"

	"github.com/jfmyers9/yamp/internal/playback"
	"github.com/jfmyers9/yamp/internal/store"
	"github.com/jfmyers9/yamp/pkg/ymusic"
)

type fakePlaylists struct {
	playlists map[string]*ymusic.Playlist
	day       string
}

func (f *fakePlaylists) Get(_ context.Context, id string) (*ymusic.Playlist, error) {
	pl, ok := f.playlists[id]
	if !ok {
		return nil, ymusic.ErrNotFound
	}
	return pl, nil
}

func (f *fakePlaylists) OfTheDay(context.Context) (ymusic.PlaylistRef, error) {
	if f.day == "" {
		return ymusic.PlaylistRef{}, ymusic.ErrNotFound
	}
	return ymusic.PlaylistRef{ID: f.day}, nil
}

type recordingSender struct {
	events []playback.Event
}

func (r *recordingSender) Send(_ context.Context, ev playback.Event) error {
	r.events = append(r.events, ev)
	return nil
}

func playlist(uid, kind string, ids ...string) *ymusic.Playlist {
	pl := &ymusic.Playlist{UID: ymusic.ID(uid), Kind: ymusic.ID(kind), Title: "Mix"}
	for _, id := range ids {
		pl.Tracks = append(pl.Tracks, ymusic.TrackItem{
			ID:    ymusic.ID(id),
			Track: ymusic.Track{ID: ymusic.ID(id), Title: "Song " + id},
		})
	}
	return pl
}

func newTestLoader(t *testing.T) (*loader, *recordingSender, *store.Snapshots) {
	t.Helper()
	st, err := store.OpenSQLite(":memory:")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { st.Close() })

	books := store.NewSnapshots(st)
	sender := &recordingSender{}
	return &loader{
		playlists: &fakePlaylists{
			playlists: map[string]*ymusic.Playlist{
				"7:3":    playlist("7", "3", "a", "b", "c"),
				"7:9":    playlist("7", "9"),
				"1:1001": playlist("1", "1001", "x"),
			},
			day: "1:1001",
		},
		daemon: sender,
		books:  books,
	}, sender, books
}

func TestLoader_Modes(t *testing.T) {
	tests := []struct {
		name      string
		mode      startMode
		lastIndex int
		wantIndex int
	}{
		{"load only", startNone, -1, -1},
		{"play first", startFirst, 2, 0},
		{"resume saved", startResume, 2, 2},
		{"resume without history", startResume, -1, 0},
		{"resume stale index", startResume, 10, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l, sender, books := newTestLoader(t)
			ctx := context.Background()
			if tt.lastIndex >= 0 {
				if err := books.SetLastIndex(ctx, "7:3", tt.lastIndex); err != nil {
					t.Fatal(err)
				}
			}

			_, index, err := l.load(ctx, "7:3", tt.mode)
			if err != nil {
				t.Fatalf("load() error: %v", err)
			}
			if index != tt.wantIndex {
				t.Errorf("index = %d, want %d", index, tt.wantIndex)
			}

			sp, ok := sender.events[0].(playback.SetPlaylist)
			if !ok || sp.PlaylistID != "7:3" || len(sp.TrackIDs) != 3 || len(sp.FullTrackInfo) != 3 {
				t.Fatalf("first event = %#v", sender.events[0])
			}
			wantEvents := 1
			if tt.wantIndex >= 0 {
				wantEvents = 2
				pa, ok := sender.events[1].(playback.PlayAt)
				if !ok || pa.Index != tt.wantIndex || pa.PlaylistID != "7:3" {
					t.Errorf("second event = %#v", sender.events[1])
				}
			}
			if len(sender.events) != wantEvents {
				t.Errorf("sent %d events, want %d", len(sender.events), wantEvents)
			}

			current, _ := books.CurrentPlaylist(ctx)
			if current != "7:3" {
				t.Errorf("current playlist = %q", current)
			}
		})
	}
}

func TestLoader_ResolvesArguments(t *testing.T) {
	l, sender, books := newTestLoader(t)
	ctx := context.Background()

	if _, _, err := l.load(ctx, "", startNone); err == nil {
		t.Error("load(\"\") succeeded with nothing loaded before")
	}

	if _, _, err := l.load(ctx, PlaylistOfTheDay, startNone); err != nil {
		t.Fatalf("load(day) error: %v", err)
	}
	if sp := sender.events[0].(playback.SetPlaylist); sp.PlaylistID != "1:1001" {
		t.Errorf("playlist of the day loaded %q", sp.PlaylistID)
	}

	// Reload the last one.
	if _, _, err := l.load(ctx, "", startNone); err != nil {
		t.Fatalf("reload error: %v", err)
	}
	if sp := sender.events[1].(playback.SetPlaylist); sp.PlaylistID != "1:1001" {
		t.Errorf("reload loaded %q", sp.PlaylistID)
	}
	if current, _ := books.CurrentPlaylist(ctx); current != "1:1001" {
		t.Errorf("current playlist = %q", current)
	}
}

func TestLoader_Errors(t *testing.T) {
	tests := []struct {
		name string
		arg  string
		want error
	}{
		{"malformed id", "not-an-id", ymusic.ErrMalformedPlaylistID},
		{"empty playlist", "7:9", ymusic.ErrEmptyPlaylist},
		{"missing playlist", "7:404", ymusic.ErrNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l, sender, _ := newTestLoader(t)
			_, _, err := l.load(context.Background(), tt.arg, startFirst)
			if !errors.Is(err, tt.want) {
				t.Errorf("load() error = %v, want %v", err, tt.want)
			}
			if len(sender.events) != 0 {
				t.Errorf("sent %d events on failure", len(sender.events))
			}
		})
	}
}

func TestAuthHint(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantHint string
	}{
		{"no token", fmt.Errorf("fetch: %w", ymusic.ErrNoToken), "run 'yamp auth' first"},
		{"rejected token", fmt.Errorf("fetch: %w", &ymusic.Error{StatusCode: http.StatusUnauthorized}), "token rejected"},
		{"forbidden", &ymusic.Error{StatusCode: http.StatusForbidden}, "token rejected"},
		{"other api error", &ymusic.Error{StatusCode: http.StatusInternalServerError}, ""},
		{"not found", ymusic.ErrNotFound, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := authHint(tt.err)
			if !errors.Is(got, tt.err) {
				t.Errorf("authHint() = %v, does not wrap %v", got, tt.err)
			}
			if tt.wantHint == "" {
				if got.Error() != tt.err.Error() {
					t.Errorf("authHint() = %q, want unchanged %q", got, tt.err)
				}
				return
			}
			if !strings.Contains(got.Error(), tt.wantHint) {
				t.Errorf("authHint() = %q, want hint %q", got, tt.wantHint)
			}
		})
	}
}
