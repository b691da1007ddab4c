package store

import (
	"context"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/spf13/afero"
)

// backends returns a fresh instance of every Store implementation.
func backends(t *testing.T) map[string]Store {
	t.Helper()

	sqlite, err := OpenSQLite(":memory:")
	if err != nil {
		t.Fatalf("OpenSQLite() error = %v", err)
	}
	file, err := OpenFile(afero.NewMemMapFs(), "/data/yamp/state.json")
	if err != nil {
		t.Fatalf("OpenFile() error = %v", err)
	}

	stores := map[string]Store{"sqlite": sqlite, "file": file}
	t.Cleanup(func() {
		for _, s := range stores {
			_ = s.Close()
		}
	})
	return stores
}

func TestStore_GetSetDelete(t *testing.T) {
	ctx := context.Background()

	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			var got string
			ok, err := s.Get(ctx, "missing", &got)
			if err != nil || ok {
				t.Fatalf("Get(missing) = %v, %v, want false, nil", ok, err)
			}

			if err := s.Set(ctx, "k", "v1"); err != nil {
				t.Fatalf("Set() error = %v", err)
			}
			if err := s.Set(ctx, "k", "v2"); err != nil {
				t.Fatalf("Set() error = %v", err)
			}
			ok, err = s.Get(ctx, "k", &got)
			if err != nil || !ok || got != "v2" {
				t.Fatalf("Get(k) = %q, %v, %v, want v2, true, nil", got, ok, err)
			}

			if err := s.Delete(ctx, "k"); err != nil {
				t.Fatalf("Delete() error = %v", err)
			}
			if err := s.Delete(ctx, "k"); err != nil {
				t.Fatalf("Delete() of absent key error = %v", err)
			}
			if ok, _ := s.Get(ctx, "k", &got); ok {
				t.Error("Get(k) after Delete reported present")
			}
		})
	}
}

func TestSnapshots_RoundTrip(t *testing.T) {
	ctx := context.Background()

	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			snaps := NewSnapshots(s)

			snap, err := snaps.Load(ctx)
			if err != nil {
				t.Fatalf("Load() error = %v", err)
			}
			if snap != nil {
				t.Fatalf("Load() on empty store = %+v, want nil", snap)
			}

			want := Snapshot{CurrentIndex: 2, IsPlaying: true, TrackIDs: []string{"a", "b", "a"}, PlaylistID: "42:7"}
			if err := snaps.Save(ctx, want); err != nil {
				t.Fatalf("Save() error = %v", err)
			}
			snap, err = snaps.Load(ctx)
			if err != nil {
				t.Fatalf("Load() error = %v", err)
			}
			if snap == nil || !reflect.DeepEqual(*snap, want) {
				t.Errorf("Load() = %+v, want %+v", snap, want)
			}
		})
	}
}

func TestSnapshots_Partial(t *testing.T) {
	ctx := context.Background()

	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			if err := s.Set(ctx, KeyTrackIDs, []string{"x"}); err != nil {
				t.Fatalf("Set() error = %v", err)
			}
			snap, err := NewSnapshots(s).Load(ctx)
			if err != nil {
				t.Fatalf("Load() error = %v", err)
			}
			want := Snapshot{TrackIDs: []string{"x"}}
			if snap == nil || !reflect.DeepEqual(*snap, want) {
				t.Errorf("Load() = %+v, want %+v", snap, want)
			}
		})
	}
}

func TestSnapshots_Bookkeeping(t *testing.T) {
	ctx := context.Background()

	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			snaps := NewSnapshots(s)

			if _, ok, err := snaps.LastIndex(ctx, "42:7"); err != nil || ok {
				t.Fatalf("LastIndex() = _, %v, %v, want false, nil", ok, err)
			}
			if err := snaps.SetLastIndex(ctx, "42:7", 5); err != nil {
				t.Fatalf("SetLastIndex() error = %v", err)
			}
			idx, ok, err := snaps.LastIndex(ctx, "42:7")
			if err != nil || !ok || idx != 5 {
				t.Errorf("LastIndex() = %d, %v, %v, want 5, true, nil", idx, ok, err)
			}

			var raw int
			if ok, _ := s.Get(ctx, "PLIDX-42:7", &raw); !ok || raw != 5 {
				t.Errorf("PLIDX-42:7 = %d, %v, want 5, true", raw, ok)
			}

			if err := snaps.SetCurrentPlaylist(ctx, "42:7"); err != nil {
				t.Fatalf("SetCurrentPlaylist() error = %v", err)
			}
			if id, err := snaps.CurrentPlaylist(ctx); err != nil || id != "42:7" {
				t.Errorf("CurrentPlaylist() = %q, %v, want 42:7, nil", id, err)
			}
		})
	}
}

func TestFile_PersistsAcrossOpen(t *testing.T) {
	ctx := context.Background()
	fs := afero.NewOsFs()
	path := filepath.Join(t.TempDir(), "nested", "state.json")

	f, err := OpenFile(fs, path)
	if err != nil {
		t.Fatalf("OpenFile() error = %v", err)
	}
	if err := NewSnapshots(f).Save(ctx, Snapshot{CurrentIndex: 1, TrackIDs: []string{"a", "b"}}); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	_ = f.Close()

	if exists, _ := afero.Exists(fs, path+".tmp"); exists {
		t.Error("temp file left behind")
	}

	reopened, err := OpenFile(fs, path)
	if err != nil {
		t.Fatalf("OpenFile() error = %v", err)
	}
	snap, err := NewSnapshots(reopened).Load(ctx)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if snap == nil || snap.CurrentIndex != 1 || len(snap.TrackIDs) != 2 {
		t.Errorf("Load() = %+v, want index 1 with 2 tracks", snap)
	}
}

func TestFile_SharedBetweenHandles(t *testing.T) {
	ctx := context.Background()
	fs := afero.NewMemMapFs()

	daemon, err := OpenFile(fs, "/yamp/store.json")
	if err != nil {
		t.Fatal(err)
	}
	cli, err := OpenFile(fs, "/yamp/store.json")
	if err != nil {
		t.Fatal(err)
	}

	if err := NewSnapshots(cli).SetCurrentPlaylist(ctx, "u:k"); err != nil {
		t.Fatal(err)
	}
	if err := NewSnapshots(daemon).Save(ctx, Snapshot{TrackIDs: []string{"a"}, PlaylistID: "u:k"}); err != nil {
		t.Fatal(err)
	}

	pid, err := NewSnapshots(daemon).CurrentPlaylist(ctx)
	if err != nil || pid != "u:k" {
		t.Errorf("CurrentPlaylist() = %q, %v; write from the other handle was lost", pid, err)
	}
	snap, err := NewSnapshots(cli).Load(ctx)
	if err != nil || snap == nil || snap.PlaylistID != "u:k" {
		t.Errorf("Load() = %+v, %v", snap, err)
	}
}

func TestFile_Closed(t *testing.T) {
	f, err := OpenFile(afero.NewMemMapFs(), "/state.json")
	if err != nil {
		t.Fatalf("OpenFile() error = %v", err)
	}
	_ = f.Close()
	if err := f.Set(context.Background(), "k", 1); err != ErrClosed {
		t.Errorf("Set() after Close error = %v, want ErrClosed", err)
	}
}

func TestSQLite_PersistsAcrossOpen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "yamp.db")

	s, err := OpenSQLite(path)
	if err != nil {
		t.Fatalf("OpenSQLite() error = %v", err)
	}
	if err := s.Set(ctx, KeyToken, "secret"); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	_ = s.Close()

	s, err = OpenSQLite(path)
	if err != nil {
		t.Fatalf("OpenSQLite() error = %v", err)
	}
	defer s.Close()

	var tok string
	if ok, err := s.Get(ctx, KeyToken, &tok); err != nil || !ok || tok != "secret" {
		t.Errorf("Get(token) = %q, %v, %v", tok, ok, err)
	}
}

func TestSnapshot_Equal(t *testing.T) {
	a := Snapshot{CurrentIndex: 1, TrackIDs: []string{"a"}, PlaylistID: "p"}
	if !a.Equal(Snapshot{CurrentIndex: 1, TrackIDs: []string{"a"}, PlaylistID: "p"}) {
		t.Error("identical snapshots not equal")
	}
	if a.Equal(Snapshot{CurrentIndex: 1, TrackIDs: []string{"b"}, PlaylistID: "p"}) {
		t.Error("snapshots with different tracks equal")
	}
	if a.Equal(Snapshot{CurrentIndex: 1, IsPlaying: true, TrackIDs: []string{"a"}, PlaylistID: "p"}) {
		t.Error("snapshots with different play state equal")
	}
}
