package ymusic

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"testing"
)

const richPlaylist = `{"result":{"uid":42,"kind":7,"title":"Mix","trackCount":2,"tracks":[
	{"id":1,"track":{"id":"1","title":"One","artists":[{"name":"A"},{"name":"B"}],"cover":{"uri":"img/1/%%"}}},
	{"id":"2","title":"Two","artists":[{"name":"C"}],"albums":[{"coverUri":"img/2/"}]}
]}}`

func TestPlaylistService_Get(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/users/42/playlists/7", func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("rich-tracks"); got != "true" {
			t.Errorf("rich-tracks = %q, want true", got)
		}
		fmt.Fprint(w, richPlaylist)
	})

	client, _ := newTestClient(t, mux)

	pl, err := client.Playlists().Get(context.Background(), "42:7")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if pl.ID() != "42:7" {
		t.Errorf("ID() = %q, want 42:7", pl.ID())
	}
	if got, want := pl.TrackIDs(), []string{"1", "2"}; !reflect.DeepEqual(got, want) {
		t.Errorf("TrackIDs() = %v, want %v", got, want)
	}

	want := []TrackInfo{
		{ID: "1", Title: "One", Artists: "A, B", Cover: "https://img/1/300x300"},
		{ID: "2", Title: "Two", Artists: "C", Cover: "https://img/2/200x200"},
	}
	if got := pl.TrackInfos(); !reflect.DeepEqual(got, want) {
		t.Errorf("TrackInfos() = %+v, want %+v", got, want)
	}
}

func TestPlaylistService_GetFallback(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/users/42/playlists/7", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	})
	mux.HandleFunc("/playlists/list", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("expected POST request, got %s", r.Method)
		}
		if err := r.ParseForm(); err != nil {
			t.Fatalf("failed to parse form: %v", err)
		}
		if got := r.FormValue("playlistIds"); got != "42:7" {
			t.Errorf("playlistIds = %q, want 42:7", got)
		}
		fmt.Fprint(w, `{"result":[{"uid":42,"kind":7,"title":"Batch","tracks":[{"id":9}]}]}`)
	})

	client, _ := newTestClient(t, mux)

	pl, err := client.Playlists().Get(context.Background(), "42:7")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if pl.Title != "Batch" {
		t.Errorf("Title = %q, want Batch", pl.Title)
	}
	if got := pl.TrackIDs(); !reflect.DeepEqual(got, []string{"9"}) {
		t.Errorf("TrackIDs() = %v, want [9]", got)
	}
}

func TestPlaylistService_GetMalformedID(t *testing.T) {
	client, _ := newTestClient(t, http.NotFoundHandler())

	for _, id := range []string{"", "42", "42:7:1", ":7", "42:"} {
		if _, err := client.Playlists().Get(context.Background(), id); !errors.Is(err, ErrMalformedPlaylistID) {
			t.Errorf("Get(%q) error = %v, want ErrMalformedPlaylistID", id, err)
		}
	}
}

func TestPlaylistService_Landing(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		wantRefs   []PlaylistRef
		wantDay    string
		wantDayErr error
	}{
		{
			name: "items",
			body: `{"items":[
				{"type":"personal_playlist_item","data":{"playlist":{"uid":1,"kind":2,"title":"Плейлист дня","cover":{"uri":"c/%%"}}}},
				{"type":"personal_playlist_item","data":{"playlist":{"uid":1,"kind":3,"title":"Premiere"}}},
				{"type":"promo","data":{"playlist":{"uid":1,"kind":4}}}
			]}`,
			wantRefs: []PlaylistRef{
				{ID: "1:2", Title: "Плейлист дня", Cover: "https://c/200x200"},
				{ID: "1:3", Title: "Premiere"},
			},
			wantDay: "1:2",
		},
		{
			name: "nested entities",
			body: `{"result":{"blocks":[
				{"type":"personal-playlists","entities":[
					{"type":"personal_playlist_item","data":{"playlist":{"uid":5,"kind":6,"title":"Daily","idForFrom":"playlist_of_the_day"}}}
				]}
			]}}`,
			wantRefs: []PlaylistRef{},
			wantDay:  "5:6",
		},
		{
			name:       "unavailable",
			body:       `{"name":"Unavailable For Legal Reasons"}`,
			wantDayErr: ErrUnavailable,
		},
		{
			name:       "no daily playlist",
			body:       `{"blocks":[{"type":"personal_playlist_item","data":{"playlistType":"other","playlist":{"uid":1,"kind":3,"title":"Premiere"}}}]}`,
			wantRefs:   []PlaylistRef{{ID: "1:3", Title: "Premiere"}},
			wantDayErr: ErrNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				fmt.Fprint(w, tt.body)
			}))

			refs, err := client.Playlists().Personal(context.Background())
			if tt.wantRefs != nil {
				if err != nil {
					t.Fatalf("Personal() error = %v", err)
				}
				if !reflect.DeepEqual(refs, tt.wantRefs) {
					t.Errorf("Personal() = %+v, want %+v", refs, tt.wantRefs)
				}
			}

			day, err := client.Playlists().OfTheDay(context.Background())
			if tt.wantDayErr != nil {
				if !errors.Is(err, tt.wantDayErr) {
					t.Fatalf("OfTheDay() error = %v, want %v", err, tt.wantDayErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("OfTheDay() error = %v", err)
			}
			if day.ID != tt.wantDay {
				t.Errorf("OfTheDay() = %q, want %q", day.ID, tt.wantDay)
			}
		})
	}
}

func TestPlaylistService_Recommended(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/landing/block/recommended-playlists" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		fmt.Fprint(w, `{"items":[
			{"type":"liked_playlist_item","data":{"playlist":{"uid":"u","kind":"1","title":"Liked"}}},
			{"type":"personal_playlist_item","data":{"playlist":{"uid":"u","kind":"2","title":"Skip"}}}
		]}`)
	}))

	refs, err := client.Playlists().Recommended(context.Background())
	if err != nil {
		t.Fatalf("Recommended() error = %v", err)
	}
	if want := []PlaylistRef{{ID: "u:1", Title: "Liked"}}; !reflect.DeepEqual(refs, want) {
		t.Errorf("Recommended() = %+v, want %+v", refs, want)
	}
}
