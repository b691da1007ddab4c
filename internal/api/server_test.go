package api

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jfmyers9/yamp/internal/playback"
	"github.com/rs/zerolog"
)

type fakeCoordinator struct {
	hub *playback.Hub

	mu     sync.Mutex
	events []playback.Event
	view   playback.View
	err    error
}

func newFakeCoordinator() *fakeCoordinator {
	return &fakeCoordinator{hub: playback.NewHub()}
}

func (f *fakeCoordinator) Dispatch(_ context.Context, ev playback.Event) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.events = append(f.events, ev)
	return nil
}

func (f *fakeCoordinator) View(context.Context) (playback.View, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.view, f.err
}

func (f *fakeCoordinator) Subscribe() *playback.Subscription { return f.hub.Subscribe() }

func (f *fakeCoordinator) Unsubscribe(sub *playback.Subscription) { f.hub.Unsubscribe(sub) }

func (f *fakeCoordinator) dispatched() []playback.Event {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]playback.Event(nil), f.events...)
}

type fakeObserver struct {
	mu   sync.Mutex
	seen []string
	ok   bool
}

func (f *fakeObserver) Observe(rawURL string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seen = append(f.seen, rawURL)
	return f.ok
}

func (f *fakeObserver) setOK(ok bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ok = ok
}

func (f *fakeObserver) observed() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.seen...)
}

func newTestServer(t *testing.T, coord *fakeCoordinator, obs RedirectObserver) (*httptest.Server, *Client) {
	t.Helper()
	srv := httptest.NewServer(NewServer(coord, obs, zerolog.Nop()))
	t.Cleanup(srv.Close)
	return srv, NewClient(srv.URL)
}

func TestClient_Send(t *testing.T) {
	coord := newFakeCoordinator()
	_, client := newTestServer(t, coord, nil)

	events := []playback.Event{
		playback.PlayAt{Index: 0, PlaylistID: "u:k"},
		playback.Next{},
		playback.SetVolume{Value: 0.5},
		playback.SetPlaylist{PlaylistID: "u:k", TrackIDs: []string{"a", "b"}},
	}
	for _, ev := range events {
		if err := client.Send(context.Background(), ev); err != nil {
			t.Fatalf("Send(%T) error: %v", ev, err)
		}
	}

	got := coord.dispatched()
	if len(got) != len(events) {
		t.Fatalf("dispatched %d events, want %d", len(got), len(events))
	}
	if pa, ok := got[0].(playback.PlayAt); !ok || pa.Index != 0 || pa.PlaylistID != "u:k" {
		t.Errorf("event 0 = %#v", got[0])
	}
	if sv, ok := got[2].(playback.SetVolume); !ok || sv.Value != 0.5 {
		t.Errorf("event 2 = %#v", got[2])
	}
	if sp, ok := got[3].(playback.SetPlaylist); !ok || len(sp.TrackIDs) != 2 {
		t.Errorf("event 3 = %#v", got[3])
	}
}

func TestServer_EventErrors(t *testing.T) {
	tests := []struct {
		name   string
		method string
		body   string
		status int
	}{
		{"unknown action", http.MethodPost, `{"action":"explode"}`, http.StatusBadRequest},
		{"bad json", http.MethodPost, `{`, http.StatusBadRequest},
		{"missing index", http.MethodPost, `{"action":"play_track_by_index"}`, http.StatusBadRequest},
		{"wrong method", http.MethodGet, ``, http.StatusMethodNotAllowed},
	}

	coord := newFakeCoordinator()
	srv, _ := newTestServer(t, coord, nil)

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, _ := http.NewRequest(tt.method, srv.URL+"/v1/events", strings.NewReader(tt.body))
			resp, err := http.DefaultClient.Do(req)
			if err != nil {
				t.Fatal(err)
			}
			resp.Body.Close()
			if resp.StatusCode != tt.status {
				t.Errorf("status = %d, want %d", resp.StatusCode, tt.status)
			}
		})
	}
	if n := len(coord.dispatched()); n != 0 {
		t.Errorf("dispatched %d events, want 0", n)
	}
}

func TestServer_StoppedCoordinator(t *testing.T) {
	coord := newFakeCoordinator()
	coord.err = playback.ErrStopped
	_, client := newTestServer(t, coord, nil)

	err := client.Send(context.Background(), playback.Pause{})
	var se *StatusError
	if !errors.As(err, &se) || se.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("Send() error = %v, want 503", err)
	}
}

func TestServer_RequestID(t *testing.T) {
	srv, _ := newTestServer(t, newFakeCoordinator(), nil)

	resp, err := http.Get(srv.URL + "/v1/state")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.Header.Get(RequestIDHeader) == "" {
		t.Error("missing generated request id")
	}

	const id = "3f8e4d2a-9c1b-4b7a-8f0e-1d2c3b4a5968"
	req, _ := http.NewRequest(http.MethodGet, srv.URL+"/v1/state", nil)
	req.Header.Set(RequestIDHeader, id)
	resp, err = http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if got := resp.Header.Get(RequestIDHeader); got != id {
		t.Errorf("request id = %q, want %q", got, id)
	}
}

func TestClient_State(t *testing.T) {
	coord := newFakeCoordinator()
	coord.view = playback.View{
		CurrentIndex:  1,
		IsPlaying:     true,
		TrackList:     []string{"a", "b"},
		FullTrackInfo: []playback.TrackInfo{},
		PlaylistID:    "u:k",
		CurrentTime:   12.5,
	}
	_, client := newTestServer(t, coord, nil)

	v, err := client.State(context.Background())
	if err != nil {
		t.Fatalf("State() error: %v", err)
	}
	if v.CurrentIndex != 1 || !v.IsPlaying || v.PlaylistID != "u:k" || v.CurrentTime != 12.5 {
		t.Errorf("State() = %+v", v)
	}
	if len(v.TrackList) != 2 {
		t.Errorf("TrackList = %v", v.TrackList)
	}
}

func TestClient_Stream(t *testing.T) {
	coord := newFakeCoordinator()
	coord.view = playback.View{PlaylistID: "u:k", TrackList: []string{"a"}}
	_, client := newTestServer(t, coord, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	errDone := errors.New("done")
	var got []playback.Message
	err := client.Stream(ctx, func(m playback.Message) error {
		got = append(got, m)
		switch len(got) {
		case 1:
			coord.hub.Publish(playback.Message{Action: playback.ActionTokenUpdated})
			coord.hub.Publish(playback.Message{Action: playback.ActionError, Operation: "play", Error: "boom"})
		case 3:
			return errDone
		}
		return nil
	})
	if !errors.Is(err, errDone) {
		t.Fatalf("Stream() error = %v", err)
	}

	if got[0].Action != playback.ActionStateUpdated || got[0].View == nil || got[0].PlaylistID != "u:k" {
		t.Errorf("first message = %+v", got[0])
	}
	if got[1].Action != playback.ActionTokenUpdated {
		t.Errorf("second message = %+v", got[1])
	}
	if got[2].Operation != "play" || got[2].Error != "boom" {
		t.Errorf("third message = %+v", got[2])
	}
}

func TestServer_StreamFormat(t *testing.T) {
	coord := newFakeCoordinator()
	srv, _ := newTestServer(t, coord, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/v1/stream", nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	if ct := resp.Header.Get("Content-Type"); ct != "text/event-stream" {
		t.Errorf("Content-Type = %q", ct)
	}
	buf := make([]byte, 6)
	if _, err := io.ReadFull(resp.Body, buf); err != nil {
		t.Fatal(err)
	}
	if string(buf) != "data: " {
		t.Errorf("stream prefix = %q", buf)
	}
}

func TestClient_SubmitRedirect(t *testing.T) {
	obs := &fakeObserver{ok: true}
	_, client := newTestServer(t, newFakeCoordinator(), obs)

	const redirect = "https://music.yandex.ru/#access_token=abc&token_type=bearer"
	if err := client.SubmitRedirect(context.Background(), redirect); err != nil {
		t.Fatalf("SubmitRedirect() error: %v", err)
	}
	if seen := obs.observed(); len(seen) != 1 || seen[0] != redirect {
		t.Errorf("observed %v", seen)
	}

	obs.setOK(false)
	if err := client.SubmitRedirect(context.Background(), redirect); !errors.Is(err, ErrNoPendingLogin) {
		t.Errorf("SubmitRedirect() error = %v, want ErrNoPendingLogin", err)
	}
}

func TestClient_DaemonUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	addr := srv.URL
	srv.Close()

	_, err := NewClient(addr).State(context.Background())
	if !errors.Is(err, ErrDaemonUnavailable) {
		t.Errorf("State() error = %v, want ErrDaemonUnavailable", err)
	}
}
