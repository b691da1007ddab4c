package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/jfmyers9/yamp/internal/playback"
	"github.com/rs/zerolog"
)

const (
	maxBodyBytes      = 4 << 20
	keepAliveInterval = 15 * time.Second
	shutdownTimeout   = 5 * time.Second
)

// Coordinator is the playback coordinator as seen by the API.
type Coordinator interface {
	Dispatch(ctx context.Context, ev playback.Event) error
	View(ctx context.Context) (playback.View, error)
	Subscribe() *playback.Subscription
	Unsubscribe(sub *playback.Subscription)
}

// RedirectObserver inspects redirect URLs for a login token.
type RedirectObserver interface {
	Observe(rawURL string) bool
}

// Server is the local UI API.
type Server struct {
	coord  Coordinator
	oauth  RedirectObserver
	logger zerolog.Logger
	router *router
}

// NewServer creates a Server. oauth may be nil.
func NewServer(coord Coordinator, oauth RedirectObserver, logger zerolog.Logger) *Server {
	s := &Server{
		coord:  coord,
		oauth:  oauth,
		logger: logger.With().Str("component", "api").Logger(),
		router: newRouter(),
	}
	s.router.Use(requestID, logRequests(s.logger))
	s.router.Handle(http.MethodPost, "/v1/events", http.HandlerFunc(s.handleEvent))
	s.router.Handle(http.MethodGet, "/v1/state", http.HandlerFunc(s.handleState))
	s.router.Handle(http.MethodGet, "/v1/stream", http.HandlerFunc(s.handleStream))
	s.router.Handle(http.MethodPost, "/v1/oauth/redirect", http.HandlerFunc(s.handleRedirect))
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// ListenAndServe serves on addr until ctx is done.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve serves on ln until ctx is done.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s,
		ReadHeaderTimeout: 5 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info().Str("addr", ln.Addr().String()).Msg("API listening")
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		return nil
	}
}

type errorBody struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorBody{Error: msg})
}

func (s *Server) dispatchStatus(err error) int {
	if errors.Is(err, playback.ErrStopped) {
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

func (s *Server) handleEvent(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read body")
		return
	}
	ev, err := playback.DecodeEvent(body)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := s.coord.Dispatch(r.Context(), ev); err != nil {
		writeError(w, s.dispatchStatus(err), err.Error())
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	v, err := s.coord.View(r.Context())
	if err != nil {
		writeError(w, s.dispatchStatus(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, playback.Message{Action: playback.ActionStateUpdated, View: &v})
}

// handleStream sends the current state, then every broadcast, as
// server-sent events.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	sub := s.coord.Subscribe()
	defer s.coord.Unsubscribe(sub)

	v, err := s.coord.View(r.Context())
	if err != nil {
		writeError(w, s.dispatchStatus(err), err.Error())
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	if err := writeEvent(w, playback.Message{Action: playback.ActionStateUpdated, View: &v}); err != nil {
		return
	}
	flusher.Flush()

	keepAlive := time.NewTicker(keepAliveInterval)
	defer keepAlive.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-sub.Done:
			return
		case m := <-sub.C:
			if err := writeEvent(w, m); err != nil {
				s.logger.Debug().Err(err).Msg("Stream write failed")
				return
			}
			flusher.Flush()
		case <-keepAlive.C:
			if _, err := io.WriteString(w, ": keep-alive\n\n"); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}

func writeEvent(w io.Writer, m playback.Message) error {
	data, err := json.Marshal(m)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "data: %s\n\n", data)
	return err
}

type redirectBody struct {
	URL string `json:"url"`
}

func (s *Server) handleRedirect(w http.ResponseWriter, r *http.Request) {
	var body redirectBody
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body")
		return
	}
	if s.oauth == nil || !s.oauth.Observe(body.URL) {
		writeError(w, http.StatusUnprocessableEntity, "no token for a pending login in url")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
