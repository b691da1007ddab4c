package api

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/jfmyers9/yamp/internal/playback"
)

// ErrDaemonUnavailable is returned when the daemon cannot be reached.
var ErrDaemonUnavailable = errors.New("daemon is not running")

// ErrNoPendingLogin is returned when a redirect carried no token for a pending login.
var ErrNoPendingLogin = errors.New("no pending login matched the redirect")

const maxStreamLine = 4 << 20

// StatusError is a non-success API response.
type StatusError struct {
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("api: %s", http.StatusText(e.StatusCode))
	}
	return fmt.Sprintf("api: %s", e.Message)
}

// Client talks to a running daemon.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a Client for the daemon listening on addr.
func NewClient(addr string) *Client {
	base := addr
	if !strings.HasPrefix(base, "http://") && !strings.HasPrefix(base, "https://") {
		base = "http://" + base
	}
	return &Client{
		baseURL:    strings.TrimSuffix(base, "/"),
		httpClient: &http.Client{},
	}
}

// Send dispatches ev to the coordinator.
func (c *Client) Send(ctx context.Context, ev playback.Event) error {
	env, err := playback.EncodeEvent(ev)
	if err != nil {
		return err
	}
	resp, err := c.do(ctx, http.MethodPost, "/v1/events", env)
	if err != nil {
		return err
	}
	resp.Body.Close()
	return nil
}

// State fetches the current playback view.
func (c *Client) State(ctx context.Context) (playback.View, error) {
	resp, err := c.do(ctx, http.MethodGet, "/v1/state", nil)
	if err != nil {
		return playback.View{}, err
	}
	defer resp.Body.Close()

	var m playback.Message
	if err := json.NewDecoder(resp.Body).Decode(&m); err != nil {
		return playback.View{}, fmt.Errorf("decode state: %w", err)
	}
	if m.View == nil {
		return playback.View{}, errors.New("decode state: missing view")
	}
	return *m.View, nil
}

// Stream delivers broadcasts to fn until ctx is done, the daemon closes
// the stream, or fn returns an error.
func (c *Client) Stream(ctx context.Context, fn func(playback.Message) error) error {
	resp, err := c.do(ctx, http.MethodGet, "/v1/stream", nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 64*1024), maxStreamLine)
	for scanner.Scan() {
		line := scanner.Text()
		data, ok := strings.CutPrefix(line, "data: ")
		if !ok {
			continue
		}
		var m playback.Message
		if err := json.Unmarshal([]byte(data), &m); err != nil {
			return fmt.Errorf("decode stream message: %w", err)
		}
		if err := fn(m); err != nil {
			return err
		}
	}
	if err := scanner.Err(); err != nil && ctx.Err() == nil {
		return fmt.Errorf("read stream: %w", err)
	}
	return ctx.Err()
}

// SubmitRedirect hands a browser redirect URL to a pending login.
func (c *Client) SubmitRedirect(ctx context.Context, rawURL string) error {
	resp, err := c.do(ctx, http.MethodPost, "/v1/oauth/redirect", redirectBody{URL: rawURL})
	if err != nil {
		var se *StatusError
		if errors.As(err, &se) && se.StatusCode == http.StatusUnprocessableEntity {
			return ErrNoPendingLogin
		}
		return err
	}
	resp.Body.Close()
	return nil
}

func (c *Client) do(ctx context.Context, method, path string, body interface{}) (*http.Response, error) {
	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, err
	}
	req.Header.Set(RequestIDHeader, uuid.NewString())
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%w: %v", ErrDaemonUnavailable, err)
	}
	if resp.StatusCode >= 300 {
		defer resp.Body.Close()
		var eb errorBody
		_ = json.NewDecoder(io.LimitReader(resp.Body, 64*1024)).Decode(&eb)
		return nil, &StatusError{StatusCode: resp.StatusCode, Message: eb.Error}
	}
	return resp, nil
}
