package auth

import (
	"context"
	"fmt"
	"net/url"
	"os/exec"
	"regexp"
	"runtime"
	"sync"

	"github.com/rs/zerolog"
	"golang.org/x/oauth2"
)

const (
	// DefaultClientID is the public client id of the music web player.
	DefaultClientID = "23cabbbdc6cd418abb4b39c32c41195d"

	authorizeURL = "https://oauth.yandex.ru/authorize"
)

var tokenRE = regexp.MustCompile(`https://music\.yandex\.(?:ru|com|by|kz|ua)/#access_token=([^&]*)`)

// ExtractToken pulls the access token out of an implicit-grant redirect URL.
func ExtractToken(rawURL string) (string, bool) {
	m := tokenRE.FindStringSubmatch(rawURL)
	if m == nil || m[1] == "" {
		return "", false
	}
	tok, err := url.QueryUnescape(m[1])
	if err != nil {
		return m[1], true
	}
	return tok, true
}

// session is one login attempt. Its result channel yields at most one token.
type session struct {
	once   sync.Once
	result chan string
	done   chan struct{}
}

func newSession() *session {
	return &session{result: make(chan string, 1), done: make(chan struct{})}
}

func (s *session) send(token string) {
	s.once.Do(func() {
		if token != "" {
			s.result <- token
		}
		close(s.result)
		close(s.done)
	})
}

// Capturer drives the browser login and hands the captured token back.
type Capturer struct {
	config *oauth2.Config
	open   func(string) error
	logger zerolog.Logger

	mu      sync.Mutex
	pending *session
}

// NewCapturer returns a Capturer for clientID. An empty clientID uses
// DefaultClientID.
func NewCapturer(clientID string, logger zerolog.Logger) *Capturer {
	if clientID == "" {
		clientID = DefaultClientID
	}
	return &Capturer{
		config: &oauth2.Config{
			ClientID: clientID,
			Endpoint: oauth2.Endpoint{AuthURL: authorizeURL},
		},
		open:   OpenBrowser,
		logger: logger.With().Str("component", "oauth").Logger(),
	}
}

// SetOpener replaces the function used to open the login page.
func (c *Capturer) SetOpener(open func(string) error) {
	c.open = open
}

// AuthURL returns the implicit-grant login URL.
func (c *Capturer) AuthURL() string {
	return c.config.AuthCodeURL("", oauth2.SetAuthURLParam("response_type", "token"))
}

// Begin starts a login attempt and opens the login page. The returned channel
// yields the token once, then closes. It is closed without a value if ctx
// ends first or a newer attempt replaces this one.
func (c *Capturer) Begin(ctx context.Context) (<-chan string, error) {
	s := newSession()

	c.mu.Lock()
	if c.pending != nil {
		c.pending.send("")
	}
	c.pending = s
	c.mu.Unlock()

	authURL := c.AuthURL()
	c.logger.Info().Str("url", authURL).Msg("Opening login page")
	if err := c.open(authURL); err != nil {
		c.logger.Warn().Err(err).Msg("Failed to open browser, visit the URL manually")
	}

	go func() {
		select {
		case <-ctx.Done():
			c.finish(s, "")
		case <-s.done:
		}
	}()

	return s.result, nil
}

// Observe inspects a redirect URL seen by a UI surface. It reports whether
// the URL carried a token for a pending login.
func (c *Capturer) Observe(rawURL string) bool {
	tok, ok := ExtractToken(rawURL)
	if !ok {
		return false
	}

	c.mu.Lock()
	s := c.pending
	c.mu.Unlock()
	if s == nil {
		c.logger.Warn().Msg("Token redirect observed without a pending login")
		return false
	}

	c.finish(s, tok)
	c.logger.Info().Msg("Token captured")
	return true
}

func (c *Capturer) finish(s *session, tok string) {
	c.mu.Lock()
	if c.pending == s {
		c.pending = nil
	}
	c.mu.Unlock()
	s.send(tok)
}

var getRuntime = func() string { return runtime.GOOS }

// OpenBrowser opens the default system browser to the specified URL.
func OpenBrowser(url string) error {
	var cmd *exec.Cmd
	switch rt := getRuntime(); rt {
	case "darwin":
		cmd = exec.Command("open", url)
	case "linux":
		cmd = exec.Command("xdg-open", url)
	case "windows":
		cmd = exec.Command("cmd", "/c", "start", url)
	default:
		return fmt.Errorf("unsupported platform: %s", rt)
	}

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to open browser: %w", err)
	}
	return nil
}
