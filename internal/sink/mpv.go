package sink

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const (
	socketWaitRetries = 10
	socketWaitDelay   = 200 * time.Millisecond
	quitTimeout       = 3 * time.Second
)

// MPV renders audio with an mpv child process driven over JSON IPC.
type MPV struct {
	path   string
	logger zerolog.Logger

	mu         sync.Mutex
	socketPath string
	cmd        *exec.Cmd
	exited     chan struct{}
}

// NewMPV returns a backend that runs the mpv binary at path.
func NewMPV(path string, logger zerolog.Logger) *MPV {
	if path == "" {
		path = "mpv"
	}
	return &MPV{
		path:   path,
		logger: logger.With().Str("component", "mpv").Logger(),
	}
}

func (m *MPV) running() bool {
	if m.exited == nil {
		return false
	}
	select {
	case <-m.exited:
		return false
	default:
		return true
	}
}

// Start implements Backend.
func (m *MPV) Start(ctx context.Context) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.running() {
		return false, nil
	}

	if m.socketPath != "" {
		_ = os.Remove(m.socketPath)
	}
	m.socketPath = filepath.Join(os.TempDir(), fmt.Sprintf("yamp-%s.sock", uuid.NewString()[:8]))

	args := []string{
		"--idle=yes",
		"--no-video",
		"--no-terminal",
		"--really-quiet",
		"--keep-open=yes",
		fmt.Sprintf("--input-ipc-server=%s", m.socketPath),
	}

	cmd := exec.Command(m.path, args...)
	cmd.SysProcAttr = sysProcAttr()
	cmd.Stdin = nil
	cmd.Stdout = nil
	cmd.Stderr = nil

	if err := cmd.Start(); err != nil {
		return false, fmt.Errorf("start mpv: %w", err)
	}

	exited := make(chan struct{})
	go func() {
		_ = cmd.Wait()
		close(exited)
	}()
	m.cmd = cmd
	m.exited = exited

	if err := m.waitForSocket(ctx); err != nil {
		select {
		case <-exited:
		default:
			m.logger.Warn().Msg("Killing mpv: socket never became ready")
			_ = killProcess(cmd)
		}
		return false, fmt.Errorf("mpv socket not ready: %w", err)
	}

	m.logger.Info().Int("pid", cmd.Process.Pid).Str("socket", m.socketPath).Msg("mpv started")
	return true, nil
}

// waitForSocket polls until the IPC socket accepts connections.
func (m *MPV) waitForSocket(ctx context.Context) error {
	for i := 0; i < socketWaitRetries; i++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-m.exited:
			return errors.New("mpv exited before socket was ready")
		case <-time.After(socketWaitDelay):
		}

		conn, err := net.Dial("unix", m.socketPath)
		if err == nil {
			conn.Close()
			return nil
		}
	}
	return fmt.Errorf("socket %s not ready after %d attempts", m.socketPath, socketWaitRetries)
}

func (m *MPV) send(args ...interface{}) (json.RawMessage, error) {
	m.mu.Lock()
	socketPath := m.socketPath
	m.mu.Unlock()
	if socketPath == "" {
		return nil, errors.New("mpv: not started")
	}
	return command(socketPath, args...)
}

func (m *MPV) set(property string, value interface{}) error {
	_, err := m.send("set_property", property, value)
	return err
}

// Load implements Backend.
func (m *MPV) Load(url string) error {
	_, err := m.send("loadfile", url, "replace")
	return err
}

// SetPaused implements Backend.
func (m *MPV) SetPaused(paused bool) error {
	return m.set("pause", paused)
}

// Seek implements Backend.
func (m *MPV) Seek(seconds float64) error {
	return m.set("time-pos", seconds)
}

// SetVolume implements Backend.
func (m *MPV) SetVolume(percent float64) error {
	return m.set("volume", percent)
}

func (m *MPV) floatProperty(name string) (float64, error) {
	data, err := m.send("get_property", name)
	if errors.Is(err, errPropertyUnavailable) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	var v float64
	if len(data) == 0 || string(data) == "null" {
		return 0, nil
	}
	if err := json.Unmarshal(data, &v); err != nil {
		return 0, fmt.Errorf("property %s: %w", name, err)
	}
	return v, nil
}

// Status implements Backend.
func (m *MPV) Status() (Status, error) {
	var st Status
	var err error

	if st.Position, err = m.floatProperty("time-pos"); err != nil {
		return st, err
	}
	if st.Duration, err = m.floatProperty("duration"); err != nil {
		return st, err
	}

	data, err := m.send("get_property", "eof-reached")
	switch {
	case errors.Is(err, errPropertyUnavailable):
	case err != nil:
		return st, err
	default:
		_ = json.Unmarshal(data, &st.EOF)
	}
	return st, nil
}

// Close implements Backend.
func (m *MPV) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.running() {
		return nil
	}

	_, _ = command(m.socketPath, "quit")

	select {
	case <-m.exited:
	case <-time.After(quitTimeout):
		_ = killProcess(m.cmd)
	}

	_ = os.Remove(m.socketPath)
	m.socketPath = ""
	return nil
}
