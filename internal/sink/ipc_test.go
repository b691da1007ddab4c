package sink

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
)

// fakeMPV answers JSON IPC commands the way mpv does, emitting an unrelated
// event line before every reply.
func fakeMPV(t *testing.T, props map[string]interface{}) string {
	t.Helper()

	dir, err := os.MkdirTemp("", "yamp")
	if err != nil {
		t.Fatalf("MkdirTemp() error = %v", err)
	}
	t.Cleanup(func() { os.RemoveAll(dir) })
	sock := filepath.Join(dir, "mpv.sock")

	ln, err := net.Listen("unix", sock)
	if err != nil {
		t.Fatalf("Listen() error = %v", err)
	}
	t.Cleanup(func() { ln.Close() })

	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			go func(conn net.Conn) {
				defer conn.Close()
				scanner := bufio.NewScanner(conn)
				for scanner.Scan() {
					var cmd ipcCommand
					if err := json.Unmarshal(scanner.Bytes(), &cmd); err != nil {
						return
					}
					fmt.Fprintln(conn, `{"event":"playback-restart"}`)

					reply := map[string]interface{}{"request_id": cmd.RequestID, "error": "success"}
					if cmd.Command[0] == "get_property" {
						v, ok := props[cmd.Command[1].(string)]
						if ok {
							reply["data"] = v
						} else {
							reply["error"] = "property unavailable"
						}
					}
					if cmd.Command[0] == "set_property" {
						props[cmd.Command[1].(string)] = cmd.Command[2]
					}
					data, _ := json.Marshal(reply)
					fmt.Fprintln(conn, string(data))
				}
			}(conn)
		}
	}()
	return sock
}

func TestCommand_SkipsEvents(t *testing.T) {
	sock := fakeMPV(t, map[string]interface{}{"time-pos": 42.5})

	data, err := command(sock, "get_property", "time-pos")
	if err != nil {
		t.Fatalf("command() error = %v", err)
	}
	if string(data) != "42.5" {
		t.Errorf("command() = %s, want 42.5", data)
	}

	if _, err := command(sock, "get_property", "duration"); !errors.Is(err, errPropertyUnavailable) {
		t.Errorf("command() error = %v, want errPropertyUnavailable", err)
	}
}

func TestMPV_Status(t *testing.T) {
	props := map[string]interface{}{"time-pos": 10.0, "duration": 200.0, "eof-reached": true}
	m := NewMPV("", zerolog.Nop())
	m.socketPath = fakeMPV(t, props)

	st, err := m.Status()
	if err != nil {
		t.Fatalf("Status() error = %v", err)
	}
	if st.Position != 10 || st.Duration != 200 || !st.EOF {
		t.Errorf("Status() = %+v, want {10 200 true}", st)
	}
}

func TestMPV_StatusIdle(t *testing.T) {
	m := NewMPV("", zerolog.Nop())
	m.socketPath = fakeMPV(t, map[string]interface{}{})

	st, err := m.Status()
	if err != nil {
		t.Fatalf("Status() error = %v", err)
	}
	if st != (Status{}) {
		t.Errorf("Status() = %+v, want zero", st)
	}
}

func TestMPV_NotStarted(t *testing.T) {
	m := NewMPV("", zerolog.Nop())
	if err := m.Load("https://example.com/a.mp3"); err == nil {
		t.Error("Load() before Start succeeded")
	}
}
