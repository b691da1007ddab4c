package discord

import (
	"encoding/binary"
	"encoding/json"
	"io"
	"net"
	"path/filepath"
	"strings"
	"testing"
)

func readRawFrame(conn net.Conn) (uint32, []byte, error) {
	header := make([]byte, 8)
	if _, err := io.ReadFull(conn, header); err != nil {
		return 0, nil, err
	}
	body := make([]byte, binary.LittleEndian.Uint32(header[4:8]))
	if _, err := io.ReadFull(conn, body); err != nil {
		return 0, nil, err
	}
	return binary.LittleEndian.Uint32(header[0:4]), body, nil
}

func writeRawFrame(conn net.Conn, opcode uint32, payload []byte) {
	header := make([]byte, 8)
	binary.LittleEndian.PutUint32(header[0:4], opcode)
	binary.LittleEndian.PutUint32(header[4:8], uint32(len(payload)))
	_, _ = conn.Write(append(header, payload...))
}

func TestFrameRoundTrip(t *testing.T) {
	client, server := net.Pipe()
	defer func() { _ = client.Close() }()
	defer func() { _ = server.Close() }()

	c := &ipcClient{conn: client}

	payload := `{"cmd":"SET_ACTIVITY","nonce":"abc123"}`
	go func() {
		if err := c.writeFrame(opFrame, []byte(payload)); err != nil {
			t.Errorf("writeFrame: %v", err)
		}
	}()

	opcode, body, err := readRawFrame(server)
	if err != nil {
		t.Fatalf("read frame: %v", err)
	}
	if opcode != opFrame {
		t.Errorf("opcode = %d, want %d", opcode, opFrame)
	}
	if string(body) != payload {
		t.Errorf("body = %q, want %q", body, payload)
	}
}

func TestReadFrameLargePayload(t *testing.T) {
	client, server := net.Pipe()
	defer func() { _ = client.Close() }()
	defer func() { _ = server.Close() }()

	c := &ipcClient{conn: server}
	large := []byte(strings.Repeat("x", 4096))
	go writeRawFrame(client, opFrame, large)

	opcode, payload, err := c.readFrame()
	if err != nil {
		t.Fatalf("readFrame: %v", err)
	}
	if opcode != opFrame {
		t.Errorf("opcode = %d, want %d", opcode, opFrame)
	}
	if len(payload) != len(large) {
		t.Errorf("payload length = %d, want %d", len(payload), len(large))
	}
}

func TestReadFrameRejectsOversize(t *testing.T) {
	client, server := net.Pipe()
	defer func() { _ = client.Close() }()
	defer func() { _ = server.Close() }()

	c := &ipcClient{conn: server}
	go func() {
		header := make([]byte, 8)
		binary.LittleEndian.PutUint32(header[0:4], opFrame)
		binary.LittleEndian.PutUint32(header[4:8], maxFrameSize+1)
		_, _ = client.Write(header)
	}()

	if _, _, err := c.readFrame(); err == nil {
		t.Fatal("expected error for oversize frame")
	}
}

func TestSetActivity(t *testing.T) {
	tests := []struct {
		name    string
		reply   string
		wantErr bool
	}{
		{"accepted", `{"cmd":"SET_ACTIVITY","evt":null,"data":{}}`, false},
		{"rejected", `{"cmd":"SET_ACTIVITY","evt":"ERROR","data":{"code":4000,"message":"bad"}}`, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, server := net.Pipe()
			defer func() { _ = client.Close() }()
			defer func() { _ = server.Close() }()

			c := &ipcClient{conn: client}
			sent := make(chan []byte, 1)
			go func() {
				_, body, err := readRawFrame(server)
				if err != nil {
					close(sent)
					return
				}
				sent <- body
				writeRawFrame(server, opFrame, []byte(tt.reply))
			}()

			err := c.SetActivity(Activity{Type: 2, Details: "Song"})
			if (err != nil) != tt.wantErr {
				t.Fatalf("SetActivity() error = %v, wantErr %v", err, tt.wantErr)
			}

			var req struct {
				Cmd   string `json:"cmd"`
				Nonce string `json:"nonce"`
				Args  struct {
					Activity Activity `json:"activity"`
				} `json:"args"`
			}
			body, ok := <-sent
			if !ok {
				t.Fatal("no request frame received")
			}
			if err := json.Unmarshal(body, &req); err != nil {
				t.Fatal(err)
			}
			if req.Cmd != "SET_ACTIVITY" || req.Nonce == "" || req.Args.Activity.Details != "Song" {
				t.Errorf("request = %+v", req)
			}
		})
	}
}

func TestSocketCandidates(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_RUNTIME_DIR", dir)

	paths := socketCandidates()
	want := []string{
		filepath.Join(dir, "discord-ipc-0"),
		filepath.Join(dir, "app/com.discordapp.Discord", "discord-ipc-9"),
		filepath.Join(dir, "snap.discord", "discord-ipc-3"),
	}
	for _, w := range want {
		found := false
		for _, p := range paths {
			if p == w {
				found = true
				break
			}
		}
		if !found {
			t.Errorf("socketCandidates() missing %s", w)
		}
	}
	if paths[0] != want[0] {
		t.Errorf("first candidate = %s, want %s", paths[0], want[0])
	}
}
