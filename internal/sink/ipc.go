package sink

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"sync/atomic"
	"time"
)

// errPropertyUnavailable is mpv's answer for properties of an idle player.
var errPropertyUnavailable = errors.New("mpv: property unavailable")

type ipcCommand struct {
	Command   []interface{} `json:"command"`
	RequestID int64         `json:"request_id"`
}

// ipcMessage is either a reply (request_id set) or an asynchronous event.
type ipcMessage struct {
	Data      json.RawMessage `json:"data"`
	Error     string          `json:"error"`
	RequestID *int64          `json:"request_id"`
	Event     string          `json:"event"`
}

const ipcDeadline = 1 * time.Second

var requestIDs int64

// command sends one JSON IPC command over a fresh connection and waits for
// its reply, skipping any events mpv interleaves on the socket.
func command(socketPath string, args ...interface{}) (json.RawMessage, error) {
	conn, err := net.DialTimeout("unix", socketPath, ipcDeadline)
	if err != nil {
		return nil, fmt.Errorf("connect: %w", err)
	}
	defer conn.Close()

	if err := conn.SetDeadline(time.Now().Add(ipcDeadline)); err != nil {
		return nil, fmt.Errorf("set deadline: %w", err)
	}

	id := atomic.AddInt64(&requestIDs, 1)
	payload, err := json.Marshal(ipcCommand{Command: args, RequestID: id})
	if err != nil {
		return nil, fmt.Errorf("marshal: %w", err)
	}
	if _, err := conn.Write(append(payload, '\n')); err != nil {
		return nil, fmt.Errorf("write: %w", err)
	}

	scanner := bufio.NewScanner(conn)
	for scanner.Scan() {
		var msg ipcMessage
		if err := json.Unmarshal(scanner.Bytes(), &msg); err != nil {
			continue
		}
		if msg.RequestID == nil || *msg.RequestID != id {
			continue
		}
		switch msg.Error {
		case "", "success":
			return msg.Data, nil
		case "property unavailable":
			return nil, errPropertyUnavailable
		default:
			return nil, fmt.Errorf("mpv error: %s", msg.Error)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read: %w", err)
	}
	return nil, errors.New("mpv: connection closed before reply")
}
