// Package hyprland queries the compositor for the current output set and
// listens for output hotplug events. The output list is never cached: outputs
// can appear and disappear between any two calls.
package hyprland

import (
	"encoding/json"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const ioTimeout = 5 * time.Second

// Monitor is one output as reported by the compositor.
type Monitor struct {
	ID          int    `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Width       int    `json:"width"`
	Height      int    `json:"height"`
}

// Client issues requests against the compositor control socket.
type Client struct {
	socketPath string
}

// New builds a control client. An empty path derives the socket from the
// Hyprland instance signature.
func New(socketPath string) *Client {
	if strings.TrimSpace(socketPath) == "" {
		socketPath = ControlSocketPath()
	}
	return &Client{socketPath: socketPath}
}

// ControlSocketPath derives the compositor request socket location.
func ControlSocketPath() string {
	return instanceSocket(".socket.sock")
}

// EventSocketPath derives the compositor event stream socket location.
func EventSocketPath() string {
	return instanceSocket(".socket2.sock")
}

func instanceSocket(name string) string {
	signature := strings.TrimSpace(os.Getenv("HYPRLAND_INSTANCE_SIGNATURE"))
	if signature == "" {
		return ""
	}
	runtime := strings.TrimSpace(os.Getenv("XDG_RUNTIME_DIR"))
	if runtime == "" {
		runtime = "/tmp"
	}
	return filepath.Join(runtime, "hypr", signature, name)
}

// Monitors queries the live output set. Callers must requery before every
// broadcast.
func (c *Client) Monitors() ([]Monitor, error) {
	if c.socketPath == "" {
		return nil, fmt.Errorf("compositor socket unavailable: HYPRLAND_INSTANCE_SIGNATURE not set")
	}

	conn, err := net.DialTimeout("unix", c.socketPath, ioTimeout)
	if err != nil {
		return nil, fmt.Errorf("connect compositor socket: %w", err)
	}
	defer conn.Close()

	_ = conn.SetDeadline(time.Now().Add(ioTimeout))
	if _, err := conn.Write([]byte("j/monitors")); err != nil {
		return nil, fmt.Errorf("request monitors: %w", err)
	}

	var monitors []Monitor
	if err := json.NewDecoder(conn).Decode(&monitors); err != nil {
		return nil, fmt.Errorf("decode monitors: %w", err)
	}
	return monitors, nil
}
