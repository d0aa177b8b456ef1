// Package hyprpaper speaks the wallpaper presentation daemon's IPC protocol:
// one short text command per connection over a Unix domain socket, answered by
// a two-byte "ok" on success.
package hyprpaper

import (
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"path/filepath"
	"strings"
	"time"

	"bingpaper/internal/logging"
)

const (
	okReply = "ok"

	// dialAttempts bounds reconnection on a refused socket. The daemon either
	// answers quickly or is gone; anything longer belongs to the next cycle.
	dialAttempts = 3
	dialBackoff  = 200 * time.Millisecond
	ioTimeout    = 5 * time.Second
)

// Error reports a presentation-daemon failure: refused connection, timeout, or
// a reply other than "ok". Never fatal to the process.
type Error struct {
	Command string
	Reply   string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("hyprpaper %s: %v", e.Command, e.Err)
	}
	return fmt.Sprintf("hyprpaper %s: unexpected reply %q", e.Command, e.Reply)
}

func (e *Error) Unwrap() error { return e.Err }

// Client issues commands to the presentation daemon.
type Client struct {
	socketPath string
	logger     *slog.Logger
}

// New builds a client for the given socket. An empty path derives the location
// from the environment.
func New(socketPath string, logger *slog.Logger) *Client {
	if strings.TrimSpace(socketPath) == "" {
		socketPath = SocketPath()
	}
	return &Client{
		socketPath: socketPath,
		logger:     logging.NewComponentLogger(logger, "hyprpaper"),
	}
}

// SocketPath derives the daemon socket location from the Hyprland instance
// signature, falling back to the fixed legacy path when the signature is
// absent.
func SocketPath() string {
	signature := strings.TrimSpace(os.Getenv("HYPRLAND_INSTANCE_SIGNATURE"))
	if signature == "" {
		return filepath.Join("/tmp", "hypr", ".hyprpaper.sock")
	}
	if runtime := strings.TrimSpace(os.Getenv("XDG_RUNTIME_DIR")); runtime != "" {
		return filepath.Join(runtime, "hypr", signature, ".hyprpaper.sock")
	}
	return filepath.Join("/tmp", "hypr", signature, ".hyprpaper.sock")
}

// Preload makes the image daemon-resident ahead of an apply.
func (c *Client) Preload(path string) error {
	return c.send("preload", "preload "+path)
}

// Wallpaper binds a preloaded image to one output.
func (c *Client) Wallpaper(output, path string) error {
	return c.send("wallpaper", "wallpaper "+output+","+path)
}

// Unload releases a previously preloaded image.
func (c *Client) Unload(path string) error {
	return c.send("unload", "unload "+path)
}

func (c *Client) send(name, command string) error {
	if strings.ContainsAny(command, "\n\x00") {
		return &Error{Command: name, Err: fmt.Errorf("command contains forbidden byte")}
	}

	conn, err := c.dial()
	if err != nil {
		return &Error{Command: name, Err: err}
	}
	defer conn.Close()

	_ = conn.SetDeadline(time.Now().Add(ioTimeout))
	if _, err := conn.Write([]byte(command)); err != nil {
		return &Error{Command: name, Err: err}
	}

	reply, err := io.ReadAll(conn)
	if err != nil {
		return &Error{Command: name, Err: err}
	}
	if string(reply) != okReply {
		return &Error{Command: name, Reply: string(reply)}
	}
	c.logger.Debug("command acknowledged", logging.String("command", command))
	return nil
}

func (c *Client) dial() (net.Conn, error) {
	var lastErr error
	for attempt := 0; attempt < dialAttempts; attempt++ {
		if attempt > 0 {
			time.Sleep(dialBackoff)
		}
		conn, err := net.DialTimeout("unix", c.socketPath, ioTimeout)
		if err == nil {
			return conn, nil
		}
		lastErr = err
	}
	return nil, fmt.Errorf("connect %s after %d attempts: %w", c.socketPath, dialAttempts, lastErr)
}
