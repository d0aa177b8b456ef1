package hyprland

import (
	"bufio"
	"context"
	"log/slog"
	"net"
	"strings"
	"time"

	"bingpaper/internal/logging"
)

const monitorAddedEvent = "monitoradded"

// reconnectDelay paces event-socket reconnection after the compositor drops
// the stream.
const reconnectDelay = 5 * time.Second

// EventListener follows the compositor event stream and forwards the names of
// newly added outputs. It reconnects until the context is canceled.
type EventListener struct {
	socketPath string
	logger     *slog.Logger
}

// NewEventListener builds a listener. An empty path derives the socket from
// the Hyprland instance signature.
func NewEventListener(socketPath string, logger *slog.Logger) *EventListener {
	if strings.TrimSpace(socketPath) == "" {
		socketPath = EventSocketPath()
	}
	return &EventListener{
		socketPath: socketPath,
		logger:     logging.NewComponentLogger(logger, "output-watcher"),
	}
}

// Available reports whether an event socket path could be derived.
func (l *EventListener) Available() bool {
	return l.socketPath != ""
}

// Listen forwards monitor-added output names into added until ctx is done.
// Stream errors are logged and followed by a reconnect; they never propagate.
func (l *EventListener) Listen(ctx context.Context, added chan<- string) {
	for {
		if err := l.follow(ctx, added); err != nil {
			l.logger.Warn("event stream interrupted", logging.Error(err))
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(reconnectDelay):
		}
	}
}

func (l *EventListener) follow(ctx context.Context, added chan<- string) error {
	conn, err := net.DialTimeout("unix", l.socketPath, ioTimeout)
	if err != nil {
		return err
	}
	defer conn.Close()

	// Unblock the blocking read when the daemon shuts down.
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()

	scanner := bufio.NewScanner(conn)
	for scanner.Scan() {
		event, data, found := strings.Cut(scanner.Text(), ">>")
		if !found || event != monitorAddedEvent {
			continue
		}
		name := strings.TrimSpace(data)
		if name == "" {
			continue
		}
		l.logger.Debug("output added", logging.String("output", name))
		select {
		case added <- name:
		case <-ctx.Done():
			return nil
		}
	}
	if ctx.Err() != nil {
		return nil
	}
	return scanner.Err()
}
