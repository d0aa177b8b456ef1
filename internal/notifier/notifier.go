// Package notifier publishes the current picture on the D-Bus session bus so
// other desktop components can follow along. Delivery is best-effort: a
// missing bus or a failed publication never affects the daemon.
package notifier

import (
	"fmt"
	"log/slog"

	"github.com/godbus/dbus/v5"
	"github.com/godbus/dbus/v5/prop"

	"bingpaper/internal/logging"
)

const (
	busName       = "net.boothwhack.BingPaper1"
	objectPath    = "/net/boothwhack/BingPaper1"
	interfaceName = "net.boothwhack.BingPaper1"
	propertyName  = "CurrentPicture"
)

// Notifier exposes a read-only CurrentPicture property and emits
// PropertiesChanged on every update. A notifier without a bus connection is a
// valid no-op.
type Notifier struct {
	conn   *dbus.Conn
	props  *prop.Properties
	logger *slog.Logger
}

// New connects to the session bus and claims the well-known name. When the
// bus is unreachable the returned notifier silently drops publications; the
// daemon runs fine without a desktop session.
func New(logger *slog.Logger) *Notifier {
	n := &Notifier{logger: logging.NewComponentLogger(logger, "notifier")}

	conn, err := dbus.ConnectSessionBus()
	if err != nil {
		n.logger.Warn("session bus unavailable, change notifications disabled", logging.Error(err))
		return n
	}
	if err := n.export(conn); err != nil {
		n.logger.Warn("bus export failed, change notifications disabled", logging.Error(err))
		_ = conn.Close()
		return n
	}
	n.conn = conn
	n.logger.Info("change notifier registered", logging.String("name", busName))
	return n
}

func (n *Notifier) export(conn *dbus.Conn) error {
	props, err := prop.Export(conn, objectPath, prop.Map{
		interfaceName: {
			propertyName: {
				Value:    "",
				Writable: false,
				Emit:     prop.EmitTrue,
			},
		},
	})
	if err != nil {
		return fmt.Errorf("export properties: %w", err)
	}

	reply, err := conn.RequestName(busName, dbus.NameFlagDoNotQueue)
	if err != nil {
		return fmt.Errorf("request name %s: %w", busName, err)
	}
	if reply != dbus.RequestNameReplyPrimaryOwner {
		return fmt.Errorf("name %s already owned", busName)
	}

	n.props = props
	return nil
}

// Publish updates the CurrentPicture property. Failures are logged and
// swallowed; scheduler state never rolls back over a notification.
func (n *Notifier) Publish(path string) {
	if n.props == nil {
		return
	}
	// SetMust bypasses the writable check reserved for external callers and
	// emits PropertiesChanged.
	n.props.SetMust(interfaceName, propertyName, path)
	n.logger.Debug("published current picture", logging.String("path", path))
}

// Close releases the bus connection.
func (n *Notifier) Close() error {
	if n.conn == nil {
		return nil
	}
	return n.conn.Close()
}
