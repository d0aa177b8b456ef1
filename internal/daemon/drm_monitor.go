package daemon

import (
	"context"
	"log/slog"
	"sync"

	"github.com/pilebones/go-udev/netlink"

	"bingpaper/internal/logging"
)

// drmMonitor watches kernel udev events on the drm subsystem. It is the
// hotplug fallback when the compositor's event socket is unavailable: a
// connector change cannot name the affected output, so the handler reapplies
// to every current output instead.
type drmMonitor struct {
	logger  *slog.Logger
	handler func(ctx context.Context)

	mu      sync.Mutex
	conn    *netlink.UEventConn
	quit    chan struct{}
	running bool
}

func newDRMMonitor(logger *slog.Logger, handler func(ctx context.Context)) *drmMonitor {
	return &drmMonitor{
		logger:  logging.NewComponentLogger(logger, "drm-monitor"),
		handler: handler,
	}
}

// Start begins listening for udev events. A failed netlink connection is
// non-fatal; the daemon simply loses automatic hotplug reapply.
func (m *drmMonitor) Start(ctx context.Context) {
	if m == nil {
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.running {
		return
	}

	conn := new(netlink.UEventConn)
	if err := conn.Connect(netlink.UdevEvent); err != nil {
		m.logger.Warn("netlink connect failed, output hotplug reapply unavailable", logging.Error(err))
		return
	}

	m.conn = conn
	m.quit = make(chan struct{})
	m.running = true

	quit := m.quit
	go m.monitorLoop(ctx, quit)
	m.logger.Info("drm monitor started")
}

// Stop shuts the monitor down.
func (m *drmMonitor) Stop() {
	if m == nil {
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.running {
		return
	}

	if m.quit != nil {
		close(m.quit)
		m.quit = nil
	}
	if m.conn != nil {
		_ = m.conn.Close()
		m.conn = nil
	}
	m.running = false
	m.logger.Info("drm monitor stopped")
}

// Running reports whether the monitor is active.
func (m *drmMonitor) Running() bool {
	if m == nil {
		return false
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.running
}

func (m *drmMonitor) monitorLoop(ctx context.Context, quit <-chan struct{}) {
	events := make(chan netlink.UEvent)
	errs := make(chan error)

	m.mu.Lock()
	conn := m.conn
	m.mu.Unlock()
	if conn == nil {
		return
	}

	monitorQuit := conn.Monitor(events, errs, drmMatcher())

	for {
		select {
		case <-ctx.Done():
			close(monitorQuit)
			return
		case <-quit:
			close(monitorQuit)
			return
		case uevent := <-events:
			m.logger.Info("drm connector change detected",
				logging.String("action", string(uevent.Action)),
				logging.String("kobj", uevent.KObj))
			if m.handler != nil {
				m.handler(ctx)
			}
		case err := <-errs:
			m.logger.Warn("netlink monitor error", logging.Error(err))
		}
	}
}

// drmMatcher selects connector hotplug events: SUBSYSTEM=drm, ACTION=change.
func drmMatcher() netlink.Matcher {
	action := "change"
	rules := &netlink.RuleDefinitions{}
	rules.AddRule(netlink.RuleDefinition{
		Action: &action,
		Env: map[string]string{
			"SUBSYSTEM": "drm",
		},
	})
	return rules
}
