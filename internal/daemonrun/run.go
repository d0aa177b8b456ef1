// Package daemonrun hosts the daemon process runtime shared by the
// standalone daemon binary and the CLI's foreground run command.
package daemonrun

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"

	"bingpaper/internal/config"
	"bingpaper/internal/daemon"
	"bingpaper/internal/ipc"
	"bingpaper/internal/logging"
)

// Options configures daemon process runtime behavior.
type Options struct {
	// LogLevel overrides the configured level when non-empty.
	LogLevel string
}

// Run starts the daemon runtime loop and blocks until the context is
// canceled, a termination signal arrives, or a client requests shutdown.
func Run(cmdCtx context.Context, cfg *config.Config, opts Options) error {
	if cfg == nil {
		return fmt.Errorf("config is required")
	}

	signalCtx, cancel := signal.NotifyContext(cmdCtx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	level := opts.LogLevel
	if level == "" {
		level = cfg.Logging.Level
	}
	logger, err := logging.New(logging.Options{
		Level:      level,
		Format:     cfg.Logging.Format,
		FilePath:   cfg.LogPath(),
		MaxSizeMB:  cfg.Logging.MaxSizeMB,
		MaxBackups: cfg.Logging.MaxBackups,
	})
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}

	d, err := daemon.New(cfg, logger)
	if err != nil {
		return fmt.Errorf("create daemon: %w", err)
	}
	defer d.Close()

	pidPath := filepath.Join(cfg.Daemon.StateDir, "bingpaperd.pid")
	if err := writePIDFile(pidPath); err != nil {
		return fmt.Errorf("write pid file: %w", err)
	}
	defer os.Remove(pidPath)

	ipcServer, err := ipc.NewServer(signalCtx, cfg.SocketPath(), d, cancel, logger)
	if err != nil {
		return fmt.Errorf("start ipc server: %w", err)
	}
	defer ipcServer.Close()
	ipcServer.Serve()

	if err := d.Start(signalCtx); err != nil {
		return fmt.Errorf("start daemon: %w", err)
	}

	<-signalCtx.Done()
	logger.Info("bingpaper daemon shutting down")
	return nil
}

func writePIDFile(path string) error {
	if path == "" {
		return nil
	}
	value := strconv.Itoa(os.Getpid()) + "\n"
	return os.WriteFile(path, []byte(value), 0o644)
}
