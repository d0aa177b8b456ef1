package main

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"bingpaper/internal/daemonctl"
	"bingpaper/internal/daemonrun"
	"bingpaper/internal/ipc"
)

func newDaemonCommand(ctx *commandContext) *cobra.Command {
	daemonCmd := &cobra.Command{
		Use:   "daemon",
		Short: "Daemon lifecycle management",
	}
	daemonCmd.AddCommand(newDaemonRunCommand(ctx))
	daemonCmd.AddCommand(newDaemonStartCommand(ctx))
	daemonCmd.AddCommand(newDaemonStopCommand(ctx))
	daemonCmd.AddCommand(newDaemonStatusCommand(ctx))
	return daemonCmd
}

func newDaemonRunCommand(ctx *commandContext) *cobra.Command {
	var logLevel string
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the daemon in the foreground",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			return daemonrun.Run(cmd.Context(), cfg, daemonrun.Options{LogLevel: logLevel})
		},
	}
	cmd.Flags().StringVar(&logLevel, "log-level", "", "Override the configured log level")
	return cmd
}

func newDaemonStartCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the daemon in the background",
		RunE: func(cmd *cobra.Command, args []string) error {
			stdout := cmd.OutOrStdout()
			exe, err := os.Executable()
			if err != nil {
				return fmt.Errorf("resolve executable: %w", err)
			}

			opts := daemonctl.LaunchOptions{}
			if ctx.configFlag != nil {
				opts.ConfigPath = *ctx.configFlag
			}
			result, err := daemonctl.EnsureStarted(ctx.socketPath(), exe, opts, 10*time.Second)
			if err != nil {
				return err
			}

			switch result.State {
			case daemonctl.StartStateStarted:
				fmt.Fprintf(stdout, "Daemon started (pid %d)\n", result.PID)
			case daemonctl.StartStateAlreadyRunning:
				fmt.Fprintln(stdout, "Daemon already running")
			}
			return nil
		},
	}
}

func newDaemonStopCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "stop",
		Short: "Stop the daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			stdout := cmd.OutOrStdout()
			result, err := daemonctl.StopAndTerminate(ctx.socketPath(), 5*time.Second)
			if errors.Is(err, daemonctl.ErrDaemonNotRunning) {
				fmt.Fprintln(stdout, "Daemon is not running")
				return nil
			}
			if err != nil {
				return err
			}
			if result.ForcedKill {
				fmt.Fprintf(stdout, "Daemon did not exit cleanly, killed pid %d\n", result.PID)
			} else {
				fmt.Fprintln(stdout, "Daemon stopped")
			}
			return nil
		},
	}
}

func newDaemonStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show daemon status",
		RunE: func(cmd *cobra.Command, args []string) error {
			stdout := cmd.OutOrStdout()

			reachable, _, err := daemonctl.ProcessInfo(ctx.socketPath())
			if err != nil {
				return err
			}
			if !reachable {
				fmt.Fprintln(stdout, "Daemon is not running")
				return nil
			}

			return ctx.withClient(func(client *ipc.Client) error {
				status, err := client.Status()
				if err != nil {
					return err
				}

				rows := [][]string{
					{"Running", yesNo(status.Running)},
					{"PID", fmt.Sprintf("%d", status.PID)},
					{"Run ID", status.RunID},
					{"Started", formatTime(status.StartedAt)},
					{"Current picture", orDash(status.CurrentPicture)},
					{"Next poll", formatTime(status.NextPoll)},
					{"Pictures directory", status.PicturesDir},
					{"Control socket", status.SocketPath},
					{"Fallback asset", orDash(status.FallbackAsset)},
					{"History database", orDash(status.HistoryDBPath)},
					{"Last error", orDash(status.LastError)},
				}
				fmt.Fprintln(stdout, renderTable(stdout, []string{"Field", "Value"}, rows, []columnAlignment{alignLeft, alignLeft}))
				return nil
			})
		},
	}
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}

func orDash(value string) string {
	if value == "" {
		return "-"
	}
	return value
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format(time.RFC3339)
}
