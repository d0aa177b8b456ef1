package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"bingpaper/internal/ipc"
)

func newCurrentCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "current",
		Short: "Print the picture currently on screen",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.Current()
				if err != nil {
					return err
				}
				if resp.Path == "" {
					fmt.Fprintln(cmd.OutOrStdout(), "No picture applied yet")
					return nil
				}
				fmt.Fprintln(cmd.OutOrStdout(), resp.Path)
				return nil
			})
		},
	}
}

func newRefreshCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "refresh",
		Short: "Ask the daemon to poll for a new picture now",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.Refresh()
				if err != nil {
					return err
				}
				if resp.Accepted {
					fmt.Fprintln(cmd.OutOrStdout(), "Refresh requested")
				}
				return nil
			})
		},
	}
}

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List downloaded pictures, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.History(limit)
				if err != nil {
					return err
				}
				stdout := cmd.OutOrStdout()
				if len(resp.Entries) == 0 {
					fmt.Fprintln(stdout, "No pictures recorded yet")
					return nil
				}

				rows := make([][]string, 0, len(resp.Entries))
				for _, entry := range resp.Entries {
					market := entry.Market
					if market == "" {
						market = "-"
					}
					rows = append(rows, []string{
						entry.StartDate,
						entry.Title,
						market,
						entry.DownloadedAt.Local().Format("2006-01-02 15:04"),
						entry.Path,
					})
				}
				fmt.Fprintln(stdout, renderTable(stdout,
					[]string{"Date", "Title", "Market", "Downloaded", "Path"},
					rows,
					[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft, alignLeft}))
				fmt.Fprintf(stdout, "%s\n", pluralize(len(resp.Entries), "picture"))
				return nil
			})
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 14, "Maximum entries to show (0 for all)")
	return cmd
}

func pluralize(count int, noun string) string {
	if count == 1 {
		return "1 " + noun
	}
	return strconv.Itoa(count) + " " + noun + "s"
}
