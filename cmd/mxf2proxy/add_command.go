package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"mxf2proxy/internal/config"
	"mxf2proxy/internal/ipc"
)

func newAddCommand(ctx *commandContext) *cobra.Command {
	var jsonOut bool
	cmd := &cobra.Command{
		Use:   "add <card-folder|clip>...",
		Short: "Queue card folders or single clips on the daemon",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				responses := make([]*ipc.SubmitResponse, 0, len(args))
				for _, arg := range args {
					path, err := config.ExpandPath(arg)
					if err != nil {
						return fmt.Errorf("resolve %q: %w", arg, err)
					}
					resp, err := client.Submit(path)
					if err != nil {
						return fmt.Errorf("queue %s: %w", arg, err)
					}
					responses = append(responses, resp)
				}
				if jsonOut {
					return writeJSON(cmd, responses)
				}
				out := cmd.OutOrStdout()
				for _, resp := range responses {
					if resp.Added {
						fmt.Fprintf(out, "Queued %s (%s)\n", resp.Job.Source, clipCount(resp.Job.Estimate))
					} else {
						fmt.Fprintf(out, "Already queued: %s\n", resp.Job.Source)
					}
				}
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Print the queued jobs as JSON")
	return cmd
}

func clipCount(n int) string {
	if n == 1 {
		return "1 clip"
	}
	return fmt.Sprintf("%d clips", n)
}
