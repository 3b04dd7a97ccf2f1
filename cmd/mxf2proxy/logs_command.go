package main

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"mxf2proxy/internal/ipc"
	"mxf2proxy/internal/logs"
	"mxf2proxy/internal/pipeline"
)

func newLogsCommand(ctx *commandContext) *cobra.Command {
	var lines int
	var follow bool
	var jobID string
	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Show the daemon log, or a batch's conversion log with --job",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				out := cmd.OutOrStdout()
				if jobID != "" {
					resp, err := client.JobClips(resolveJobID(client, jobID))
					if err != nil {
						return err
					}
					if resp.Job.Destination == "" {
						return errors.New("batch has no destination; it ended before choosing one")
					}
					path := filepath.Join(resp.Job.Destination, pipeline.LogFileName)
					return followFile(cmd, out, path, lines, follow)
				}
				return followDaemon(cmd, out, client, lines, follow)
			})
		},
	}
	cmd.Flags().IntVarP(&lines, "lines", "n", 50, "Number of trailing lines to show")
	cmd.Flags().BoolVarP(&follow, "follow", "f", false, "Keep printing new lines")
	cmd.Flags().StringVar(&jobID, "job", "", "Show conversion_log.txt of this batch")
	return cmd
}

func followDaemon(cmd *cobra.Command, out io.Writer, client *ipc.Client, lines int, follow bool) error {
	req := ipc.LogTailRequest{Offset: -1, Limit: lines}
	for {
		resp, err := client.LogTail(req)
		if err != nil {
			return err
		}
		for _, line := range resp.Lines {
			fmt.Fprintln(out, line)
		}
		if !follow || cmd.Context().Err() != nil {
			return nil
		}
		req = ipc.LogTailRequest{Offset: resp.Offset, Follow: true, WaitMillis: 2000}
	}
}

func followFile(cmd *cobra.Command, out io.Writer, path string, lines int, follow bool) error {
	opts := logs.TailOptions{Offset: -1, Limit: lines}
	for {
		result, err := logs.Tail(cmd.Context(), path, opts)
		if err != nil {
			if cmd.Context().Err() != nil {
				return nil
			}
			return err
		}
		for _, line := range result.Lines {
			fmt.Fprintln(out, line)
		}
		if !follow {
			return nil
		}
		opts = logs.TailOptions{Offset: result.Offset, Follow: true, Wait: 2 * time.Second}
	}
}
