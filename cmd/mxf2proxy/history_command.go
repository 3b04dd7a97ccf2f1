package main

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"mxf2proxy/internal/history"
	"mxf2proxy/internal/ipc"
)

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var limit int
	var jsonOut bool
	cmd := &cobra.Command{
		Use:   "history [job-id]",
		Short: "List recent batches, or the clips of one batch",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				out := cmd.OutOrStdout()
				if len(args) == 1 {
					resp, err := client.JobClips(resolveJobID(client, args[0]))
					if err != nil {
						return err
					}
					if jsonOut {
						return writeJSON(cmd, resp)
					}
					fmt.Fprintln(out, renderJobClips(resp.Job, resp.Clips))
					return nil
				}
				resp, err := client.History(limit)
				if err != nil {
					return err
				}
				if jsonOut {
					return writeJSON(cmd, resp.Jobs)
				}
				if len(resp.Jobs) == 0 {
					fmt.Fprintln(out, "No batches recorded yet")
					return nil
				}
				fmt.Fprintln(out, renderJobs(resp.Jobs))
				return nil
			})
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Number of batches to list")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Print as JSON")
	return cmd
}

// resolveJobID expands a short job ID prefix from the recent history.
func resolveJobID(client *ipc.Client, id string) string {
	id = strings.TrimSpace(id)
	resp, err := client.History(100)
	if err != nil {
		return id
	}
	match := ""
	for _, job := range resp.Jobs {
		if strings.HasPrefix(job.ID, id) {
			if match != "" {
				return id
			}
			match = job.ID
		}
	}
	if match == "" {
		return id
	}
	return match
}

func renderJobs(jobs []history.JobRecord) string {
	rows := make([][]string, 0, len(jobs))
	for _, job := range jobs {
		rows = append(rows, []string{
			shortID(job.ID),
			job.StartedAt.Local().Format("2006-01-02 15:04"),
			filepath.Base(job.Source),
			job.Status,
			fmt.Sprintf("%d/%d", job.Succeeded, job.ClipsTotal),
			strconv.Itoa(job.Failed),
			strconv.Itoa(job.Skipped),
			jobDuration(job),
		})
	}
	return renderTable(
		[]string{"Job", "Started", "Source", "Status", "Converted", "Failed", "Skipped", "Took"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignRight, alignRight, alignRight, alignRight},
	)
}

func jobDuration(job history.JobRecord) string {
	if job.FinishedAt.IsZero() {
		return "-"
	}
	return job.FinishedAt.Sub(job.StartedAt).Round(time.Second).String()
}

func renderJobClips(job history.JobRecord, clips []history.ClipRecord) string {
	var b strings.Builder
	fmt.Fprintln(&b, renderInfoLine("Job", job.ID))
	fmt.Fprintln(&b, renderInfoLine("Source", job.Source))
	if job.Destination != "" {
		fmt.Fprintln(&b, renderInfoLine("Destination", job.Destination))
	}
	fmt.Fprintln(&b, renderInfoLine("Status", job.Status))
	if job.Message != "" {
		fmt.Fprintln(&b, renderInfoLine("Message", job.Message))
	}
	rows := make([][]string, 0, len(clips))
	for _, clip := range clips {
		rows = append(rows, []string{
			strconv.Itoa(clip.Index),
			filepath.Base(clip.Source),
			clip.Outcome,
			strconv.Itoa(clip.ExitCode),
			filepath.Base(clip.Output),
		})
	}
	b.WriteString(renderTable(
		[]string{"#", "Clip", "Outcome", "Exit", "Output"},
		rows,
		[]columnAlignment{alignRight, alignLeft, alignLeft, alignRight, alignLeft},
	))
	return b.String()
}
