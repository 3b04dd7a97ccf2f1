package main

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"mxf2proxy/internal/ipc"
	"mxf2proxy/internal/queue"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	var jsonOut bool
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show daemon, queue, and dependency status",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				status, err := client.Status()
				if err != nil {
					return err
				}
				if jsonOut {
					return writeJSON(cmd, status)
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderStatus(status, shouldColorize(cmd.OutOrStdout())))
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Print status as JSON")
	return cmd
}

func renderStatus(status *ipc.StatusResponse, colorize bool) string {
	var lines []string
	lines = append(lines, renderSectionHeader("System Status", colorize)...)
	if status.Running {
		lines = append(lines, renderStatusLine("Daemon", statusOK, fmt.Sprintf("running (pid %d)", status.PID), colorize))
	} else {
		lines = append(lines, renderStatusLine("Daemon", statusWarn, "stopped", colorize))
	}
	for _, dep := range status.Dependencies {
		kind := statusOK
		detail := dep.Command
		if !dep.Available {
			kind = statusError
			if dep.Optional {
				kind = statusWarn
			}
			detail = dep.Detail
		}
		lines = append(lines, renderStatusLine(dep.Name, kind, detail, colorize))
	}
	cardKind, cardText := statusInfo, "disabled"
	if status.CardMonitor {
		cardKind, cardText = statusOK, "watching for cards"
	}
	lines = append(lines, renderStatusLine("Card ingest", cardKind, cardText, colorize))
	lines = append(lines, renderInfoLine("Database", status.DatabasePath))

	lines = append(lines, "")
	lines = append(lines, renderSectionHeader("Queue Status", colorize)...)
	lines = append(lines, renderInfoLine("Outstanding", queue.Snapshot{Outstanding: status.Outstanding}.QueueLabel()))
	if status.Status != "" {
		lines = append(lines, renderInfoLine("Current", status.Status))
	}
	lines = append(lines, renderInfoLine("Finished batches", strconv.Itoa(status.Finished)))
	if status.Prompts > 0 {
		lines = append(lines, renderStatusLine("Prompts", statusWarn,
			fmt.Sprintf("%d waiting; run `mxf2proxy prompts`", status.Prompts), colorize))
	}

	jobs := make([]queue.Job, 0, len(status.Queued)+1)
	if status.Active != nil {
		jobs = append(jobs, *status.Active)
	}
	jobs = append(jobs, status.Queued...)
	if len(jobs) > 0 {
		rows := make([][]string, 0, len(jobs))
		for i, job := range jobs {
			state := "queued"
			if i == 0 && status.Active != nil {
				state = "active"
			}
			rows = append(rows, []string{
				state,
				filepath.Base(job.Source),
				strconv.Itoa(job.Estimate),
				job.SubmittedAt.Local().Format("15:04:05"),
				shortID(job.ID),
			})
		}
		lines = append(lines, "", renderTable(
			[]string{"State", "Source", "Clips", "Submitted", "Job"},
			rows,
			[]columnAlignment{alignLeft, alignLeft, alignRight, alignLeft, alignLeft},
		))
	}
	return strings.Join(lines, "\n")
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
