package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"mxf2proxy/internal/events"
)

func newEventsCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool
	var count int
	cmd := &cobra.Command{
		Use:   "events",
		Short: "Follow progress events the daemon publishes to redis",
		Long: "Subscribe to events.channel on events.redis_addr and print each event as it " +
			"arrives. Runs until interrupted, or until --count events were printed.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if cfg.Events.RedisAddr == "" {
				return errors.New("events.redis_addr is not set; the daemon publishes events to redis only when it is configured")
			}
			runCtx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			stream, err := events.SubscribeRedis(runCtx, events.RedisOptions{
				Addr:     cfg.Events.RedisAddr,
				Password: cfg.Events.RedisPassword,
				DB:       cfg.Events.RedisDB,
				Channel:  cfg.Events.Channel,
			})
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			enc := json.NewEncoder(out)
			printed := 0
			for event := range stream {
				if asJSON {
					if err := enc.Encode(event); err != nil {
						return err
					}
				} else {
					fmt.Fprintln(out, formatEvent(event))
				}
				printed++
				if count > 0 && printed >= count {
					return nil
				}
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print one JSON object per event")
	cmd.Flags().IntVarP(&count, "count", "n", 0, "Exit after this many events (0 follows until interrupted)")
	return cmd
}

// formatEvent renders one event as "15:04:05 kind  detail".
func formatEvent(e events.Event) string {
	var detail string
	switch e.Kind {
	case events.KindJobQueued:
		detail = fmt.Sprintf("%s (%d clips, %d outstanding)", e.Source, e.Clips, e.Outstanding)
	case events.KindBatchStarted:
		detail = e.Source
		if e.Destination != "" {
			detail += " -> " + e.Destination
		}
	case events.KindClipFinished:
		detail = fmt.Sprintf("#%d %s %s", e.ClipIndex, filepath.Base(e.Clip), e.Outcome)
		if e.ExitCode != 0 {
			detail += fmt.Sprintf(" (exit %d)", e.ExitCode)
		}
	case events.KindBatchFinished:
		detail = fmt.Sprintf("%s converted=%d failed=%d skipped=%d", e.Source, e.Succeeded, e.Failed, e.Skipped)
	case events.KindOutstanding:
		detail = fmt.Sprintf("items in queue: %d", e.Outstanding)
	case events.KindStatus:
		detail = e.Status
	case events.KindPromptOpened, events.KindPromptClosed:
		detail = strings.TrimSpace(e.PromptID + " " + e.Message)
	default:
		detail = e.Message
	}
	if e.JobID != "" && e.Kind != events.KindOutstanding {
		detail = "[" + e.JobID + "] " + detail
	}
	return fmt.Sprintf("%s %-14s %s", e.Time.Local().Format("15:04:05"), e.Kind, detail)
}
