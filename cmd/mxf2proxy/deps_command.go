package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"mxf2proxy/internal/deps"
	"mxf2proxy/internal/history"
	"mxf2proxy/internal/preflight"
	"mxf2proxy/internal/settings"
)

func newDepsCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "deps",
		Short: "Check external binaries and configured paths",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)

			lines := renderSectionHeader("Binaries", colorize)
			missing := 0
			for _, dep := range deps.Check(cfg) {
				switch {
				case dep.Available:
					lines = append(lines, renderStatusLine(dep.Name, statusOK, dep.Command, colorize))
				case dep.Optional:
					lines = append(lines, renderStatusLine(dep.Name, statusWarn, dep.Detail, colorize))
				default:
					missing++
					lines = append(lines, renderStatusLine(dep.Name, statusError, dep.Detail, colorize))
				}
			}

			resolver := settings.NewResolver(cfg, nil)
			if store, err := history.Open(cfg); err == nil {
				defer store.Close()
				resolver = settings.NewResolver(cfg, store)
			}
			snap, err := resolver.Snapshot(cmd.Context())
			if err != nil {
				return err
			}
			lines = append(lines, "")
			lines = append(lines, renderSectionHeader("Paths and services", colorize)...)
			failed := 0
			for _, result := range preflight.RunAll(cmd.Context(), cfg, snap) {
				kind := statusOK
				if !result.Passed {
					kind = statusError
					failed++
				}
				lines = append(lines, renderStatusLine(result.Name, kind, result.Detail, colorize))
			}
			fmt.Fprintln(out, strings.Join(lines, "\n"))
			if missing > 0 || failed > 0 {
				return fmt.Errorf("%d required binaries missing, %d checks failed", missing, failed)
			}
			return nil
		},
	}
}
