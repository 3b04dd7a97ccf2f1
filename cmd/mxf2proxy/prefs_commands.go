package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"mxf2proxy/internal/config"
	"mxf2proxy/internal/history"
	"mxf2proxy/internal/settings"
)

func newPrefsCommand(ctx *commandContext) *cobra.Command {
	prefsCmd := &cobra.Command{
		Use:   "prefs",
		Short: "Show or change saved conversion preferences",
		Long: "Preferences override the configuration file for the next batch: output format, " +
			"LUT, and watermark settings. Keys: " + strings.Join(settings.Keys(), ", ") + ".",
	}
	prefsCmd.AddCommand(newPrefsShowCommand(ctx))
	prefsCmd.AddCommand(newPrefsSetCommand(ctx))
	return prefsCmd
}

func openResolver(ctx *commandContext) (*settings.Resolver, *history.Store, error) {
	cfg, err := ctx.ensureConfig()
	if err != nil {
		return nil, nil, err
	}
	store, err := history.Open(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("open preferences: %w", err)
	}
	return settings.NewResolver(cfg, store), store, nil
}

func newPrefsShowCommand(ctx *commandContext) *cobra.Command {
	var jsonOut bool
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show the settings the next batch will use",
		RunE: func(cmd *cobra.Command, _ []string) error {
			resolver, store, err := openResolver(ctx)
			if err != nil {
				return err
			}
			defer store.Close()
			snap, err := resolver.Snapshot(cmd.Context())
			if err != nil {
				return err
			}
			if jsonOut {
				return writeJSON(cmd, snap)
			}
			rows := [][]string{
				{settings.KeyFormat, string(snap.Format)},
				{settings.KeyLUTEnabled, strconv.FormatBool(snap.LUTEnabled)},
				{settings.KeyLUTFile, snap.LUTPath},
				{settings.KeyWatermarkEnabled, strconv.FormatBool(snap.WatermarkEnabled)},
				{settings.KeyWatermarkMode, snap.WatermarkMode},
				{settings.KeyCustomText, snap.CustomText},
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"Preference", "Value"}, rows, nil))
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Print as JSON")
	return cmd
}

func newPrefsSetCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Save a preference",
		Long: fmt.Sprintf("Save a preference for future batches. %s is limited to %d characters.",
			settings.KeyCustomText, config.MaxCustomTextLength),
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			resolver, store, err := openResolver(ctx)
			if err != nil {
				return err
			}
			defer store.Close()
			key := strings.ToLower(strings.TrimSpace(args[0]))
			value := strings.Join(args[1:], " ")
			if err := resolver.Set(cmd.Context(), key, value); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s = %s\n", key, strings.TrimSpace(value))
			return nil
		},
	}
}
