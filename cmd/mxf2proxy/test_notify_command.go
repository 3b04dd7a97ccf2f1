package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"mxf2proxy/internal/ipc"
)

func newTestNotifyCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "test-notify",
		Short: "Ask the daemon to send a test message to the ntfy topic",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.TestNotification()
				if err != nil {
					return fmt.Errorf("test notification: %w", err)
				}
				if asJSON {
					return writeJSON(cmd, resp)
				}
				kind := statusOK
				if !resp.Sent {
					kind = statusWarn
				}
				out := cmd.OutOrStdout()
				fmt.Fprintln(out, renderStatusLine("Notification", kind, resp.Message, shouldColorize(out)))
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the daemon response as JSON")
	return cmd
}
