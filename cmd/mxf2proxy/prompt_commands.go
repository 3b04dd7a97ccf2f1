package main

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"mxf2proxy/internal/config"
	"mxf2proxy/internal/ipc"
	"mxf2proxy/internal/prompt"
)

func newPromptsCommand(ctx *commandContext) *cobra.Command {
	var jsonOut bool
	cmd := &cobra.Command{
		Use:   "prompts",
		Short: "List destination and duplicate questions waiting for an answer",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.Prompts()
				if err != nil {
					return err
				}
				if jsonOut {
					return writeJSON(cmd, resp.Prompts)
				}
				out := cmd.OutOrStdout()
				if len(resp.Prompts) == 0 {
					fmt.Fprintln(out, "No prompts waiting")
					return nil
				}
				fmt.Fprintln(out, renderPrompts(resp.Prompts, time.Now()))
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Print prompts as JSON")
	return cmd
}

func renderPrompts(pending []prompt.Pending, now time.Time) string {
	rows := make([][]string, 0, len(pending))
	for _, p := range pending {
		var question, choices string
		switch p.Kind {
		case prompt.KindDuplicate:
			question = fmt.Sprintf("%s exists (clip %d of %d)", filepath.Base(p.Output), p.ClipIndex+1, p.ClipCount)
			choices = "overwrite, skip, overwrite-all, skip-all, cancel"
		default:
			question = fmt.Sprintf("destination for %s [%s]", filepath.Base(p.Source), p.Default)
			choices = "default, custom <dir>, cancel"
		}
		rows = append(rows, []string{
			p.ID,
			string(p.Kind),
			question,
			choices,
			now.Sub(p.Created).Round(time.Second).String(),
		})
	}
	return renderTable(
		[]string{"ID", "Kind", "Question", "Answers", "Waiting"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignRight},
	)
}

func newAnswerCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "answer <prompt-id> <answer> [dir]",
		Short: "Answer a pending prompt",
		Long: "Duplicate prompts take overwrite, skip, overwrite-all, skip-all, or cancel. " +
			"Destination prompts take default, cancel, or custom followed by a directory.",
		Args: cobra.RangeArgs(2, 3),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				list, err := client.Prompts()
				if err != nil {
					return err
				}
				id := strings.TrimSpace(args[0])
				var kind prompt.Kind
				for _, p := range list.Prompts {
					if p.ID == id {
						kind = p.Kind
					}
				}
				if kind == "" {
					return fmt.Errorf("no pending prompt %s", id)
				}
				answer, err := buildAnswer(kind, args[1:])
				if err != nil {
					return err
				}
				if _, err := client.Answer(ipc.AnswerRequest{ID: id, Answer: answer}); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Answered %s: %s\n", id, strings.Join(args[1:], " "))
				return nil
			})
		},
	}
}

func buildAnswer(kind prompt.Kind, args []string) (prompt.Answer, error) {
	if kind == prompt.KindDuplicate {
		if len(args) != 1 {
			return prompt.Answer{}, fmt.Errorf("duplicate prompts take a single verdict")
		}
		verdict, err := prompt.ParseVerdict(args[0])
		if err != nil {
			return prompt.Answer{}, err
		}
		return prompt.Answer{Verdict: verdict}, nil
	}

	choice := prompt.DestinationKind(strings.ToLower(strings.TrimSpace(args[0])))
	switch choice {
	case prompt.DestinationDefault, prompt.DestinationCancel:
		return prompt.Answer{Destination: choice}, nil
	case prompt.DestinationCustom:
		if len(args) < 2 {
			return prompt.Answer{}, fmt.Errorf("custom destination requires a directory")
		}
		dir, err := config.ExpandPath(args[1])
		if err != nil {
			return prompt.Answer{}, err
		}
		abs, err := filepath.Abs(dir)
		if err != nil {
			return prompt.Answer{}, err
		}
		return prompt.Answer{Destination: choice, Path: abs}, nil
	}
	return prompt.Answer{}, fmt.Errorf("unknown destination answer %s (want default, custom, cancel)", strconv.Quote(args[0]))
}
