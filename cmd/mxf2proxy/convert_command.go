package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"sync"
	"syscall"

	"github.com/spf13/cobra"

	"mxf2proxy/internal/config"
	"mxf2proxy/internal/daemonrun"
	"mxf2proxy/internal/logging"
	"mxf2proxy/internal/pipeline"
	"mxf2proxy/internal/prompt"
	"mxf2proxy/internal/queue"
)

func newConvertCommand(ctx *commandContext) *cobra.Command {
	var nonInteractive bool
	cmd := &cobra.Command{
		Use:   "convert <card-folder|clip>...",
		Short: "Convert sources in the foreground without a daemon",
		Long: "Queue the given sources and convert them one batch at a time. On a terminal, " +
			"destination and duplicate questions are asked interactively; otherwise the " +
			"prompts section of the configuration answers them.",
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			sources, err := resolveSources(args)
			if err != nil {
				return err
			}
			runCtx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			logger, err := logging.NewFromConfig(cfg)
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}
			stack, err := daemonrun.NewStack(runCtx, cfg, logger)
			if err != nil {
				return err
			}
			defer stack.Close()

			var prompter prompt.Prompter = prompt.NewPolicy(cfg)
			if !nonInteractive && isInteractive(cmd.InOrStdin(), cmd.OutOrStdout()) {
				prompter = &prompt.Terminal{In: cmd.InOrStdin(), Out: cmd.OutOrStdout()}
			}

			var (
				mu      sync.Mutex
				results []pipeline.Result
			)
			manager := queue.NewManager(runCtx, stack.Orchestrator(prompter), stack.Publisher, logger,
				queue.WithResultHook(func(r pipeline.Result) {
					mu.Lock()
					results = append(results, r)
					mu.Unlock()
				}))

			var submitErr error
			for _, path := range sources {
				if _, _, err := manager.Submit(runCtx, path); err != nil {
					submitErr = fmt.Errorf("queue %s: %w", path, err)
					break
				}
			}
			// Batches already queued still finish before the command returns.
			if err := manager.Wait(context.WithoutCancel(runCtx)); err != nil {
				return err
			}
			if submitErr != nil {
				return submitErr
			}

			mu.Lock()
			defer mu.Unlock()
			fmt.Fprintln(cmd.OutOrStdout(), renderResults(results))
			for _, r := range results {
				if r.Status == pipeline.BatchAborted || r.Failed > 0 {
					return errors.New("one or more clips failed; see conversion_log.txt in the destination")
				}
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&nonInteractive, "non-interactive", false, "Answer prompts from configuration even on a terminal")
	return cmd
}

// resolveSources checks every argument before anything is queued so a bad
// path fails the command without starting a partial run.
func resolveSources(args []string) ([]string, error) {
	sources := make([]string, 0, len(args))
	var errs []error
	for _, arg := range args {
		expanded, err := config.ExpandPath(arg)
		if err != nil {
			errs = append(errs, fmt.Errorf("resolve %q: %w", arg, err))
			continue
		}
		path, err := queue.Canonicalize(expanded)
		if err != nil {
			errs = append(errs, fmt.Errorf("resolve %q: %w", arg, err))
			continue
		}
		if _, err := os.Stat(path); err != nil {
			errs = append(errs, fmt.Errorf("source %s: %w", arg, err))
			continue
		}
		sources = append(sources, path)
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return sources, nil
}

func renderResults(results []pipeline.Result) string {
	rows := make([][]string, 0, len(results))
	var ok, failed, skipped int
	for _, r := range results {
		rows = append(rows, []string{
			filepath.Base(r.Source),
			string(r.Status),
			strconv.Itoa(r.Succeeded),
			strconv.Itoa(r.Failed),
			strconv.Itoa(r.Skipped),
			r.Destination,
		})
		ok += r.Succeeded
		failed += r.Failed
		skipped += r.Skipped
	}
	return renderTable(
		[]string{"Source", "Status", "Converted", "Failed", "Skipped", "Destination"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignRight, alignRight, alignRight, alignLeft},
		"Total", "", strconv.Itoa(ok), strconv.Itoa(failed), strconv.Itoa(skipped), "",
	)
}
