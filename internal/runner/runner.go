// Package runner launches external encoder processes with their combined
// output appended to a batch log file.
package runner

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"time"

	"mxf2proxy/internal/logging"
)

// ExitLaunchFailure is reported when the executable could not be started.
const ExitLaunchFailure = -1

// Exec runs processes with os/exec. Processes are not bound to a context:
// once started, an encode runs until it exits on its own.
type Exec struct {
	logger *slog.Logger
}

// New returns an Exec runner.
func New(logger *slog.Logger) *Exec {
	return &Exec{logger: logging.NewComponentLogger(logger, "runner")}
}

// Run starts exe with args, appends stdout and stderr to logPath, and blocks
// until the process exits. It returns the exit code, or ExitLaunchFailure
// when the process never started.
func (r *Exec) Run(ctx context.Context, exe string, args []string, logPath string) int {
	logger := logging.WithContext(ctx, r.logger)

	var out io.Writer = io.Discard
	if logPath != "" {
		file, err := os.OpenFile(logPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
		if err != nil {
			logging.WarnWithContext(logger, "conversion log unavailable; discarding encoder output", "runner_log_open_failed",
				logging.String("log_path", logPath),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check destination directory permissions"),
				logging.String(logging.FieldImpact, "encoder diagnostics will not be recorded"),
			)
		} else {
			defer file.Close()
			out = file
		}
	}

	if exe == "" {
		logger.Error("encoder executable not resolved", logging.String(logging.FieldEventType, "runner_launch_failed"))
		return ExitLaunchFailure
	}

	cmd := exec.Command(exe, args...) //nolint:gosec // argv comes from the encoder builder
	cmd.Stdout = out
	cmd.Stderr = out

	start := time.Now()
	if err := cmd.Start(); err != nil {
		logging.ErrorWithContext(logger, "encoder launch failed", "runner_launch_failed",
			logging.String("executable", exe),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "install ffmpeg or set encoder.ffmpeg_binary"),
		)
		return ExitLaunchFailure
	}
	logger.Debug("encoder started",
		logging.String("executable", exe),
		logging.Int("pid", cmd.Process.Pid),
		logging.Int("arg_count", len(args)),
	)

	code := 0
	if err := cmd.Wait(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			code = exitErr.ExitCode()
		} else {
			code = ExitLaunchFailure
		}
	}
	logger.Debug("encoder exited",
		logging.Int("exit_code", code),
		logging.Duration("elapsed", time.Since(start)),
	)
	return code
}
