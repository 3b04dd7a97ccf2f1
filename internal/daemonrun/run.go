package daemonrun

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"mxf2proxy/internal/config"
	"mxf2proxy/internal/daemon"
	"mxf2proxy/internal/ipc"
	"mxf2proxy/internal/logging"
	"mxf2proxy/internal/preflight"
	"mxf2proxy/internal/prompt"
)

// Options configures daemon process runtime behavior.
type Options struct {
	LogLevel    string
	Development bool
}

// Run starts the mxf2proxy daemon and blocks until SIGINT or SIGTERM.
func Run(cmdCtx context.Context, cfg *config.Config, opts Options) error {
	if cfg == nil {
		return fmt.Errorf("config is required")
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return fmt.Errorf("ensure directories: %w", err)
	}

	signalCtx, cancel := signal.NotifyContext(cmdCtx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	runID := time.Now().UTC().Format("20060102T150405.000Z")
	logPath := filepath.Join(cfg.Paths.LogDir, fmt.Sprintf("mxf2proxy-%s.log", runID))
	level := opts.LogLevel
	if level == "" {
		level = cfg.Logging.Level
	}
	logger, err := logging.New(logging.Options{
		Level:            level,
		Format:           cfg.Logging.Format,
		OutputPaths:      []string{"stdout"},
		ErrorOutputPaths: []string{"stderr"},
		Development:      opts.Development,
	})
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	fileLogger, err := logging.New(logging.Options{
		Level:            level,
		Format:           "json",
		OutputPaths:      []string{logPath},
		ErrorOutputPaths: []string{logPath},
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "warn: unable to open daemon log file: %v\n", err)
		logPath = ""
	} else {
		logger = logging.TeeLogger(logger, fileLogger.Handler())
	}

	if logPath != "" {
		if err := ensureCurrentLogPointer(cfg.Paths.LogDir, logPath); err != nil {
			fmt.Fprintf(os.Stderr, "warn: unable to update mxf2proxy.log link: %v\n", err)
		}
	}
	logging.CleanupOldLogs(logger, cfg.Logging.RetentionDays,
		logging.RetentionTarget{Dir: cfg.Paths.LogDir, Pattern: "mxf2proxy-*.log", Exclude: []string{logPath}},
	)
	pidPath := filepath.Join(cfg.Paths.StateDir, "mxf2proxy.pid")
	if err := writePIDFile(pidPath); err != nil {
		return fmt.Errorf("write pid file: %w", err)
	}
	defer os.Remove(pidPath)

	stack, err := NewStack(signalCtx, cfg, logger)
	if err != nil {
		logger.Error("assemble conversion stack", logging.Error(err))
		return err
	}
	defer stack.Close()

	pruneHistory(signalCtx, stack, logger)
	logDependencySnapshot(logger, stack)
	if snap, err := stack.Settings.Snapshot(signalCtx); err == nil {
		for _, failed := range preflight.Failed(preflight.RunAll(signalCtx, cfg, snap)) {
			logging.WarnWithContext(logger, "preflight check failed", "preflight_failed",
				logging.String("check", failed.Name),
				logging.String("detail", failed.Detail),
				logging.String(logging.FieldImpact, "batches relying on this may fail or skip the feature"),
			)
		}
	}

	broker := prompt.NewBroker(
		time.Duration(cfg.Prompts.AnswerTimeout)*time.Second,
		prompt.NewPolicy(cfg),
		stack.Publisher,
		logger,
	)
	d, err := daemon.New(cfg, logger, daemon.Components{
		Runner:       stack.Orchestrator(broker),
		Publisher:    stack.Publisher,
		Broker:       broker,
		History:      stack.History,
		Notifier:     stack.Notifier,
		Dependencies: stack.Dependencies,
		LogPath:      logPath,
	})
	if err != nil {
		return fmt.Errorf("create daemon: %w", err)
	}
	defer d.Close()

	if err := d.Start(signalCtx); err != nil {
		return fmt.Errorf("start daemon: %w", err)
	}

	ipcServer, err := ipc.NewServer(signalCtx, cfg.SocketPath(), d, logger)
	if err != nil {
		return fmt.Errorf("start IPC server: %w", err)
	}
	defer ipcServer.Close()
	ipcServer.Serve()

	logger.Info("mxf2proxy daemon ready",
		logging.String(logging.FieldEventType, "daemon_ready"),
		logging.String("socket", cfg.SocketPath()),
		logging.String("api_bind", cfg.Paths.APIBind),
	)

	<-signalCtx.Done()
	logger.Info("mxf2proxy daemon shutting down; waiting for the running encode")
	return nil
}

func pruneHistory(ctx context.Context, stack *Stack, logger *slog.Logger) {
	days := stack.Config.Logging.RetentionDays
	if days <= 0 {
		return
	}
	removed, err := stack.History.PruneBefore(ctx, time.Now().AddDate(0, 0, -days))
	if err != nil {
		logger.Warn("history prune failed",
			logging.Error(err),
			logging.String(logging.FieldEventType, "history_prune_failed"),
			logging.String(logging.FieldImpact, "old batches stay in the history view"),
		)
		return
	}
	if removed > 0 {
		logger.Info("pruned old batches from history", logging.Int64("removed", removed))
	}
}

func ensureCurrentLogPointer(logDir, target string) error {
	if logDir == "" || target == "" {
		return nil
	}
	current := filepath.Join(logDir, "mxf2proxy.log")
	if err := os.Remove(current); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove existing log pointer: %w", err)
	}
	if err := os.Symlink(target, current); err == nil {
		return nil
	}
	if err := os.Link(target, current); err != nil {
		return fmt.Errorf("link log pointer: %w", err)
	}
	return nil
}

func writePIDFile(path string) error {
	if path == "" {
		return nil
	}
	value := strconv.Itoa(os.Getpid()) + "\n"
	return os.WriteFile(path, []byte(value), 0o644)
}

func logDependencySnapshot(logger *slog.Logger, stack *Stack) {
	attrs := []logging.Attr{logging.String(logging.FieldEventType, "dependency_snapshot")}
	for _, dep := range stack.Dependencies {
		attrs = append(attrs,
			logging.Bool(strings.ToLower(dep.Name)+"_available", dep.Available),
			logging.String(strings.ToLower(dep.Name)+"_binary", dep.Command),
		)
	}
	logger.Info("dependency snapshot", logging.Args(attrs...)...)
}
