package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/gofrs/flock"

	"mxf2proxy/internal/config"
	"mxf2proxy/internal/deps"
	"mxf2proxy/internal/events"
	"mxf2proxy/internal/history"
	"mxf2proxy/internal/logging"
	"mxf2proxy/internal/notifications"
	"mxf2proxy/internal/prompt"
	"mxf2proxy/internal/queue"
	"mxf2proxy/internal/services"
)

// ErrNotRunning is returned by queue operations before Start.
var ErrNotRunning = errors.New("daemon not running")

// Components are the collaborators a Daemon coordinates.
type Components struct {
	// Runner converts batches; normally the pipeline orchestrator.
	Runner    queue.Runner
	Publisher events.Publisher
	// Broker holds prompts raised by daemon batches. Optional.
	Broker *prompt.Broker
	// History backs the history views. Optional.
	History      *history.Store
	Notifier     notifications.Service
	Dependencies []deps.Status
	// LogPath is the daemon's own log file, served by log tail requests.
	LogPath string
}

// Daemon coordinates the background processing services and enforces
// single-instance execution.
type Daemon struct {
	cfg      *config.Config
	logger   *slog.Logger
	parts    Components
	logPath  string
	lockPath string
	lock     *flock.Flock

	mu    sync.RWMutex
	queue *queue.Manager
	api   *apiServer
	cards *cardMonitor

	running atomic.Bool
	ctx     context.Context
	cancel  context.CancelFunc
}

// Status represents daemon runtime information.
type Status struct {
	Running      bool             `json:"running"`
	PID          int              `json:"pid"`
	Queue        queue.Snapshot   `json:"queue"`
	Prompts      []prompt.Pending `json:"prompts"`
	Dependencies []deps.Status    `json:"dependencies"`
	DatabasePath string           `json:"database_path"`
	LockFilePath string           `json:"lock_file_path"`
	CardMonitor  bool             `json:"card_monitor"`
}

// New constructs a daemon. The queue is created on Start.
func New(cfg *config.Config, logger *slog.Logger, parts Components) (*Daemon, error) {
	if cfg == nil || parts.Runner == nil {
		return nil, errors.New("daemon requires config and a batch runner")
	}
	if parts.Publisher == nil {
		parts.Publisher = events.Nop{}
	}
	if parts.Notifier == nil {
		parts.Notifier = notifications.NewService(cfg)
	}
	lockPath := cfg.LockPath()
	return &Daemon{
		cfg:      cfg,
		logger:   logging.NewComponentLogger(logger, "daemon"),
		parts:    parts,
		logPath:  parts.LogPath,
		lockPath: lockPath,
		lock:     flock.New(lockPath),
	}, nil
}

// Start acquires the daemon lock and launches the queue, API, and card
// monitor.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another mxf2proxy daemon instance is already running")
	}

	d.ctx, d.cancel = context.WithCancel(ctx)
	manager := queue.NewManager(d.ctx, d.parts.Runner, d.parts.Publisher, d.logger)

	api, err := newAPIServer(d.cfg, d, d.logger)
	if err != nil {
		d.abortStart()
		return fmt.Errorf("configure api: %w", err)
	}
	if err := api.start(d.ctx); err != nil {
		d.abortStart()
		return err
	}
	cards := newCardMonitor(d.cfg, d.logger, d.submitCard)
	if err := cards.Start(d.ctx); err != nil {
		api.stop()
		d.abortStart()
		return err
	}

	d.mu.Lock()
	d.queue = manager
	d.api = api
	d.cards = cards
	d.mu.Unlock()

	d.running.Store(true)
	d.logger.Info("mxf2proxy daemon started",
		logging.String(logging.FieldEventType, "daemon_started"),
		logging.String("lock", d.lockPath),
	)
	return nil
}

func (d *Daemon) abortStart() {
	d.cancel()
	d.ctx, d.cancel = nil, nil
	_ = d.lock.Unlock()
}

// Stop stops background processing and releases the daemon lock. An
// in-flight encode finishes before the queue goroutine exits.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}

	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	d.mu.Lock()
	cards, api, manager := d.cards, d.api, d.queue
	d.mu.Unlock()

	cards.Stop()
	api.stop()
	if manager != nil {
		_ = manager.Wait(context.Background())
	}
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock",
			logging.Error(err),
			logging.String(logging.FieldEventType, "lock_release_failed"),
			logging.String(logging.FieldErrorHint, "remove "+d.lockPath+" if the next start fails"),
			logging.String(logging.FieldImpact, "next daemon start may report a running instance"),
		)
	}
	d.ctx = nil
	d.running.Store(false)
	d.logger.Info("mxf2proxy daemon stopped", logging.String(logging.FieldEventType, "daemon_stopped"))
}

// Close releases resources held by the daemon.
func (d *Daemon) Close() error {
	d.Stop()
	if d.parts.History != nil {
		return d.parts.History.Close()
	}
	return nil
}

func (d *Daemon) manager() (*queue.Manager, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.queue == nil || !d.running.Load() {
		return nil, ErrNotRunning
	}
	return d.queue, nil
}

// Submit enqueues a source path.
func (d *Daemon) Submit(ctx context.Context, source string) (queue.Job, bool, error) {
	manager, err := d.manager()
	if err != nil {
		return queue.Job{}, false, err
	}
	return manager.Submit(ctx, source)
}

func (d *Daemon) submitCard(ctx context.Context, dir string) error {
	_, added, err := d.Submit(ctx, dir)
	if err != nil {
		return err
	}
	if !added {
		d.logger.Debug("card folder already queued", logging.String("source", dir))
	}
	return nil
}

// LogPath returns the daemon log file, or "" when logging to the console only.
func (d *Daemon) LogPath() string {
	return d.logPath
}

// Prompts lists questions waiting for an operator.
func (d *Daemon) Prompts() []prompt.Pending {
	if d.parts.Broker == nil {
		return nil
	}
	return d.parts.Broker.List()
}

// Answer resolves a pending prompt.
func (d *Daemon) Answer(id string, answer prompt.Answer) error {
	if d.parts.Broker == nil {
		return services.Wrap(services.ErrNotFound, "daemon", "answer prompt", "prompts are answered by policy", prompt.ErrPromptNotFound)
	}
	return d.parts.Broker.Answer(strings.TrimSpace(id), answer)
}

// History returns the most recent batches, newest first.
func (d *Daemon) History(ctx context.Context, limit int) ([]history.JobRecord, error) {
	if d.parts.History == nil {
		return nil, errors.New("history store unavailable")
	}
	return d.parts.History.RecentJobs(ctx, limit)
}

// JobClips returns the clip outcomes of one batch.
func (d *Daemon) JobClips(ctx context.Context, jobID string) (history.JobRecord, []history.ClipRecord, error) {
	if d.parts.History == nil {
		return history.JobRecord{}, nil, errors.New("history store unavailable")
	}
	job, ok, err := d.parts.History.Job(ctx, jobID)
	if err != nil {
		return history.JobRecord{}, nil, err
	}
	if !ok {
		return history.JobRecord{}, nil, services.Wrap(services.ErrNotFound, "daemon", "job clips", jobID, nil)
	}
	clips, err := d.parts.History.Clips(ctx, jobID)
	return job, clips, err
}

// TestNotification triggers a test notification using the current configuration.
func (d *Daemon) TestNotification(ctx context.Context) (bool, string, error) {
	if strings.TrimSpace(d.cfg.Notifications.NtfyTopic) == "" {
		return false, "ntfy topic not configured", nil
	}
	if err := d.parts.Notifier.TestNotification(ctx); err != nil {
		return false, "failed to send notification", err
	}
	return true, "test notification sent", nil
}

// Status returns the current daemon status.
func (d *Daemon) Status(context.Context) Status {
	status := Status{
		Running:      d.running.Load(),
		PID:          os.Getpid(),
		Prompts:      d.Prompts(),
		Dependencies: d.parts.Dependencies,
		DatabasePath: d.cfg.DatabasePath(),
		LockFilePath: d.lockPath,
	}
	d.mu.RLock()
	manager, cards := d.queue, d.cards
	d.mu.RUnlock()
	if manager != nil {
		status.Queue = manager.Snapshot()
	}
	status.CardMonitor = cards.Running()
	return status
}
