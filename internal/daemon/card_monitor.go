package daemon

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/pilebones/go-udev/netlink"

	"mxf2proxy/internal/config"
	"mxf2proxy/internal/logging"
)

const (
	procMounts        = "/proc/self/mounts"
	mountPollInterval = 500 * time.Millisecond
)

// cardMonitor listens for udev netlink events and queues the clip folders of
// camera cards once the desktop has mounted them.
type cardMonitor struct {
	logger    *slog.Logger
	submit    func(ctx context.Context, dir string) error
	clipDirs  []string
	mountWait time.Duration
	mounts    string
	poll      time.Duration

	mu      sync.Mutex
	conn    *netlink.UEventConn
	quit    chan struct{}
	running bool
	wg      sync.WaitGroup
}

// newCardMonitor returns nil when card ingest is disabled.
func newCardMonitor(cfg *config.Config, logger *slog.Logger, submit func(ctx context.Context, dir string) error) *cardMonitor {
	if cfg == nil || !cfg.Watch.CardIngest || len(cfg.Watch.ClipDirs) == 0 {
		return nil
	}
	wait := time.Duration(cfg.Watch.MountWait) * time.Second
	if wait <= 0 {
		wait = 30 * time.Second
	}
	return &cardMonitor{
		logger:    logging.NewComponentLogger(logger, "card-monitor"),
		submit:    submit,
		clipDirs:  append([]string(nil), cfg.Watch.ClipDirs...),
		mountWait: wait,
		mounts:    procMounts,
		poll:      mountPollInterval,
	}
}

// Start begins listening for udev netlink events. A socket failure is
// logged and leaves manual submission as the only ingest path.
func (m *cardMonitor) Start(ctx context.Context) error {
	if m == nil {
		return nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.running {
		return nil
	}

	conn := new(netlink.UEventConn)
	if err := conn.Connect(netlink.UdevEvent); err != nil {
		m.logger.Warn("failed to connect to netlink socket; cards must be queued manually",
			logging.Error(err),
			logging.String(logging.FieldEventType, "netlink_connect_failed"),
			logging.String(logging.FieldErrorHint, "ensure the daemon has permission to access netlink sockets"),
			logging.String(logging.FieldImpact, "automatic card ingest unavailable"),
		)
		return nil
	}

	m.conn = conn
	m.quit = make(chan struct{})
	m.running = true

	quit := m.quit
	go m.monitorLoop(ctx, conn, quit)

	m.logger.Info("card monitor started",
		logging.String(logging.FieldEventType, "card_monitor_started"),
		logging.String("clip_dirs", strings.Join(m.clipDirs, ",")),
	)
	return nil
}

// Stop shuts down the monitor and waits for in-flight ingests.
func (m *cardMonitor) Stop() {
	if m == nil {
		return
	}

	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	if m.quit != nil {
		close(m.quit)
		m.quit = nil
	}
	if m.conn != nil {
		_ = m.conn.Close()
		m.conn = nil
	}
	m.running = false
	m.mu.Unlock()

	m.wg.Wait()
	m.logger.Info("card monitor stopped", logging.String(logging.FieldEventType, "card_monitor_stopped"))
}

// Running reports whether the monitor is active.
func (m *cardMonitor) Running() bool {
	if m == nil {
		return false
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.running
}

func (m *cardMonitor) monitorLoop(ctx context.Context, conn *netlink.UEventConn, quit <-chan struct{}) {
	queue := make(chan netlink.UEvent)
	errs := make(chan error)
	monitorQuit := conn.Monitor(queue, errs, m.buildMatcher())

	for {
		select {
		case <-ctx.Done():
			close(monitorQuit)
			return
		case <-quit:
			close(monitorQuit)
			return
		case uevent := <-queue:
			m.handleEvent(ctx, quit, uevent)
		case err := <-errs:
			m.logger.Warn("netlink monitor error",
				logging.Error(err),
				logging.String(logging.FieldEventType, "netlink_monitor_error"),
				logging.String(logging.FieldErrorHint, "check kernel netlink subsystem"),
				logging.String(logging.FieldImpact, "card ingest may miss insertions"),
			)
		}
	}
}

// buildMatcher matches new block devices that carry a filesystem.
func (m *cardMonitor) buildMatcher() netlink.Matcher {
	action := "add"
	rules := &netlink.RuleDefinitions{}
	rules.AddRule(netlink.RuleDefinition{
		Action: &action,
		Env: map[string]string{
			"SUBSYSTEM":   "block",
			"ID_FS_USAGE": "filesystem",
		},
	})
	return rules
}

func (m *cardMonitor) handleEvent(ctx context.Context, quit <-chan struct{}, uevent netlink.UEvent) {
	device := deviceName(uevent)
	if device == "" {
		m.logger.Debug("ignoring event without device name", logging.String("kobj", uevent.KObj))
		return
	}
	m.logger.Info("card inserted",
		logging.String(logging.FieldEventType, "card_detected"),
		logging.String("device", device),
		logging.String("label", uevent.Env["ID_FS_LABEL"]),
	)
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		m.ingest(ctx, quit, device)
	}()
}

// ingest waits for device to be mounted and submits its clip folders.
func (m *cardMonitor) ingest(ctx context.Context, quit <-chan struct{}, device string) {
	mountPoint, ok := m.waitForMount(ctx, quit, device)
	if !ok {
		m.logger.Info("card not mounted; skipping",
			logging.String(logging.FieldEventType, "card_not_mounted"),
			logging.String("device", device),
			logging.Duration("waited", m.mountWait),
		)
		return
	}
	folders := clipFolders(mountPoint, m.clipDirs)
	if len(folders) == 0 {
		m.logger.Debug("no clip folders on card", logging.String("mount_point", mountPoint))
		return
	}
	for _, dir := range folders {
		if err := m.submit(ctx, dir); err != nil {
			logging.WarnWithContext(m.logger, "card folder not queued", "card_submit_failed",
				logging.String("source", dir),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "queue the folder with mxf2proxy add"),
				logging.String(logging.FieldImpact, "card clips are not converted"),
			)
			continue
		}
		m.logger.Info("card folder queued",
			logging.String(logging.FieldEventType, "card_queued"),
			logging.String("source", dir),
		)
	}
}

func (m *cardMonitor) waitForMount(ctx context.Context, quit <-chan struct{}, device string) (string, bool) {
	deadline := time.NewTimer(m.mountWait)
	defer deadline.Stop()
	ticker := time.NewTicker(m.poll)
	defer ticker.Stop()
	for {
		if point, ok, err := findMountPoint(m.mounts, device); err != nil {
			m.logger.Debug("mount table unreadable", logging.String("path", m.mounts), logging.Error(err))
		} else if ok {
			return point, true
		}
		select {
		case <-ctx.Done():
			return "", false
		case <-quit:
			return "", false
		case <-deadline.C:
			return "", false
		case <-ticker.C:
		}
	}
}

// deviceName gets the device node from a uevent.
func deviceName(uevent netlink.UEvent) string {
	name := uevent.Env["DEVNAME"]
	if name == "" {
		devpath := uevent.Env["DEVPATH"]
		if devpath == "" {
			return ""
		}
		name = filepath.Base(devpath)
	}
	if !strings.HasPrefix(name, "/") {
		name = "/dev/" + name
	}
	return name
}

// clipFolders returns the configured clip directories that exist under
// mountPoint, in configuration order.
func clipFolders(mountPoint string, clipDirs []string) []string {
	var out []string
	seen := make(map[string]struct{})
	for _, rel := range clipDirs {
		rel = strings.Trim(strings.TrimSpace(rel), "/")
		if rel == "" {
			continue
		}
		dir := filepath.Join(mountPoint, filepath.FromSlash(rel))
		if _, dup := seen[dir]; dup {
			continue
		}
		if info, err := os.Stat(dir); err == nil && info.IsDir() {
			seen[dir] = struct{}{}
			out = append(out, dir)
		}
	}
	return out
}
