package daemon

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/pilebones/go-udev/netlink"

	"mxf2proxy/internal/config"
)

func cardConfig() *config.Config {
	cfg := config.Default()
	cfg.Watch.CardIngest = true
	return &cfg
}

func TestNewCardMonitor(t *testing.T) {
	t.Run("nil config returns nil", func(t *testing.T) {
		if m := newCardMonitor(nil, nil, nil); m != nil {
			t.Error("expected nil monitor for nil config")
		}
	})

	t.Run("disabled ingest returns nil", func(t *testing.T) {
		cfg := cardConfig()
		cfg.Watch.CardIngest = false
		if m := newCardMonitor(cfg, nil, nil); m != nil {
			t.Error("expected nil monitor when card ingest is off")
		}
	})

	t.Run("no clip dirs returns nil", func(t *testing.T) {
		cfg := cardConfig()
		cfg.Watch.ClipDirs = nil
		if m := newCardMonitor(cfg, nil, nil); m != nil {
			t.Error("expected nil monitor without clip dirs")
		}
	})

	t.Run("valid config creates monitor", func(t *testing.T) {
		cfg := cardConfig()
		cfg.Watch.MountWait = 0
		m := newCardMonitor(cfg, nil, nil)
		if m == nil {
			t.Fatal("expected non-nil monitor")
		}
		if m.mountWait != 30*time.Second {
			t.Errorf("expected default mount wait, got %s", m.mountWait)
		}
	})
}

func TestCardMonitorNilSafety(t *testing.T) {
	var m *cardMonitor
	if m.Running() {
		t.Error("expected Running() to return false for nil monitor")
	}
	m.Stop()
	if err := m.Start(context.Background()); err != nil {
		t.Fatalf("Start on nil monitor should return nil, got: %v", err)
	}

	unstarted := newCardMonitor(cardConfig(), nil, nil)
	unstarted.Stop()
	unstarted.Stop()
	if unstarted.Running() {
		t.Error("expected unstarted monitor to report not running")
	}
}

func TestCardMatcher(t *testing.T) {
	matcher := newCardMonitor(cardConfig(), nil, nil).buildMatcher()

	cases := []struct {
		name  string
		event netlink.UEvent
		want  bool
	}{
		{
			name:  "partition with filesystem",
			event: netlink.UEvent{Action: netlink.ADD, Env: map[string]string{"SUBSYSTEM": "block", "ID_FS_USAGE": "filesystem"}},
			want:  true,
		},
		{
			name:  "removal",
			event: netlink.UEvent{Action: netlink.REMOVE, Env: map[string]string{"SUBSYSTEM": "block", "ID_FS_USAGE": "filesystem"}},
		},
		{
			name:  "raw disk",
			event: netlink.UEvent{Action: netlink.ADD, Env: map[string]string{"SUBSYSTEM": "block"}},
		},
		{
			name:  "usb device",
			event: netlink.UEvent{Action: netlink.ADD, Env: map[string]string{"SUBSYSTEM": "usb", "ID_FS_USAGE": "filesystem"}},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := matcher.Evaluate(tc.event); got != tc.want {
				t.Fatalf("Evaluate = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestDeviceName(t *testing.T) {
	cases := []struct {
		env  map[string]string
		want string
	}{
		{map[string]string{"DEVNAME": "/dev/sdb1"}, "/dev/sdb1"},
		{map[string]string{"DEVNAME": "mmcblk0p1"}, "/dev/mmcblk0p1"},
		{map[string]string{"DEVPATH": "/devices/pci0000:00/usb1/1-1/host2/block/sdc/sdc1"}, "/dev/sdc1"},
		{map[string]string{}, ""},
	}
	for _, tc := range cases {
		if got := deviceName(netlink.UEvent{Env: tc.env}); got != tc.want {
			t.Errorf("deviceName(%v) = %q, want %q", tc.env, got, tc.want)
		}
	}
}

func TestFindMountPoint(t *testing.T) {
	table := filepath.Join(t.TempDir(), "mounts")
	content := "sysfs /sys sysfs rw 0 0\n" +
		"/dev/sdb1 /media/op/A001\\040CARD exfat rw,nosuid 0 0\n" +
		"/dev/sdc1 /mnt/c vfat rw 0 0\n"
	if err := os.WriteFile(table, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	point, ok, err := findMountPoint(table, "/dev/sdb1")
	if err != nil || !ok || point != "/media/op/A001 CARD" {
		t.Fatalf("findMountPoint = %q, %v, %v", point, ok, err)
	}
	if _, ok, _ := findMountPoint(table, "/dev/sdd1"); ok {
		t.Fatal("unexpected match for unmounted device")
	}
	if _, _, err := findMountPoint(filepath.Join(t.TempDir(), "missing"), "/dev/sdb1"); err == nil {
		t.Fatal("expected error for missing table")
	}
}

func TestIngestSubmitsClipFolders(t *testing.T) {
	mount := t.TempDir()
	for _, rel := range []string{"XDROOT/Clip", "CONTENTS/CLIP"} {
		if err := os.MkdirAll(filepath.Join(mount, filepath.FromSlash(rel)), 0o755); err != nil {
			t.Fatal(err)
		}
	}
	table := filepath.Join(t.TempDir(), "mounts")
	if err := os.WriteFile(table, []byte("/dev/sdb1 "+mount+" exfat rw 0 0\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	var mu sync.Mutex
	var submitted []string
	m := newCardMonitor(cardConfig(), nil, func(_ context.Context, dir string) error {
		mu.Lock()
		submitted = append(submitted, dir)
		mu.Unlock()
		return nil
	})
	m.mounts = table
	m.poll = 10 * time.Millisecond
	m.mountWait = time.Second

	m.handleEvent(context.Background(), make(chan struct{}), netlink.UEvent{
		Action: netlink.ADD,
		Env:    map[string]string{"DEVNAME": "/dev/sdb1", "ID_FS_LABEL": "A001"},
	})
	m.wg.Wait()

	want := []string{filepath.Join(mount, "CONTENTS", "CLIP"), filepath.Join(mount, "XDROOT", "Clip")}
	if len(submitted) != len(want) {
		t.Fatalf("submitted %v, want %v", submitted, want)
	}
	for i := range want {
		if submitted[i] != want[i] {
			t.Fatalf("submitted %v, want %v", submitted, want)
		}
	}
}

func TestIngestGivesUpWhenNeverMounted(t *testing.T) {
	table := filepath.Join(t.TempDir(), "mounts")
	if err := os.WriteFile(table, nil, 0o644); err != nil {
		t.Fatal(err)
	}
	called := false
	m := newCardMonitor(cardConfig(), nil, func(context.Context, string) error {
		called = true
		return nil
	})
	m.mounts = table
	m.poll = 5 * time.Millisecond
	m.mountWait = 30 * time.Millisecond

	m.ingest(context.Background(), make(chan struct{}), "/dev/sdz1")
	if called {
		t.Fatal("submit must not run for an unmounted card")
	}
}
