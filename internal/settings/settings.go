// Package settings resolves the per-batch conversion settings: the TOML
// configuration overlaid with preferences the operator saved.
package settings

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"mxf2proxy/internal/config"
	"mxf2proxy/internal/encoder"
	"mxf2proxy/internal/textutil"
)

// Preference keys.
const (
	KeyFormat           = "output.format"
	KeyLUTEnabled       = "lut.enabled"
	KeyLUTFile          = "lut.file"
	KeyWatermarkEnabled = "watermark.enabled"
	KeyWatermarkMode    = "watermark.mode"
	KeyCustomText       = "watermark.custom_text"
)

// Keys lists every preference key.
func Keys() []string {
	return []string{KeyFormat, KeyLUTEnabled, KeyLUTFile, KeyWatermarkEnabled, KeyWatermarkMode, KeyCustomText}
}

// Store reads and writes preferences.
type Store interface {
	Preferences(ctx context.Context) (map[string]string, error)
	SetPreference(ctx context.Context, key, value string) error
}

// Snapshot is the settings one batch runs with. It is read once at batch
// start and never changes while the batch runs.
type Snapshot struct {
	Format           encoder.Format
	LUTEnabled       bool
	LUTPath          string
	WatermarkEnabled bool
	WatermarkMode    string
	CustomText       string
	WatermarkImage   string
}

// Watermark converts the snapshot into the encoder's watermark description.
func (s Snapshot) Watermark() encoder.Watermark {
	if !s.WatermarkEnabled {
		return encoder.Watermark{Mode: encoder.WatermarkNone}
	}
	if s.WatermarkMode == config.WatermarkModeCustom {
		text := textutil.NormalizeOverlayText(s.CustomText)
		if text == "" {
			return encoder.Watermark{Mode: encoder.WatermarkNone}
		}
		return encoder.Watermark{Mode: encoder.WatermarkText, Text: text}
	}
	if s.WatermarkImage == "" {
		return encoder.Watermark{Mode: encoder.WatermarkNone}
	}
	return encoder.Watermark{Mode: encoder.WatermarkImage, ImagePath: s.WatermarkImage}
}

// LUT returns the LUT path when enabled.
func (s Snapshot) LUT() string {
	if !s.LUTEnabled {
		return ""
	}
	return s.LUTPath
}

// Resolver builds snapshots.
type Resolver struct {
	cfg   *config.Config
	store Store
}

// NewResolver returns a Resolver. store may be nil, in which case only the
// configuration is used.
func NewResolver(cfg *config.Config, store Store) *Resolver {
	return &Resolver{cfg: cfg, store: store}
}

// Snapshot reads the current settings.
func (r *Resolver) Snapshot(ctx context.Context) (Snapshot, error) {
	snap := fromConfig(r.cfg)
	if r.store == nil {
		return snap, nil
	}
	prefs, err := r.store.Preferences(ctx)
	if err != nil {
		return snap, fmt.Errorf("read preferences: %w", err)
	}
	for _, key := range sortedKeys(prefs) {
		if err := apply(&snap, r.cfg, key, prefs[key]); err != nil {
			return snap, fmt.Errorf("preference %s: %w", key, err)
		}
	}
	return snap, nil
}

// Set validates and stores one preference.
func (r *Resolver) Set(ctx context.Context, key, value string) error {
	if r.store == nil {
		return fmt.Errorf("no preference store configured")
	}
	probe := fromConfig(r.cfg)
	if err := apply(&probe, r.cfg, key, value); err != nil {
		return err
	}
	return r.store.SetPreference(ctx, key, strings.TrimSpace(value))
}

// EchoFormat writes the format and watermark mode a batch actually used
// back to the preferences, so the next session starts where this one left
// off. It is the only write the pipeline performs.
func (r *Resolver) EchoFormat(ctx context.Context, snap Snapshot) error {
	if r.store == nil {
		return nil
	}
	if err := r.store.SetPreference(ctx, KeyFormat, string(snap.Format)); err != nil {
		return err
	}
	if snap.WatermarkMode != "" {
		return r.store.SetPreference(ctx, KeyWatermarkMode, snap.WatermarkMode)
	}
	return nil
}

func fromConfig(cfg *config.Config) Snapshot {
	if cfg == nil {
		d := config.Default()
		cfg = &d
	}
	format, err := encoder.ParseFormat(cfg.Output.Format)
	if err != nil {
		format = encoder.FormatProgressive
	}
	return Snapshot{
		Format:           format,
		LUTEnabled:       cfg.LUT.Enabled,
		LUTPath:          cfg.LUTPath(),
		WatermarkEnabled: cfg.Watermark.Enabled,
		WatermarkMode:    cfg.Watermark.Mode,
		CustomText:       cfg.Watermark.CustomText,
		WatermarkImage:   cfg.Watermark.Image,
	}
}

func apply(snap *Snapshot, cfg *config.Config, key, raw string) error {
	value := strings.TrimSpace(raw)
	switch key {
	case KeyFormat:
		format, err := encoder.ParseFormat(value)
		if err != nil {
			return err
		}
		snap.Format = format
	case KeyLUTEnabled:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("want true or false, got %q", raw)
		}
		snap.LUTEnabled = b
	case KeyLUTFile:
		if value == "" || strings.HasPrefix(value, "/") || cfg == nil {
			snap.LUTPath = value
			return nil
		}
		lut := *cfg
		lut.LUT.File = value
		snap.LUTPath = lut.LUTPath()
	case KeyWatermarkEnabled:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("want true or false, got %q", raw)
		}
		snap.WatermarkEnabled = b
	case KeyWatermarkMode:
		mode := strings.ToLower(value)
		if mode != config.WatermarkModeDefault && mode != config.WatermarkModeCustom {
			return fmt.Errorf("want %q or %q, got %q", config.WatermarkModeDefault, config.WatermarkModeCustom, raw)
		}
		snap.WatermarkMode = mode
	case KeyCustomText:
		if err := config.ValidateCustomText(value); err != nil {
			return err
		}
		snap.CustomText = value
	default:
		return fmt.Errorf("unknown preference %q (known: %s)", key, strings.Join(Keys(), ", "))
	}
	return nil
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
