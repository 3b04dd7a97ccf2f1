package preflight

import (
	"context"

	"mxf2proxy/internal/config"
	"mxf2proxy/internal/settings"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// RunAll executes all applicable preflight checks. snap carries the
// effective preferences; LUT and watermark checks follow it rather than the
// raw config.
func RunAll(ctx context.Context, cfg *config.Config, snap settings.Snapshot) []Result {
	if cfg == nil {
		return nil
	}

	results := []Result{
		CheckDirectoryAccess("State directory", cfg.Paths.StateDir),
		CheckDirectoryAccess("Log directory", cfg.Paths.LogDir),
	}

	if cfg.Prompts.Destination == config.DestinationFixed {
		results = append(results, CheckDirectoryAccess("Destination directory", cfg.Prompts.DestinationDir))
	}

	if lut := snap.LUT(); lut != "" {
		results = append(results, CheckFileReadable("LUT", lut))
	}

	if snap.WatermarkEnabled {
		switch snap.WatermarkMode {
		case config.WatermarkModeCustom:
			if cfg.Encoder.FontFile != "" {
				results = append(results, CheckFileReadable("Watermark font", cfg.Encoder.FontFile))
			}
		default:
			if snap.WatermarkImage != "" {
				results = append(results, CheckFileReadable("Watermark image", snap.WatermarkImage))
			}
		}
	}

	if cfg.Events.RedisAddr != "" {
		results = append(results, CheckRedis(ctx, cfg.Events))
	}

	return results
}

// Failed filters results down to failures.
func Failed(results []Result) []Result {
	var failed []Result
	for _, r := range results {
		if !r.Passed {
			failed = append(failed, r)
		}
	}
	return failed
}
