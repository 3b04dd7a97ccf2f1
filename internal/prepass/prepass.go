// Package prepass normalizes high-bit-depth QuickTime intermediates to an
// 8-bit 1080p file before the main proxy encode.
//
// The platform transcode service is reached through the Transcoder
// interface; FFmpeg is the implementation used on hosts without a native
// service, running a fixed export preset through the shared process runner.
package prepass

import (
	"context"
	"log/slog"
	"os"

	"mxf2proxy/internal/logging"
)

// Transcoder converts input into an 8-bit intermediate at output and
// reports success.
type Transcoder interface {
	Transcode(ctx context.Context, input, output, logPath string) bool
}

// ProcessRunner runs one external process and returns its exit status.
type ProcessRunner interface {
	Run(ctx context.Context, exe string, args []string, logPath string) int
}

// Preset names the fixed export quality.
const Preset = "1920x1080"

const (
	presetWidth  = 1920
	presetHeight = 1080
)

// ScaledFrame returns the frame size the export produces for a width x
// height source: fit inside the preset box, aspect kept, even dimensions.
// Unknown sizes are returned unchanged.
func ScaledFrame(width, height int) (int, int) {
	if width <= 0 || height <= 0 {
		return width, height
	}
	if width <= presetWidth && height <= presetHeight {
		return width &^ 1, height &^ 1
	}
	// Compare presetWidth/width with presetHeight/height without floats.
	if presetWidth*height <= presetHeight*width {
		return presetWidth, (height * presetWidth / width) &^ 1
	}
	return (width * presetHeight / height) &^ 1, presetHeight
}

// FFmpeg implements Transcoder with an ffmpeg export matching Preset.
type FFmpeg struct {
	Binary string
	Runner ProcessRunner
	Logger *slog.Logger
}

// Args returns the export argument list for input and output.
func (f *FFmpeg) Args(input, output string) []string {
	return []string{
		"-y",
		"-i", input,
		"-map", "0:v:0",
		"-vf", "scale=w=1920:h=1080:force_original_aspect_ratio=decrease:force_divisible_by=2,format=yuv420p",
		"-c:v", "libx264",
		"-preset", "fast",
		"-crf", "18",
		"-an",
		output,
	}
}

// Transcode runs the export. A failed or empty export is removed so that
// cleanup never leaves a half-written intermediate behind.
func (f *FFmpeg) Transcode(ctx context.Context, input, output, logPath string) bool {
	logger := logging.WithContext(ctx, logging.NewComponentLogger(f.Logger, "prepass"))
	code := f.Runner.Run(ctx, f.Binary, f.Args(input, output), logPath)
	if code != 0 {
		_ = os.Remove(output)
		logger.Warn("pre-pass export failed",
			logging.String("input", input),
			logging.Int("exit_code", code),
			logging.String(logging.FieldEventType, "prepass_failed"),
			logging.String(logging.FieldErrorHint, "see conversion_log.txt in the destination"),
			logging.String(logging.FieldImpact, "clip is marked failed"),
		)
		return false
	}
	info, err := os.Stat(output)
	if err != nil || info.Size() == 0 {
		_ = os.Remove(output)
		logger.Warn("pre-pass produced no output",
			logging.String("output", output),
			logging.String(logging.FieldEventType, "prepass_empty"),
			logging.String(logging.FieldErrorHint, "check encoder output in conversion_log.txt"),
			logging.String(logging.FieldImpact, "clip is marked failed"),
		)
		return false
	}
	logger.Debug("pre-pass complete", logging.String("output", output), logging.String("preset", Preset))
	return true
}
