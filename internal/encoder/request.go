package encoder

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Format selects the proxy container.
type Format string

const (
	// FormatProgressive is an H.264 QuickTime proxy.
	FormatProgressive Format = "mov"
	// FormatBroadcast is an MXF proxy produced by re-encoding video and
	// remuxing it with the source's untouched tracks.
	FormatBroadcast Format = "mxf"
)

// ParseFormat maps a config or preference value onto a Format.
func ParseFormat(value string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(value))) {
	case FormatProgressive, "quicktime", "progressive":
		return FormatProgressive, nil
	case FormatBroadcast, "broadcast":
		return FormatBroadcast, nil
	}
	return "", fmt.Errorf("unknown output format %q", value)
}

// Extension returns the output file extension including the dot.
func (f Format) Extension() string {
	return "." + string(f)
}

// WatermarkMode selects the watermark compositing branch.
type WatermarkMode string

const (
	WatermarkNone  WatermarkMode = "none"
	WatermarkImage WatermarkMode = "image"
	WatermarkText  WatermarkMode = "text"
)

// Watermark describes the enabled watermark, if any.
type Watermark struct {
	Mode      WatermarkMode
	ImagePath string
	Text      string
}

// Enabled reports whether a watermark stage will be emitted.
func (w Watermark) Enabled() bool {
	switch w.Mode {
	case WatermarkImage:
		return w.ImagePath != ""
	case WatermarkText:
		return w.Text != ""
	}
	return false
}

// Choice is the encoder path picked from the probed frame width.
type Choice string

const (
	Hardware Choice = "hardware"
	Software Choice = "software"
)

// DefaultWidthThreshold is the frame width at and above which the software
// encoder is used.
const DefaultWidthThreshold = 4096

// ChooseEncoder picks the hardware path for frames narrower than threshold.
// An unknown width (zero) or an unconfigured hardware codec selects software.
func ChooseEncoder(width, threshold int, hardwareCodec string) Choice {
	if threshold <= 0 {
		threshold = DefaultWidthThreshold
	}
	if strings.TrimSpace(hardwareCodec) == "" || width <= 0 || width >= threshold {
		return Software
	}
	return Hardware
}

// Request is the immutable description of one clip conversion.
type Request struct {
	Source    string
	Output    string
	Format    Format
	LUTPath   string
	Watermark Watermark
	Encoder   Choice
	// Height is the frame height of the video the filter graph receives.
	Height int
	// Force prefixes the invocation with ffmpeg's clobber flag.
	Force bool
}

// WithForce returns a copy of the request with Force set.
func (r Request) WithForce() Request {
	r.Force = true
	return r
}

// OutputPath names the proxy for source inside destDir by swapping the
// source extension for the format's.
func OutputPath(destDir, source string, format Format) string {
	return filepath.Join(destDir, stem(source)+format.Extension())
}

// PrepassPath names the 8-bit intermediate written next to the proxy.
func PrepassPath(output, source string) string {
	return filepath.Join(filepath.Dir(output), stem(source)+"_8bit.mov")
}

// RemuxTempPath names the hidden silent-video intermediate of a broadcast
// conversion.
func RemuxTempPath(output, source string) string {
	return filepath.Join(filepath.Dir(output), "."+stem(source)+"_temp.mov")
}

// NeedsPrepass reports whether source must be normalized to 8-bit before the
// main encode. Only QuickTime sources bound for a progressive proxy qualify.
func NeedsPrepass(source string, format Format) bool {
	return format == FormatProgressive && strings.EqualFold(filepath.Ext(source), ".mov")
}

func stem(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
