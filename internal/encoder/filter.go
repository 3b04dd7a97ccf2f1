package encoder

import (
	"strconv"
	"strings"

	"mxf2proxy/internal/textutil"
)

const (
	overlayBaseChain = "scale=-1:-1:flags=bicubic:out_color_matrix=bt709,format=yuv420p"
	overlayMarkChain = "scale=-1:160,format=rgba,colorchannelmixer=aa=0.5"
	overlayPosition  = "overlay=W-w-10:H-h-10"

	textLargeHeight = 1080
	textSizeLarge   = 96
	textSizeSmall   = 48
	textMargin      = 40
	textColor       = "white@0.5"
)

// ffmpeg unescapes filter arguments twice: the graph parser splits stages on
// brackets, commas and semicolons, then the option parser splits the
// remainder on colons. Values are escaped for the option parser first and
// each stage's whole argument string for the graph parser second.
var (
	optionEscaper = strings.NewReplacer(`\`, `\\`, `'`, `\'`, `:`, `\:`)
	graphEscaper  = strings.NewReplacer(`\`, `\\`, `'`, `\'`, `[`, `\[`, `]`, `\]`, `,`, `\,`, `;`, `\;`)
)

func optionValue(value string) string {
	return optionEscaper.Replace(value)
}

// filterStage renders name=opts for use inside -vf or -filter_complex.
func filterStage(name string, opts ...string) string {
	return name + "=" + graphEscaper.Replace(strings.Join(opts, ":"))
}

// lutStage applies a 3D LUT file.
func lutStage(path string) string {
	return filterStage("lut3d", "file="+optionValue(path))
}

// TextFontSize returns the drawtext size for a frame height.
func TextFontSize(height int) int {
	if height > textLargeHeight {
		return textSizeLarge
	}
	return textSizeSmall
}

// textStage draws text bottom-center at half opacity.
func textStage(text string, height int, fontFile string) string {
	opts := []string{
		"text=" + optionValue(textutil.NormalizeOverlayText(text)),
		"expansion=none",
	}
	if fontFile != "" {
		opts = append(opts, "fontfile="+optionValue(fontFile))
	}
	opts = append(opts,
		"fontcolor="+textColor,
		"fontsize="+strconv.Itoa(TextFontSize(height)),
		"x=(w-text_w)/2",
		"y=h-text_h-"+strconv.Itoa(textMargin),
	)
	return filterStage("drawtext", opts...)
}

// overlayGraph composites input 1 over input 0, optionally running the LUT
// on the base video first. The composed stream is labelled [v].
func overlayGraph(lutPath string) string {
	var b strings.Builder
	b.WriteString("[0:v]")
	if lutPath != "" {
		b.WriteString(lutStage(lutPath))
		b.WriteByte(',')
	}
	b.WriteString(overlayBaseChain)
	b.WriteString("[v0];[1:v]")
	b.WriteString(overlayMarkChain)
	b.WriteString("[wm];[v0][wm]")
	b.WriteString(overlayPosition)
	b.WriteString("[v]")
	return b.String()
}

// videoFilter describes how the video stream leaves the filter step.
type videoFilter struct {
	args     []string
	videoMap string
}

// buildVideoFilter returns the filter flags and the video map for req. The
// image watermark needs a complex graph; LUT and text stages chain through
// -vf on input 0.
func buildVideoFilter(req Request, fontFile string) videoFilter {
	if req.Watermark.Mode == WatermarkImage && req.Watermark.Enabled() {
		return videoFilter{
			args:     []string{"-filter_complex", overlayGraph(req.LUTPath)},
			videoMap: "[v]",
		}
	}
	var stages []string
	if req.LUTPath != "" {
		stages = append(stages, lutStage(req.LUTPath))
	}
	if req.Watermark.Mode == WatermarkText && req.Watermark.Enabled() {
		stages = append(stages, textStage(req.Watermark.Text, req.Height, fontFile))
	}
	if len(stages) == 0 {
		return videoFilter{videoMap: "0:v"}
	}
	return videoFilter{
		args:     []string{"-vf", strings.Join(stages, ",")},
		videoMap: "0:v",
	}
}
