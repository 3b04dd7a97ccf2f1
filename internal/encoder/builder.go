package encoder

import "strconv"

// Options configures the Builder.
type Options struct {
	// FFmpeg is the resolved ffmpeg executable.
	FFmpeg string
	// HardwareCodec is the ffmpeg encoder used on the Hardware path.
	HardwareCodec string
	// FontFile is passed to drawtext when set.
	FontFile string
}

// Invocation is one external encoder run.
type Invocation struct {
	Binary string
	Args   []string
	// Step names the invocation in logs ("encode", "intermediate", "remux").
	Step string
	// Creates lists transient files this run writes that must be removed
	// once the clip reaches a terminal state.
	Creates []string
}

// Plan is the ordered set of encoder runs for one clip. Steps run strictly
// in order and a failing step skips the rest.
type Plan struct {
	// Prepass is the 8-bit intermediate the first step reads from, or ""
	// when the source goes straight to the encoder.
	Prepass string
	Steps   []Invocation
}

// Intermediates returns every transient path the plan produces, pre-pass
// output included.
func (p Plan) Intermediates() []string {
	var out []string
	if p.Prepass != "" {
		out = append(out, p.Prepass)
	}
	for _, step := range p.Steps {
		out = append(out, step.Creates...)
	}
	return out
}

// Builder compiles requests into invocations.
type Builder struct {
	opts Options
}

// NewBuilder returns a Builder. An empty FFmpeg falls back to "ffmpeg".
func NewBuilder(opts Options) *Builder {
	if opts.FFmpeg == "" {
		opts.FFmpeg = "ffmpeg"
	}
	return &Builder{opts: opts}
}

// Binary returns the ffmpeg executable invocations are built for.
func (b *Builder) Binary() string {
	return b.opts.FFmpeg
}

// Plan compiles req into its encoder runs. QuickTime sources bound for a
// progressive proxy read from the pre-pass output; broadcast proxies take
// two runs.
func (b *Builder) Plan(req Request) Plan {
	switch req.Format {
	case FormatBroadcast:
		temp := RemuxTempPath(req.Output, req.Source)
		return Plan{Steps: []Invocation{
			b.BroadcastIntermediate(req, temp),
			b.BroadcastRemux(req, temp),
		}}
	default:
		var prepass string
		if NeedsPrepass(req.Source, req.Format) {
			prepass = PrepassPath(req.Output, req.Source)
		}
		return Plan{Prepass: prepass, Steps: []Invocation{b.Progressive(req, prepass)}}
	}
}

// Progressive builds the single-run QuickTime proxy encode. When prepass is
// set the video comes from that file and every other track from the
// original source.
func (b *Builder) Progressive(req Request, prepass string) Invocation {
	args := make([]string, 0, 40)

	// --- Preamble ---
	args = append(args, clobberFlag(req.Force))

	// --- Inputs: video, watermark image, original tracks ---
	video := req.Source
	if prepass != "" {
		video = prepass
	}
	args = append(args, "-i", video)
	next := 1
	if req.Watermark.Mode == WatermarkImage && req.Watermark.Enabled() {
		args = append(args, "-i", req.Watermark.ImagePath)
		next++
	}
	tracks := "0"
	if prepass != "" {
		args = append(args, "-i", req.Source)
		tracks = strconv.Itoa(next)
	}

	// --- Filters ---
	filter := buildVideoFilter(req, b.opts.FontFile)
	args = append(args, filter.args...)

	// --- Stream maps: data, video, audio ---
	args = append(args,
		"-map", tracks+":d?",
		"-map", filter.videoMap,
		"-map", tracks+":a?",
	)

	// --- Codecs ---
	args = append(args, b.progressiveVideoCodec(req.Encoder)...)
	args = append(args,
		"-pix_fmt", "yuv420p",
		"-c:a", "copy",
		"-c:d", "copy",
		"-sn",
	)

	// --- Output ---
	args = append(args, req.Output)
	return Invocation{Binary: b.opts.FFmpeg, Args: args, Step: "encode"}
}

// BroadcastIntermediate builds the silent video-only encode that carries
// the LUT and watermark. The intermediate is private to the clip, so it is
// always clobbered.
func (b *Builder) BroadcastIntermediate(req Request, temp string) Invocation {
	args := make([]string, 0, 32)
	args = append(args, clobberFlag(true), "-i", req.Source)
	if req.Watermark.Mode == WatermarkImage && req.Watermark.Enabled() {
		args = append(args, "-i", req.Watermark.ImagePath)
	}
	filter := buildVideoFilter(req, b.opts.FontFile)
	args = append(args, filter.args...)
	args = append(args, "-map", filter.videoMap)
	args = append(args,
		"-c:v", "mpeg2video",
		"-b:v", "45M",
		"-maxrate", "45M",
		"-bufsize", "90M",
		"-an",
		temp,
	)
	return Invocation{Binary: b.opts.FFmpeg, Args: args, Step: "intermediate", Creates: []string{temp}}
}

// BroadcastRemux puts the intermediate's video back beside the source's
// data, audio, and subtitle tracks. Every stream is copied.
func (b *Builder) BroadcastRemux(req Request, temp string) Invocation {
	args := []string{
		clobberFlag(req.Force),
		"-i", req.Source,
		"-i", temp,
		"-map", "0:d?",
		"-map", "1:v:0",
		"-map", "0:a?",
		"-map", "0:s?",
		"-c:v", "copy",
		"-c:a", "copy",
		"-c:d", "copy",
		"-c:s", "copy",
		"-map_metadata", "0",
		"-f", "mxf",
		req.Output,
	}
	return Invocation{Binary: b.opts.FFmpeg, Args: args, Step: "remux"}
}

func (b *Builder) progressiveVideoCodec(choice Choice) []string {
	if choice == Hardware && b.opts.HardwareCodec != "" {
		return []string{
			"-c:v", b.opts.HardwareCodec,
			"-b:v", "25M",
			"-maxrate", "30M",
			"-bufsize", "50M",
		}
	}
	return []string{
		"-c:v", "libx264",
		"-preset", "fast",
		"-crf", "18",
	}
}

func clobberFlag(force bool) string {
	if force {
		return "-y"
	}
	return "-n"
}
