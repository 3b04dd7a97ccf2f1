package ffprobe

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
)

// Result represents the parsed output from an ffprobe inspection.
type Result struct {
	Streams []Stream `json:"streams"`
	Format  Format   `json:"format"`
}

// Stream describes a single stream in the media container.
type Stream struct {
	Index            int    `json:"index"`
	CodecName        string `json:"codec_name"`
	CodecType        string `json:"codec_type"`
	CodecTag         string `json:"codec_tag_string"`
	Profile          string `json:"profile"`
	PixFmt           string `json:"pix_fmt"`
	BitsPerRawSample string `json:"bits_per_raw_sample"`
	Width            int    `json:"width"`
	Height           int    `json:"height"`
}

// Format captures container-level metadata extracted by ffprobe.
type Format struct {
	Filename   string `json:"filename"`
	NBStreams  int    `json:"nb_streams"`
	Duration   string `json:"duration"`
	FormatName string `json:"format_name"`
}

// Frame is the picture size of the primary video stream.
type Frame struct {
	Width  int
	Height int
}

// Inspect executes ffprobe against the provided path and decodes the JSON response.
func Inspect(ctx context.Context, binary string, path string) (Result, error) {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		binary = "ffprobe"
	}
	path = strings.TrimSpace(path)
	if path == "" {
		return Result{}, errors.New("ffprobe inspect: empty path")
	}

	cmd := exec.CommandContext(ctx, binary, "-v", "error", "-hide_banner", "-show_format", "-show_streams", "-of", "json", "--", path)
	output, err := cmd.Output()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return Result{}, fmt.Errorf("ffprobe inspect: %w: %s", err, strings.TrimSpace(string(exitErr.Stderr)))
		}
		return Result{}, fmt.Errorf("ffprobe inspect: %w", err)
	}
	return Parse(output)
}

// Parse decodes an ffprobe JSON document.
func Parse(data []byte) (Result, error) {
	var result Result
	if err := json.Unmarshal(data, &result); err != nil {
		return Result{}, fmt.Errorf("ffprobe parse: %w", err)
	}
	return result, nil
}

// PrimaryVideo returns the first video stream that is not an attached
// picture, and false when the container has none.
func (r Result) PrimaryVideo() (Stream, bool) {
	for _, stream := range r.Streams {
		if strings.EqualFold(stream.CodecType, "video") && stream.Width > 0 {
			return stream, true
		}
	}
	return Stream{}, false
}

// Frame returns the primary video frame size, zero when unknown.
func (r Result) Frame() Frame {
	if stream, ok := r.PrimaryVideo(); ok {
		return Frame{Width: stream.Width, Height: stream.Height}
	}
	return Frame{}
}

// StreamCount returns the number of streams of the given codec type.
func (r Result) StreamCount(codecType string) int {
	count := 0
	for _, stream := range r.Streams {
		if strings.EqualFold(stream.CodecType, codecType) {
			count++
		}
	}
	return count
}

// BitDepth reports the primary video sample depth, 0 when ffprobe does not say.
func (r Result) BitDepth() int {
	stream, ok := r.PrimaryVideo()
	if !ok {
		return 0
	}
	if depth, err := strconv.Atoi(strings.TrimSpace(stream.BitsPerRawSample)); err == nil {
		return depth
	}
	switch {
	case strings.Contains(stream.PixFmt, "12"):
		return 12
	case strings.Contains(stream.PixFmt, "10"):
		return 10
	case stream.PixFmt != "":
		return 8
	}
	return 0
}

// Prober wraps Inspect with a fixed binary.
type Prober struct {
	Binary string
}

// Frame probes path and returns its frame size.
func (p Prober) Frame(ctx context.Context, path string) (Frame, error) {
	result, err := Inspect(ctx, p.Binary, path)
	if err != nil {
		return Frame{}, err
	}
	frame := result.Frame()
	if frame.Width == 0 {
		return Frame{}, fmt.Errorf("ffprobe: no video stream in %s", path)
	}
	return frame, nil
}
