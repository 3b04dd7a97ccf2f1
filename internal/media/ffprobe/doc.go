// Package ffprobe inspects source clips with ffprobe so the pipeline can
// pick an encoder path and size burn-in text for the frame.
package ffprobe
