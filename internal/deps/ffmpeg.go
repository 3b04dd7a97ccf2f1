package deps

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
)

// ResolveFFmpeg reports the ffmpeg binary conversions will execute.
//
// An explicit override wins. Otherwise an ffmpeg placed next to the
// mxf2proxy executable is preferred over the one on PATH, so a bundled
// build can ship its own encoder.
func ResolveFFmpeg(override string) Status {
	self, _ := os.Executable()
	return resolveFFmpeg(override, self)
}

func resolveFFmpeg(override, self string) Status {
	result := Status{
		Name:        "FFmpeg",
		Description: "Encodes proxies and remuxes broadcast output",
	}

	if cmd := strings.TrimSpace(override); cmd != "" {
		result.Command = cmd
		if resolved, err := exec.LookPath(cmd); err == nil {
			result.Command = resolved
			result.Available = true
		} else {
			result.Detail = fmt.Sprintf("configured binary %q not found", cmd)
		}
		return result
	}

	if candidate, ok := ffmpegSidecarCandidate(self); ok {
		if info, statErr := os.Stat(candidate); statErr == nil && isExecutable(info) {
			result.Command = candidate
			result.Available = true
			return result
		}
	}

	ffmpegName := "ffmpeg"
	if ffmpegPath, err := exec.LookPath(ffmpegName); err == nil {
		result.Command = ffmpegPath
		result.Available = true
		return result
	}

	result.Command = ffmpegName
	result.Detail = fmt.Sprintf("binary %q not found", ffmpegName)
	return result
}

func ffmpegSidecarCandidate(selfPath string) (string, bool) {
	if selfPath == "" {
		return "", false
	}
	if resolved, err := filepath.EvalSymlinks(selfPath); err == nil {
		selfPath = resolved
	}
	name := "ffmpeg"
	if runtime.GOOS == "windows" {
		name += ".exe"
	}
	return filepath.Join(filepath.Dir(selfPath), name), true
}

func isExecutable(info os.FileInfo) bool {
	if info == nil || info.IsDir() {
		return false
	}
	if runtime.GOOS == "windows" {
		return true
	}
	return info.Mode().Perm()&0o111 != 0
}

// ResolveFFprobe returns the ffprobe to pair with ffmpegPath. An explicit
// override wins, then an ffprobe sitting beside ffmpeg, then PATH.
func ResolveFFprobe(override, ffmpegPath string) string {
	if cmd := strings.TrimSpace(override); cmd != "" && cmd != "ffprobe" {
		return cmd
	}
	if filepath.IsAbs(ffmpegPath) {
		name := "ffprobe"
		if runtime.GOOS == "windows" {
			name += ".exe"
		}
		sibling := filepath.Join(filepath.Dir(ffmpegPath), name)
		if info, err := os.Stat(sibling); err == nil && isExecutable(info) {
			return sibling
		}
	}
	return "ffprobe"
}
