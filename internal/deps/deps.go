// Package deps resolves and reports the external binaries mxf2proxy runs.
package deps

import (
	"fmt"
	"os/exec"
	"strings"

	"mxf2proxy/internal/config"
)

// Requirement defines an external dependency mxf2proxy relies on.
type Requirement struct {
	Name        string
	Command     string
	Description string
	Optional    bool
}

// Status reports the availability of a dependency.
type Status struct {
	Name        string
	Command     string
	Description string
	Optional    bool
	Available   bool
	Detail      string
}

// CheckBinaries evaluates the provided requirements and reports availability.
func CheckBinaries(requirements []Requirement) []Status {
	results := make([]Status, 0, len(requirements))
	for _, req := range requirements {
		cmd := strings.TrimSpace(req.Command)
		status := Status{
			Name:        req.Name,
			Command:     cmd,
			Description: strings.TrimSpace(req.Description),
			Optional:    req.Optional,
		}
		switch {
		case cmd == "":
			status.Detail = "command not configured"
		default:
			resolved, err := exec.LookPath(cmd)
			if err != nil {
				status.Detail = fmt.Sprintf("binary %q not found", cmd)
			} else {
				status.Command = resolved
				status.Available = true
			}
		}
		results = append(results, status)
	}
	return results
}

// Check reports every binary the configuration needs. ffmpeg is resolved
// the same way batches resolve it.
func Check(cfg *config.Config) []Status {
	var ffmpegOverride, ffprobeOverride string
	if cfg != nil {
		ffmpegOverride = cfg.Encoder.FFmpegBinary
		ffprobeOverride = cfg.Encoder.FFprobeBinary
	}
	ffmpeg := ResolveFFmpeg(ffmpegOverride)
	statuses := []Status{ffmpeg}
	statuses = append(statuses, CheckBinaries([]Requirement{{
		Name:        "FFprobe",
		Command:     ResolveFFprobe(ffprobeOverride, ffmpeg.Command),
		Description: "Probes frame size for the encoder choice",
		Optional:    true,
	}})...)
	return statuses
}
