package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"mxf2proxy/internal/config"
	"mxf2proxy/internal/fileutil"
	"mxf2proxy/internal/logging"
	"mxf2proxy/internal/prompt"
)

// SingleFileDestination is the folder created beside a single-file source.
const SingleFileDestination = "m2p-proxies"

// errDestinationCancelled ends a batch whose destination prompt was
// cancelled.
var errDestinationCancelled = errors.New("destination selection cancelled")

// DefaultDestination returns the sibling folder proxies go to when the
// operator accepts the default.
func DefaultDestination(source string, isDir bool) string {
	parent := filepath.Dir(source)
	if isDir {
		return filepath.Join(parent, filepath.Base(source)+" proxies")
	}
	return filepath.Join(parent, SingleFileDestination)
}

// resolveDestination asks the prompter where the batch goes. A custom
// folder that appeared after the chooser opened was made for this batch
// and is used directly; an older folder gets the default folder name
// created inside it.
func (o *Orchestrator) resolveDestination(ctx context.Context, b *batchRun) (string, error) {
	def := DefaultDestination(b.job.Source, b.isDir)
	choice, err := o.prompter.ChooseDestination(ctx, prompt.DestinationRequest{
		JobID:   b.job.ID,
		Source:  b.job.Source,
		Default: def,
		Clips:   len(b.clips),
	})
	if err != nil {
		return "", fmt.Errorf("choose destination: %w", err)
	}

	switch choice.Kind {
	case prompt.DestinationCancel:
		return "", errDestinationCancelled
	case prompt.DestinationCustom:
		if choice.Path == "" {
			return "", errors.New("custom destination has no path")
		}
		dir, err := config.ExpandPath(choice.Path)
		if err != nil {
			return "", fmt.Errorf("custom destination %q: %w", choice.Path, err)
		}
		info, statErr := os.Stat(dir)
		if errors.Is(statErr, os.ErrNotExist) {
			return dir, nil
		}
		if statErr == nil && !info.IsDir() {
			return "", fmt.Errorf("custom destination %s is not a directory", dir)
		}
		if !choice.PickerOpened.IsZero() {
			fresh, ferr := fileutil.CreatedAfter(dir, choice.PickerOpened)
			if ferr != nil {
				b.logger.Debug("destination creation time unavailable", logging.String("path", dir), logging.Error(ferr))
			}
			if fresh {
				return dir, nil
			}
		}
		return filepath.Join(dir, filepath.Base(def)), nil
	default:
		return def, nil
	}
}
