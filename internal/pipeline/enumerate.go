package pipeline

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// clipExtensions are the recognized source containers, lowercase.
var clipExtensions = map[string]struct{}{
	".mov": {},
	".mxf": {},
}

// IsClip reports whether name has a recognized extension, ignoring case.
func IsClip(name string) bool {
	_, ok := clipExtensions[strings.ToLower(filepath.Ext(name))]
	return ok
}

// Enumerate lists the clips of source. A directory yields its matching
// regular files sorted by name; a file yields itself.
func Enumerate(source string) (clips []string, isDir bool, err error) {
	info, err := os.Stat(source)
	if err != nil {
		return nil, false, fmt.Errorf("stat source: %w", err)
	}
	if !info.IsDir() {
		return []string{source}, false, nil
	}
	entries, err := os.ReadDir(source)
	if err != nil {
		return nil, true, fmt.Errorf("read source directory: %w", err)
	}
	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !IsClip(entry.Name()) {
			continue
		}
		if !entry.Type().IsRegular() {
			if fi, statErr := os.Stat(filepath.Join(source, entry.Name())); statErr != nil || !fi.Mode().IsRegular() {
				continue
			}
		}
		names = append(names, entry.Name())
	}
	sort.Strings(names)
	clips = make([]string, len(names))
	for i, name := range names {
		clips[i] = filepath.Join(source, name)
	}
	return clips, true, nil
}

// CountClips returns how many clips Enumerate would yield for source. An
// unreadable source counts as one, matching a single-file submission.
func CountClips(source string) int {
	clips, isDir, err := Enumerate(source)
	if err != nil {
		if isDir {
			return 0
		}
		return 1
	}
	return len(clips)
}
