// Package fileutil holds filesystem helpers shared by the pipeline.
package fileutil

import (
	"errors"
	"io/fs"
	"os"
	"time"

	"golang.org/x/sys/unix"
)

// ErrNoBirthTime reports a filesystem that does not record creation time.
var ErrNoBirthTime = errors.New("birth time not available")

// CreationTime returns the birth time of path via statx.
func CreationTime(path string) (time.Time, error) {
	var stx unix.Statx_t
	if err := unix.Statx(unix.AT_FDCWD, path, unix.AT_STATX_SYNC_AS_STAT, unix.STATX_BTIME, &stx); err != nil {
		return time.Time{}, &fs.PathError{Op: "statx", Path: path, Err: err}
	}
	if stx.Mask&unix.STATX_BTIME == 0 {
		return time.Time{}, ErrNoBirthTime
	}
	return time.Unix(stx.Btime.Sec, int64(stx.Btime.Nsec)), nil
}

// CreatedAfter reports whether path came into existence at or after t.
// Filesystems without birth times fall back to the change time, which a
// freshly made empty directory shares with its creation.
func CreatedAfter(path string, t time.Time) (bool, error) {
	born, err := CreationTime(path)
	if errors.Is(err, ErrNoBirthTime) {
		var st unix.Stat_t
		if statErr := unix.Stat(path, &st); statErr != nil {
			return false, &fs.PathError{Op: "stat", Path: path, Err: statErr}
		}
		born = time.Unix(st.Ctim.Unix())
		err = nil
	}
	if err != nil {
		return false, err
	}
	return !born.Before(t.Truncate(time.Second)), nil
}

// Exists reports whether path exists.
func Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// RemoveQuietly deletes each path, ignoring errors. Empty entries are
// skipped.
func RemoveQuietly(paths ...string) {
	for _, p := range paths {
		if p == "" {
			continue
		}
		_ = os.Remove(p)
	}
}

// NonEmptyFile reports whether path is a regular file with content.
func NonEmptyFile(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular() && info.Size() > 0
}
