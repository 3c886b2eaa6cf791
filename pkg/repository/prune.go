package repository

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/m-mizutani/goerr/v2"
)

// Prune removes every session under dir whose last write happened before
// cutoff, and returns the ids of the removed sessions. Memory storage keeps
// nothing between runs, so there is nothing to prune.
func Prune(ctx context.Context, backend Backend, dir string, cutoff time.Time) ([]string, error) {
	switch backend {
	case BackendMemory:
		return nil, nil
	case BackendFile, "":
		return pruneFiles(filepath.Join(dir, "sessions"), cutoff)
	case BackendSQLite:
		path := filepath.Join(dir, "sessions.db")
		if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		db, err := NewSQLite(path, "")
		if err != nil {
			return nil, err
		}
		defer db.Close()
		return db.pruneBefore(ctx, cutoff)
	default:
		return nil, goerr.Wrap(ErrUnknownBackend, "failed to prune sessions", goerr.V("backend", backend))
	}
}

func pruneFiles(root string, cutoff time.Time) ([]string, error) {
	entries, err := os.ReadDir(root)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, goerr.Wrap(err, "failed to list sessions", goerr.V("dir", root))
	}

	var removed []string
	for _, e := range entries {
		if !e.IsDir() || ValidateSessionID(e.Name()) != nil {
			continue
		}
		dir := filepath.Join(root, e.Name())
		last, err := lastWrite(dir)
		if err != nil {
			return removed, err
		}
		if !last.Before(cutoff) {
			continue
		}
		if err := os.RemoveAll(dir); err != nil {
			return removed, goerr.Wrap(err, "failed to remove stale session", goerr.V("dir", dir))
		}
		removed = append(removed, e.Name())
	}
	return removed, nil
}

// lastWrite is the newest modification time of dir and the files in it.
func lastWrite(dir string) (time.Time, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return time.Time{}, goerr.Wrap(err, "failed to stat session", goerr.V("dir", dir))
	}
	last := info.ModTime()

	entries, err := os.ReadDir(dir)
	if err != nil {
		return time.Time{}, goerr.Wrap(err, "failed to list session", goerr.V("dir", dir))
	}
	for _, e := range entries {
		fi, err := e.Info()
		if err != nil {
			continue
		}
		if fi.ModTime().After(last) {
			last = fi.ModTime()
		}
	}
	return last, nil
}
