package repository

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/m-mizutani/goerr/v2"
)

// File stores each key as <dir>/<key>.json.
type File struct {
	dir string
}

func NewFile(dir string) (*File, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, goerr.Wrap(err, "failed to create session directory", goerr.V("dir", dir))
	}
	return &File{dir: dir}, nil
}

func (f *File) path(key string) (string, error) {
	if key == "" || key != filepath.Base(key) || key == "." || key == ".." {
		return "", goerr.New("invalid storage key", goerr.V("key", key))
	}
	return filepath.Join(f.dir, key+".json"), nil
}

func (f *File) Get(ctx context.Context, key string) ([]byte, error) {
	p, err := f.path(key)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(p)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, goerr.Wrap(ErrNotFound, "session file does not exist", goerr.V("path", p))
	}
	if err != nil {
		return nil, goerr.Wrap(err, "failed to read session file", goerr.V("path", p))
	}
	return data, nil
}

// Put writes to a temporary file and renames it so a crash never leaves a
// half-written value behind.
func (f *File) Put(ctx context.Context, key string, value []byte) error {
	p, err := f.path(key)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(f.dir, key+".*.tmp")
	if err != nil {
		return goerr.Wrap(err, "failed to create temp file", goerr.V("dir", f.dir))
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(value); err != nil {
		tmp.Close()
		return goerr.Wrap(err, "failed to write session file", goerr.V("path", tmp.Name()))
	}
	if err := tmp.Close(); err != nil {
		return goerr.Wrap(err, "failed to close session file", goerr.V("path", tmp.Name()))
	}
	if err := os.Rename(tmp.Name(), p); err != nil {
		return goerr.Wrap(err, "failed to replace session file", goerr.V("path", p))
	}
	return nil
}

func (f *File) Delete(ctx context.Context, key string) error {
	p, err := f.path(key)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return goerr.Wrap(err, "failed to remove session file", goerr.V("path", p))
	}
	return nil
}

func (f *File) Close() error {
	return nil
}
