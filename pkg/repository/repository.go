package repository

import (
	"context"
	"path/filepath"
	"regexp"

	"github.com/m-mizutani/goerr/v2"
)

var (
	ErrNotFound       = goerr.New("key not found in session storage")
	ErrInvalidSession = goerr.New("invalid session id")
	ErrUnknownBackend = goerr.New("unknown storage backend")
)

// SessionStorage is a key/value store scoped to one client session. Values
// are opaque serialized blobs.
type SessionStorage interface {
	// Get returns the value stored under key, or ErrNotFound
	Get(ctx context.Context, key string) ([]byte, error)

	// Put replaces the value stored under key
	Put(ctx context.Context, key string, value []byte) error

	// Delete removes key. Deleting a missing key is not an error
	Delete(ctx context.Context, key string) error

	// Close releases underlying resources
	Close() error
}

type Backend string

const (
	BackendFile   Backend = "file"
	BackendSQLite Backend = "sqlite"
	BackendMemory Backend = "memory"
)

var sessionIDPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]{0,127}$`)

// ValidateSessionID checks that id is usable as a file name and a DB key
func ValidateSessionID(id string) error {
	if !sessionIDPattern.MatchString(id) {
		return goerr.Wrap(ErrInvalidSession, "session id must be alphanumeric with . _ -", goerr.V("session", id))
	}
	return nil
}

// New opens the storage backend for sessionID under dir.
func New(backend Backend, dir, sessionID string) (SessionStorage, error) {
	if err := ValidateSessionID(sessionID); err != nil {
		return nil, err
	}

	switch backend {
	case BackendMemory:
		return NewMemory(), nil
	case BackendFile, "":
		return NewFile(filepath.Join(dir, "sessions", sessionID))
	case BackendSQLite:
		return NewSQLite(filepath.Join(dir, "sessions.db"), sessionID)
	default:
		return nil, goerr.Wrap(ErrUnknownBackend, "failed to open session storage", goerr.V("backend", backend))
	}
}
