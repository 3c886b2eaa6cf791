package repository_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/m-mizutani/aiassist/pkg/repository"
	"github.com/m-mizutani/gt"
)

func setupBackends(t *testing.T) map[string]func(session string) repository.SessionStorage {
	dir := t.TempDir()
	open := func(backend repository.Backend) func(string) repository.SessionStorage {
		return func(session string) repository.SessionStorage {
			s, err := repository.New(backend, dir, session)
			gt.NoError(t, err).Required()
			t.Cleanup(func() { gt.NoError(t, s.Close()) })
			return s
		}
	}

	return map[string]func(string) repository.SessionStorage{
		"file":   open(repository.BackendFile),
		"sqlite": open(repository.BackendSQLite),
	}
}

func TestSessionStoragePutGetDelete(t *testing.T) {
	ctx := context.Background()

	for name, open := range setupBackends(t) {
		t.Run(name, func(t *testing.T) {
			s := open("tty-100")

			_, err := s.Get(ctx, "sessionHistory")
			gt.True(t, errors.Is(err, repository.ErrNotFound))

			gt.NoError(t, s.Put(ctx, "sessionHistory", []byte(`[1]`)))
			gt.NoError(t, s.Put(ctx, "sessionHistory", []byte(`[1,2]`)))

			got, err := s.Get(ctx, "sessionHistory")
			gt.NoError(t, err)
			gt.V(t, string(got)).Equal(`[1,2]`)

			gt.NoError(t, s.Delete(ctx, "sessionHistory"))
			gt.NoError(t, s.Delete(ctx, "sessionHistory"))

			_, err = s.Get(ctx, "sessionHistory")
			gt.True(t, errors.Is(err, repository.ErrNotFound))
		})
	}
}

func TestSessionStorageSurvivesReopen(t *testing.T) {
	ctx := context.Background()

	for name, open := range setupBackends(t) {
		t.Run(name, func(t *testing.T) {
			first := open("reopen")
			gt.NoError(t, first.Put(ctx, "chatHistory", []byte(`["hello"]`)))

			second := open("reopen")
			got, err := second.Get(ctx, "chatHistory")
			gt.NoError(t, err)
			gt.V(t, string(got)).Equal(`["hello"]`)
		})
	}
}

func TestSessionStorageIsolatesSessions(t *testing.T) {
	ctx := context.Background()

	for name, open := range setupBackends(t) {
		t.Run(name, func(t *testing.T) {
			a := open("session-a")
			b := open("session-b")

			gt.NoError(t, a.Put(ctx, "sessionHistory", []byte(`"a"`)))

			_, err := b.Get(ctx, "sessionHistory")
			gt.True(t, errors.Is(err, repository.ErrNotFound))
		})
	}
}

func TestMemoryCopiesValues(t *testing.T) {
	ctx := context.Background()
	m := repository.NewMemory()

	value := []byte("abc")
	gt.NoError(t, m.Put(ctx, "k", value))
	value[0] = 'x'

	got, err := m.Get(ctx, "k")
	gt.NoError(t, err)
	gt.V(t, string(got)).Equal("abc")

	got[1] = 'y'
	again, err := m.Get(ctx, "k")
	gt.NoError(t, err)
	gt.V(t, string(again)).Equal("abc")
}

func TestFileRejectsTraversalKey(t *testing.T) {
	ctx := context.Background()
	f, err := repository.NewFile(filepath.Join(t.TempDir(), "s"))
	gt.NoError(t, err).Required()

	gt.Error(t, f.Put(ctx, "../escape", []byte("x")))
	_, err = f.Get(ctx, "")
	gt.Error(t, err)
}

func TestNewValidatesInput(t *testing.T) {
	dir := t.TempDir()

	_, err := repository.New(repository.BackendFile, dir, "../etc")
	gt.True(t, errors.Is(err, repository.ErrInvalidSession))

	_, err = repository.New(repository.BackendFile, dir, "")
	gt.True(t, errors.Is(err, repository.ErrInvalidSession))

	_, err = repository.New(repository.Backend("redis"), dir, "ok")
	gt.True(t, errors.Is(err, repository.ErrUnknownBackend))

	s, err := repository.New(repository.BackendMemory, dir, "ok")
	gt.NoError(t, err)
	gt.NoError(t, s.Close())
}

func TestPruneFileSessions(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	for _, id := range []string{"tty-1-old", "tty-2-new"} {
		s, err := repository.New(repository.BackendFile, dir, id)
		gt.NoError(t, err).Required()
		gt.NoError(t, s.Put(ctx, "sessionHistory", []byte(`[]`)))
		gt.NoError(t, s.Close())
	}

	old := time.Now().Add(-48 * time.Hour)
	oldDir := filepath.Join(dir, "sessions", "tty-1-old")
	gt.NoError(t, os.Chtimes(filepath.Join(oldDir, "sessionHistory.json"), old, old))
	gt.NoError(t, os.Chtimes(oldDir, old, old))

	removed, err := repository.Prune(ctx, repository.BackendFile, dir, time.Now().Add(-24*time.Hour))
	gt.NoError(t, err)
	gt.V(t, removed).Equal([]string{"tty-1-old"})

	_, err = os.Stat(oldDir)
	gt.True(t, errors.Is(err, os.ErrNotExist))
	_, err = os.Stat(filepath.Join(dir, "sessions", "tty-2-new", "sessionHistory.json"))
	gt.NoError(t, err)
}

func TestPruneSQLiteSessions(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	removed, err := repository.Prune(ctx, repository.BackendSQLite, dir, time.Now())
	gt.NoError(t, err)
	gt.A(t, removed).Length(0)
	_, err = os.Stat(filepath.Join(dir, "sessions.db"))
	gt.True(t, errors.Is(err, os.ErrNotExist))

	s, err := repository.New(repository.BackendSQLite, dir, "tty-9")
	gt.NoError(t, err).Required()
	gt.NoError(t, s.Put(ctx, "sessionHistory", []byte(`[1]`)))
	gt.NoError(t, s.Put(ctx, "chatHistory", []byte(`[2]`)))
	gt.NoError(t, s.Close())

	removed, err = repository.Prune(ctx, repository.BackendSQLite, dir, time.Now().Add(-time.Hour))
	gt.NoError(t, err)
	gt.A(t, removed).Length(0)

	removed, err = repository.Prune(ctx, repository.BackendSQLite, dir, time.Now().Add(time.Hour))
	gt.NoError(t, err)
	gt.V(t, removed).Equal([]string{"tty-9"})

	s, err = repository.New(repository.BackendSQLite, dir, "tty-9")
	gt.NoError(t, err).Required()
	defer s.Close()
	_, err = s.Get(ctx, "sessionHistory")
	gt.True(t, errors.Is(err, repository.ErrNotFound))
}

func TestPruneUnknownBackend(t *testing.T) {
	_, err := repository.Prune(context.Background(), "redis", t.TempDir(), time.Now())
	gt.True(t, errors.Is(err, repository.ErrUnknownBackend))

	removed, err := repository.Prune(context.Background(), repository.BackendMemory, t.TempDir(), time.Now())
	gt.NoError(t, err)
	gt.A(t, removed).Length(0)
}
