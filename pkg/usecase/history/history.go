package history

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/m-mizutani/aiassist/pkg/model"
	"github.com/m-mizutani/aiassist/pkg/repository"
	"github.com/m-mizutani/aiassist/pkg/utils/logging"
	"github.com/m-mizutani/goerr/v2"
)

// Storage keys. Both logs live side by side in one session.
const (
	KeySession = "sessionHistory"
	KeyChat    = "chatHistory"
)

// PersistResult reports whether the last mutation reached session storage.
// A failed write never rolls back the in-memory log.
type PersistResult struct {
	Err error
}

func (r PersistResult) OK() bool { return r.Err == nil }

// Log is an append-only, session-scoped list of T persisted as a JSON array
// under one storage key.
type Log[T any] struct {
	mu      sync.RWMutex
	key     string
	storage repository.SessionStorage
	entries []T
}

// Load rebuilds the log from storage. A missing key yields an empty log.
// Unreadable or corrupt data also yields an empty log and is only logged.
func Load[T any](ctx context.Context, storage repository.SessionStorage, key string) *Log[T] {
	l := &Log[T]{
		key:     key,
		storage: storage,
	}

	raw, err := storage.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			logging.From(ctx).Warn("failed to read history, starting empty", "key", key, "error", err)
		}
		return l
	}

	var entries []T
	if err := json.Unmarshal(raw, &entries); err != nil {
		logging.From(ctx).Warn("corrupt history data, starting empty",
			"key", key,
			"error", goerr.Wrap(err, "failed to decode history", goerr.V("key", key)),
		)
		return l
	}
	l.entries = entries
	return l
}

// Append adds entry to the end of the log and writes the whole log through.
func (l *Log[T]) Append(ctx context.Context, entry ...T) PersistResult {
	l.mu.Lock()
	l.entries = append(l.entries, entry...)
	snapshot := append([]T(nil), l.entries...)
	l.mu.Unlock()

	return l.persist(ctx, snapshot)
}

// Clear empties the log and persists the empty state.
func (l *Log[T]) Clear(ctx context.Context) PersistResult {
	l.mu.Lock()
	l.entries = nil
	l.mu.Unlock()

	return l.persist(ctx, []T{})
}

// List returns a copy of the entries in insertion order.
func (l *Log[T]) List() []T {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return append([]T(nil), l.entries...)
}

func (l *Log[T]) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.entries)
}

// At returns the entry at 1-based position n.
func (l *Log[T]) At(n int) (T, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	var zero T
	if n < 1 || n > len(l.entries) {
		return zero, false
	}
	return l.entries[n-1], true
}

func (l *Log[T]) persist(ctx context.Context, entries []T) PersistResult {
	if entries == nil {
		entries = []T{}
	}

	raw, err := json.Marshal(entries)
	if err != nil {
		err = goerr.Wrap(err, "failed to encode history", goerr.V("key", l.key))
		logging.From(ctx).Warn("history not persisted", "error", err)
		return PersistResult{Err: err}
	}

	if err := l.storage.Put(ctx, l.key, raw); err != nil {
		err = goerr.Wrap(err, "failed to persist history", goerr.V("key", l.key), goerr.V("count", len(entries)))
		logging.From(ctx).Warn("history not persisted", "error", err)
		return PersistResult{Err: err}
	}
	return PersistResult{}
}

// Store bundles the two logs kept per session.
type Store struct {
	Interactions *Log[model.InteractionRecord]
	Chat         *Log[model.ChatMessage]
}

func Open(ctx context.Context, storage repository.SessionStorage) *Store {
	return &Store{
		Interactions: Load[model.InteractionRecord](ctx, storage, KeySession),
		Chat:         Load[model.ChatMessage](ctx, storage, KeyChat),
	}
}

// Record appends a completed exchange to both logs.
func (s *Store) Record(ctx context.Context, rec model.InteractionRecord, fn model.FunctionType, userText string) PersistResult {
	res := s.Interactions.Append(ctx, rec)

	now, ok := rec.Time()
	if !ok {
		now = time.Now()
	}
	chat := s.Chat.Append(ctx,
		model.NewChatMessage(model.RoleUser, fn, userText, now),
		model.NewChatMessage(model.RoleAssistant, fn, rec.Response, now),
	)
	if res.OK() {
		return chat
	}
	return res
}

// Clear empties both logs.
func (s *Store) Clear(ctx context.Context) PersistResult {
	res := s.Interactions.Clear(ctx)
	chat := s.Chat.Clear(ctx)
	if res.OK() {
		return chat
	}
	return res
}
