package imports_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/JaimeStill/tally/internal/imports"
	"github.com/JaimeStill/tally/internal/profiles"
	"github.com/JaimeStill/tally/internal/records"
	"github.com/JaimeStill/tally/internal/sessions"
	"github.com/JaimeStill/tally/pkg/lifecycle"
	"github.com/JaimeStill/tally/pkg/repository"
	"github.com/JaimeStill/tally/pkg/schema"
	"github.com/JaimeStill/tally/pkg/storage"
)

// memStore is a transactional in-memory Store. WithTx snapshots all state
// and restores it when fn fails.
type memStore struct {
	mu sync.Mutex

	profiles []profiles.Profile
	sessions map[string]sessions.Session
	records  map[string]records.Record

	// failUpsertAt makes the nth upsert of a transaction fail (1-based).
	failUpsertAt int
	// deadlockUpsertAt makes the nth upsert of the first attempt fail with
	// a deadlock, which WithTx retries.
	deadlockUpsertAt int
	upserts          int
	attempts         int
	recentLimit      int
}

func newMemStore() *memStore {
	return &memStore{
		sessions: make(map[string]sessions.Session),
		records:  make(map[string]records.Record),
	}
}

func sessionKey(entity, hash string) string { return entity + "|" + hash }

func (s *memStore) ActiveProfile(_ context.Context, entity string) (profiles.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.profiles {
		if p.Entity == entity && p.Active {
			return p, nil
		}
	}
	return profiles.Profile{}, profiles.ErrNotFound
}

func (s *memStore) RecentRecords(_ context.Context, entity string, limit int) ([]records.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.recentLimit = limit
	out := make([]records.Record, 0)
	for _, r := range s.records {
		if r.Entity == entity {
			out = append(out, r)
		}
	}
	slices.SortFunc(out, func(a, b records.Record) int { return b.UpdatedAt.Compare(a.UpdatedAt) })
	return out[:min(len(out), limit)], nil
}

func (s *memStore) SaveDryRun(_ context.Context, cmd sessions.DryRunCommand) (sessions.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := sessionKey(cmd.Entity, cmd.FileHash)
	now := time.Now()

	if existing, ok := s.sessions[key]; ok {
		if existing.Committed() {
			return existing, nil
		}
		existing.Filename = cmd.Filename
		if cmd.StorageKey != "" {
			existing.StorageKey = cmd.StorageKey
		}
		existing.Stats = cmd.Stats
		existing.UpdatedAt = now
		s.sessions[key] = existing
		return existing, nil
	}

	sess := sessions.Session{
		ID:         uuid.New(),
		Entity:     cmd.Entity,
		FileHash:   cmd.FileHash,
		Filename:   cmd.Filename,
		StorageKey: cmd.StorageKey,
		Status:     sessions.StatusDryRun,
		Stats:      cmd.Stats,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	s.sessions[key] = sess
	return sess, nil
}

func (s *memStore) Session(_ context.Context, id uuid.UUID) (sessions.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, sess := range s.sessions {
		if sess.ID == id {
			return sess, nil
		}
	}
	return sessions.Session{}, sessions.ErrNotFound
}

// WithTx replays fn on transient failures the same way the Postgres store
// does, restoring the snapshot before each retry.
func (s *memStore) WithTx(ctx context.Context, fn func(imports.Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.attempts = 0
	return repository.Retry(ctx, 3, func() error {
		s.attempts++

		profilesSnap := slices.Clone(s.profiles)
		sessionsSnap := maps.Clone(s.sessions)
		recordsSnap := make(map[string]records.Record, len(s.records))
		for k, r := range s.records {
			r.Data = maps.Clone(r.Data)
			recordsSnap[k] = r
		}
		s.upserts = 0

		if err := fn(memTx{s}); err != nil {
			s.profiles = profilesSnap
			s.sessions = sessionsSnap
			s.records = recordsSnap
			return err
		}
		return nil
	})
}

func (s *memStore) activeProfile(entity string) (profiles.Profile, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.profiles {
		if p.Entity == entity && p.Active {
			return p, true
		}
	}
	return profiles.Profile{}, false
}

func (s *memStore) entityRecords(entity string) []records.Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]records.Record, 0)
	for _, r := range s.records {
		if r.Entity == entity {
			out = append(out, r)
		}
	}
	return out
}

func (s *memStore) session(entity, hash string) (sessions.Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[sessionKey(entity, hash)]
	return sess, ok
}

// memTx runs with the store mutex held by WithTx.
type memTx struct {
	s *memStore
}

func (t memTx) Lock(context.Context, string, string) error { return nil }

func (t memTx) Session(_ context.Context, entity, hash string) (sessions.Session, error) {
	if sess, ok := t.s.sessions[sessionKey(entity, hash)]; ok {
		return sess, nil
	}
	return sessions.Session{}, sessions.ErrNotFound
}

func (t memTx) Adopt(_ context.Context, entity string, fields []schema.Field) (profiles.Profile, error) {
	fields = schema.Dedupe(fields)
	if len(fields) == 0 {
		return profiles.Profile{}, profiles.ErrInvalidProfile
	}

	version := 0
	for i, p := range t.s.profiles {
		if p.Entity != entity {
			continue
		}
		version = max(version, p.Version)
		t.s.profiles[i].Active = false
	}

	p := profiles.Profile{
		ID:        uuid.New(),
		Entity:    entity,
		Version:   version + 1,
		Fields:    fields,
		Active:    true,
		CreatedAt: time.Now(),
	}
	t.s.profiles = append(t.s.profiles, p)
	return p, nil
}

func (t memTx) Upsert(_ context.Context, entity string, doc map[string]any) (bool, error) {
	t.s.upserts++
	if t.s.failUpsertAt > 0 && t.s.upserts == t.s.failUpsertAt {
		return false, errors.New("simulated constraint violation")
	}
	if t.s.deadlockUpsertAt > 0 && t.s.attempts == 1 && t.s.upserts == t.s.deadlockUpsertAt {
		return false, &pgconn.PgError{Code: "40P01", Message: "deadlock detected"}
	}

	kind, key := records.KeyFor(doc)
	rk := entity + "|" + string(kind) + "|" + key
	now := time.Now()

	if existing, ok := t.s.records[rk]; ok {
		merged := maps.Clone(existing.Data)
		maps.Copy(merged, doc)
		existing.Data = merged
		existing.UpdatedAt = now
		t.s.records[rk] = existing
		return false, nil
	}

	t.s.records[rk] = records.Record{
		ID:         uuid.New(),
		Entity:     entity,
		KeyKind:    kind,
		NaturalKey: key,
		Data:       maps.Clone(doc),
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	return true, nil
}

func (t memTx) MarkCommitted(_ context.Context, cmd sessions.CommitCommand) (sessions.Session, error) {
	key := sessionKey(cmd.Entity, cmd.FileHash)
	now := time.Now()

	sess, ok := t.s.sessions[key]
	if ok && sess.Committed() {
		return sessions.Session{}, sessions.ErrAlreadyCommitted
	}
	if !ok {
		sess = sessions.Session{
			ID:        uuid.New(),
			Entity:    cmd.Entity,
			FileHash:  cmd.FileHash,
			CreatedAt: now,
		}
	}

	sess.Filename = cmd.Filename
	if cmd.StorageKey != "" {
		sess.StorageKey = cmd.StorageKey
	}
	sess.Status = sessions.StatusCommitted
	sess.Decisions = cmd.Decisions
	sess.Stats = cmd.Stats
	sess.UpdatedAt = now
	t.s.sessions[key] = sess
	return sess, nil
}

// memBlobs is an in-memory storage.System.
type memBlobs struct {
	mu        sync.Mutex
	blobs     map[string][]byte
	uploadErr error
}

func newMemBlobs() *memBlobs {
	return &memBlobs{blobs: make(map[string][]byte)}
}

func (b *memBlobs) Start(*lifecycle.Coordinator) error { return nil }

func (b *memBlobs) Upload(_ context.Context, key string, r io.Reader, _ string) error {
	if b.uploadErr != nil {
		return b.uploadErr
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.blobs[key] = data
	return nil
}

func (b *memBlobs) Download(_ context.Context, key string) (io.ReadCloser, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	data, ok := b.blobs[key]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (b *memBlobs) Delete(_ context.Context, key string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.blobs[key]; !ok {
		return storage.ErrNotFound
	}
	delete(b.blobs, key)
	return nil
}

func (b *memBlobs) Exists(_ context.Context, key string) (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, ok := b.blobs[key]
	return ok, nil
}

func (b *memBlobs) count() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.blobs)
}
