package imports

import (
	"context"
	"database/sql"

	"github.com/google/uuid"

	"github.com/JaimeStill/tally/internal/profiles"
	"github.com/JaimeStill/tally/internal/records"
	"github.com/JaimeStill/tally/internal/sessions"
	"github.com/JaimeStill/tally/pkg/repository"
	"github.com/JaimeStill/tally/pkg/schema"
)

// Store is the persistence the pipeline runs against.
type Store interface {
	// ActiveProfile returns profiles.ErrNotFound when the entity has none.
	ActiveProfile(ctx context.Context, entity string) (profiles.Profile, error)
	RecentRecords(ctx context.Context, entity string, limit int) ([]records.Record, error)
	SaveDryRun(ctx context.Context, cmd sessions.DryRunCommand) (sessions.Session, error)
	// Session returns sessions.ErrNotFound for an unknown id.
	Session(ctx context.Context, id uuid.UUID) (sessions.Session, error)

	// WithTx runs fn in one transaction. Nothing fn wrote survives an error.
	// fn may be called again after a transient failure, so it must not
	// carry state between calls.
	WithTx(ctx context.Context, fn func(Tx) error) error
}

// Tx is the set of writes a commit performs atomically.
type Tx interface {
	Lock(ctx context.Context, entity, fileHash string) error
	// Session returns sessions.ErrNotFound when the file was never recorded.
	Session(ctx context.Context, entity, fileHash string) (sessions.Session, error)
	Adopt(ctx context.Context, entity string, fields []schema.Field) (profiles.Profile, error)
	// Upsert reports true when the document created a new record.
	Upsert(ctx context.Context, entity string, doc map[string]any) (bool, error)
	MarkCommitted(ctx context.Context, cmd sessions.CommitCommand) (sessions.Session, error)
}

type pgStore struct {
	db       *sql.DB
	profiles profiles.System
	sessions sessions.System
	records  records.System
}

// NewStore returns the Postgres Store built on the domain systems. Commit
// writes go through their transaction-scoped helpers.
func NewStore(
	db *sql.DB,
	ps profiles.System,
	ss sessions.System,
	rs records.System,
) Store {
	return &pgStore{
		db:       db,
		profiles: ps,
		sessions: ss,
		records:  rs,
	}
}

func (s *pgStore) ActiveProfile(ctx context.Context, entity string) (profiles.Profile, error) {
	p, err := s.profiles.Active(ctx, entity)
	if err != nil {
		return profiles.Profile{}, err
	}
	return *p, nil
}

func (s *pgStore) RecentRecords(ctx context.Context, entity string, limit int) ([]records.Record, error) {
	return s.records.Recent(ctx, entity, limit)
}

func (s *pgStore) SaveDryRun(ctx context.Context, cmd sessions.DryRunCommand) (sessions.Session, error) {
	sess, err := s.sessions.UpsertDryRun(ctx, cmd)
	if err != nil {
		return sessions.Session{}, err
	}
	return *sess, nil
}

func (s *pgStore) Session(ctx context.Context, id uuid.UUID) (sessions.Session, error) {
	sess, err := s.sessions.Find(ctx, id)
	if err != nil {
		return sessions.Session{}, err
	}
	return *sess, nil
}

// txAttempts bounds how often a commit transaction is replayed after a
// serialization failure or deadlock.
const txAttempts = 3

func (s *pgStore) WithTx(ctx context.Context, fn func(Tx) error) error {
	return repository.Retry(ctx, txAttempts, func() error {
		_, err := repository.WithTx(ctx, s.db, func(tx *sql.Tx) (struct{}, error) {
			return struct{}{}, fn(pgTx{tx: tx})
		})
		return err
	})
}

type pgTx struct {
	tx *sql.Tx
}

func (t pgTx) Lock(ctx context.Context, entity, fileHash string) error {
	return sessions.LockTx(ctx, t.tx, entity, fileHash)
}

func (t pgTx) Session(ctx context.Context, entity, fileHash string) (sessions.Session, error) {
	return sessions.FindByHashTx(ctx, t.tx, entity, fileHash)
}

func (t pgTx) Adopt(ctx context.Context, entity string, fields []schema.Field) (profiles.Profile, error) {
	return profiles.AdoptTx(ctx, t.tx, entity, fields)
}

func (t pgTx) Upsert(ctx context.Context, entity string, doc map[string]any) (bool, error) {
	_, inserted, err := records.UpsertTx(ctx, t.tx, entity, doc)
	return inserted, err
}

func (t pgTx) MarkCommitted(ctx context.Context, cmd sessions.CommitCommand) (sessions.Session, error) {
	return sessions.MarkCommittedTx(ctx, t.tx, cmd)
}
