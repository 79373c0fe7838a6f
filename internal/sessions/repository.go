package sessions

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/JaimeStill/tally/pkg/pagination"
	"github.com/JaimeStill/tally/pkg/query"
	"github.com/JaimeStill/tally/pkg/repository"
)

type repo struct {
	db         *sql.DB
	logger     *slog.Logger
	pagination pagination.Config
}

// New creates a session repository implementing the System interface.
func New(
	db *sql.DB,
	logger *slog.Logger,
	pagination pagination.Config,
) System {
	return &repo{
		db:         db,
		logger:     logger.With("system", "sessions"),
		pagination: pagination,
	}
}

func (r *repo) Handler() *Handler {
	return NewHandler(r, r.logger, r.pagination)
}

func (r *repo) List(
	ctx context.Context,
	page pagination.PageRequest,
	filters Filters,
) (*pagination.PageResult[Session], error) {
	page.Normalize(r.pagination)

	qb := query.
		NewBuilder(projection, defaultSort).
		WhereSearch(page.Search, "Filename", "FileHash")

	filters.Apply(qb)

	if len(page.Sort) > 0 {
		qb.OrderByFields(page.Sort)
	}

	countSQL, countArgs := qb.BuildCount()
	var total int
	if err := r.db.QueryRowContext(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		return nil, fmt.Errorf("count sessions: %w", err)
	}

	pageSQL, pageArgs := qb.BuildPage(page.Page, page.PageSize)
	items, err := repository.QueryMany(ctx, r.db, pageSQL, pageArgs, scanSession)
	if err != nil {
		return nil, fmt.Errorf("query sessions: %w", err)
	}

	result := pagination.NewPageResult(items, total, page.Page, page.PageSize)
	return &result, nil
}

func (r *repo) Find(ctx context.Context, id uuid.UUID) (*Session, error) {
	q, args := query.NewBuilder(projection).BuildSingle("ID", id)

	s, err := repository.QueryOne(ctx, r.db, q, args, scanSession)
	if err != nil {
		return nil, repository.MapError(err, ErrNotFound, ErrDuplicate)
	}
	return &s, nil
}

func (r *repo) FindByHash(ctx context.Context, entity, fileHash string) (*Session, error) {
	s, err := FindByHashTx(ctx, r.db, entity, fileHash)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *repo) UpsertDryRun(ctx context.Context, cmd DryRunCommand) (*Session, error) {
	s, err := UpsertDryRunTx(ctx, r.db, cmd)
	if err != nil {
		return nil, err
	}

	r.logger.Info(
		"dry run recorded",
		"id", s.ID,
		"entity", s.Entity,
		"file_hash", s.FileHash,
		"status", s.Status,
		"rows", s.Stats.Rows,
	)
	return &s, nil
}

// FindByHashTx loads the session for (entity, fileHash) through q.
func FindByHashTx(ctx context.Context, q repository.Querier, entity, fileHash string) (Session, error) {
	stmt, args := query.
		NewBuilder(projection).
		WhereEquals("Entity", &entity).
		WhereEquals("FileHash", &fileHash).
		BuildSingleOrNull()

	s, err := repository.QueryOne(ctx, q, stmt, args, scanSession)
	if err != nil {
		return Session{}, repository.MapError(err, ErrNotFound, ErrDuplicate)
	}
	return s, nil
}

// UpsertDryRunTx inserts a DRY_RUN session or refreshes the existing one.
// The conflict update only applies while the row is still DRY_RUN, so a
// committed session falls through to a plain read.
func UpsertDryRunTx(ctx context.Context, q repository.Querier, cmd DryRunCommand) (Session, error) {
	stats, err := json.Marshal(cmd.Stats)
	if err != nil {
		return Session{}, fmt.Errorf("encode session stats: %w", err)
	}

	stmt := `
		INSERT INTO import_sessions(entity, file_hash, filename, storage_key, status, stats)
		VALUES ($1, $2, $3, $4, 'DRY_RUN', $5)
		ON CONFLICT (entity, file_hash) DO UPDATE SET
			filename = EXCLUDED.filename,
			storage_key = COALESCE(NULLIF(EXCLUDED.storage_key, ''), import_sessions.storage_key),
			stats = EXCLUDED.stats,
			updated_at = NOW()
		WHERE import_sessions.status = 'DRY_RUN'
		` + returning

	args := []any{cmd.Entity, cmd.FileHash, cmd.Filename, cmd.StorageKey, stats}

	s, err := repository.QueryOne(ctx, q, stmt, args, scanSession)
	if errors.Is(err, sql.ErrNoRows) {
		return FindByHashTx(ctx, q, cmd.Entity, cmd.FileHash)
	}
	if err != nil {
		return Session{}, repository.MapError(err, ErrNotFound, ErrDuplicate)
	}
	return s, nil
}

// MarkCommittedTx moves the session to COMMITTED, creating it when the file
// was never inspected. It fails with ErrAlreadyCommitted when the session
// is already COMMITTED.
func MarkCommittedTx(ctx context.Context, q repository.Querier, cmd CommitCommand) (Session, error) {
	stats, err := json.Marshal(cmd.Stats)
	if err != nil {
		return Session{}, fmt.Errorf("encode session stats: %w", err)
	}

	var decisions any
	if len(cmd.Decisions) > 0 {
		decisions = []byte(cmd.Decisions)
	}

	stmt := `
		INSERT INTO import_sessions(entity, file_hash, filename, storage_key, status, decisions, stats)
		VALUES ($1, $2, $3, $4, 'COMMITTED', $5, $6)
		ON CONFLICT (entity, file_hash) DO UPDATE SET
			status = 'COMMITTED',
			filename = EXCLUDED.filename,
			storage_key = COALESCE(NULLIF(EXCLUDED.storage_key, ''), import_sessions.storage_key),
			decisions = EXCLUDED.decisions,
			stats = EXCLUDED.stats,
			updated_at = NOW()
		WHERE import_sessions.status = 'DRY_RUN'
		` + returning

	args := []any{cmd.Entity, cmd.FileHash, cmd.Filename, cmd.StorageKey, decisions, stats}

	s, err := repository.QueryOne(ctx, q, stmt, args, scanSession)
	if err != nil {
		return Session{}, repository.MapError(err, ErrAlreadyCommitted, ErrDuplicate)
	}
	return s, nil
}

// LockTx takes a transaction-scoped advisory lock on (entity, fileHash) so
// concurrent commits of the same file run one after the other.
func LockTx(ctx context.Context, e repository.Executor, entity, fileHash string) error {
	_, err := e.ExecContext(
		ctx,
		"SELECT pg_advisory_xact_lock(hashtextextended($1, 0))",
		"import_sessions:"+entity+":"+fileHash,
	)
	if err != nil {
		return fmt.Errorf("lock import session: %w", err)
	}
	return nil
}
