package profiles

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/JaimeStill/tally/pkg/pagination"
	"github.com/JaimeStill/tally/pkg/query"
	"github.com/JaimeStill/tally/pkg/repository"
	"github.com/JaimeStill/tally/pkg/schema"
)

type repo struct {
	db         *sql.DB
	logger     *slog.Logger
	pagination pagination.Config
}

// New creates a profile repository implementing the System interface.
func New(
	db *sql.DB,
	logger *slog.Logger,
	pagination pagination.Config,
) System {
	return &repo{
		db:         db,
		logger:     logger.With("system", "profiles"),
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
) (*pagination.PageResult[Profile], error) {
	page.Normalize(r.pagination)

	qb := query.
		NewBuilder(projection, defaultSort...).
		WhereSearch(page.Search, "Entity")

	filters.Apply(qb)

	if len(page.Sort) > 0 {
		qb.OrderByFields(page.Sort)
	}

	countSQL, countArgs := qb.BuildCount()
	var total int
	if err := r.db.QueryRowContext(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		return nil, fmt.Errorf("count profiles: %w", err)
	}

	pageSQL, pageArgs := qb.BuildPage(page.Page, page.PageSize)
	profiles, err := repository.QueryMany(ctx, r.db, pageSQL, pageArgs, scanProfile)
	if err != nil {
		return nil, fmt.Errorf("query profiles: %w", err)
	}

	result := pagination.NewPageResult(profiles, total, page.Page, page.PageSize)
	return &result, nil
}

func (r *repo) Find(ctx context.Context, id uuid.UUID) (*Profile, error) {
	q, args := query.NewBuilder(projection).BuildSingle("ID", id)

	p, err := repository.QueryOne(ctx, r.db, q, args, scanProfile)
	if err != nil {
		return nil, repository.MapError(err, ErrNotFound, ErrDuplicate)
	}
	return &p, nil
}

func (r *repo) Active(ctx context.Context, entity string) (*Profile, error) {
	p, err := ActiveTx(ctx, r.db, entity)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *repo) Adopt(ctx context.Context, cmd AdoptCommand) (*Profile, error) {
	p, err := repository.WithTx(ctx, r.db, func(tx *sql.Tx) (Profile, error) {
		return AdoptTx(ctx, tx, cmd.Entity, cmd.Fields)
	})
	if err != nil {
		return nil, err
	}

	r.logger.Info(
		"profile adopted",
		"id", p.ID,
		"entity", p.Entity,
		"version", p.Version,
		"fields", len(p.Fields),
	)
	return &p, nil
}

// ActiveTx loads the entity's active profile through q, which may be the
// pool or an open transaction.
func ActiveTx(ctx context.Context, q repository.Querier, entity string) (Profile, error) {
	active := true
	stmt, args := query.
		NewBuilder(projection).
		WhereEquals("Entity", &entity).
		WhereEquals("Active", &active).
		BuildSingleOrNull()

	p, err := repository.QueryOne(ctx, q, stmt, args, scanProfile)
	if err != nil {
		return Profile{}, repository.MapError(err, ErrNotFound, ErrDuplicate)
	}
	return p, nil
}

// AdoptTx deactivates the entity's current profile and inserts fields as the
// next version inside tx. Concurrent adoptions for one entity serialize on a
// transaction-scoped advisory lock.
func AdoptTx(ctx context.Context, tx *sql.Tx, entity string, fields []schema.Field) (Profile, error) {
	entity = strings.TrimSpace(entity)
	fields = schema.Dedupe(fields)
	if entity == "" || len(fields) == 0 {
		return Profile{}, ErrInvalidProfile
	}
	for i := range fields {
		if fields[i].Type == "" {
			fields[i].Type = schema.TypeString
		}
	}

	data, err := json.Marshal(fields)
	if err != nil {
		return Profile{}, fmt.Errorf("encode profile fields: %w", err)
	}

	if _, err := tx.ExecContext(
		ctx,
		"SELECT pg_advisory_xact_lock(hashtextextended($1, 0))",
		"schema_profiles:"+entity,
	); err != nil {
		return Profile{}, fmt.Errorf("lock entity profiles: %w", err)
	}

	if _, err := tx.ExecContext(
		ctx,
		"UPDATE schema_profiles SET active = false WHERE entity = $1 AND active = true",
		entity,
	); err != nil {
		return Profile{}, fmt.Errorf("deactivate current: %w", err)
	}

	insertQ := `
		INSERT INTO schema_profiles(entity, version, fields, active)
		SELECT $1::text, COALESCE(MAX(version), 0) + 1, $2::jsonb, true
		FROM schema_profiles
		WHERE entity = $1
		RETURNING id, entity, version, fields, active, created_at`

	p, err := repository.QueryOne(ctx, tx, insertQ, []any{entity, data}, scanProfile)
	if err != nil {
		return Profile{}, repository.MapError(err, ErrNotFound, ErrDuplicate)
	}
	return p, nil
}
