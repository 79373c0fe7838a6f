package records

import (
	"context"
	"database/sql"
	"encoding/json"
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

// New creates a record repository implementing the System interface.
func New(
	db *sql.DB,
	logger *slog.Logger,
	pagination pagination.Config,
) System {
	return &repo{
		db:         db,
		logger:     logger.With("system", "records"),
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
) (*pagination.PageResult[Record], error) {
	page.Normalize(r.pagination)

	qb := query.
		NewBuilder(projection, defaultSort).
		WhereSearch(page.Search, "NaturalKey")

	filters.Apply(qb)

	if len(page.Sort) > 0 {
		qb.OrderByFields(page.Sort)
	}

	countSQL, countArgs := qb.BuildCount()
	var total int
	if err := r.db.QueryRowContext(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		return nil, fmt.Errorf("count records: %w", err)
	}

	pageSQL, pageArgs := qb.BuildPage(page.Page, page.PageSize)
	items, err := repository.QueryMany(ctx, r.db, pageSQL, pageArgs, scanRecord)
	if err != nil {
		return nil, fmt.Errorf("query records: %w", err)
	}

	result := pagination.NewPageResult(items, total, page.Page, page.PageSize)
	return &result, nil
}

func (r *repo) Find(ctx context.Context, id uuid.UUID) (*Record, error) {
	q, args := query.NewBuilder(projection).BuildSingle("ID", id)

	rec, err := repository.QueryOne(ctx, r.db, q, args, scanRecord)
	if err != nil {
		return nil, repository.MapError(err, ErrNotFound, ErrDuplicate)
	}
	return &rec, nil
}

func (r *repo) Recent(ctx context.Context, entity string, limit int) ([]Record, error) {
	stmt, args := query.
		NewBuilder(projection, defaultSort).
		WhereEquals("Entity", &entity).
		BuildPage(1, limit)

	items, err := repository.QueryMany(ctx, r.db, stmt, args, scanRecord)
	if err != nil {
		return nil, fmt.Errorf("query recent records: %w", err)
	}
	return items, nil
}

// UpsertTx writes doc for entity keyed by KeyFor(doc). An existing record
// has the incoming fields merged over its data and keeps its created_at.
// The returned flag is true when a new row was inserted.
func UpsertTx(ctx context.Context, q repository.Querier, entity string, doc map[string]any) (Record, bool, error) {
	kind, key := KeyFor(doc)

	data, err := json.Marshal(doc)
	if err != nil {
		return Record{}, false, fmt.Errorf("encode record: %w", err)
	}

	stmt := `
		INSERT INTO records(entity, key_kind, natural_key, data)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (entity, key_kind, natural_key) DO UPDATE SET
			data = records.data || EXCLUDED.data,
			updated_at = NOW()
		RETURNING id, entity, key_kind, natural_key, data, created_at, updated_at, (xmax = 0)`

	u, err := repository.QueryOne(ctx, q, stmt, []any{entity, string(kind), key, data}, scanUpserted)
	if err != nil {
		return Record{}, false, repository.MapError(err, ErrNotFound, ErrDuplicate)
	}
	return u.Record, u.inserted, nil
}
