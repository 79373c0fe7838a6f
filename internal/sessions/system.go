package sessions

import (
	"context"

	"github.com/google/uuid"

	"github.com/JaimeStill/tally/pkg/pagination"
)

// System defines the public contract for the import ledger.
type System interface {
	Handler() *Handler

	List(
		ctx context.Context,
		page pagination.PageRequest,
		filters Filters,
	) (*pagination.PageResult[Session], error)

	Find(ctx context.Context, id uuid.UUID) (*Session, error)
	FindByHash(ctx context.Context, entity, fileHash string) (*Session, error)

	// UpsertDryRun creates or refreshes the session for an inspected file.
	// A committed session is returned unchanged.
	UpsertDryRun(ctx context.Context, cmd DryRunCommand) (*Session, error)
}
