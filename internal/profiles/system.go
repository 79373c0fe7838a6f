package profiles

import (
	"context"

	"github.com/google/uuid"

	"github.com/JaimeStill/tally/pkg/pagination"
)

// System defines the public contract for schema profile operations.
type System interface {
	Handler() *Handler

	List(
		ctx context.Context,
		page pagination.PageRequest,
		filters Filters,
	) (*pagination.PageResult[Profile], error)

	Find(ctx context.Context, id uuid.UUID) (*Profile, error)

	// Active returns the entity's active profile, or ErrNotFound when the
	// entity has never adopted one.
	Active(ctx context.Context, entity string) (*Profile, error)

	// Adopt appends a new version and makes it the only active one.
	Adopt(ctx context.Context, cmd AdoptCommand) (*Profile, error)
}
