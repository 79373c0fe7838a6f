package imports

import "context"

// System defines the import pipeline.
type System interface {
	Handler(maxUploadSize int64) *Handler

	// Inspect analyzes a file and records a DRY_RUN session. It never
	// writes entity records or profiles.
	Inspect(ctx context.Context, cmd InspectCommand) (*InspectResult, error)

	// Commit applies mapping and duplicate decisions atomically and marks
	// the session COMMITTED.
	Commit(ctx context.Context, cmd CommitCommand) (*CommitResult, error)
}
