package repository

import (
	"context"

	"startup-radar/internal/domain/entity"
)

// StartupRepository persists startups and their founders.
//
// Each call is transactional on its own: Insert and Update cover the startup
// row and its founder rows in a single transaction, so a failure on one
// record never leaves a startup with a half-written founder set.
type StartupRepository interface {
	// FindByIdentity looks up a startup by its stable identity key.
	// Returns (nil, nil) when no startup with that identity exists.
	FindByIdentity(ctx context.Context, source, externalID string) (*entity.Startup, error)
	// Insert creates a new startup together with its founders.
	// The generated ID is written back to the entity.
	Insert(ctx context.Context, s *entity.Startup) error
	// Update overwrites the mutable fields of an existing startup and
	// replaces its founder set wholesale in the same transaction.
	Update(ctx context.Context, s *entity.Startup) error
	// ReplaceFounders deletes and rewrites the founder set of a startup.
	ReplaceFounders(ctx context.Context, startupID int64, founders []entity.Founder) error
	// CountBySource returns the number of stored startups for a source.
	CountBySource(ctx context.Context, source string) (int64, error)
}
