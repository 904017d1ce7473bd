package repository

import (
	"context"

	"briefapi/internal/model"
)

// MediaRepository is the metadata store for stored objects.
// It is strictly persistence; no business logic here.
type MediaRepository interface {
	// Create inserts a media row. The ID is assigned by the database and the
	// stored row (including timestamps) is returned.
	Create(ctx context.Context, m *model.Media) (*model.Media, error)

	// FindByID returns a media row by its ID, or sql.ErrNoRows.
	FindByID(ctx context.Context, id string) (*model.Media, error)

	// List returns a page of media rows, newest first, and the total count.
	List(ctx context.Context, pq PageQuery) (*PageResult[model.Media], error)

	// Delete removes a media row by ID. Missing rows are not an error.
	Delete(ctx context.Context, id string) error

	// SetThumbnail links a derived thumbnail row to its parent.
	// It returns sql.ErrNoRows when the parent does not exist.
	SetThumbnail(ctx context.Context, id, thumbnailID string) error
}
