package postgres

import (
	"context"
	"database/sql"

	"briefapi/internal/model"
	"briefapi/internal/repository"
)

// MediaPostgres is a PostgreSQL implementation of repository.MediaRepository.
// It uses database/sql with parameterized queries and contains no business logic.
type MediaPostgres struct {
	db *sql.DB
}

// NewMediaPostgres creates a new MediaPostgres repository.
func NewMediaPostgres(db *sql.DB) *MediaPostgres {
	return &MediaPostgres{db: db}
}

var _ repository.MediaRepository = (*MediaPostgres)(nil)

const mediaColumns = `id, url, bucket, storage_key, mime_type, original_name, size_bytes, owner_id, thumbnail_id, created_at, updated_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanMedia(s scanner) (*model.Media, error) {
	var m model.Media
	if err := s.Scan(
		&m.ID,
		&m.URL,
		&m.Bucket,
		&m.StorageKey,
		&m.MimeType,
		&m.OriginalName,
		&m.SizeBytes,
		&m.OwnerID,
		&m.ThumbnailID,
		&m.CreatedAt,
		&m.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &m, nil
}

// Create inserts a new media row and returns the stored record with its generated ID.
func (r *MediaPostgres) Create(ctx context.Context, m *model.Media) (*model.Media, error) {
	const q = `
		INSERT INTO media (url, bucket, storage_key, mime_type, original_name, size_bytes, owner_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING ` + mediaColumns
	row := r.db.QueryRowContext(ctx, q,
		m.URL,
		m.Bucket,
		m.StorageKey,
		m.MimeType,
		m.OriginalName,
		m.SizeBytes,
		m.OwnerID,
	)
	return scanMedia(row)
}

// FindByID fetches a single media row by its ID.
func (r *MediaPostgres) FindByID(ctx context.Context, id string) (*model.Media, error) {
	const q = `SELECT ` + mediaColumns + ` FROM media WHERE id = $1`
	return scanMedia(r.db.QueryRowContext(ctx, q, id))
}

// List returns media rows using LIMIT/OFFSET pagination and a total count.
func (r *MediaPostgres) List(ctx context.Context, pq repository.PageQuery) (*repository.PageResult[model.Media], error) {
	const qCount = `SELECT COUNT(*) FROM media`
	var total int
	if err := r.db.QueryRowContext(ctx, qCount).Scan(&total); err != nil {
		return nil, err
	}

	const qList = `SELECT ` + mediaColumns + ` FROM media
		ORDER BY created_at DESC, id DESC
		LIMIT $1 OFFSET $2`
	rows, err := r.db.QueryContext(ctx, qList, pq.Limit, pq.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]model.Media, 0)
	for rows.Next() {
		m, err := scanMedia(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return &repository.PageResult[model.Media]{
		Items: items,
		Total: total,
	}, nil
}

// Delete removes a media row by ID. It does not return an error if the row does not exist.
func (r *MediaPostgres) Delete(ctx context.Context, id string) error {
	const q = `DELETE FROM media WHERE id = $1`
	_, err := r.db.ExecContext(ctx, q, id)
	return err
}

// SetThumbnail stores the thumbnail link on the parent row.
func (r *MediaPostgres) SetThumbnail(ctx context.Context, id, thumbnailID string) error {
	const q = `UPDATE media SET thumbnail_id = $2, updated_at = now() WHERE id = $1`
	res, err := r.db.ExecContext(ctx, q, id, thumbnailID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}
