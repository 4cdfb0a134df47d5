package server

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrNoImages is returned by Latest when nothing has been uploaded yet.
var ErrNoImages = errors.New("no images found")

// ImageRecord is the persisted reference to a stored image. Records are
// immutable: written once after a successful upload, never updated.
type ImageRecord struct {
	ID        uuid.UUID
	ImageURL  string
	StorageID string
	CreatedAt time.Time
}

// ImageStore persists image records and answers the most-recent query.
// The record table is the single source of truth for /latest-image; the
// object store's own listing is never consulted.
type ImageStore interface {
	Insert(ctx context.Context, rec *ImageRecord) error
	Latest(ctx context.Context) (ImageRecord, error)
}

type pgImageStore struct {
	db *sql.DB
}

// NewImageStore returns an ImageStore backed by the images table.
func NewImageStore(db *sql.DB) ImageStore {
	return &pgImageStore{db: db}
}

func (s *pgImageStore) Insert(ctx context.Context, rec *ImageRecord) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO images (id, image_url, storage_id, created_at)
		VALUES ($1, $2, $3, $4)
	`, rec.ID, rec.ImageURL, rec.StorageID, rec.CreatedAt)
	return err
}

func (s *pgImageStore) Latest(ctx context.Context) (ImageRecord, error) {
	var rec ImageRecord
	err := s.db.QueryRowContext(ctx, `
		SELECT id, image_url, storage_id, created_at
		FROM images
		ORDER BY created_at DESC, id DESC
		LIMIT 1
	`).Scan(&rec.ID, &rec.ImageURL, &rec.StorageID, &rec.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ImageRecord{}, ErrNoImages
		}
		return ImageRecord{}, err
	}
	return rec, nil
}
