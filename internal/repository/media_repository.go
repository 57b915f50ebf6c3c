package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"birdtag/api/internal/models"
	"birdtag/api/internal/tags"
)

var ErrMediaNotFound = errors.New("media record not found")

const mediaColumns = `file_id, s3_url, thumbnail_url, file_type, status, tags, created_at, updated_at`

type MediaRepository struct {
	pool *pgxpool.Pool
}

func NewMediaRepository(pool *pgxpool.Pool) *MediaRepository {
	return &MediaRepository{pool: pool}
}

func (r *MediaRepository) Create(ctx context.Context, rec models.MediaRecord) error {
	tagsJSON, err := marshalTags(rec.Tags)
	if err != nil {
		return err
	}

	const query = `
		INSERT INTO media (file_id, s3_url, thumbnail_url, file_type, status, tags, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6::jsonb, NOW(), NOW())
	`
	_, err = r.pool.Exec(ctx, query,
		rec.FileID,
		rec.S3URL,
		rec.ThumbnailURL,
		rec.FileType,
		rec.Status,
		tagsJSON,
	)
	return err
}

func (r *MediaRepository) GetByID(ctx context.Context, fileID string) (models.MediaRecord, error) {
	query := `SELECT ` + mediaColumns + ` FROM media WHERE file_id = $1`
	return r.queryOne(ctx, query, fileID)
}

// FindByURL resolves a client-supplied URL to its owning record. The
// lookup is a single OR over both URL columns: either the full asset URL
// or the thumbnail URL reaches the same record.
func (r *MediaRepository) FindByURL(ctx context.Context, url string) (models.MediaRecord, error) {
	query := `SELECT ` + mediaColumns + ` FROM media WHERE s3_url = $1 OR thumbnail_url = $1 LIMIT 1`
	return r.queryOne(ctx, query, url)
}

func (r *MediaRepository) List(ctx context.Context, limit, offset int) ([]models.MediaRecord, error) {
	query := `SELECT ` + mediaColumns + ` FROM media ORDER BY created_at DESC LIMIT $1 OFFSET $2`
	return r.queryMany(ctx, query, limit, offset)
}

// ListWithAllSpecies returns records whose tag map contains every one of
// the given species keys. Count thresholds are applied by the caller.
func (r *MediaRepository) ListWithAllSpecies(ctx context.Context, species []string) ([]models.MediaRecord, error) {
	query := `SELECT ` + mediaColumns + ` FROM media WHERE tags ?& $1::text[] ORDER BY created_at DESC`
	return r.queryMany(ctx, query, species)
}

// ListWithAnySpecies returns records whose tag map contains at least one
// of the given species keys. Stored counts are always >= 1, so key
// presence alone decides the match.
func (r *MediaRepository) ListWithAnySpecies(ctx context.Context, species []string) ([]models.MediaRecord, error) {
	query := `SELECT ` + mediaColumns + ` FROM media WHERE tags ?| $1::text[] ORDER BY created_at DESC`
	return r.queryMany(ctx, query, species)
}

// SetTagCounts overwrites each entry's species with its absolute count,
// as a single store-native partial update. Untouched species keep their
// values; overlapping concurrent updates resolve key by key rather than
// losing the whole map.
func (r *MediaRepository) SetTagCounts(ctx context.Context, fileID string, entries []tags.Entry) error {
	patch := make(map[string]int, len(entries))
	for _, e := range entries {
		patch[e.Species] = e.Count
	}
	patchJSON, err := marshalTags(patch)
	if err != nil {
		return err
	}

	const query = `UPDATE media SET tags = tags || $2::jsonb, updated_at = NOW() WHERE file_id = $1`
	tag, err := r.pool.Exec(ctx, query, fileID, patchJSON)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrMediaNotFound
	}
	return nil
}

// RemoveTagKeys deletes the given species keys from the record's tag map.
// When none of the keys are present the guard clause keeps the statement
// from touching the row at all; that case reports removed=false and is
// not an error.
func (r *MediaRepository) RemoveTagKeys(ctx context.Context, fileID string, species []string) (bool, error) {
	const query = `
		UPDATE media
		SET tags = tags - $2::text[], updated_at = NOW()
		WHERE file_id = $1 AND tags ?| $2::text[]
	`
	tag, err := r.pool.Exec(ctx, query, fileID, species)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// DecrementTag lowers one species count by n, removing the key entirely
// when the count reaches zero. Absent species are left alone.
func (r *MediaRepository) DecrementTag(ctx context.Context, fileID, species string, n int) error {
	const query = `
		UPDATE media
		SET tags = CASE
			WHEN COALESCE((tags->>$2)::int, 0) - $3 <= 0 THEN tags - $2
			ELSE jsonb_set(tags, ARRAY[$2], to_jsonb(COALESCE((tags->>$2)::int, 0) - $3))
		END,
		updated_at = NOW()
		WHERE file_id = $1 AND tags ? $2
	`
	_, err := r.pool.Exec(ctx, query, fileID, species, n)
	return err
}

// MarkProcessing advances a pending record to processing. The conditional
// update is the single gate that lets exactly one caller win the
// transition and trigger the detection job.
func (r *MediaRepository) MarkProcessing(ctx context.Context, fileID string) (bool, error) {
	const query = `
		UPDATE media SET status = 'processing', updated_at = NOW()
		WHERE file_id = $1 AND status = 'pending'
	`
	tag, err := r.pool.Exec(ctx, query, fileID)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

// SetDetectionResult stores the classifier output and completes the
// record. Status only moves forward: a record already done or errored is
// left untouched.
func (r *MediaRepository) SetDetectionResult(ctx context.Context, fileID string, detected map[string]int) error {
	tagsJSON, err := marshalTags(detected)
	if err != nil {
		return err
	}

	const query = `
		UPDATE media SET tags = $2::jsonb, status = 'done', updated_at = NOW()
		WHERE file_id = $1 AND status = 'processing'
	`
	_, err = r.pool.Exec(ctx, query, fileID, tagsJSON)
	return err
}

func (r *MediaRepository) MarkDetectionError(ctx context.Context, fileID string) error {
	const query = `
		UPDATE media SET status = 'error', updated_at = NOW()
		WHERE file_id = $1 AND status IN ('pending', 'processing')
	`
	_, err := r.pool.Exec(ctx, query, fileID)
	return err
}

func (r *MediaRepository) SetThumbnailURL(ctx context.Context, fileID, url string) error {
	const query = `UPDATE media SET thumbnail_url = $2, updated_at = NOW() WHERE file_id = $1`
	_, err := r.pool.Exec(ctx, query, fileID, url)
	return err
}

// ListStalePending returns records that never left pending before the
// cutoff; the janitor removes them together with their blobs.
func (r *MediaRepository) ListStalePending(ctx context.Context, cutoff time.Time) ([]models.MediaRecord, error) {
	query := `SELECT ` + mediaColumns + ` FROM media WHERE status = 'pending' AND created_at < $1`
	return r.queryMany(ctx, query, cutoff)
}

func (r *MediaRepository) Delete(ctx context.Context, fileID string) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM media WHERE file_id = $1`, fileID)
	return err
}

func (r *MediaRepository) queryOne(ctx context.Context, query string, args ...any) (models.MediaRecord, error) {
	row := r.pool.QueryRow(ctx, query, args...)
	rec, err := scanMedia(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.MediaRecord{}, ErrMediaNotFound
		}
		return models.MediaRecord{}, err
	}
	return rec, nil
}

func (r *MediaRepository) queryMany(ctx context.Context, query string, args ...any) ([]models.MediaRecord, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []models.MediaRecord
	for rows.Next() {
		rec, err := scanMedia(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

func scanMedia(row pgx.Row) (models.MediaRecord, error) {
	var rec models.MediaRecord
	var tagsJSON []byte
	if err := row.Scan(
		&rec.FileID,
		&rec.S3URL,
		&rec.ThumbnailURL,
		&rec.FileType,
		&rec.Status,
		&tagsJSON,
		&rec.CreatedAt,
		&rec.UpdatedAt,
	); err != nil {
		return models.MediaRecord{}, err
	}

	rec.Tags = map[string]int{}
	if len(tagsJSON) > 0 {
		if err := json.Unmarshal(tagsJSON, &rec.Tags); err != nil {
			return models.MediaRecord{}, fmt.Errorf("decode tags for %s: %w", rec.FileID, err)
		}
	}
	return rec, nil
}

func marshalTags(m map[string]int) ([]byte, error) {
	if m == nil {
		m = map[string]int{}
	}
	data, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("encode tags: %w", err)
	}
	return data, nil
}
