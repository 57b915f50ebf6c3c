package service

import (
	"context"
	"errors"

	"github.com/rs/zerolog"

	"birdtag/api/internal/models"
	"birdtag/api/internal/repository"
)

type deleteStore interface {
	FindByURL(ctx context.Context, url string) (models.MediaRecord, error)
	Delete(ctx context.Context, fileID string) error
}

type blobDeleter interface {
	Delete(ctx context.Context, key string) error
	KeyFromURL(rawURL string) (string, error)
}

// DeleteService removes media records together with their stored blobs.
// A record and its blobs go away as one operation; a blob that is
// already absent counts as deleted.
type DeleteService struct {
	media deleteStore
	blobs blobDeleter
	log   zerolog.Logger
}

func NewDeleteService(media deleteStore, blobs blobDeleter, log zerolog.Logger) *DeleteService {
	return &DeleteService{
		media: media,
		blobs: blobs,
		log:   log,
	}
}

// DeleteByURLs resolves each URL to its record, deletes the full asset
// and the thumbnail (once each, never twice when they coincide), then
// the record itself.
func (s *DeleteService) DeleteByURLs(ctx context.Context, urls []string) BatchResult {
	var result BatchResult

	for _, url := range urls {
		rec, err := s.media.FindByURL(ctx, url)
		if err != nil {
			if errors.Is(err, repository.ErrMediaNotFound) {
				s.log.Debug().Str("url", url).Msg("no record for url")
				result.NotFound = append(result.NotFound, url)
			} else {
				s.log.Error().Err(err).Str("url", url).Msg("resolve failed")
				result.Errored = append(result.Errored, url)
			}
			continue
		}

		if s.deleteRecord(ctx, rec) {
			result.Succeeded = append(result.Succeeded, url)
		} else {
			result.Errored = append(result.Errored, url)
		}
	}

	return result
}

func (s *DeleteService) deleteRecord(ctx context.Context, rec models.MediaRecord) bool {
	ok := true

	if rec.S3URL != "" {
		if !s.deleteBlob(ctx, rec.FileID, rec.S3URL) {
			ok = false
		}
	}
	if rec.ThumbnailURL != nil && *rec.ThumbnailURL != "" && *rec.ThumbnailURL != rec.S3URL {
		if !s.deleteBlob(ctx, rec.FileID, *rec.ThumbnailURL) {
			ok = false
		}
	}

	if err := s.media.Delete(ctx, rec.FileID); err != nil {
		s.log.Error().Err(err).Str("file_id", rec.FileID).Msg("delete record failed")
		ok = false
	}

	return ok
}

func (s *DeleteService) deleteBlob(ctx context.Context, fileID, url string) bool {
	key, err := s.blobs.KeyFromURL(url)
	if err != nil {
		s.log.Error().Err(err).Str("file_id", fileID).Str("url", url).Msg("bad asset url")
		return false
	}
	if err := s.blobs.Delete(ctx, key); err != nil {
		s.log.Error().Err(err).Str("file_id", fileID).Str("key", key).Msg("delete blob failed")
		return false
	}
	return true
}
