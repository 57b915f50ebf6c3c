package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"birdtag/api/internal/models"
	"birdtag/api/internal/repository"
	"birdtag/api/internal/tags"
)

// Operation mirrors the wire encoding of the tag-management request:
// 0 removes tags, 1 adds them.
type Operation int

const (
	OpRemove Operation = 0
	OpAdd    Operation = 1
)

func (op Operation) String() string {
	if op == OpAdd {
		return "added"
	}
	return "removed"
}

var (
	ErrInvalidAdjustment = errors.New("adjustment count must be a positive integer")
)

type tagStore interface {
	FindByURL(ctx context.Context, url string) (models.MediaRecord, error)
	GetByID(ctx context.Context, fileID string) (models.MediaRecord, error)
	SetTagCounts(ctx context.Context, fileID string, entries []tags.Entry) error
	RemoveTagKeys(ctx context.Context, fileID string, species []string) (bool, error)
	DecrementTag(ctx context.Context, fileID, species string, n int) error
}

type notifier interface {
	Dispatch(ctx context.Context, rec models.MediaRecord, species []string, op Operation)
}

// TagService applies tag mutations across a selection of files. Adds are
// absolute overwrites (tags[species] = count); removes delete the
// species key outright. Both are persisted as store-native partial
// updates so overlapping batches resolve per key instead of clobbering
// whole maps.
type TagService struct {
	media    tagStore
	notifier notifier
	log      zerolog.Logger
}

func NewTagService(media tagStore, notifier notifier, log zerolog.Logger) *TagService {
	return &TagService{
		media:    media,
		notifier: notifier,
		log:      log,
	}
}

// Update runs one add/remove operation per URL, independently. Each
// successfully mutated file triggers the notification fan-out
// asynchronously; fan-out never affects the batch outcome.
func (s *TagService) Update(ctx context.Context, urls []string, op Operation, entries []tags.Entry) BatchResult {
	var result BatchResult

	species := make([]string, 0, len(entries))
	for _, e := range entries {
		species = append(species, e.Species)
	}

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

		if err := s.apply(ctx, rec.FileID, op, entries, species); err != nil {
			s.log.Error().Err(err).Str("url", url).Str("file_id", rec.FileID).Msg("tag update failed")
			result.Errored = append(result.Errored, url)
			continue
		}

		result.Succeeded = append(result.Succeeded, url)

		if s.notifier != nil {
			go s.notifier.Dispatch(context.WithoutCancel(ctx), rec, species, op)
		}
	}

	return result
}

func (s *TagService) apply(ctx context.Context, fileID string, op Operation, entries []tags.Entry, species []string) error {
	if op == OpAdd {
		return s.media.SetTagCounts(ctx, fileID, entries)
	}

	removed, err := s.media.RemoveTagKeys(ctx, fileID, species)
	if err != nil {
		return err
	}
	if !removed {
		// none of the requested species were on the record; nothing was
		// written and that is fine
		s.log.Debug().Str("file_id", fileID).Msg("no matching tags to remove")
	}
	return nil
}

// Decrement lowers a single file's count for one species by n, removing
// the species once the count reaches zero. This is the interactive
// single-file correction flow; the batch path never decrements.
func (s *TagService) Decrement(ctx context.Context, fileID, species string, n int) (models.MediaRecord, error) {
	if species == "" {
		return models.MediaRecord{}, tags.ErrEmptySpecies
	}
	if n <= 0 {
		return models.MediaRecord{}, ErrInvalidAdjustment
	}

	if _, err := s.media.GetByID(ctx, fileID); err != nil {
		return models.MediaRecord{}, err
	}

	if err := s.media.DecrementTag(ctx, fileID, species, n); err != nil {
		return models.MediaRecord{}, fmt.Errorf("decrement tag: %w", err)
	}

	return s.media.GetByID(ctx, fileID)
}
