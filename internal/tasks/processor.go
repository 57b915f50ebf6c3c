package tasks

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/disintegration/imaging"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"birdtag/api/internal/classify"
	"birdtag/api/internal/models"
	"birdtag/api/internal/queue"
	"birdtag/api/internal/repository"
	"birdtag/api/internal/storage"
)

type Processor struct {
	media      *repository.MediaRepository
	store      *storage.ObjectStore
	classifier classify.Classifier
	producer   *queue.Producer
	thumbWidth int
	pendingTTL time.Duration
	logger     zerolog.Logger
}

type TaskPayload struct {
	Type   string `json:"type"`
	FileID string `json:"fileId"`
}

func NewProcessor(media *repository.MediaRepository, store *storage.ObjectStore, classifier classify.Classifier, producer *queue.Producer, thumbWidth int, pendingTTL time.Duration, logger zerolog.Logger) *Processor {
	return &Processor{
		media:      media,
		store:      store,
		classifier: classifier,
		producer:   producer,
		thumbWidth: thumbWidth,
		pendingTTL: pendingTTL,
		logger:     logger,
	}
}

func (p *Processor) Handle(ctx context.Context, msg redis.XMessage) error {
	var payload TaskPayload
	if err := decodePayload(msg.Values, &payload); err != nil {
		return fmt.Errorf("decode payload: %w", err)
	}

	switch payload.Type {
	case queue.TaskClassify:
		return p.handleClassify(ctx, payload.FileID)
	case queue.TaskThumbnail:
		return p.handleThumbnail(ctx, payload.FileID)
	case queue.TaskCleanup:
		return p.handleCleanup(ctx)
	default:
		p.logger.Warn().Str("type", payload.Type).Msg("unknown task type")
		return nil
	}
}

func decodePayload(values map[string]interface{}, out *TaskPayload) error {
	raw, err := json.Marshal(values)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, out)
}

// handleClassify runs the detection model against one uploaded file and
// stores the resulting species counts. A classifier failure is terminal
// for the file: the record moves to status error rather than the task
// being retried forever.
func (p *Processor) handleClassify(ctx context.Context, fileID string) error {
	rec, err := p.media.GetByID(ctx, fileID)
	if err != nil {
		if errors.Is(err, repository.ErrMediaNotFound) {
			p.logger.Warn().Str("file_id", fileID).Msg("classify task for missing record")
			return nil
		}
		return fmt.Errorf("load record: %w", err)
	}

	detected, err := p.classifier.Detect(ctx, classify.Request{
		FileID:   rec.FileID,
		S3URL:    rec.S3URL,
		FileType: string(rec.FileType),
	})
	if err != nil {
		p.logger.Error().Err(err).Str("file_id", fileID).Msg("classification failed")
		if markErr := p.media.MarkDetectionError(ctx, fileID); markErr != nil {
			return fmt.Errorf("mark detection error: %w", markErr)
		}
		return nil
	}

	if err := p.media.SetDetectionResult(ctx, fileID, detected); err != nil {
		return fmt.Errorf("store detection result: %w", err)
	}

	p.logger.Info().
		Str("file_id", fileID).
		Int("species", len(detected)).
		Msg("classification stored")

	if rec.FileType == models.FileTypeImage {
		if err := p.producer.EnqueueThumbnail(ctx, fileID); err != nil {
			p.logger.Error().Err(err).Str("file_id", fileID).Msg("enqueue thumbnail failed")
		}
	}
	return nil
}

func (p *Processor) handleThumbnail(ctx context.Context, fileID string) error {
	rec, err := p.media.GetByID(ctx, fileID)
	if err != nil {
		if errors.Is(err, repository.ErrMediaNotFound) {
			p.logger.Warn().Str("file_id", fileID).Msg("thumbnail task for missing record")
			return nil
		}
		return fmt.Errorf("load record: %w", err)
	}
	if rec.FileType != models.FileTypeImage {
		return nil
	}

	key, err := p.store.KeyFromURL(rec.S3URL)
	if err != nil {
		return fmt.Errorf("parse object key: %w", err)
	}

	reader, err := p.store.Get(ctx, key)
	if err != nil {
		return fmt.Errorf("fetch original: %w", err)
	}
	defer reader.Close()

	src, err := imaging.Decode(reader)
	if err != nil {
		return fmt.Errorf("decode image: %w", err)
	}

	filename := path.Base(key)
	format, err := imaging.FormatFromFilename(filename)
	if err != nil {
		format = imaging.JPEG
	}

	thumb := imaging.Resize(src, p.thumbWidth, 0, imaging.Lanczos)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, thumb, format); err != nil {
		return fmt.Errorf("encode thumbnail: %w", err)
	}

	thumbKey := p.store.ThumbKey(filename)
	contentType := "image/" + strings.ToLower(format.String())
	if err := p.store.Put(ctx, thumbKey, &buf, int64(buf.Len()), contentType); err != nil {
		return fmt.Errorf("store thumbnail: %w", err)
	}

	if err := p.media.SetThumbnailURL(ctx, fileID, p.store.PublicURL(thumbKey)); err != nil {
		return fmt.Errorf("record thumbnail url: %w", err)
	}

	p.logger.Info().Str("file_id", fileID).Str("key", thumbKey).Msg("thumbnail stored")
	return nil
}

// handleCleanup removes records stuck pending past the TTL; their
// uploads either never arrived or never got polled for.
func (p *Processor) handleCleanup(ctx context.Context) error {
	cutoff := time.Now().Add(-p.pendingTTL)
	stale, err := p.media.ListStalePending(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("list stale pending: %w", err)
	}

	removed := 0
	for _, rec := range stale {
		if key, err := p.store.KeyFromURL(rec.S3URL); err == nil {
			if err := p.store.Delete(ctx, key); err != nil {
				p.logger.Error().Err(err).Str("file_id", rec.FileID).Msg("stale blob delete failed")
				continue
			}
		}
		if err := p.media.Delete(ctx, rec.FileID); err != nil {
			p.logger.Error().Err(err).Str("file_id", rec.FileID).Msg("stale record delete failed")
			continue
		}
		removed++
	}

	p.logger.Info().Int("removed", removed).Int("stale", len(stale)).Msg("cleanup finished")
	return nil
}
