package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"birdtag/api/internal/models"
)

var (
	// ErrUploadMissing means the record exists but its blob never arrived;
	// the caller should upload again.
	ErrUploadMissing = errors.New("uploaded file missing from storage")
	// ErrDetectionFailed is the stored terminal error state of the
	// detection pipeline. The gate never retries it.
	ErrDetectionFailed = errors.New("detection processing failed")
)

type PollState int

const (
	PollInProgress PollState = iota
	PollDone
)

type PollResult struct {
	State PollState
	Tags  map[string]int
}

type detectStore interface {
	FindByURL(ctx context.Context, url string) (models.MediaRecord, error)
	MarkProcessing(ctx context.Context, fileID string) (bool, error)
}

type blobGateway interface {
	Exists(ctx context.Context, key string) (bool, error)
	UploadKey(filename string) string
	PublicURL(key string) string
}

type detectQueue interface {
	EnqueueClassify(ctx context.Context, fileID string) error
}

// DetectService gates the "search by newly uploaded file" polling loop.
// Repeated and concurrent polls are expected; the pending→processing
// transition in the store is the single point that lets exactly one poll
// trigger the classification job.
type DetectService struct {
	media detectStore
	blobs blobGateway
	queue detectQueue
	log   zerolog.Logger
}

func NewDetectService(media detectStore, blobs blobGateway, queue detectQueue, log zerolog.Logger) *DetectService {
	return &DetectService{
		media: media,
		blobs: blobs,
		queue: queue,
		log:   log,
	}
}

// PollOrTrigger reports the detection state for an uploaded file. On the
// first poll of a pending record with its blob in place, it kicks off
// the classification job (dispatch only, no completion guarantee) and
// reports in-progress; the caller re-polls until done or error.
func (s *DetectService) PollOrTrigger(ctx context.Context, filename string) (PollResult, error) {
	key := s.blobs.UploadKey(filename)
	rec, err := s.media.FindByURL(ctx, s.blobs.PublicURL(key))
	if err != nil {
		return PollResult{}, err
	}

	switch rec.Status {
	case models.MediaStatusError:
		return PollResult{}, ErrDetectionFailed

	case models.MediaStatusDone:
		return PollResult{State: PollDone, Tags: rec.Tags}, nil

	case models.MediaStatusPending:
		exists, err := s.blobs.Exists(ctx, key)
		if err != nil {
			return PollResult{}, fmt.Errorf("check upload: %w", err)
		}
		if !exists {
			return PollResult{}, ErrUploadMissing
		}

		won, err := s.media.MarkProcessing(ctx, rec.FileID)
		if err != nil {
			return PollResult{}, fmt.Errorf("mark processing: %w", err)
		}
		if won {
			if err := s.queue.EnqueueClassify(ctx, rec.FileID); err != nil {
				s.log.Error().Err(err).Str("file_id", rec.FileID).Msg("enqueue classify failed")
			}
		}
		return PollResult{State: PollInProgress}, nil

	default: // processing
		return PollResult{State: PollInProgress}, nil
	}
}
