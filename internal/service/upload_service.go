package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"birdtag/api/internal/ids"
	"birdtag/api/internal/models"
)

var ErrUnsupportedType = errors.New("unsupported content type")

var extByContentType = map[string]string{
	"image/png":  ".png",
	"image/jpeg": ".jpg",
	"image/jpg":  ".jpg",
	"image/gif":  ".gif",
	"image/webp": ".webp",
	"video/mp4":  ".mp4",
	"video/mov":  ".mov",
	"video/avi":  ".avi",
	"audio/mp3":  ".mp3",
	"audio/mpeg": ".mp3",
	"audio/wav":  ".wav",
	"audio/ogg":  ".ogg",
	"audio/m4a":  ".m4a",
	"audio/aac":  ".aac",
}

type uploadStore interface {
	Create(ctx context.Context, rec models.MediaRecord) error
}

type uploadBlobs interface {
	UploadKey(filename string) string
	PublicURL(key string) string
	PresignedPut(ctx context.Context, key string, ttl time.Duration) (string, error)
}

type UploadResult struct {
	UploadURL string
	FilePath  string
}

// UploadService hands out presigned upload URLs. The client PUTs the
// bytes straight to the object store; this service only registers the
// pending record the detection pipeline will later fill in.
type UploadService struct {
	media      uploadStore
	blobs      uploadBlobs
	presignTTL time.Duration
	log        zerolog.Logger
}

func NewUploadService(media uploadStore, blobs uploadBlobs, presignTTL time.Duration, log zerolog.Logger) *UploadService {
	return &UploadService{
		media:      media,
		blobs:      blobs,
		presignTTL: presignTTL,
		log:        log,
	}
}

func (s *UploadService) CreateUpload(ctx context.Context, contentType string) (UploadResult, error) {
	ext, ok := extByContentType[strings.ToLower(contentType)]
	if !ok {
		return UploadResult{}, ErrUnsupportedType
	}
	fileType, err := fileTypeOf(contentType)
	if err != nil {
		return UploadResult{}, err
	}

	filename := ids.New() + ext
	key := s.blobs.UploadKey(filename)

	rec := models.MediaRecord{
		FileID:   ids.New(),
		S3URL:    s.blobs.PublicURL(key),
		FileType: fileType,
		Status:   models.MediaStatusPending,
		Tags:     map[string]int{},
	}
	if err := s.media.Create(ctx, rec); err != nil {
		return UploadResult{}, fmt.Errorf("register upload: %w", err)
	}

	uploadURL, err := s.blobs.PresignedPut(ctx, key, s.presignTTL)
	if err != nil {
		return UploadResult{}, fmt.Errorf("presign upload: %w", err)
	}

	s.log.Info().
		Str("file_id", rec.FileID).
		Str("file_type", string(fileType)).
		Str("key", key).
		Msg("upload registered")

	return UploadResult{
		UploadURL: uploadURL,
		FilePath:  filename,
	}, nil
}

func fileTypeOf(contentType string) (models.FileType, error) {
	switch {
	case contentType == "":
		return "", ErrUnsupportedType
	case strings.HasPrefix(strings.ToLower(contentType), "image/"):
		return models.FileTypeImage, nil
	case strings.HasPrefix(strings.ToLower(contentType), "video/"):
		return models.FileTypeVideo, nil
	case strings.HasPrefix(strings.ToLower(contentType), "audio/"):
		return models.FileTypeAudio, nil
	default:
		return "", ErrUnsupportedType
	}
}
