package service

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"birdtag/api/internal/models"
	"birdtag/api/internal/repository"
	"birdtag/api/internal/tags"
)

type channelDirectory interface {
	GetChannel(ctx context.Context, name string) (models.Channel, error)
	CountSubscribers(ctx context.Context, name string) (int, error)
}

type publisher interface {
	Publish(ctx context.Context, channel string, payload []byte) error
}

// NotificationMessage is the payload published per (species, file) pair.
type NotificationMessage struct {
	FileID    string `json:"fileId"`
	FileType  string `json:"fileType"`
	Species   string `json:"species"`
	Operation string `json:"operation"`
	URL       string `json:"url"`
}

// NotifyService fans a tag mutation out to per-species channels.
// Delivery is best effort: a channel that does not exist or has no
// subscribers is skipped silently, and one species' failure never stops
// the others. Nothing here ever reaches the tag-mutation caller.
type NotifyService struct {
	channels channelDirectory
	pub      publisher
	prefix   string
	timeout  time.Duration
	log      zerolog.Logger
}

func NewNotifyService(channels channelDirectory, pub publisher, prefix string, log zerolog.Logger) *NotifyService {
	return &NotifyService{
		channels: channels,
		pub:      pub,
		prefix:   prefix,
		timeout:  30 * time.Second,
		log:      log,
	}
}

// ChannelName derives the deterministic channel identifier for a species.
func (s *NotifyService) ChannelName(species string) string {
	return s.prefix + tags.Slug(species)
}

// Dispatch publishes one message per species referencing the file. The
// thumbnail URL is preferred when the record has one.
func (s *NotifyService) Dispatch(ctx context.Context, rec models.MediaRecord, species []string, op Operation) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	for _, sp := range species {
		if err := s.dispatchOne(ctx, rec, sp, op); err != nil {
			s.log.Warn().Err(err).
				Str("file_id", rec.FileID).
				Str("species", sp).
				Msg("notification dropped")
		}
	}
}

func (s *NotifyService) dispatchOne(ctx context.Context, rec models.MediaRecord, species string, op Operation) error {
	name := s.ChannelName(species)

	if _, err := s.channels.GetChannel(ctx, name); err != nil {
		if errors.Is(err, repository.ErrChannelNotFound) {
			s.log.Debug().Str("channel", name).Msg("no channel for species")
			return nil
		}
		return err
	}

	count, err := s.channels.CountSubscribers(ctx, name)
	if err != nil {
		return err
	}
	if count == 0 {
		s.log.Debug().Str("channel", name).Msg("channel has no subscribers")
		return nil
	}

	msg := NotificationMessage{
		FileID:    rec.FileID,
		FileType:  string(rec.FileType),
		Species:   species,
		Operation: op.String(),
		URL:       rec.Link(),
	}
	payload, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	if err := s.pub.Publish(ctx, name, payload); err != nil {
		return err
	}

	s.log.Info().
		Str("channel", name).
		Str("file_id", rec.FileID).
		Str("operation", msg.Operation).
		Msg("notification published")
	return nil
}

// RedisPublisher delivers notification messages over Redis pub/sub.
type RedisPublisher struct {
	client *redis.Client
}

func NewRedisPublisher(client *redis.Client) *RedisPublisher {
	return &RedisPublisher{client: client}
}

func (p *RedisPublisher) Publish(ctx context.Context, channel string, payload []byte) error {
	return p.client.Publish(ctx, channel, payload).Err()
}
