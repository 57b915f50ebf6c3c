package queue

import (
	"context"

	"github.com/redis/go-redis/v9"
)

const (
	TaskClassify  = "classify"
	TaskThumbnail = "thumbnail"
	TaskCleanup   = "cleanup"
)

// Producer appends detection-pipeline tasks to the Redis stream the
// worker group consumes. Enqueueing is a dispatch with no completion
// guarantee: callers get an error only if the append itself fails.
type Producer struct {
	client *redis.Client
	stream string
}

func NewProducer(client *redis.Client, stream string) *Producer {
	return &Producer{client: client, stream: stream}
}

func (p *Producer) EnqueueClassify(ctx context.Context, fileID string) error {
	return p.enqueue(ctx, map[string]any{
		"type":   TaskClassify,
		"fileId": fileID,
	})
}

func (p *Producer) EnqueueThumbnail(ctx context.Context, fileID string) error {
	return p.enqueue(ctx, map[string]any{
		"type":   TaskThumbnail,
		"fileId": fileID,
	})
}

func (p *Producer) EnqueueCleanup(ctx context.Context) error {
	return p.enqueue(ctx, map[string]any{
		"type": TaskCleanup,
	})
}

func (p *Producer) enqueue(ctx context.Context, payload map[string]any) error {
	if p.client == nil {
		return nil
	}
	_, err := p.client.XAdd(ctx, &redis.XAddArgs{
		Stream: p.stream,
		Values: payload,
	}).Result()
	return err
}
