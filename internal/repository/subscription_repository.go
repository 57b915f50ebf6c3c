package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"birdtag/api/internal/models"
)

var ErrChannelNotFound = errors.New("notification channel not found")

// SubscriptionRepository backs the per-species notification channels.
// A channel row is created the first time anyone subscribes to the
// species and is never deleted, so existence and subscriber count are
// separate questions.
type SubscriptionRepository struct {
	pool *pgxpool.Pool
}

func NewSubscriptionRepository(pool *pgxpool.Pool) *SubscriptionRepository {
	return &SubscriptionRepository{pool: pool}
}

func (r *SubscriptionRepository) Subscribe(ctx context.Context, channel, species, email string) error {
	const ensureChannel = `
		INSERT INTO notification_channels (name, species, created_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (name) DO NOTHING
	`
	if _, err := r.pool.Exec(ctx, ensureChannel, channel, species); err != nil {
		return err
	}

	const subscribe = `
		INSERT INTO subscriptions (channel, email, created_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (channel, email) DO NOTHING
	`
	_, err := r.pool.Exec(ctx, subscribe, channel, email)
	return err
}

func (r *SubscriptionRepository) Unsubscribe(ctx context.Context, channel, email string) error {
	const query = `DELETE FROM subscriptions WHERE channel = $1 AND email = $2`
	_, err := r.pool.Exec(ctx, query, channel, email)
	return err
}

func (r *SubscriptionRepository) GetChannel(ctx context.Context, name string) (models.Channel, error) {
	const query = `SELECT name, species, created_at FROM notification_channels WHERE name = $1`
	var ch models.Channel
	if err := r.pool.QueryRow(ctx, query, name).Scan(&ch.Name, &ch.Species, &ch.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Channel{}, ErrChannelNotFound
		}
		return models.Channel{}, err
	}
	return ch, nil
}

func (r *SubscriptionRepository) CountSubscribers(ctx context.Context, channel string) (int, error) {
	const query = `SELECT COUNT(*) FROM subscriptions WHERE channel = $1`
	var count int
	if err := r.pool.QueryRow(ctx, query, channel).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

// ListSpeciesByEmail returns the species a subscriber is signed up for.
func (r *SubscriptionRepository) ListSpeciesByEmail(ctx context.Context, email string) ([]string, error) {
	const query = `
		SELECT c.species
		FROM subscriptions s
		JOIN notification_channels c ON c.name = s.channel
		WHERE s.email = $1
		ORDER BY c.species
	`
	rows, err := r.pool.Query(ctx, query, email)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var species []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, err
		}
		species = append(species, s)
	}
	return species, rows.Err()
}
