package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Vodeneev/scratchiq/internal/pkg/models"
)

// DefaultStreamMaxLen caps each jurisdiction stream (approximate trimming)
const DefaultStreamMaxLen = 10_000

// StreamKey returns the stream a jurisdiction's game updates go to
func StreamKey(j models.Jurisdiction) string {
	return fmt.Sprintf("scratchoff.games.%s", j)
}

// NewRedisClient connects to Redis and checks the connection
func NewRedisClient(addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return client, nil
}

// StreamPublisher publishes scraped games to per-jurisdiction Redis streams
type StreamPublisher struct {
	client *redis.Client
	maxLen int64
}

// NewStreamPublisher creates a new stream publisher. maxLen <= 0 uses DefaultStreamMaxLen.
func NewStreamPublisher(client *redis.Client, maxLen int64) *StreamPublisher {
	if maxLen <= 0 {
		maxLen = DefaultStreamMaxLen
	}
	return &StreamPublisher{
		client: client,
		maxLen: maxLen,
	}
}

// Ingest publishes every record of the batch in one pipeline
func (p *StreamPublisher) Ingest(ctx context.Context, jurisdiction models.Jurisdiction, records []models.GameRecord) error {
	if len(records) == 0 {
		return nil
	}

	streamKey := StreamKey(jurisdiction)
	pipe := p.client.Pipeline()
	for i := range records {
		data, err := json.Marshal(&records[i])
		if err != nil {
			return fmt.Errorf("marshaling game update: %w", err)
		}

		pipe.XAdd(ctx, &redis.XAddArgs{
			Stream: streamKey,
			MaxLen: p.maxLen,
			Approx: true,
			Values: map[string]interface{}{
				"data":         string(data),
				"game_id":      records[i].ExternalID,
				"jurisdiction": string(jurisdiction),
				"is_hot":       records[i].IsHot,
			},
		})
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("publishing %d games to %s: %w", len(records), streamKey, err)
	}
	return nil
}

// Close closes the Redis connection
func (p *StreamPublisher) Close() error {
	return p.client.Close()
}
