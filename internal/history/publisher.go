package history

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"codesync/internal/models"
)

// Channel carries session_ended events to downstream history consumers.
const Channel = "session_ended"

const publishTimeout = 5 * time.Second

// Publisher emits session lifecycle events over Redis pub/sub. Publishing is
// best-effort; room teardown never depends on it.
type Publisher struct {
	rdb *redis.Client
}

func NewPublisher(redisAddr string) *Publisher {
	return &Publisher{
		rdb: redis.NewClient(&redis.Options{Addr: redisAddr}),
	}
}

func (p *Publisher) PublishSessionEnded(event models.SessionEndedEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal session_ended event: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()

	if err := p.rdb.Publish(ctx, Channel, data).Err(); err != nil {
		return fmt.Errorf("publish session_ended event: %w", err)
	}
	return nil
}

func (p *Publisher) Close() error { return p.rdb.Close() }
