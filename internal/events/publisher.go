package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Envelope is the wire shape of one state-change event on the channel.
type Envelope struct {
	ID         uuid.UUID       `json:"id"`
	Type       string          `json:"type"`
	OccurredAt time.Time       `json:"occurred_at"`
	Payload    json.RawMessage `json:"payload"`
}

// RedisPublisher fans out state-change events over Redis pub/sub for the
// notification dispatcher. Delivery is best effort: a failed publish is
// logged and the originating request still succeeds.
type RedisPublisher struct {
	client  *redis.Client
	channel string
	log     zerolog.Logger
}

func NewRedisPublisher(client *redis.Client, channel string, log zerolog.Logger) *RedisPublisher {
	return &RedisPublisher{client: client, channel: channel, log: log}
}

func (p *RedisPublisher) Publish(ctx context.Context, eventType string, payload any) {
	body, err := json.Marshal(payload)
	if err != nil {
		p.log.Error().Err(err).Str("event", eventType).Msg("marshal event payload")
		return
	}

	envelope, err := json.Marshal(Envelope{
		ID:         uuid.New(),
		Type:       eventType,
		OccurredAt: time.Now().UTC(),
		Payload:    body,
	})
	if err != nil {
		p.log.Error().Err(err).Str("event", eventType).Msg("marshal event envelope")
		return
	}

	if err := p.client.Publish(ctx, p.channel, envelope).Err(); err != nil {
		p.log.Error().Err(err).Str("event", eventType).Msg("publish event")
	}
}

// NopPublisher logs events at debug level instead of dispatching them. Used
// when no Redis address is configured.
type NopPublisher struct {
	log zerolog.Logger
}

func NewNopPublisher(log zerolog.Logger) *NopPublisher {
	return &NopPublisher{log: log}
}

func (p *NopPublisher) Publish(_ context.Context, eventType string, _ any) {
	p.log.Debug().Str("event", eventType).Msg("event publishing disabled")
}
