package events

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Broadcaster relays domain events onto a Redis channel so live dashboard
// consumers can follow ticket and transaction changes.
type Broadcaster struct {
	client  *redis.Client
	channel string
	logger  *zap.Logger
}

// NewBroadcaster creates the broadcaster.
func NewBroadcaster(client *redis.Client, channel string, logger *zap.Logger) *Broadcaster {
	return &Broadcaster{client: client, channel: channel, logger: logger}
}

// Register subscribes the broadcaster to every event type.
func (b *Broadcaster) Register(dispatcher Dispatcher) {
	if dispatcher == nil {
		return
	}
	for _, eventType := range []EventType{
		EventTicketCreated,
		EventTicketUpdated,
		EventTransactionCreated,
		EventTransactionUpdated,
	} {
		dispatcher.Subscribe(eventType, b.handle)
	}
}

func (b *Broadcaster) handle(ctx context.Context, event Event) error {
	if b.client == nil {
		return nil
	}
	payload, err := json.Marshal(event)
	if err != nil {
		b.logger.Warn("marshal event", zap.String("event_type", string(event.Type)), zap.Error(err))
		return nil
	}
	if err := b.client.Publish(ctx, b.channel, payload).Err(); err != nil {
		b.logger.Warn("broadcast event",
			zap.String("event_type", string(event.Type)),
			zap.String("reference", event.Reference),
			zap.Error(err))
	}
	return nil
}
