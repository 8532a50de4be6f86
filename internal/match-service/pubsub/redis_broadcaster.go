package pubsub

import (
	"context"

	"github.com/redis/go-redis/v9"

	"github.com/radieske/grassroots-match-tracker/internal/match-service/notify"
)

// Publisher é o pedaço do cliente Redis usado aqui (*redis.Client)
type Publisher interface {
	Publish(ctx context.Context, channel string, message any) *redis.IntCmd
}

// RedisBroadcaster publica a notificação em texto no canal Pub/Sub.
// Cada instância da API assina o canal e repassa para o próprio hub.
type RedisBroadcaster struct {
	r       Publisher
	channel string
}

func NewRedisBroadcaster(r Publisher, channel string) *RedisBroadcaster {
	return &RedisBroadcaster{r: r, channel: channel}
}

func (b *RedisBroadcaster) Publish(ctx context.Context, msg notify.Message) error {
	return b.r.Publish(ctx, b.channel, msg.Text()).Err()
}
