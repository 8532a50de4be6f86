package ws

import (
	"context"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/radieske/grassroots-match-tracker/internal/match-service/notify"
)

// StartRedisSubscriber inicia uma goroutine que escuta o canal Redis Pub/Sub
// e repassa as notificações para os ouvintes conectados neste processo.
// Retorna depois que a inscrição foi confirmada pelo servidor.
func StartRedisSubscriber(ctx context.Context, r *redis.Client, channel string, hub *Hub, log *zap.Logger) error {
	sub := r.Subscribe(ctx, channel)
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return err
	}
	log.Info("redis subscriber started", zap.String("channel", channel))

	go func() {
		defer sub.Close() // encerra a inscrição ao finalizar o contexto
		relay(ctx, sub.Channel(), hub, log)
	}()
	return nil
}

// relay lê do canal até o contexto acabar ou o canal fechar
func relay(ctx context.Context, ch <-chan *redis.Message, hub *Hub, log *zap.Logger) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			if msg == nil {
				continue
			}
			if _, err := notify.Parse(msg.Payload); err != nil {
				log.Warn("ws subscriber: malformed notification", zap.Error(err))
				continue
			}
			hub.Broadcast(msg.Payload)
		}
	}
}
