// Package feed publica as notificações de partida no tópico Kafka "match_feed".
// O feed-relay-worker consome o tópico e repassa para o canal Redis das instâncias.
package feed

import (
	"context"
	"encoding/json"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"github.com/radieske/grassroots-match-tracker/internal/match-service/notify"
	"github.com/radieske/grassroots-match-tracker/internal/shared/kafka"
)

// Writer é o subconjunto de *kafka.Writer usado pelo publisher
type Writer interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher encapsula o writer Kafka e o logger.
type KafkaPublisher struct {
	writer Writer
	clock  clockwork.Clock
	log    *zap.Logger
}

func NewKafkaPublisher(w Writer, clock clockwork.Clock, log *zap.Logger) *KafkaPublisher {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &KafkaPublisher{writer: w, clock: clock, log: log}
}

// Publish serializa a notificação e envia com a chave = match id,
// mantendo a ordem das notificações de uma mesma partida na partição.
func (p *KafkaPublisher) Publish(ctx context.Context, msg notify.Message) error {
	now := p.clock.Now()
	value, err := json.Marshal(msg.ToContract(now))
	if err != nil {
		return err
	}

	km := kafka.Message{
		Key:   []byte(msg.MatchID),
		Value: value,
		Time:  now,
	}
	if err := p.writer.WriteMessages(ctx, km); err != nil {
		p.log.Error("failed to publish match notification", zap.String("match_id", msg.MatchID), zap.Error(err))
		return err
	}

	p.log.Debug("published match notification", zap.String("kind", msg.Kind), zap.String("match_id", msg.MatchID))
	return nil
}

// Close finaliza o writer e libera recursos associados.
func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}
