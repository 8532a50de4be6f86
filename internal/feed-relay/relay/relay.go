// Package relay consome o tópico match_feed e repassa cada notificação para o canal
// Redis lido pelas instâncias da API.
package relay

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"github.com/radieske/grassroots-match-tracker/internal/match-service/notify"
	"github.com/radieske/grassroots-match-tracker/internal/shared/kafka"
	"github.com/radieske/grassroots-match-tracker/pkg/contracts/events"
)

// Reader é o subconjunto de *kafka.Reader usado pelo relay
type Reader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
}

// Relay consome notificações do Kafka e publica no sink (Redis Pub/Sub).
// Callbacks de métricas podem ser usadas para monitoramento de cada etapa
type Relay struct {
	Log    *zap.Logger
	Reader Reader
	Sink   notify.Sink

	// espera depois de uma falha de leitura
	Backoff time.Duration

	OnConsumed func()       // métricas (counter++)
	OnRelayed  func()       // métricas
	OnError    func(string) // métricas por fase
}

// Run inicia o loop principal de consumo; retorna quando o contexto termina
func (p *Relay) Run(ctx context.Context) error {
	for {
		m, err := p.Reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err() // encerra se o contexto for cancelado
			}
			p.Log.Warn("kafka read failed", zap.Error(err))
			p.fail("read")
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(p.Backoff):
			}
			continue
		}

		if p.OnConsumed != nil {
			p.OnConsumed()
		}

		var n events.MatchNotification
		if err := json.Unmarshal(m.Value, &n); err != nil {
			p.Log.Warn("invalid message", zap.Error(err), zap.ByteString("key", m.Key))
			p.fail("decode")
			continue
		}
		msg, err := notify.FromContract(n)
		if err != nil {
			p.Log.Warn("invalid notification", zap.Error(err))
			p.fail("decode")
			continue
		}

		// entrega best-effort: a mensagem não é reprocessada em caso de falha
		if err := p.Sink.Publish(ctx, msg); err != nil {
			p.Log.Warn("relay publish failed", zap.String("match_id", msg.MatchID), zap.Error(err))
			p.fail("publish")
			continue
		}
		if p.OnRelayed != nil {
			p.OnRelayed()
		}
		p.Log.Debug("notification relayed",
			zap.String("kind", msg.Kind),
			zap.String("match_id", msg.MatchID),
			zap.Duration("lag", time.Since(n.Ts)))
	}
}

func (p *Relay) fail(stage string) {
	if p.OnError != nil {
		p.OnError(stage)
	}
}
