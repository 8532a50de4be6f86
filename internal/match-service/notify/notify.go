// Package notify define a mensagem de notificação de partidas e o contrato dos sinks.
//
// O formato texto é o mesmo lido pelo cliente web:
//
//	match_event:<match_id>:<MatchEvent JSON>
//	match_updated:<match_id>
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/radieske/grassroots-match-tracker/pkg/contracts/events"
)

const (
	KindMatchEvent   = events.KindMatchEvent
	KindMatchUpdated = events.KindMatchUpdated
)

type Message struct {
	Kind    string
	MatchID string
	Payload json.RawMessage // só em match_event
}

// Sink recebe notificações; entrega é best-effort
type Sink interface {
	Publish(ctx context.Context, msg Message) error
}

// SinkFunc adapta uma função ao Sink
type SinkFunc func(ctx context.Context, msg Message) error

func (f SinkFunc) Publish(ctx context.Context, msg Message) error { return f(ctx, msg) }

// Discard ignora todas as mensagens
var Discard Sink = SinkFunc(func(context.Context, Message) error { return nil })

// MatchEvent monta a notificação de um evento novo
func MatchEvent(matchID string, event any) (Message, error) {
	b, err := json.Marshal(event)
	if err != nil {
		return Message{}, fmt.Errorf("encode match event: %w", err)
	}
	return Message{Kind: KindMatchEvent, MatchID: matchID, Payload: b}, nil
}

func MatchUpdated(matchID string) Message {
	return Message{Kind: KindMatchUpdated, MatchID: matchID}
}

// Text serializa no formato de texto do WebSocket
func (m Message) Text() string {
	if m.Kind == KindMatchEvent {
		return m.Kind + ":" + m.MatchID + ":" + string(m.Payload)
	}
	return m.Kind + ":" + m.MatchID
}

// Parse faz o caminho inverso de Text
func Parse(text string) (Message, error) {
	kind, rest, ok := strings.Cut(text, ":")
	if !ok || rest == "" {
		return Message{}, fmt.Errorf("malformed notification %q", text)
	}
	switch kind {
	case KindMatchUpdated:
		return Message{Kind: kind, MatchID: rest}, nil
	case KindMatchEvent:
		id, payload, ok := strings.Cut(rest, ":")
		if !ok || id == "" || !json.Valid([]byte(payload)) {
			return Message{}, fmt.Errorf("malformed match_event notification %q", text)
		}
		return Message{Kind: kind, MatchID: id, Payload: json.RawMessage(payload)}, nil
	}
	return Message{}, fmt.Errorf("unknown notification kind %q", kind)
}

// ToContract converte para o payload publicado no Kafka
func (m Message) ToContract(ts time.Time) events.MatchNotification {
	return events.MatchNotification{Kind: m.Kind, MatchID: m.MatchID, Payload: m.Payload, Ts: ts.UTC()}
}

func FromContract(n events.MatchNotification) (Message, error) {
	switch n.Kind {
	case KindMatchEvent, KindMatchUpdated:
	default:
		return Message{}, fmt.Errorf("unknown notification kind %q", n.Kind)
	}
	if n.MatchID == "" {
		return Message{}, fmt.Errorf("notification without match_id")
	}
	return Message{Kind: n.Kind, MatchID: n.MatchID, Payload: n.Payload}, nil
}
