package events

import (
	"encoding/json"
	"time"
)

// Kinds de notificação publicadas no tópico "match_feed"
const (
	KindMatchEvent   = "match_event"
	KindMatchUpdated = "match_updated"
)

// Evento publicado no tópico "match_feed" a cada mutação de partida.
// Payload carrega o MatchEvent serializado quando Kind == "match_event".
type MatchNotification struct {
	Kind    string          `json:"kind"`
	MatchID string          `json:"match_id"`
	Payload json.RawMessage `json:"payload,omitempty"`
	Ts      time.Time       `json:"ts"`
}
