package client

import (
	"context"
	"errors"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/radieske/grassroots-match-tracker/internal/match-service/notify"
)

// WSClient acompanha o WebSocket da API e entrega cada notificação ao Handler.
// MatchID vazio recebe todas as partidas.
type WSClient struct {
	URL     string      // URL do endpoint WebSocket da API
	MatchID string      // filtro opcional
	Log     *zap.Logger // Logger estruturado
	Handler func(notify.Message)

	// espera antes de reconectar
	Backoff time.Duration
	// chamado com o texto cru de frames que não são notificações (ex.: eco)
	OnOther func(string)
}

// Start inicia o loop de conexão e escuta do WebSocket.
// Em caso de desconexão, tenta reconectar automaticamente com backoff.
func (c *WSClient) Start(ctx context.Context) {
	backoff := c.Backoff
	if backoff <= 0 {
		backoff = 3 * time.Second
	}
	for {
		if err := c.connectAndListen(ctx); err != nil {
			c.Log.Warn("connection closed", zap.Error(err))
		}
		select {
		case <-ctx.Done():
			c.Log.Info("context canceled, stopping WS client")
			return
		case <-time.After(backoff): // aguarda antes de tentar reconectar
		}
	}
}

// connectAndListen estabelece a conexão WebSocket e processa mensagens recebidas.
func (c *WSClient) connectAndListen(ctx context.Context) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, c.URL, nil)
	if err != nil {
		return err
	}
	defer conn.Close()
	c.Log.Info("connected to match api WS", zap.String("url", c.URL))

	// fecha a conexão quando o contexto termina, desbloqueando o ReadMessage
	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure) || ctx.Err() != nil || errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		}

		msg, err := notify.Parse(string(message))
		if err != nil {
			if c.OnOther != nil {
				c.OnOther(string(message))
			}
			continue
		}
		if c.MatchID != "" && msg.MatchID != c.MatchID {
			continue
		}
		c.Handler(msg)
	}
}
