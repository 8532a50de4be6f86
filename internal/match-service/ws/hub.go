package ws

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/radieske/grassroots-match-tracker/internal/match-service/notify"
)

// prefixo do eco de mensagens enviadas pelo cliente
const echoPrefix = "Message: "

type Config struct {
	WriteTimeout   time.Duration
	ReadTimeout    time.Duration
	PingInterval   time.Duration
	MaxMessageSize int64
	SendBuffer     int
	CheckOrigin    func(r *http.Request) bool

	// chamado com o total de ouvintes a cada connect/disconnect
	OnCountChange func(n int)
}

func DefaultConfig() Config {
	return Config{
		WriteTimeout:   10 * time.Second,
		ReadTimeout:    60 * time.Second,
		PingInterval:   30 * time.Second,
		MaxMessageSize: 4096,
		SendBuffer:     64,
		CheckOrigin:    func(*http.Request) bool { return true },
	}
}

// Subscription é um ouvinte registrado no hub.
// As mensagens chegam por C(); o canal fecha quando o ouvinte é removido.
type Subscription struct {
	ID string

	mu     sync.Mutex
	send   chan string
	closed bool
}

func (s *Subscription) C() <-chan string { return s.send }

// offer faz envio não bloqueante; false se o buffer está cheio ou o ouvinte saiu
func (s *Subscription) offer(text string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	select {
	case s.send <- text:
		return true
	default:
		return false
	}
}

func (s *Subscription) close() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	s.closed = true
	close(s.send)
	return true
}

// Hub é o sink local: mantém os ouvintes do processo e faz o fan-out das notificações
type Hub struct {
	cfg      Config
	upgrader websocket.Upgrader
	log      *zap.Logger

	mu   sync.RWMutex
	subs map[*Subscription]struct{}
}

func NewHub(cfg Config, log *zap.Logger) *Hub {
	def := DefaultConfig()
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = def.WriteTimeout
	}
	if cfg.ReadTimeout <= 0 {
		cfg.ReadTimeout = def.ReadTimeout
	}
	if cfg.PingInterval <= 0 {
		cfg.PingInterval = def.PingInterval
	}
	if cfg.MaxMessageSize <= 0 {
		cfg.MaxMessageSize = def.MaxMessageSize
	}
	if cfg.SendBuffer <= 0 {
		cfg.SendBuffer = def.SendBuffer
	}
	if cfg.CheckOrigin == nil {
		cfg.CheckOrigin = def.CheckOrigin
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Hub{
		cfg:      cfg,
		upgrader: websocket.Upgrader{CheckOrigin: cfg.CheckOrigin},
		log:      log,
		subs:     make(map[*Subscription]struct{}),
	}
}

// Connect registra um novo ouvinte
func (h *Hub) Connect() *Subscription {
	s := &Subscription{ID: uuid.NewString(), send: make(chan string, h.cfg.SendBuffer)}
	h.mu.Lock()
	h.subs[s] = struct{}{}
	n := len(h.subs)
	h.mu.Unlock()

	h.countChanged(n)
	h.log.Debug("listener connected", zap.String("listener_id", s.ID), zap.Int("listeners", n))
	return s
}

// Disconnect remove o ouvinte e fecha o canal dele; chamadas repetidas são ignoradas
func (h *Hub) Disconnect(s *Subscription) {
	h.mu.Lock()
	_, ok := h.subs[s]
	delete(h.subs, s)
	n := len(h.subs)
	h.mu.Unlock()

	s.close()
	if ok {
		h.countChanged(n)
		h.log.Debug("listener disconnected", zap.String("listener_id", s.ID), zap.Int("listeners", n))
	}
}

// Broadcast entrega o texto a todos os ouvintes sem bloquear.
// Ouvinte com buffer cheio é removido. Devolve quantos receberam.
func (h *Hub) Broadcast(text string) int {
	h.mu.RLock()
	targets := make([]*Subscription, 0, len(h.subs))
	for s := range h.subs {
		targets = append(targets, s)
	}
	h.mu.RUnlock()

	delivered := 0
	var dropped []*Subscription
	for _, s := range targets {
		if s.offer(text) {
			delivered++
			continue
		}
		dropped = append(dropped, s)
	}
	for _, s := range dropped {
		h.log.Warn("listener send buffer full, disconnecting", zap.String("listener_id", s.ID))
		h.Disconnect(s)
	}
	return delivered
}

// Publish implementa notify.Sink
func (h *Hub) Publish(_ context.Context, msg notify.Message) error {
	h.Broadcast(msg.Text())
	return nil
}

func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

// Close desconecta todos os ouvintes (shutdown)
func (h *Hub) Close() {
	h.mu.Lock()
	all := h.subs
	h.subs = make(map[*Subscription]struct{})
	h.mu.Unlock()

	for s := range all {
		s.close()
	}
	h.countChanged(0)
}

func (h *Hub) countChanged(n int) {
	if h.cfg.OnCountChange != nil {
		h.cfg.OnCountChange(n)
	}
}

// HandleWS gerencia o ciclo de vida de uma conexão WebSocket.
// O servidor empurra as notificações; texto enviado pelo cliente volta só para ele com eco.
func (h *Hub) HandleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	sub := h.Connect()
	go h.writePump(conn, sub)
	h.readPump(conn, sub)
}

func (h *Hub) writePump(conn *websocket.Conn, sub *Subscription) {
	ticker := time.NewTicker(h.cfg.PingInterval)
	defer func() {
		ticker.Stop()
		_ = conn.Close()
	}()

	for {
		select {
		case text, ok := <-sub.C():
			_ = conn.SetWriteDeadline(time.Now().Add(h.cfg.WriteTimeout))
			if !ok {
				_ = conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := conn.WriteMessage(websocket.TextMessage, []byte(text)); err != nil {
				h.log.Debug("websocket write failed", zap.String("listener_id", sub.ID), zap.Error(err))
				h.Disconnect(sub)
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(h.cfg.WriteTimeout))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				h.Disconnect(sub)
				return
			}
		}
	}
}

func (h *Hub) readPump(conn *websocket.Conn, sub *Subscription) {
	defer func() {
		h.Disconnect(sub)
		_ = conn.Close()
	}()

	conn.SetReadLimit(h.cfg.MaxMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(h.cfg.ReadTimeout))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(h.cfg.ReadTimeout))
	})

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.log.Debug("unexpected websocket close", zap.String("listener_id", sub.ID), zap.Error(err))
			}
			return
		}
		_ = conn.SetReadDeadline(time.Now().Add(h.cfg.ReadTimeout))
		if !sub.offer(echoPrefix + string(message)) {
			h.log.Warn("echo dropped, send buffer full", zap.String("listener_id", sub.ID))
		}
	}
}
