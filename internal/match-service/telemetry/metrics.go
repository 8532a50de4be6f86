// Package telemetry reúne os coletores Prometheus da API de partidas.
package telemetry

import (
	"context"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/radieske/grassroots-match-tracker/internal/match-service/model"
	"github.com/radieske/grassroots-match-tracker/internal/match-service/notify"
)

type Metrics struct {
	EventsRecorded *prometheus.CounterVec // por event_type
	Notifications  *prometheus.CounterVec // por sink e result
	Listeners      prometheus.Gauge
	HTTPRequests   *prometheus.CounterVec // por route, method e code
}

// New cria e registra os coletores no registerer informado
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		EventsRecorded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "match_events_recorded_total",
			Help: "eventos de partida registrados",
		}, []string{"event_type"}),
		Notifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "match_notifications_total",
			Help: "notificações publicadas por sink e resultado",
		}, []string{"sink", "result"}),
		Listeners: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "match_ws_listeners",
			Help: "ouvintes WebSocket conectados nesta instância",
		}),
		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "match_api_http_requests_total",
			Help: "requisições HTTP por rota e status",
		}, []string{"route", "method", "code"}),
	}
	reg.MustRegister(m.EventsRecorded, m.Notifications, m.Listeners, m.HTTPRequests)
	return m
}

func (m *Metrics) EventRecorded(t model.EventType) {
	m.EventsRecorded.WithLabelValues(string(t)).Inc()
}

func (m *Metrics) SetListeners(n int) {
	m.Listeners.Set(float64(n))
}

// InstrumentSink conta sucesso/erro de cada publicação no sink
func (m *Metrics) InstrumentSink(name string, next notify.Sink) notify.Sink {
	ok := m.Notifications.WithLabelValues(name, "ok")
	failed := m.Notifications.WithLabelValues(name, "error")
	return notify.SinkFunc(func(ctx context.Context, msg notify.Message) error {
		if err := next.Publish(ctx, msg); err != nil {
			failed.Inc()
			return err
		}
		ok.Inc()
		return nil
	})
}

// Middleware conta requisições pelo padrão de rota do chi (não pela URL crua)
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rc := chi.RouteContext(r.Context()); rc != nil {
			if p := rc.RoutePattern(); p != "" {
				route = p
			}
		}
		code := ww.Status()
		if code == 0 {
			code = http.StatusOK
		}
		m.HTTPRequests.WithLabelValues(route, r.Method, strconv.Itoa(code)).Inc()
	})
}
