package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/radieske/grassroots-match-tracker/internal/live-tail/client"
	"github.com/radieske/grassroots-match-tracker/internal/match-service/model"
	"github.com/radieske/grassroots-match-tracker/internal/match-service/notify"
	"github.com/radieske/grassroots-match-tracker/internal/shared/config"
	"github.com/radieske/grassroots-match-tracker/internal/shared/logger"
	"github.com/radieske/grassroots-match-tracker/internal/shared/metrics"
)

func main() {
	cfg := config.LoadService("live-tail")
	matchID := flag.String("match", "", "acompanha só esta partida")
	url := flag.String("url", cfg.APIWSURL, "endpoint WebSocket da API")
	flag.Parse()

	log, err := logger.New(cfg.ServiceName, cfg.Env, cfg.LogLevel)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	reg := prometheus.NewRegistry()
	received := prometheus.NewCounterVec(prometheus.CounterOpts{Name: "live_tail_notifications_total", Help: "notificações recebidas por tipo"}, []string{"kind"})
	reg.MustRegister(received)

	wsClient := &client.WSClient{
		URL:     *url,
		MatchID: *matchID,
		Log:     log,
		Handler: func(msg notify.Message) {
			received.WithLabelValues(msg.Kind).Inc()
			if msg.Kind != notify.KindMatchEvent {
				log.Info("match updated", zap.String("match_id", msg.MatchID))
				return
			}
			var ev model.MatchEvent
			if err := json.Unmarshal(msg.Payload, &ev); err != nil {
				log.Warn("undecodable match event", zap.String("match_id", msg.MatchID), zap.Error(err))
				return
			}
			log.Info("match event",
				zap.String("match_id", msg.MatchID),
				zap.String("event_type", string(ev.EventType)),
				zap.Int("minute", ev.Minute),
				zap.String("player_id", ev.PlayerID),
				zap.String("team_id", ev.TeamID))
		},
		OnOther: func(text string) {
			log.Debug("non-notification frame", zap.String("text", text))
		},
	}

	msrv := metrics.NewServer(cfg.MetricsPort, reg, nil)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := msrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		log.Info("live tail started", zap.String("url", *url), zap.String("match_id", *matchID))
		wsClient.Start(gctx)
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		return msrv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Error("live tail stopped with error", zap.Error(err))
	}
}
