package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/radieske/grassroots-match-tracker/internal/feed-relay/relay"
	"github.com/radieske/grassroots-match-tracker/internal/match-service/pubsub"
	sharedcache "github.com/radieske/grassroots-match-tracker/internal/shared/cache"
	"github.com/radieske/grassroots-match-tracker/internal/shared/config"
	"github.com/radieske/grassroots-match-tracker/internal/shared/kafka"
	"github.com/radieske/grassroots-match-tracker/internal/shared/logger"
	"github.com/radieske/grassroots-match-tracker/internal/shared/metrics"
)

func main() {
	cfg := config.LoadService("feed-relay-worker")
	log, err := logger.New(cfg.ServiceName, cfg.Env, cfg.LogLevel)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	// Sinalização para shutdown gracioso (SIGINT/SIGTERM)
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Inicializa dependências: Redis e Kafka
	rdb, err := sharedcache.ConnectRedis(ctx, cfg.RedisAddr)
	if err != nil {
		log.Fatal("redis connect", zap.Error(err))
	}
	defer rdb.Close()

	brokers := cfg.Brokers()
	if cfg.Env == "local" || cfg.Env == "dev" {
		if err := kafka.EnsureTopic(ctx, brokers, cfg.TopicMatchFeed); err != nil {
			log.Warn("ensure topic failed", zap.String("topic", cfg.TopicMatchFeed), zap.Error(err))
		}
	}

	// consumer group feed-relay: cada notificação vai para o Redis uma vez
	reader := kafka.NewReader(brokers, cfg.TopicMatchFeed, "feed-relay")
	defer reader.Close()

	// Métricas Prometheus para monitoramento do repasse
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	consumed := prometheus.NewCounter(prometheus.CounterOpts{Name: "feed_relay_messages_consumed_total", Help: "mensagens consumidas"})
	relayed := prometheus.NewCounter(prometheus.CounterOpts{Name: "feed_relay_messages_relayed_total", Help: "notificações publicadas no Redis"})
	errorsBy := prometheus.NewCounterVec(prometheus.CounterOpts{Name: "feed_relay_errors_total", Help: "erros por estágio"}, []string{"stage"})
	reg.MustRegister(consumed, relayed, errorsBy)

	p := &relay.Relay{
		Log:        log,
		Reader:     reader,
		Sink:       pubsub.NewRedisBroadcaster(rdb, cfg.RedisPubSubChannel),
		Backoff:    time.Second,
		OnConsumed: func() { consumed.Inc() },
		OnRelayed:  func() { relayed.Inc() },
		OnError:    func(stage string) { errorsBy.WithLabelValues(stage).Inc() },
	}

	msrv := metrics.NewServer(cfg.MetricsPort, reg, metrics.Checks(map[string]metrics.HealthFunc{
		"redis": func(ctx context.Context) error { return rdb.Ping(ctx).Err() },
		"kafka": func(ctx context.Context) error { return kafka.Ping(ctx, brokers) },
	}))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("metrics/health listening", zap.String("addr", msrv.Addr))
		if err := msrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		log.Info("feed relay started",
			zap.String("topic", cfg.TopicMatchFeed),
			zap.String("channel", cfg.RedisPubSubChannel))
		if err := p.Run(gctx); err != nil && gctx.Err() == nil {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return msrv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Error("feed relay stopped with error", zap.Error(err))
		return
	}
	log.Info("feed relay stopped")
}
