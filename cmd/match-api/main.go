package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/radieske/grassroots-match-tracker/internal/match-service/cache"
	"github.com/radieske/grassroots-match-tracker/internal/match-service/feed"
	"github.com/radieske/grassroots-match-tracker/internal/match-service/formation"
	httpapi "github.com/radieske/grassroots-match-tracker/internal/match-service/http"
	"github.com/radieske/grassroots-match-tracker/internal/match-service/live"
	"github.com/radieske/grassroots-match-tracker/internal/match-service/notify"
	"github.com/radieske/grassroots-match-tracker/internal/match-service/pubsub"
	"github.com/radieske/grassroots-match-tracker/internal/match-service/registry"
	"github.com/radieske/grassroots-match-tracker/internal/match-service/repo"
	"github.com/radieske/grassroots-match-tracker/internal/match-service/telemetry"
	"github.com/radieske/grassroots-match-tracker/internal/match-service/ws"
	sharedcache "github.com/radieske/grassroots-match-tracker/internal/shared/cache"
	"github.com/radieske/grassroots-match-tracker/internal/shared/config"
	"github.com/radieske/grassroots-match-tracker/internal/shared/db"
	"github.com/radieske/grassroots-match-tracker/internal/shared/kafka"
	"github.com/radieske/grassroots-match-tracker/internal/shared/logger"
	"github.com/radieske/grassroots-match-tracker/internal/shared/metrics"
)

// store atende tanto o registry quanto o agregador ao vivo
type store interface {
	registry.Store
	live.Store
}

func main() {
	// carrega config
	cfg := config.Load()
	log, err := logger.New(cfg.ServiceName, cfg.Env, cfg.LogLevel)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	switch cfg.NotifyMode {
	case config.NotifyLocal, config.NotifyRedis, config.NotifyKafka:
	default:
		log.Fatal("unknown NOTIFY_MODE", zap.String("notify_mode", cfg.NotifyMode))
	}

	// Sinalização para shutdown gracioso (SIGINT/SIGTERM)
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	checks := map[string]metrics.HealthFunc{}

	// 1) armazenamento: Postgres (padrão) ou memória
	var st store
	switch cfg.StoreDriver {
	case config.StoreMemory:
		st = repo.NewMemory()
		log.Warn("using in-memory store, data is lost on restart")
	default:
		pg, err := db.ConnectPostgres(ctx, cfg.PostgresDSN)
		if err != nil {
			log.Fatal("postgres connect", zap.Error(err))
		}
		defer pg.Close()
		if err := db.Migrate(pg); err != nil {
			log.Fatal("postgres migrate", zap.Error(err))
		}
		st = repo.NewPostgres(pg)
		checks["postgres"] = pg.PingContext
	}

	// 2) catálogo de formações
	var catalog *formation.Catalog
	if cfg.FormationsPath != "" {
		catalog, err = formation.LoadFile(cfg.FormationsPath)
	} else {
		catalog, err = formation.Default()
	}
	if err != nil {
		log.Fatal("formation catalog", zap.Error(err), zap.String("path", cfg.FormationsPath))
	}

	// 3) métricas
	promReg := prometheus.NewRegistry()
	promReg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := telemetry.New(promReg)

	// 4) hub WebSocket desta instância
	hubCfg := ws.DefaultConfig()
	hubCfg.CheckOrigin = httpapi.OriginChecker(cfg.AllowedOrigins)
	hubCfg.OnCountChange = m.SetListeners
	hub := ws.NewHub(hubCfg, log)

	// 5) Redis (cache ao vivo e/ou Pub/Sub)
	var liveCache live.Cache
	var sink notify.Sink = hub
	sinkName := config.NotifyLocal

	if cfg.NeedsRedis() {
		rdb, err := sharedcache.ConnectRedis(ctx, cfg.RedisAddr)
		if err != nil {
			log.Fatal("redis connect", zap.Error(err))
		}
		defer rdb.Close()
		checks["redis"] = func(ctx context.Context) error { return rdb.Ping(ctx).Err() }

		if cfg.LiveCacheEnabled {
			liveCache = cache.NewLiveCache(rdb, cfg.LiveCacheTTL)
		}

		switch cfg.NotifyMode {
		case config.NotifyRedis:
			sink, sinkName = pubsub.NewRedisBroadcaster(rdb, cfg.RedisPubSubChannel), config.NotifyRedis
		case config.NotifyKafka:
			brokers := cfg.Brokers()
			if cfg.Env == "local" || cfg.Env == "dev" {
				if err := kafka.EnsureTopic(ctx, brokers, cfg.TopicMatchFeed); err != nil {
					log.Warn("ensure topic failed", zap.String("topic", cfg.TopicMatchFeed), zap.Error(err))
				}
			}
			pub := feed.NewKafkaPublisher(kafka.NewWriter(brokers, cfg.TopicMatchFeed), clockwork.NewRealClock(), log)
			defer pub.Close()
			sink, sinkName = pub, config.NotifyKafka
			checks["kafka"] = func(ctx context.Context) error { return kafka.Ping(ctx, brokers) }
		}

		// nos modos distribuídos o hub local é alimentado pelo canal Redis
		if cfg.NotifyMode != config.NotifyLocal {
			if err := ws.StartRedisSubscriber(ctx, rdb, cfg.RedisPubSubChannel, hub, log); err != nil {
				log.Fatal("redis subscribe", zap.String("channel", cfg.RedisPubSubChannel), zap.Error(err))
			}
		}
	}
	sink = m.InstrumentSink(sinkName, sink)

	// 6) serviços de domínio
	clock := clockwork.NewRealClock()
	matches := registry.New(st, catalog, clock, log)
	agg := live.New(live.Deps{
		Store:           st,
		Patcher:         matches,
		Sink:            sink,
		Cache:           liveCache,
		Clock:           clock,
		Log:             log,
		OnEventRecorded: m.EventRecorded,
	})

	api := &httpapi.API{
		Registry:       matches,
		Live:           agg,
		Catalog:        catalog,
		WS:             hub.HandleWS,
		Log:            log,
		AllowedOrigins: cfg.AllowedOrigins,
		Metrics:        m.Middleware,
	}

	srv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           api.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	msrv := metrics.NewServer(cfg.MetricsPort, promReg, metrics.Checks(checks))

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info("match api listening",
			zap.String("addr", srv.Addr),
			zap.String("store", cfg.StoreDriver),
			zap.String("notify_mode", cfg.NotifyMode))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		log.Info("metrics/health listening", zap.String("addr", msrv.Addr))
		if err := msrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		// fecha os ouvintes antes para não segurar o Shutdown
		hub.Close()
		_ = msrv.Shutdown(shutdownCtx)
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Error("match api stopped with error", zap.Error(err))
		return
	}
	log.Info("match api stopped")
}
