// main wires the intake engine together: storage, rate limiting,
// scoring, notification transports, the background worker, and the HTTP
// surfaces. Business logic lives in the internal packages.
package main

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	_ "github.com/lib/pq"

	"leadgate/internal/intake"
	"leadgate/internal/lead/scoring"
	leadservice "leadgate/internal/lead/service"
	leadstore "leadgate/internal/lead/store"
	"leadgate/internal/notify"
	"leadgate/internal/notify/sequence"
	"leadgate/internal/notify/transport"
	"leadgate/internal/platform/config"
	"leadgate/internal/platform/httpserver"
	"leadgate/internal/platform/logger"
	"leadgate/internal/platform/metrics"
	platformredis "leadgate/internal/platform/redis"
	"leadgate/internal/ratelimit"
	"leadgate/internal/ratelimit/bucket"
	httptransport "leadgate/internal/transport/http"
)

func main() {
	cfg := config.FromEnv()
	log := logger.New()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := metrics.New()

	st, cleanup, err := buildStore(ctx, cfg, log)
	if err != nil {
		log.Error("storage init failed", "error", err)
		os.Exit(1)
	}
	defer cleanup()

	buckets, err := buildBuckets(cfg, log)
	if err != nil {
		log.Error("rate limit store init failed", "error", err)
		os.Exit(1)
	}
	limiter, err := ratelimit.New(buckets, cfg.RateLimit.Count, cfg.RateLimit.Window,
		ratelimit.WithLogger(log), ratelimit.WithMetrics(m))
	if err != nil {
		log.Error("rate limiter init failed", "error", err)
		os.Exit(1)
	}

	leads := leadservice.New(st, log)
	scorer := scoring.NewEngine(scoring.Thresholds{
		Hot:  cfg.TierHotMin,
		Warm: cfg.TierWarmMin,
		Cool: cfg.TierCoolMin,
	})

	dispatcher := buildDispatcher(cfg, leads, log, m)
	intakeSvc := intake.New(limiter, scorer, leads, dispatcher,
		intake.WithLogger(log), intake.WithMetrics(m))

	worker := notify.NewWorker(leads, dispatcher,
		cfg.Notify.FollowupAfter, cfg.Notify.SweepInterval,
		notify.WithWorkerLogger(log))
	go worker.Run(ctx)

	router := httptransport.NewRouter(httptransport.RouterConfig{
		AdminAPIKeys:   parseAdminKeys(cfg.AdminAPIKeys, log),
		RequestTimeout: 30 * time.Second,
	}, httptransport.NewIntakeHandler(intakeSvc), httptransport.NewAdminHandler(leads, dispatcher, log), log)

	srv := httpserver.New(cfg.Addr, router)
	go func() {
		log.Info("leadgate listening", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", "error", err)
	}
}

// buildStore picks Postgres when DATABASE_URL is set, the in-memory store
// otherwise. The memory store suits development and tests only.
func buildStore(ctx context.Context, cfg config.Config, log *slog.Logger) (leadstore.Store, func(), error) {
	if cfg.DatabaseURL == "" {
		log.Warn("DATABASE_URL not set, using in-memory storage")
		return leadstore.NewInMemory(), func() {}, nil
	}

	db, err := sql.Open("postgres", cfg.DatabaseURL)
	if err != nil {
		return nil, nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, nil, err
	}
	pg := leadstore.NewPostgres(db)
	if err := pg.Migrate(ctx); err != nil {
		db.Close()
		return nil, nil, err
	}
	log.Info("postgres storage ready")
	return pg, func() { db.Close() }, nil
}

// buildBuckets prefers the Redis sliding-window store so the limit holds
// across replicas.
func buildBuckets(cfg config.Config, log *slog.Logger) (ratelimit.BucketStore, error) {
	client, err := platformredis.New(cfg.Redis)
	if err != nil {
		return nil, err
	}
	if client == nil {
		log.Warn("REDIS_URL not set, rate limits are per-process")
		return bucket.NewInMemory(), nil
	}
	log.Info("redis rate limit store ready")
	return bucket.NewRedis(client.Client), nil
}

func buildDispatcher(cfg config.Config, leads *leadservice.Service, log *slog.Logger, m *metrics.Metrics) *notify.Dispatcher {
	sink := transport.NewLogSink(log)

	var slack notify.SlackSender = sink
	if cfg.Notify.SlackWebhookURL != "" {
		slack = transport.NewSlack(cfg.Notify.SlackWebhookURL, cfg.Notify.AttemptTimeout)
	}
	var email notify.EmailSender = sink
	if cfg.Notify.SMTPAddr != "" {
		email = transport.NewEmail(cfg.Notify.SMTPAddr, cfg.Notify.EmailFrom, cfg.Notify.AttemptTimeout)
	}

	var seq sequence.Publisher
	if len(cfg.Notify.KafkaBrokers) > 0 {
		kafka, err := sequence.NewKafka(cfg.Notify.KafkaBrokers, cfg.Notify.SequenceTopic)
		if err != nil {
			log.Error("kafka producer init failed, falling back to log publisher", "error", err)
			seq = sequence.NewLog(log)
		} else {
			seq = kafka
		}
	} else {
		seq = sequence.NewLog(log)
	}

	return notify.New(slack, email, seq, leads, cfg.Notify.SalesEmail,
		notify.WithLogger(log),
		notify.WithMetrics(m),
		notify.WithRetry(cfg.Notify.AttemptTimeout, cfg.Notify.MaxAttempts),
	)
}

// parseAdminKeys turns "label:key" pairs into the key-to-label map the admin
// middleware consumes. Malformed entries are skipped loudly.
func parseAdminKeys(pairs []string, log *slog.Logger) map[string]string {
	keys := make(map[string]string, len(pairs))
	for _, pair := range pairs {
		label, key, ok := strings.Cut(pair, ":")
		if !ok || label == "" || key == "" {
			log.Warn("skipping malformed ADMIN_API_KEYS entry, want label:key")
			continue
		}
		keys[key] = label
	}
	if len(keys) == 0 {
		log.Warn("no admin API keys configured, admin surface is unreachable")
	}
	return keys
}
