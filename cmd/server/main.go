package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"golang.org/x/sync/errgroup"

	"pakngate/internal/audit"
	kafkaaudit "pakngate/internal/audit/publisher/kafka"
	pgaudit "pakngate/internal/audit/store/postgres"
	"pakngate/internal/disclosure/backend"
	"pakngate/internal/disclosure/service"
	"pakngate/internal/disclosure/store/throttle"
	"pakngate/internal/platform/config"
	"pakngate/internal/platform/httpserver"
	"pakngate/internal/platform/logger"
	"pakngate/internal/platform/metrics"
	platformredis "pakngate/internal/platform/redis"
	httptransport "pakngate/internal/transport/http"
)

// main wires high-level dependencies, exposes the HTTP router, and keeps the
// server lifecycle small. Business logic lives in the disclosure packages.
func main() {
	cfg := config.FromEnv()
	log := logger.New()

	redisClient, err := platformredis.New(cfg.RedisURL)
	if err != nil {
		log.Error("redis setup failed", "error", err)
		os.Exit(1)
	}

	var throttleStore service.Throttle = throttle.NewMemory()
	if redisClient != nil {
		throttleStore = throttle.NewRedis(redisClient.Client)
		defer redisClient.Close()
	}

	var publishers []audit.Publisher
	if cfg.DatabaseURL != "" {
		db, err := sql.Open("pgx", cfg.DatabaseURL)
		if err != nil {
			log.Error("postgres setup failed", "error", err)
			os.Exit(1)
		}
		defer db.Close()
		publishers = append(publishers, pgaudit.New(db))
	}
	if len(cfg.KafkaBrokers) > 0 {
		kp, err := kafkaaudit.New(cfg.KafkaBrokers, cfg.KafkaTopic, kafkaaudit.WithLogger(log))
		if err != nil {
			log.Error("kafka setup failed", "error", err)
			os.Exit(1)
		}
		defer kp.Close()
		publishers = append(publishers, kp)
	}

	svc, err := service.New(
		backend.New(cfg.BackendBaseURL),
		throttleStore,
		service.WithLogger(log),
		service.WithMetrics(metrics.New()),
		service.WithAuditPublisher(audit.Multi(publishers...)),
	)
	if err != nil {
		log.Error("service setup failed", "error", err)
		os.Exit(1)
	}

	router := httptransport.NewRouter(httptransport.NewDisclosureHandler(svc))
	srv := httpserver.New(cfg.Addr, router)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("starting pakngate", "addr", cfg.Addr, "backend", cfg.BackendBaseURL)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Error("server error", "error", err)
		os.Exit(1)
	}
}
