package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/zikenn26/CampusHub/internal/config"
	"github.com/zikenn26/CampusHub/internal/db"
	"github.com/zikenn26/CampusHub/internal/notifications"
	"github.com/zikenn26/CampusHub/internal/observability"
	"github.com/zikenn26/CampusHub/internal/queue/worker"
	"github.com/zikenn26/CampusHub/internal/repo/postgres"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()

	log := observability.NewLogger(cfg.Env, "campushub-worker")
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(
		context.Background(),
		os.Interrupt,
		syscall.SIGTERM,
	)

	defer stop()

	pool, err := db.NewPool(ctx, cfg.DBURL)

	if err != nil {
		log.Error("db connect failed", "err", err)
		os.Exit(1)
	}

	defer pool.Close()

	prom := observability.NewProm(prometheus.DefaultRegisterer)
	metrics := observability.NewDispatchMetrics()

	notificationsRepo := postgres.NewNotificationsRepo(pool, prom)
	usersRepo := postgres.NewUsersRepo(pool, prom)

	// the log notifier stands in for a mail provider; the breaker keeps
	// a provider outage from stalling every claimed row
	notifier := notifications.NewProtectedNotifier(
		notifications.NewLogNotifier(log),
		notifications.ProtectedNotifierConfig{},
	)

	host, _ := os.Hostname()
	workerID := host + "-" + strconv.Itoa(os.Getpid())

	w := worker.New(worker.Config{
		WorkerID:     workerID,
		PollInterval: cfg.WorkerPollInterval,
		BatchSize:    cfg.WorkerBatchSize,
	}, notificationsRepo, usersRepo, notifier, prom, metrics, log)

	// probes and metrics on a side port
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.Handle("/", w.HealthHandler())

	probeSrv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.WorkerPort),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Info("worker probe server starting", "port", cfg.WorkerPort)
		err := probeSrv.ListenAndServe()

		if err != nil && err != http.ErrServerClosed {
			log.Error("worker probe server failed", "err", err)
			os.Exit(1)
		}
	}()

	log.Info("worker starting", "worker_id", workerID, "env", cfg.Env)

	err = w.Run(ctx)

	if err != nil {
		log.Error("worker stopped with error", "err", err)
	}

	shutdownCtx, cancel := config.WithTimeout(5 * time.Second)
	defer cancel()

	_ = probeSrv.Shutdown(shutdownCtx)

	log.Info("worker shutdown complete")
}
