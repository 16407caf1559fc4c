package worker

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/zikenn26/CampusHub/internal/domain/notification"
	"github.com/zikenn26/CampusHub/internal/domain/user"
	"github.com/zikenn26/CampusHub/internal/notifications"
	"github.com/zikenn26/CampusHub/internal/observability"
)

type NotificationsRepository interface {
	ClaimNext(ctx context.Context) (notification.Notification, error)
	MarkSent(ctx context.Context, id string) error
	MarkFailed(ctx context.Context, id string, errMsg string) error
	Reschedule(ctx context.Context, id string, runAt time.Time, errMsg string) error
	RequeueStaleSending(ctx context.Context, lockTTL time.Duration) (int64, error)
}

type RecipientDirectory interface {
	GetByID(ctx context.Context, id string) (user.User, error)
}

type Config struct {
	WorkerID     string
	PollInterval time.Duration
	LockTTL      time.Duration
	BatchSize    int
}

// Worker drains the notification outbox: claim a due row, resolve the
// recipient, hand the message to the notifier, settle the row. Rows
// claimed by a worker that died come back via the stale sweep.
type Worker struct {
	cfg      Config
	repo     NotificationsRepository
	users    RecipientDirectory
	notifier notifications.Notifier
	prom     *observability.Prom
	metrics  *observability.DispatchMetrics
	log      *slog.Logger

	readyMu sync.RWMutex
	ready   bool
}

func New(cfg Config, repo NotificationsRepository, users RecipientDirectory, notifier notifications.Notifier, prom *observability.Prom, metrics *observability.DispatchMetrics, log *slog.Logger) *Worker {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = time.Second
	}

	if cfg.LockTTL <= 0 {
		cfg.LockTTL = time.Minute
	}

	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 20
	}

	return &Worker{
		cfg:      cfg,
		repo:     repo,
		users:    users,
		notifier: notifier,
		prom:     prom,
		metrics:  metrics,
		log:      log,
	}
}

func (w *Worker) Run(ctx context.Context) error {
	w.setReady(true)
	defer w.setReady(false)

	ticker := time.NewTicker(w.cfg.PollInterval)
	defer ticker.Stop()

	stale := time.NewTicker(w.cfg.LockTTL)
	defer stale.Stop()

	w.log.InfoContext(ctx, "worker started",
		"worker_id", w.cfg.WorkerID,
		"poll_interval", w.cfg.PollInterval,
	)

	for {
		select {
		case <-ctx.Done():
			w.log.Info("worker received shutdown signal")
			return nil

		case <-stale.C:
			n, err := w.repo.RequeueStaleSending(ctx, w.cfg.LockTTL)

			if err != nil {
				w.log.Error("requeue stale sending", "error", err)
				continue
			}

			if n > 0 {
				w.log.Warn("requeued stale notifications", "count", n)
			}

		case <-ticker.C:
			w.drain(ctx)
		}
	}
}

// drain processes up to BatchSize due rows per tick so one busy
// outbox cannot starve the stale sweep.
func (w *Worker) drain(ctx context.Context) {
	for i := 0; i < w.cfg.BatchSize; i++ {
		if ctx.Err() != nil {
			return
		}

		processed, err := w.ProcessOne(ctx)

		if err != nil {
			w.log.Error("process notification", "error", err)
			return
		}

		if !processed {
			return
		}
	}
}

func (w *Worker) setReady(v bool) {
	w.readyMu.Lock()
	w.ready = v
	w.readyMu.Unlock()
}

func (w *Worker) isReady() bool {
	w.readyMu.RLock()
	defer w.readyMu.RUnlock()

	return w.ready
}
