package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/zikenn26/CampusHub/internal/domain/notification"
	"github.com/zikenn26/CampusHub/internal/notifications"
)

// ProcessOne claims and settles a single notification. It reports
// false when nothing is due.
func (w *Worker) ProcessOne(ctx context.Context) (bool, error) {
	claimCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	n, err := w.repo.ClaimNext(claimCtx)
	cancel()

	if err != nil {
		if errors.Is(err, notification.ErrNotFound) {
			return false, nil
		}

		return false, err
	}

	w.metrics.IncClaimed()
	w.prom.NotifyInFlight.Inc()
	defer w.prom.NotifyInFlight.Dec()

	start := time.Now()
	sendErr := w.dispatch(ctx, n)
	elapsed := time.Since(start)

	w.metrics.ObserveDuration(elapsed)

	if sendErr != nil {
		result := w.handleFailure(ctx, n, sendErr)
		w.observeResult(n.Kind, result, elapsed)

		return true, nil
	}

	err = w.repo.MarkSent(ctx, n.ID)

	if err != nil {
		// row stays 'sending'; the stale sweep will requeue it
		return true, err
	}

	w.metrics.IncSent()
	w.observeResult(n.Kind, "sent", elapsed)

	return true, nil
}

func (w *Worker) dispatch(ctx context.Context, n notification.Notification) error {
	u, err := w.users.GetByID(ctx, n.RecipientID)

	if err != nil {
		return fmt.Errorf("resolve recipient %s: %w", n.RecipientID, err)
	}

	return w.notifier.Send(ctx, notifications.Message{
		Email:   u.Email,
		Name:    u.Name,
		Kind:    n.Kind,
		Subject: n.Subject,
		Body:    n.Body,
	})
}

// handleFailure reschedules with backoff until attempts run out, then
// dead-letters the row. Attempts was already bumped by the claim.
func (w *Worker) handleFailure(ctx context.Context, n notification.Notification, sendErr error) string {
	if n.Attempts >= n.MaxAttempts {
		w.metrics.IncFailed()
		w.metrics.IncDeadLettered()

		if err := w.repo.MarkFailed(ctx, n.ID, sendErr.Error()); err != nil {
			w.log.Error("mark failed", "notification_id", n.ID, "error", err)
		}

		w.log.Error("notification dead-lettered",
			"notification_id", n.ID,
			"attempts", n.Attempts,
			"error", sendErr,
		)

		return "failed"
	}

	delay := backoff(n.Attempts)

	w.metrics.IncRetried()

	if err := w.repo.Reschedule(ctx, n.ID, time.Now().Add(delay), sendErr.Error()); err != nil {
		w.log.Error("reschedule", "notification_id", n.ID, "error", err)
		return "retry"
	}

	w.log.Warn("notification send failed, rescheduled",
		"notification_id", n.ID,
		"attempt", n.Attempts,
		"retry_in", delay,
		"error", sendErr,
	)

	return "retry"
}

func (w *Worker) observeResult(kind, result string, elapsed time.Duration) {
	w.prom.NotifyResults.WithLabelValues(kind, result).Inc()
	w.prom.NotifyDuration.WithLabelValues(kind, result).Observe(elapsed.Seconds())
}
