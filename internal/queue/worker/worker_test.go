package worker

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/zikenn26/CampusHub/internal/domain/notification"
	"github.com/zikenn26/CampusHub/internal/domain/user"
	"github.com/zikenn26/CampusHub/internal/notifications"
	"github.com/zikenn26/CampusHub/internal/observability"
)

type fakeRepo struct {
	claim      func(ctx context.Context) (notification.Notification, error)
	markSent   func(ctx context.Context, id string) error
	markFailed func(ctx context.Context, id string, errMsg string) error
	reschedule func(ctx context.Context, id string, runAt time.Time, errMsg string) error
}

func (f *fakeRepo) ClaimNext(ctx context.Context) (notification.Notification, error) {
	return f.claim(ctx)
}

func (f *fakeRepo) MarkSent(ctx context.Context, id string) error {
	if f.markSent == nil {
		return nil
	}
	return f.markSent(ctx, id)
}

func (f *fakeRepo) MarkFailed(ctx context.Context, id string, errMsg string) error {
	if f.markFailed == nil {
		return nil
	}
	return f.markFailed(ctx, id, errMsg)
}

func (f *fakeRepo) Reschedule(ctx context.Context, id string, runAt time.Time, errMsg string) error {
	if f.reschedule == nil {
		return nil
	}
	return f.reschedule(ctx, id, runAt, errMsg)
}

func (f *fakeRepo) RequeueStaleSending(ctx context.Context, lockTTL time.Duration) (int64, error) {
	return 0, nil
}

type fakeUsers struct {
	getByID func(ctx context.Context, id string) (user.User, error)
}

func (f *fakeUsers) GetByID(ctx context.Context, id string) (user.User, error) {
	return f.getByID(ctx, id)
}

type fakeNotifier struct {
	send func(ctx context.Context, msg notifications.Message) error
}

func (f *fakeNotifier) Send(ctx context.Context, msg notifications.Message) error {
	return f.send(ctx, msg)
}

func newTestWorker(repo NotificationsRepository, users RecipientDirectory, n notifications.Notifier) *Worker {
	return New(
		Config{WorkerID: "test-1"},
		repo,
		users,
		n,
		observability.NewProm(prometheus.NewRegistry()),
		observability.NewDispatchMetrics(),
		slog.New(slog.NewTextHandler(io.Discard, nil)),
	)
}

func claimed(attempts int) notification.Notification {
	return notification.Notification{
		ID:          "n-1",
		Kind:        notification.KindMaterialDecided,
		RecipientID: "stu-1",
		Subject:     "Material approved: Graph Theory Notes",
		Body:        "Your material was approved.",
		Status:      notification.StatusSending,
		Attempts:    attempts,
		MaxAttempts: 3,
	}
}

func TestProcessOne_NothingDue(t *testing.T) {
	repo := &fakeRepo{
		claim: func(ctx context.Context) (notification.Notification, error) {
			return notification.Notification{}, notification.ErrNotFound
		},
	}

	w := newTestWorker(repo, &fakeUsers{}, &fakeNotifier{})

	processed, err := w.ProcessOne(context.Background())
	if err != nil {
		t.Fatalf("ProcessOne error: %v", err)
	}
	if processed {
		t.Fatalf("expected processed=false when queue is empty")
	}
}

func TestProcessOne_SendsAndMarks(t *testing.T) {
	var sentID string
	var gotMsg notifications.Message

	repo := &fakeRepo{
		claim: func(ctx context.Context) (notification.Notification, error) {
			return claimed(1), nil
		},
		markSent: func(ctx context.Context, id string) error {
			sentID = id
			return nil
		},
	}
	users := &fakeUsers{
		getByID: func(ctx context.Context, id string) (user.User, error) {
			return user.User{ID: id, Email: "s@campus.edu", Name: "Sam"}, nil
		},
	}
	notifier := &fakeNotifier{
		send: func(ctx context.Context, msg notifications.Message) error {
			gotMsg = msg
			return nil
		},
	}

	w := newTestWorker(repo, users, notifier)

	processed, err := w.ProcessOne(context.Background())
	if err != nil {
		t.Fatalf("ProcessOne error: %v", err)
	}
	if !processed {
		t.Fatalf("expected processed=true")
	}
	if sentID != "n-1" {
		t.Fatalf("expected MarkSent for n-1, got %q", sentID)
	}
	if gotMsg.Email != "s@campus.edu" {
		t.Fatalf("expected recipient email resolved, got %q", gotMsg.Email)
	}

	snap := w.metrics.Snapshot()
	if snap.Sent != 1 || snap.Claimed != 1 {
		t.Fatalf("expected claimed=1 sent=1, got %+v", snap)
	}
}

func TestProcessOne_FailureReschedules(t *testing.T) {
	var rescheduledAt time.Time
	var lastErr string

	repo := &fakeRepo{
		claim: func(ctx context.Context) (notification.Notification, error) {
			return claimed(1), nil
		},
		reschedule: func(ctx context.Context, id string, runAt time.Time, errMsg string) error {
			rescheduledAt = runAt
			lastErr = errMsg
			return nil
		},
		markFailed: func(ctx context.Context, id string, errMsg string) error {
			t.Fatalf("must not dead-letter on first failure")
			return nil
		},
	}
	users := &fakeUsers{
		getByID: func(ctx context.Context, id string) (user.User, error) {
			return user.User{ID: id, Email: "s@campus.edu"}, nil
		},
	}
	notifier := &fakeNotifier{
		send: func(ctx context.Context, msg notifications.Message) error {
			return errors.New("smtp unreachable")
		},
	}

	w := newTestWorker(repo, users, notifier)

	processed, err := w.ProcessOne(context.Background())
	if err != nil {
		t.Fatalf("ProcessOne error: %v", err)
	}
	if !processed {
		t.Fatalf("expected processed=true")
	}
	if rescheduledAt.IsZero() || !rescheduledAt.After(time.Now()) {
		t.Fatalf("expected a future retry time, got %v", rescheduledAt)
	}
	if lastErr == "" {
		t.Fatalf("expected the send error to be recorded")
	}

	snap := w.metrics.Snapshot()
	if snap.Retried != 1 || snap.DeadLettered != 0 {
		t.Fatalf("expected retried=1 deadLettered=0, got %+v", snap)
	}
}

func TestProcessOne_ExhaustedDeadLetters(t *testing.T) {
	var failedID string

	repo := &fakeRepo{
		claim: func(ctx context.Context) (notification.Notification, error) {
			return claimed(3), nil
		},
		markFailed: func(ctx context.Context, id string, errMsg string) error {
			failedID = id
			return nil
		},
		reschedule: func(ctx context.Context, id string, runAt time.Time, errMsg string) error {
			t.Fatalf("must not reschedule after the last attempt")
			return nil
		},
	}
	users := &fakeUsers{
		getByID: func(ctx context.Context, id string) (user.User, error) {
			return user.User{ID: id, Email: "s@campus.edu"}, nil
		},
	}
	notifier := &fakeNotifier{
		send: func(ctx context.Context, msg notifications.Message) error {
			return errors.New("smtp unreachable")
		},
	}

	w := newTestWorker(repo, users, notifier)

	processed, err := w.ProcessOne(context.Background())
	if err != nil {
		t.Fatalf("ProcessOne error: %v", err)
	}
	if !processed {
		t.Fatalf("expected processed=true")
	}
	if failedID != "n-1" {
		t.Fatalf("expected MarkFailed for n-1, got %q", failedID)
	}

	snap := w.metrics.Snapshot()
	if snap.DeadLettered != 1 {
		t.Fatalf("expected deadLettered=1, got %+v", snap)
	}
}

func TestProcessOne_RecipientLookupFailureCountsAsFailure(t *testing.T) {
	var rescheduled bool

	repo := &fakeRepo{
		claim: func(ctx context.Context) (notification.Notification, error) {
			return claimed(1), nil
		},
		reschedule: func(ctx context.Context, id string, runAt time.Time, errMsg string) error {
			rescheduled = true
			return nil
		},
	}
	users := &fakeUsers{
		getByID: func(ctx context.Context, id string) (user.User, error) {
			return user.User{}, user.ErrNotFound
		},
	}
	notifier := &fakeNotifier{
		send: func(ctx context.Context, msg notifications.Message) error {
			t.Fatalf("send must not be called when the recipient cannot be resolved")
			return nil
		},
	}

	w := newTestWorker(repo, users, notifier)

	_, err := w.ProcessOne(context.Background())
	if err != nil {
		t.Fatalf("ProcessOne error: %v", err)
	}
	if !rescheduled {
		t.Fatalf("expected a reschedule")
	}
}

func TestBackoff_GrowsAndCaps(t *testing.T) {
	if backoff(0) < 2*time.Second {
		t.Fatalf("first retry should wait at least the base delay")
	}

	prev := backoff(0)
	next := backoff(3)

	if next <= prev {
		t.Fatalf("backoff should grow with attempts: %v then %v", prev, next)
	}

	if d := backoff(50); d > backoffCap+time.Second {
		t.Fatalf("backoff should cap at %v, got %v", backoffCap, d)
	}
}
