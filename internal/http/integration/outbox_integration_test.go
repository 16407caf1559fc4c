package integration__test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/zikenn26/CampusHub/internal/notifications"
	"github.com/zikenn26/CampusHub/internal/observability"
	"github.com/zikenn26/CampusHub/internal/queue/worker"
	"github.com/zikenn26/CampusHub/internal/repo/postgres"
)

type capturingNotifier struct {
	mu   sync.Mutex
	sent []notifications.Message
	fail error
}

func (n *capturingNotifier) Send(ctx context.Context, msg notifications.Message) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.fail != nil {
		return n.fail
	}

	n.sent = append(n.sent, msg)

	return nil
}

// Approving a material must leave a pending outbox row, and one worker
// pass must deliver it to the uploader and settle the row.
func TestOutboxIntegration_DecisionDelivered(t *testing.T) {
	router, pool := setupRouter(t)
	resetDB(t, pool)

	defer resetDB(t, pool)

	seedUser(t, pool, "verifier@example.com", "Vera Verifier", "verifier")
	seedUser(t, pool, "uploader@example.com", "Up Loader", "student")
	deptID := seedDepartment(t, pool, "PH", "Physics")

	uploaderToken := loginAs(t, router, "uploader@example.com")
	verifierToken := loginAs(t, router, "verifier@example.com")

	materialID := createLinkMaterial(t, router, uploaderToken, deptID, "Quantum Mechanics Primer")

	w := doAuthed(router, http.MethodPost, "/api/v1/moderation/"+materialID+"/decision",
		`{"decision":"approve"}`, verifierToken)

	if w.Code != http.StatusOK {
		t.Fatalf("decision got status %d, body=%s", w.Code, w.Body.String())
	}

	prom := observability.NewProm(prometheus.NewRegistry())
	notifier := &capturingNotifier{}

	wk := worker.New(
		worker.Config{WorkerID: "it-worker"},
		postgres.NewNotificationsRepo(pool, prom),
		postgres.NewUsersRepo(pool, prom),
		notifier,
		prom,
		observability.NewDispatchMetrics(),
		slog.New(slog.NewTextHandler(io.Discard, nil)),
	)

	processed, err := wk.ProcessOne(context.Background())

	if err != nil {
		t.Fatalf("ProcessOne returned error: %v", err)
	}

	if !processed {
		t.Fatalf("expected a due notification to be processed")
	}

	if len(notifier.sent) != 1 {
		t.Fatalf("sent %d messages, want 1", len(notifier.sent))
	}

	msg := notifier.sent[0]

	if msg.Email != "uploader@example.com" {
		t.Fatalf("delivered to %s, want uploader@example.com", msg.Email)
	}

	var status string

	err = pool.QueryRow(context.Background(), `SELECT status FROM notifications LIMIT 1`).Scan(&status)
	if err != nil {
		t.Fatalf("failed to read notification status: %v", err)
	}

	if status != "sent" {
		t.Fatalf("notification status = %s, want sent", status)
	}

	// nothing else is due
	processed, err = wk.ProcessOne(context.Background())

	if err != nil {
		t.Fatalf("second ProcessOne returned error: %v", err)
	}

	if processed {
		t.Fatalf("expected the outbox to be drained")
	}
}

// A failing provider reschedules the row with backoff instead of
// consuming it.
func TestOutboxIntegration_SendFailureReschedules(t *testing.T) {
	router, pool := setupRouter(t)
	resetDB(t, pool)

	defer resetDB(t, pool)

	seedUser(t, pool, "verifier@example.com", "Vera Verifier", "verifier")
	seedUser(t, pool, "uploader@example.com", "Up Loader", "student")
	deptID := seedDepartment(t, pool, "CH", "Chemistry")

	uploaderToken := loginAs(t, router, "uploader@example.com")
	verifierToken := loginAs(t, router, "verifier@example.com")

	materialID := createLinkMaterial(t, router, uploaderToken, deptID, "Organic Chemistry Notes")

	w := doAuthed(router, http.MethodPost, "/api/v1/moderation/"+materialID+"/decision",
		`{"decision":"reject","note":"wrong department"}`, verifierToken)

	if w.Code != http.StatusOK {
		t.Fatalf("decision got status %d, body=%s", w.Code, w.Body.String())
	}

	prom := observability.NewProm(prometheus.NewRegistry())
	notifier := &capturingNotifier{fail: errors.New("smtp down")}

	wk := worker.New(
		worker.Config{WorkerID: "it-worker"},
		postgres.NewNotificationsRepo(pool, prom),
		postgres.NewUsersRepo(pool, prom),
		notifier,
		prom,
		observability.NewDispatchMetrics(),
		slog.New(slog.NewTextHandler(io.Discard, nil)),
	)

	processed, err := wk.ProcessOne(context.Background())

	if err != nil {
		t.Fatalf("ProcessOne returned error: %v", err)
	}

	if !processed {
		t.Fatalf("expected the due notification to be claimed")
	}

	var (
		status   string
		attempts int
		lastErr  *string
	)

	err = pool.QueryRow(context.Background(), `
		SELECT status, attempts, last_error FROM notifications LIMIT 1
	`).Scan(&status, &attempts, &lastErr)
	if err != nil {
		t.Fatalf("failed to read notification row: %v", err)
	}

	if status != "pending" {
		t.Fatalf("notification status = %s, want pending (rescheduled)", status)
	}

	if attempts != 1 {
		t.Fatalf("attempts = %d, want 1", attempts)
	}

	if lastErr == nil || *lastErr == "" {
		t.Fatalf("last_error not recorded")
	}

	// run_at moved into the future, so an immediate second pass claims nothing
	processed, err = wk.ProcessOne(context.Background())

	if err != nil {
		t.Fatalf("second ProcessOne returned error: %v", err)
	}

	if processed {
		t.Fatalf("rescheduled notification should not be due yet")
	}
}
