package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/zikenn26/CampusHub/internal/domain/notification"
	"github.com/zikenn26/CampusHub/internal/observability"
)

const notificationColumns = `id, kind, recipient_id, material_id, subject, body, status, attempts, max_attempts, run_at, locked_at, last_error, created_at, sent_at`

type NotificationsRepo struct {
	pool *pgxpool.Pool
	prom *observability.Prom
}

func NewNotificationsRepo(pool *pgxpool.Pool, prom *observability.Prom) *NotificationsRepo {
	return &NotificationsRepo{pool: pool, prom: prom}
}

func (r *NotificationsRepo) observe(op string, fn func() error) error {
	if r.prom != nil {
		return r.prom.ObserveDB(op, fn)
	}
	return fn()
}

func scanNotification(row pgx.Row) (notification.Notification, error) {
	var n notification.Notification

	err := row.Scan(
		&n.ID,
		&n.Kind,
		&n.RecipientID,
		&n.MaterialID,
		&n.Subject,
		&n.Body,
		&n.Status,
		&n.Attempts,
		&n.MaxAttempts,
		&n.RunAt,
		&n.LockedAt,
		&n.LastError,
		&n.CreatedAt,
		&n.SentAt,
	)

	return n, err
}

// EnqueueTx writes the outbox row inside the caller's transaction so a
// rolled-back decision never produces a notification.
func (r *NotificationsRepo) EnqueueTx(ctx context.Context, tx pgx.Tx, n notification.Notification) error {
	return r.observe("notifications.enqueue_tx", func() error {
		_, err := tx.Exec(ctx,
			`INSERT INTO notifications (id, kind, recipient_id, material_id, subject, body, status, attempts, max_attempts, run_at, created_at)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
			`,
			n.ID, n.Kind, n.RecipientID, n.MaterialID, n.Subject, n.Body, n.Status, n.Attempts, n.MaxAttempts, n.RunAt, n.CreatedAt,
		)
		return err
	})
}

// ClaimNext grabs one due row with SKIP LOCKED so concurrent workers
// never double-send. Attempts are counted at claim time.
func (r *NotificationsRepo) ClaimNext(ctx context.Context) (notification.Notification, error) {
	var n notification.Notification

	err := r.observe("notifications.claim_next", func() error {
		var e error
		n, e = scanNotification(r.pool.QueryRow(ctx, `
		WITH next AS (
			SELECT id
			FROM notifications
			WHERE status = 'pending'
			  AND run_at <= NOW()
			  AND attempts < max_attempts
			ORDER BY run_at ASC, created_at ASC
			FOR UPDATE SKIP LOCKED
			LIMIT 1
		)
		UPDATE notifications
		SET status = 'sending',
		    locked_at = NOW(),
		    attempts = attempts + 1
		WHERE id = (SELECT id FROM next)
		RETURNING `+notificationColumns,
		))
		return e
	})

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return notification.Notification{}, notification.ErrNotFound // nothing due
		}

		return notification.Notification{}, err
	}

	return n, nil
}

func (r *NotificationsRepo) MarkSent(ctx context.Context, id string) error {
	var tag pgconn.CommandTag

	err := r.observe("notifications.mark_sent", func() error {
		var e error
		tag, e = r.pool.Exec(ctx, `
		UPDATE notifications
		SET status = 'sent',
		    sent_at = NOW(),
		    locked_at = NULL,
		    last_error = NULL
		WHERE id = $1
	`, id)
		return e
	})

	if err != nil {
		return err
	}

	if tag.RowsAffected() == 0 {
		return notification.ErrNotFound
	}

	return nil
}

func (r *NotificationsRepo) MarkFailed(ctx context.Context, id string, errMsg string) error {
	var tag pgconn.CommandTag

	err := r.observe("notifications.mark_failed", func() error {
		var e error
		tag, e = r.pool.Exec(ctx, `
		UPDATE notifications
		SET status = 'failed',
		    locked_at = NULL,
		    last_error = $2
		WHERE id = $1
	`, id, errMsg)
		return e
	})

	if err != nil {
		return err
	}

	if tag.RowsAffected() == 0 {
		return notification.ErrNotFound
	}

	return nil
}

// Reschedule puts a row back in the queue for a later attempt.
func (r *NotificationsRepo) Reschedule(ctx context.Context, id string, runAt time.Time, errMsg string) error {
	var tag pgconn.CommandTag

	err := r.observe("notifications.reschedule", func() error {
		var e error
		tag, e = r.pool.Exec(ctx, `
		UPDATE notifications
		SET status = 'pending',
		    run_at = $2,
		    locked_at = NULL,
		    last_error = $3
		WHERE id = $1
	`, id, runAt, errMsg)
		return e
	})

	if err != nil {
		return err
	}

	if tag.RowsAffected() == 0 {
		return notification.ErrNotFound
	}

	return nil
}

// RequeueStaleSending rescues rows whose worker died mid-dispatch.
func (r *NotificationsRepo) RequeueStaleSending(ctx context.Context, lockTTL time.Duration) (int64, error) {
	secs := int64(lockTTL.Seconds())
	if secs <= 0 {
		secs = 30
	}

	var rows int64

	err := r.observe("notifications.requeue_stale", func() error {
		tag, e := r.pool.Exec(ctx, `
		UPDATE notifications
		SET status = 'pending',
		    locked_at = NULL
		WHERE status = 'sending'
		  AND locked_at IS NOT NULL
		  AND locked_at < NOW() - ($1 * INTERVAL '1 second')
	`, secs)

		if e != nil {
			return e
		}

		rows = tag.RowsAffected()
		return nil
	})

	return rows, err
}

func (r *NotificationsRepo) CountPending(ctx context.Context) (int, error) {
	var total int

	err := r.observe("notifications.count_pending", func() error {
		return r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM notifications WHERE status = 'pending'`).Scan(&total)
	})

	return total, err
}

func (r *NotificationsRepo) ListByStatus(ctx context.Context, status *notification.Status, limit, offset int) ([]notification.Notification, int, error) {
	query := `SELECT ` + notificationColumns + `, COUNT(*) OVER() AS total FROM notifications`

	var args []interface{}

	argsPosition := 1

	if status != nil {
		query += fmt.Sprintf(" WHERE status = $%d", argsPosition)
		args = append(args, *status)
		argsPosition++
	}

	query += fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d OFFSET $%d", argsPosition, argsPosition+1)
	args = append(args, limit, offset)

	var rows pgx.Rows

	err := r.observe("notifications.list_by_status", func() error {
		var e error
		rows, e = r.pool.Query(ctx, query, args...)
		return e
	})

	if err != nil {
		return nil, 0, err
	}

	defer rows.Close()

	out := make([]notification.Notification, 0, limit)
	total := 0

	for rows.Next() {
		var n notification.Notification
		var t int

		e := rows.Scan(&n.ID, &n.Kind, &n.RecipientID, &n.MaterialID, &n.Subject, &n.Body, &n.Status, &n.Attempts, &n.MaxAttempts, &n.RunAt, &n.LockedAt, &n.LastError, &n.CreatedAt, &n.SentAt, &t)

		if e != nil {
			return nil, 0, e
		}

		total = t
		out = append(out, n)
	}

	if rows.Err() != nil {
		return nil, 0, rows.Err()
	}

	return out, total, nil
}

var ErrNotificationNotFailed = errors.New("notification is not failed")

// Retry requeues one dead-lettered row. Attempts reset to zero so the
// claim query will pick it up again.
func (r *NotificationsRepo) Retry(ctx context.Context, id string) error {
	var status string

	err := r.observe("notifications.admin.retry.check_status", func() error {
		return r.pool.QueryRow(ctx, `SELECT status FROM notifications WHERE id = $1`, id).Scan(&status)
	})

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return notification.ErrNotFound
		}

		return err
	}

	if status != string(notification.StatusFailed) {
		return ErrNotificationNotFailed
	}

	return r.observe("notifications.admin.retry.requeue", func() error {
		_, e := r.pool.Exec(ctx, `
		UPDATE notifications
		SET status = 'pending',
		    attempts = 0,
		    run_at = NOW(),
		    locked_at = NULL,
		    last_error = NULL
		WHERE id = $1
	`, id)
		return e
	})
}

func (r *NotificationsRepo) RetryAllFailed(ctx context.Context, limit int) (int64, error) {
	if limit <= 0 {
		limit = 50
	}

	if limit > 500 {
		limit = 500
	}

	var rows int64

	err := r.observe("notifications.admin.retry_all_failed", func() error {
		tag, e := r.pool.Exec(ctx, `
		WITH picked AS (
			SELECT id
			FROM notifications
			WHERE status = 'failed'
			ORDER BY created_at DESC
			LIMIT $1
		)
		UPDATE notifications
		SET status = 'pending',
		    attempts = 0,
		    run_at = NOW(),
		    locked_at = NULL,
		    last_error = NULL
		WHERE id IN (SELECT id FROM picked)
		`, limit)

		if e != nil {
			return e
		}

		rows = tag.RowsAffected()
		return nil
	})

	return rows, err
}

func (r *NotificationsRepo) ListForRecipient(ctx context.Context, recipientID string, limit int) ([]notification.Notification, error) {
	var rows pgx.Rows

	err := r.observe("notifications.list_for_recipient", func() error {
		var e error
		rows, e = r.pool.Query(ctx,
			`SELECT `+notificationColumns+`
			FROM notifications
			WHERE recipient_id = $1
			ORDER BY created_at DESC
			LIMIT $2`,
			recipientID, limit,
		)
		return e
	})

	if err != nil {
		return nil, err
	}

	defer rows.Close()

	out := make([]notification.Notification, 0, limit)

	for rows.Next() {
		var n notification.Notification

		e := rows.Scan(&n.ID, &n.Kind, &n.RecipientID, &n.MaterialID, &n.Subject, &n.Body, &n.Status, &n.Attempts, &n.MaxAttempts, &n.RunAt, &n.LockedAt, &n.LastError, &n.CreatedAt, &n.SentAt)

		if e != nil {
			return nil, e
		}

		out = append(out, n)
	}

	if rows.Err() != nil {
		return nil, rows.Err()
	}

	return out, nil
}
