package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/zikenn26/CampusHub/internal/domain/audit"
	"github.com/zikenn26/CampusHub/internal/observability"
)

// AuditRepo only ever inserts and selects. There is deliberately no
// update or delete here.
type AuditRepo struct {
	pool *pgxpool.Pool
	prom *observability.Prom
}

func NewAuditRepo(pool *pgxpool.Pool, prom *observability.Prom) *AuditRepo {
	return &AuditRepo{pool: pool, prom: prom}
}

func (r *AuditRepo) observe(op string, fn func() error) error {
	if r.prom != nil {
		return r.prom.ObserveDB(op, fn)
	}
	return fn()
}

func (r *AuditRepo) AppendTx(ctx context.Context, tx pgx.Tx, e audit.Entry) error {
	return r.observe("audit.append_tx", func() error {
		_, err := tx.Exec(ctx,
			`INSERT INTO audit_log (id, actor_id, action, target_type, target_id, note, created_at)
			VALUES ($1,$2,$3,$4,$5,$6,$7)
			`,
			e.ID, e.ActorID, e.Action, e.TargetType, e.TargetID, e.Note, e.CreatedAt,
		)
		return err
	})
}

func (r *AuditRepo) Append(ctx context.Context, e audit.Entry) error {
	return r.observe("audit.append", func() error {
		_, err := r.pool.Exec(ctx,
			`INSERT INTO audit_log (id, actor_id, action, target_type, target_id, note, created_at)
			VALUES ($1,$2,$3,$4,$5,$6,$7)
			`,
			e.ID, e.ActorID, e.Action, e.TargetType, e.TargetID, e.Note, e.CreatedAt,
		)
		return err
	})
}

// Query returns matching entries oldest first. The same filter over an
// unchanged table always yields the same sequence.
func (r *AuditRepo) Query(ctx context.Context, f audit.Filter) ([]audit.Entry, int, error) {
	base := `SELECT id, actor_id, action, target_type, target_id, note, created_at, COUNT(*) OVER() AS total FROM audit_log`

	var conds []string
	var args []interface{}

	argsPosition := 1

	if f.ActorID != nil {
		conds = append(conds, fmt.Sprintf("actor_id = $%d", argsPosition))
		args = append(args, *f.ActorID)
		argsPosition++
	}

	if f.Action != nil {
		conds = append(conds, fmt.Sprintf("action = $%d", argsPosition))
		args = append(args, *f.Action)
		argsPosition++
	}

	if f.TargetType != nil {
		conds = append(conds, fmt.Sprintf("target_type = $%d", argsPosition))
		args = append(args, *f.TargetType)
		argsPosition++
	}

	if f.TargetID != nil {
		conds = append(conds, fmt.Sprintf("target_id = $%d", argsPosition))
		args = append(args, *f.TargetID)
		argsPosition++
	}

	if f.From != nil {
		conds = append(conds, fmt.Sprintf("created_at >= $%d", argsPosition))
		args = append(args, *f.From)
		argsPosition++
	}

	if f.To != nil {
		conds = append(conds, fmt.Sprintf("created_at <= $%d", argsPosition))
		args = append(args, *f.To)
		argsPosition++
	}

	query := base

	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}

	query += fmt.Sprintf(" ORDER BY created_at ASC, id ASC LIMIT $%d OFFSET $%d", argsPosition, argsPosition+1)

	args = append(args, f.Limit, f.Offset)

	var rows pgx.Rows

	err := r.observe("audit.query", func() error {
		var e error
		rows, e = r.pool.Query(ctx, query, args...)
		return e
	})

	if err != nil {
		return nil, 0, err
	}

	defer rows.Close()

	out := make([]audit.Entry, 0, f.Limit)
	total := 0

	for rows.Next() {
		var e audit.Entry
		var t int

		scanErr := rows.Scan(&e.ID, &e.ActorID, &e.Action, &e.TargetType, &e.TargetID, &e.Note, &e.CreatedAt, &t)

		if scanErr != nil {
			return nil, 0, scanErr
		}

		total = t
		out = append(out, e)
	}

	if rows.Err() != nil {
		return nil, 0, rows.Err()
	}

	return out, total, nil
}

// ListForTarget is the material-detail shortcut: full history of one
// record, oldest first.
func (r *AuditRepo) ListForTarget(ctx context.Context, targetType, targetID string) ([]audit.Entry, error) {
	var rows pgx.Rows

	err := r.observe("audit.list_for_target", func() error {
		var e error
		rows, e = r.pool.Query(ctx,
			`SELECT id, actor_id, action, target_type, target_id, note, created_at
			FROM audit_log
			WHERE target_type = $1 AND target_id = $2
			ORDER BY created_at ASC, id ASC`,
			targetType, targetID,
		)
		return e
	})

	if err != nil {
		return nil, err
	}

	defer rows.Close()

	out := make([]audit.Entry, 0)

	for rows.Next() {
		var e audit.Entry

		scanErr := rows.Scan(&e.ID, &e.ActorID, &e.Action, &e.TargetType, &e.TargetID, &e.Note, &e.CreatedAt)

		if scanErr != nil {
			return nil, scanErr
		}

		out = append(out, e)
	}

	if rows.Err() != nil {
		return nil, rows.Err()
	}

	return out, nil
}
