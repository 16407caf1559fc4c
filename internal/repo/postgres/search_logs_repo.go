package postgres

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/zikenn26/CampusHub/internal/observability"
)

// SearchLogsRepo records what people look for. Redis keeps the live
// counters; this table is the durable trail.
type SearchLogsRepo struct {
	pool *pgxpool.Pool
	prom *observability.Prom
}

func NewSearchLogsRepo(pool *pgxpool.Pool, prom *observability.Prom) *SearchLogsRepo {
	return &SearchLogsRepo{pool: pool, prom: prom}
}

func (r *SearchLogsRepo) observe(op string, fn func() error) error {
	if r.prom != nil {
		return r.prom.ObserveDB(op, fn)
	}
	return fn()
}

func (r *SearchLogsRepo) Insert(ctx context.Context, id, query string, userID *string) error {
	return r.observe("search_logs.insert", func() error {
		_, err := r.pool.Exec(ctx,
			`INSERT INTO search_query_log (id, query, user_id) VALUES ($1,$2,$3)`,
			id, query, userID,
		)
		return err
	})
}
