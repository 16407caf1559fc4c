package analytics

import (
	"context"
	"log/slog"
	"strings"

	"github.com/redis/go-redis/v9"
)

const (
	searchesKey = "campushub:searches"
	viewsKey    = "campushub:material_views"
)

// Tracker keeps search and view counters in Redis sorted sets, so the
// "what is everyone looking for" views come back in one round trip.
// Tracking must never fail a user request: write errors are logged and
// swallowed.
type Tracker struct {
	rdb *redis.Client
	log *slog.Logger
}

func NewTracker(rdb *redis.Client, log *slog.Logger) *Tracker {
	return &Tracker{rdb: rdb, log: log}
}

type QueryCount struct {
	Query string `json:"query"`
	Count int64  `json:"count"`
}

type MaterialCount struct {
	MaterialID string `json:"materialId"`
	Count      int64  `json:"count"`
}

func (t *Tracker) TrackSearch(ctx context.Context, query string) {
	if t == nil || t.rdb == nil {
		return
	}

	q := NormalizeQuery(query)

	if len(q) < 2 {
		return
	}

	if err := t.rdb.ZIncrBy(ctx, searchesKey, 1, q).Err(); err != nil {
		t.log.WarnContext(ctx, "track search", "error", err)
	}
}

func (t *Tracker) TrackMaterialView(ctx context.Context, materialID string) {
	if t == nil || t.rdb == nil {
		return
	}

	if err := t.rdb.ZIncrBy(ctx, viewsKey, 1, materialID).Err(); err != nil {
		t.log.WarnContext(ctx, "track material view", "error", err)
	}
}

func (t *Tracker) TopSearches(ctx context.Context, limit int) ([]QueryCount, error) {
	if t == nil || t.rdb == nil {
		return []QueryCount{}, nil
	}

	if limit <= 0 || limit > 100 {
		limit = 10
	}

	zs, err := t.rdb.ZRevRangeWithScores(ctx, searchesKey, 0, int64(limit-1)).Result()

	if err != nil {
		return nil, err
	}

	out := make([]QueryCount, 0, len(zs))

	for _, z := range zs {
		q, ok := z.Member.(string)

		if !ok {
			continue
		}

		out = append(out, QueryCount{Query: q, Count: int64(z.Score)})
	}

	return out, nil
}

func (t *Tracker) TopMaterialViews(ctx context.Context, limit int) ([]MaterialCount, error) {
	if t == nil || t.rdb == nil {
		return []MaterialCount{}, nil
	}

	if limit <= 0 || limit > 100 {
		limit = 10
	}

	zs, err := t.rdb.ZRevRangeWithScores(ctx, viewsKey, 0, int64(limit-1)).Result()

	if err != nil {
		return nil, err
	}

	out := make([]MaterialCount, 0, len(zs))

	for _, z := range zs {
		id, ok := z.Member.(string)

		if !ok {
			continue
		}

		out = append(out, MaterialCount{MaterialID: id, Count: int64(z.Score)})
	}

	return out, nil
}

// NormalizeQuery lowercases and collapses whitespace so "Linear  ALGEBRA"
// and "linear algebra" count as one search.
func NormalizeQuery(q string) string {
	return strings.Join(strings.Fields(strings.ToLower(q)), " ")
}
