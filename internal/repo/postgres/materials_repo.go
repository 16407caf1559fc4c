package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/zikenn26/CampusHub/internal/domain/material"
	"github.com/zikenn26/CampusHub/internal/observability"
)

const materialColumns = `id, department_id, uploader_id, title, description, file_type, file_ref, object_key, subject_tags, semester, year, review_status, verifier_id, note, uploaded_at, updated_at, decided_at, downloads_count, views_count, favorites_count`

type MaterialsRepo struct {
	pool *pgxpool.Pool
	prom *observability.Prom
}

func NewMaterialsRepo(pool *pgxpool.Pool, prom *observability.Prom) *MaterialsRepo {
	return &MaterialsRepo{pool: pool, prom: prom}
}

func (r *MaterialsRepo) observe(op string, fn func() error) error {
	if r.prom != nil {
		return r.prom.ObserveDB(op, fn)
	}
	return fn()
}

func (r *MaterialsRepo) BeginTx(ctx context.Context) (pgx.Tx, error) {
	return r.pool.BeginTx(ctx, pgx.TxOptions{})
}

func scanMaterial(row pgx.Row) (material.Material, error) {
	var m material.Material

	err := row.Scan(
		&m.ID,
		&m.DepartmentID,
		&m.UploaderID,
		&m.Title,
		&m.Description,
		&m.FileType,
		&m.FileRef,
		&m.ObjectKey,
		&m.SubjectTags,
		&m.Semester,
		&m.Year,
		&m.ReviewStatus,
		&m.VerifierID,
		&m.Note,
		&m.UploadedAt,
		&m.UpdatedAt,
		&m.DecidedAt,
		&m.Downloads,
		&m.Views,
		&m.Favorites,
	)

	return m, err
}

func (r *MaterialsRepo) CreateTx(ctx context.Context, tx pgx.Tx, m material.Material) error {
	return r.observe("materials.create_tx", func() error {
		_, err := tx.Exec(ctx,
			`INSERT INTO materials (id, department_id, uploader_id, title, description, file_type, file_ref, object_key, subject_tags, semester, year, review_status, uploaded_at, updated_at)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)
			`,
			m.ID, m.DepartmentID, m.UploaderID, m.Title, m.Description, m.FileType, m.FileRef, m.ObjectKey, m.SubjectTags, m.Semester, m.Year, m.ReviewStatus, m.UploadedAt, m.UpdatedAt,
		)
		return err
	})
}

func (r *MaterialsRepo) GetByID(ctx context.Context, id string) (material.Material, error) {
	var m material.Material

	err := r.observe("materials.get_by_id", func() error {
		var e error
		m, e = scanMaterial(r.pool.QueryRow(ctx,
			`SELECT `+materialColumns+` FROM materials WHERE id = $1`,
			id,
		))
		return e
	})

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return material.Material{}, material.ErrNotFound
		}

		return material.Material{}, err
	}

	return m, nil
}

// List applies the viewer scope in SQL so hidden records never leave
// the database.
func (r *MaterialsRepo) List(ctx context.Context, vis material.Visibility, f material.ListFilter) ([]material.Material, int, error) {
	base := `SELECT ` + materialColumns + `, COUNT(*) OVER() AS total FROM materials`

	var conds []string
	var args []interface{}

	argsPosition := 1

	switch {
	case vis.All:
		// moderators may narrow by any status
		if f.Status != nil {
			conds = append(conds, fmt.Sprintf("review_status = $%d", argsPosition))
			args = append(args, *f.Status)
			argsPosition++
		}
	case vis.UploaderID != "":
		conds = append(conds, fmt.Sprintf("(review_status = 'approved' OR uploader_id = $%d)", argsPosition))
		args = append(args, vis.UploaderID)
		argsPosition++
	default:
		conds = append(conds, "review_status = 'approved'")
	}

	if f.DepartmentID != nil {
		conds = append(conds, fmt.Sprintf("department_id = $%d", argsPosition))
		args = append(args, *f.DepartmentID)
		argsPosition++
	}

	if f.UploaderID != nil {
		conds = append(conds, fmt.Sprintf("uploader_id = $%d", argsPosition))
		args = append(args, *f.UploaderID)
		argsPosition++
	}

	if f.Semester != nil {
		conds = append(conds, fmt.Sprintf("semester = $%d", argsPosition))
		args = append(args, *f.Semester)
		argsPosition++
	}

	if f.Year != nil {
		conds = append(conds, fmt.Sprintf("year = $%d", argsPosition))
		args = append(args, *f.Year)
		argsPosition++
	}

	if f.Tag != nil {
		conds = append(conds, fmt.Sprintf("$%d = ANY(subject_tags)", argsPosition))
		args = append(args, *f.Tag)
		argsPosition++
	}

	if f.Query != nil {
		conds = append(conds, fmt.Sprintf("(title ILIKE $%d OR description ILIKE $%d)", argsPosition, argsPosition))
		args = append(args, "%"+*f.Query+"%")
		argsPosition++
	}

	query := base

	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}

	query += fmt.Sprintf(" ORDER BY uploaded_at DESC, id DESC LIMIT $%d OFFSET $%d", argsPosition, argsPosition+1)

	args = append(args, f.Limit, f.Offset)

	return r.queryMaterials(ctx, "materials.list", query, args...)
}

// ListQueue is the review queue, oldest first. Status defaults to
// pending; moderators may ask for a decided slice instead.
func (r *MaterialsRepo) ListQueue(ctx context.Context, status material.ReviewStatus, departmentID *string, limit, offset int) ([]material.Material, int, error) {
	base := `SELECT ` + materialColumns + `, COUNT(*) OVER() AS total FROM materials WHERE review_status = $1`

	args := []interface{}{status}

	argsPosition := 2
	query := base

	if departmentID != nil {
		query += fmt.Sprintf(" AND department_id = $%d", argsPosition)
		args = append(args, *departmentID)
		argsPosition++
	}

	query += fmt.Sprintf(" ORDER BY uploaded_at ASC, id ASC LIMIT $%d OFFSET $%d", argsPosition, argsPosition+1)

	args = append(args, limit, offset)

	return r.queryMaterials(ctx, "materials.list_queue", query, args...)
}

func (r *MaterialsRepo) queryMaterials(ctx context.Context, op, query string, args ...interface{}) ([]material.Material, int, error) {
	var rows pgx.Rows

	err := r.observe(op, func() error {
		var e error
		rows, e = r.pool.Query(ctx, query, args...)
		return e
	})

	if err != nil {
		return nil, 0, err
	}

	defer rows.Close()

	out := make([]material.Material, 0)
	total := 0

	for rows.Next() {
		var m material.Material
		var t int

		e := rows.Scan(
			&m.ID, &m.DepartmentID, &m.UploaderID, &m.Title, &m.Description,
			&m.FileType, &m.FileRef, &m.ObjectKey, &m.SubjectTags, &m.Semester, &m.Year,
			&m.ReviewStatus, &m.VerifierID, &m.Note,
			&m.UploadedAt, &m.UpdatedAt, &m.DecidedAt,
			&m.Downloads, &m.Views, &m.Favorites, &t,
		)

		if e != nil {
			return nil, 0, e
		}

		total = t
		out = append(out, m)
	}

	if rows.Err() != nil {
		return nil, 0, rows.Err()
	}

	return out, total, nil
}

// DecideTx is the single compare-and-set a decision rides on. The
// UPDATE only matches a pending row; under two racing verifiers the
// loser blocks on the row lock, re-evaluates the predicate after the
// winner commits, matches nothing and gets ErrNotPending.
func (r *MaterialsRepo) DecideTx(ctx context.Context, tx pgx.Tx, id string, status material.ReviewStatus, verifierID string, note *string) (material.Material, error) {
	var m material.Material

	err := r.observe("materials.decide_tx", func() error {
		var e error
		m, e = scanMaterial(tx.QueryRow(ctx,
			`UPDATE materials
			SET review_status = $2,
				verifier_id = $3,
				note = $4,
				decided_at = NOW(),
				updated_at = NOW()
			WHERE id = $1 AND review_status = 'pending'
			RETURNING `+materialColumns,
			id, status, verifierID, note,
		))
		return e
	})

	if err == nil {
		return m, nil
	}

	if !errors.Is(err, pgx.ErrNoRows) {
		return material.Material{}, err
	}

	// zero rows: missing record or already decided
	var current material.ReviewStatus

	err = r.observe("materials.decide_tx.recheck", func() error {
		return tx.QueryRow(ctx, `SELECT review_status FROM materials WHERE id = $1`, id).Scan(&current)
	})

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return material.Material{}, material.ErrNotFound
		}

		return material.Material{}, err
	}

	return material.Material{}, material.ErrNotPending
}

// ResubmitTx puts a rejected material back in the queue and clears the
// previous decision.
func (r *MaterialsRepo) ResubmitTx(ctx context.Context, tx pgx.Tx, id string) (material.Material, error) {
	var m material.Material

	err := r.observe("materials.resubmit_tx", func() error {
		var e error
		m, e = scanMaterial(tx.QueryRow(ctx,
			`UPDATE materials
			SET review_status = 'pending',
				verifier_id = NULL,
				note = NULL,
				decided_at = NULL,
				updated_at = NOW()
			WHERE id = $1 AND review_status = 'rejected'
			RETURNING `+materialColumns,
			id,
		))
		return e
	})

	if err == nil {
		return m, nil
	}

	if !errors.Is(err, pgx.ErrNoRows) {
		return material.Material{}, err
	}

	var current material.ReviewStatus

	err = r.observe("materials.resubmit_tx.recheck", func() error {
		return tx.QueryRow(ctx, `SELECT review_status FROM materials WHERE id = $1`, id).Scan(&current)
	})

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return material.Material{}, material.ErrNotFound
		}

		return material.Material{}, err
	}

	return material.Material{}, material.ErrNotRejected
}

func (r *MaterialsRepo) IncrementViews(ctx context.Context, id string) error {
	return r.bumpCounter(ctx, "materials.increment_views", `UPDATE materials SET views_count = views_count + 1 WHERE id = $1`, id)
}

func (r *MaterialsRepo) IncrementDownloads(ctx context.Context, id string) error {
	return r.bumpCounter(ctx, "materials.increment_downloads", `UPDATE materials SET downloads_count = downloads_count + 1 WHERE id = $1`, id)
}

func (r *MaterialsRepo) bumpCounter(ctx context.Context, op, query, id string) error {
	var tag pgconn.CommandTag

	err := r.observe(op, func() error {
		var e error
		tag, e = r.pool.Exec(ctx, query, id)
		return e
	})

	if err != nil {
		return err
	}

	if tag.RowsAffected() == 0 {
		return material.ErrNotFound
	}

	return nil
}

// ToggleFavorite flips the caller's favorite flag and keeps the
// denormalized count in step, all in one transaction.
func (r *MaterialsRepo) ToggleFavorite(ctx context.Context, userID, materialID string) (nowFavorite bool, count int64, err error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})

	if err != nil {
		return false, 0, err
	}

	defer func() {
		_ = tx.Rollback(ctx)
	}()

	var tag pgconn.CommandTag

	err = r.observe("materials.toggle_favorite.insert", func() error {
		var e error
		tag, e = tx.Exec(ctx,
			`INSERT INTO material_favorites (user_id, material_id)
			VALUES ($1,$2)
			ON CONFLICT (user_id, material_id) DO NOTHING`,
			userID, materialID,
		)
		return e
	})

	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23503" {
			return false, 0, material.ErrNotFound
		}

		return false, 0, err
	}

	if tag.RowsAffected() == 1 {
		nowFavorite = true

		err = r.observe("materials.toggle_favorite.increment", func() error {
			return tx.QueryRow(ctx,
				`UPDATE materials SET favorites_count = favorites_count + 1 WHERE id = $1 RETURNING favorites_count`,
				materialID,
			).Scan(&count)
		})
	} else {
		err = r.observe("materials.toggle_favorite.delete", func() error {
			_, e := tx.Exec(ctx,
				`DELETE FROM material_favorites WHERE user_id = $1 AND material_id = $2`,
				userID, materialID,
			)
			return e
		})

		if err != nil {
			return false, 0, err
		}

		err = r.observe("materials.toggle_favorite.decrement", func() error {
			return tx.QueryRow(ctx,
				`UPDATE materials SET favorites_count = GREATEST(favorites_count - 1, 0) WHERE id = $1 RETURNING favorites_count`,
				materialID,
			).Scan(&count)
		})
	}

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, 0, material.ErrNotFound
		}

		return false, 0, err
	}

	err = tx.Commit(ctx)

	if err != nil {
		return false, 0, err
	}

	return nowFavorite, count, nil
}

func (r *MaterialsRepo) ListFavorites(ctx context.Context, userID string, vis material.Visibility, limit int) ([]material.Material, error) {
	query := `SELECT ` + prefixedMaterialColumns("m") + `
		FROM materials m
		JOIN material_favorites f ON f.material_id = m.id
		WHERE f.user_id = $1`

	if !vis.All {
		query += ` AND (m.review_status = 'approved' OR m.uploader_id = $1)`
	}

	query += ` ORDER BY f.created_at DESC LIMIT $2`

	var rows pgx.Rows

	err := r.observe("materials.list_favorites", func() error {
		var e error
		rows, e = r.pool.Query(ctx, query, userID, limit)
		return e
	})

	if err != nil {
		return nil, err
	}

	defer rows.Close()

	out := make([]material.Material, 0, limit)

	for rows.Next() {
		var m material.Material

		e := rows.Scan(
			&m.ID, &m.DepartmentID, &m.UploaderID, &m.Title, &m.Description,
			&m.FileType, &m.FileRef, &m.ObjectKey, &m.SubjectTags, &m.Semester, &m.Year,
			&m.ReviewStatus, &m.VerifierID, &m.Note,
			&m.UploadedAt, &m.UpdatedAt, &m.DecidedAt,
			&m.Downloads, &m.Views, &m.Favorites,
		)

		if e != nil {
			return nil, e
		}

		out = append(out, m)
	}

	if rows.Err() != nil {
		return nil, rows.Err()
	}

	return out, nil
}

// TopMaterials ranks approved records by engagement, favorites counting
// double.
func (r *MaterialsRepo) TopMaterials(ctx context.Context, limit int) ([]material.Material, error) {
	var rows pgx.Rows

	err := r.observe("materials.top", func() error {
		var e error
		rows, e = r.pool.Query(ctx,
			`SELECT `+materialColumns+`
			FROM materials
			WHERE review_status = 'approved'
			ORDER BY downloads_count + views_count + 2 * favorites_count DESC, uploaded_at DESC
			LIMIT $1`,
			limit,
		)
		return e
	})

	if err != nil {
		return nil, err
	}

	defer rows.Close()

	out := make([]material.Material, 0, limit)

	for rows.Next() {
		var m material.Material

		e := rows.Scan(
			&m.ID, &m.DepartmentID, &m.UploaderID, &m.Title, &m.Description,
			&m.FileType, &m.FileRef, &m.ObjectKey, &m.SubjectTags, &m.Semester, &m.Year,
			&m.ReviewStatus, &m.VerifierID, &m.Note,
			&m.UploadedAt, &m.UpdatedAt, &m.DecidedAt,
			&m.Downloads, &m.Views, &m.Favorites,
		)

		if e != nil {
			return nil, e
		}

		out = append(out, m)
	}

	if rows.Err() != nil {
		return nil, rows.Err()
	}

	return out, nil
}

func prefixedMaterialColumns(alias string) string {
	cols := strings.Split(materialColumns, ", ")

	for i, c := range cols {
		cols[i] = alias + "." + c
	}

	return strings.Join(cols, ", ")
}
