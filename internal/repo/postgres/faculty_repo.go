package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/zikenn26/CampusHub/internal/domain/faculty"
	"github.com/zikenn26/CampusHub/internal/observability"
)

const facultyColumns = `id, department_id, name, title, bio, research_interests, contact_email, office_hours, phone, status, created_at, updated_at`

type FacultyRepo struct {
	pool *pgxpool.Pool
	prom *observability.Prom
}

func NewFacultyRepo(pool *pgxpool.Pool, prom *observability.Prom) *FacultyRepo {
	return &FacultyRepo{pool: pool, prom: prom}
}

func (r *FacultyRepo) observe(op string, fn func() error) error {
	if r.prom != nil {
		return r.prom.ObserveDB(op, fn)
	}
	return fn()
}

func scanFaculty(row pgx.Row) (faculty.Faculty, error) {
	var f faculty.Faculty

	err := row.Scan(
		&f.ID,
		&f.DepartmentID,
		&f.Name,
		&f.Title,
		&f.Bio,
		&f.ResearchInterests,
		&f.ContactEmail,
		&f.OfficeHours,
		&f.Phone,
		&f.Status,
		&f.CreatedAt,
		&f.UpdatedAt,
	)

	return f, err
}

func (r *FacultyRepo) Create(ctx context.Context, f faculty.Faculty) error {
	return r.observe("faculty.create", func() error {
		_, err := r.pool.Exec(ctx,
			`INSERT INTO faculty (id, department_id, name, title, bio, research_interests, contact_email, office_hours, phone, status, created_at, updated_at)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
			`,
			f.ID, f.DepartmentID, f.Name, f.Title, f.Bio, f.ResearchInterests, f.ContactEmail, f.OfficeHours, f.Phone, f.Status, f.CreatedAt, f.UpdatedAt,
		)
		return err
	})
}

func (r *FacultyRepo) GetByID(ctx context.Context, id string) (faculty.Faculty, error) {
	var f faculty.Faculty

	err := r.observe("faculty.get_by_id", func() error {
		var e error
		f, e = scanFaculty(r.pool.QueryRow(ctx,
			`SELECT `+facultyColumns+` FROM faculty WHERE id = $1`,
			id,
		))
		return e
	})

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return faculty.Faculty{}, faculty.ErrNotFound
		}

		return faculty.Faculty{}, err
	}

	return f, nil
}

func (r *FacultyRepo) List(ctx context.Context, f faculty.ListFilter) ([]faculty.Faculty, int, error) {
	base := `SELECT ` + facultyColumns + `, COUNT(*) OVER() AS total FROM faculty`

	var conds []string
	var args []interface{}

	argsPosition := 1

	if f.DepartmentID != nil {
		conds = append(conds, fmt.Sprintf("department_id = $%d", argsPosition))
		args = append(args, *f.DepartmentID)
		argsPosition++
	}

	if f.Status != nil {
		conds = append(conds, fmt.Sprintf("status = $%d", argsPosition))
		args = append(args, *f.Status)
		argsPosition++
	}

	query := base

	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}

	query += fmt.Sprintf(" ORDER BY name ASC, id ASC LIMIT $%d OFFSET $%d", argsPosition, argsPosition+1)

	args = append(args, f.Limit, f.Offset)

	var rows pgx.Rows

	err := r.observe("faculty.list", func() error {
		var e error
		rows, e = r.pool.Query(ctx, query, args...)
		return e
	})

	if err != nil {
		return nil, 0, err
	}

	defer rows.Close()

	out := make([]faculty.Faculty, 0, f.Limit)
	total := 0

	for rows.Next() {
		var m faculty.Faculty
		var t int

		e := rows.Scan(&m.ID, &m.DepartmentID, &m.Name, &m.Title, &m.Bio, &m.ResearchInterests, &m.ContactEmail, &m.OfficeHours, &m.Phone, &m.Status, &m.CreatedAt, &m.UpdatedAt, &t)

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

func (r *FacultyRepo) Update(ctx context.Context, id string, req faculty.UpdateFacultyRequest) (faculty.Faculty, error) {
	var f faculty.Faculty

	err := r.observe("faculty.update", func() error {
		var e error
		f, e = scanFaculty(r.pool.QueryRow(ctx,
			`UPDATE faculty
			SET name = $2,
				title = $3,
				bio = $4,
				research_interests = $5,
				contact_email = $6,
				office_hours = $7,
				phone = $8,
				status = $9,
				updated_at = NOW()
			WHERE id = $1
			RETURNING `+facultyColumns,
			id, req.Name, req.Title, req.Bio, req.ResearchInterests, req.ContactEmail, req.OfficeHours, req.Phone, req.Status,
		))
		return e
	})

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return faculty.Faculty{}, faculty.ErrNotFound
		}

		return faculty.Faculty{}, err
	}

	return f, nil
}
