package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/zikenn26/CampusHub/internal/domain/timetable"
	"github.com/zikenn26/CampusHub/internal/observability"
)

const timetableColumns = `id, department_id, semester, course_code, course_name, date, start_time, end_time, venue, instructor_id, description, created_at, updated_at`

type TimetableRepo struct {
	pool *pgxpool.Pool
	prom *observability.Prom
}

func NewTimetableRepo(pool *pgxpool.Pool, prom *observability.Prom) *TimetableRepo {
	return &TimetableRepo{pool: pool, prom: prom}
}

func (r *TimetableRepo) observe(op string, fn func() error) error {
	if r.prom != nil {
		return r.prom.ObserveDB(op, fn)
	}
	return fn()
}

func scanTimetableEntry(row pgx.Row) (timetable.Entry, error) {
	var t timetable.Entry

	err := row.Scan(
		&t.ID,
		&t.DepartmentID,
		&t.Semester,
		&t.CourseCode,
		&t.CourseName,
		&t.Date,
		&t.StartTime,
		&t.EndTime,
		&t.Venue,
		&t.InstructorID,
		&t.Description,
		&t.CreatedAt,
		&t.UpdatedAt,
	)

	return t, err
}

func (r *TimetableRepo) Create(ctx context.Context, t timetable.Entry) error {
	return r.observe("timetable.create", func() error {
		_, err := r.pool.Exec(ctx,
			`INSERT INTO timetable_entries (id, department_id, semester, course_code, course_name, date, start_time, end_time, venue, instructor_id, description, created_at, updated_at)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
			`,
			t.ID, t.DepartmentID, t.Semester, t.CourseCode, t.CourseName, t.Date, t.StartTime, t.EndTime, t.Venue, t.InstructorID, t.Description, t.CreatedAt, t.UpdatedAt,
		)
		return err
	})
}

func (r *TimetableRepo) GetByID(ctx context.Context, id string) (timetable.Entry, error) {
	var t timetable.Entry

	err := r.observe("timetable.get_by_id", func() error {
		var e error
		t, e = scanTimetableEntry(r.pool.QueryRow(ctx,
			`SELECT `+timetableColumns+` FROM timetable_entries WHERE id = $1`,
			id,
		))
		return e
	})

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return timetable.Entry{}, timetable.ErrNotFound
		}

		return timetable.Entry{}, err
	}

	return t, nil
}

func (r *TimetableRepo) List(ctx context.Context, f timetable.ListFilter) ([]timetable.Entry, int, error) {
	base := `SELECT ` + timetableColumns + `, COUNT(*) OVER() AS total FROM timetable_entries`

	var conds []string
	var args []interface{}

	argsPosition := 1

	if f.DepartmentID != nil {
		conds = append(conds, fmt.Sprintf("department_id = $%d", argsPosition))
		args = append(args, *f.DepartmentID)
		argsPosition++
	}

	if f.Semester != nil {
		conds = append(conds, fmt.Sprintf("semester = $%d", argsPosition))
		args = append(args, *f.Semester)
		argsPosition++
	}

	if f.From != nil {
		conds = append(conds, fmt.Sprintf("date >= $%d", argsPosition))
		args = append(args, *f.From)
		argsPosition++
	}

	if f.To != nil {
		conds = append(conds, fmt.Sprintf("date <= $%d", argsPosition))
		args = append(args, *f.To)
		argsPosition++
	}

	query := base

	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}

	query += fmt.Sprintf(" ORDER BY date ASC, start_time ASC, id ASC LIMIT $%d OFFSET $%d", argsPosition, argsPosition+1)

	args = append(args, f.Limit, f.Offset)

	var rows pgx.Rows

	err := r.observe("timetable.list", func() error {
		var e error
		rows, e = r.pool.Query(ctx, query, args...)
		return e
	})

	if err != nil {
		return nil, 0, err
	}

	defer rows.Close()

	out := make([]timetable.Entry, 0, f.Limit)
	total := 0

	for rows.Next() {
		var t timetable.Entry
		var n int

		e := rows.Scan(&t.ID, &t.DepartmentID, &t.Semester, &t.CourseCode, &t.CourseName, &t.Date, &t.StartTime, &t.EndTime, &t.Venue, &t.InstructorID, &t.Description, &t.CreatedAt, &t.UpdatedAt, &n)

		if e != nil {
			return nil, 0, e
		}

		total = n
		out = append(out, t)
	}

	if rows.Err() != nil {
		return nil, 0, rows.Err()
	}

	return out, total, nil
}

func (r *TimetableRepo) Update(ctx context.Context, id string, t timetable.Entry) (timetable.Entry, error) {
	var out timetable.Entry

	err := r.observe("timetable.update", func() error {
		var e error
		out, e = scanTimetableEntry(r.pool.QueryRow(ctx,
			`UPDATE timetable_entries
			SET department_id = $2,
				semester = $3,
				course_code = $4,
				course_name = $5,
				date = $6,
				start_time = $7,
				end_time = $8,
				venue = $9,
				instructor_id = $10,
				description = $11,
				updated_at = NOW()
			WHERE id = $1
			RETURNING `+timetableColumns,
			id, t.DepartmentID, t.Semester, t.CourseCode, t.CourseName, t.Date, t.StartTime, t.EndTime, t.Venue, t.InstructorID, t.Description,
		))
		return e
	})

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return timetable.Entry{}, timetable.ErrNotFound
		}

		return timetable.Entry{}, err
	}

	return out, nil
}

func (r *TimetableRepo) Delete(ctx context.Context, id string) error {
	var tag pgconn.CommandTag

	err := r.observe("timetable.delete", func() error {
		var e error
		tag, e = r.pool.Exec(ctx, `DELETE FROM timetable_entries WHERE id = $1`, id)
		return e
	})

	if err != nil {
		return err
	}

	if tag.RowsAffected() == 0 {
		return timetable.ErrNotFound
	}

	return nil
}
