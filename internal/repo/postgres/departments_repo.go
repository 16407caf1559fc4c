package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/zikenn26/CampusHub/internal/domain/department"
	"github.com/zikenn26/CampusHub/internal/observability"
)

type DepartmentsRepo struct {
	pool *pgxpool.Pool
	prom *observability.Prom
}

func NewDepartmentsRepo(pool *pgxpool.Pool, prom *observability.Prom) *DepartmentsRepo {
	return &DepartmentsRepo{pool: pool, prom: prom}
}

func (r *DepartmentsRepo) observe(op string, fn func() error) error {
	if r.prom != nil {
		return r.prom.ObserveDB(op, fn)
	}
	return fn()
}

func (r *DepartmentsRepo) Create(ctx context.Context, d department.Department) error {
	err := r.observe("departments.create", func() error {
		_, e := r.pool.Exec(ctx,
			`INSERT INTO departments (id, name, code, description, contact_emails, created_at, updated_at)
			VALUES ($1,$2,$3,$4,$5,$6,$7)
			`,
			d.ID, d.Name, d.Code, d.Description, d.ContactEmails, d.CreatedAt, d.UpdatedAt,
		)
		return e
	})

	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return department.ErrDuplicate
		}

		return err
	}

	return nil
}

func (r *DepartmentsRepo) GetByID(ctx context.Context, id string) (department.Department, error) {
	var d department.Department

	err := r.observe("departments.get_by_id", func() error {
		return r.pool.QueryRow(ctx,
			`SELECT id, name, code, description, contact_emails, created_at, updated_at
			FROM departments
			WHERE id = $1`,
			id,
		).Scan(&d.ID, &d.Name, &d.Code, &d.Description, &d.ContactEmails, &d.CreatedAt, &d.UpdatedAt)
	})

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return department.Department{}, department.ErrNotFound
		}

		return department.Department{}, err
	}

	return d, nil
}

func (r *DepartmentsRepo) List(ctx context.Context) ([]department.Department, error) {
	var rows pgx.Rows

	err := r.observe("departments.list", func() error {
		var e error
		rows, e = r.pool.Query(ctx,
			`SELECT id, name, code, description, contact_emails, created_at, updated_at
			FROM departments
			ORDER BY name ASC`,
		)
		return e
	})

	if err != nil {
		return nil, err
	}

	defer rows.Close()

	out := make([]department.Department, 0)

	for rows.Next() {
		var d department.Department

		e := rows.Scan(&d.ID, &d.Name, &d.Code, &d.Description, &d.ContactEmails, &d.CreatedAt, &d.UpdatedAt)

		if e != nil {
			return nil, e
		}

		out = append(out, d)
	}

	if rows.Err() != nil {
		return nil, rows.Err()
	}

	return out, nil
}

func (r *DepartmentsRepo) Update(ctx context.Context, id string, req department.UpdateDepartmentRequest) (department.Department, error) {
	var d department.Department

	err := r.observe("departments.update", func() error {
		return r.pool.QueryRow(ctx,
			`UPDATE departments
			SET name = $2,
				description = $3,
				contact_emails = $4,
				updated_at = NOW()
			WHERE id = $1
			RETURNING id, name, code, description, contact_emails, created_at, updated_at`,
			id, req.Name, req.Description, req.ContactEmails,
		).Scan(&d.ID, &d.Name, &d.Code, &d.Description, &d.ContactEmails, &d.CreatedAt, &d.UpdatedAt)
	})

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return department.Department{}, department.ErrNotFound
		}

		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return department.Department{}, department.ErrDuplicate
		}

		return department.Department{}, err
	}

	return d, nil
}
