package db

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/zikenn26/CampusHub/internal/config"
	"github.com/zikenn26/CampusHub/internal/domain/user"
	"github.com/zikenn26/CampusHub/internal/security"
)

// EnsureAdminUser seeds the bootstrap admin. Without at least one admin
// nobody can assign the verifier role, so the API refuses to come up
// half-configured. ON CONFLICT makes concurrent instances racing at boot
// harmless; whoever inserts first wins and the rest see a no-op.
func EnsureAdminUser(ctx context.Context, pool *pgxpool.Pool, cfg config.Config) error {
	if cfg.AdminEmail == "" || cfg.AdminPassword == "" {
		return nil
	}

	hash, err := security.HashPassword(cfg.AdminPassword)

	if err != nil {
		return fmt.Errorf("hash admin password: %w", err)
	}

	now := time.Now().UTC()

	tag, err := pool.Exec(ctx,
		`INSERT INTO users (id, email, password_hash, name, role, phone, active, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
		ON CONFLICT (email) DO NOTHING
		`,
		uuid.NewString(), cfg.AdminEmail, hash, cfg.AdminName, user.RoleAdmin, "", true, now, now,
	)

	if err != nil {
		return fmt.Errorf("seed admin: %w", err)
	}

	if tag.RowsAffected() > 0 {
		slog.Info("bootstrap admin created", "email", cfg.AdminEmail)
	}

	return nil
}
