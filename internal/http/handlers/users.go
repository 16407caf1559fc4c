package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5"
	"github.com/zikenn26/CampusHub/internal/config"
	"github.com/zikenn26/CampusHub/internal/domain/audit"
	"github.com/zikenn26/CampusHub/internal/domain/user"
	"github.com/zikenn26/CampusHub/internal/http/middlewares"
	"github.com/zikenn26/CampusHub/internal/utils"
)

type UserAdminStore interface {
	List(ctx context.Context, f user.ListFilter) ([]user.User, int, error)
	UpdateRoleTx(ctx context.Context, tx pgx.Tx, id string, role user.Role) (user.User, error)
	DeactivateTx(ctx context.Context, tx pgx.Tx, id string) error
	BeginTx(ctx context.Context) (pgx.Tx, error)
}

// AuditAppender is shared by every handler that writes audit entries
// inside its own transaction.
type AuditAppender interface {
	AppendTx(ctx context.Context, tx pgx.Tx, e audit.Entry) error
}

type SessionRevoker interface {
	RevokeAllForUser(ctx context.Context, tx pgx.Tx, userID string) error
}

type UsersHandler struct {
	users    UserAdminStore
	audits   AuditAppender
	sessions SessionRevoker
}

func NewUsersHandler(users UserAdminStore, audits AuditAppender, sessions SessionRevoker) *UsersHandler {
	return &UsersHandler{
		users:    users,
		audits:   audits,
		sessions: sessions,
	}
}

func (h *UsersHandler) List(ctx *gin.Context) {
	limit, offset := utils.ParseLimitOffset(ctx.Query("limit"), ctx.Query("offset"), 50, 200)

	filter := user.ListFilter{Limit: limit, Offset: offset}

	if raw := ctx.Query("role"); raw != "" {
		role := user.Role(raw)

		if !role.IsValid() {
			RespondBadRequest(ctx, "Unknown role filter", gin.H{"role": raw})
			return
		}

		filter.Role = &role
	}

	if raw := ctx.Query("active"); raw != "" {
		active := raw == "true"
		filter.Active = &active
	}

	cctx, cancel := config.WithTimeout(2 * time.Second)

	defer cancel()

	users, total, err := h.users.List(cctx, filter)

	if err != nil {
		RespondInternal(ctx, "Could not list users")
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"users":  users,
		"total":  total,
		"limit":  limit,
		"offset": offset,
	})
}

func (h *UsersHandler) ChangeRole(ctx *gin.Context) {
	id := ctx.Param("id")

	if !utils.IsUUID(id) {
		RespondBadRequest(ctx, "Invalid user id", nil)
		return
	}

	var req user.ChangeRoleRequest

	if !BindJSON(ctx, &req) {
		return
	}

	if !req.Role.IsValid() {
		RespondBadRequest(ctx, "Unknown role", gin.H{"role": req.Role})
		return
	}

	actor, ok := middlewares.CurrentUser(ctx)

	if !ok {
		RespondUnAuthorized(ctx, "unauthorized", "Missing identity")
		return
	}

	// admins cannot demote themselves; the last admin would lock
	// everyone out of user management
	if actor.ID == id && req.Role != user.RoleAdmin {
		RespondConflict(ctx, "self_demotion", "Admins cannot change their own role.")
		return
	}

	cctx, cancel := config.WithTimeout(3 * time.Second)

	defer cancel()

	tx, err := h.users.BeginTx(cctx)

	if err != nil {
		RespondInternal(ctx, "Could not change role")
		return
	}

	defer func() { _ = tx.Rollback(cctx) }()

	updated, err := h.users.UpdateRoleTx(cctx, tx, id, req.Role)

	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			RespondNotFound(ctx, "User not found")
			return
		}

		RespondInternal(ctx, "Could not change role")
		return
	}

	entry := audit.New(actor.ID, audit.ActionUserRoleChanged, audit.TargetUser, id, string(req.Role))

	err = h.audits.AppendTx(cctx, tx, entry)

	if err != nil {
		RespondInternal(ctx, "Could not change role")
		return
	}

	err = tx.Commit(cctx)

	if err != nil {
		RespondInternal(ctx, "Could not change role")
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"user": updated})
}

// Deactivate soft-disables the account. The row survives so uploads,
// decisions and audit entries keep a valid author.
func (h *UsersHandler) Deactivate(ctx *gin.Context) {
	id := ctx.Param("id")

	if !utils.IsUUID(id) {
		RespondBadRequest(ctx, "Invalid user id", nil)
		return
	}

	actor, ok := middlewares.CurrentUser(ctx)

	if !ok {
		RespondUnAuthorized(ctx, "unauthorized", "Missing identity")
		return
	}

	if actor.ID == id {
		RespondConflict(ctx, "self_deactivation", "Admins cannot deactivate themselves.")
		return
	}

	cctx, cancel := config.WithTimeout(3 * time.Second)

	defer cancel()

	tx, err := h.users.BeginTx(cctx)

	if err != nil {
		RespondInternal(ctx, "Could not deactivate user")
		return
	}

	defer func() { _ = tx.Rollback(cctx) }()

	err = h.users.DeactivateTx(cctx, tx, id)

	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			RespondNotFound(ctx, "User not found")
			return
		}

		RespondInternal(ctx, "Could not deactivate user")
		return
	}

	// kill open sessions so the account stops working immediately
	err = h.sessions.RevokeAllForUser(cctx, tx, id)

	if err != nil {
		RespondInternal(ctx, "Could not deactivate user")
		return
	}

	entry := audit.New(actor.ID, audit.ActionUserDeactivated, audit.TargetUser, id, "")

	err = h.audits.AppendTx(cctx, tx, entry)

	if err != nil {
		RespondInternal(ctx, "Could not deactivate user")
		return
	}

	err = tx.Commit(cctx)

	if err != nil {
		RespondInternal(ctx, "Could not deactivate user")
		return
	}

	ctx.Status(http.StatusNoContent)
}
