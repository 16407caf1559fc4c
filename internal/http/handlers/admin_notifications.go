package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/zikenn26/CampusHub/internal/config"
	"github.com/zikenn26/CampusHub/internal/domain/notification"
	"github.com/zikenn26/CampusHub/internal/repo/postgres"
	"github.com/zikenn26/CampusHub/internal/utils"
)

// AdminNotificationsRepo is the outbox ops surface: inspect the queue,
// requeue dead letters.
type AdminNotificationsRepo interface {
	ListByStatus(ctx context.Context, status *notification.Status, limit, offset int) ([]notification.Notification, int, error)
	Retry(ctx context.Context, id string) error
	RetryAllFailed(ctx context.Context, limit int) (int64, error)
	CountPending(ctx context.Context) (int, error)
}

type AdminNotificationsHandler struct {
	repo AdminNotificationsRepo
}

func NewAdminNotificationsHandler(repo AdminNotificationsRepo) *AdminNotificationsHandler {
	return &AdminNotificationsHandler{
		repo: repo,
	}
}

// GET /admin/notifications?status=failed&limit=50&offset=0

func (h *AdminNotificationsHandler) List(ctx *gin.Context) {
	limit, offset := utils.ParseLimitOffset(ctx.Query("limit"), ctx.Query("offset"), 20, 100)

	var statusPtr *notification.Status

	if raw := ctx.Query("status"); raw != "" {
		status := notification.Status(raw)

		if status != notification.StatusPending && status != notification.StatusSending &&
			status != notification.StatusSent && status != notification.StatusFailed {
			RespondBadRequest(ctx, "Unknown status filter", gin.H{"status": raw})
			return
		}

		statusPtr = &status
	}

	cctx, cancel := config.WithTimeout(2 * time.Second)
	defer cancel()

	items, total, err := h.repo.ListByStatus(cctx, statusPtr, limit, offset)

	if err != nil {
		RespondInternal(ctx, "Could not list notifications")
		return
	}

	pending, err := h.repo.CountPending(cctx)

	if err != nil {
		RespondInternal(ctx, "Could not list notifications")
		return
	}

	resp := gin.H{
		"items":   items,
		"count":   len(items),
		"total":   total,
		"pending": pending,
		"limit":   limit,
		"offset":  offset,
	}

	RespondJSONWithETag(ctx, http.StatusOK, resp)
}

// POST /admin/notifications/:id/retry
func (h *AdminNotificationsHandler) Retry(ctx *gin.Context) {
	id := ctx.Param("id")

	if !utils.IsUUID(id) {
		RespondBadRequest(ctx, "Invalid notification id", nil)
		return
	}

	cctx, cancel := config.WithTimeout(2 * time.Second)
	defer cancel()

	err := h.repo.Retry(cctx, id)
	if err != nil {
		if errors.Is(err, notification.ErrNotFound) {
			RespondNotFound(ctx, "Notification not found")
			return
		}

		if errors.Is(err, postgres.ErrNotificationNotFailed) {
			RespondConflict(ctx, "notification_not_failed", "Only failed notifications can be retried")
			return
		}

		RespondInternal(ctx, "Could not retry notification")
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"notificationId": id,
		"status":         "pending",
	})
}

// POST /admin/notifications/retry-failed?limit=50

func (h *AdminNotificationsHandler) RetryFailed(ctx *gin.Context) {
	limit, _ := utils.ParseLimitOffset(ctx.Query("limit"), "", 50, 500)

	cctx, cancel := config.WithTimeout(3 * time.Second)

	defer cancel()

	n, err := h.repo.RetryAllFailed(cctx, limit)

	if err != nil {
		RespondInternal(ctx, "Could not requeue failed notifications")
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"requeued": n,
	})
}
