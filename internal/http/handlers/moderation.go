package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/zikenn26/CampusHub/internal/config"
	"github.com/zikenn26/CampusHub/internal/domain/audit"
	"github.com/zikenn26/CampusHub/internal/domain/material"
	"github.com/zikenn26/CampusHub/internal/http/middlewares"
	"github.com/zikenn26/CampusHub/internal/moderation"
	"github.com/zikenn26/CampusHub/internal/utils"
)

type AuditTrailReader interface {
	ListForTarget(ctx context.Context, targetType, targetID string) ([]audit.Entry, error)
}

type ModerationHandler struct {
	service *moderation.Service
	audits  AuditTrailReader
}

func NewModerationHandler(service *moderation.Service, audits AuditTrailReader) *ModerationHandler {
	return &ModerationHandler{
		service: service,
		audits:  audits,
	}
}

func (h *ModerationHandler) Queue(ctx *gin.Context) {
	actor, ok := middlewares.CurrentUser(ctx)

	if !ok {
		RespondUnAuthorized(ctx, "unauthorized", "Missing identity")
		return
	}

	limit, offset := utils.ParseLimitOffset(ctx.Query("limit"), ctx.Query("offset"), 50, 200)

	filter := moderation.QueueFilter{Limit: limit, Offset: offset}

	if raw := ctx.Query("departmentId"); raw != "" {
		if !utils.IsUUID(raw) {
			RespondBadRequest(ctx, "Invalid department id", nil)
			return
		}

		filter.DepartmentID = &raw
	}

	// default queue is pending; a verifier may inspect decided slices
	if raw := ctx.Query("status"); raw != "" {
		status := material.ReviewStatus(raw)

		if !status.IsValid() {
			RespondBadRequest(ctx, "Unknown status filter", gin.H{"status": raw})
			return
		}

		filter.Status = status
	}

	cctx, cancel := config.WithTimeout(2 * time.Second)

	defer cancel()

	items, total, err := h.service.Queue(cctx, actor, filter)

	if err != nil {
		if errors.Is(err, moderation.ErrNotVerifier) {
			RespondForbidden(ctx, "forbidden", "Only verifiers may view the review queue.")
			return
		}

		if errors.Is(err, moderation.ErrInvalidStatus) {
			RespondBadRequest(ctx, "Unknown status filter", nil)
			return
		}

		RespondInternal(ctx, "Could not load review queue")
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"materials": items,
		"total":     total,
		"limit":     limit,
		"offset":    offset,
	})
}

func (h *ModerationHandler) Decide(ctx *gin.Context) {
	id := ctx.Param("id")

	if !utils.IsUUID(id) {
		RespondBadRequest(ctx, "Invalid material id", nil)
		return
	}

	actor, ok := middlewares.CurrentUser(ctx)

	if !ok {
		RespondUnAuthorized(ctx, "unauthorized", "Missing identity")
		return
	}

	var req moderation.DecisionRequest

	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := config.WithTimeout(3 * time.Second)

	defer cancel()

	decided, err := h.service.Decide(cctx, actor, id, req)

	if err != nil {
		switch {
		case errors.Is(err, moderation.ErrNotVerifier):
			RespondForbidden(ctx, "forbidden", "Only verifiers may decide materials.")
		case errors.Is(err, material.ErrNotFound):
			RespondNotFound(ctx, "Material not found")
		case errors.Is(err, material.ErrNotPending):
			// the record was decided by someone else first
			RespondConflict(ctx, "invalid_state", "Material is not pending review.")
		case errors.Is(err, moderation.ErrInvalidDecision):
			RespondBadRequest(ctx, "Decision must be approve or reject", nil)
		default:
			RespondInternal(ctx, "Could not record decision")
		}

		return
	}

	ctx.JSON(http.StatusOK, gin.H{"material": decided})
}

func (h *ModerationHandler) Resubmit(ctx *gin.Context) {
	id := ctx.Param("id")

	if !utils.IsUUID(id) {
		RespondBadRequest(ctx, "Invalid material id", nil)
		return
	}

	actor, ok := middlewares.CurrentUser(ctx)

	if !ok {
		RespondUnAuthorized(ctx, "unauthorized", "Missing identity")
		return
	}

	cctx, cancel := config.WithTimeout(3 * time.Second)

	defer cancel()

	resubmitted, err := h.service.Resubmit(cctx, actor, id)

	if err != nil {
		switch {
		case errors.Is(err, moderation.ErrNotUploader):
			RespondForbidden(ctx, "forbidden", "Only the uploader may resubmit this material.")
		case errors.Is(err, material.ErrNotFound):
			RespondNotFound(ctx, "Material not found")
		case errors.Is(err, material.ErrNotRejected):
			RespondConflict(ctx, "invalid_state", "Only rejected materials can be resubmitted.")
		default:
			RespondInternal(ctx, "Could not resubmit material")
		}

		return
	}

	ctx.JSON(http.StatusOK, gin.H{"material": resubmitted})
}

// History lists the audit trail of one material, oldest first.
func (h *ModerationHandler) History(ctx *gin.Context) {
	id := ctx.Param("id")

	if !utils.IsUUID(id) {
		RespondBadRequest(ctx, "Invalid material id", nil)
		return
	}

	cctx, cancel := config.WithTimeout(2 * time.Second)

	defer cancel()

	entries, err := h.audits.ListForTarget(cctx, audit.TargetMaterial, id)

	if err != nil {
		RespondInternal(ctx, "Could not load audit trail")
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"entries": entries})
}
