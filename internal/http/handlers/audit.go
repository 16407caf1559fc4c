package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/zikenn26/CampusHub/internal/config"
	"github.com/zikenn26/CampusHub/internal/domain/audit"
	"github.com/zikenn26/CampusHub/internal/utils"
)

type AuditQuerier interface {
	Query(ctx context.Context, f audit.Filter) ([]audit.Entry, int, error)
}

type AuditHandler struct {
	audits AuditQuerier
}

func NewAuditHandler(audits AuditQuerier) *AuditHandler {
	return &AuditHandler{audits: audits}
}

// Query serves the admin audit view. Entries come back in insertion
// order; the log itself is append-only.
func (h *AuditHandler) Query(ctx *gin.Context) {
	limit, offset := utils.ParseLimitOffset(ctx.Query("limit"), ctx.Query("offset"), 50, 500)

	filter := audit.Filter{Limit: limit, Offset: offset}

	if raw := ctx.Query("actorId"); raw != "" {
		if !utils.IsUUID(raw) {
			RespondBadRequest(ctx, "Invalid actor id", nil)
			return
		}

		filter.ActorID = &raw
	}

	if raw := ctx.Query("action"); raw != "" {
		action := audit.Action(raw)
		filter.Action = &action
	}

	if raw := ctx.Query("targetType"); raw != "" {
		if raw != audit.TargetMaterial && raw != audit.TargetUser {
			RespondBadRequest(ctx, "Unknown target type", gin.H{"targetType": raw})
			return
		}

		filter.TargetType = &raw
	}

	if raw := ctx.Query("targetId"); raw != "" {
		if !utils.IsUUID(raw) {
			RespondBadRequest(ctx, "Invalid target id", nil)
			return
		}

		filter.TargetID = &raw
	}

	if raw := ctx.Query("from"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)

		if err != nil {
			RespondBadRequest(ctx, "from must be RFC3339", gin.H{"from": raw})
			return
		}

		filter.From = &t
	}

	if raw := ctx.Query("to"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)

		if err != nil {
			RespondBadRequest(ctx, "to must be RFC3339", gin.H{"to": raw})
			return
		}

		filter.To = &t
	}

	cctx, cancel := config.WithTimeout(2 * time.Second)

	defer cancel()

	entries, total, err := h.audits.Query(cctx, filter)

	if err != nil {
		RespondInternal(ctx, "Could not query audit log")
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"entries": entries,
		"total":   total,
		"limit":   limit,
		"offset":  offset,
	})
}
