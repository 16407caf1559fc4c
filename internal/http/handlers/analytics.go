package handlers

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/zikenn26/CampusHub/internal/analytics"
	"github.com/zikenn26/CampusHub/internal/config"
	"github.com/zikenn26/CampusHub/internal/domain/material"
)

type MaterialRanker interface {
	TopMaterials(ctx context.Context, limit int) ([]material.Material, error)
}

type AnalyticsHandler struct {
	materials MaterialRanker
	tracker   *analytics.Tracker
}

func NewAnalyticsHandler(materials MaterialRanker, tracker *analytics.Tracker) *AnalyticsHandler {
	return &AnalyticsHandler{
		materials: materials,
		tracker:   tracker,
	}
}

func parseTopLimit(raw string) int {
	limit := 10

	if raw != "" {
		n, err := strconv.Atoi(raw)

		if err == nil && n > 0 {
			limit = n
		}
	}

	if limit > 100 {
		limit = 100
	}

	return limit
}

// TopMaterials ranks approved materials by engagement
// (downloads + views + 2×favorites), computed in Postgres.
func (h *AnalyticsHandler) TopMaterials(ctx *gin.Context) {
	limit := parseTopLimit(ctx.Query("limit"))

	cctx, cancel := config.WithTimeout(2 * time.Second)

	defer cancel()

	items, err := h.materials.TopMaterials(cctx, limit)

	if err != nil {
		RespondInternal(ctx, "Could not rank materials")
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"materials": items})
}

// TopSearchTerms reads the Redis counters kept by the search tracker.
func (h *AnalyticsHandler) TopSearchTerms(ctx *gin.Context) {
	limit := parseTopLimit(ctx.Query("limit"))

	cctx, cancel := config.WithTimeout(2 * time.Second)

	defer cancel()

	terms, err := h.tracker.TopSearches(cctx, limit)

	if err != nil {
		RespondInternal(ctx, "Could not load search terms")
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"terms": terms})
}
