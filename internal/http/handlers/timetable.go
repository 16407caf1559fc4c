package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/zikenn26/CampusHub/internal/config"
	"github.com/zikenn26/CampusHub/internal/domain/department"
	"github.com/zikenn26/CampusHub/internal/domain/timetable"
	"github.com/zikenn26/CampusHub/internal/export"
	"github.com/zikenn26/CampusHub/internal/utils"
)

type TimetableStore interface {
	Create(ctx context.Context, t timetable.Entry) error
	GetByID(ctx context.Context, id string) (timetable.Entry, error)
	List(ctx context.Context, f timetable.ListFilter) ([]timetable.Entry, int, error)
	Update(ctx context.Context, id string, t timetable.Entry) (timetable.Entry, error)
	Delete(ctx context.Context, id string) error
}

type TimetableHandler struct {
	timetable   TimetableStore
	departments DepartmentReader
}

func NewTimetableHandler(timetableStore TimetableStore, departments DepartmentReader) *TimetableHandler {
	return &TimetableHandler{
		timetable:   timetableStore,
		departments: departments,
	}
}

// defaultWindowDays is the listing window when no explicit range is
// given: today through the next two weeks.
const defaultWindowDays = 14

func (h *TimetableHandler) parseFilter(ctx *gin.Context) (timetable.ListFilter, bool) {
	limit, offset := utils.ParseLimitOffset(ctx.Query("limit"), ctx.Query("offset"), 100, 500)

	filter := timetable.ListFilter{Limit: limit, Offset: offset}

	if raw := ctx.Query("departmentId"); raw != "" {
		if !utils.IsUUID(raw) {
			RespondBadRequest(ctx, "Invalid department id", nil)
			return filter, false
		}

		filter.DepartmentID = &raw
	}

	if raw := ctx.Query("semester"); raw != "" {
		n, err := strconv.Atoi(raw)

		if err != nil || n < 1 || n > 12 {
			RespondBadRequest(ctx, "Invalid semester filter", nil)
			return filter, false
		}

		filter.Semester = &n
	}

	var haveFrom, haveTo bool

	if raw := ctx.Query("from"); raw != "" {
		t, err := time.Parse("2006-01-02", raw)

		if err != nil {
			RespondBadRequest(ctx, "from must be YYYY-MM-DD", gin.H{"from": raw})
			return filter, false
		}

		filter.From = &t
		haveFrom = true
	}

	if raw := ctx.Query("to"); raw != "" {
		t, err := time.Parse("2006-01-02", raw)

		if err != nil {
			RespondBadRequest(ctx, "to must be YYYY-MM-DD", gin.H{"to": raw})
			return filter, false
		}

		filter.To = &t
		haveTo = true
	}

	if !haveFrom && !haveTo {
		from := time.Now().UTC().Truncate(24 * time.Hour)
		to := from.AddDate(0, 0, defaultWindowDays)

		filter.From = &from
		filter.To = &to
	}

	return filter, true
}

func (h *TimetableHandler) List(ctx *gin.Context) {
	filter, ok := h.parseFilter(ctx)

	if !ok {
		return
	}

	cctx, cancel := config.WithTimeout(2 * time.Second)

	defer cancel()

	entries, total, err := h.timetable.List(cctx, filter)

	if err != nil {
		RespondInternal(ctx, "Could not list timetable")
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"entries": entries,
		"total":   total,
		"limit":   filter.Limit,
		"offset":  filter.Offset,
	})
}

// DepartmentTimetable is the department page view: same listing pinned
// to the department in the path.
func (h *TimetableHandler) DepartmentTimetable(ctx *gin.Context) {
	id := ctx.Param("id")

	if !utils.IsUUID(id) {
		RespondBadRequest(ctx, "Invalid department id", nil)
		return
	}

	filter, ok := h.parseFilter(ctx)

	if !ok {
		return
	}

	filter.DepartmentID = &id

	cctx, cancel := config.WithTimeout(2 * time.Second)

	defer cancel()

	d, err := h.departments.GetByID(cctx, id)

	if err != nil {
		if errors.Is(err, department.ErrNotFound) {
			RespondNotFound(ctx, "Department not found")
			return
		}

		RespondInternal(ctx, "Could not load department timetable")
		return
	}

	entries, total, err := h.timetable.List(cctx, filter)

	if err != nil {
		RespondInternal(ctx, "Could not load department timetable")
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"department": d,
		"entries":    entries,
		"total":      total,
	})
}

func (h *TimetableHandler) Create(ctx *gin.Context) {
	var req timetable.CreateEntryRequest

	if !BindJSON(ctx, &req) {
		return
	}

	entry, err := timetable.NewFromCreateRequest(req)

	if err != nil {
		if errors.Is(err, timetable.ErrEndsBeforeStart) {
			RespondBadRequest(ctx, "Entry must end after it starts", gin.H{"field": "endTime"})
			return
		}

		RespondBadRequest(ctx, "Invalid timetable entry", nil)
		return
	}

	cctx, cancel := config.WithTimeout(2 * time.Second)

	defer cancel()

	_, err = h.departments.GetByID(cctx, entry.DepartmentID)

	if err != nil {
		if errors.Is(err, department.ErrNotFound) {
			RespondBadRequest(ctx, "Unknown department", gin.H{"departmentId": entry.DepartmentID})
			return
		}

		RespondInternal(ctx, "Could not create timetable entry")
		return
	}

	err = h.timetable.Create(cctx, entry)

	if err != nil {
		RespondInternal(ctx, "Could not create timetable entry")
		return
	}

	ctx.JSON(http.StatusCreated, gin.H{"entry": entry})
}

func (h *TimetableHandler) Update(ctx *gin.Context) {
	id := ctx.Param("id")

	if !utils.IsUUID(id) {
		RespondBadRequest(ctx, "Invalid timetable entry id", nil)
		return
	}

	var req timetable.UpdateEntryRequest

	if !BindJSON(ctx, &req) {
		return
	}

	entry, err := timetable.NewFromCreateRequest(req)

	if err != nil {
		if errors.Is(err, timetable.ErrEndsBeforeStart) {
			RespondBadRequest(ctx, "Entry must end after it starts", gin.H{"field": "endTime"})
			return
		}

		RespondBadRequest(ctx, "Invalid timetable entry", nil)
		return
	}

	cctx, cancel := config.WithTimeout(2 * time.Second)

	defer cancel()

	updated, err := h.timetable.Update(cctx, id, entry)

	if err != nil {
		if errors.Is(err, timetable.ErrNotFound) {
			RespondNotFound(ctx, "Timetable entry not found")
			return
		}

		RespondInternal(ctx, "Could not update timetable entry")
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"entry": updated})
}

func (h *TimetableHandler) Delete(ctx *gin.Context) {
	id := ctx.Param("id")

	if !utils.IsUUID(id) {
		RespondBadRequest(ctx, "Invalid timetable entry id", nil)
		return
	}

	cctx, cancel := config.WithTimeout(2 * time.Second)

	defer cancel()

	err := h.timetable.Delete(cctx, id)

	if err != nil {
		if errors.Is(err, timetable.ErrNotFound) {
			RespondNotFound(ctx, "Timetable entry not found")
			return
		}

		RespondInternal(ctx, "Could not delete timetable entry")
		return
	}

	ctx.Status(http.StatusNoContent)
}

// Export renders the filtered timetable as a calendar (.ics) or a
// spreadsheet (.xlsx).
func (h *TimetableHandler) Export(ctx *gin.Context) {
	format := ctx.DefaultQuery("format", "ics")

	if format != "ics" && format != "xlsx" {
		RespondBadRequest(ctx, "format must be ics or xlsx", gin.H{"format": format})
		return
	}

	filter, ok := h.parseFilter(ctx)

	if !ok {
		return
	}

	// exports ignore pagination; cap the window instead
	filter.Limit = 1000
	filter.Offset = 0

	cctx, cancel := config.WithTimeout(5 * time.Second)

	defer cancel()

	entries, _, err := h.timetable.List(cctx, filter)

	if err != nil {
		RespondInternal(ctx, "Could not export timetable")
		return
	}

	label := "campus"

	if filter.DepartmentID != nil {
		d, err := h.departments.GetByID(cctx, *filter.DepartmentID)

		if err == nil {
			label = d.Code
		}
	}

	if format == "ics" {
		body, err := export.TimetableICS(entries)

		if err != nil {
			if errors.Is(err, export.ErrNoEntries) {
				RespondNotFound(ctx, "Nothing to export for this window")
				return
			}

			RespondInternal(ctx, "Could not export timetable")
			return
		}

		ctx.Header("Content-Disposition", `attachment; filename="timetable_`+label+`.ics"`)
		ctx.Data(http.StatusOK, "text/calendar; charset=utf-8", []byte(body))
		return
	}

	buf, filename, err := export.TimetableXLSX(entries, label)

	if err != nil {
		if errors.Is(err, export.ErrNoEntries) {
			RespondNotFound(ctx, "Nothing to export for this window")
			return
		}

		RespondInternal(ctx, "Could not export timetable")
		return
	}

	ctx.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	ctx.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", buf.Bytes())
}
