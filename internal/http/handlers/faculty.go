package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/zikenn26/CampusHub/internal/config"
	"github.com/zikenn26/CampusHub/internal/domain/department"
	"github.com/zikenn26/CampusHub/internal/domain/faculty"
	"github.com/zikenn26/CampusHub/internal/utils"
)

type FacultyStore interface {
	Create(ctx context.Context, f faculty.Faculty) error
	GetByID(ctx context.Context, id string) (faculty.Faculty, error)
	List(ctx context.Context, f faculty.ListFilter) ([]faculty.Faculty, int, error)
	Update(ctx context.Context, id string, req faculty.UpdateFacultyRequest) (faculty.Faculty, error)
}

type DepartmentReader interface {
	GetByID(ctx context.Context, id string) (department.Department, error)
}

type FacultyHandler struct {
	faculty     FacultyStore
	departments DepartmentReader
}

func NewFacultyHandler(facultyStore FacultyStore, departments DepartmentReader) *FacultyHandler {
	return &FacultyHandler{
		faculty:     facultyStore,
		departments: departments,
	}
}

func (h *FacultyHandler) List(ctx *gin.Context) {
	limit, offset := utils.ParseLimitOffset(ctx.Query("limit"), ctx.Query("offset"), 50, 200)

	filter := faculty.ListFilter{Limit: limit, Offset: offset}

	if raw := ctx.Query("departmentId"); raw != "" {
		if !utils.IsUUID(raw) {
			RespondBadRequest(ctx, "Invalid department id", nil)
			return
		}

		filter.DepartmentID = &raw
	}

	if raw := ctx.Query("status"); raw != "" {
		status := faculty.Status(raw)

		if !status.IsValid() {
			RespondBadRequest(ctx, "Unknown status filter", gin.H{"status": raw})
			return
		}

		filter.Status = &status
	}

	cctx, cancel := config.WithTimeout(2 * time.Second)

	defer cancel()

	members, total, err := h.faculty.List(cctx, filter)

	if err != nil {
		RespondInternal(ctx, "Could not list faculty")
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"faculty": members,
		"total":   total,
		"limit":   limit,
		"offset":  offset,
	})
}

func (h *FacultyHandler) GetByID(ctx *gin.Context) {
	id := ctx.Param("id")

	if !utils.IsUUID(id) {
		RespondBadRequest(ctx, "Invalid faculty id", nil)
		return
	}

	cctx, cancel := config.WithTimeout(2 * time.Second)

	defer cancel()

	f, err := h.faculty.GetByID(cctx, id)

	if err != nil {
		if errors.Is(err, faculty.ErrNotFound) {
			RespondNotFound(ctx, "Faculty member not found")
			return
		}

		RespondInternal(ctx, "Could not load faculty member")
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"faculty": f})
}

func (h *FacultyHandler) Create(ctx *gin.Context) {
	var req faculty.CreateFacultyRequest

	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := config.WithTimeout(2 * time.Second)

	defer cancel()

	// profiles must hang off a real department
	_, err := h.departments.GetByID(cctx, req.DepartmentID)

	if err != nil {
		if errors.Is(err, department.ErrNotFound) {
			RespondBadRequest(ctx, "Unknown department", gin.H{"departmentId": req.DepartmentID})
			return
		}

		RespondInternal(ctx, "Could not create faculty member")
		return
	}

	f := faculty.NewFromCreateRequest(req)

	err = h.faculty.Create(cctx, f)

	if err != nil {
		RespondInternal(ctx, "Could not create faculty member")
		return
	}

	ctx.JSON(http.StatusCreated, gin.H{"faculty": f})
}

func (h *FacultyHandler) Update(ctx *gin.Context) {
	id := ctx.Param("id")

	if !utils.IsUUID(id) {
		RespondBadRequest(ctx, "Invalid faculty id", nil)
		return
	}

	var req faculty.UpdateFacultyRequest

	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := config.WithTimeout(2 * time.Second)

	defer cancel()

	f, err := h.faculty.Update(cctx, id, req)

	if err != nil {
		if errors.Is(err, faculty.ErrNotFound) {
			RespondNotFound(ctx, "Faculty member not found")
			return
		}

		RespondInternal(ctx, "Could not update faculty member")
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"faculty": f})
}
