package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/zikenn26/CampusHub/internal/config"
	"github.com/zikenn26/CampusHub/internal/domain/department"
	"github.com/zikenn26/CampusHub/internal/utils"
)

type DepartmentStore interface {
	Create(ctx context.Context, d department.Department) error
	GetByID(ctx context.Context, id string) (department.Department, error)
	List(ctx context.Context) ([]department.Department, error)
	Update(ctx context.Context, id string, req department.UpdateDepartmentRequest) (department.Department, error)
}

type DepartmentsHandler struct {
	departments DepartmentStore
}

func NewDepartmentsHandler(departments DepartmentStore) *DepartmentsHandler {
	return &DepartmentsHandler{departments: departments}
}

func (h *DepartmentsHandler) List(ctx *gin.Context) {
	cctx, cancel := config.WithTimeout(2 * time.Second)

	defer cancel()

	departments, err := h.departments.List(cctx)

	if err != nil {
		RespondInternal(ctx, "Could not list departments")
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"departments": departments})
}

func (h *DepartmentsHandler) GetByID(ctx *gin.Context) {
	id := ctx.Param("id")

	if !utils.IsUUID(id) {
		RespondBadRequest(ctx, "Invalid department id", nil)
		return
	}

	cctx, cancel := config.WithTimeout(2 * time.Second)

	defer cancel()

	d, err := h.departments.GetByID(cctx, id)

	if err != nil {
		if errors.Is(err, department.ErrNotFound) {
			RespondNotFound(ctx, "Department not found")
			return
		}

		RespondInternal(ctx, "Could not load department")
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"department": d})
}

func (h *DepartmentsHandler) Create(ctx *gin.Context) {
	var req department.CreateDepartmentRequest

	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := config.WithTimeout(2 * time.Second)

	defer cancel()

	d := department.NewFromCreateRequest(req)

	err := h.departments.Create(cctx, d)

	if err != nil {
		if errors.Is(err, department.ErrDuplicate) {
			RespondConflict(ctx, "department_exists", "A department with this name or code already exists.")
			return
		}

		RespondInternal(ctx, "Could not create department")
		return
	}

	ctx.JSON(http.StatusCreated, gin.H{"department": d})
}

func (h *DepartmentsHandler) Update(ctx *gin.Context) {
	id := ctx.Param("id")

	if !utils.IsUUID(id) {
		RespondBadRequest(ctx, "Invalid department id", nil)
		return
	}

	var req department.UpdateDepartmentRequest

	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := config.WithTimeout(2 * time.Second)

	defer cancel()

	d, err := h.departments.Update(cctx, id, req)

	if err != nil {
		if errors.Is(err, department.ErrNotFound) {
			RespondNotFound(ctx, "Department not found")
			return
		}

		if errors.Is(err, department.ErrDuplicate) {
			RespondConflict(ctx, "department_exists", "A department with this name already exists.")
			return
		}

		RespondInternal(ctx, "Could not update department")
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"department": d})
}
