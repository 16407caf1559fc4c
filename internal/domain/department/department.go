package department

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

type Department struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	Code          string    `json:"code"`
	Description   string    `json:"description,omitempty"`
	ContactEmails []string  `json:"contactEmails,omitempty"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

var ErrNotFound = errors.New("department not found")

// name or short code already in use
var ErrDuplicate = errors.New("department already exists")

type CreateDepartmentRequest struct {
	Name          string   `json:"name" binding:"required,min=2,max=120"`
	Code          string   `json:"code" binding:"required,min=2,max=12,alphanum"`
	Description   string   `json:"description" binding:"omitempty,max=1000"`
	ContactEmails []string `json:"contactEmails" binding:"omitempty,dive,email"`
}

type UpdateDepartmentRequest struct {
	Name          string   `json:"name" binding:"required,min=2,max=120"`
	Description   string   `json:"description" binding:"omitempty,max=1000"`
	ContactEmails []string `json:"contactEmails" binding:"omitempty,dive,email"`
}

func NewFromCreateRequest(req CreateDepartmentRequest) Department {
	now := time.Now().UTC()

	return Department{
		ID:            uuid.NewString(),
		Name:          req.Name,
		Code:          req.Code,
		Description:   req.Description,
		ContactEmails: req.ContactEmails,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}
