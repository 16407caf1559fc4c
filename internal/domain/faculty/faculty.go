package faculty

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

type Status string

const (
	StatusActive  Status = "active"
	StatusRetired Status = "retired"
)

func (s Status) IsValid() bool {
	return s == StatusActive || s == StatusRetired
}

type Faculty struct {
	ID                string    `json:"id"`
	DepartmentID      string    `json:"departmentId"`
	Name              string    `json:"name"`
	Title             string    `json:"title,omitempty"`
	Bio               string    `json:"bio,omitempty"`
	ResearchInterests string    `json:"researchInterests,omitempty"`
	ContactEmail      string    `json:"contactEmail,omitempty"`
	OfficeHours       string    `json:"officeHours,omitempty"`
	Phone             string    `json:"phone,omitempty"`
	Status            Status    `json:"status"`
	CreatedAt         time.Time `json:"createdAt"`
	UpdatedAt         time.Time `json:"updatedAt"`
}

var ErrNotFound = errors.New("faculty member not found")

type CreateFacultyRequest struct {
	DepartmentID      string `json:"departmentId" binding:"required,uuid"`
	Name              string `json:"name" binding:"required,min=2,max=120"`
	Title             string `json:"title" binding:"omitempty,max=120"`
	Bio               string `json:"bio" binding:"omitempty,max=4000"`
	ResearchInterests string `json:"researchInterests" binding:"omitempty,max=1000"`
	ContactEmail      string `json:"contactEmail" binding:"omitempty,email"`
	OfficeHours       string `json:"officeHours" binding:"omitempty,max=200"`
	Phone             string `json:"phone" binding:"omitempty,max=32"`
}

type UpdateFacultyRequest struct {
	Name              string `json:"name" binding:"required,min=2,max=120"`
	Title             string `json:"title" binding:"omitempty,max=120"`
	Bio               string `json:"bio" binding:"omitempty,max=4000"`
	ResearchInterests string `json:"researchInterests" binding:"omitempty,max=1000"`
	ContactEmail      string `json:"contactEmail" binding:"omitempty,email"`
	OfficeHours       string `json:"officeHours" binding:"omitempty,max=200"`
	Phone             string `json:"phone" binding:"omitempty,max=32"`
	Status            Status `json:"status" binding:"required,oneof=active retired"`
}

type ListFilter struct {
	DepartmentID *string
	Status       *Status
	Limit        int
	Offset       int
}

func NewFromCreateRequest(req CreateFacultyRequest) Faculty {
	now := time.Now().UTC()

	return Faculty{
		ID:                uuid.NewString(),
		DepartmentID:      req.DepartmentID,
		Name:              req.Name,
		Title:             req.Title,
		Bio:               req.Bio,
		ResearchInterests: req.ResearchInterests,
		ContactEmail:      req.ContactEmail,
		OfficeHours:       req.OfficeHours,
		Phone:             req.Phone,
		Status:            StatusActive,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
}
