package timetable

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

type Entry struct {
	ID           string    `json:"id"`
	DepartmentID string    `json:"departmentId"`
	Semester     int       `json:"semester"`
	CourseCode   string    `json:"courseCode"`
	CourseName   string    `json:"courseName"`
	Date         time.Time `json:"date"`
	StartTime    string    `json:"startTime"` // "HH:MM", local campus time
	EndTime      string    `json:"endTime"`
	Venue        string    `json:"venue,omitempty"`
	InstructorID *string   `json:"instructorId,omitempty"`
	Description  string    `json:"description,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

var ErrNotFound = errors.New("timetable entry not found")

var ErrEndsBeforeStart = errors.New("entry ends before it starts")

type CreateEntryRequest struct {
	DepartmentID string  `json:"departmentId" binding:"required,uuid"`
	Semester     int     `json:"semester" binding:"required,min=1,max=12"`
	CourseCode   string  `json:"courseCode" binding:"required,min=2,max=20"`
	CourseName   string  `json:"courseName" binding:"required,min=2,max=160"`
	Date         string  `json:"date" binding:"required,datetime=2006-01-02"`
	StartTime    string  `json:"startTime" binding:"required,datetime=15:04"`
	EndTime      string  `json:"endTime" binding:"required,datetime=15:04"`
	Venue        string  `json:"venue" binding:"omitempty,max=120"`
	InstructorID *string `json:"instructorId" binding:"omitempty,uuid"`
	Description  string  `json:"description" binding:"omitempty,max=1000"`
}

type UpdateEntryRequest = CreateEntryRequest

type ListFilter struct {
	DepartmentID *string
	Semester     *int
	From         *time.Time
	To           *time.Time
	Limit        int
	Offset       int
}

func NewFromCreateRequest(req CreateEntryRequest) (Entry, error) {
	date, err := time.Parse("2006-01-02", req.Date)

	if err != nil {
		return Entry{}, err
	}

	if req.EndTime <= req.StartTime {
		return Entry{}, ErrEndsBeforeStart
	}

	now := time.Now().UTC()

	return Entry{
		ID:           uuid.NewString(),
		DepartmentID: req.DepartmentID,
		Semester:     req.Semester,
		CourseCode:   req.CourseCode,
		CourseName:   req.CourseName,
		Date:         date,
		StartTime:    req.StartTime,
		EndTime:      req.EndTime,
		Venue:        req.Venue,
		InstructorID: req.InstructorID,
		Description:  req.Description,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}
