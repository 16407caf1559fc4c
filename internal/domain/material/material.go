package material

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

type ReviewStatus string

const (
	StatusPending  ReviewStatus = "pending"
	StatusApproved ReviewStatus = "approved"
	StatusRejected ReviewStatus = "rejected"
)

func (s ReviewStatus) IsValid() bool {
	switch s {
	case StatusPending, StatusApproved, StatusRejected:
		return true
	}

	return false
}

type FileType string

const (
	FileTypePDF   FileType = "pdf"
	FileTypeVideo FileType = "video"
	FileTypeLink  FileType = "link"
)

func (t FileType) IsValid() bool {
	switch t {
	case FileTypePDF, FileTypeVideo, FileTypeLink:
		return true
	}

	return false
}

type Material struct {
	ID           string       `json:"id"`
	DepartmentID string       `json:"departmentId"`
	UploaderID   string       `json:"uploaderId"`
	Title        string       `json:"title"`
	Description  string       `json:"description,omitempty"`
	FileType     FileType     `json:"fileType"`
	FileRef      string       `json:"fileRef,omitempty"` // external URL for link materials
	ObjectKey    string       `json:"-"`                 // storage key for uploaded files
	SubjectTags  []string     `json:"subjectTags,omitempty"`
	Semester     int          `json:"semester,omitempty"`
	Year         int          `json:"year,omitempty"`
	ReviewStatus ReviewStatus `json:"reviewStatus"`
	VerifierID   *string      `json:"verifierId,omitempty"`
	Note         *string      `json:"note,omitempty"` // verifier's decision note
	UploadedAt   time.Time    `json:"uploadedAt"`
	UpdatedAt    time.Time    `json:"updatedAt"`
	DecidedAt    *time.Time   `json:"decidedAt,omitempty"`
	Downloads    int64        `json:"downloads"`
	Views        int64        `json:"views"`
	Favorites    int64        `json:"favorites"`
}

var ErrNotFound = errors.New("material not found")

// decision raced or record already decided
var ErrNotPending = errors.New("material is not pending review")

// only rejected materials go back into the queue
var ErrNotRejected = errors.New("material is not rejected")

type CreateMaterialRequest struct {
	UploaderID   string   `json:"-"`
	DepartmentID string   `json:"departmentId" binding:"required,uuid"`
	Title        string   `json:"title" binding:"required,min=3,max=200"`
	Description  string   `json:"description" binding:"omitempty,max=2000"`
	FileType     FileType `json:"fileType" binding:"required,oneof=pdf video link"`
	FileRef      string   `json:"fileRef" binding:"omitempty,url,max=2048"`
	SubjectTags  []string `json:"subjectTags" binding:"omitempty,max=10,dive,min=1,max=40"`
	Semester     int      `json:"semester" binding:"omitempty,min=1,max=12"`
	Year         int      `json:"year" binding:"omitempty,min=2000,max=2100"`
}

type ListFilter struct {
	DepartmentID *string
	UploaderID   *string
	Status       *ReviewStatus // only honored for moderator scopes
	Semester     *int
	Year         *int
	Tag          *string
	Query        *string
	Limit        int
	Offset       int
}

// NewFromCreateRequest builds a pending material; every upload starts
// in the review queue regardless of who submitted it.
func NewFromCreateRequest(req CreateMaterialRequest) Material {
	now := time.Now().UTC()

	return Material{
		ID:           uuid.NewString(),
		DepartmentID: req.DepartmentID,
		UploaderID:   req.UploaderID,
		Title:        req.Title,
		Description:  req.Description,
		FileType:     req.FileType,
		FileRef:      req.FileRef,
		SubjectTags:  req.SubjectTags,
		Semester:     req.Semester,
		Year:         req.Year,
		ReviewStatus: StatusPending,
		UploadedAt:   now,
		UpdatedAt:    now,
	}
}
