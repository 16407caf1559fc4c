package notification

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

type Status string

const (
	StatusPending Status = "pending"
	StatusSending Status = "sending"
	StatusSent    Status = "sent"
	StatusFailed  Status = "failed"
)

const KindMaterialDecided = "material_decided"

var ErrNotFound = errors.New("notification not found")

// Notification is an outbox row. It is written in the same transaction
// as the state change it announces and dispatched later by the worker.
type Notification struct {
	ID          string     `json:"id"`
	Kind        string     `json:"kind"`
	RecipientID string     `json:"recipientId"`
	MaterialID  *string    `json:"materialId,omitempty"`
	Subject     string     `json:"subject"`
	Body        string     `json:"body"`
	Status      Status     `json:"status"`
	Attempts    int        `json:"attempts"`
	MaxAttempts int        `json:"maxAttempts"`
	RunAt       time.Time  `json:"runAt"`
	LockedAt    *time.Time `json:"lockedAt,omitempty"`
	LastError   *string    `json:"lastError,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
	SentAt      *time.Time `json:"sentAt,omitempty"`
}

type CreateRequest struct {
	Kind        string
	RecipientID string
	MaterialID  *string
	Subject     string
	Body        string
	MaxAttempts int
}

func New(req CreateRequest) Notification {
	maxA := req.MaxAttempts

	if maxA <= 0 {
		maxA = 8
	}

	now := time.Now().UTC()

	return Notification{
		ID:          uuid.NewString(),
		Kind:        req.Kind,
		RecipientID: req.RecipientID,
		MaterialID:  req.MaterialID,
		Subject:     req.Subject,
		Body:        req.Body,
		Status:      StatusPending,
		Attempts:    0,
		MaxAttempts: maxA,
		RunAt:       now,
		CreatedAt:   now,
	}
}
