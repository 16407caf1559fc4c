package audit

import (
	"time"

	"github.com/google/uuid"
)

type Action string

const (
	ActionMaterialUploaded    Action = "material_uploaded"
	ActionMaterialApproved    Action = "material_approved"
	ActionMaterialRejected    Action = "material_rejected"
	ActionMaterialResubmitted Action = "material_resubmitted"
	ActionUserRoleChanged     Action = "user_role_changed"
	ActionUserDeactivated     Action = "user_deactivated"
)

// Entry is an append-only record. Nothing in the codebase updates or
// deletes one once written.
type Entry struct {
	ID         string    `json:"id"`
	ActorID    string    `json:"actorId"`
	Action     Action    `json:"action"`
	TargetType string    `json:"targetType"`
	TargetID   string    `json:"targetId"`
	Note       string    `json:"note,omitempty"`
	CreatedAt  time.Time `json:"createdAt"`
}

const (
	TargetMaterial = "material"
	TargetUser     = "user"
)

type Filter struct {
	ActorID    *string
	Action     *Action
	TargetType *string
	TargetID   *string
	From       *time.Time
	To         *time.Time
	Limit      int
	Offset     int
}

func New(actorID string, action Action, targetType, targetID, note string) Entry {
	return Entry{
		ID:         uuid.NewString(),
		ActorID:    actorID,
		Action:     action,
		TargetType: targetType,
		TargetID:   targetID,
		Note:       note,
		CreatedAt:  time.Now().UTC(),
	}
}
