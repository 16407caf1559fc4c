package user

import (
	"errors"
	"time"
)

type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"` // never expose hash in JSON
	Name         string    `json:"name"`
	Role         Role      `json:"role"`
	Phone        string    `json:"phone,omitempty"`
	Active       bool      `json:"active"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

var ErrNotFound = errors.New("user not found")

// rows are deactivated, never deleted, so logins must check this.
var ErrInactive = errors.New("user is deactivated")

type ChangeRoleRequest struct {
	Role Role `json:"role" binding:"required"`
}

type ListFilter struct {
	Role   *Role
	Active *bool
	Limit  int
	Offset int
}
