package models

import (
	"time"

	"github.com/google/uuid"
)

type User struct {
	ID           uuid.UUID `json:"id" db:"id"`
	Email        string    `json:"email" db:"email"`
	PasswordHash string    `json:"-" db:"password_hash"`
	CreatedAt    time.Time `json:"createdAt" db:"created_at"`
}

// Public returns the fields of a user that are safe to send to clients.
func (u *User) Public() UserResponse {
	return UserResponse{
		ID:    u.ID.String(),
		Email: u.Email,
	}
}
