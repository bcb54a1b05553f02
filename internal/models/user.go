package models

import (
	"time"

	"github.com/google/uuid"
)

type User struct {
	ID             uuid.UUID
	CreatedAt      time.Time
	Username       string
	Email          string
	HashedPassword string
	AvatarURL      *string
	RefreshToken   *string
	Confirmed      bool
}

// Public projection of the user, safe to return to clients
type PublicUser struct {
	ID        uuid.UUID `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	AvatarURL *string   `json:"avatar,omitempty"`
	Confirmed bool      `json:"confirmed"`
}

func (u User) Public() PublicUser {
	return PublicUser{
		ID:        u.ID,
		Username:  u.Username,
		Email:     u.Email,
		AvatarURL: u.AvatarURL,
		Confirmed: u.Confirmed,
	}
}

// Serializable user snapshot for the session cache
// Kept separate from User so the cache format does not depend on the db schema
type UserSnapshot struct {
	ID        uuid.UUID `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	AvatarURL *string   `json:"avatar,omitempty"`
	Confirmed bool      `json:"confirmed"`
}

func SnapshotFromUser(u User) UserSnapshot {
	return UserSnapshot{
		ID:        u.ID,
		CreatedAt: u.CreatedAt,
		Username:  u.Username,
		Email:     u.Email,
		AvatarURL: u.AvatarURL,
		Confirmed: u.Confirmed,
	}
}

func (s UserSnapshot) User() User {
	return User{
		ID:        s.ID,
		CreatedAt: s.CreatedAt,
		Username:  s.Username,
		Email:     s.Email,
		AvatarURL: s.AvatarURL,
		Confirmed: s.Confirmed,
	}
}
