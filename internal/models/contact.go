package models

import (
	"time"

	"github.com/google/uuid"
)

type Contact struct {
	ID        uuid.UUID
	UserID    uuid.UUID
	FirstName string
	LastName  string
	Email     string
	Birthday  *time.Time
	Notes     string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Filter for contact search queries
// Zero values mean "not filtered by this field"
type ContactFilter struct {
	FirstName      string
	LastName       string
	Email          string
	DaysToBirthday int
	Limit          int
	Offset         int
}
