package models

import "time"

type OrganizerRole string

const (
	RoleAdmin     OrganizerRole = "admin"
	RoleOrganizer OrganizerRole = "organizer"
)

// Organizer is an account allowed to run tournaments.
type Organizer struct {
	ID           int           `json:"id"`
	Email        string        `json:"email"`
	Name         string        `json:"name"`
	PasswordHash string        `json:"-"`
	Role         OrganizerRole `json:"role"`
	CreatedAt    time.Time     `json:"created_at"`
}
