package model

import "time"

// Role is a participant's role in the system.
type Role string

const (
	RoleAdmin   Role = "admin"
	RoleManager Role = "manager"
	RoleOwner   Role = "owner"
	RolePending Role = "pending"
)

// ParticipantStatus describes whether a participant is currently reachable.
type ParticipantStatus string

const (
	ParticipantActive       ParticipantStatus = "active"
	ParticipantVacation     ParticipantStatus = "vacation"
	ParticipantSickLeave    ParticipantStatus = "sick_leave"
	ParticipantBusinessTrip ParticipantStatus = "business_trip"
	ParticipantDeleted      ParticipantStatus = "deleted"
)

// Participant is a manager, owner or admin known to the system.
// CalendarID is empty when the participant has not connected a calendar.
type Participant struct {
	ID         string
	Name       string
	Email      string
	Role       Role
	Status     ParticipantStatus
	Department string
	CalendarID string
	CreatedAt  time.Time
}

// Active reports whether the participant is available for meetings.
func (p Participant) Active() bool {
	return p.Status == ParticipantActive
}

// HasCalendar reports whether the participant relies on provider calendar sync.
func (p Participant) HasCalendar() bool {
	return p.CalendarID != ""
}
