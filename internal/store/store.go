// Package store defines the persistence contracts used by the scheduling engine.
//
// Two backends implement them: store/memory for tests and single-process use,
// and store/sqlite for durable storage.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/teemow/meetsync/internal/model"
)

var (
	// ErrNotFound is returned when the requested record does not exist.
	ErrNotFound = errors.New("store: not found")

	// ErrConflict is returned when a record with the same identity already exists.
	ErrConflict = errors.New("store: conflict")

	// ErrStatusConflict is returned by UpdateStatus when the stored status no
	// longer matches the expected one.
	ErrStatusConflict = errors.New("store: status changed concurrently")
)

// ParticipantRepository persists managers, owners and admins.
type ParticipantRepository interface {
	GetParticipant(ctx context.Context, id string) (model.Participant, error)
	SaveParticipant(ctx context.Context, p model.Participant) error
	ListParticipants(ctx context.Context, role model.Role) ([]model.Participant, error)
	// FindByCalendarID returns every participant whose stored calendar ID equals
	// calendarID. Several participants may share one calendar.
	FindByCalendarID(ctx context.Context, calendarID string) ([]model.Participant, error)
}

// AvailabilityRepository persists owners' weekly windows and blocked time.
type AvailabilityRepository interface {
	ListWindows(ctx context.Context, ownerID string) ([]model.AvailabilityWindow, error)
	SaveWindow(ctx context.Context, w model.AvailabilityWindow) error
	DeleteWindow(ctx context.Context, id string) error

	// ListBlocked returns the owner's blocked intervals overlapping [from, to).
	ListBlocked(ctx context.Context, ownerID string, from, to time.Time) ([]model.BlockedInterval, error)
	SaveBlocked(ctx context.Context, b model.BlockedInterval) error
	DeleteBlocked(ctx context.Context, id string) error
}

// MeetingFilter narrows ListMeetings. Zero fields match everything.
type MeetingFilter struct {
	ManagerID string
	Status    model.Status
	// From and To select meetings overlapping [From, To).
	From time.Time
	To   time.Time
}

// Matches reports whether m satisfies the filter.
func (f MeetingFilter) Matches(m model.Meeting) bool {
	if f.ManagerID != "" && m.ManagerID != f.ManagerID {
		return false
	}
	if f.Status != "" && m.Status != f.Status {
		return false
	}
	if !f.From.IsZero() && !m.End().After(f.From) {
		return false
	}
	if !f.To.IsZero() && !m.Start.Before(f.To) {
		return false
	}
	return true
}

// MeetingRepository persists meeting records.
type MeetingRepository interface {
	CreateMeeting(ctx context.Context, m model.Meeting) error
	GetMeeting(ctx context.Context, id string) (model.Meeting, error)
	// ListMeetings returns matching meetings ordered by start time.
	ListMeetings(ctx context.Context, filter MeetingFilter) ([]model.Meeting, error)
	// UpdateStatus moves a meeting from one status to another. It fails with
	// ErrStatusConflict when the stored status is not from, so two concurrent
	// transitions cannot both apply.
	UpdateStatus(ctx context.Context, id string, from, to model.Status) (model.Meeting, error)
}

// Store aggregates all repositories.
type Store interface {
	ParticipantRepository
	AvailabilityRepository
	MeetingRepository
	Close() error
}
