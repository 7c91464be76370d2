// Package memory provides an in-process implementation of store.Store.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/teemow/meetsync/internal/model"
	"github.com/teemow/meetsync/internal/store"
)

// Store keeps all records in maps guarded by a single RWMutex.
type Store struct {
	mu           sync.RWMutex
	participants map[string]model.Participant
	windows      map[string]model.AvailabilityWindow
	blocked      map[string]model.BlockedInterval
	meetings     map[string]model.Meeting

	now func() time.Time
}

var _ store.Store = (*Store)(nil)

// New returns an empty store.
func New() *Store {
	return &Store{
		participants: make(map[string]model.Participant),
		windows:      make(map[string]model.AvailabilityWindow),
		blocked:      make(map[string]model.BlockedInterval),
		meetings:     make(map[string]model.Meeting),
		now:          time.Now,
	}
}

// Close is a no-op.
func (s *Store) Close() error {
	return nil
}

// --- participants ---

func (s *Store) GetParticipant(_ context.Context, id string) (model.Participant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.participants[id]
	if !ok {
		return model.Participant{}, fmt.Errorf("participant %s: %w", id, store.ErrNotFound)
	}
	return p, nil
}

func (s *Store) SaveParticipant(_ context.Context, p model.Participant) error {
	if p.ID == "" {
		return fmt.Errorf("participant id is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if p.CreatedAt.IsZero() {
		if existing, ok := s.participants[p.ID]; ok {
			p.CreatedAt = existing.CreatedAt
		} else {
			p.CreatedAt = s.now().UTC()
		}
	}
	s.participants[p.ID] = p
	return nil
}

func (s *Store) ListParticipants(_ context.Context, role model.Role) ([]model.Participant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []model.Participant
	for _, p := range s.participants {
		if role == "" || p.Role == role {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) FindByCalendarID(_ context.Context, calendarID string) ([]model.Participant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []model.Participant
	for _, p := range s.participants {
		if calendarID != "" && p.CalendarID == calendarID {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// --- availability ---

func (s *Store) ListWindows(_ context.Context, ownerID string) ([]model.AvailabilityWindow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []model.AvailabilityWindow
	for _, w := range s.windows {
		if w.OwnerID == ownerID {
			out = append(out, w)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Weekday != out[j].Weekday {
			return out[i].Weekday < out[j].Weekday
		}
		return out[i].Start < out[j].Start
	})
	return out, nil
}

func (s *Store) SaveWindow(_ context.Context, w model.AvailabilityWindow) error {
	if w.ID == "" {
		return fmt.Errorf("availability window id is required")
	}
	if err := w.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.windows[w.ID] = w
	return nil
}

func (s *Store) DeleteWindow(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.windows[id]; !ok {
		return fmt.Errorf("availability window %s: %w", id, store.ErrNotFound)
	}
	delete(s.windows, id)
	return nil
}

func (s *Store) ListBlocked(_ context.Context, ownerID string, from, to time.Time) ([]model.BlockedInterval, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	span := model.Interval{Start: from, End: to}
	var out []model.BlockedInterval
	for _, b := range s.blocked {
		if b.OwnerID == ownerID && b.Interval().Overlaps(span) {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Start.Before(out[j].Start) })
	return out, nil
}

func (s *Store) SaveBlocked(_ context.Context, b model.BlockedInterval) error {
	if b.ID == "" {
		return fmt.Errorf("blocked interval id is required")
	}
	if err := b.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.blocked[b.ID] = b
	return nil
}

func (s *Store) DeleteBlocked(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.blocked[id]; !ok {
		return fmt.Errorf("blocked interval %s: %w", id, store.ErrNotFound)
	}
	delete(s.blocked, id)
	return nil
}

// --- meetings ---

func (s *Store) CreateMeeting(_ context.Context, m model.Meeting) error {
	if err := m.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.meetings[m.ID]; ok {
		return fmt.Errorf("meeting %s: %w", m.ID, store.ErrConflict)
	}
	now := s.now().UTC()
	m.CreatedAt, m.UpdatedAt = now, now
	s.meetings[m.ID] = m
	return nil
}

func (s *Store) GetMeeting(_ context.Context, id string) (model.Meeting, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	m, ok := s.meetings[id]
	if !ok {
		return model.Meeting{}, fmt.Errorf("meeting %s: %w", id, store.ErrNotFound)
	}
	return m, nil
}

func (s *Store) ListMeetings(_ context.Context, filter store.MeetingFilter) ([]model.Meeting, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []model.Meeting
	for _, m := range s.meetings {
		if filter.Matches(m) {
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Start.Before(out[j].Start) })
	return out, nil
}

func (s *Store) UpdateStatus(_ context.Context, id string, from, to model.Status) (model.Meeting, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, ok := s.meetings[id]
	if !ok {
		return model.Meeting{}, fmt.Errorf("meeting %s: %w", id, store.ErrNotFound)
	}
	if m.Status != from {
		return m, fmt.Errorf("meeting %s is %s, expected %s: %w", id, m.Status, from, store.ErrStatusConflict)
	}
	m.Status = to
	m.UpdatedAt = s.now().UTC()
	s.meetings[id] = m
	return m, nil
}
