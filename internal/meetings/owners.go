package meetings

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/teemow/meetsync/internal/model"
	"github.com/teemow/meetsync/internal/store"
)

// OwnerAvailability is an owner's weekly windows and upcoming blocked time.
type OwnerAvailability struct {
	Owner   model.Participant
	Windows []model.AvailabilityWindow
	Blocked []model.BlockedInterval
}

// SetAvailabilityWindow adds an active weekly window for an owner. A window
// overlapping another active window of the same weekday is refused.
func (m *Manager) SetAvailabilityWindow(ctx context.Context, ownerID string, weekday time.Weekday, start, end model.ClockTime) (model.AvailabilityWindow, error) {
	if _, err := m.owner(ctx, ownerID); err != nil {
		return model.AvailabilityWindow{}, err
	}

	w := model.AvailabilityWindow{
		ID:      uuid.NewString(),
		OwnerID: ownerID,
		Weekday: weekday,
		Start:   start,
		End:     end,
		Active:  true,
	}
	if err := w.Validate(); err != nil {
		return model.AvailabilityWindow{}, err
	}

	existing, err := m.store.ListWindows(ctx, ownerID)
	if err != nil {
		return model.AvailabilityWindow{}, fmt.Errorf("failed to list windows: %w", err)
	}
	for _, e := range existing {
		if e.Active && e.Weekday == weekday && e.Start < end && start < e.End {
			return model.AvailabilityWindow{}, fmt.Errorf("window %s-%s overlaps existing window %s-%s on %s: %w",
				start, end, e.Start, e.End, weekday, store.ErrConflict)
		}
	}

	if err := m.store.SaveWindow(ctx, w); err != nil {
		return model.AvailabilityWindow{}, fmt.Errorf("failed to save window: %w", err)
	}
	return w, nil
}

// RemoveAvailabilityWindow deletes a weekly window.
func (m *Manager) RemoveAvailabilityWindow(ctx context.Context, id string) error {
	if err := m.store.DeleteWindow(ctx, id); err != nil {
		return fmt.Errorf("failed to delete window: %w", err)
	}
	return nil
}

// AddBlockedInterval excludes [start, end) from an owner's availability.
func (m *Manager) AddBlockedInterval(ctx context.Context, ownerID string, start, end time.Time, reason string) (model.BlockedInterval, error) {
	if _, err := m.owner(ctx, ownerID); err != nil {
		return model.BlockedInterval{}, err
	}

	b := model.BlockedInterval{
		ID:      uuid.NewString(),
		OwnerID: ownerID,
		Start:   start,
		End:     end,
		Reason:  reason,
	}
	if err := b.Validate(); err != nil {
		return model.BlockedInterval{}, err
	}
	if err := m.store.SaveBlocked(ctx, b); err != nil {
		return model.BlockedInterval{}, fmt.Errorf("failed to save blocked interval: %w", err)
	}
	return b, nil
}

// RemoveBlockedInterval deletes a blocked interval.
func (m *Manager) RemoveBlockedInterval(ctx context.Context, id string) error {
	if err := m.store.DeleteBlocked(ctx, id); err != nil {
		return fmt.Errorf("failed to delete blocked interval: %w", err)
	}
	return nil
}

// ListAvailability returns the windows of every configured owner and their
// blocked time from now until the booking horizon.
func (m *Manager) ListAvailability(ctx context.Context) ([]OwnerAvailability, error) {
	now := m.now()
	horizon := now.AddDate(0, 0, max(m.cfg.MaxBookingDaysAhead, m.cfg.DaysAhead))

	var out []OwnerAvailability
	for _, id := range m.cfg.OwnerIDs {
		owner, err := m.owner(ctx, id)
		if errors.Is(err, store.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		windows, err := m.store.ListWindows(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("failed to list windows: %w", err)
		}
		blocked, err := m.store.ListBlocked(ctx, id, now, horizon)
		if err != nil {
			return nil, fmt.Errorf("failed to list blocked intervals: %w", err)
		}
		out = append(out, OwnerAvailability{Owner: owner, Windows: windows, Blocked: blocked})
	}
	return out, nil
}

func (m *Manager) owner(ctx context.Context, ownerID string) (model.Participant, error) {
	p, err := m.store.GetParticipant(ctx, ownerID)
	if err != nil {
		return model.Participant{}, fmt.Errorf("failed to load owner %s: %w", ownerID, err)
	}
	if p.Role != model.RoleOwner {
		return model.Participant{}, fmt.Errorf("participant %s is not an owner", ownerID)
	}
	return p, nil
}
