package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/teemow/meetsync/internal/model"
)

func (s *Store) ListWindows(ctx context.Context, ownerID string) ([]model.AvailabilityWindow, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, owner_id, weekday, start_min, end_min, active
		FROM availability_windows
		WHERE owner_id = ?
		ORDER BY weekday, start_min`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list availability windows: %w", err)
	}
	defer rows.Close()

	var out []model.AvailabilityWindow
	for rows.Next() {
		var (
			w                       model.AvailabilityWindow
			weekday, start, end, on int
		)
		if err := rows.Scan(&w.ID, &w.OwnerID, &weekday, &start, &end, &on); err != nil {
			return nil, fmt.Errorf("failed to scan availability window: %w", err)
		}
		w.Weekday = time.Weekday(weekday)
		w.Start = model.ClockTime(start)
		w.End = model.ClockTime(end)
		w.Active = on != 0
		out = append(out, w)
	}
	return out, rows.Err()
}

func (s *Store) SaveWindow(ctx context.Context, w model.AvailabilityWindow) error {
	if w.ID == "" {
		return fmt.Errorf("availability window id is required")
	}
	if err := w.Validate(); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO availability_windows (id, owner_id, weekday, start_min, end_min, active)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			owner_id = excluded.owner_id,
			weekday = excluded.weekday,
			start_min = excluded.start_min,
			end_min = excluded.end_min,
			active = excluded.active`,
		w.ID, w.OwnerID, int(w.Weekday), int(w.Start), int(w.End), boolToInt(w.Active))
	if err != nil {
		return fmt.Errorf("failed to save availability window %s: %w", w.ID, err)
	}
	return nil
}

func (s *Store) DeleteWindow(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM availability_windows WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete availability window %s: %w", id, err)
	}
	return requireAffected(res, "availability window", id)
}

func (s *Store) ListBlocked(ctx context.Context, ownerID string, from, to time.Time) ([]model.BlockedInterval, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, owner_id, start_at, end_at, reason
		FROM blocked_intervals
		WHERE owner_id = ? AND start_at < ? AND end_at > ?
		ORDER BY start_at`, ownerID, toUnix(to), toUnix(from))
	if err != nil {
		return nil, fmt.Errorf("failed to list blocked intervals: %w", err)
	}
	defer rows.Close()

	var out []model.BlockedInterval
	for rows.Next() {
		var (
			b          model.BlockedInterval
			start, end int64
		)
		if err := rows.Scan(&b.ID, &b.OwnerID, &start, &end, &b.Reason); err != nil {
			return nil, fmt.Errorf("failed to scan blocked interval: %w", err)
		}
		b.Start = fromUnix(start)
		b.End = fromUnix(end)
		out = append(out, b)
	}
	return out, rows.Err()
}

func (s *Store) SaveBlocked(ctx context.Context, b model.BlockedInterval) error {
	if b.ID == "" {
		return fmt.Errorf("blocked interval id is required")
	}
	if err := b.Validate(); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO blocked_intervals (id, owner_id, start_at, end_at, reason)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			owner_id = excluded.owner_id,
			start_at = excluded.start_at,
			end_at = excluded.end_at,
			reason = excluded.reason`,
		b.ID, b.OwnerID, toUnix(b.Start), toUnix(b.End), b.Reason)
	if err != nil {
		return fmt.Errorf("failed to save blocked interval %s: %w", b.ID, err)
	}
	return nil
}

func (s *Store) DeleteBlocked(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM blocked_intervals WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete blocked interval %s: %w", id, err)
	}
	return requireAffected(res, "blocked interval", id)
}
