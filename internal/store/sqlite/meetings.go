package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/teemow/meetsync/internal/model"
	"github.com/teemow/meetsync/internal/store"
)

const meetingColumns = `id, manager_id, start_at, duration_sec, status,
	manager_calendar_id, manager_event_id, owner_calendar_id, owner_event_id,
	meet_link, conference_attached, created_at, updated_at`

func scanMeeting(row rowScanner) (model.Meeting, error) {
	var (
		m                   model.Meeting
		start, created, upd int64
		durationSec         int64
		status              string
		conferenceAttached  int
	)
	err := row.Scan(&m.ID, &m.ManagerID, &start, &durationSec, &status,
		&m.ManagerCalendarID, &m.ManagerEventID, &m.OwnerCalendarID, &m.OwnerEventID,
		&m.MeetLink, &conferenceAttached, &created, &upd)
	if err != nil {
		return model.Meeting{}, err
	}
	m.Start = fromUnix(start)
	m.Duration = time.Duration(durationSec) * time.Second
	m.Status = model.Status(status)
	m.ConferenceAttached = conferenceAttached != 0
	m.CreatedAt = fromUnix(created)
	m.UpdatedAt = fromUnix(upd)
	return m, nil
}

func (s *Store) CreateMeeting(ctx context.Context, m model.Meeting) error {
	if err := m.Validate(); err != nil {
		return err
	}
	now := s.now()
	m.CreatedAt, m.UpdatedAt = now, now

	return s.withTransaction(ctx, func(tx *sql.Tx) error {
		var exists int
		err := tx.QueryRowContext(ctx, `SELECT COUNT(1) FROM meetings WHERE id = ?`, m.ID).Scan(&exists)
		if err != nil {
			return fmt.Errorf("failed to check meeting %s: %w", m.ID, err)
		}
		if exists > 0 {
			return fmt.Errorf("meeting %s: %w", m.ID, store.ErrConflict)
		}

		_, err = tx.ExecContext(ctx, `INSERT INTO meetings (`+meetingColumns+`)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			m.ID, m.ManagerID, toUnix(m.Start), int64(m.Duration/time.Second), string(m.Status),
			m.ManagerCalendarID, m.ManagerEventID, m.OwnerCalendarID, m.OwnerEventID,
			m.MeetLink, boolToInt(m.ConferenceAttached), toUnix(m.CreatedAt), toUnix(m.UpdatedAt))
		if err != nil {
			return fmt.Errorf("failed to insert meeting %s: %w", m.ID, err)
		}
		return nil
	})
}

func (s *Store) GetMeeting(ctx context.Context, id string) (model.Meeting, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+meetingColumns+` FROM meetings WHERE id = ?`, id)
	m, err := scanMeeting(row)
	if err != nil {
		return model.Meeting{}, notFound(err, "meeting", id)
	}
	return m, nil
}

func (s *Store) ListMeetings(ctx context.Context, filter store.MeetingFilter) ([]model.Meeting, error) {
	var (
		where []string
		args  []any
	)
	if filter.ManagerID != "" {
		where = append(where, "manager_id = ?")
		args = append(args, filter.ManagerID)
	}
	if filter.Status != "" {
		where = append(where, "status = ?")
		args = append(args, string(filter.Status))
	}
	if !filter.From.IsZero() {
		// end = start_at + duration; duration is stored in seconds.
		where = append(where, "start_at + duration_sec * 1000000000 > ?")
		args = append(args, toUnix(filter.From))
	}
	if !filter.To.IsZero() {
		where = append(where, "start_at < ?")
		args = append(args, toUnix(filter.To))
	}

	query := `SELECT ` + meetingColumns + ` FROM meetings`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY start_at"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list meetings: %w", err)
	}
	defer rows.Close()

	var out []model.Meeting
	for rows.Next() {
		m, err := scanMeeting(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan meeting: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (s *Store) UpdateStatus(ctx context.Context, id string, from, to model.Status) (model.Meeting, error) {
	var updated model.Meeting
	err := s.withTransaction(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			`UPDATE meetings SET status = ?, updated_at = ? WHERE id = ? AND status = ?`,
			string(to), toUnix(s.now()), id, string(from))
		if err != nil {
			return fmt.Errorf("failed to update meeting %s: %w", id, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to read affected rows: %w", err)
		}

		current, err := scanMeeting(tx.QueryRowContext(ctx, `SELECT `+meetingColumns+` FROM meetings WHERE id = ?`, id))
		if err != nil {
			return notFound(err, "meeting", id)
		}
		updated = current
		if n == 0 {
			return fmt.Errorf("meeting %s is %s, expected %s: %w", id, current.Status, from, store.ErrStatusConflict)
		}
		return nil
	})
	if err != nil && errors.Is(err, store.ErrStatusConflict) {
		return updated, err
	}
	if err != nil {
		return model.Meeting{}, err
	}
	return updated, nil
}
