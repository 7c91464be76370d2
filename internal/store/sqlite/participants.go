package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/teemow/meetsync/internal/model"
)

const participantColumns = `id, name, email, role, status, department, calendar_id, created_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanParticipant(row rowScanner) (model.Participant, error) {
	var (
		p         model.Participant
		role      string
		status    string
		createdAt int64
	)
	if err := row.Scan(&p.ID, &p.Name, &p.Email, &role, &status, &p.Department, &p.CalendarID, &createdAt); err != nil {
		return model.Participant{}, err
	}
	p.Role = model.Role(role)
	p.Status = model.ParticipantStatus(status)
	p.CreatedAt = fromUnix(createdAt)
	return p, nil
}

func (s *Store) GetParticipant(ctx context.Context, id string) (model.Participant, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+participantColumns+` FROM participants WHERE id = ?`, id)
	p, err := scanParticipant(row)
	if err != nil {
		return model.Participant{}, notFound(err, "participant", id)
	}
	return p, nil
}

func (s *Store) SaveParticipant(ctx context.Context, p model.Participant) error {
	if p.ID == "" {
		return fmt.Errorf("participant id is required")
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = s.now()
	}
	// created_at keeps its first value on update.
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO participants (`+participantColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			email = excluded.email,
			role = excluded.role,
			status = excluded.status,
			department = excluded.department,
			calendar_id = excluded.calendar_id`,
		p.ID, p.Name, p.Email, string(p.Role), string(p.Status), p.Department, p.CalendarID, toUnix(p.CreatedAt))
	if err != nil {
		return fmt.Errorf("failed to save participant %s: %w", p.ID, err)
	}
	return nil
}

func (s *Store) ListParticipants(ctx context.Context, role model.Role) ([]model.Participant, error) {
	var (
		rows *sql.Rows
		err  error
	)
	if role == "" {
		rows, err = s.db.QueryContext(ctx, `SELECT `+participantColumns+` FROM participants ORDER BY id`)
	} else {
		rows, err = s.db.QueryContext(ctx, `SELECT `+participantColumns+` FROM participants WHERE role = ? ORDER BY id`, string(role))
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list participants: %w", err)
	}
	return collectParticipants(rows)
}

func (s *Store) FindByCalendarID(ctx context.Context, calendarID string) ([]model.Participant, error) {
	if calendarID == "" {
		return nil, nil
	}
	rows, err := s.db.QueryContext(ctx, `SELECT `+participantColumns+` FROM participants WHERE calendar_id = ? ORDER BY id`, calendarID)
	if err != nil {
		return nil, fmt.Errorf("failed to find participants by calendar: %w", err)
	}
	return collectParticipants(rows)
}

func collectParticipants(rows *sql.Rows) ([]model.Participant, error) {
	defer rows.Close()

	var out []model.Participant
	for rows.Next() {
		p, err := scanParticipant(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan participant: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}
