package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/saturnino-fabrica-de-software/chamada/internal/domain"
)

// AttendanceRepository keeps login/logout events. Timestamps are stored as
// local wall-clock TIMESTAMP values.
type AttendanceRepository struct {
	pool PgxPool
	loc  *time.Location
}

func NewAttendanceRepository(pool PgxPool) *AttendanceRepository {
	return &AttendanceRepository{pool: pool, loc: time.Local}
}

func (r *AttendanceRepository) Append(ctx context.Context, ev *domain.AttendanceEvent) error {
	loginAt, err := ev.LoginAt(r.loc)
	if err != nil {
		return fmt.Errorf("append attendance: %w", err)
	}

	query := `
		INSERT INTO attendance_events (id, student_id, name, login_at)
		VALUES ($1, $2, $3, $4)
	`

	if _, err := r.pool.Exec(ctx, query, ev.ID, ev.StudentID, ev.Name, loginAt); err != nil {
		return fmt.Errorf("append attendance: %w", err)
	}
	return nil
}

// CloseLatestOpen stamps the logout of the most recent open event of a
// student in a single statement. It returns domain.ErrNoActiveSession when
// the student has no open event.
func (r *AttendanceRepository) CloseLatestOpen(ctx context.Context, studentID int64, at time.Time) (*domain.AttendanceEvent, error) {
	query := `
		UPDATE attendance_events SET logout_at = $2
		WHERE id = (
			SELECT id FROM attendance_events
			WHERE student_id = $1 AND logout_at IS NULL
			ORDER BY login_at DESC, seq DESC
			LIMIT 1
			FOR UPDATE
		)
		RETURNING id, student_id, name, login_at, logout_at
	`

	var ev domain.AttendanceEvent
	var loginAt time.Time
	var logoutAt *time.Time
	err := r.pool.QueryRow(ctx, query, studentID, at.In(r.loc)).
		Scan(&ev.ID, &ev.StudentID, &ev.Name, &loginAt, &logoutAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNoActiveSession
	}
	if err != nil {
		return nil, fmt.Errorf("close attendance: %w", err)
	}

	eventFromTimes(&ev, loginAt, logoutAt)
	return &ev, nil
}

// List returns events matching filter in login order.
func (r *AttendanceRepository) List(ctx context.Context, filter domain.AttendanceFilter) ([]domain.AttendanceEvent, error) {
	var (
		where []string
		args  []any
	)
	if filter.Date != "" {
		day, err := time.ParseInLocation(domain.DateLayout, filter.Date, r.loc)
		if err != nil {
			return nil, domain.ErrValidationFailed.WithMessage("date must be YYYY-MM-DD")
		}
		args = append(args, day, day.AddDate(0, 0, 1))
		where = append(where, fmt.Sprintf("login_at >= $%d AND login_at < $%d", len(args)-1, len(args)))
	}
	if filter.StudentID != 0 {
		args = append(args, filter.StudentID)
		where = append(where, fmt.Sprintf("student_id = $%d", len(args)))
	}

	query := `SELECT id, student_id, name, login_at, logout_at FROM attendance_events`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY login_at, seq"

	return r.query(ctx, query, args...)
}

// ListOpen returns events that still await a logout.
func (r *AttendanceRepository) ListOpen(ctx context.Context) ([]domain.AttendanceEvent, error) {
	query := `
		SELECT id, student_id, name, login_at, logout_at
		FROM attendance_events
		WHERE logout_at IS NULL
		ORDER BY login_at, seq
	`
	return r.query(ctx, query)
}

func (r *AttendanceRepository) query(ctx context.Context, query string, args ...any) ([]domain.AttendanceEvent, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list attendance: %w", err)
	}
	defer rows.Close()

	events := make([]domain.AttendanceEvent, 0)
	for rows.Next() {
		var ev domain.AttendanceEvent
		var loginAt time.Time
		var logoutAt *time.Time
		if err := rows.Scan(&ev.ID, &ev.StudentID, &ev.Name, &loginAt, &logoutAt); err != nil {
			return nil, fmt.Errorf("scan attendance: %w", err)
		}
		eventFromTimes(&ev, loginAt, logoutAt)
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate attendance: %w", err)
	}
	return events, nil
}
