package flatfile

import (
	"context"
	"fmt"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/saturnino-fabrica-de-software/chamada/internal/domain"
)

const AttendanceFile = "attendance.csv"

var attendanceHeader = []string{"id", "student_id", "name", "login_date", "login_time", "logout_date", "logout_time"}

// AttendanceLog is the append-mostly attendance table. Files without an id
// column get fresh ids on load.
type AttendanceLog struct {
	mu     sync.RWMutex
	t      table
	events []domain.AttendanceEvent
}

func OpenAttendanceLog(dir string) (*AttendanceLog, error) {
	l := &AttendanceLog{
		t: table{path: filepath.Join(dir, AttendanceFile), header: attendanceHeader},
	}

	rows, err := l.t.read()
	if err != nil {
		return nil, err
	}
	for i, r := range rows {
		ev, err := parseEvent(r)
		if err != nil {
			return nil, fmt.Errorf("%s row %d: %w", AttendanceFile, i+2, err)
		}
		l.events = append(l.events, ev)
	}
	return l, nil
}

func (l *AttendanceLog) Append(ctx context.Context, ev *domain.AttendanceEvent) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	rec := *ev
	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}

	next := append(l.events[:len(l.events):len(l.events)], rec)
	if err := l.t.write(eventRecords(next)); err != nil {
		return fmt.Errorf("append attendance: %w", err)
	}

	l.events = next
	ev.ID = rec.ID
	return nil
}

// CloseLatestOpen stamps the logout of the last open event of a student.
// Events are kept in login order, so the last open one is the most recent.
func (l *AttendanceLog) CloseLatestOpen(ctx context.Context, studentID int64, at time.Time) (*domain.AttendanceEvent, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	idx := -1
	for i := len(l.events) - 1; i >= 0; i-- {
		if l.events[i].StudentID == studentID && l.events[i].IsOpen() {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil, domain.ErrNoActiveSession
	}

	next := make([]domain.AttendanceEvent, len(l.events))
	copy(next, l.events)
	next[idx].Close(at)

	if err := l.t.write(eventRecords(next)); err != nil {
		return nil, fmt.Errorf("close attendance: %w", err)
	}

	l.events = next
	ev := next[idx]
	return &ev, nil
}

func (l *AttendanceLog) List(ctx context.Context, filter domain.AttendanceFilter) ([]domain.AttendanceEvent, error) {
	if filter.Date != "" {
		if _, err := time.Parse(domain.DateLayout, filter.Date); err != nil {
			return nil, domain.ErrValidationFailed.WithMessage("date must be YYYY-MM-DD")
		}
	}

	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]domain.AttendanceEvent, 0)
	for _, ev := range l.events {
		if filter.Match(ev) {
			out = append(out, ev)
		}
	}
	return out, nil
}

func (l *AttendanceLog) ListOpen(ctx context.Context) ([]domain.AttendanceEvent, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]domain.AttendanceEvent, 0)
	for _, ev := range l.events {
		if ev.IsOpen() {
			out = append(out, ev)
		}
	}
	return out, nil
}

func parseEvent(r row) (domain.AttendanceEvent, error) {
	sid, err := strconv.ParseInt(r["student_id"], 10, 64)
	if err != nil {
		return domain.AttendanceEvent{}, fmt.Errorf("student_id: %w", err)
	}

	ev := domain.AttendanceEvent{
		ID:         uuid.New(),
		StudentID:  sid,
		Name:       r["name"],
		LoginDate:  r["login_date"],
		LoginTime:  r["login_time"],
		LogoutDate: r["logout_date"],
		LogoutTime: r["logout_time"],
	}
	if v := r["id"]; v != "" {
		if ev.ID, err = uuid.Parse(v); err != nil {
			return domain.AttendanceEvent{}, fmt.Errorf("id: %w", err)
		}
	}
	return ev, nil
}

func eventRecords(events []domain.AttendanceEvent) [][]string {
	records := make([][]string, 0, len(events))
	for _, ev := range events {
		records = append(records, []string{
			ev.ID.String(),
			strconv.FormatInt(ev.StudentID, 10),
			ev.Name,
			ev.LoginDate,
			ev.LoginTime,
			ev.LogoutDate,
			ev.LogoutTime,
		})
	}
	return records
}
