package service

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/saturnino-fabrica-de-software/chamada/internal/domain"
	"github.com/saturnino-fabrica-de-software/chamada/internal/session"
)

// NoAttendanceYet is shown as last login when nobody logged in today.
const NoAttendanceYet = "—"

var exportHeader = []string{"student_id", "name", "login_date", "login_time", "logout_date", "logout_time"}

type Dashboard struct {
	Date            string `json:"date"`
	TotalRegistered int    `json:"total_registered"`
	PresentToday    int    `json:"present_today"`
	AbsentToday     int    `json:"absent_today"`
	LastLoginTime   string `json:"last_login_time"`
	ActiveSessions  int    `json:"active_sessions"`
}

// ReportService serves the read-only views over students and attendance.
type ReportService struct {
	students StudentRepository
	log      AttendanceLog
	sessions *session.Registry
}

func NewReportService(students StudentRepository, log AttendanceLog, sessions *session.Registry) *ReportService {
	return &ReportService{students: students, log: log, sessions: sessions}
}

func (s *ReportService) ListStudents(ctx context.Context) ([]domain.Student, error) {
	students, err := s.students.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list students: %w", err)
	}
	return students, nil
}

func (s *ReportService) ListAttendance(ctx context.Context, filter domain.AttendanceFilter) ([]domain.AttendanceEvent, error) {
	events, err := s.log.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list attendance: %w", err)
	}
	return events, nil
}

// Dashboard summarises the day of now. Absent counts registered students
// without a login today.
func (s *ReportService) Dashboard(ctx context.Context, now time.Time) (*Dashboard, error) {
	today := now.Format(domain.DateLayout)

	students, err := s.students.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list students: %w", err)
	}
	events, err := s.log.List(ctx, domain.AttendanceFilter{Date: today})
	if err != nil {
		return nil, fmt.Errorf("list attendance: %w", err)
	}

	present := make(map[int64]struct{}, len(events))
	last := NoAttendanceYet
	for _, ev := range events {
		present[ev.StudentID] = struct{}{}
		last = ev.LoginTime
	}

	absent := 0
	for _, st := range students {
		if _, ok := present[st.ID]; !ok {
			absent++
		}
	}

	return &Dashboard{
		Date:            today,
		TotalRegistered: len(students),
		PresentToday:    len(present),
		AbsentToday:     absent,
		LastLoginTime:   last,
		ActiveSessions:  s.sessions.Count(),
	}, nil
}

// ExportAttendanceCSV writes every attendance event as CSV.
func (s *ReportService) ExportAttendanceCSV(ctx context.Context, w io.Writer) (int, error) {
	events, err := s.log.List(ctx, domain.AttendanceFilter{})
	if err != nil {
		return 0, fmt.Errorf("list attendance: %w", err)
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(exportHeader); err != nil {
		return 0, fmt.Errorf("write csv header: %w", err)
	}
	for _, ev := range events {
		if err := cw.Write([]string{
			strconv.FormatInt(ev.StudentID, 10),
			ev.Name,
			ev.LoginDate,
			ev.LoginTime,
			ev.LogoutDate,
			ev.LogoutTime,
		}); err != nil {
			return 0, fmt.Errorf("write csv row: %w", err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return 0, fmt.Errorf("flush csv: %w", err)
	}
	return len(events), nil
}
