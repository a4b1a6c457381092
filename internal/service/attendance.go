package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/saturnino-fabrica-de-software/chamada/internal/audit"
	"github.com/saturnino-fabrica-de-software/chamada/internal/domain"
	"github.com/saturnino-fabrica-de-software/chamada/internal/imageutil"
	"github.com/saturnino-fabrica-de-software/chamada/internal/matcher"
	"github.com/saturnino-fabrica-de-software/chamada/internal/metrics"
	"github.com/saturnino-fabrica-de-software/chamada/internal/session"
	"github.com/saturnino-fabrica-de-software/chamada/internal/ws"
)

type LoginResult struct {
	Event    domain.AttendanceEvent `json:"event"`
	Distance float64                `json:"distance"`
}

// AttendanceService marks students in and out by face.
type AttendanceService struct {
	embeddings EmbeddingStore
	log        AttendanceLog
	extractor  Extractor
	matcher    *matcher.Matcher
	sessions   *session.Registry
	obs        Observers
	now        func() time.Time
}

func NewAttendanceService(
	embeddings EmbeddingStore,
	log AttendanceLog,
	extractor Extractor,
	m *matcher.Matcher,
	sessions *session.Registry,
	obs Observers,
) *AttendanceService {
	return &AttendanceService{
		embeddings: embeddings,
		log:        log,
		extractor:  extractor,
		matcher:    m,
		sessions:   sessions,
		obs:        obs.withDefaults(),
		now:        time.Now,
	}
}

func (s *AttendanceService) WithClock(now func() time.Time) *AttendanceService {
	s.now = now
	return s
}

// Login identifies the face in image and appends an attendance event.
// Nothing is written unless the nearest student is within the threshold.
func (s *AttendanceService) Login(ctx context.Context, image []byte) (*LoginResult, error) {
	res, err := s.login(ctx, image)
	s.recordLogin(ctx, res, err)
	return res, err
}

func (s *AttendanceService) login(ctx context.Context, image []byte) (*LoginResult, error) {
	photo, err := imageutil.Decode(image)
	if err != nil {
		return nil, err
	}

	vec, err := s.extractor.Extract(ctx, photo.JPEG)
	if err != nil {
		return nil, err
	}

	entries, err := s.embeddings.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load embeddings: %w", err)
	}
	if len(entries) == 0 {
		return nil, domain.ErrNoEnrolledStudents
	}

	best, ok := s.matcher.Match(vec, entries)
	if !best.Found {
		return nil, domain.ErrDimensionMismatch.WithError(
			fmt.Errorf("query has %d dimensions, store has %d", len(vec), len(entries[0].Embedding)))
	}
	s.obs.Metrics.ObserveMatchDistance(best.Distance)
	if !ok {
		return nil, domain.UnknownAt(best.Distance)
	}

	at := s.now()
	ev := domain.NewAttendanceEvent(best.StudentID, best.Name, at)
	if err := s.log.Append(ctx, &ev); err != nil {
		return nil, fmt.Errorf("append attendance: %w", err)
	}
	s.sessions.Open(best.StudentID, best.Name, at)

	return &LoginResult{Event: ev, Distance: best.Distance}, nil
}

func (s *AttendanceService) recordLogin(ctx context.Context, res *LoginResult, err error) {
	if err == nil {
		s.obs.Metrics.RecordOutcome(metrics.OpLogin, domain.StatusOK)
		s.obs.Metrics.SetActiveSessions(s.sessions.Count())
		s.obs.audit(ctx, audit.Event{
			EventType: audit.EventAttendanceLogin,
			StudentID: res.Event.StudentID,
			Name:      res.Event.Name,
			Success:   true,
			Distance:  audit.Distance(res.Distance),
		})
		s.obs.broadcast(ws.EventAttendanceLogin, res)
		s.obs.notify(ws.EventAttendanceLogin, res)
		return
	}

	var appErr *domain.AppError
	if !errors.As(err, &appErr) {
		s.obs.Metrics.RecordOutcome(metrics.OpLogin, domain.StatusError)
		return
	}
	s.obs.Metrics.RecordOutcome(metrics.OpLogin, appErr.Status)

	if appErr.Status == domain.StatusUnknown {
		s.obs.audit(ctx, audit.Event{
			EventType: audit.EventLoginUnknown,
			Success:   false,
			Distance:  appErr.Distance,
		})
	}
}

// Logout closes the most recent open event of the student.
func (s *AttendanceService) Logout(ctx context.Context, studentID int64) (*domain.AttendanceEvent, error) {
	if studentID <= 0 {
		return nil, domain.ErrValidationFailed.WithError(errors.New("student_id must be positive"))
	}

	ev, err := s.log.CloseLatestOpen(ctx, studentID, s.now())
	if err != nil {
		s.obs.Metrics.RecordOutcome(metrics.OpLogout, domain.StatusError)
		if errors.Is(err, domain.ErrNoActiveSession) {
			return nil, err
		}
		return nil, fmt.Errorf("close attendance: %w", err)
	}

	s.sessions.Close(studentID)

	s.obs.Metrics.RecordOutcome(metrics.OpLogout, domain.StatusOK)
	s.obs.Metrics.SetActiveSessions(s.sessions.Count())
	s.obs.audit(ctx, audit.Event{
		EventType: audit.EventAttendanceLogout,
		StudentID: ev.StudentID,
		Name:      ev.Name,
		Success:   true,
	})
	s.obs.broadcast(ws.EventAttendanceLogout, ev)
	s.obs.notify(ws.EventAttendanceLogout, ev)

	return ev, nil
}

// RebuildSessions restores the registry from the persisted open events.
func (s *AttendanceService) RebuildSessions(ctx context.Context) (int, error) {
	open, err := s.log.ListOpen(ctx)
	if err != nil {
		return 0, fmt.Errorf("list open attendance: %w", err)
	}
	n := s.sessions.Rebuild(open, time.Local)
	s.obs.Metrics.SetActiveSessions(n)
	return n, nil
}

func (s *AttendanceService) ActiveSessions() []session.Session {
	return s.sessions.Active()
}
