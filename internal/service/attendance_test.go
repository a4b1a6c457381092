package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/saturnino-fabrica-de-software/chamada/internal/domain"
	"github.com/saturnino-fabrica-de-software/chamada/internal/matcher"
	"github.com/saturnino-fabrica-de-software/chamada/internal/session"
	"github.com/saturnino-fabrica-de-software/chamada/internal/ws"
)

func newAttendance(t *testing.T, st stores, ext Extractor, obs Observers) (*AttendanceService, *session.Registry) {
	t.Helper()
	sessions := session.NewRegistry(time.Hour)
	svc := NewAttendanceService(st.embeddings, st.attendance, ext, matcher.New(), sessions, obs)
	return svc, sessions
}

func attendanceCount(t *testing.T, st stores) int {
	t.Helper()
	events, err := st.attendance.List(context.Background(), domain.AttendanceFilter{})
	require.NoError(t, err)
	return len(events)
}

func TestAttendanceService_Login_PicksNearest(t *testing.T) {
	st := openStores(t)
	seedEmbedding(t, st.embeddings, 1, "Ana", unitAt(0.2, dim))
	seedEmbedding(t, st.embeddings, 2, "Bruno", unitAt(0.9, dim))

	events := &recordingBroadcaster{}
	hooks := &recordingNotifier{}
	svc, sessions := newAttendance(t, st, constExtractor{vec: axis(0, dim)}, Observers{Events: events, Webhooks: hooks})

	at := time.Date(2024, 5, 1, 8, 15, 0, 0, time.Local)
	svc.WithClock(func() time.Time { return at })

	res, err := svc.Login(context.Background(), photoBytes(t))
	require.NoError(t, err)

	assert.Equal(t, int64(1), res.Event.StudentID)
	assert.Equal(t, "Ana", res.Event.Name)
	assert.InDelta(t, 0.2, res.Distance, 1e-9)
	assert.Equal(t, "2024-05-01", res.Event.LoginDate)
	assert.Equal(t, "08:15:00", res.Event.LoginTime)
	assert.True(t, res.Event.IsOpen())

	assert.Equal(t, 1, attendanceCount(t, st))
	_, active := sessions.Get(1)
	assert.True(t, active)

	assert.Equal(t, []ws.EventType{ws.EventAttendanceLogin}, events.Events())
	assert.Equal(t, []string{"attendance.login"}, hooks.events)
}

func TestAttendanceService_Login_Unknown(t *testing.T) {
	st := openStores(t)
	seedEmbedding(t, st.embeddings, 2, "Bruno", unitAt(0.9, dim))

	svc, sessions := newAttendance(t, st, constExtractor{vec: axis(0, dim)}, Observers{})

	_, err := svc.Login(context.Background(), photoBytes(t))
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrUnknownFace)

	var appErr *domain.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, domain.StatusUnknown, appErr.Status)
	require.NotNil(t, appErr.Distance)
	assert.InDelta(t, 0.9, *appErr.Distance, 1e-9)

	assert.Zero(t, attendanceCount(t, st), "unknown face writes no event")
	assert.Zero(t, sessions.Count())
}

func TestAttendanceService_Login_EmptyStore(t *testing.T) {
	st := openStores(t)
	svc, _ := newAttendance(t, st, constExtractor{vec: axis(0, dim)}, Observers{})

	_, err := svc.Login(context.Background(), photoBytes(t))
	assert.ErrorIs(t, err, domain.ErrNoEnrolledStudents)
	assert.False(t, errors.Is(err, domain.ErrUnknownFace))
}

func TestAttendanceService_Login_NoFace(t *testing.T) {
	st := openStores(t)
	seedEmbedding(t, st.embeddings, 1, "Ana", axis(0, dim))

	ext := new(MockExtractor)
	ext.On("Extract", mock.Anything, mock.Anything).Return(nil, domain.ErrNoFaceDetected)
	svc, _ := newAttendance(t, st, ext, Observers{})

	_, err := svc.Login(context.Background(), photoBytes(t))
	assert.ErrorIs(t, err, domain.ErrNoFaceDetected)
	assert.Zero(t, attendanceCount(t, st))
}

func TestAttendanceService_Login_InvalidImage(t *testing.T) {
	st := openStores(t)
	ext := new(MockExtractor)
	svc, _ := newAttendance(t, st, ext, Observers{})

	_, err := svc.Login(context.Background(), []byte("garbage"))
	assert.ErrorIs(t, err, domain.ErrInvalidImage)
	ext.AssertNotCalled(t, "Extract", mock.Anything, mock.Anything)
}

func TestAttendanceService_Login_DimensionMismatch(t *testing.T) {
	st := openStores(t)
	seedEmbedding(t, st.embeddings, 1, "Ana", axis(0, dim))

	svc, _ := newAttendance(t, st, constExtractor{vec: axis(0, dim*2)}, Observers{})

	_, err := svc.Login(context.Background(), photoBytes(t))
	assert.ErrorIs(t, err, domain.ErrDimensionMismatch)
}

func TestAttendanceService_LoginLogoutLogout(t *testing.T) {
	st := openStores(t)
	seedEmbedding(t, st.embeddings, 7, "Caio", axis(0, dim))

	events := &recordingBroadcaster{}
	svc, sessions := newAttendance(t, st, constExtractor{vec: axis(0, dim)}, Observers{Events: events})
	ctx := context.Background()

	_, err := svc.Login(ctx, photoBytes(t))
	require.NoError(t, err)

	ev, err := svc.Logout(ctx, 7)
	require.NoError(t, err)
	assert.False(t, ev.IsOpen())
	assert.Equal(t, "Caio", ev.Name)

	_, active := sessions.Get(7)
	assert.False(t, active)

	_, err = svc.Logout(ctx, 7)
	assert.ErrorIs(t, err, domain.ErrNoActiveSession)

	assert.Equal(t, []ws.EventType{ws.EventAttendanceLogin, ws.EventAttendanceLogout}, events.Events())
}

func TestAttendanceService_Logout_InvalidID(t *testing.T) {
	st := openStores(t)
	svc, _ := newAttendance(t, st, constExtractor{}, Observers{})

	_, err := svc.Logout(context.Background(), 0)
	assert.ErrorIs(t, err, domain.ErrValidationFailed)
}

func TestAttendanceService_RebuildSessions(t *testing.T) {
	st := openStores(t)
	ctx := context.Background()
	now := time.Now()

	open := domain.NewAttendanceEvent(1, "Ana", now.Add(-time.Minute))
	closed := domain.NewAttendanceEvent(2, "Bruno", now.Add(-2*time.Minute))
	closed.Close(now)
	require.NoError(t, st.attendance.Append(ctx, &open))
	require.NoError(t, st.attendance.Append(ctx, &closed))

	svc, _ := newAttendance(t, st, constExtractor{}, Observers{})

	n, err := svc.RebuildSessions(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	active := svc.ActiveSessions()
	require.Len(t, active, 1)
	assert.Equal(t, int64(1), active[0].StudentID)
}
