package service

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"math"
	"sync"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/saturnino-fabrica-de-software/chamada/internal/domain"
	"github.com/saturnino-fabrica-de-software/chamada/internal/flatfile"
	"github.com/saturnino-fabrica-de-software/chamada/internal/ws"
)

type MockExtractor struct {
	mock.Mock
}

func (m *MockExtractor) Extract(ctx context.Context, image []byte) ([]float64, error) {
	args := m.Called(ctx, image)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]float64), args.Error(1)
}

// constExtractor returns the same vector for every image.
type constExtractor struct {
	vec []float64
}

func (e constExtractor) Extract(context.Context, []byte) ([]float64, error) {
	return e.vec, nil
}

type recordingBroadcaster struct {
	mu     sync.Mutex
	events []ws.EventType
}

func (r *recordingBroadcaster) Broadcast(eventType ws.EventType, _ interface{}) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, eventType)
}

func (r *recordingBroadcaster) Events() []ws.EventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]ws.EventType(nil), r.events...)
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []string
}

func (r *recordingNotifier) Notify(eventType string, _ interface{}) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, eventType)
}

type recordingArchive struct {
	saved map[int64]int
}

func (a *recordingArchive) Save(studentID int64, _ string, images []image.Image) ([]string, error) {
	if a.saved == nil {
		a.saved = make(map[int64]int)
	}
	a.saved[studentID] += len(images)
	return nil, nil
}

// unitAt returns a unit vector at Euclidean distance d from axis(0, dim).
func unitAt(d float64, dim int) []float64 {
	v := make([]float64, dim)
	v[0] = 1 - d*d/2
	v[1] = d * math.Sqrt(1-d*d/4)
	return v
}

// axis returns the unit vector along component i.
func axis(i, dim int) []float64 {
	v := make([]float64, dim)
	v[i] = 1
	return v
}

func photoBytes(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, imaging.Encode(&buf, imaging.New(64, 64, color.NRGBA{R: 200, G: 150, B: 120, A: 255}), imaging.PNG))
	return buf.Bytes()
}

func photos(t *testing.T, n int) [][]byte {
	out := make([][]byte, n)
	for i := range out {
		out[i] = photoBytes(t)
	}
	return out
}

type stores struct {
	students   *flatfile.StudentStore
	embeddings *flatfile.EmbeddingStore
	attendance *flatfile.AttendanceLog
}

func openStores(t *testing.T) stores {
	t.Helper()
	db, err := flatfile.Open(t.TempDir())
	require.NoError(t, err)
	return stores{students: db.Students, embeddings: db.Embeddings, attendance: db.Attendance}
}

func seedEmbedding(t *testing.T, s *flatfile.EmbeddingStore, id int64, name string, vec []float64) {
	t.Helper()
	require.NoError(t, s.Save(context.Background(), &domain.EmbeddingEntry{StudentID: id, Name: name, Embedding: vec}))
}
