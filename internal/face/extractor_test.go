package face

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
	"github.com/saturnino-fabrica-de-software/chamada/internal/provider"
)

type mockEmbedder struct {
	mock.Mock
}

func (m *mockEmbedder) Represent(ctx context.Context, image []byte) (*provider.Representation, error) {
	args := m.Called(ctx, image)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*provider.Representation), args.Error(1)
}

type mockDetector struct {
	mock.Mock
}

func (m *mockDetector) DetectFaces(ctx context.Context, image []byte) ([]provider.DetectedFace, error) {
	args := m.Called(ctx, image)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]provider.DetectedFace), args.Error(1)
}

var frame = []byte("jpeg-frame")

func TestExtractor_NormalisesOutput(t *testing.T) {
	emb := new(mockEmbedder)
	emb.On("Represent", mock.Anything, frame).
		Return(&provider.Representation{Embedding: []float64{3, 4, 0}}, nil)

	vec, err := NewExtractor(emb).Extract(context.Background(), frame)

	require.NoError(t, err)
	assert.InDelta(t, 1.0, matcher.Norm(vec), 1e-12)
	assert.InDeltaSlice(t, []float64{0.6, 0.8, 0}, vec, 1e-12)
	emb.AssertExpectations(t)
}

func TestExtractor_NoFace(t *testing.T) {
	emb := new(mockEmbedder)
	emb.On("Represent", mock.Anything, frame).Return(nil, provider.ErrNoFace)

	_, err := NewExtractor(emb).Extract(context.Background(), frame)

	assert.ErrorIs(t, err, domain.ErrNoFaceDetected)
}

func TestExtractor_LowProviderConfidence(t *testing.T) {
	emb := new(mockEmbedder)
	emb.On("Represent", mock.Anything, frame).Return(&provider.Representation{
		Embedding: []float64{1, 0},
		Face:      provider.DetectedFace{Confidence: 0.3},
	}, nil)

	_, err := NewExtractor(emb, WithMinConfidence(0.5)).Extract(context.Background(), frame)

	assert.ErrorIs(t, err, domain.ErrNoFaceDetected)
}

func TestExtractor_ZeroVector(t *testing.T) {
	emb := new(mockEmbedder)
	emb.On("Represent", mock.Anything, frame).
		Return(&provider.Representation{Embedding: []float64{0, 0, 0}}, nil)

	_, err := NewExtractor(emb).Extract(context.Background(), frame)

	assert.ErrorIs(t, err, domain.ErrInvalidEmbedding)
}

func TestExtractor_ProviderFailureIsNotNoFace(t *testing.T) {
	emb := new(mockEmbedder)
	emb.On("Represent", mock.Anything, frame).Return(nil, errors.New("connection refused"))

	_, err := NewExtractor(emb).Extract(context.Background(), frame)

	require.Error(t, err)
	assert.NotErrorIs(t, err, domain.ErrNoFaceDetected)
}

func TestExtractor_DetectorGate(t *testing.T) {
	tests := []struct {
		name       string
		faces      []provider.DetectedFace
		wantNoFace bool
	}{
		{"no faces", []provider.DetectedFace{}, true},
		{"only weak faces", []provider.DetectedFace{{Confidence: 0.4}}, true},
		{"one confident face", []provider.DetectedFace{{Confidence: 0.4}, {Confidence: 0.95}}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			det := new(mockDetector)
			det.On("DetectFaces", mock.Anything, frame).Return(tt.faces, nil)

			emb := new(mockEmbedder)
			emb.On("Represent", mock.Anything, frame).
				Return(&provider.Representation{Embedding: []float64{1, 1}}, nil).Maybe()

			_, err := NewExtractor(emb, WithDetector(det), WithMinConfidence(0.9)).
				Extract(context.Background(), frame)

			if tt.wantNoFace {
				assert.ErrorIs(t, err, domain.ErrNoFaceDetected)
				emb.AssertNotCalled(t, "Represent", mock.Anything, mock.Anything)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestExtractor_Timeout(t *testing.T) {
	emb := new(mockEmbedder)
	emb.On("Represent", mock.Anything, frame).
		Run(func(args mock.Arguments) {
			ctx := args.Get(0).(context.Context)
			<-ctx.Done()
		}).
		Return(nil, context.DeadlineExceeded)

	start := time.Now()
	_, err := NewExtractor(emb, WithTimeout(20*time.Millisecond)).Extract(context.Background(), frame)

	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), time.Second)
}
