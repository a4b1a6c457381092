package face

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/saturnino-fabrica-de-software/chamada/internal/domain"
	"github.com/saturnino-fabrica-de-software/chamada/internal/matcher"
	"github.com/saturnino-fabrica-de-software/chamada/internal/metrics"
	"github.com/saturnino-fabrica-de-software/chamada/internal/provider"
)

const DefaultTimeout = 30 * time.Second

// Extractor turns a JPEG frame into a unit-norm face embedding.
type Extractor struct {
	embedder      provider.Embedder
	detector      provider.Detector
	minConfidence float64
	timeout       time.Duration
	metrics       *metrics.Metrics
}

type ExtractorOption func(*Extractor)

// WithDetector runs a separate face detector before the embedder.
func WithDetector(d provider.Detector) ExtractorOption {
	return func(e *Extractor) {
		e.detector = d
	}
}

// WithMinConfidence rejects faces reported below the given confidence.
func WithMinConfidence(c float64) ExtractorOption {
	return func(e *Extractor) {
		e.minConfidence = c
	}
}

func WithTimeout(d time.Duration) ExtractorOption {
	return func(e *Extractor) {
		if d > 0 {
			e.timeout = d
		}
	}
}

func WithMetrics(m *metrics.Metrics) ExtractorOption {
	return func(e *Extractor) {
		e.metrics = m
	}
}

func NewExtractor(embedder provider.Embedder, opts ...ExtractorOption) *Extractor {
	e := &Extractor{
		embedder: embedder,
		timeout:  DefaultTimeout,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Extract returns the normalised embedding of the first face in image.
// It fails with domain.ErrNoFaceDetected when no acceptable face is found.
func (e *Extractor) Extract(ctx context.Context, image []byte) ([]float64, error) {
	start := time.Now()
	vec, err := e.extract(ctx, image)
	e.metrics.ObserveExtraction(time.Since(start), extractionResult(err))
	return vec, err
}

func (e *Extractor) extract(ctx context.Context, image []byte) ([]float64, error) {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	if e.detector != nil {
		faces, err := e.detector.DetectFaces(ctx, image)
		if err != nil {
			return nil, fmt.Errorf("detect faces: %w", err)
		}
		if !e.hasAcceptableFace(faces) {
			return nil, domain.ErrNoFaceDetected
		}
	}

	rep, err := e.embedder.Represent(ctx, image)
	if err != nil {
		if errors.Is(err, provider.ErrNoFace) {
			return nil, domain.ErrNoFaceDetected.WithError(err)
		}
		return nil, fmt.Errorf("represent face: %w", err)
	}

	if rep.Face.Confidence > 0 && rep.Face.Confidence < e.minConfidence {
		return nil, domain.ErrNoFaceDetected.WithError(
			fmt.Errorf("face confidence %.2f below %.2f", rep.Face.Confidence, e.minConfidence))
	}

	if matcher.Norm(rep.Embedding) == 0 {
		return nil, domain.ErrInvalidEmbedding
	}

	return matcher.Normalize(rep.Embedding), nil
}

func (e *Extractor) hasAcceptableFace(faces []provider.DetectedFace) bool {
	for _, f := range faces {
		if f.Confidence >= e.minConfidence {
			return true
		}
	}
	return false
}

func extractionResult(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, domain.ErrNoFaceDetected):
		return "no_face"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	default:
		return "error"
	}
}
