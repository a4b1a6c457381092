package face

import (
	"context"
	"fmt"

	"github.com/saturnino-fabrica-de-software/chamada/internal/config"
	"github.com/saturnino-fabrica-de-software/chamada/internal/provider"
	"github.com/saturnino-fabrica-de-software/chamada/internal/provider/deepface"
	"github.com/saturnino-fabrica-de-software/chamada/internal/provider/mock"
	"github.com/saturnino-fabrica-de-software/chamada/internal/provider/rekognition"
)

// ProviderType defines supported embedding providers
type ProviderType string

const (
	// ProviderTypeDeepFace is the DeepFace HTTP API
	ProviderTypeDeepFace ProviderType = "deepface"
	// ProviderTypeMock is the deterministic in-process provider for dev/test
	ProviderTypeMock ProviderType = "mock"
)

// DetectorType defines supported detection gates
type DetectorType string

const (
	DetectorTypeNone        DetectorType = "none"
	DetectorTypeRekognition DetectorType = "rekognition"
)

// NewEmbedder creates the embedding provider selected by FACE_PROVIDER.
func NewEmbedder(cfg *config.Config) (provider.Embedder, error) {
	switch ProviderType(cfg.FaceProvider) {
	case ProviderTypeDeepFace, "":
		return createDeepFaceProvider(cfg), nil
	case ProviderTypeMock:
		return mock.New(), nil
	default:
		return nil, fmt.Errorf("unknown provider type: %s (supported: %s, %s)",
			cfg.FaceProvider, ProviderTypeDeepFace, ProviderTypeMock)
	}
}

// NewDetector creates the optional detection gate selected by FACE_DETECTOR.
// It returns nil when no gate is configured.
func NewDetector(ctx context.Context, cfg *config.Config) (provider.Detector, error) {
	switch DetectorType(cfg.FaceDetector) {
	case DetectorTypeNone, "":
		return nil, nil
	case DetectorTypeRekognition:
		d, err := rekognition.NewDetector(ctx, rekognition.Config{Region: cfg.AWSRegion})
		if err != nil {
			return nil, fmt.Errorf("create rekognition detector: %w", err)
		}
		return d, nil
	default:
		return nil, fmt.Errorf("unknown detector type: %s (supported: %s, %s)",
			cfg.FaceDetector, DetectorTypeNone, DetectorTypeRekognition)
	}
}

// NewExtractorFromConfig wires embedder, detector and limits from configuration.
func NewExtractorFromConfig(ctx context.Context, cfg *config.Config, opts ...ExtractorOption) (*Extractor, error) {
	embedder, err := NewEmbedder(cfg)
	if err != nil {
		return nil, err
	}

	detector, err := NewDetector(ctx, cfg)
	if err != nil {
		return nil, err
	}

	base := []ExtractorOption{
		WithTimeout(cfg.ExtractionTimeout),
		WithMinConfidence(cfg.DetectionMinConfidence),
	}
	if detector != nil {
		base = append(base, WithDetector(detector))
	}

	return NewExtractor(embedder, append(base, opts...)...), nil
}

// createDeepFaceProvider creates a DeepFace provider instance
func createDeepFaceProvider(cfg *config.Config) *deepface.Provider {
	deepfaceConfig := deepface.DefaultConfig()
	if cfg.DeepFaceURL != "" {
		deepfaceConfig.BaseURL = cfg.DeepFaceURL
	}
	if cfg.DeepFaceModel != "" {
		deepfaceConfig.Model = cfg.DeepFaceModel
	}
	if cfg.DeepFaceDetector != "" {
		deepfaceConfig.Detector = cfg.DeepFaceDetector
	}
	if cfg.ExtractionTimeout > 0 {
		deepfaceConfig.Timeout = cfg.ExtractionTimeout
	}

	return deepface.NewProvider(deepfaceConfig)
}
