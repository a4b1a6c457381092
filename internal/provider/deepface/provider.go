package deepface

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/saturnino-fabrica-de-software/chamada/internal/provider"
)

// Provider implements provider.Embedder and provider.Detector using the DeepFace API
type Provider struct {
	client *Client
}

// NewProvider creates a new DeepFace provider
func NewProvider(config Config) *Provider {
	return &Provider{
		client: NewClient(config),
	}
}

// Represent returns the embedding of the first face DeepFace finds in a JPEG image.
func (p *Provider) Represent(ctx context.Context, image []byte) (*provider.Representation, error) {
	resp, err := p.client.Represent(ctx, toDataURI(image))
	if err != nil {
		return nil, fmt.Errorf("represent: %w", mapError(err))
	}

	if len(resp.Results) == 0 {
		return nil, fmt.Errorf("represent: %w", provider.ErrNoFace)
	}

	result := resp.Results[0]
	if len(result.Embedding) == 0 {
		return nil, fmt.Errorf("represent: %w", ErrNoFaceInResponse)
	}

	return &provider.Representation{
		Embedding: result.Embedding,
		Face:      toDetectedFace(result),
	}, nil
}

// DetectFaces reports every face DeepFace finds; the embeddings are discarded.
func (p *Provider) DetectFaces(ctx context.Context, image []byte) ([]provider.DetectedFace, error) {
	resp, err := p.client.Represent(ctx, toDataURI(image))
	if err != nil {
		if errors.Is(mapError(err), provider.ErrNoFace) {
			return []provider.DetectedFace{}, nil
		}
		return nil, fmt.Errorf("detect faces: %w", err)
	}

	faces := make([]provider.DetectedFace, 0, len(resp.Results))
	for _, result := range resp.Results {
		faces = append(faces, toDetectedFace(result))
	}

	return faces, nil
}

func toDetectedFace(r RepresentResult) provider.DetectedFace {
	return provider.DetectedFace{
		BoundingBox: provider.BoundingBox{
			X:      float64(r.FacialArea.X),
			Y:      float64(r.FacialArea.Y),
			Width:  float64(r.FacialArea.W),
			Height: float64(r.FacialArea.H),
		},
		Confidence: r.FaceConfidence,
	}
}

func toDataURI(image []byte) string {
	return "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(image)
}

// mapError turns DeepFace's "Face could not be detected" rejection into provider.ErrNoFace.
func mapError(err error) error {
	var statusErr *StatusError
	if errors.As(err, &statusErr) && statusErr.StatusCode == http.StatusBadRequest &&
		strings.Contains(strings.ToLower(statusErr.Body), "could not be detected") {
		return fmt.Errorf("%w: %v", provider.ErrNoFace, err)
	}
	return err
}

var (
	_ provider.Embedder = (*Provider)(nil)
	_ provider.Detector = (*Provider)(nil)
)
