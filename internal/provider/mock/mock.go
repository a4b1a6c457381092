package mock

import (
	"context"
	"crypto/sha256"
	"math"

	"github.com/saturnino-fabrica-de-software/chamada/internal/provider"
)

const (
	embeddingDimension = 512
	// imagens menores que isso são tratadas como "sem face"
	minImageSize = 100
)

// Provider implementa provider.Embedder e provider.Detector para testes e desenvolvimento.
// Imagens idênticas produzem o mesmo embedding; imagens distintas ficam distantes entre si.
type Provider struct{}

// New cria uma nova instância do MockProvider
func New() *Provider {
	return &Provider{}
}

// DetectFaces simula detecção de faces
func (p *Provider) DetectFaces(ctx context.Context, image []byte) ([]provider.DetectedFace, error) {
	if len(image) < minImageSize {
		return []provider.DetectedFace{}, nil
	}

	return []provider.DetectedFace{mockFace()}, nil
}

// Represent gera embedding determinístico baseado no hash da imagem
func (p *Provider) Represent(ctx context.Context, image []byte) (*provider.Representation, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(image) < minImageSize {
		return nil, provider.ErrNoFace
	}

	return &provider.Representation{
		Embedding: generateEmbedding(image),
		Face:      mockFace(),
	}, nil
}

func mockFace() provider.DetectedFace {
	return provider.DetectedFace{
		BoundingBox: provider.BoundingBox{X: 0.1, Y: 0.1, Width: 0.8, Height: 0.8},
		Confidence:  0.99,
	}
}

// generateEmbedding gera embedding determinístico baseado no hash da imagem
func generateEmbedding(image []byte) []float64 {
	hash := sha256.Sum256(image)
	embedding := make([]float64, embeddingDimension)

	// re-hash a cada bloco de 32 bytes para não repetir o mesmo padrão
	block := hash
	for i := 0; i < embeddingDimension; i++ {
		idx := i % len(block)
		if i > 0 && idx == 0 {
			block = sha256.Sum256(block[:])
		}
		embedding[i] = (float64(block[idx])/255.0)*2 - 1
	}

	norm := 0.0
	for _, v := range embedding {
		norm += v * v
	}
	norm = math.Sqrt(norm)

	for i := range embedding {
		embedding[i] /= norm
	}

	return embedding
}

var (
	_ provider.Embedder = (*Provider)(nil)
	_ provider.Detector = (*Provider)(nil)
)
