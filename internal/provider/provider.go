package provider

import (
	"context"
	"errors"
)

// ErrNoFace is returned by providers when the image holds no detectable face.
var ErrNoFace = errors.New("no face detected")

// Embedder turns an image into a face embedding.
type Embedder interface {
	// Represent extrai o embedding da primeira face encontrada na imagem
	Represent(ctx context.Context, image []byte) (*Representation, error)
}

// Detector locates faces without producing embeddings.
type Detector interface {
	// DetectFaces detecta faces na imagem; slice vazio quando nenhuma face é encontrada
	DetectFaces(ctx context.Context, image []byte) ([]DetectedFace, error)
}

// Representation is the embedding of one face plus where it was found.
type Representation struct {
	Embedding []float64
	Face      DetectedFace
}

// DetectedFace represents a detected face in the image
type DetectedFace struct {
	BoundingBox BoundingBox `json:"bounding_box"`
	// Confidence is in [0,1]. Zero means the provider did not report one.
	Confidence float64 `json:"confidence"`
}

// BoundingBox represents the face area in the image
type BoundingBox struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}
