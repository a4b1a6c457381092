package rekognition

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/service/rekognition"
	"github.com/aws/aws-sdk-go-v2/service/rekognition/types"

	"github.com/saturnino-fabrica-de-software/chamada/internal/provider"
)

const (
	// maxImageSize is the maximum image size supported by AWS Rekognition (5MB)
	maxImageSize = 5 * 1024 * 1024
	// minImageSize is the minimum image size for valid processing
	minImageSize = 100
)

// Detector implements provider.Detector using AWS Rekognition DetectFaces.
// Rekognition does not expose embeddings, so it only serves as a detection gate.
type Detector struct {
	api DetectFacesAPI
}

var _ provider.Detector = (*Detector)(nil)

// NewDetector creates a detector backed by a real Rekognition client.
func NewDetector(ctx context.Context, cfg Config) (*Detector, error) {
	client, err := NewClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create rekognition client: %w", err)
	}
	return NewDetectorWithAPI(client), nil
}

// NewDetectorWithAPI wraps any DetectFacesAPI implementation.
func NewDetectorWithAPI(api DetectFacesAPI) *Detector {
	return &Detector{api: api}
}

// validateImage checks if image data is valid for Rekognition processing
func validateImage(image []byte) error {
	if len(image) < minImageSize {
		return fmt.Errorf("%w: image too small (%d bytes, minimum %d)", ErrInvalidImage, len(image), minImageSize)
	}
	if len(image) > maxImageSize {
		return fmt.Errorf("%w: image too large (%d bytes, maximum %d)", ErrInvalidImage, len(image), maxImageSize)
	}
	return nil
}

// DetectFaces detects faces in an image using AWS Rekognition DetectFaces API
// Returns an empty slice if no faces are detected (not an error)
func (d *Detector) DetectFaces(ctx context.Context, image []byte) ([]provider.DetectedFace, error) {
	if err := validateImage(image); err != nil {
		return nil, err
	}

	input := &rekognition.DetectFacesInput{
		Image: &types.Image{
			Bytes: image,
		},
		Attributes: []types.Attribute{types.AttributeDefault},
	}

	output, err := d.api.DetectFaces(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("detect faces: %w", mapAPIError(err))
	}

	faces := make([]provider.DetectedFace, 0, len(output.FaceDetails))
	for _, detail := range output.FaceDetails {
		face := provider.DetectedFace{}
		if detail.BoundingBox != nil {
			face.BoundingBox = provider.BoundingBox{
				X:      float64(deref(detail.BoundingBox.Left)),
				Y:      float64(deref(detail.BoundingBox.Top)),
				Width:  float64(deref(detail.BoundingBox.Width)),
				Height: float64(deref(detail.BoundingBox.Height)),
			}
		}
		// Rekognition reports confidence as a percentage
		face.Confidence = float64(deref(detail.Confidence)) / 100
		faces = append(faces, face)
	}

	return faces, nil
}

func deref(v *float32) float32 {
	if v == nil {
		return 0
	}
	return *v
}
