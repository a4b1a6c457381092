// Package imageutil decodes camera frames and uploads into a normalised JPEG
// suitable for the face model and the capture archive.
package imageutil

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"strings"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/webp"

	"github.com/saturnino-fabrica-de-software/chamada/internal/domain"
)

const (
	// MaxImageSize caps raw uploads (10MB)
	MaxImageSize = 10 * 1024 * 1024
	// maxDimension bounds the longest side sent to the model
	maxDimension = 1600
	jpegQuality  = 90
)

// Photo is a decoded image plus its JPEG re-encoding.
type Photo struct {
	Image image.Image
	JPEG  []byte
}

// DecodeDataURI extracts the payload of "data:<mime>;base64,<payload>".
// A bare base64 string without the header is accepted too.
func DecodeDataURI(s string) ([]byte, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, domain.ErrInvalidImage.WithError(errors.New("empty image"))
	}

	payload := s
	if strings.HasPrefix(s, "data:") {
		idx := strings.IndexByte(s, ',')
		if idx < 0 {
			return nil, domain.ErrInvalidImage.WithError(errors.New("malformed data URI"))
		}
		payload = s[idx+1:]
	}

	raw, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, domain.ErrInvalidImage.WithError(fmt.Errorf("decode base64: %w", err))
	}
	return raw, nil
}

// Decode parses jpeg, png, gif, bmp, tiff or webp bytes, applies EXIF
// orientation, bounds the size and re-encodes as JPEG.
func Decode(raw []byte) (*Photo, error) {
	if len(raw) == 0 {
		return nil, domain.ErrInvalidImage.WithError(errors.New("empty image"))
	}
	if len(raw) > MaxImageSize {
		return nil, domain.ErrInvalidImage.WithError(fmt.Errorf("image too large (%d bytes, maximum %d)", len(raw), MaxImageSize))
	}

	img, err := imaging.Decode(bytes.NewReader(raw), imaging.AutoOrientation(true))
	if err != nil {
		return nil, domain.ErrInvalidImage.WithError(err)
	}

	b := img.Bounds()
	if b.Dx() == 0 || b.Dy() == 0 {
		return nil, domain.ErrInvalidImage.WithError(errors.New("image has no pixels"))
	}
	if b.Dx() > maxDimension || b.Dy() > maxDimension {
		img = imaging.Fit(img, maxDimension, maxDimension, imaging.Lanczos)
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(jpegQuality)); err != nil {
		return nil, fmt.Errorf("encode jpeg: %w", err)
	}

	return &Photo{Image: img, JPEG: buf.Bytes()}, nil
}
