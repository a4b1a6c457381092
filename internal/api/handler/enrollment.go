package handler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/saturnino-fabrica-de-software/chamada/internal/domain"
	"github.com/saturnino-fabrica-de-software/chamada/internal/imageutil"
	"github.com/saturnino-fabrica-de-software/chamada/internal/service"
)

var validImageTypes = map[string]bool{
	"image/jpeg":               true,
	"image/png":                true,
	"image/webp":               true,
	"image/gif":                true,
	"image/bmp":                true,
	"image/tiff":               true,
	"application/octet-stream": true,
}

// EnrollmentService interface for the service
type EnrollmentService interface {
	Enroll(ctx context.Context, req service.EnrollRequest) (*service.EnrollResult, error)
}

// EnrollmentHandler handles student enrollment requests
type EnrollmentHandler struct {
	service EnrollmentService
	logger  *slog.Logger
}

// NewEnrollmentHandler creates a new EnrollmentHandler instance
func NewEnrollmentHandler(service EnrollmentService, logger *slog.Logger) *EnrollmentHandler {
	return &EnrollmentHandler{
		service: service,
		logger:  logger,
	}
}

// EnrollResponse response for the enroll endpoints
type EnrollResponse struct {
	Status        string `json:"status"`
	Message       string `json:"message"`
	StudentID     int64  `json:"student_id"`
	Name          string `json:"name"`
	ImagesUsed    int    `json:"images_used"`
	ImagesSkipped int    `json:"images_skipped"`
}

// Enroll POST /api/enroll - enroll from camera captures sent as data URIs
func (h *EnrollmentHandler) Enroll(c *fiber.Ctx) error {
	var req EnrollRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	images := make([][]byte, len(req.Images))
	for i, uri := range req.Images {
		raw, err := imageutil.DecodeDataURI(uri)
		if err != nil {
			// nil segue para o serviço, que conta a captura como ignorada
			h.logger.Warn("skipping undecodable capture",
				slog.Int64("student_id", int64(req.StudentID)),
				slog.Int("index", i),
				slog.Any("error", err),
			)
			continue
		}
		images[i] = raw
	}

	return h.enroll(c, service.EnrollRequest{
		StudentID: int64(req.StudentID),
		Name:      req.Name,
		Course:    req.Course,
		Section:   req.Section,
		Room:      req.Room,
		Images:    images,
	})
}

// EnrollFiles POST /api/enroll_files - enroll from uploaded photos
func (h *EnrollmentHandler) EnrollFiles(c *fiber.Ctx) error {
	var id StudentID
	if err := id.parse(c.FormValue("student_id")); err != nil {
		return domain.ErrValidationFailed.WithError(err)
	}

	form, err := c.MultipartForm()
	if err != nil {
		return domain.ErrValidationFailed.WithError(err)
	}

	files := form.File["files"]
	if len(files) == 0 {
		files = form.File["files[]"]
	}
	if len(files) == 0 {
		return domain.ErrValidationFailed.WithError(errors.New("at least one file is required"))
	}

	images := make([][]byte, 0, len(files))
	for _, fh := range files {
		raw, err := readUpload(fh)
		if err != nil {
			h.logger.Warn("skipping unreadable upload",
				slog.String("filename", fh.Filename),
				slog.Any("error", err),
			)
		}
		images = append(images, raw)
	}

	return h.enroll(c, service.EnrollRequest{
		StudentID: int64(id),
		Name:      strings.TrimSpace(c.FormValue("name")),
		Course:    strings.TrimSpace(c.FormValue("course")),
		Section:   strings.TrimSpace(c.FormValue("section")),
		Room:      strings.TrimSpace(c.FormValue("room")),
		Images:    images,
	})
}

func (h *EnrollmentHandler) enroll(c *fiber.Ctx, req service.EnrollRequest) error {
	result, err := h.service.Enroll(c.UserContext(), req)
	if err != nil {
		return err
	}

	return c.Status(fiber.StatusCreated).JSON(EnrollResponse{
		Status:        domain.StatusOK,
		Message:       fmt.Sprintf("Enrolled %s", result.Student.Name),
		StudentID:     result.Student.ID,
		Name:          result.Student.Name,
		ImagesUsed:    result.ImagesUsed,
		ImagesSkipped: result.ImagesSkipped,
	})
}

// readUpload returns the bytes of one multipart file, bounded by the
// raw image limit. The decoder downstream decides whether it is an image.
func readUpload(fh *multipart.FileHeader) ([]byte, error) {
	if fh.Size == 0 {
		return nil, domain.ErrInvalidImage.WithError(errors.New("empty file"))
	}
	if fh.Size > imageutil.MaxImageSize {
		return nil, domain.ErrInvalidImage.WithError(fmt.Errorf("file too large (%d bytes)", fh.Size))
	}
	if ct := fh.Header.Get("Content-Type"); ct != "" && !validImageTypes[ct] {
		return nil, domain.ErrInvalidImage.WithError(fmt.Errorf("unsupported content type %q", ct))
	}

	f, err := fh.Open()
	if err != nil {
		return nil, domain.ErrInvalidImage.WithError(err)
	}
	defer func() {
		_ = f.Close()
	}()

	raw, err := io.ReadAll(f)
	if err != nil {
		return nil, domain.ErrInvalidImage.WithError(err)
	}
	return raw, nil
}
