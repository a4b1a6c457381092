package service

import (
	"context"
	"errors"
	"fmt"
	"image"
	"strconv"
	"strings"
	"sync"

	"github.com/saturnino-fabrica-de-software/chamada/internal/audit"
	"github.com/saturnino-fabrica-de-software/chamada/internal/domain"
	"github.com/saturnino-fabrica-de-software/chamada/internal/imageutil"
	"github.com/saturnino-fabrica-de-software/chamada/internal/matcher"
	"github.com/saturnino-fabrica-de-software/chamada/internal/metrics"
	"github.com/saturnino-fabrica-de-software/chamada/internal/ws"
)

const DefaultMaxEnrollImages = 10

type EnrollRequest struct {
	StudentID int64
	Name      string
	Course    string
	Section   string
	Room      string
	Images    [][]byte
}

type EnrollResult struct {
	Student       domain.Student `json:"student"`
	ImagesUsed    int            `json:"images_used"`
	ImagesSkipped int            `json:"images_skipped"`
}

// EnrollmentService registers a student from a handful of captures. The
// stored reference is the re-normalised mean of the usable captures.
type EnrollmentService struct {
	students   StudentRepository
	embeddings EmbeddingStore
	extractor  Extractor
	matcher    *matcher.Matcher
	archive    CaptureArchive
	obs        Observers
	maxImages  int

	// commit serialises the re-check and the writes of an enrollment.
	commit sync.Mutex
}

func NewEnrollmentService(
	students StudentRepository,
	embeddings EmbeddingStore,
	extractor Extractor,
	m *matcher.Matcher,
	obs Observers,
) *EnrollmentService {
	return &EnrollmentService{
		students:   students,
		embeddings: embeddings,
		extractor:  extractor,
		matcher:    m,
		obs:        obs.withDefaults(),
		maxImages:  DefaultMaxEnrollImages,
	}
}

func (s *EnrollmentService) WithMaxImages(n int) *EnrollmentService {
	if n > 0 {
		s.maxImages = n
	}
	return s
}

func (s *EnrollmentService) WithArchive(a CaptureArchive) *EnrollmentService {
	s.archive = a
	return s
}

func (s *EnrollmentService) Enroll(ctx context.Context, req EnrollRequest) (*EnrollResult, error) {
	req.Name = strings.TrimSpace(req.Name)
	if err := s.validate(req); err != nil {
		return nil, err
	}

	if err := s.checkNotEnrolled(ctx, req.StudentID); err != nil {
		return nil, s.reject(ctx, req, err)
	}

	entries, err := s.embeddings.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load embeddings: %w", err)
	}

	var (
		vectors  [][]float64
		captures []image.Image
		skipped  int
	)
	for i, raw := range req.Images {
		vec, photo, err := s.extractOne(ctx, raw)
		if photo != nil {
			captures = append(captures, photo)
		}
		if err != nil {
			if isSkippable(err) {
				s.obs.Logger.WarnContext(ctx, "skipping enrollment image",
					"student_id", req.StudentID, "image", i+1, "error", err)
				skipped++
				continue
			}
			return nil, fmt.Errorf("image %d: %w", i+1, err)
		}

		if res, ok := s.matcher.Match(vec, entries); ok {
			return nil, s.reject(ctx, req, duplicateAt(res))
		}

		vectors = append(vectors, vec)
	}

	if len(vectors) == 0 {
		return nil, s.reject(ctx, req, domain.ErrNoValidFace)
	}

	student, err := s.commitEnrollment(ctx, req, vectors, captures)
	if err != nil {
		return nil, s.reject(ctx, req, err)
	}

	result := &EnrollResult{Student: *student, ImagesUsed: len(vectors), ImagesSkipped: skipped}

	s.obs.Metrics.RecordOutcome(metrics.OpEnroll, domain.StatusOK)
	s.obs.audit(ctx, audit.Event{
		EventType: audit.EventStudentEnrolled,
		StudentID: student.ID,
		Name:      student.Name,
		Success:   true,
		Metadata: map[string]string{
			"images_used":    strconv.Itoa(result.ImagesUsed),
			"images_skipped": strconv.Itoa(result.ImagesSkipped),
		},
	})
	s.obs.broadcast(ws.EventStudentEnrolled, student)

	return result, nil
}

func (s *EnrollmentService) validate(req EnrollRequest) error {
	switch {
	case req.StudentID <= 0:
		return domain.ErrValidationFailed.WithError(errors.New("student_id must be positive"))
	case req.Name == "":
		return domain.ErrValidationFailed.WithError(errors.New("name is required"))
	case len(req.Images) == 0:
		return domain.ErrValidationFailed.WithError(errors.New("at least one image is required"))
	case len(req.Images) > s.maxImages:
		return domain.ErrValidationFailed.WithMessage(fmt.Sprintf("At most %d images per enrollment", s.maxImages))
	}
	return nil
}

func (s *EnrollmentService) checkNotEnrolled(ctx context.Context, studentID int64) error {
	existing, err := s.embeddings.Get(ctx, studentID)
	if err == nil {
		return domain.DuplicateOf(existing.Name)
	}
	if errors.Is(err, domain.ErrStudentNotFound) {
		return nil
	}
	return fmt.Errorf("get embedding: %w", err)
}

// extractOne returns the decoded capture even when extraction fails, so
// frames without a usable face still reach the archive.
func (s *EnrollmentService) extractOne(ctx context.Context, raw []byte) ([]float64, image.Image, error) {
	photo, err := imageutil.Decode(raw)
	if err != nil {
		return nil, nil, err
	}
	vec, err := s.extractor.Extract(ctx, photo.JPEG)
	if err != nil {
		return nil, photo.Image, err
	}
	return vec, photo.Image, nil
}

// commitEnrollment re-reads the store under the commit lock so two
// concurrent enrollments of the same face cannot both pass the check.
// Nothing stays written when the embedding cannot be saved.
func (s *EnrollmentService) commitEnrollment(ctx context.Context, req EnrollRequest, vectors [][]float64, captures []image.Image) (*domain.Student, error) {
	s.commit.Lock()
	defer s.commit.Unlock()

	if err := s.checkNotEnrolled(ctx, req.StudentID); err != nil {
		return nil, err
	}

	entries, err := s.embeddings.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("reload embeddings: %w", err)
	}
	for _, vec := range vectors {
		if res, ok := s.matcher.Match(vec, entries); ok {
			return nil, duplicateAt(res)
		}
	}

	entry := &domain.EmbeddingEntry{
		StudentID: req.StudentID,
		Name:      req.Name,
		Embedding: matcher.Normalize(matcher.Mean(vectors)),
	}
	if len(entries) > 0 && len(entries[0].Embedding) != len(entry.Embedding) {
		return nil, domain.ErrDimensionMismatch.WithError(
			fmt.Errorf("got %d, store has %d", len(entry.Embedding), len(entries[0].Embedding)))
	}

	registered, err := s.isRegistered(ctx, req.StudentID)
	if err != nil {
		return nil, err
	}

	student := &domain.Student{
		ID:      req.StudentID,
		Name:    req.Name,
		Course:  strings.TrimSpace(req.Course),
		Section: strings.TrimSpace(req.Section),
		Room:    strings.TrimSpace(req.Room),
	}
	if err := s.students.Upsert(ctx, student); err != nil {
		return nil, fmt.Errorf("upsert student: %w", err)
	}

	if err := s.embeddings.Save(ctx, entry); err != nil {
		if !registered {
			s.rollbackStudent(ctx, req.StudentID)
		}
		if errors.Is(err, domain.ErrEmbeddingExists) {
			return nil, domain.DuplicateOf(req.Name)
		}
		return nil, fmt.Errorf("save embedding: %w", err)
	}

	if s.archive != nil {
		if _, err := s.archive.Save(req.StudentID, req.Name, captures); err != nil {
			s.obs.Logger.WarnContext(ctx, "failed to archive captures", "student_id", req.StudentID, "error", err)
		}
	}

	s.obs.Metrics.SetEnrolledStudents(len(entries) + 1)
	return student, nil
}

// isRegistered reports whether the student row predates this enrollment,
// e.g. imported from a roster without an embedding.
func (s *EnrollmentService) isRegistered(ctx context.Context, studentID int64) (bool, error) {
	_, err := s.students.GetByID(ctx, studentID)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, domain.ErrStudentNotFound) {
		return false, nil
	}
	return false, fmt.Errorf("get student: %w", err)
}

func (s *EnrollmentService) rollbackStudent(ctx context.Context, studentID int64) {
	if err := s.students.Delete(ctx, studentID); err != nil {
		s.obs.Logger.ErrorContext(ctx, "failed to roll back student", "student_id", studentID, "error", err)
	}
}

// reject records a failed enrollment and passes err through.
func (s *EnrollmentService) reject(ctx context.Context, req EnrollRequest, err error) error {
	var appErr *domain.AppError
	if !errors.As(err, &appErr) {
		s.obs.Metrics.RecordOutcome(metrics.OpEnroll, domain.StatusError)
		return err
	}

	s.obs.Metrics.RecordOutcome(metrics.OpEnroll, appErr.Status)

	eventType := audit.EventEnrollRejected
	if appErr.Status == domain.StatusDuplicate {
		eventType = audit.EventEnrollDuplicate
	}
	s.obs.audit(ctx, audit.Event{
		EventType: eventType,
		StudentID: req.StudentID,
		Name:      req.Name,
		Success:   false,
		Distance:  appErr.Distance,
		Error:     appErr.Message,
	})
	return err
}

func duplicateAt(res matcher.Result) *domain.AppError {
	err := domain.DuplicateOf(res.Name)
	d := res.Distance
	err.Distance = &d
	return err
}

func isSkippable(err error) bool {
	return errors.Is(err, domain.ErrNoFaceDetected) || errors.Is(err, domain.ErrInvalidImage)
}
