package domain

import (
	"fmt"
)

// Outcome statuses reported to clients alongside the error code.
const (
	StatusOK        = "ok"
	StatusError     = "error"
	StatusDuplicate = "duplicate"
	StatusUnknown   = "unknown"
)

type AppError struct {
	Status     string `json:"status"`
	Code       string `json:"code"`
	Message    string `json:"message"`
	StatusCode int    `json:"-"`
	Err        error  `json:"-"`

	// Name e Distance acompanham os desfechos duplicate e unknown.
	Name     string   `json:"name,omitempty"`
	Distance *float64 `json:"distance,omitempty"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// Is matches any AppError carrying the same code, so derived copies
// still satisfy errors.Is against the predefined values.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

func (e *AppError) WithError(err error) *AppError {
	return &AppError{
		Status:     e.Status,
		Code:       e.Code,
		Message:    e.Message,
		StatusCode: e.StatusCode,
		Err:        err,
		Name:       e.Name,
		Distance:   e.Distance,
	}
}

func (e *AppError) WithMessage(msg string) *AppError {
	return &AppError{
		Status:     e.Status,
		Code:       e.Code,
		Message:    msg,
		StatusCode: e.StatusCode,
		Err:        e.Err,
		Name:       e.Name,
		Distance:   e.Distance,
	}
}

// Pre-defined errors
var (
	ErrInternal = &AppError{
		Status:     StatusError,
		Code:       "INTERNAL_ERROR",
		Message:    "An unexpected error occurred",
		StatusCode: 500,
	}

	ErrValidationFailed = &AppError{
		Status:     StatusError,
		Code:       "VALIDATION_FAILED",
		Message:    "Missing fields",
		StatusCode: 400,
	}

	ErrInvalidImage = &AppError{
		Status:     StatusError,
		Code:       "INVALID_IMAGE",
		Message:    "Invalid image format or corrupted file",
		StatusCode: 422,
	}

	// Recognition outcomes
	ErrNoFaceDetected = &AppError{
		Status:     StatusError,
		Code:       "NO_FACE_DETECTED",
		Message:    "No face detected",
		StatusCode: 422,
	}

	ErrNoValidFace = &AppError{
		Status:     StatusError,
		Code:       "NO_VALID_FACE",
		Message:    "No valid face detected",
		StatusCode: 422,
	}

	ErrDuplicateFace = &AppError{
		Status:     StatusDuplicate,
		Code:       "DUPLICATE_FACE",
		Message:    "Face already enrolled",
		StatusCode: 409,
	}

	ErrNoEnrolledStudents = &AppError{
		Status:     StatusError,
		Code:       "NO_ENROLLED_STUDENTS",
		Message:    "No enrolled students",
		StatusCode: 400,
	}

	ErrUnknownFace = &AppError{
		Status:     StatusUnknown,
		Code:       "UNKNOWN_FACE",
		Message:    "No match found",
		StatusCode: 200,
	}

	ErrNoActiveSession = &AppError{
		Status:     StatusError,
		Code:       "NO_ACTIVE_SESSION",
		Message:    "No active session found",
		StatusCode: 404,
	}

	// Storage errors
	ErrStudentNotFound = &AppError{
		Status:     StatusError,
		Code:       "STUDENT_NOT_FOUND",
		Message:    "Student not found",
		StatusCode: 404,
	}

	ErrEmbeddingExists = &AppError{
		Status:     StatusDuplicate,
		Code:       "EMBEDDING_EXISTS",
		Message:    "Student already has an enrolled embedding",
		StatusCode: 409,
	}

	ErrDimensionMismatch = &AppError{
		Status:     StatusError,
		Code:       "DIMENSION_MISMATCH",
		Message:    "Embedding dimension does not match enrolled population",
		StatusCode: 500,
	}

	ErrInvalidEmbedding = &AppError{
		Status:     StatusError,
		Code:       "INVALID_EMBEDDING",
		Message:    "Face model returned an invalid embedding",
		StatusCode: 502,
	}
)

// DuplicateOf builds the duplicate outcome naming the already enrolled student.
func DuplicateOf(name string) *AppError {
	err := ErrDuplicateFace.WithMessage(fmt.Sprintf("Already enrolled as %s", name))
	err.Name = name
	return err
}

// UnknownAt builds the unknown outcome carrying the nearest distance found.
func UnknownAt(distance float64) *AppError {
	err := ErrUnknownFace.WithMessage(ErrUnknownFace.Message)
	err.Distance = &distance
	return err
}
