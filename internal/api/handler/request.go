package handler

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/saturnino-fabrica-de-software/chamada/internal/domain"
)

var validate = validator.New()

// StudentID aceita o id como número JSON ou como string numérica,
// que é como os formulários da câmera o enviam.
type StudentID int64

func (id *StudentID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*id = 0
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		return id.parse(s)
	}
	return id.parse(string(b))
}

func (id *StudentID) parse(s string) error {
	s = strings.TrimSpace(s)
	if s == "" {
		*id = 0
		return nil
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return fmt.Errorf("student_id must be an integer, got %q", s)
	}
	*id = StudentID(n)
	return nil
}

// EnrollRequest is the JSON body of POST /api/enroll
type EnrollRequest struct {
	StudentID StudentID `json:"student_id" validate:"gt=0"`
	Name      string    `json:"name" validate:"required"`
	Course    string    `json:"course"`
	Section   string    `json:"section"`
	Room      string    `json:"room"`
	Images    []string  `json:"images" validate:"required,min=1"`
}

// LoginRequest is the JSON body of POST /api/login
type LoginRequest struct {
	Image string `json:"image" validate:"required"`
}

// LogoutRequest is the JSON body of POST /api/logout
type LogoutRequest struct {
	StudentID StudentID `json:"student_id" validate:"gt=0"`
}

func (r *EnrollRequest) normalize() {
	r.Name = strings.TrimSpace(r.Name)
	r.Course = strings.TrimSpace(r.Course)
	r.Section = strings.TrimSpace(r.Section)
	r.Room = strings.TrimSpace(r.Room)
}

type normalizer interface {
	normalize()
}

// bindAndValidate parses the JSON body into req and runs the validate tags.
func bindAndValidate(c *fiber.Ctx, req interface{}) error {
	if err := c.BodyParser(req); err != nil {
		return domain.ErrValidationFailed.WithError(err)
	}
	if n, ok := req.(normalizer); ok {
		n.normalize()
	}
	if err := validate.Struct(req); err != nil {
		return domain.ErrValidationFailed.WithError(err)
	}
	return nil
}
