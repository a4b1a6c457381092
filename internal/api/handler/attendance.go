package handler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/saturnino-fabrica-de-software/chamada/internal/domain"
	"github.com/saturnino-fabrica-de-software/chamada/internal/imageutil"
	"github.com/saturnino-fabrica-de-software/chamada/internal/service"
	"github.com/saturnino-fabrica-de-software/chamada/internal/session"
)

// AttendanceService interface for the service
type AttendanceService interface {
	Login(ctx context.Context, image []byte) (*service.LoginResult, error)
	Logout(ctx context.Context, studentID int64) (*domain.AttendanceEvent, error)
	ActiveSessions() []session.Session
}

// AttendanceHandler handles login, logout and session requests
type AttendanceHandler struct {
	service AttendanceService
	logger  *slog.Logger
}

// NewAttendanceHandler creates a new AttendanceHandler instance
func NewAttendanceHandler(service AttendanceService, logger *slog.Logger) *AttendanceHandler {
	return &AttendanceHandler{
		service: service,
		logger:  logger,
	}
}

// LoginResponse response for the login endpoints
type LoginResponse struct {
	Status    string  `json:"status"`
	Message   string  `json:"message"`
	StudentID int64   `json:"student_id"`
	Name      string  `json:"name"`
	Distance  float64 `json:"distance"`
	LoginDate string  `json:"login_date"`
	LoginTime string  `json:"login_time"`
}

// LogoutResponse response for the logout endpoint
type LogoutResponse struct {
	Status     string `json:"status"`
	Message    string `json:"message"`
	StudentID  int64  `json:"student_id"`
	Name       string `json:"name"`
	LogoutDate string `json:"logout_date"`
	LogoutTime string `json:"logout_time"`
}

// SessionResponse is one entry of GET /api/sessions
type SessionResponse struct {
	StudentID int64  `json:"student_id"`
	Name      string `json:"name"`
	LoginAt   string `json:"login_at"`
}

// Login POST /api/login - mark present from a camera capture
func (h *AttendanceHandler) Login(c *fiber.Ctx) error {
	var req LoginRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	raw, err := imageutil.DecodeDataURI(req.Image)
	if err != nil {
		return err
	}

	return h.login(c, raw)
}

// LoginFile POST /api/login_file - mark present from an uploaded photo
func (h *AttendanceHandler) LoginFile(c *fiber.Ctx) error {
	fh, err := c.FormFile("image")
	if err != nil {
		return domain.ErrValidationFailed.WithError(err)
	}

	raw, err := readUpload(fh)
	if err != nil {
		return err
	}

	return h.login(c, raw)
}

func (h *AttendanceHandler) login(c *fiber.Ctx, image []byte) error {
	result, err := h.service.Login(c.UserContext(), image)
	if err != nil {
		return err
	}

	ev := result.Event
	return c.JSON(LoginResponse{
		Status:    domain.StatusOK,
		Message:   fmt.Sprintf("Welcome %s", ev.Name),
		StudentID: ev.StudentID,
		Name:      ev.Name,
		Distance:  result.Distance,
		LoginDate: ev.LoginDate,
		LoginTime: ev.LoginTime,
	})
}

// Logout POST /api/logout - close the latest open attendance event
func (h *AttendanceHandler) Logout(c *fiber.Ctx) error {
	var req LogoutRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	ev, err := h.service.Logout(c.UserContext(), int64(req.StudentID))
	if err != nil {
		return err
	}

	return c.JSON(LogoutResponse{
		Status:     domain.StatusOK,
		Message:    fmt.Sprintf("Goodbye %s", ev.Name),
		StudentID:  ev.StudentID,
		Name:       ev.Name,
		LogoutDate: ev.LogoutDate,
		LogoutTime: ev.LogoutTime,
	})
}

// Sessions GET /api/sessions - students currently logged in
func (h *AttendanceHandler) Sessions(c *fiber.Ctx) error {
	active := h.service.ActiveSessions()

	sessions := make([]SessionResponse, len(active))
	for i, s := range active {
		sessions[i] = SessionResponse{
			StudentID: s.StudentID,
			Name:      s.Name,
			LoginAt:   s.LoginAt.Format(time.RFC3339),
		}
	}

	return c.JSON(fiber.Map{
		"status":   domain.StatusOK,
		"sessions": sessions,
	})
}
