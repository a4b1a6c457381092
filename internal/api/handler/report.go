package handler

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/saturnino-fabrica-de-software/chamada/internal/domain"
	"github.com/saturnino-fabrica-de-software/chamada/internal/service"
)

// ReportService interface for the service
type ReportService interface {
	ListStudents(ctx context.Context) ([]domain.Student, error)
	ListAttendance(ctx context.Context, filter domain.AttendanceFilter) ([]domain.AttendanceEvent, error)
	Dashboard(ctx context.Context, now time.Time) (*service.Dashboard, error)
	ExportAttendanceCSV(ctx context.Context, w io.Writer) (int, error)
}

// ReportHandler serves the read-only views over students and attendance
type ReportHandler struct {
	service ReportService
	logger  *slog.Logger
	now     func() time.Time
}

// NewReportHandler creates a new ReportHandler instance
func NewReportHandler(service ReportService, logger *slog.Logger) *ReportHandler {
	return &ReportHandler{
		service: service,
		logger:  logger,
		now:     time.Now,
	}
}

// DashboardResponse response for the dashboard endpoint
type DashboardResponse struct {
	Status string `json:"status"`
	*service.Dashboard
}

// Registered GET /api/registered - registered students
func (h *ReportHandler) Registered(c *fiber.Ctx) error {
	students, err := h.service.ListStudents(c.UserContext())
	if err != nil {
		return err
	}
	if students == nil {
		students = []domain.Student{}
	}

	return c.JSON(fiber.Map{
		"status":     domain.StatusOK,
		"registered": students,
	})
}

// Attendance GET /api/attendance - attendance rows, optionally filtered
func (h *ReportHandler) Attendance(c *fiber.Ctx) error {
	filter := domain.AttendanceFilter{Date: strings.TrimSpace(c.Query("date"))}

	if raw := strings.TrimSpace(c.Query("student_id")); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id <= 0 {
			return domain.ErrValidationFailed.WithMessage("student_id must be a positive integer")
		}
		filter.StudentID = id
	}

	rows, err := h.service.ListAttendance(c.UserContext(), filter)
	if err != nil {
		return err
	}
	if rows == nil {
		rows = []domain.AttendanceEvent{}
	}

	return c.JSON(fiber.Map{
		"status": domain.StatusOK,
		"rows":   rows,
	})
}

// Dashboard GET /api/dashboard - today's summary
func (h *ReportHandler) Dashboard(c *fiber.Ctx) error {
	d, err := h.service.Dashboard(c.UserContext(), h.now())
	if err != nil {
		return err
	}

	return c.JSON(DashboardResponse{Status: domain.StatusOK, Dashboard: d})
}

// ExportCSV GET /export_csv - attendance table as a CSV attachment
func (h *ReportHandler) ExportCSV(c *fiber.Ctx) error {
	var buf bytes.Buffer
	n, err := h.service.ExportAttendanceCSV(c.UserContext(), &buf)
	if err != nil {
		return err
	}

	h.logger.Debug("attendance exported", slog.Int("rows", n))

	c.Set(fiber.HeaderContentType, "text/csv; charset=utf-8")
	c.Set(fiber.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", "attendance.csv"))
	return c.Send(buf.Bytes())
}
