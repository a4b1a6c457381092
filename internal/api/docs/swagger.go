package docs

import (
	"github.com/go-swagno/swagno"
	"github.com/go-swagno/swagno/components/endpoint"
	"github.com/go-swagno/swagno/components/http/response"
	"github.com/go-swagno/swagno/components/mime"
	"github.com/go-swagno/swagno/components/parameter"
)

// EnrollResponse represents a successful enrollment
type EnrollResponse struct {
	Status        string `json:"status" example:"ok"`
	Message       string `json:"message" example:"Enrolled Ana Souza"`
	StudentID     int64  `json:"student_id" example:"101"`
	Name          string `json:"name" example:"Ana Souza"`
	ImagesUsed    int    `json:"images_used" example:"4"`
	ImagesSkipped int    `json:"images_skipped" example:"1"`
}

// LoginResponse represents a recognised login
type LoginResponse struct {
	Status    string  `json:"status" example:"ok"`
	Message   string  `json:"message" example:"Welcome Ana Souza"`
	StudentID int64   `json:"student_id" example:"101"`
	Name      string  `json:"name" example:"Ana Souza"`
	Distance  float64 `json:"distance" example:"0.31"`
	LoginDate string  `json:"login_date" example:"2024-05-01"`
	LoginTime string  `json:"login_time" example:"08:15:02"`
}

// LogoutResponse represents a closed attendance event
type LogoutResponse struct {
	Status     string `json:"status" example:"ok"`
	Message    string `json:"message" example:"Goodbye Ana Souza"`
	StudentID  int64  `json:"student_id" example:"101"`
	Name       string `json:"name" example:"Ana Souza"`
	LogoutDate string `json:"logout_date" example:"2024-05-01"`
	LogoutTime string `json:"logout_time" example:"12:01:44"`
}

// StudentData represents a registered student
type StudentData struct {
	StudentID int64  `json:"student_id" example:"101"`
	Name      string `json:"name" example:"Ana Souza"`
	Course    string `json:"course" example:"BSIT"`
	Section   string `json:"section" example:"A"`
	Room      string `json:"room" example:"301"`
	CreatedAt string `json:"created_at" example:"2024-05-01T08:00:00Z"`
}

// RegisteredResponse lists registered students
type RegisteredResponse struct {
	Status     string        `json:"status" example:"ok"`
	Registered []StudentData `json:"registered"`
}

// AttendanceRow represents one attendance event
type AttendanceRow struct {
	ID         string `json:"id" example:"550e8400-e29b-41d4-a716-446655440000"`
	StudentID  int64  `json:"student_id" example:"101"`
	Name       string `json:"name" example:"Ana Souza"`
	LoginDate  string `json:"login_date" example:"2024-05-01"`
	LoginTime  string `json:"login_time" example:"08:15:02"`
	LogoutDate string `json:"logout_date" example:""`
	LogoutTime string `json:"logout_time" example:""`
}

// AttendanceResponse lists attendance events
type AttendanceResponse struct {
	Status string          `json:"status" example:"ok"`
	Rows   []AttendanceRow `json:"rows"`
}

// DashboardResponse summarises today's attendance
type DashboardResponse struct {
	Status          string `json:"status" example:"ok"`
	Date            string `json:"date" example:"2024-05-01"`
	TotalRegistered int    `json:"total_registered" example:"30"`
	PresentToday    int    `json:"present_today" example:"27"`
	AbsentToday     int    `json:"absent_today" example:"3"`
	LastLoginTime   string `json:"last_login_time" example:"08:59:41"`
	ActiveSessions  int    `json:"active_sessions" example:"25"`
}

// SessionData represents an active session
type SessionData struct {
	StudentID int64  `json:"student_id" example:"101"`
	Name      string `json:"name" example:"Ana Souza"`
	LoginAt   string `json:"login_at" example:"2024-05-01T08:15:02-03:00"`
}

// SessionsResponse lists active sessions
type SessionsResponse struct {
	Status   string        `json:"status" example:"ok"`
	Sessions []SessionData `json:"sessions"`
}

// ErrorResponse represents the outcome envelope of a failed request
type ErrorResponse struct {
	Status  string `json:"status" example:"error"`
	Code    string `json:"code" example:"VALIDATION_FAILED"`
	Message string `json:"message" example:"Missing fields"`
}

// DuplicateResponse is returned when the face is already enrolled
type DuplicateResponse struct {
	Status  string `json:"status" example:"duplicate"`
	Code    string `json:"code" example:"DUPLICATE_FACE"`
	Message string `json:"message" example:"Already enrolled as Ana Souza"`
	Name    string `json:"name" example:"Ana Souza"`
}

// UnknownResponse is returned when no enrolled face is close enough
type UnknownResponse struct {
	Status   string  `json:"status" example:"unknown"`
	Code     string  `json:"code" example:"UNKNOWN_FACE"`
	Message  string  `json:"message" example:"No match found"`
	Distance float64 `json:"distance" example:"0.87"`
}

// HealthResponse represents liveness and readiness checks
type HealthResponse struct {
	Status  string `json:"status" example:"ok"`
	Version string `json:"version,omitempty" example:"0.1.0"`
}

var internalError = response.New(ErrorResponse{Status: "error", Code: "INTERNAL_ERROR", Message: "An unexpected error occurred"}, "500", "Internal Server Error")

// NewSwagger creates the Swagger documentation for the attendance API
func NewSwagger() *swagno.Swagger {
	sw := swagno.New(swagno.Config{
		Title:       "Chamada Attendance API",
		Version:     "v1.0.0",
		Description: "Face-recognition classroom attendance: enrollment, login/logout and reports",
		Host:        "localhost:3000",
		Path:        "/",
	})

	enrollErrors := []response.Response{
		response.New(ErrorResponse{Status: "error", Code: "VALIDATION_FAILED", Message: "Missing fields"}, "400", "Bad Request"),
		response.New(DuplicateResponse{}, "409", "Face or student already enrolled"),
		response.New(ErrorResponse{Status: "error", Code: "NO_VALID_FACE", Message: "No valid face detected"}, "422", "Unprocessable Entity"),
		internalError,
	}

	loginErrors := []response.Response{
		response.New(ErrorResponse{Status: "error", Code: "NO_ENROLLED_STUDENTS", Message: "No enrolled students"}, "400", "Bad Request"),
		response.New(ErrorResponse{Status: "error", Code: "NO_FACE_DETECTED", Message: "No face detected"}, "422", "Unprocessable Entity"),
		response.New(ErrorResponse{Status: "error", Code: "INVALID_IMAGE", Message: "Invalid image"}, "422", "Unprocessable Entity"),
		internalError,
	}

	endpoints := []*endpoint.EndPoint{
		// POST /api/enroll - Enroll from camera captures
		endpoint.New(
			endpoint.POST,
			"/api/enroll",
			endpoint.WithTags("Enrollment"),
			endpoint.WithSummary("Enroll a student from camera captures"),
			endpoint.WithDescription("Body: {student_id, name, course, section, room, images: [data URI]}. Images without a face are skipped; the stored reference is the normalised mean of the usable ones."),
			endpoint.WithConsume([]mime.MIME{mime.JSON}),
			endpoint.WithProduce([]mime.MIME{mime.JSON}),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(EnrollResponse{}, "201", "Student enrolled"),
			}),
			endpoint.WithErrors(enrollErrors),
		),
		// POST /api/enroll_files - Enroll from uploaded files
		endpoint.New(
			endpoint.POST,
			"/api/enroll_files",
			endpoint.WithTags("Enrollment"),
			endpoint.WithSummary("Enroll a student from uploaded photos"),
			endpoint.WithDescription("Multipart form with student_id, name, course, section, room and one or more files[]"),
			endpoint.WithConsume([]mime.MIME{mime.MIME("multipart/form-data")}),
			endpoint.WithProduce([]mime.MIME{mime.JSON}),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(EnrollResponse{}, "201", "Student enrolled"),
			}),
			endpoint.WithErrors(enrollErrors),
		),
		// POST /api/login - Attendance login from a camera capture
		endpoint.New(
			endpoint.POST,
			"/api/login",
			endpoint.WithTags("Attendance"),
			endpoint.WithSummary("Mark a student present"),
			endpoint.WithDescription("Body: {image: data URI}. An unknown face answers 200 with status \"unknown\" and writes nothing."),
			endpoint.WithConsume([]mime.MIME{mime.JSON}),
			endpoint.WithProduce([]mime.MIME{mime.JSON}),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(LoginResponse{}, "200", "Login recorded"),
				response.New(UnknownResponse{}, "200", "Face not recognised"),
			}),
			endpoint.WithErrors(loginErrors),
		),
		// POST /api/login_file - Attendance login from an uploaded photo
		endpoint.New(
			endpoint.POST,
			"/api/login_file",
			endpoint.WithTags("Attendance"),
			endpoint.WithSummary("Mark a student present from an uploaded photo"),
			endpoint.WithDescription("Multipart form with a single image field"),
			endpoint.WithConsume([]mime.MIME{mime.MIME("multipart/form-data")}),
			endpoint.WithProduce([]mime.MIME{mime.JSON}),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(LoginResponse{}, "200", "Login recorded"),
				response.New(UnknownResponse{}, "200", "Face not recognised"),
			}),
			endpoint.WithErrors(loginErrors),
		),
		// POST /api/logout - Close the latest open event
		endpoint.New(
			endpoint.POST,
			"/api/logout",
			endpoint.WithTags("Attendance"),
			endpoint.WithSummary("Log a student out"),
			endpoint.WithDescription("Body: {student_id}. Closes the most recent open attendance event of the student."),
			endpoint.WithConsume([]mime.MIME{mime.JSON}),
			endpoint.WithProduce([]mime.MIME{mime.JSON}),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(LogoutResponse{}, "200", "Logout recorded"),
			}),
			endpoint.WithErrors([]response.Response{
				response.New(ErrorResponse{Status: "error", Code: "VALIDATION_FAILED", Message: "Missing fields"}, "400", "Bad Request"),
				response.New(ErrorResponse{Status: "error", Code: "NO_ACTIVE_SESSION", Message: "No active session found"}, "404", "Not Found"),
				internalError,
			}),
		),
		// GET /api/sessions - Active sessions
		endpoint.New(
			endpoint.GET,
			"/api/sessions",
			endpoint.WithTags("Attendance"),
			endpoint.WithSummary("List students currently logged in"),
			endpoint.WithProduce([]mime.MIME{mime.JSON}),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(SessionsResponse{}, "200", "Active sessions"),
			}),
		),
		// GET /api/registered - Registered students
		endpoint.New(
			endpoint.GET,
			"/api/registered",
			endpoint.WithTags("Reports"),
			endpoint.WithSummary("List registered students"),
			endpoint.WithProduce([]mime.MIME{mime.JSON}),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(RegisteredResponse{}, "200", "Registered students"),
			}),
			endpoint.WithErrors([]response.Response{internalError}),
		),
		// GET /api/attendance - Attendance rows
		endpoint.New(
			endpoint.GET,
			"/api/attendance",
			endpoint.WithTags("Reports"),
			endpoint.WithSummary("List attendance events"),
			endpoint.WithProduce([]mime.MIME{mime.JSON}),
			endpoint.WithParams(
				parameter.StrParam("date", parameter.Query, parameter.WithDescription("Login date (YYYY-MM-DD)")),
				parameter.IntParam("student_id", parameter.Query, parameter.WithDescription("Only this student")),
			),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(AttendanceResponse{}, "200", "Attendance rows"),
			}),
			endpoint.WithErrors([]response.Response{
				response.New(ErrorResponse{Status: "error", Code: "VALIDATION_FAILED", Message: "date must be YYYY-MM-DD"}, "400", "Bad Request"),
				internalError,
			}),
		),
		// GET /api/dashboard - Today's summary
		endpoint.New(
			endpoint.GET,
			"/api/dashboard",
			endpoint.WithTags("Reports"),
			endpoint.WithSummary("Summarise today's attendance"),
			endpoint.WithProduce([]mime.MIME{mime.JSON}),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(DashboardResponse{}, "200", "Dashboard"),
			}),
			endpoint.WithErrors([]response.Response{internalError}),
		),
		// GET /export_csv - Attendance CSV download
		endpoint.New(
			endpoint.GET,
			"/export_csv",
			endpoint.WithTags("Reports"),
			endpoint.WithSummary("Download attendance as CSV"),
			endpoint.WithProduce([]mime.MIME{mime.MIME("text/csv")}),
			endpoint.WithErrors([]response.Response{internalError}),
		),
		// GET /health - Liveness
		endpoint.New(
			endpoint.GET,
			"/health",
			endpoint.WithTags("Health"),
			endpoint.WithSummary("Liveness check"),
			endpoint.WithProduce([]mime.MIME{mime.JSON}),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(HealthResponse{Status: "ok"}, "200", "Alive"),
			}),
		),
		// GET /ready - Readiness
		endpoint.New(
			endpoint.GET,
			"/ready",
			endpoint.WithTags("Health"),
			endpoint.WithSummary("Readiness check"),
			endpoint.WithDescription("Reports whether the configured storage backend is reachable"),
			endpoint.WithProduce([]mime.MIME{mime.JSON}),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(HealthResponse{Status: "ready"}, "200", "Ready"),
			}),
			endpoint.WithErrors([]response.Response{
				response.New(HealthResponse{Status: "unavailable"}, "503", "Storage unavailable"),
			}),
		),
	}

	sw.AddEndpoints(endpoints)

	return sw
}
