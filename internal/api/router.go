package api

import (
	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/requestid"

	swagger "github.com/go-swagno/swagno-fiber/swagger"
	"github.com/saturnino-fabrica-de-software/chamada/internal/api/docs"
	"github.com/saturnino-fabrica-de-software/chamada/internal/api/handler"
	"github.com/saturnino-fabrica-de-software/chamada/internal/api/middleware"
	"github.com/saturnino-fabrica-de-software/chamada/internal/imageutil"
	"github.com/saturnino-fabrica-de-software/chamada/internal/metrics"
	"github.com/saturnino-fabrica-de-software/chamada/internal/ws"
)

// DefaultMaxEnrollImages bounds the request body when Dependencies leaves it unset.
const DefaultMaxEnrollImages = 10

type Dependencies struct {
	Enrollment handler.EnrollmentService
	Attendance handler.AttendanceService
	Reports    handler.ReportService
	Store      handler.Pinger
	Hub        *ws.Hub
	Metrics    *metrics.Metrics

	// MaxEnrollImages sizes the body limit: every capture may arrive
	// base64-encoded inside one JSON document.
	MaxEnrollImages int
}

type Router struct {
	app    *fiber.App
	logger *slog.Logger
	deps   *Dependencies
}

func NewRouter(logger *slog.Logger, deps *Dependencies) *Router {
	maxImages := DefaultMaxEnrollImages
	if deps != nil && deps.MaxEnrollImages > 0 {
		maxImages = deps.MaxEnrollImages
	}

	app := fiber.New(fiber.Config{
		ErrorHandler: middleware.ErrorHandler(logger),
		AppName:      "Chamada API",
		BodyLimit:    bodyLimit(maxImages),
	})

	return &Router{
		app:    app,
		logger: logger,
		deps:   deps,
	}
}

// bodyLimit fits maxImages raw images after base64 expansion plus form overhead.
func bodyLimit(maxImages int) int {
	return maxImages*imageutil.MaxImageSize*4/3 + 1024*1024
}

func (r *Router) Setup() {
	// Global middlewares
	r.app.Use(requestid.New())
	r.app.Use(middleware.Recover(r.logger))
	r.app.Use(middleware.Logger(r.logger))
	r.app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,OPTIONS",
		AllowHeaders: "Origin,Content-Type,Accept",
	}))

	// Swagger documentation
	sw := docs.NewSwagger()
	swagger.SwaggerHandler(r.app, sw.MustToJson())

	var store handler.Pinger
	if r.deps != nil {
		store = r.deps.Store
	}

	// Health check endpoints
	healthHandler := handler.NewHealthHandler(store, r.logger)
	r.app.Get("/health", healthHandler.Health)
	r.app.Get("/ready", healthHandler.Ready)

	// Only configure application routes if dependencies were provided
	if r.deps == nil {
		return
	}

	if r.deps.Metrics != nil {
		r.app.Get("/metrics", adaptor.HTTPHandler(r.deps.Metrics.Handler()))
	}

	apiGroup := r.app.Group("/api")

	if r.deps.Enrollment != nil {
		enrollmentHandler := handler.NewEnrollmentHandler(r.deps.Enrollment, r.logger)
		apiGroup.Post("/enroll", enrollmentHandler.Enroll)
		apiGroup.Post("/enroll_files", enrollmentHandler.EnrollFiles)
	}

	if r.deps.Attendance != nil {
		attendanceHandler := handler.NewAttendanceHandler(r.deps.Attendance, r.logger)
		apiGroup.Post("/login", attendanceHandler.Login)
		apiGroup.Post("/login_file", attendanceHandler.LoginFile)
		apiGroup.Post("/logout", attendanceHandler.Logout)
		apiGroup.Get("/sessions", attendanceHandler.Sessions)
	}

	if r.deps.Reports != nil {
		reportHandler := handler.NewReportHandler(r.deps.Reports, r.logger)
		apiGroup.Get("/registered", reportHandler.Registered)
		apiGroup.Get("/attendance", reportHandler.Attendance)
		apiGroup.Get("/dashboard", reportHandler.Dashboard)
		r.app.Get("/export_csv", reportHandler.ExportCSV)
	}

	// WebSocket endpoint
	if r.deps.Hub != nil {
		r.app.Get("/ws", ws.UpgradeMiddleware(), ws.Handler(r.deps.Hub))
	}
}

func (r *Router) App() *fiber.App {
	return r.app
}

func (r *Router) Listen(addr string) error {
	return r.app.Listen(addr)
}

// Shutdown stops accepting requests. The hub and webhook worker are owned
// by the caller and stop with its context.
func (r *Router) Shutdown() error {
	return r.app.Shutdown()
}
