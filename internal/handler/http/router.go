package http

import (
	"log/slog"

	"github.com/cmlabs-hris/attendance-engine/internal/domain/user"
	"github.com/cmlabs-hris/attendance-engine/internal/handler/http/middleware"
	"github.com/cmlabs-hris/attendance-engine/internal/pkg/jwt"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httplog/v3"
	"github.com/go-chi/jwtauth/v5"
)

type RouterOptions struct {
	AllowedOrigins []string
	Logger         *slog.Logger
	LogLevel       slog.Level
}

func NewRouter(opts RouterOptions, JWTService jwt.Service, attendanceHandler AttendanceHandler, reportHandler ReportHandler, anomalyHandler AnomalyHandler) *chi.Mux {
	r := chi.NewRouter()

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   opts.AllowedOrigins,
		AllowCredentials: true,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Content-Disposition", "Retry-After"},
		MaxAge:           300,
	}))

	if opts.Logger != nil {
		r.Use(httplog.RequestLogger(opts.Logger, &httplog.Options{
			Level:  opts.LogLevel,
			Schema: httplog.SchemaECS,
		}))
	}

	r.Use(chiMiddleware.CleanPath)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Heartbeat("/"))

	r.Route("/api/v1/attendance", func(r chi.Router) {

		// EventSource clients cannot set headers, so the stream also accepts ?jwt=
		r.Group(func(r chi.Router) {
			r.Use(jwtauth.Verify(JWTService.JWTAuth(), jwtauth.TokenFromHeader, jwtauth.TokenFromQuery))
			r.Use(middleware.AuthRequired)
			r.Use(middleware.RequireManager)
			r.With(middleware.RequirePermission(user.PermissionAttendanceHealth)).
				Get("/health/stream", anomalyHandler.Stream)
		})

		// Requires authentication
		r.Group(func(r chi.Router) {
			r.Use(jwtauth.Verifier(JWTService.JWTAuth()))
			r.Use(middleware.AuthRequired)

			// Self service
			r.Group(func(r chi.Router) {
				r.Use(middleware.RequirePermission(user.PermissionAttendanceViewOwn))
				r.Get("/today-status", attendanceHandler.TodayStatus)
				r.Get("/daily-summary", attendanceHandler.DailySummary)
				r.Get("/monthly-summary", attendanceHandler.MonthlySummary)
				r.With(middleware.RequirePermission(user.PermissionReportsExportOwn)).
					Get("/monthly-summary/export", reportHandler.ExportMonthlyReport)
			})

			// Manager or owner
			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireManager)
				r.With(middleware.RequirePermission(user.PermissionAttendanceHealth)).
					Get("/health", anomalyHandler.Health)

				r.Route("/admin", func(r chi.Router) {
					r.Group(func(r chi.Router) {
						r.Use(middleware.RequirePermission(user.PermissionAttendanceViewAll))
						r.Get("/users/{userID}/monthly-summary", attendanceHandler.UserMonthlySummary)
						r.Get("/summary", attendanceHandler.MultiUserSummary)
					})

					r.Group(func(r chi.Router) {
						r.Use(middleware.RequirePermission(user.PermissionReportsExportAll))
						r.Get("/export", reportHandler.ExportMultiUserReport)
						r.Get("/punch-log/export", reportHandler.ExportPunchLog)
					})

					r.Group(func(r chi.Router) {
						r.Use(middleware.RequirePermission(user.PermissionAttendanceCorrect))
						r.Post("/corrections", attendanceHandler.RecordCorrection)
						r.Post("/anomalies/scan", anomalyHandler.Scan)
					})
				})
			})
		})
	})
	return r
}
