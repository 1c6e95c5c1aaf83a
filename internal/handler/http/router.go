package http

import (
	"log/slog"

	"github.com/cmlabs-hris/hris-payroll-ledger/internal/domain/auth"
	"github.com/cmlabs-hris/hris-payroll-ledger/internal/domain/user"
	"github.com/cmlabs-hris/hris-payroll-ledger/internal/handler/http/middleware"
	"github.com/cmlabs-hris/hris-payroll-ledger/internal/pkg/jwt"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httplog/v3"
	"github.com/go-chi/jwtauth/v5"
)

type RouterConfig struct {
	Logger         *slog.Logger
	LogLevel       slog.Level
	AllowedOrigins []string
}

func NewRouter(
	cfg RouterConfig,
	JWTService jwt.Service,
	authorizer auth.Authorizer,
	payrollHandler PayrollHandler,
	rewardHandler RewardHandler,
) *chi.Mux {
	r := chi.NewRouter()

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowCredentials: true,
		AllowedMethods:   []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link"},
		MaxAge:           300,
	}))

	r.Use(httplog.RequestLogger(logger, &httplog.Options{
		Level:  cfg.LogLevel,
		Schema: httplog.SchemaECS,
	}))

	r.Use(chiMiddleware.AllowContentEncoding("application/json"))
	r.Use(chiMiddleware.CleanPath)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Heartbeat("/"))

	r.Route("/api/v1", func(r chi.Router) {
		// Requires authentication
		r.Group(func(r chi.Router) {
			r.Use(jwtauth.Verifier(JWTService.JWTAuth()))
			r.Use(middleware.AuthRequired)

			r.Route("/payroll-ledger", func(r chi.Router) {
				r.Get("/", payrollHandler.ListEntries)
				r.Get("/stats", payrollHandler.GetStats)
				r.Get("/{employeeId}", payrollHandler.GetLedger)

				r.Group(func(r chi.Router) {
					r.Use(middleware.RequirePermission(authorizer, user.PermissionPayrollUpdateStatus))
					r.Put("/{employeeId}/status", payrollHandler.UpdateStatus)
					r.Put("/entries/{entryId}/status", payrollHandler.UpdateStatusByRef)
				})

				r.With(middleware.RequirePermission(authorizer, user.PermissionPayrollCreate)).
					Post("/", payrollHandler.CreateEntry)
			})

			r.Route("/rewards", func(r chi.Router) {
				r.Use(middleware.RequirePermission(authorizer, user.PermissionRewardPostBonus))
				r.Post("/bonuses", rewardHandler.PostBonus)
			})
		})
	})
	return r
}
