package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/PrettySolution/driver-infrastructure/report"
)

// API serves the report routes.
type API struct {
	reports  *report.Service
	logger   *zap.Logger
	validate *validator.Validate
}

// New creates the HTTP binding over the report facade.
func New(reports *report.Service, logger *zap.Logger) *API {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &API{
		reports:  reports,
		logger:   logger,
		validate: validator.New(),
	}
}

// Router assembles the /api/reports routes behind the identity middleware.
func (a *API) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(a.requestLogger)
	r.Route("/api/reports", func(r chi.Router) {
		r.Use(CallerIdentity)
		r.Post("/", a.createReport)
		r.Get("/", a.listReports)
		r.Get("/{key}", a.getReport)
		r.Put("/{key}", a.updateReport)
		r.Delete("/{key}", a.deleteReport)
	})
	return r
}

func (a *API) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		a.logger.Info("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Duration("took", time.Since(start)),
		)
	})
}
