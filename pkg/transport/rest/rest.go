// Package rest exposes the survey services over HTTP.
package rest

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/Koyo-os/docusurvey/internal/entity"
	"github.com/Koyo-os/docusurvey/internal/service"
	"github.com/Koyo-os/docusurvey/pkg/auth"
	"github.com/Koyo-os/docusurvey/pkg/logger"
	"github.com/Koyo-os/docusurvey/pkg/metrics"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

const (
	defaultMaxUploadBytes = 32 << 20
	maxJSONBodyBytes      = 1 << 20
)

type (
	Services struct {
		Surveys    *service.SurveyService
		Responses  *service.ResponseService
		Reports    *service.ReportService
		Dashboards *service.DashboardService
	}

	Handler struct {
		services  Services
		auth      *auth.Authenticator
		metrics   *metrics.Metrics
		health    http.HandlerFunc
		logger    *logger.Logger
		maxUpload int64
	}

	errorBody struct {
		Error string `json:"error"`
	}
)

// Init builds the handler. health and m may be nil.
func Init(services Services, authenticator *auth.Authenticator, m *metrics.Metrics, health http.HandlerFunc, logger *logger.Logger, maxUpload int64) *Handler {
	if maxUpload <= 0 {
		maxUpload = defaultMaxUploadBytes
	}

	return &Handler{
		services:  services,
		auth:      authenticator,
		metrics:   m,
		health:    health,
		logger:    logger,
		maxUpload: maxUpload,
	}
}

func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(h.observe)
	r.Use(h.auth.WithAuth)

	if h.health != nil {
		r.Get("/health", h.health)
	}
	if h.metrics != nil {
		r.Method(http.MethodGet, "/metrics", h.metrics.Handler())
	}

	r.Route("/fill/{surveyID}", func(r chi.Router) {
		r.Get("/", h.GetFillSurvey)
		r.With(middleware.RequestSize(maxJSONBodyBytes)).Post("/", h.SubmitResponse)
	})

	r.Route("/api", func(r chi.Router) {
		r.Use(auth.RequireAuth)

		r.Route("/surveys", func(r chi.Router) {
			r.Get("/", h.ListSurveys)
			r.Post("/", h.CreateSurvey)
			r.Delete("/{surveyID}", h.DeleteSurvey)
			r.Get("/{surveyID}/qr", h.QRCode)
			r.Post("/{surveyID}/physical", h.SubmitPhysicalResponse)
		})

		r.Get("/dashboard", h.Dashboard)
		r.Get("/reports", h.Report)
		r.Get("/reports/export", h.Export)
	})

	return r
}

// observe records request count and latency by route pattern.
func (h *Handler) observe(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}

		h.metrics.ObserveHTTP(r.Method, route, status, time.Since(start))
	})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(payload); err != nil {
		h.logger.Error("error encode response", zap.Error(err))
	}
}

// writeError maps the entity error kinds onto HTTP statuses.
func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := StatusFor(err)

	msg := err.Error()
	if status == http.StatusInternalServerError {
		h.logger.Error("request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.String("request_id", middleware.GetReqID(r.Context())),
			zap.Error(err))
		msg = "internal error"
	}

	h.writeJSON(w, status, errorBody{Error: msg})
}

func StatusFor(err error) int {
	switch {
	case errors.Is(err, entity.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, entity.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, entity.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, entity.ErrExpired):
		return http.StatusGone
	case errors.Is(err, entity.ErrUpload):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
