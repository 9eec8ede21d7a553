package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"rentdapp/internal/config"
	"rentdapp/internal/metrics"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

// HTTPServer is the local API views use to dispatch actions and read state.
type HTTPServer struct {
	server *http.Server
	logger *zerolog.Logger
}

func NewHTTPServer(cfg config.APIConfig, h *Handlers, logger *zerolog.Logger) *HTTPServer {
	return &HTTPServer{
		server: &http.Server{
			Addr:              fmt.Sprintf(":%d", cfg.HTTP.Port),
			Handler:           NewRouter(cfg, h, logger),
			ReadHeaderTimeout: 5 * time.Second,
			WriteTimeout:      time.Minute,
		},
		logger: logger,
	}
}

func (s *HTTPServer) Start() error {
	s.logger.Info().Str("addr", s.server.Addr).Msg("HTTP API listening")
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *HTTPServer) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

// NewRouter builds the route tree. Health and metrics skip authentication.
func NewRouter(cfg config.APIConfig, h *Handlers, logger *zerolog.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(requestLogger(logger))
	if len(cfg.CORS.AllowedOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: cfg.CORS.AllowedOrigins,
			AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowedHeaders: []string{"Content-Type", newKeyring(cfg.Auth).header, requestIDKey},
			ExposedHeaders: []string{requestIDKey},
			MaxAge:         300,
		}))
	}

	r.Get("/healthz", h.Health)
	r.Handle("/metrics", promhttp.Handler())

	auth := NewHTTPAuth(cfg)
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(auth.Wrap)

		r.Get("/state", h.State)
		r.Get("/state/{slice}", h.StateSlice)
		r.Get("/actions", h.Actions)

		r.Post("/auth/login", h.Login)
		r.Post("/auth/register", h.Register)
		r.Post("/auth/logout", h.Logout)

		r.Post("/listings/query", h.QueryListings)
		r.Get("/properties/{id}", h.Property)
		r.Get("/properties/{id}/calendar", h.Calendar)
		r.Post("/quote", h.Quote)

		r.Post("/bookings", h.CreateBooking)
		r.Get("/bookings", h.MyBookings)
		r.Post("/bookings/export", h.ExportBookings)
		r.Post("/bookings/{id}/cancel", h.CancelBooking)
		r.Post("/bookings/{id}/check-in", h.CheckIn)
		r.Post("/bookings/{id}/check-out", h.CheckOut)

		r.Get("/payment", h.PaymentStatus)
		r.Post("/payment/start", h.StartPayment)
		r.Post("/payment/cancel", h.CancelPayment)
		r.Post("/payment/{step}", h.PaymentStep)
	})
	return r
}

func requestLogger(logger *zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			requestID := requestIDFromHeader(r.Header.Get(requestIDKey))
			w.Header().Set(requestIDKey, requestID)

			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			route := r.URL.Path
			if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
				route = rctx.RoutePattern()
			}
			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			metrics.IncHTTP(route, status)
			logger.Debug().
				Str("request_id", requestID).
				Str("method", r.Method).
				Str("route", route).
				Int("status", status).
				Dur("duration", time.Since(start)).
				Msg("http request")
		})
	}
}

func writeJSON(w http.ResponseWriter, statusCode int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, statusCode int, message string) {
	writeJSON(w, statusCode, map[string]string{"error": message})
}

func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(nil, r.Body, 1<<20))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("invalid JSON body: %w", err)
	}
	return nil
}
