// Package api serves the router over HTTP.
//
// Every route is a GET. Query parameters of /v1/data/{category} become the
// fetch parameters, except provider which selects the source. Credentials may
// be passed as X-Credential-<Field> headers; X-Credential-Api-Key supplies
// api_key.
package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/goccy/go-json"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"finrouter/internal/fetcher"
	"finrouter/internal/models"
	"finrouter/internal/router"
)

const credentialHeaderPrefix = "X-Credential-"

// Server exposes a router as an HTTP API
type Server struct {
	router *router.Router
	logger *slog.Logger
}

// New creates a server over r
func New(r *router.Router, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{router: r, logger: logger}
}

// Handler returns the routed handler of the API
func (s *Server) Handler() http.Handler {
	mux := chi.NewRouter()
	mux.Use(middleware.RequestID)
	mux.Use(middleware.Recoverer)
	mux.Use(s.logRequests)

	mux.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	mux.Handle("/metrics", promhttp.Handler())

	mux.Route("/v1", func(r chi.Router) {
		r.Get("/categories", s.listCategories)
		r.Get("/categories/{category}", s.describeCategory)
		r.Get("/providers", s.listProviders)
		r.Get("/providers/{provider}", s.describeProvider)
		r.Get("/data/{category}", s.fetch)
	})

	return mux
}

// DataResponse is the body of a successful data request
type DataResponse struct {
	Category string          `json:"category"`
	Provider string          `json:"provider"`
	Count    int             `json:"count"`
	Records  []models.Record `json:"records"`
}

// ErrorBody is the body of a failed request
type ErrorBody struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail carries the error kind and message
type ErrorDetail struct {
	Type     string `json:"type"`
	Provider string `json:"provider,omitempty"`
	Message  string `json:"message"`
}

func (s *Server) listCategories(w http.ResponseWriter, r *http.Request) {
	names := s.router.ListCategories()
	out := make([]router.CategoryInfo, 0, len(names))
	for _, name := range names {
		info, err := s.router.CategoryInfo(name)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		out = append(out, info)
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) describeCategory(w http.ResponseWriter, r *http.Request) {
	info, err := s.router.CategoryInfo(chi.URLParam(r, "category"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, info)
}

func (s *Server) listProviders(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.router.Providers())
}

func (s *Server) describeProvider(w http.ResponseWriter, r *http.Request) {
	info, err := s.router.ProviderInfo(chi.URLParam(r, "provider"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, info)
}

func (s *Server) fetch(w http.ResponseWriter, r *http.Request) {
	req := router.Request{
		Category:    chi.URLParam(r, "category"),
		Params:      models.Params{},
		Credentials: credentialsFrom(r.Header),
	}
	for key, values := range r.URL.Query() {
		if key == "provider" {
			req.Provider = values[len(values)-1]
			continue
		}
		req.Params[key] = values[len(values)-1]
	}

	provider, err := s.router.ProviderFor(req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	records, err := s.router.Fetch(r.Context(), req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if records == nil {
		records = []models.Record{}
	}

	writeJSON(w, http.StatusOK, DataResponse{
		Category: req.Category,
		Provider: provider,
		Count:    len(records),
		Records:  records,
	})
}

// credentialsFrom maps X-Credential-Api-Key: v to api_key: v
func credentialsFrom(h http.Header) models.Credentials {
	var creds models.Credentials
	for key, values := range h {
		if !strings.HasPrefix(key, credentialHeaderPrefix) || len(values) == 0 {
			continue
		}
		field := strings.ToLower(strings.ReplaceAll(strings.TrimPrefix(key, credentialHeaderPrefix), "-", "_"))
		if field == "" {
			continue
		}
		if creds == nil {
			creds = models.Credentials{}
		}
		creds[field] = values[0]
	}
	return creds
}

// StatusFor maps an error kind to the HTTP status returned to API clients
func StatusFor(err error) int {
	switch fetcher.TypeOf(err) {
	case fetcher.ErrorTypeValidation:
		return http.StatusBadRequest
	case fetcher.ErrorTypeCredentials:
		return http.StatusUnauthorized
	case fetcher.ErrorTypeNotFound:
		return http.StatusNotFound
	case fetcher.ErrorTypeRateLimit:
		return http.StatusTooManyRequests
	case fetcher.ErrorTypeTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusBadGateway
	}
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	detail := ErrorDetail{Type: string(fetcher.TypeOf(err)), Message: err.Error()}
	var fe *fetcher.FetchError
	if errors.As(err, &fe) {
		detail.Provider = fe.Provider
	}
	if detail.Type == "" {
		detail.Type = "internal"
	}

	status := StatusFor(err)
	s.logger.Debug("request failed",
		"request_id", middleware.GetReqID(r.Context()),
		"path", r.URL.Path,
		"status", status,
		"error", err)
	writeJSON(w, status, ErrorBody{Error: detail})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Debug("failed to encode response", "error", err)
	}
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.Info("request",
			"request_id", middleware.GetReqID(r.Context()),
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"elapsed", time.Since(start))
	})
}

// ListenAndServe serves h on addr until ctx is done, then shuts down gracefully
func ListenAndServe(ctx context.Context, addr string, h http.Handler, logger *slog.Logger) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		logger.Info("shutting down")
		return srv.Shutdown(shutdownCtx)
	}
}
