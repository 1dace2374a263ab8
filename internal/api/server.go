// Package api exposes the calculators, wizards, document library and
// ecosystem lookups over a JSON HTTP API.
package api

import (
	"net/http"
	"time"

	"immo-workers/internal/calculator"
	"immo-workers/internal/common/config"
	"immo-workers/internal/common/logger"
	"immo-workers/internal/documents"
	"immo-workers/internal/ecosystem"
	"immo-workers/internal/history"
	"immo-workers/internal/platform"
	"immo-workers/internal/wizard"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const defaultRequestTimeout = 60 * time.Second

type Options struct {
	Calculators *calculator.Service
	History     *history.Service
	Wizards     *wizard.Service
	Documents   *documents.Service
	Ecosystem   *ecosystem.Service
	Auth        platform.Auth
	Uploader    platform.Uploader
	Logger      logger.Logger
	// Timeout bounds every request. Zero uses one minute.
	Timeout time.Duration
	// Ready reports dependency health for /readyz.
	Ready func() error
}

// Server holds the handlers. Any service left nil answers its routes with
// 503.
type Server struct {
	calculators *calculator.Service
	history     *history.Service
	wizards     *wizard.Service
	documents   *documents.Service
	ecosystem   *ecosystem.Service
	auth        platform.Auth
	uploads     *uploadGuards
	logger      logger.Logger
	timeout     time.Duration
	ready       func() error
}

func New(opts Options) *Server {
	log := opts.Logger
	if log == nil {
		log = logger.NewNoOpLogger()
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultRequestTimeout
	}
	s := &Server{
		calculators: opts.Calculators,
		history:     opts.History,
		wizards:     opts.Wizards,
		documents:   opts.Documents,
		ecosystem:   opts.Ecosystem,
		auth:        opts.Auth,
		logger:      log.With(map[string]interface{}{"component": "api"}),
		timeout:     timeout,
		ready:       opts.Ready,
	}
	if opts.Uploader != nil {
		s.uploads = newUploadGuards(opts.Uploader)
	}
	return s
}

// Routes builds the router.
func (s *Server) Routes() http.Handler {
	router := chi.NewRouter()
	router.Use(chimw.RequestID)
	router.Use(chimw.RealIP)
	router.Use(s.requestLogger)
	router.Use(chimw.Recoverer)
	router.Use(chimw.Timeout(s.timeout))

	router.Get("/healthz", s.healthz)
	router.Get("/readyz", s.readyz)
	router.Handle("/metrics", promhttp.Handler())

	router.Route("/api/v1", func(r chi.Router) {
		r.Use(s.authenticate)

		r.Route("/calculators", s.calculatorRoutes)
		r.Get("/history", s.listHistory)
		r.Route("/wizards", s.wizardRoutes)
		r.Route("/sessions", s.sessionRoutes)
		r.Route("/documents", s.documentRoutes)
		r.Route("/shares", s.shareRoutes)
		r.Post("/document-requests", s.requestDocuments)
		r.Route("/self-disclosure", func(r chi.Router) {
			r.Post("/", s.createSelfDisclosure)
			r.Get("/{formID}/submissions", s.selfDisclosureSubmissions)
		})
		r.Route("/ecosystem", s.ecosystemRoutes)
		r.Post("/uploads", s.upload)
	})
	return router
}

// NewHTTPServer wraps handler with the configured address and timeouts.
func NewHTTPServer(cfg config.HTTPConfig, handler http.Handler) *http.Server {
	readTimeout := config.GetDuration(cfg.ReadTimeout)
	if readTimeout <= 0 {
		readTimeout = 10 * time.Second
	}
	writeTimeout := config.GetDuration(cfg.WriteTimeout)
	if writeTimeout <= 0 {
		writeTimeout = 90 * time.Second
	}
	addr := cfg.Address
	if addr == "" {
		addr = ":8080"
	}
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       60 * time.Second,
	}
}

func (s *Server) healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) readyz(w http.ResponseWriter, r *http.Request) {
	if s.ready != nil {
		if err := s.ready(); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable", "error": err.Error()})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}
