// Package api exposes the risk assessment service over HTTP. Routes mirror the
// original web service (welcome text, /assess_risk, /get_required_fields) and
// add history, model management and Prometheus endpoints.
package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"health-risk/internal/assess"
	"health-risk/internal/events"
	"health-risk/internal/features"
	"health-risk/internal/ml"
	"health-risk/internal/schema"
	"health-risk/internal/storage"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

const WelcomeMessage = "Welcome to the Health Risk Prediction API! Use POST /assess_risk or GET /get_required_fields."

// Assessor runs the per-condition pipeline.
type Assessor interface {
	Assess(ctx context.Context, input features.RawInput) assess.Results
}

// ModelManager is the subset of *ml.Registry used by the model routes.
type ModelManager interface {
	Status() []ml.ScorerStatus
	Reload(ctx context.Context, c schema.Condition) (ml.Scorer, error)
	ReloadAll(ctx context.Context)
}

// HistoryStore persists assessments per user.
type HistoryStore interface {
	SaveAssessment(rec *storage.Record) error
	Recent(userID string, limit int) ([]storage.Record, error)
}

// EventPublisher announces completed assessments.
type EventPublisher interface {
	PublishAssessment(ctx context.Context, payload events.Assessment) (string, error)
}

// MetricsInterface defines metrics methods needed by the handlers
type MetricsInterface interface {
	AssessmentFailuresInc()
	ErrorsInc()
}

// Deps are the collaborators behind the routes. Store, Publisher, Metrics and
// Gatherer are optional.
type Deps struct {
	Assessor  Assessor
	Schemas   *schema.Registry
	Models    ModelManager
	Store     HistoryStore
	Publisher EventPublisher
	Metrics   MetricsInterface
	Gatherer  prometheus.Gatherer
}

// Config holds the listener settings.
type Config struct {
	Port           int
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	MaxRequestBody int64
}

// Server is the HTTP front of the service.
type Server struct {
	deps    Deps
	handler http.Handler
	server  *http.Server
}

// NewServer builds the router and the underlying http.Server.
func NewServer(cfg Config, deps Deps) *Server {
	if deps.Gatherer == nil {
		deps.Gatherer = prometheus.DefaultGatherer
	}
	s := &Server{deps: deps}

	r := mux.NewRouter()
	r.HandleFunc("/", s.handleHome).Methods(http.MethodGet)
	r.HandleFunc("/assess_risk", s.handleAssessRisk).Methods(http.MethodPost)
	r.HandleFunc("/get_required_fields", s.handleRequiredFields).Methods(http.MethodGet)
	r.HandleFunc("/get_all_fields", s.handleAllFields).Methods(http.MethodGet)
	r.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/models", s.handleModels).Methods(http.MethodGet)
	r.HandleFunc("/models/reload", s.handleReload).Methods(http.MethodPost)
	r.HandleFunc("/records", s.handleRecords).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{})).Methods(http.MethodGet)

	maxBody := cfg.MaxRequestBody
	if maxBody <= 0 {
		maxBody = 1 << 20
	}
	s.handler = Logging(Recovery(CORS(BodyLimit(maxBody)(r))))

	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      s.handler,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  120 * time.Second,
	}
	return s
}

// Handler returns the full middleware chain, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Start serves until Shutdown is called. It returns nil after a clean
// shutdown.
func (s *Server) Start() error {
	log.Info().Str("addr", s.server.Addr).Msg("Starting risk API server")
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}
