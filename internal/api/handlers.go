package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"health-risk/internal/assess"
	"health-risk/internal/events"
	"health-risk/internal/features"
	"health-risk/internal/ml"
	"health-risk/internal/schema"
	"health-risk/internal/storage"

	"github.com/rs/zerolog/log"
)

// UserIDHeader opts an assessment into history and events.
const UserIDHeader = "X-User-ID"

const (
	defaultRecordsLimit = 50
	maxRecordsLimit     = 500
)

// AssessResponse is the body of POST /assess_risk.
type AssessResponse struct {
	Success  bool           `json:"success"`
	Results  assess.Results `json:"results,omitempty"`
	RecordID string         `json:"record_id,omitempty"`
	Error    string         `json:"error,omitempty"`
}

// FieldsResponse is the body of GET /get_required_fields.
type FieldsResponse struct {
	Success        bool                          `json:"success"`
	RequiredFields map[schema.Condition][]string `json:"required_fields"`
}

// AllFieldsResponse is the body of GET /get_all_fields.
type AllFieldsResponse struct {
	Success bool     `json:"success"`
	Fields  []string `json:"fields"`
}

// ModelsResponse is the body of GET /models and POST /models/reload.
type ModelsResponse struct {
	Success bool              `json:"success"`
	Models  []ml.ScorerStatus `json:"models"`
}

// RecordsResponse is the body of GET /records.
type RecordsResponse struct {
	Success bool             `json:"success"`
	Records []storage.Record `json:"records"`
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status        string         `json:"status"`
	SchemaVersion int            `json:"schema_version"`
	Scorers       map[string]int `json:"scorers"`
	History       bool           `json:"history"`
	Events        bool           `json:"events"`
}

func (s *Server) handleHome(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	io.WriteString(w, WelcomeMessage)
}

func (s *Server) handleAssessRisk(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		s.assessmentRejected(w, r, err)
		return
	}

	input, err := assess.ParseInput(body)
	if err != nil {
		s.assessmentRejected(w, r, err)
		return
	}

	results := s.deps.Assessor.Assess(r.Context(), input)
	resp := AssessResponse{Success: true, Results: results}

	if userID := r.Header.Get(UserIDHeader); userID != "" {
		resp.RecordID = s.record(r, userID, input, results)
	}

	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) assessmentRejected(w http.ResponseWriter, r *http.Request, err error) {
	log.Warn().Err(err).Str("path", r.URL.Path).Msg("Rejected assessment request")
	if s.deps.Metrics != nil {
		s.deps.Metrics.AssessmentFailuresInc()
	}

	status := http.StatusBadRequest
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		status = http.StatusRequestEntityTooLarge
	}
	writeError(w, status, err.Error())
}

// record stores and announces an assessment. Failures are logged only: the
// caller already has its results.
func (s *Server) record(r *http.Request, userID string, input features.RawInput, results assess.Results) string {
	var recordID string

	if s.deps.Store != nil {
		rec := &storage.Record{
			UserID:        userID,
			Input:         input,
			Results:       results,
			SchemaVersion: s.deps.Schemas.Version(),
		}
		if err := s.deps.Store.SaveAssessment(rec); err != nil {
			log.Error().Err(err).Str("user_id", userID).Msg("Failed to save assessment")
			s.errorsInc()
		} else {
			recordID = rec.ID
		}
	}

	if s.deps.Publisher != nil {
		payload := events.Assessment{
			RecordID:      recordID,
			UserID:        userID,
			SchemaVersion: s.deps.Schemas.Version(),
			Results:       results,
		}
		if _, err := s.deps.Publisher.PublishAssessment(r.Context(), payload); err != nil {
			log.Error().Err(err).Str("user_id", userID).Msg("Failed to publish assessment event")
			s.errorsInc()
		}
	}

	return recordID
}

func (s *Server) handleRequiredFields(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, FieldsResponse{
		Success:        true,
		RequiredFields: s.deps.Schemas.Catalog(),
	})
}

func (s *Server) handleAllFields(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, AllFieldsResponse{
		Success: true,
		Fields:  s.deps.Schemas.AllFeatures(),
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	scorers := map[string]int{ml.KindModel: 0, ml.KindFallback: 0, ml.KindUnloaded: 0}
	for _, st := range s.deps.Models.Status() {
		scorers[st.Kind]++
	}

	// Fallback scorers still answer, so the service is healthy without models.
	writeJSON(w, http.StatusOK, HealthResponse{
		Status:        "ok",
		SchemaVersion: s.deps.Schemas.Version(),
		Scorers:       scorers,
		History:       s.deps.Store != nil,
		Events:        s.deps.Publisher != nil,
	})
}

func (s *Server) handleModels(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, ModelsResponse{Success: true, Models: s.deps.Models.Status()})
}

func (s *Server) handleReload(w http.ResponseWriter, r *http.Request) {
	if name := r.URL.Query().Get("condition"); name != "" {
		c := schema.Condition(name)
		if _, err := s.deps.Schemas.Schema(c); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		if _, err := s.deps.Models.Reload(r.Context(), c); err != nil {
			log.Error().Err(err).Str("condition", name).Msg("Model reload failed")
			s.errorsInc()
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		log.Info().Str("condition", name).Msg("Model reloaded")
	} else {
		s.deps.Models.ReloadAll(r.Context())
		log.Info().Msg("All models reloaded")
	}

	writeJSON(w, http.StatusOK, ModelsResponse{Success: true, Models: s.deps.Models.Status()})
}

func (s *Server) handleRecords(w http.ResponseWriter, r *http.Request) {
	if s.deps.Store == nil {
		writeError(w, http.StatusServiceUnavailable, "assessment history is not enabled")
		return
	}

	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		userID = r.Header.Get(UserIDHeader)
	}
	if userID == "" {
		writeError(w, http.StatusBadRequest, "user_id is required")
		return
	}

	records, err := s.deps.Store.Recent(userID, parseLimit(r, defaultRecordsLimit))
	if err != nil {
		log.Error().Err(err).Str("user_id", userID).Msg("Failed to read assessment history")
		s.errorsInc()
		writeError(w, http.StatusInternalServerError, "failed to read assessment history")
		return
	}
	if records == nil {
		records = []storage.Record{}
	}
	writeJSON(w, http.StatusOK, RecordsResponse{Success: true, Records: records})
}

func (s *Server) errorsInc() {
	if s.deps.Metrics != nil {
		s.deps.Metrics.ErrorsInc()
	}
}

func parseLimit(r *http.Request, fallback int) int {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v <= 0 {
		return fallback
	}
	return min(v, maxRecordsLimit)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Error().Err(err).Msg("Failed to encode response")
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, AssessResponse{Success: false, Error: msg})
}
