package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"health-risk/internal/assess"
	"health-risk/internal/events"
	"health-risk/internal/features"
	"health-risk/internal/metrics"
	"health-risk/internal/ml"
	"health-risk/internal/risk"
	"health-risk/internal/schema"
	"health-risk/internal/storage"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePublisher struct {
	mu       sync.Mutex
	payloads []events.Assessment
	err      error
}

func (p *fakePublisher) PublishAssessment(_ context.Context, payload events.Assessment) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return "", p.err
	}
	p.payloads = append(p.payloads, payload)
	return "evt-1", nil
}

type failingStore struct{}

func (failingStore) SaveAssessment(*storage.Record) error {
	return errors.New("disk full")
}

func (failingStore) Recent(string, int) ([]storage.Record, error) {
	return nil, errors.New("disk full")
}

type countingMetrics struct {
	mu       sync.Mutex
	failures int
	errors   int
}

func (m *countingMetrics) AssessmentFailuresInc() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failures++
}

func (m *countingMetrics) ErrorsInc() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errors++
}

type panickingAssessor struct{}

func (panickingAssessor) Assess(context.Context, features.RawInput) assess.Results {
	panic("boom")
}

type testEnv struct {
	server   *Server
	registry *ml.Registry
	store    *storage.Store
	metrics  *countingMetrics
}

func newTestEnv(t *testing.T, mutate func(*Config, *Deps)) *testEnv {
	t.Helper()

	schemas := schema.Default()
	registry := ml.NewRegistry(schemas, ml.NewFileLoader(t.TempDir(), ""), time.Second, &ml.MockMetrics{})
	store, err := storage.New(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	m := &countingMetrics{}
	cfg := Config{Port: 0, MaxRequestBody: 1 << 20}
	deps := Deps{
		Assessor: assess.NewService(features.NewBuilder(schemas), registry, nil),
		Schemas:  schemas,
		Models:   registry,
		Store:    store,
		Metrics:  m,
		Gatherer: prometheus.NewRegistry(),
	}
	if mutate != nil {
		mutate(&cfg, &deps)
	}

	return &testEnv{
		server:   NewServer(cfg, deps),
		registry: registry,
		store:    store,
		metrics:  m,
	}
}

func (e *testEnv) do(method, target, body string, header map[string]string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	for k, v := range header {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	e.server.Handler().ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestHome(t *testing.T) {
	env := newTestEnv(t, nil)

	rec := env.do(http.MethodGet, "/", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, WelcomeMessage, rec.Body.String())
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/plain")
}

func TestAssessRisk(t *testing.T) {
	env := newTestEnv(t, nil)

	rec := env.do(http.MethodPost, "/assess_risk", `{"Age": 45, "Sex": "Male", "Height": 175, "Weight": 80}`, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	resp := decode[AssessResponse](t, rec)
	assert.True(t, resp.Success)
	assert.Empty(t, resp.RecordID)
	require.Len(t, resp.Results, 3)
	for _, c := range schema.Conditions {
		assert.Equal(t, 70.0, resp.Results[c].RiskScore)
		assert.Equal(t, risk.High, resp.Results[c].RiskLevel)
		assert.Equal(t, risk.Recommendations(c, risk.High), resp.Results[c].Recommendations)
	}
}

func TestAssessRisk_EmptyObject(t *testing.T) {
	env := newTestEnv(t, nil)

	rec := env.do(http.MethodPost, "/assess_risk", `{}`, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[AssessResponse](t, rec).Results, 3)
}

func TestAssessRisk_InvalidInput(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"malformed", `{"Age": `},
		{"array", `[1, 2, 3]`},
		{"string", `"hello"`},
		{"null", `null`},
		{"trailing", `{} {}`},
		{"empty", ``},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t, nil)

			req := httptest.NewRequest(http.MethodPost, "/assess_risk", strings.NewReader(tt.body))
			rec := httptest.NewRecorder()
			env.server.Handler().ServeHTTP(rec, req)

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			resp := decode[AssessResponse](t, rec)
			assert.False(t, resp.Success)
			assert.Contains(t, resp.Error, "invalid input")
			assert.Nil(t, resp.Results)
			assert.Equal(t, 1, env.metrics.failures)
		})
	}
}

func TestAssessRisk_BodyTooLarge(t *testing.T) {
	env := newTestEnv(t, func(cfg *Config, _ *Deps) { cfg.MaxRequestBody = 16 })

	rec := env.do(http.MethodPost, "/assess_risk", `{"Age": 45, "Sex": "Male", "Height": 175}`, nil)
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	assert.False(t, decode[AssessResponse](t, rec).Success)
}

func TestAssessRisk_RecordsHistoryAndEvents(t *testing.T) {
	pub := &fakePublisher{}
	env := newTestEnv(t, func(_ *Config, deps *Deps) { deps.Publisher = pub })

	rec := env.do(http.MethodPost, "/assess_risk", `{"Age": 60}`, map[string]string{UserIDHeader: "alice"})
	require.Equal(t, http.StatusOK, rec.Code)

	resp := decode[AssessResponse](t, rec)
	require.NotEmpty(t, resp.RecordID)

	stored, err := env.store.GetAssessment(resp.RecordID)
	require.NoError(t, err)
	assert.Equal(t, "alice", stored.UserID)
	assert.Equal(t, schema.Version, stored.SchemaVersion)
	assert.Equal(t, resp.Results, stored.Results)

	require.Len(t, pub.payloads, 1)
	assert.Equal(t, resp.RecordID, pub.payloads[0].RecordID)
	assert.Equal(t, "alice", pub.payloads[0].UserID)
}

func TestAssessRisk_NoUserSkipsHistory(t *testing.T) {
	pub := &fakePublisher{}
	env := newTestEnv(t, func(_ *Config, deps *Deps) { deps.Publisher = pub })

	rec := env.do(http.MethodPost, "/assess_risk", `{"Age": 60}`, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, pub.payloads)

	records, err := env.store.Recent("alice", 10)
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestAssessRisk_SideEffectFailuresDoNotFail(t *testing.T) {
	pub := &fakePublisher{err: errors.New("broker down")}
	env := newTestEnv(t, func(_ *Config, deps *Deps) {
		deps.Store = failingStore{}
		deps.Publisher = pub
	})

	rec := env.do(http.MethodPost, "/assess_risk", `{"Age": 60}`, map[string]string{UserIDHeader: "bob"})
	require.Equal(t, http.StatusOK, rec.Code)

	resp := decode[AssessResponse](t, rec)
	assert.True(t, resp.Success)
	assert.Empty(t, resp.RecordID)
	assert.Len(t, resp.Results, 3)
	assert.Equal(t, 2, env.metrics.errors)
}

func TestAssessRisk_PanicIsRecovered(t *testing.T) {
	env := newTestEnv(t, func(_ *Config, deps *Deps) { deps.Assessor = panickingAssessor{} })

	rec := env.do(http.MethodPost, "/assess_risk", `{}`, nil)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.False(t, decode[AssessResponse](t, rec).Success)
}

func TestRequiredFields(t *testing.T) {
	env := newTestEnv(t, nil)

	rec := env.do(http.MethodGet, "/get_required_fields", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	resp := decode[FieldsResponse](t, rec)
	assert.True(t, resp.Success)
	require.Len(t, resp.RequiredFields, 3)

	reg := schema.Default()
	for _, c := range schema.Conditions {
		s, err := reg.Schema(c)
		require.NoError(t, err)
		assert.Equal(t, s.Features, resp.RequiredFields[c], string(c))
	}
}

func TestAllFields(t *testing.T) {
	env := newTestEnv(t, nil)

	rec := env.do(http.MethodGet, "/get_all_fields", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	resp := decode[AllFieldsResponse](t, rec)
	assert.True(t, resp.Success)
	assert.Equal(t, schema.Default().AllFeatures(), resp.Fields)
	assert.NotContains(t, resp.Fields, schema.FeatureBMI)
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t, nil)

	rec := env.do(http.MethodGet, "/health", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	resp := decode[HealthResponse](t, rec)
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, schema.Version, resp.SchemaVersion)
	assert.Equal(t, 3, resp.Scorers[ml.KindUnloaded])
	assert.True(t, resp.History)
	assert.False(t, resp.Events)
}

func TestModels(t *testing.T) {
	env := newTestEnv(t, nil)

	resp := decode[ModelsResponse](t, env.do(http.MethodGet, "/models", "", nil))
	require.Len(t, resp.Models, 3)
	for _, st := range resp.Models {
		assert.Equal(t, ml.KindUnloaded, st.Kind)
	}

	env.do(http.MethodPost, "/assess_risk", `{}`, nil)

	resp = decode[ModelsResponse](t, env.do(http.MethodGet, "/models", "", nil))
	for _, st := range resp.Models {
		assert.Equal(t, ml.KindFallback, st.Kind, string(st.Condition))
		assert.NotEmpty(t, st.Reason)
	}
}

func TestReload(t *testing.T) {
	env := newTestEnv(t, nil)

	rec := env.do(http.MethodPost, "/models/reload?condition=diabetes", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	resp := decode[ModelsResponse](t, rec)
	require.Len(t, resp.Models, 3)
	assert.Equal(t, ml.KindFallback, resp.Models[0].Kind)
	assert.Equal(t, ml.KindUnloaded, resp.Models[1].Kind)

	rec = env.do(http.MethodPost, "/models/reload", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	for _, st := range decode[ModelsResponse](t, rec).Models {
		assert.Equal(t, ml.KindFallback, st.Kind)
	}
}

func TestReload_UnknownCondition(t *testing.T) {
	env := newTestEnv(t, nil)

	rec := env.do(http.MethodPost, "/models/reload?condition=asthma", "", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decode[AssessResponse](t, rec).Error, "unknown condition")
}

func TestRecords(t *testing.T) {
	env := newTestEnv(t, nil)

	var ids []string
	for i := 0; i < 3; i++ {
		resp := decode[AssessResponse](t, env.do(http.MethodPost, "/assess_risk", `{"Age": 50}`, map[string]string{UserIDHeader: "carol"}))
		ids = append(ids, resp.RecordID)
		time.Sleep(time.Millisecond)
	}

	rec := env.do(http.MethodGet, "/records?user_id=carol&limit=2", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	resp := decode[RecordsResponse](t, rec)
	require.Len(t, resp.Records, 2)
	assert.Equal(t, ids[2], resp.Records[0].ID)
	assert.Equal(t, ids[1], resp.Records[1].ID)

	// The header works as well as the query parameter.
	rec = env.do(http.MethodGet, "/records", "", map[string]string{UserIDHeader: "carol"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[RecordsResponse](t, rec).Records, 3)

	rec = env.do(http.MethodGet, "/records?user_id=nobody", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"records":[]`)
}

func TestRecords_Errors(t *testing.T) {
	env := newTestEnv(t, nil)
	assert.Equal(t, http.StatusBadRequest, env.do(http.MethodGet, "/records", "", nil).Code)

	disabled := newTestEnv(t, func(_ *Config, deps *Deps) { deps.Store = nil })
	assert.Equal(t, http.StatusServiceUnavailable, disabled.do(http.MethodGet, "/records?user_id=a", "", nil).Code)

	broken := newTestEnv(t, func(_ *Config, deps *Deps) { deps.Store = failingStore{} })
	assert.Equal(t, http.StatusInternalServerError, broken.do(http.MethodGet, "/records?user_id=a", "", nil).Code)
	assert.Equal(t, 1, broken.metrics.errors)
}

func TestMetricsEndpoint(t *testing.T) {
	reg := prometheus.NewRegistry()
	wrapper := metrics.NewWrapper(metrics.NewWithRegistry(reg))
	env := newTestEnv(t, func(_ *Config, deps *Deps) {
		deps.Gatherer = reg
		deps.Metrics = wrapper
	})

	env.do(http.MethodPost, "/assess_risk", `not json`, nil)

	rec := env.do(http.MethodGet, "/metrics", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "assessment_failures_total 1")
}

func TestMiddleware(t *testing.T) {
	env := newTestEnv(t, nil)

	t.Run("preflight", func(t *testing.T) {
		rec := env.do(http.MethodOptions, "/assess_risk", "", nil)
		assert.Equal(t, http.StatusNoContent, rec.Code)
		assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
		assert.Contains(t, rec.Header().Get("Access-Control-Allow-Headers"), UserIDHeader)
	})

	t.Run("request id generated", func(t *testing.T) {
		rec := env.do(http.MethodGet, "/", "", nil)
		assert.NotEmpty(t, rec.Header().Get(RequestIDHeader))
	})

	t.Run("request id propagated", func(t *testing.T) {
		rec := env.do(http.MethodGet, "/", "", map[string]string{RequestIDHeader: "req-42"})
		assert.Equal(t, "req-42", rec.Header().Get(RequestIDHeader))
	})

	t.Run("wrong method", func(t *testing.T) {
		rec := env.do(http.MethodGet, "/assess_risk", "", nil)
		assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	})
}

func TestParseLimit(t *testing.T) {
	tests := []struct {
		query string
		want  int
	}{
		{"", 50},
		{"limit=10", 10},
		{"limit=0", 50},
		{"limit=-3", 50},
		{"limit=abc", 50},
		{"limit=100000", maxRecordsLimit},
	}

	for _, tt := range tests {
		req := httptest.NewRequest(http.MethodGet, "/records?"+tt.query, nil)
		assert.Equal(t, tt.want, parseLimit(req, defaultRecordsLimit), tt.query)
	}
}
