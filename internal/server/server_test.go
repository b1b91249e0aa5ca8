package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/fulqrun/meddpicc-cli/internal/config"
	"github.com/fulqrun/meddpicc-cli/internal/model"
	"github.com/fulqrun/meddpicc-cli/internal/qualify"
	"github.com/fulqrun/meddpicc-cli/internal/resilience"
	"github.com/fulqrun/meddpicc-cli/internal/session"
	"github.com/fulqrun/meddpicc-cli/internal/store"
)

func init() {
	zap.ReplaceGlobals(zap.NewNop())
}

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	st, err := store.NewSQLite(filepath.Join(t.TempDir(), "api.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	require.NoError(t, st.Migrate(context.Background()))
	require.NoError(t, st.UpsertOpportunity(context.Background(), model.Opportunity{ID: "opp-1", Name: "Acme"}))

	scorer := qualify.NewScorer(qualify.DefaultCatalog(), qualify.DefaultScoringConfig())
	svc := session.NewService(st, scorer, resilience.RetryConfig{MaxAttempts: 1})
	srv := httptest.NewServer(New(svc, config.ServerConfig{AllowedOrigins: []string{"*"}}).Handler())
	t.Cleanup(srv.Close)
	return srv
}

func do(t *testing.T, srv *httptest.Server, method, path string, body any) (*http.Response, []byte) {
	t.Helper()
	var rd *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		rd = bytes.NewReader(b)
	} else {
		rd = bytes.NewReader(nil)
	}
	req, err := http.NewRequest(method, srv.URL+path, rd)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close() //nolint:errcheck

	var buf bytes.Buffer
	_, err = buf.ReadFrom(resp.Body)
	require.NoError(t, err)
	return resp, buf.Bytes()
}

func decodeInto[T any](t *testing.T, b []byte) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(b, &v), string(b))
	return v
}

func TestHealth(t *testing.T) {
	srv := newTestServer(t)
	resp, body := do(t, srv, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"status":"ok"}`, string(body))
	assert.NotEmpty(t, resp.Header.Get("Content-Type"))
}

func TestCatalogEndpoints(t *testing.T) {
	srv := newTestServer(t)

	resp, body := do(t, srv, http.MethodGet, "/api/v1/pillars", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	pillars := decodeInto[[]model.Pillar](t, body)
	assert.Len(t, pillars, 8)

	resp, body = do(t, srv, http.MethodGet, "/api/v1/litmus", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	lt := decodeInto[model.LitmusTest](t, body)
	assert.Len(t, lt.Questions, 4)

	resp, body = do(t, srv, http.MethodGet, "/api/v1/stage-gates", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, decodeInto[[]model.StageGate](t, body), 3)
}

func TestOpportunityCRUD(t *testing.T) {
	srv := newTestServer(t)

	resp, body := do(t, srv, http.MethodPut, "/api/v1/opportunities/opp-2", map[string]any{
		"name": "Globex", "stage": "engaging", "salesforce_id": "006000000000001",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))
	assert.Equal(t, model.StageEngaging, decodeInto[model.Opportunity](t, body).Stage)

	// Renaming keeps the stage.
	resp, body = do(t, srv, http.MethodPut, "/api/v1/opportunities/opp-2", map[string]any{
		"name": "Globex Corp", "stage": "key_decision",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	opp := decodeInto[model.Opportunity](t, body)
	assert.Equal(t, "Globex Corp", opp.Name)
	assert.Equal(t, model.StageEngaging, opp.Stage)

	resp, _ = do(t, srv, http.MethodPut, "/api/v1/opportunities/opp-3", map[string]any{"stage": "engaging"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, body = do(t, srv, http.MethodGet, "/api/v1/opportunities?stage=engaging", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, decodeInto[[]model.Opportunity](t, body), 1)

	resp, _ = do(t, srv, http.MethodGet, "/api/v1/opportunities?limit=x", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = do(t, srv, http.MethodGet, "/api/v1/opportunities/missing", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestResponsesAndAssessment(t *testing.T) {
	srv := newTestServer(t)

	resp, body := do(t, srv, http.MethodPut, "/api/v1/opportunities/opp-1/responses", map[string]any{
		"responses": []map[string]any{
			{"pillar_id": "identifyPain", "question_id": "pain", "answer": "Manual reconciliation costs 3 FTEs"},
			{"pillar_id": "identifyPain", "question_id": "severity", "answer": "Critical"},
		},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	out := decodeInto[answersResponse](t, body)
	assert.Equal(t, 2, out.Changed)
	assert.Equal(t, 80, out.Assessment.PillarScores[qualify.PillarIdentifyPain])

	resp, body = do(t, srv, http.MethodGet, "/api/v1/opportunities/opp-1/responses", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, decodeInto[[]model.Response](t, body), 2)

	resp, body = do(t, srv, http.MethodGet, "/api/v1/opportunities/opp-1/assessment", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, out.Assessment, decodeInto[model.Assessment](t, body))

	resp, body = do(t, srv, http.MethodPost, "/api/v1/opportunities/opp-1/assessment", nil)
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))
	rec := decodeInto[model.AssessmentRecord](t, body)
	assert.Equal(t, "opp-1", rec.OpportunityID)
	assert.NotEmpty(t, rec.ConfigHash)

	resp, body = do(t, srv, http.MethodGet, "/api/v1/opportunities/opp-1/progress", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 67, decodeInto[map[string]int](t, body)[qualify.PillarIdentifyPain])

	resp, body = do(t, srv, http.MethodGet, "/api/v1/opportunities/opp-1/summary", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	summary := decodeInto[map[string]string](t, body)
	assert.Contains(t, summary[qualify.PillarIdentifyPain], "How severe is the pain?: Critical")

	resp, body = do(t, srv, http.MethodPost, "/api/v1/opportunities/opp-1/validate", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	v := decodeInto[validateResponse](t, body)
	assert.False(t, v.Valid)
	assert.NotEmpty(t, v.Errors)
}

func TestPutResponsesMerge(t *testing.T) {
	srv := newTestServer(t)
	path := "/api/v1/opportunities/opp-1/responses"

	resp, body := do(t, srv, http.MethodPut, path, map[string]any{
		"responses": []map[string]any{
			{"pillar_id": "metrics", "question_id": "baseline", "answer": "yes", "updated_at": "2026-05-01T10:00:00Z"},
		},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	assert.Equal(t, 1, decodeInto[answersResponse](t, body).Changed)

	// An older replay loses.
	resp, body = do(t, srv, http.MethodPut, path, map[string]any{
		"responses": []map[string]any{
			{"pillar_id": "metrics", "question_id": "baseline", "answer": "no", "updated_at": "2026-05-01T09:00:00Z"},
		},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	assert.Equal(t, 0, decodeInto[answersResponse](t, body).Changed)

	_, body = do(t, srv, http.MethodGet, path, nil)
	rs := decodeInto[[]model.Response](t, body)
	require.Len(t, rs, 1)
	assert.Equal(t, "yes", rs[0].Answer)
	assert.Equal(t, 5, rs[0].Points)
}

func TestPutResponsesRejectsWholeBatch(t *testing.T) {
	srv := newTestServer(t)
	path := "/api/v1/opportunities/opp-1/responses"

	resp, body := do(t, srv, http.MethodPut, path, map[string]any{
		"responses": []map[string]any{
			{"pillar_id": "champion", "question_id": "commitment", "answer": "Actively selling for us"},
			{"pillar_id": "champion", "question_id": "nope", "answer": "x"},
		},
	})
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode, string(body))
	assert.Contains(t, string(body), "champion.nope")

	resp, body = do(t, srv, http.MethodGet, path, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Empty(t, decodeInto[[]model.Response](t, body))

	_, body = do(t, srv, http.MethodGet, "/api/v1/opportunities/opp-1/assessment", nil)
	assert.Equal(t, 0, decodeInto[model.Assessment](t, body).PillarScores[qualify.PillarChampion])
}

func TestPutResponsesClearThenLateReplay(t *testing.T) {
	srv := newTestServer(t)
	path := "/api/v1/opportunities/opp-1/responses"
	put := func(answer, at string) answersResponse {
		t.Helper()
		resp, body := do(t, srv, http.MethodPut, path, map[string]any{
			"responses": []map[string]any{
				{"pillar_id": "champion", "question_id": "commitment", "answer": answer, "updated_at": at},
			},
		})
		require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
		return decodeInto[answersResponse](t, body)
	}

	assert.Equal(t, 1, put("Actively selling for us", "2026-05-01T09:00:00Z").Changed)
	assert.Equal(t, 1, put("", "2026-05-01T09:10:00Z").Changed)
	late := put("Actively selling for us", "2026-05-01T09:05:00Z")
	assert.Equal(t, 0, late.Changed)
	assert.Equal(t, 0, late.Assessment.PillarScores[qualify.PillarChampion])

	_, body := do(t, srv, http.MethodGet, path, nil)
	assert.Empty(t, decodeInto[[]model.Response](t, body))
}

func TestPutResponsesErrors(t *testing.T) {
	srv := newTestServer(t)

	tests := []struct {
		name   string
		path   string
		body   any
		status int
	}{
		{"empty body", "/api/v1/opportunities/opp-1/responses", map[string]any{}, http.StatusBadRequest},
		{"missing question id", "/api/v1/opportunities/opp-1/responses",
			map[string]any{"responses": []map[string]any{{"pillar_id": "metrics", "answer": "x"}}}, http.StatusBadRequest},
		{"negative points", "/api/v1/opportunities/opp-1/responses",
			map[string]any{"responses": []map[string]any{{"pillar_id": "metrics", "question_id": "roi", "answer": "x", "points": -1}}}, http.StatusBadRequest},
		{"unknown question", "/api/v1/opportunities/opp-1/responses",
			map[string]any{"responses": []map[string]any{{"pillar_id": "metrics", "question_id": "nope", "answer": "x"}}}, http.StatusUnprocessableEntity},
		{"unknown opportunity", "/api/v1/opportunities/missing/responses",
			map[string]any{"responses": []map[string]any{{"pillar_id": "metrics", "question_id": "roi", "answer": "x"}}}, http.StatusNotFound},
		{"malformed json", "/api/v1/opportunities/opp-1/responses", "not an object", http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, body := do(t, srv, http.MethodPut, tt.path, tt.body)
			assert.Equal(t, tt.status, resp.StatusCode, string(body))
			assert.Contains(t, string(body), `"error"`)
		})
	}
}

func TestGatesAndAdvance(t *testing.T) {
	srv := newTestServer(t)

	resp, body := do(t, srv, http.MethodGet, "/api/v1/opportunities/opp-1/gates/engaging", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	g := decodeInto[gateResponse](t, body)
	assert.False(t, g.CanAdvance)
	assert.Len(t, g.Criteria, 2)

	resp, _ = do(t, srv, http.MethodGet, "/api/v1/opportunities/opp-1/gates/closed", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, body = do(t, srv, http.MethodGet, "/api/v1/opportunities/opp-1/gates", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, decodeInto[[]qualify.GateStatus](t, body), 3)

	resp, _ = do(t, srv, http.MethodPost, "/api/v1/opportunities/opp-1/advance", map[string]any{"target": "engaging"})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	resp, _ = do(t, srv, http.MethodPut, "/api/v1/opportunities/opp-1/responses", map[string]any{
		"responses": []map[string]any{
			{"pillar_id": "identifyPain", "question_id": "pain", "answer": "Manual reconciliation costs 3 FTEs"},
			{"pillar_id": "identifyPain", "question_id": "severity", "answer": "Critical"},
			{"pillar_id": "metrics", "question_id": "outcomes", "answer": "Close the books two days faster"},
		},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, body = do(t, srv, http.MethodPost, "/api/v1/opportunities/opp-1/advance", map[string]any{"target": "engaging", "dry_run": true})
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	assert.True(t, decodeInto[gateResponse](t, body).CanAdvance)

	_, body = do(t, srv, http.MethodGet, "/api/v1/opportunities/opp-1", nil)
	assert.Equal(t, model.StageProspecting, decodeInto[model.Opportunity](t, body).Stage)

	resp, _ = do(t, srv, http.MethodPost, "/api/v1/opportunities/opp-1/advance", map[string]any{"target": "engaging"})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	_, body = do(t, srv, http.MethodGet, "/api/v1/opportunities/opp-1", nil)
	assert.Equal(t, model.StageEngaging, decodeInto[model.Opportunity](t, body).Stage)

	resp, _ = do(t, srv, http.MethodPost, "/api/v1/opportunities/opp-1/advance", map[string]any{"target": "closed"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestCORS(t *testing.T) {
	srv := newTestServer(t)

	req, err := http.NewRequest(http.MethodOptions, srv.URL+"/api/v1/pillars", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "https://app.example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodGet)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close() //nolint:errcheck

	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
}
