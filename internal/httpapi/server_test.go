package httpapi

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vorion/cognigate/internal/breaker"
	"github.com/vorion/cognigate/internal/cache"
	"github.com/vorion/cognigate/internal/critic"
	"github.com/vorion/cognigate/internal/gateway"
	"github.com/vorion/cognigate/internal/ledger"
	"github.com/vorion/cognigate/internal/model"
	"github.com/vorion/cognigate/internal/policy"
	"github.com/vorion/cognigate/internal/tripwire"
	"github.com/vorion/cognigate/internal/trust"
	"github.com/vorion/cognigate/internal/velocity"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	idSeq := 0
	gw := gateway.New(gateway.Deps{
		Tripwire: tripwire.New(),
		Velocity: velocity.New(time.Hour),
		Breaker:  breaker.New(nil),
		Trust: trust.New(trust.Config{
			DefaultLevel:  model.TrustProvisional,
			DecayInterval: 24 * time.Hour,
			PerUpdateCap:  1000,
			PerHourCap:    1000,
			PerDayCap:     1000,
		}),
		Catalog: policy.Catalog(),
		Cache:   cache.New(256, time.Minute, true, nil),
		Ledger: ledger.New(func() string {
			idSeq++
			return "proof-" + string(rune('a'+idSeq-1))
		}),
		Reviewer:        critic.New(nil, func() string { return "critic-1" }),
		CriticEnabled:   false,
		RequestDeadline: time.Second,
		CriticDeadline:  time.Second,
	})
	return NewServer(gw, nil)
}

func doJSON(t *testing.T, s *Server, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(b)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	return rec
}

func TestHandleIntentNormalizesBenignGoal(t *testing.T) {
	s := newTestServer(t)
	rec := doJSON(t, s, http.MethodPost, "/v1/intent", intentRequest{EntityID: "e1", Goal: "summarize tickets"})

	require.Equal(t, http.StatusOK, rec.Code)
	var resp intentResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "normalized", resp.Status)
}

func TestHandleIntentRejectsMissingEntityID(t *testing.T) {
	s := newTestServer(t)
	rec := doJSON(t, s, http.MethodPost, "/v1/intent", intentRequest{Goal: "do a thing"})

	require.Equal(t, http.StatusBadRequest, rec.Code)
	var resp inputError
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "missing_field", resp.ErrorCode)
	assert.Equal(t, "entity_id", resp.Field)
}

func TestHandleIntentRejectsMalformedBody(t *testing.T) {
	s := newTestServer(t)
	req := httptest.NewRequest(http.MethodPost, "/v1/intent", bytes.NewReader([]byte("not json")))
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleGetIntentRoundTripsNormalizedIntent(t *testing.T) {
	s := newTestServer(t)
	created := doJSON(t, s, http.MethodPost, "/v1/intent", intentRequest{EntityID: "e1", Goal: "summarize tickets"})
	var createdResp intentResponse
	require.NoError(t, json.Unmarshal(created.Body.Bytes(), &createdResp))

	rec := doJSON(t, s, http.MethodGet, "/v1/intent/"+createdResp.IntentID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestHandleGetIntentUnknownIDReturns404(t *testing.T) {
	s := newTestServer(t)
	rec := doJSON(t, s, http.MethodGet, "/v1/intent/does-not-exist", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandleEnforceRejectsOutOfRangeRiskScore(t *testing.T) {
	s := newTestServer(t)
	rec := doJSON(t, s, http.MethodPost, "/v1/enforce", enforceRequest{
		EntityID: "e1",
		Plan:     planDTO{PlanID: "p1", RiskScore: 1.5},
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	var resp inputError
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "out_of_range", resp.ErrorCode)
}

func TestHandleEnforceDeniedPlanStillReturns200(t *testing.T) {
	s := newTestServer(t)
	rec := doJSON(t, s, http.MethodPost, "/v1/enforce", enforceRequest{
		EntityID: "e1",
		Plan:     planDTO{PlanID: "p1", ToolsRequired: []string{model.ToolShell}},
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var resp enforceResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.False(t, resp.Allowed)
	assert.Equal(t, "deny", resp.Action)
}

func TestHandleListPoliciesReturnsCatalog(t *testing.T) {
	s := newTestServer(t)
	rec := doJSON(t, s, http.MethodGet, "/v1/enforce/policies", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	policies, ok := resp["policies"].([]any)
	require.True(t, ok)
	assert.Equal(t, len(policy.Catalog()), len(policies))
}

func TestHandleAppendProofThenGetAndVerify(t *testing.T) {
	s := newTestServer(t)
	enforceRec := doJSON(t, s, http.MethodPost, "/v1/enforce", enforceRequest{
		EntityID: "e1",
		Plan:     planDTO{PlanID: "p1", RiskScore: 0.1},
	})
	var verdict enforceResponse
	require.NoError(t, json.Unmarshal(enforceRec.Body.Bytes(), &verdict))

	appendRec := doJSON(t, s, http.MethodPost, "/v1/proof?entity_id=e1", verdict)
	require.Equal(t, http.StatusOK, appendRec.Code)
	var record proofRecordDTO
	require.NoError(t, json.Unmarshal(appendRec.Body.Bytes(), &record))
	assert.Equal(t, "e1", record.EntityID)

	getRec := doJSON(t, s, http.MethodGet, "/v1/proof/"+record.ProofID, nil)
	require.Equal(t, http.StatusOK, getRec.Code)

	verifyRec := doJSON(t, s, http.MethodGet, "/v1/proof/"+record.ProofID+"/verify", nil)
	require.Equal(t, http.StatusOK, verifyRec.Code)
	var verification verificationDTO
	require.NoError(t, json.Unmarshal(verifyRec.Body.Bytes(), &verification))
	assert.True(t, verification.Valid)
}

func TestHandleGetProofUnknownIDReturns404(t *testing.T) {
	s := newTestServer(t)
	rec := doJSON(t, s, http.MethodGet, "/v1/proof/nope", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandleQueryProofFiltersByEntity(t *testing.T) {
	s := newTestServer(t)
	enforceRec := doJSON(t, s, http.MethodPost, "/v1/enforce", enforceRequest{
		EntityID: "e1",
		Plan:     planDTO{PlanID: "p1", RiskScore: 0.1},
	})
	var verdict enforceResponse
	require.NoError(t, json.Unmarshal(enforceRec.Body.Bytes(), &verdict))
	doJSON(t, s, http.MethodPost, "/v1/proof?entity_id=e1", verdict)

	rec := doJSON(t, s, http.MethodPost, "/v1/proof/query", proofQueryRequest{EntityID: "e1"})
	require.Equal(t, http.StatusOK, rec.Code)

	var results []proofRecordDTO
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &results))
	require.Len(t, results, 1)
}

func TestHandleQueryProofRejectsMalformedStartDate(t *testing.T) {
	s := newTestServer(t)
	rec := doJSON(t, s, http.MethodPost, "/v1/proof/query", proofQueryRequest{StartDate: "not-a-date"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleProofStatsReportsZeroRecordsInitially(t *testing.T) {
	s := newTestServer(t)
	rec := doJSON(t, s, http.MethodGet, "/v1/proof/stats", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var stats statsDTO
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stats))
	assert.Equal(t, 0, stats.TotalRecords)
	assert.True(t, stats.ChainIntegrity)
}

func TestHandleHealthReturnsOK(t *testing.T) {
	s := newTestServer(t)
	rec := doJSON(t, s, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestHandleReadyReportsCircuitState(t *testing.T) {
	s := newTestServer(t)
	rec := doJSON(t, s, http.MethodGet, "/ready", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "closed", resp["circuit_state"])
}
