// Package httpapi exposes the gateway's /v1 surface over JSON. Handlers
// translate typed component results into the §7 error taxonomy; programmer
// errors never leak a stack trace across the request boundary.
package httpapi

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/vorion/cognigate/core"
	"github.com/vorion/cognigate/internal/gateway"
	"github.com/vorion/cognigate/internal/model"
)

// Server wraps a Gateway with the HTTP surface spec §6 describes.
type Server struct {
	gw     *gateway.Gateway
	logger core.Logger
	mux    *http.ServeMux
}

// NewServer builds the routed handler. Callers wrap it with
// core.LoggingMiddleware (and, when CORS is enabled, core.CORSMiddleware).
func NewServer(gw *gateway.Gateway, logger core.Logger) *Server {
	if logger == nil {
		logger = &core.NoOpLogger{}
	}
	s := &Server{gw: gw, logger: logger, mux: http.NewServeMux()}
	s.routes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// Handler wraps the routed mux with OpenTelemetry HTTP instrumentation,
// the way gomind wraps its agent HTTP handlers.
func (s *Server) Handler() http.Handler {
	return otelhttp.NewHandler(s.mux, "cognigate.http")
}

func (s *Server) routes() {
	s.mux.HandleFunc("POST /v1/intent", s.handleIntent)
	s.mux.HandleFunc("GET /v1/intent/{id}", s.handleGetIntent)
	s.mux.HandleFunc("POST /v1/enforce", s.handleEnforce)
	s.mux.HandleFunc("GET /v1/enforce/policies", s.handleListPolicies)
	s.mux.HandleFunc("POST /v1/proof", s.handleAppendProof)
	s.mux.HandleFunc("GET /v1/proof/{id}", s.handleGetProof)
	s.mux.HandleFunc("GET /v1/proof/{id}/verify", s.handleVerifyProof)
	s.mux.HandleFunc("POST /v1/proof/query", s.handleQueryProof)
	s.mux.HandleFunc("GET /v1/proof/stats", s.handleProofStats)
	s.mux.HandleFunc("GET /health", s.handleHealth)
	s.mux.HandleFunc("GET /ready", s.handleReady)
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// writeInputError surfaces spec §7 kind-1: malformed request body,
// missing fields, out-of-range scalars.
func writeInputError(w http.ResponseWriter, code, field, message string) {
	writeJSON(w, http.StatusBadRequest, inputError{ErrorCode: code, Field: field, Message: message})
}

func (s *Server) handleIntent(w http.ResponseWriter, r *http.Request) {
	var req intentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInputError(w, "malformed_body", "", "request body is not valid JSON")
		return
	}
	if req.EntityID == "" {
		writeInputError(w, "missing_field", "entity_id", "entity_id is required")
		return
	}
	if req.Goal == "" {
		writeInputError(w, "missing_field", "goal", "goal is required")
		return
	}

	if fields := core.RequestFieldsFrom(r.Context()); fields != nil {
		fields.EntityID = req.EntityID
	}

	result := s.gw.Intent(r.Context(), req.EntityID, req.Goal)
	if fields := core.RequestFieldsFrom(r.Context()); fields != nil && result.Plan != nil {
		fields.PlanID = result.Plan.PlanID
	}
	writeJSON(w, http.StatusOK, intentResponse{
		IntentID:   result.IntentID,
		Status:     result.Status,
		Plan:       planToDTO(result.Plan),
		TrustLevel: int(result.TrustLevel),
		TrustScore: result.TrustScore,
		DurationMS: result.DurationMS,
	})
}

func (s *Server) handleGetIntent(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	result, ok := s.gw.LookupIntent(id)
	if !ok {
		writeJSON(w, http.StatusNotFound, inputError{ErrorCode: "not_found", Message: "unknown intent id"})
		return
	}
	if fields := core.RequestFieldsFrom(r.Context()); fields != nil && result.Plan != nil {
		fields.PlanID = result.Plan.PlanID
	}
	writeJSON(w, http.StatusOK, intentResponse{
		IntentID:   result.IntentID,
		Status:     result.Status,
		Plan:       planToDTO(result.Plan),
		TrustLevel: int(result.TrustLevel),
		TrustScore: result.TrustScore,
		DurationMS: result.DurationMS,
	})
}

func (s *Server) handleEnforce(w http.ResponseWriter, r *http.Request) {
	var req enforceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInputError(w, "malformed_body", "", "request body is not valid JSON")
		return
	}
	if req.EntityID == "" {
		writeInputError(w, "missing_field", "entity_id", "entity_id is required")
		return
	}
	if req.Plan.PlanID == "" {
		writeInputError(w, "missing_field", "plan.plan_id", "plan.plan_id is required")
		return
	}
	if req.Plan.RiskScore < 0 || req.Plan.RiskScore > 1 {
		writeInputError(w, "out_of_range", "plan.risk_score", "risk_score must be within [0,1]")
		return
	}

	if fields := core.RequestFieldsFrom(r.Context()); fields != nil {
		fields.EntityID = req.EntityID
		fields.PlanID = req.Plan.PlanID
	}

	plan := planFromDTO(req.Plan)
	result := s.gw.Enforce(r.Context(), req.EntityID, plan)
	// All enforcement outcomes, including denials, are 200s (spec §6/§7):
	// 5xx is reserved for unrecovered programmer errors.
	writeJSON(w, http.StatusOK, verdictToDTO(result.Verdict))
}

func (s *Server) handleListPolicies(w http.ResponseWriter, r *http.Request) {
	policies := s.gw.Policies()
	type policyDTO struct {
		ID          string `json:"id"`
		Name        string `json:"name"`
		Constraints int    `json:"constraints"`
	}
	out := make([]policyDTO, len(policies))
	for i, p := range policies {
		out[i] = policyDTO{ID: p.ID, Name: p.Name, Constraints: len(p.Constraints)}
	}
	writeJSON(w, http.StatusOK, map[string]any{"policies": out})
}

func (s *Server) handleAppendProof(w http.ResponseWriter, r *http.Request) {
	var req enforceResponse
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInputError(w, "malformed_body", "", "request body is not valid JSON")
		return
	}
	if req.VerdictID == "" {
		writeInputError(w, "missing_field", "verdict_id", "verdict_id is required")
		return
	}

	v := verdictFromResponse(req)
	entityID := r.URL.Query().Get("entity_id")
	if fields := core.RequestFieldsFrom(r.Context()); fields != nil {
		fields.EntityID = entityID
		fields.PlanID = req.PlanID
	}
	record := s.gw.AppendProof(entityID, v)
	writeJSON(w, http.StatusOK, recordToDTO(record))
}

func (s *Server) findProofByID(id string) (model.ProofRecord, int, bool) {
	for i, r := range s.gw.Ledger().Snapshot() {
		if r.ProofID == id {
			return r, i, true
		}
	}
	return model.ProofRecord{}, -1, false
}

func (s *Server) handleGetProof(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	record, _, ok := s.findProofByID(id)
	if !ok {
		writeJSON(w, http.StatusNotFound, inputError{ErrorCode: "not_found", Message: "unknown proof id"})
		return
	}
	if fields := core.RequestFieldsFrom(r.Context()); fields != nil {
		fields.EntityID = record.EntityID
	}
	writeJSON(w, http.StatusOK, recordToDTO(record))
}

func (s *Server) handleVerifyProof(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	record, index, ok := s.findProofByID(id)
	if !ok {
		writeJSON(w, http.StatusNotFound, inputError{ErrorCode: "not_found", Message: "unknown proof id"})
		return
	}
	if fields := core.RequestFieldsFrom(r.Context()); fields != nil {
		fields.EntityID = record.EntityID
	}
	verification := s.gw.Ledger().Verify(index)
	writeJSON(w, http.StatusOK, verificationToDTO(verification))
}

func (s *Server) handleQueryProof(w http.ResponseWriter, r *http.Request) {
	var req proofQueryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInputError(w, "malformed_body", "", "request body is not valid JSON")
		return
	}

	q := model.ProofQuery{
		EntityID:  req.EntityID,
		IntentID:  req.IntentID,
		VerdictID: req.VerdictID,
		Decision:  model.ProofDecision(req.Decision),
		Limit:     req.Limit,
		Offset:    req.Offset,
	}
	if req.StartDate != "" {
		if t, err := time.Parse(time.RFC3339, req.StartDate); err == nil {
			q.StartDate = t
		} else {
			writeInputError(w, "malformed_field", "start_date", "start_date must be RFC-3339")
			return
		}
	}
	if req.EndDate != "" {
		if t, err := time.Parse(time.RFC3339, req.EndDate); err == nil {
			q.EndDate = t
		} else {
			writeInputError(w, "malformed_field", "end_date", "end_date must be RFC-3339")
			return
		}
	}

	records := s.gw.Ledger().Query(q)
	out := make([]proofRecordDTO, len(records))
	for i, r := range records {
		out[i] = recordToDTO(r)
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleProofStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, statsToDTO(s.gw.Ledger().Stats()))
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":         "ready",
		"circuit_state":  s.gw.BreakerState().String(),
		"ledger_records": strconv.Itoa(s.gw.Ledger().Len()),
	})
}
