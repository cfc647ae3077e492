package httpapi

import "github.com/vorion/cognigate/internal/model"

// inputError is the §7 kind-1 response shape for a malformed request.
type inputError struct {
	ErrorCode string `json:"error_code"`
	Field     string `json:"field,omitempty"`
	Message   string `json:"message"`
}

type intentRequest struct {
	EntityID string `json:"entity_id"`
	Goal     string `json:"goal"`
}

type planDTO struct {
	PlanID              string             `json:"plan_id"`
	Goal                string             `json:"goal"`
	ToolsRequired       []string           `json:"tools_required"`
	EndpointsRequired   []string           `json:"endpoints_required"`
	DataClassifications []string           `json:"data_classifications"`
	RiskIndicators      map[string]float64 `json:"risk_indicators"`
	RiskScore           float64            `json:"risk_score"`
	ReasoningTrace      string             `json:"reasoning_trace"`
}

func planToDTO(p *model.Plan) planDTO {
	return planDTO{
		PlanID:              p.PlanID,
		Goal:                p.Goal,
		ToolsRequired:       p.ToolsRequired,
		EndpointsRequired:   p.EndpointsRequired,
		DataClassifications: p.DataClassifications,
		RiskIndicators:      p.RiskIndicators,
		RiskScore:           p.RiskScore,
		ReasoningTrace:      p.ReasoningTrace,
	}
}

func planFromDTO(d planDTO) *model.Plan {
	return &model.Plan{
		PlanID:              d.PlanID,
		Goal:                d.Goal,
		ToolsRequired:       d.ToolsRequired,
		EndpointsRequired:   d.EndpointsRequired,
		DataClassifications: d.DataClassifications,
		RiskIndicators:      d.RiskIndicators,
		RiskScore:           d.RiskScore,
		ReasoningTrace:      d.ReasoningTrace,
	}
}

type intentResponse struct {
	IntentID   string  `json:"intent_id"`
	Status     string  `json:"status"`
	Plan       planDTO `json:"plan"`
	TrustLevel int     `json:"trust_level"`
	TrustScore int     `json:"trust_score"`
	DurationMS float64 `json:"duration_ms"`
}

type enforceRequest struct {
	EntityID string  `json:"entity_id"`
	Plan     planDTO `json:"plan"`
}

type violationDTO struct {
	PolicyID         string `json:"policy_id,omitempty"`
	ConstraintID     string `json:"constraint_id"`
	Severity         string `json:"severity"`
	Message          string `json:"message"`
	Blocked          bool   `json:"blocked"`
	RequiresApproval bool   `json:"requires_approval"`
	Remediation      string `json:"remediation,omitempty"`
}

type enforceResponse struct {
	VerdictID            string         `json:"verdict_id"`
	IntentID             string         `json:"intent_id"`
	PlanID               string         `json:"plan_id"`
	Allowed              bool           `json:"allowed"`
	Action               string         `json:"action"`
	Violations           []violationDTO `json:"violations"`
	PoliciesEvaluated    []string       `json:"policies_evaluated"`
	ConstraintsEvaluated int            `json:"constraints_evaluated"`
	TrustImpact          int            `json:"trust_impact"`
	RequiresApproval     bool           `json:"requires_approval"`
	ApprovalTimeout      string         `json:"approval_timeout,omitempty"`
	RigorMode            string         `json:"rigor_mode"`
	DecidedAt            string         `json:"decided_at"`
	DurationMS           float64        `json:"duration_ms"`
}

func verdictToDTO(v model.Verdict) enforceResponse {
	violations := make([]violationDTO, len(v.Violations))
	for i, vi := range v.Violations {
		violations[i] = violationDTO{
			PolicyID:         vi.PolicyID,
			ConstraintID:     vi.ConstraintID,
			Severity:         string(vi.Severity),
			Message:          vi.Message,
			Blocked:          vi.Blocked,
			RequiresApproval: vi.RequiresApproval,
			Remediation:      vi.Remediation,
		}
	}
	return enforceResponse{
		VerdictID:            v.VerdictID,
		IntentID:             v.IntentID,
		PlanID:               v.PlanID,
		Allowed:              v.Allowed,
		Action:               string(v.Action),
		Violations:           violations,
		PoliciesEvaluated:    v.PoliciesEvaluated,
		ConstraintsEvaluated: v.ConstraintsEvaluated,
		TrustImpact:          v.TrustImpact,
		RequiresApproval:     v.RequiresApproval,
		ApprovalTimeout:      v.ApprovalTimeout,
		RigorMode:            string(v.RigorMode),
		DecidedAt:            v.DecidedAt.Format(rfc3339),
		DurationMS:           v.DurationMS,
	}
}

func verdictFromResponse(r enforceResponse) model.Verdict {
	violations := make([]model.PolicyViolation, len(r.Violations))
	for i, vi := range r.Violations {
		violations[i] = model.PolicyViolation{
			PolicyID:         vi.PolicyID,
			ConstraintID:     vi.ConstraintID,
			Severity:         model.Severity(vi.Severity),
			Message:          vi.Message,
			Blocked:          vi.Blocked,
			RequiresApproval: vi.RequiresApproval,
			Remediation:      vi.Remediation,
		}
	}
	return model.Verdict{
		VerdictID:            r.VerdictID,
		IntentID:             r.IntentID,
		PlanID:               r.PlanID,
		Allowed:              r.Allowed,
		Action:               model.VerdictAction(r.Action),
		Violations:           violations,
		PoliciesEvaluated:    r.PoliciesEvaluated,
		ConstraintsEvaluated: r.ConstraintsEvaluated,
		TrustImpact:          r.TrustImpact,
		RequiresApproval:     r.RequiresApproval,
		ApprovalTimeout:      r.ApprovalTimeout,
		RigorMode:            model.RigorMode(r.RigorMode),
	}
}

type proofRecordDTO struct {
	ProofID       string         `json:"proof_id"`
	ChainPosition int            `json:"chain_position"`
	IntentID      string         `json:"intent_id"`
	VerdictID     string         `json:"verdict_id"`
	EntityID      string         `json:"entity_id"`
	ActionType    string         `json:"action_type"`
	Decision      string         `json:"decision"`
	InputsHash    string         `json:"inputs_hash"`
	OutputsHash   string         `json:"outputs_hash"`
	PreviousHash  string         `json:"previous_hash"`
	Hash          string         `json:"hash"`
	CreatedAt     string         `json:"created_at"`
}

func recordToDTO(r model.ProofRecord) proofRecordDTO {
	return proofRecordDTO{
		ProofID:       r.ProofID,
		ChainPosition: r.ChainPosition,
		IntentID:      r.IntentID,
		VerdictID:     r.VerdictID,
		EntityID:      r.EntityID,
		ActionType:    r.ActionType,
		Decision:      string(r.Decision),
		InputsHash:    r.InputsHash,
		OutputsHash:   r.OutputsHash,
		PreviousHash:  r.PreviousHash,
		Hash:          r.Hash,
		CreatedAt:     r.CreatedAt.Format(rfc3339),
	}
}

type verificationDTO struct {
	ProofID    string   `json:"proof_id"`
	Valid      bool     `json:"valid"`
	ChainValid bool     `json:"chain_valid"`
	Issues     []string `json:"issues"`
	VerifiedAt string   `json:"verified_at"`
}

func verificationToDTO(v model.ProofVerification) verificationDTO {
	issues := v.Issues
	if issues == nil {
		issues = []string{}
	}
	return verificationDTO{
		ProofID:    v.ProofID,
		Valid:      v.Valid,
		ChainValid: v.ChainValid,
		Issues:     issues,
		VerifiedAt: v.VerifiedAt.Format(rfc3339),
	}
}

type proofQueryRequest struct {
	EntityID  string `json:"entity_id"`
	IntentID  string `json:"intent_id"`
	VerdictID string `json:"verdict_id"`
	Decision  string `json:"decision"`
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
	Limit     int    `json:"limit"`
	Offset    int    `json:"offset"`
}

type statsDTO struct {
	TotalRecords      int            `json:"total_records"`
	ChainLength       int            `json:"chain_length"`
	LastRecordAt      string         `json:"last_record_at,omitempty"`
	RecordsByDecision map[string]int `json:"records_by_decision"`
	ChainIntegrity    bool           `json:"chain_integrity"`
}

func statsToDTO(s model.ProofStats) statsDTO {
	byDecision := make(map[string]int, len(s.RecordsByDecision))
	for k, v := range s.RecordsByDecision {
		byDecision[string(k)] = v
	}
	dto := statsDTO{
		TotalRecords:      s.TotalRecords,
		ChainLength:       s.ChainLength,
		RecordsByDecision: byDecision,
		ChainIntegrity:    s.ChainIntegrity,
	}
	if s.LastRecordAt != nil {
		dto.LastRecordAt = s.LastRecordAt.Format(rfc3339)
	}
	return dto
}

const rfc3339 = "2006-01-02T15:04:05.999999999Z07:00"
