// Package gateway composes the ten components into the two request-scoped
// flows (Intent and Enforce). It is the only thing allowed to construct
// and mutate trust, velocity, circuit, cache, and ledger state, replacing
// the prototype's module-level singletons with one explicit value
// constructed at startup (spec §9 redesign).
package gateway

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/vorion/cognigate/core"
	"github.com/vorion/cognigate/internal/breaker"
	"github.com/vorion/cognigate/internal/cache"
	"github.com/vorion/cognigate/internal/critic"
	"github.com/vorion/cognigate/internal/ledger"
	"github.com/vorion/cognigate/internal/model"
	"github.com/vorion/cognigate/internal/planner"
	"github.com/vorion/cognigate/internal/policy"
	"github.com/vorion/cognigate/internal/tripwire"
	"github.com/vorion/cognigate/internal/trust"
	"github.com/vorion/cognigate/internal/velocity"
)

// tracer is resolved lazily against whatever global TracerProvider is
// installed (telemetry.Setup in production, the SDK's no-op default in
// tests), so the gateway never has to thread a Provider through Deps.
func tracer() trace.Tracer { return otel.Tracer("cognigate/gateway") }

// Gateway owns every piece of mutable gateway state and wires the ten
// components into the Intent and Enforce flows.
type Gateway struct {
	logger core.Logger

	tripwire *tripwire.Matcher
	velocity *velocity.Limiter
	breaker  *breaker.Breaker
	trust    *trust.Registry
	catalog  []model.Policy
	cache    *cache.Cache
	ledger   *ledger.Ledger

	reviewer     *critic.Reviewer
	criticOn     bool
	requestDeadline time.Duration
	criticDeadline  time.Duration

	intentStore *intentStore
}

// Deps carries the already-constructed components a Gateway composes.
// Built this way (rather than each field taking raw config) so tests can
// substitute fakes per component without reconstructing the whole tree.
type Deps struct {
	Logger          core.Logger
	Tripwire        *tripwire.Matcher
	Velocity        *velocity.Limiter
	Breaker         *breaker.Breaker
	Trust           *trust.Registry
	Catalog         []model.Policy
	Cache           *cache.Cache
	Ledger          *ledger.Ledger
	Reviewer        *critic.Reviewer
	CriticEnabled   bool
	RequestDeadline time.Duration
	CriticDeadline  time.Duration
}

// New builds a Gateway from already-constructed components.
func New(d Deps) *Gateway {
	logger := d.Logger
	if logger == nil {
		logger = &core.NoOpLogger{}
	}
	return &Gateway{
		logger:          logger,
		tripwire:        d.Tripwire,
		velocity:        d.Velocity,
		breaker:         d.Breaker,
		trust:           d.Trust,
		catalog:         d.Catalog,
		cache:           d.Cache,
		ledger:          d.Ledger,
		reviewer:        d.Reviewer,
		criticOn:        d.CriticEnabled,
		requestDeadline: d.RequestDeadline,
		criticDeadline:  d.CriticDeadline,
		intentStore:     newIntentStore(256),
	}
}

// IntentResult is the outcome of the Intent flow.
type IntentResult struct {
	IntentID   string
	Status     string // "normalized" or "blocked"
	Plan       *model.Plan
	TrustLevel model.TrustLevel
	TrustScore int
	DurationMS float64
}

// Intent runs tripwire -> (block or planner) -> (critic iff gate) and
// records the normalized plan for later lookup.
func (g *Gateway) Intent(ctx context.Context, entityID, goal string) IntentResult {
	ctx, span := tracer().Start(ctx, "gateway.intent", trace.WithAttributes(attribute.String("entity_id", entityID)))
	defer span.End()

	start := time.Now()
	planID := model.NewPlanID()
	intentID := model.IntentIDFromPlan(planID)

	if hit := g.tripwire.Check(goal); hit.Triggered {
		plan := &model.Plan{
			PlanID:         planID,
			Goal:           goal,
			RiskScore:      1.0,
			ReasoningTrace: "blocked by tripwire pattern " + hit.PatternName,
			ToolsRequired:  []string{model.ToolBlockedMark},
		}
		g.breaker.Record(breaker.Outcome{
			EntityID:  entityID,
			RiskScore: 1.0,
			Tripwire:  true,
			Injection: isInjectionPattern(hit.PatternName),
			Blocked:   true,
		})
		result := IntentResult{
			IntentID:   intentID,
			Status:     "blocked",
			Plan:       plan,
			TrustLevel: model.TrustUntrusted,
			TrustScore: 0,
			DurationMS: elapsedMS(start),
		}
		g.intentStore.put(intentID, result)
		return result
	}

	plan := planner.Analyze(planID, goal)

	if g.criticOn && critic.ShouldGate(plan) {
		critCtx, cancel := context.WithTimeout(ctx, g.criticDeadline)
		verdict := g.reviewer.Review(critCtx, model.CriticRequest{
			PlanID:           plan.PlanID,
			Goal:             plan.Goal,
			PlannerRiskScore: plan.RiskScore,
			PlannerReasoning: plan.ReasoningTrace,
			ToolsRequired:    plan.ToolsRequired,
		})
		cancel()

		plan = critic.Apply(plan, verdict)

		if verdict.Judgment == model.JudgmentBlock {
			blocked := *plan
			blocked.RiskScore = 1.0
			result := IntentResult{
				IntentID:   intentID,
				Status:     "blocked",
				Plan:       &blocked,
				TrustLevel: model.TrustUntrusted,
				TrustScore: 0,
				DurationMS: elapsedMS(start),
			}
			g.intentStore.put(intentID, result)
			return result
		}
	}

	state := g.trust.Get(entityID)
	result := IntentResult{
		IntentID:   intentID,
		Status:     "normalized",
		Plan:       plan,
		TrustLevel: state.Level,
		TrustScore: state.Score,
		DurationMS: elapsedMS(start),
	}
	g.intentStore.put(intentID, result)
	return result
}

// LookupIntent returns a previously normalized intent by id.
func (g *Gateway) LookupIntent(intentID string) (IntentResult, bool) {
	return g.intentStore.get(intentID)
}

// EnforceResult is the outcome of the Enforce flow.
type EnforceResult struct {
	Verdict model.Verdict
}

// Enforce runs circuit.allow -> velocity.check -> determine_rigor ->
// cache.get or (filter_policies -> evaluate -> cache.put) ->
// velocity.record -> circuit.record -> response.
func (g *Gateway) Enforce(ctx context.Context, entityID string, plan *model.Plan) EnforceResult {
	ctx, span := tracer().Start(ctx, "gateway.enforce", trace.WithAttributes(
		attribute.String("entity_id", entityID),
		attribute.String("plan_id", plan.PlanID),
	))
	defer span.End()

	start := time.Now()
	now := time.Now()
	verdictID := model.NewVerdictID()
	intentID := model.IntentIDFromPlan(plan.PlanID)

	deadline, cancel := context.WithTimeout(ctx, g.requestDeadline)
	defer cancel()

	if !g.breaker.Allow(entityID) {
		return g.denyResult(verdictID, intentID, "system-circuit-breaker", "circuit breaker is open or entity halted", start)
	}

	trustState := g.trust.Get(entityID)

	select {
	case <-deadline.Done():
		return g.timeoutResult(verdictID, intentID, start)
	default:
	}

	vDecision := g.velocity.Check(entityID, trustState.Level, now)
	if !vDecision.Allowed {
		if halted := g.breaker.RecordVelocityViolation(entityID); halted {
			g.trust.Apply(entityID, trust.ImpactCircuitDenial, now)
		} else {
			g.trust.Apply(entityID, trust.ImpactVelocityViolation, now)
		}
		return g.velocityDenyResult(verdictID, intentID, vDecision, start)
	}

	rigor := policy.RigorForTrust(trustState.Level)
	filtered := policy.FilterPolicies(g.catalog, rigor)
	policyIDs := policyIDs(filtered)

	key := cache.Key(plan.PlanID, policyIDs, trustState.Level, rigor)
	var (
		violations           []model.PolicyViolation
		constraintsEvaluated int
		action               model.VerdictAction
		allowed              bool
		trustImpact          int
		approvalTimeout      string
	)

	if entry, hit := g.cache.Get(key); hit {
		violations = entry.Violations
		constraintsEvaluated = entry.ConstraintsEvaluated
		action = entry.Action
		allowed = entry.Allowed
		trustImpact = entry.TrustImpact
		approvalTimeout = entry.ApprovalTimeout
	} else {
		violations, constraintsEvaluated = policy.Evaluate(filtered, plan, trustState.Level)
		action, allowed, trustImpact, approvalTimeout = policy.Decide(violations)
		g.cache.Put(key, cache.Entry{
			Allowed:              allowed,
			Action:               action,
			Violations:           violations,
			PoliciesEvaluated:    policyIDs,
			ConstraintsEvaluated: constraintsEvaluated,
			TrustImpact:          trustImpact,
			RequiresApproval:     action == model.ActionEscalate,
			ApprovalTimeout:      approvalTimeout,
			RigorMode:            rigor,
		})
	}

	g.velocity.Record(entityID, now)

	g.trust.Apply(entityID, trustImpact, now)

	g.breaker.Record(breaker.Outcome{
		EntityID:    entityID,
		RiskScore:   plan.RiskScore,
		CriticBlock: action == model.ActionDeny && hasViolationID(violations, "high-risk-block"),
		Blocked:     !allowed,
	})

	verdict := model.Verdict{
		VerdictID:            verdictID,
		IntentID:             intentID,
		PlanID:               plan.PlanID,
		Allowed:              allowed,
		Action:               action,
		Violations:           violations,
		PoliciesEvaluated:    policyIDs,
		ConstraintsEvaluated: constraintsEvaluated,
		TrustImpact:          trustImpact,
		RequiresApproval:     action == model.ActionEscalate,
		ApprovalTimeout:      approvalTimeout,
		RigorMode:            rigor,
		DecidedAt:            now.UTC(),
		DurationMS:           elapsedMS(start),
	}
	return EnforceResult{Verdict: verdict}
}

// AppendProof records a decided verdict to the ledger. Called by the HTTP
// layer (POST /v1/proof), never implicitly from Enforce, so a caller can
// choose not to record advisory dry runs.
func (g *Gateway) AppendProof(entityID string, v model.Verdict) model.ProofRecord {
	return g.ledger.Append(v.IntentID, v.VerdictID, entityID, v.PlanID, "enforce", v.PoliciesEvaluated, v, time.Now().UTC())
}

func (g *Gateway) Ledger() *ledger.Ledger { return g.ledger }

func (g *Gateway) Policies() []model.Policy { return g.catalog }

// Admin surface: manual overrides the orchestrator exposes to operators,
// never reachable from the Intent/Enforce request paths themselves.

// ThrottleEntity manually throttles an entity until the given deadline.
func (g *Gateway) ThrottleEntity(entityID string, until time.Time) {
	g.velocity.Throttle(entityID, until)
}

// HaltEntity halts an entity and cascades to its registered children.
func (g *Gateway) HaltEntity(entityID string) {
	g.breaker.Halt(entityID)
}

// UnhaltEntity clears an entity's halted status and violation counter.
func (g *Gateway) UnhaltEntity(entityID string) {
	g.breaker.Unhalt(entityID)
}

// RegisterChild records a parent-child cascade-halt relationship.
func (g *Gateway) RegisterChild(parentID, childID string) {
	g.breaker.RegisterChild(parentID, childID)
}

// BreakerState reports the circuit breaker's current state, for the admin
// surface and health checks.
func (g *Gateway) BreakerState() breaker.State {
	return g.breaker.State()
}

func (g *Gateway) denyResult(verdictID, intentID, constraintID, message string, start time.Time) EnforceResult {
	return EnforceResult{Verdict: model.Verdict{
		VerdictID: verdictID,
		IntentID:  intentID,
		Allowed:   false,
		Action:    model.ActionDeny,
		Violations: []model.PolicyViolation{{
			ConstraintID: constraintID,
			Severity:     model.SeverityCritical,
			Message:      message,
			Blocked:      true,
		}},
		DecidedAt:  time.Now().UTC(),
		DurationMS: elapsedMS(start),
	}}
}

func (g *Gateway) velocityDenyResult(verdictID, intentID string, d velocity.Decision, start time.Time) EnforceResult {
	return EnforceResult{Verdict: model.Verdict{
		VerdictID: verdictID,
		IntentID:  intentID,
		Allowed:   false,
		Action:    model.ActionDeny,
		Violations: []model.PolicyViolation{{
			ConstraintID: "system-velocity-caps",
			Severity:     model.SeverityCritical,
			Message:      "velocity limit exceeded for tier " + d.Tier,
			Blocked:      true,
		}},
		TrustImpact: trust.ImpactVelocityViolation,
		DecidedAt:   time.Now().UTC(),
		DurationMS:  elapsedMS(start),
	}}
}

func (g *Gateway) timeoutResult(verdictID, intentID string, start time.Time) EnforceResult {
	return EnforceResult{Verdict: model.Verdict{
		VerdictID: verdictID,
		IntentID:  intentID,
		Allowed:   false,
		Action:    model.ActionEscalate,
		Violations: []model.PolicyViolation{{
			ConstraintID: "system-timeout",
			Severity:     model.SeverityHigh,
			Message:      "request exceeded its enforcement deadline",
		}},
		DecidedAt:  time.Now().UTC(),
		DurationMS: elapsedMS(start),
	}}
}

func policyIDs(policies []model.Policy) []string {
	ids := make([]string, len(policies))
	for i, p := range policies {
		ids[i] = p.ID
	}
	return ids
}

func hasViolationID(violations []model.PolicyViolation, constraintID string) bool {
	for _, v := range violations {
		if v.ConstraintID == constraintID {
			return true
		}
	}
	return false
}

func elapsedMS(start time.Time) float64 {
	return float64(time.Since(start).Microseconds()) / 1000.0
}

// isInjectionPattern classifies which tripwire pattern names represent a
// prompt-injection attempt specifically, feeding the circuit breaker's
// separate injection-attempt trip condition (spec §4.3 condition 3).
func isInjectionPattern(name string) bool {
	return name == "prompt-injection-ignore-instructions" || name == "prompt-injection-system-override"
}
