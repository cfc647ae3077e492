// Package provider implements the four critic adapters (Anthropic,
// OpenAI, Google, xAI) as thin net/http clients. No vendor SDK in the
// retrieval pack is wired into any SPEC_FULL.md component, so these
// adapters speak each vendor's plain HTTP chat-completion API directly
// and retry transient failures with cenkalti/backoff.
package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v5"

	"github.com/vorion/cognigate/internal/critic"
	"github.com/vorion/cognigate/internal/model"
)

// Config carries the HTTP client settings shared by every adapter.
type Config struct {
	APIKey      string
	Model       string
	Temperature float64
	Timeout     time.Duration
	HTTPClient  *http.Client
}

func (c Config) client() *http.Client {
	if c.HTTPClient != nil {
		return c.HTTPClient
	}
	return &http.Client{Timeout: c.Timeout}
}

// verdictPayload mirrors the JSON schema critic.SystemPrompt asks every
// provider to return.
type verdictPayload struct {
	Judgment            string   `json:"judgment"`
	Confidence          float64  `json:"confidence"`
	RiskAdjustment      float64  `json:"risk_adjustment"`
	HiddenRisks         []string `json:"hidden_risks"`
	Reasoning           string   `json:"reasoning"`
	Concerns            []string `json:"concerns"`
	RequiresHumanReview bool     `json:"requires_human_review"`
	RecommendedAction   string   `json:"recommended_action"`
}

func parseVerdict(planID, modelUsed, raw string) (model.CriticVerdict, error) {
	clean := critic.StripMarkdownFence(raw)
	var p verdictPayload
	if err := json.Unmarshal([]byte(clean), &p); err != nil {
		return model.CriticVerdict{}, fmt.Errorf("parse critic verdict: %w", err)
	}

	return model.CriticVerdict{
		PlanID:              planID,
		Judgment:            model.CriticJudgment(p.Judgment),
		Confidence:          clampUnit(p.Confidence),
		RiskAdjustment:      clampAdjustment(p.RiskAdjustment),
		HiddenRisks:         p.HiddenRisks,
		Reasoning:           p.Reasoning,
		Concerns:            p.Concerns,
		RequiresHumanReview: p.RequiresHumanReview,
		RecommendedAction:   model.RecommendedAction(p.RecommendedAction),
		ModelUsed:           modelUsed,
		CreatedAt:           time.Now().UTC(),
	}, nil
}

func clampUnit(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func clampAdjustment(v float64) float64 {
	if v < -0.5 {
		return -0.5
	}
	if v > 0.5 {
		return 0.5
	}
	return v
}

func userPrompt(req model.CriticRequest) string {
	return fmt.Sprintf(
		"Goal: %s\nPlanner risk score: %.2f\nPlanner reasoning: %s\nTools required: %v",
		req.Goal, req.PlannerRiskScore, req.PlannerReasoning, req.ToolsRequired,
	)
}

// doWithRetry posts body to url with the given headers, retrying
// transient failures (5xx, network errors) with exponential backoff.
func doWithRetry(ctx context.Context, client *http.Client, url string, headers map[string]string, body []byte) ([]byte, error) {
	op := func() (*http.Response, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
		if err != nil {
			return nil, backoff.Permanent(err)
		}
		for k, v := range headers {
			req.Header.Set(k, v)
		}
		resp, err := client.Do(req)
		if err != nil {
			return nil, err
		}
		if resp.StatusCode >= 500 {
			resp.Body.Close()
			return nil, fmt.Errorf("provider returned %d", resp.StatusCode)
		}
		if resp.StatusCode >= 400 {
			defer resp.Body.Close()
			b, _ := io.ReadAll(resp.Body)
			return nil, backoff.Permanent(fmt.Errorf("provider returned %d: %s", resp.StatusCode, b))
		}
		return resp, nil
	}

	resp, err := backoff.Retry(ctx, op, backoff.WithMaxTries(3))
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	return io.ReadAll(resp.Body)
}
