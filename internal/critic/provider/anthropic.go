package provider

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/vorion/cognigate/internal/critic"
	"github.com/vorion/cognigate/internal/model"
)

// Anthropic calls the Messages API directly; no SDK in the retrieval
// pack is wired into any component, so this speaks the HTTP contract.
type Anthropic struct {
	cfg Config
}

func NewAnthropic(cfg Config) *Anthropic { return &Anthropic{cfg: cfg} }

func (a *Anthropic) ModelName() string { return a.cfg.Model }

type anthropicRequest struct {
	Model       string               `json:"model"`
	MaxTokens   int                  `json:"max_tokens"`
	Temperature float64              `json:"temperature"`
	System      string               `json:"system"`
	Messages    []anthropicMessage   `json:"messages"`
}

type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type anthropicResponse struct {
	Content []struct {
		Text string `json:"text"`
	} `json:"content"`
}

func (a *Anthropic) Analyze(ctx context.Context, req model.CriticRequest) (model.CriticVerdict, error) {
	payload, err := json.Marshal(anthropicRequest{
		Model:       a.cfg.Model,
		MaxTokens:   1024,
		Temperature: a.cfg.Temperature,
		System:      critic.SystemPrompt,
		Messages:    []anthropicMessage{{Role: "user", Content: userPrompt(req)}},
	})
	if err != nil {
		return model.CriticVerdict{}, err
	}

	body, err := doWithRetry(ctx, a.cfg.client(), "https://api.anthropic.com/v1/messages", map[string]string{
		"x-api-key":         a.cfg.APIKey,
		"anthropic-version": "2023-06-01",
		"content-type":      "application/json",
	}, payload)
	if err != nil {
		return model.CriticVerdict{}, err
	}

	var resp anthropicResponse
	if err := json.Unmarshal(body, &resp); err != nil || len(resp.Content) == 0 {
		return model.CriticVerdict{}, fmt.Errorf("anthropic: unexpected response shape: %w", err)
	}

	return parseVerdict(req.PlanID, a.cfg.Model, resp.Content[0].Text)
}
