package provider

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/vorion/cognigate/internal/critic"
	"github.com/vorion/cognigate/internal/model"
)

// XAI calls Grok's chat completions endpoint, which is wire-compatible
// with OpenAI's; it reuses chatRequest/chatResponse from openai.go.
type XAI struct {
	cfg     Config
	baseURL string
}

func NewXAI(cfg Config) *XAI {
	return &XAI{cfg: cfg, baseURL: "https://api.x.ai/v1/chat/completions"}
}

func (x *XAI) ModelName() string { return x.cfg.Model }

func (x *XAI) Analyze(ctx context.Context, req model.CriticRequest) (model.CriticVerdict, error) {
	payload, err := json.Marshal(chatRequest{
		Model:       x.cfg.Model,
		Temperature: x.cfg.Temperature,
		Messages: []chatMessage{
			{Role: "system", Content: critic.SystemPrompt},
			{Role: "user", Content: userPrompt(req)},
		},
	})
	if err != nil {
		return model.CriticVerdict{}, err
	}

	body, err := doWithRetry(ctx, x.cfg.client(), x.baseURL, map[string]string{
		"Authorization": "Bearer " + x.cfg.APIKey,
		"Content-Type":  "application/json",
	}, payload)
	if err != nil {
		return model.CriticVerdict{}, err
	}

	var resp chatResponse
	if err := json.Unmarshal(body, &resp); err != nil || len(resp.Choices) == 0 {
		return model.CriticVerdict{}, fmt.Errorf("xai: unexpected response shape: %w", err)
	}

	return parseVerdict(req.PlanID, x.cfg.Model, resp.Choices[0].Message.Content)
}
