package provider

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/vorion/cognigate/internal/critic"
	"github.com/vorion/cognigate/internal/model"
)

// OpenAI speaks the chat completions API; xAI's Grok endpoint is
// wire-compatible so XAI reuses the same request/response shapes.
type OpenAI struct {
	cfg     Config
	baseURL string
}

func NewOpenAI(cfg Config) *OpenAI {
	return &OpenAI{cfg: cfg, baseURL: "https://api.openai.com/v1/chat/completions"}
}

func (o *OpenAI) ModelName() string { return o.cfg.Model }

type chatRequest struct {
	Model       string        `json:"model"`
	Temperature float64       `json:"temperature"`
	Messages    []chatMessage `json:"messages"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

func (o *OpenAI) Analyze(ctx context.Context, req model.CriticRequest) (model.CriticVerdict, error) {
	payload, err := json.Marshal(chatRequest{
		Model:       o.cfg.Model,
		Temperature: o.cfg.Temperature,
		Messages: []chatMessage{
			{Role: "system", Content: critic.SystemPrompt},
			{Role: "user", Content: userPrompt(req)},
		},
	})
	if err != nil {
		return model.CriticVerdict{}, err
	}

	body, err := doWithRetry(ctx, o.cfg.client(), o.baseURL, map[string]string{
		"Authorization": "Bearer " + o.cfg.APIKey,
		"Content-Type":  "application/json",
	}, payload)
	if err != nil {
		return model.CriticVerdict{}, err
	}

	var resp chatResponse
	if err := json.Unmarshal(body, &resp); err != nil || len(resp.Choices) == 0 {
		return model.CriticVerdict{}, fmt.Errorf("openai: unexpected response shape: %w", err)
	}

	return parseVerdict(req.PlanID, o.cfg.Model, resp.Choices[0].Message.Content)
}
