package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"

	"github.com/vorion/cognigate/internal/critic"
	"github.com/vorion/cognigate/internal/model"
)

// Google calls Gemini's generateContent endpoint.
type Google struct {
	cfg Config
}

func NewGoogle(cfg Config) *Google { return &Google{cfg: cfg} }

func (g *Google) ModelName() string { return g.cfg.Model }

type geminiRequest struct {
	SystemInstruction geminiContent   `json:"systemInstruction"`
	Contents          []geminiContent `json:"contents"`
	GenerationConfig  struct {
		Temperature float64 `json:"temperature"`
	} `json:"generationConfig"`
}

type geminiContent struct {
	Role  string      `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiResponse struct {
	Candidates []struct {
		Content geminiContent `json:"content"`
	} `json:"candidates"`
}

func (g *Google) Analyze(ctx context.Context, req model.CriticRequest) (model.CriticVerdict, error) {
	payload, err := json.Marshal(geminiRequest{
		SystemInstruction: geminiContent{Parts: []geminiPart{{Text: critic.SystemPrompt}}},
		Contents: []geminiContent{
			{Role: "user", Parts: []geminiPart{{Text: userPrompt(req)}}},
		},
		GenerationConfig: struct {
			Temperature float64 `json:"temperature"`
		}{Temperature: g.cfg.Temperature},
	})
	if err != nil {
		return model.CriticVerdict{}, err
	}

	endpoint := fmt.Sprintf(
		"https://generativelanguage.googleapis.com/v1beta/models/%s:generateContent?key=%s",
		g.cfg.Model, url.QueryEscape(g.cfg.APIKey),
	)

	body, err := doWithRetry(ctx, g.cfg.client(), endpoint, map[string]string{
		"Content-Type": "application/json",
	}, payload)
	if err != nil {
		return model.CriticVerdict{}, err
	}

	var resp geminiResponse
	if err := json.Unmarshal(body, &resp); err != nil || len(resp.Candidates) == 0 || len(resp.Candidates[0].Content.Parts) == 0 {
		return model.CriticVerdict{}, fmt.Errorf("google: unexpected response shape: %w", err)
	}

	return parseVerdict(req.PlanID, g.cfg.Model, resp.Candidates[0].Content.Parts[0].Text)
}
