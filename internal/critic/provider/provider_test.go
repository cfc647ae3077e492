package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vorion/cognigate/internal/model"
)

func TestNewSelectsProviderByName(t *testing.T) {
	tests := []struct {
		name     string
		wantType string
	}{
		{"anthropic", "*provider.Anthropic"},
		{"openai", "*provider.OpenAI"},
		{"google", "*provider.Google"},
		{"xai", "*provider.XAI"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := New(tt.name, Config{Model: "test-model"})
			require.NoError(t, err)
			assert.Equal(t, tt.wantType, fmt.Sprintf("%T", p))
			assert.Equal(t, "test-model", p.ModelName())
		})
	}
}

func TestNewRejectsUnknownProvider(t *testing.T) {
	_, err := New("unknown-vendor", Config{})
	assert.Error(t, err)
}

func TestParseVerdictStripsMarkdownFence(t *testing.T) {
	raw := "```json\n" + `{"judgment":"safe","confidence":0.9,"risk_adjustment":0.1,"hidden_risks":["a"],"reasoning":"ok","requires_human_review":false,"recommended_action":"proceed"}` + "\n```"
	v, err := parseVerdict("plan-1", "model-x", raw)
	require.NoError(t, err)
	assert.Equal(t, model.JudgmentSafe, v.Judgment)
	assert.Equal(t, 0.9, v.Confidence)
	assert.Equal(t, []string{"a"}, v.HiddenRisks)
	assert.Equal(t, "model-x", v.ModelUsed)
}

func TestParseVerdictClampsConfidenceAndAdjustment(t *testing.T) {
	raw := `{"judgment":"dangerous","confidence":5.0,"risk_adjustment":-9.0}`
	v, err := parseVerdict("plan-1", "model-x", raw)
	require.NoError(t, err)
	assert.Equal(t, 1.0, v.Confidence)
	assert.Equal(t, -0.5, v.RiskAdjustment)
}

func TestParseVerdictRejectsMalformedJSON(t *testing.T) {
	_, err := parseVerdict("plan-1", "model-x", "not json")
	assert.Error(t, err)
}

func TestOpenAIAnalyzeParsesChatCompletionResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		resp := chatResponse{Choices: []struct {
			Message chatMessage `json:"message"`
		}{
			{Message: chatMessage{Content: `{"judgment":"safe","confidence":0.8,"risk_adjustment":0,"recommended_action":"proceed"}`}},
		}}
		_ = json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	o := &OpenAI{cfg: Config{APIKey: "test-key", Model: "gpt-4o-mini"}, baseURL: server.URL}
	verdict, err := o.Analyze(context.Background(), model.CriticRequest{PlanID: "p1", Goal: "do a thing"})

	require.NoError(t, err)
	assert.Equal(t, model.JudgmentSafe, verdict.Judgment)
	assert.Equal(t, "gpt-4o-mini", verdict.ModelUsed)
}

func TestXAIAnalyzeParsesChatCompletionResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		resp := chatResponse{Choices: []struct {
			Message chatMessage `json:"message"`
		}{
			{Message: chatMessage{Content: `{"judgment":"suspicious","confidence":0.6,"risk_adjustment":0.2,"recommended_action":"escalate"}`}},
		}}
		_ = json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	x := &XAI{cfg: Config{APIKey: "test-key", Model: "grok-2-latest"}, baseURL: server.URL}
	verdict, err := x.Analyze(context.Background(), model.CriticRequest{PlanID: "p1"})

	require.NoError(t, err)
	assert.Equal(t, model.JudgmentSuspicious, verdict.Judgment)
}

func TestOpenAIAnalyzePropagatesClientError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer server.Close()

	o := &OpenAI{cfg: Config{APIKey: "test-key", Model: "gpt-4o-mini"}, baseURL: server.URL}
	_, err := o.Analyze(context.Background(), model.CriticRequest{PlanID: "p1"})
	assert.Error(t, err)
}
