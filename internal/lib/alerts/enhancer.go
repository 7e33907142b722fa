package alerts

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

// RawWarning is the scored-route context handed to the enhancer
type RawWarning struct {
	MaxRiskIndex       int      `json:"max_risk_index"`
	AverageRiskIndex   float64  `json:"average_risk_index"`
	RiskLevel          string   `json:"risk_level"`
	DominantCrimeTypes []string `json:"dominant_crime_types"`
	TemplateMessage    string   `json:"template_message"`
}

// WarningEnhancer rewrites template route warnings into traveler-friendly
// text. Enhancement is best-effort; callers fall back to the template on error.
type WarningEnhancer interface {
	EnhanceWarning(ctx context.Context, raw RawWarning) (string, error)
}

const warningSystemPrompt = `You are a personal-safety assistant for a walking navigation app. Rewrite route risk warnings into short, calm, actionable messages for pedestrians.

Instructions:
- Never exaggerate or use alarmist language.
- Mention the dominant incident types in plain words when provided.
- Keep it under 160 characters, one sentence where possible.
- Do not include numbers, scores, or percentages.

Return a valid JSON object with exactly one field:
- warning_message (string) - the rewritten warning`

// alertEnhancer implements WarningEnhancer using OpenAI
type alertEnhancer struct {
	client *openai.Client
	model  string
}

// NewWarningEnhancer creates a new WarningEnhancer. An empty API key yields
// an enhancer whose calls fail, which callers treat as "use the template".
func NewWarningEnhancer(apiKey, model string) WarningEnhancer {
	if apiKey == "" {
		return &alertEnhancer{client: nil, model: model}
	}
	return &alertEnhancer{
		client: openai.NewClient(apiKey),
		model:  model,
	}
}

// EnhanceWarning asks the model for a rewritten warning message
func (a *alertEnhancer) EnhanceWarning(ctx context.Context, raw RawWarning) (string, error) {
	if a.client == nil {
		return "", errors.New("OpenAI client not initialized - missing API key")
	}

	userPrompt := fmt.Sprintf(`Rewrite this route warning for a pedestrian:

Template: %s
Risk level: %s
Dominant incident types: %s`,
		raw.TemplateMessage,
		raw.RiskLevel,
		strings.Join(raw.DominantCrimeTypes, ", "))

	resp, err := a.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: a.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: warningSystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: userPrompt},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Temperature: 0.3,
		MaxTokens:   200,
	})
	if err != nil {
		return "", fmt.Errorf("OpenAI API error: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("no response from OpenAI API")
	}

	var parsed struct {
		WarningMessage string `json:"warning_message"`
	}
	if err := json.Unmarshal([]byte(resp.Choices[0].Message.Content), &parsed); err != nil {
		return "", fmt.Errorf("failed to parse enhancement response: %w", err)
	}
	if strings.TrimSpace(parsed.WarningMessage) == "" {
		return "", errors.New("enhancement returned an empty warning")
	}

	return parsed.WarningMessage, nil
}
