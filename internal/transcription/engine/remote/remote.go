// Package remote is the production Transcription Engine, backed by
// anthropics/anthropic-sdk-go: GenerateSummary, ExtractActionItems and
// SuggestNextSteps are each one "send context, get structured content back"
// call against a Claude model. TranscribeChunk and IdentifySpeaker make no
// call and always return an error: this engine does not transcribe audio.
package remote

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/yourusername/meeting-intelligence/internal/transcription/engine"
	"github.com/yourusername/meeting-intelligence/internal/transcription/types"
)

func init() {
	engine.Register("remote", func() engine.Engine { return New() })
}

const defaultModel = anthropic.ModelClaude3_5SonnetLatest

// Engine is the anthropic-sdk-go-backed production engine.
type Engine struct {
	client *anthropic.Client
	model  anthropic.Model
}

func New() *Engine {
	return &Engine{model: defaultModel}
}

func (e *Engine) Initialize(ctx context.Context, cfg engine.Config) error {
	if cfg.APIKey == "" {
		return fmt.Errorf("remote engine: API key not configured")
	}
	client := anthropic.NewClient(option.WithAPIKey(cfg.APIKey))
	e.client = &client
	if cfg.Model != "" {
		e.model = anthropic.Model(cfg.Model)
	}
	return nil
}

func (e *Engine) complete(ctx context.Context, prompt string) (string, error) {
	if e.client == nil {
		return "", fmt.Errorf("remote engine: not initialized")
	}
	msg, err := e.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     e.model,
		MaxTokens: 1024,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	})
	if err != nil {
		return "", fmt.Errorf("remote engine: %w", err)
	}
	var b strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			b.WriteString(block.Text)
		}
	}
	return b.String(), nil
}

func (e *Engine) TranscribeChunk(ctx context.Context, audio types.AudioChunk) (types.TranscriptChunk, error) {
	return types.TranscriptChunk{}, fmt.Errorf("remote engine: raw audio transcription requires a streaming STT vendor, not wired in this deployment")
}

func (e *Engine) IdentifySpeaker(ctx context.Context, audio types.AudioChunk) (types.Speaker, error) {
	return types.Speaker{}, fmt.Errorf("remote engine: speaker identification requires a streaming STT vendor, not wired in this deployment")
}

func (e *Engine) GenerateSummary(ctx context.Context, fullText string, speakers []types.Speaker) (types.MeetingSummary, error) {
	prompt := fmt.Sprintf(`Summarize the following meeting transcript. Respond ONLY with JSON of the shape
{"summary_text": string, "key_points": [string], "decisions": [string], "confidence": number between 0 and 1}.

Transcript:
%s`, fullText)

	raw, err := e.complete(ctx, prompt)
	if err != nil {
		return types.MeetingSummary{}, err
	}

	var parsed struct {
		SummaryText string   `json:"summary_text"`
		KeyPoints   []string `json:"key_points"`
		Decisions   []string `json:"decisions"`
		Confidence  float64  `json:"confidence"`
	}
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		return types.MeetingSummary{}, fmt.Errorf("remote engine: parsing summary response: %w", err)
	}

	return types.MeetingSummary{
		SummaryText:      parsed.SummaryText,
		KeyPoints:        parsed.KeyPoints,
		Decisions:        parsed.Decisions,
		EngineConfidence: parsed.Confidence,
	}, nil
}

func (e *Engine) ExtractActionItems(ctx context.Context, fullText string) ([]types.ActionItemDraft, error) {
	prompt := fmt.Sprintf(`Extract action items from the following meeting transcript. Respond ONLY with a JSON array of
{"description": string, "assignee": string, "due_date": string, "priority": "low"|"medium"|"high", "confidence": number, "source_text": string}.

Transcript:
%s`, fullText)

	raw, err := e.complete(ctx, prompt)
	if err != nil {
		return nil, err
	}

	var items []types.ActionItemDraft
	if err := json.Unmarshal([]byte(raw), &items); err != nil {
		return nil, fmt.Errorf("remote engine: parsing action items response: %w", err)
	}
	return items, nil
}

func (e *Engine) SuggestNextSteps(ctx context.Context, fullText, summaryText string) ([]string, error) {
	prompt := fmt.Sprintf(`Given this meeting summary, suggest up to 5 concrete next steps. Respond ONLY with a JSON array of strings.

Summary:
%s`, summaryText)

	raw, err := e.complete(ctx, prompt)
	if err != nil {
		return nil, err
	}

	var steps []string
	if err := json.Unmarshal([]byte(raw), &steps); err != nil {
		return nil, fmt.Errorf("remote engine: parsing next steps response: %w", err)
	}
	return steps, nil
}
