// Package anthropic adapts the official Anthropic SDK to the
// provider.Provider contract.
package anthropic

import (
	"context"
	"fmt"
	"strings"

	anthropicsdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/relsen/agentgraph/provider"
)

// Provider wraps an Anthropic client. The zero-value apiKey is invalid;
// use New.
type Provider struct {
	apiKey       string
	defaultModel string
}

// New returns a Provider defaulting to modelName when a request doesn't
// specify an override.
func New(apiKey, modelName string) *Provider {
	if modelName == "" {
		modelName = "claude-sonnet-4-5-20250929"
	}
	return &Provider{apiKey: apiKey, defaultModel: modelName}
}

func (p *Provider) Initialize(ctx context.Context) (bool, error) {
	return p.apiKey != "", nil
}

func (p *Provider) HealthCheck(ctx context.Context) (bool, error) {
	if p.apiKey == "" {
		return false, nil
	}
	_, err := p.Generate(ctx, provider.GenerateRequest{UserMessage: "ping", Model: p.defaultModel})
	return err == nil, nil
}

func (p *Provider) Generate(ctx context.Context, req provider.GenerateRequest) (string, error) {
	if p.apiKey == "" {
		return provider.ErrorPrefix + "authentication failed: missing API key", nil
	}

	model := req.Model
	if req.ModelOverride != "" {
		model = req.ModelOverride
	}
	if model == "" {
		model = p.defaultModel
	}

	client := anthropicsdk.NewClient(option.WithAPIKey(p.apiKey))

	userMessage := req.UserMessage
	if req.Context != "" {
		userMessage = req.Context + "\n\n" + userMessage
	}

	params := anthropicsdk.MessageNewParams{
		Model:     anthropicsdk.Model(model),
		Messages:  []anthropicsdk.MessageParam{anthropicsdk.NewUserMessage(anthropicsdk.NewTextBlock(userMessage))},
		MaxTokens: 4096,
	}
	if req.SystemPrompt != "" {
		params.System = []anthropicsdk.TextBlockParam{{Text: req.SystemPrompt}}
	}

	resp, err := client.Messages.New(ctx, params)
	if err != nil {
		return provider.ErrorPrefix + translateError(err), nil
	}

	var text strings.Builder
	for _, block := range resp.Content {
		if tb, ok := block.AsAny().(anthropicsdk.TextBlock); ok {
			if text.Len() > 0 {
				text.WriteByte('\n')
			}
			text.WriteString(tb.Text)
		}
	}
	return text.String(), nil
}

func (p *Provider) Close() error { return nil }

// translateError maps the SDK's error surface onto the substring
// vocabulary the failover classifier looks for (rate limit / timeout /
// auth / quota / unavailable), since the Anthropic SDK raises typed Go
// errors rather than returning the "Error: " convention itself.
func translateError(err error) string {
	msg := err.Error()
	lower := strings.ToLower(msg)
	switch {
	case strings.Contains(lower, "429") || strings.Contains(lower, "rate limit"):
		return fmt.Sprintf("rate limit exceeded: %s", msg)
	case strings.Contains(lower, "401") || strings.Contains(lower, "authentication"):
		return fmt.Sprintf("authentication failed: %s", msg)
	case strings.Contains(lower, "insufficient_quota") || strings.Contains(lower, "quota"):
		return fmt.Sprintf("quota exceeded: %s", msg)
	case strings.Contains(lower, "deadline") || strings.Contains(lower, "timeout"):
		return fmt.Sprintf("request timed out: %s", msg)
	case strings.Contains(lower, "model_not_found") || strings.Contains(lower, "not_found_error"):
		return fmt.Sprintf("model unavailable: %s", msg)
	default:
		return msg
	}
}
