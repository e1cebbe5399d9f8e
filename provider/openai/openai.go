// Package openai adapts the official OpenAI SDK to the provider.Provider
// contract.
package openai

import (
	"context"
	"fmt"
	"strings"

	openaisdk "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/relsen/agentgraph/provider"
)

// Provider wraps an OpenAI chat-completions client.
type Provider struct {
	apiKey       string
	defaultModel string
}

// New returns a Provider defaulting to modelName (falls back to gpt-4o).
func New(apiKey, modelName string) *Provider {
	if modelName == "" {
		modelName = "gpt-4o"
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

	client := openaisdk.NewClient(option.WithAPIKey(p.apiKey))

	userMessage := req.UserMessage
	if req.Context != "" {
		userMessage = req.Context + "\n\n" + userMessage
	}

	messages := []openaisdk.ChatCompletionMessageParamUnion{}
	if req.SystemPrompt != "" {
		messages = append(messages, openaisdk.SystemMessage(req.SystemPrompt))
	}
	messages = append(messages, openaisdk.UserMessage(userMessage))

	resp, err := client.Chat.Completions.New(ctx, openaisdk.ChatCompletionNewParams{
		Model:    model,
		Messages: messages,
	})
	if err != nil {
		return provider.ErrorPrefix + translateError(err), nil
	}
	if len(resp.Choices) == 0 {
		return provider.ErrorPrefix + "empty response from model", nil
	}
	return resp.Choices[0].Message.Content, nil
}

func (p *Provider) Close() error { return nil }

func translateError(err error) string {
	msg := err.Error()
	lower := strings.ToLower(msg)
	switch {
	case strings.Contains(lower, "429") || strings.Contains(lower, "rate limit"):
		return fmt.Sprintf("rate limit exceeded: %s", msg)
	case strings.Contains(lower, "401") || strings.Contains(lower, "invalid_api_key"):
		return fmt.Sprintf("authentication failed: %s", msg)
	case strings.Contains(lower, "insufficient_quota") || strings.Contains(lower, "quota"):
		return fmt.Sprintf("quota exceeded: %s", msg)
	case strings.Contains(lower, "deadline") || strings.Contains(lower, "timeout"):
		return fmt.Sprintf("request timed out: %s", msg)
	case strings.Contains(lower, "model_not_found"):
		return fmt.Sprintf("model unavailable: %s", msg)
	default:
		return msg
	}
}
