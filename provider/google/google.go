// Package google adapts the Google generative-ai SDK to the
// provider.Provider contract.
package google

import (
	"context"
	"fmt"
	"strings"

	genai "github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/relsen/agentgraph/provider"
)

// Provider wraps a Gemini client.
type Provider struct {
	apiKey       string
	defaultModel string
}

// New returns a Provider defaulting to modelName (falls back to
// gemini-1.5-pro).
func New(apiKey, modelName string) *Provider {
	if modelName == "" {
		modelName = "gemini-1.5-pro"
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

	client, err := genai.NewClient(ctx, option.WithAPIKey(p.apiKey))
	if err != nil {
		return provider.ErrorPrefix + translateError(err), nil
	}
	defer client.Close()

	gm := client.GenerativeModel(model)
	if req.SystemPrompt != "" {
		gm.SystemInstruction = genai.NewUserContent(genai.Text(req.SystemPrompt))
	}

	userMessage := req.UserMessage
	if req.Context != "" {
		userMessage = req.Context + "\n\n" + userMessage
	}

	resp, err := gm.GenerateContent(ctx, genai.Text(userMessage))
	if err != nil {
		return provider.ErrorPrefix + translateError(err), nil
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return provider.ErrorPrefix + "empty response from model", nil
	}

	var text strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if t, ok := part.(genai.Text); ok {
			text.WriteString(string(t))
		}
	}
	return text.String(), nil
}

func (p *Provider) Close() error { return nil }

func translateError(err error) string {
	msg := err.Error()
	lower := strings.ToLower(msg)
	switch {
	case strings.Contains(lower, "429") || strings.Contains(lower, "resource_exhausted"):
		return fmt.Sprintf("rate limit exceeded: %s", msg)
	case strings.Contains(lower, "401") || strings.Contains(lower, "permission_denied") || strings.Contains(lower, "unauthenticated"):
		return fmt.Sprintf("authentication failed: %s", msg)
	case strings.Contains(lower, "quota"):
		return fmt.Sprintf("quota exceeded: %s", msg)
	case strings.Contains(lower, "deadline") || strings.Contains(lower, "timeout"):
		return fmt.Sprintf("request timed out: %s", msg)
	case strings.Contains(lower, "not_found") || strings.Contains(lower, "unsupported"):
		return fmt.Sprintf("model unavailable: %s", msg)
	default:
		return msg
	}
}
