// Package bedrock adapts AWS Bedrock's InvokeModel API to the
// provider.Provider contract, for callers that want to route through AWS
// credentials instead of a direct Anthropic/OpenAI/Google key.
package bedrock

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"

	"github.com/relsen/agentgraph/provider"
)

// Provider wraps a bedrockruntime client. ModelID is an AWS Bedrock
// model identifier, e.g. "anthropic.claude-3-sonnet-20240229-v1:0".
type Provider struct {
	client       *bedrockruntime.Client
	defaultModel string
}

// New builds a Provider using the default AWS credential chain
// (environment, shared config, or instance role) for region.
func New(ctx context.Context, region, modelID string) (*Provider, error) {
	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("bedrock: load aws config: %w", err)
	}
	return &Provider{
		client:       bedrockruntime.NewFromConfig(cfg),
		defaultModel: modelID,
	}, nil
}

func (p *Provider) Initialize(ctx context.Context) (bool, error) {
	return p.client != nil, nil
}

func (p *Provider) HealthCheck(ctx context.Context) (bool, error) {
	_, err := p.Generate(ctx, provider.GenerateRequest{UserMessage: "ping", Model: p.defaultModel})
	return err == nil, nil
}

type anthropicOnBedrockBody struct {
	AnthropicVersion string                   `json:"anthropic_version"`
	MaxTokens        int                      `json:"max_tokens"`
	System           string                   `json:"system,omitempty"`
	Messages         []map[string]interface{} `json:"messages"`
}

type anthropicOnBedrockResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
}

func (p *Provider) Generate(ctx context.Context, req provider.GenerateRequest) (string, error) {
	model := req.Model
	if req.ModelOverride != "" {
		model = req.ModelOverride
	}
	if model == "" {
		model = p.defaultModel
	}

	userMessage := req.UserMessage
	if req.Context != "" {
		userMessage = req.Context + "\n\n" + userMessage
	}

	body, err := json.Marshal(anthropicOnBedrockBody{
		AnthropicVersion: "bedrock-2023-05-31",
		MaxTokens:        4096,
		System:           req.SystemPrompt,
		Messages: []map[string]interface{}{
			{"role": "user", "content": userMessage},
		},
	})
	if err != nil {
		return "", fmt.Errorf("bedrock: marshal request body: %w", err)
	}

	out, err := p.client.InvokeModel(ctx, &bedrockruntime.InvokeModelInput{
		ModelId:     aws.String(model),
		ContentType: aws.String("application/json"),
		Body:        body,
	})
	if err != nil {
		return provider.ErrorPrefix + translateError(err), nil
	}

	var resp anthropicOnBedrockResponse
	if err := json.Unmarshal(out.Body, &resp); err != nil {
		return provider.ErrorPrefix + "malformed bedrock response: " + err.Error(), nil
	}
	var text strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}
	return text.String(), nil
}

func (p *Provider) Close() error { return nil }

func translateError(err error) string {
	msg := err.Error()
	lower := strings.ToLower(msg)
	switch {
	case strings.Contains(lower, "throttling") || strings.Contains(lower, "toomanyrequests"):
		return fmt.Sprintf("rate limit exceeded: %s", msg)
	case strings.Contains(lower, "accessdenied") || strings.Contains(lower, "unrecognizedclient"):
		return fmt.Sprintf("authentication failed: %s", msg)
	case strings.Contains(lower, "servicequota"):
		return fmt.Sprintf("quota exceeded: %s", msg)
	case strings.Contains(lower, "context deadline") || strings.Contains(lower, "timeout"):
		return fmt.Sprintf("request timed out: %s", msg)
	case strings.Contains(lower, "modeltimeout") || strings.Contains(lower, "modelnotready") || strings.Contains(lower, "resourcenotfound"):
		return fmt.Sprintf("model unavailable: %s", msg)
	default:
		return msg
	}
}
