package providers

import (
	"context"
	"fmt"

	"github.com/adalundhe/greenroom/core/llm"
	"google.golang.org/genai"
)

// GoogleProvider implements llm.CompletionService for Gemini models.
type GoogleProvider struct {
	client *genai.Client
	config GoogleConfig
}

// NewGoogleProvider creates a new Google provider with the given configuration
func NewGoogleProvider(ctx context.Context, config GoogleConfig) (*GoogleProvider, error) {
	if config.Model == "" {
		config.Model = DefaultGoogleConfig().Model
	}
	if config.MaxTokens == 0 {
		config.MaxTokens = DefaultGoogleConfig().MaxTokens
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	clientConfig := &genai.ClientConfig{
		APIKey:  config.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if config.UseVertexAI {
		clientConfig.Backend = genai.BackendVertexAI
		clientConfig.Project = config.ProjectID
		clientConfig.Location = config.Location
	}

	client, err := genai.NewClient(ctx, clientConfig)
	if err != nil {
		return nil, fmt.Errorf("google client: %w", err)
	}

	return &GoogleProvider{
		client: client,
		config: config,
	}, nil
}

// Name returns the provider identifier
func (p *GoogleProvider) Name() string {
	return string(ProviderTypeGoogle)
}

// Complete performs a non-streaming completion request
func (p *GoogleProvider) Complete(ctx context.Context, system, prompt string, maxOutputTokens int) (*llm.Completion, error) {
	if maxOutputTokens <= 0 {
		maxOutputTokens = p.config.MaxTokens
	}

	genConfig := &genai.GenerateContentConfig{
		MaxOutputTokens: int32(maxOutputTokens),
	}
	if system != "" {
		genConfig.SystemInstruction = genai.NewContentFromText(system, genai.RoleUser)
	}

	result, err := p.client.Models.GenerateContent(ctx, p.config.Model, genai.Text(prompt), genConfig)
	if err != nil {
		return nil, fmt.Errorf("google complete: %w", err)
	}

	completion := &llm.Completion{Text: result.Text()}
	if result.UsageMetadata != nil {
		completion.InputTokens = int(result.UsageMetadata.PromptTokenCount)
		completion.OutputTokens = int(result.UsageMetadata.CandidatesTokenCount)
	}
	return completion, nil
}

// ValidateConfig checks if the provider configuration is valid
func (p *GoogleProvider) ValidateConfig() error {
	return p.config.Validate()
}

// DefaultModel returns the provider's default model
func (p *GoogleProvider) DefaultModel() string {
	return p.config.Model
}

// Close cleans up any resources
func (p *GoogleProvider) Close() error {
	return nil
}
