package llm

import (
	"context"
	"fmt"

	"google.golang.org/genai"

	"github.com/karthiknish/profici-comp-sub000/internal/config"
	"github.com/karthiknish/profici-comp-sub000/internal/core"
)

// GeminiProvider calls Gemini through the genai SDK, either the Gemini API or
// Vertex AI.
type GeminiProvider struct {
	client    *genai.Client
	modelName string
	genConfig *genai.GenerateContentConfig
}

// NewGeminiProvider creates a Gemini provider from configuration.
func NewGeminiProvider(ctx context.Context, cfg config.GeminiConfig) (*GeminiProvider, error) {
	clientConfig := &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if cfg.Backend == BackendVertex {
		location := cfg.Location
		if location == "" {
			location = DefaultVertexLocation
		}
		clientConfig = &genai.ClientConfig{
			Project:  cfg.Project,
			Location: location,
			Backend:  genai.BackendVertexAI,
		}
	}

	client, err := genai.NewClient(ctx, clientConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	modelName := cfg.Model
	if modelName == "" {
		modelName = DefaultGeminiModel
	}

	var genConfig *genai.GenerateContentConfig
	if cfg.MaxTokens > 0 || cfg.Temperature > 0 {
		genConfig = &genai.GenerateContentConfig{}
		if cfg.MaxTokens > 0 {
			genConfig.MaxOutputTokens = cfg.MaxTokens
		}
		if cfg.Temperature > 0 {
			temp := cfg.Temperature
			genConfig.Temperature = &temp
		}
	}

	return &GeminiProvider{client: client, modelName: modelName, genConfig: genConfig}, nil
}

// Generate sends one user prompt. The SDK response is returned as is; its
// Text accessor is read by the decoder.
func (p *GeminiProvider) Generate(ctx context.Context, prompt string) (core.Response, error) {
	contents := []*genai.Content{{
		Parts: []*genai.Part{{Text: prompt}},
		Role:  "user",
	}}

	resp, err := p.client.Models.GenerateContent(ctx, p.modelName, contents, p.genConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to generate content: %w", err)
	}
	return resp, nil
}

// Model returns the model name.
func (p *GeminiProvider) Model() string {
	return p.modelName
}
