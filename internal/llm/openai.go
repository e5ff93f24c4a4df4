package llm

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"github.com/karthiknish/profici-comp-sub000/internal/config"
	"github.com/karthiknish/profici-comp-sub000/internal/core"
)

const jsonSystemPrompt = "You are a JSON generator. Output only a JSON object and nothing else."

type chatGenerator interface {
	Generate(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.Message, error)
}

// OpenAIProvider calls any OpenAI-compatible chat endpoint through eino.
type OpenAIProvider struct {
	chat      chatGenerator
	modelName string
}

// NewOpenAIProvider creates an OpenAI-compatible provider.
func NewOpenAIProvider(ctx context.Context, cfg config.OpenAIConfig) (*OpenAIProvider, error) {
	modelName := cfg.Model
	if modelName == "" {
		modelName = DefaultOpenAIModel
	}

	chatModel, err := openai.NewChatModel(ctx, &openai.ChatModelConfig{
		BaseURL: cfg.BaseURL,
		APIKey:  cfg.APIKey,
		Model:   modelName,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create OpenAI chat model: %w", err)
	}

	return &OpenAIProvider{chat: chatModel, modelName: modelName}, nil
}

// Generate sends the prompt as a user message behind a JSON-only system message.
func (p *OpenAIProvider) Generate(ctx context.Context, prompt string) (core.Response, error) {
	messages := []*schema.Message{
		{
			Role:    schema.System,
			Content: jsonSystemPrompt,
		},
		{
			Role:    schema.User,
			Content: prompt,
		},
	}

	resp, err := p.chat.Generate(ctx, messages)
	if err != nil {
		return nil, fmt.Errorf("failed to generate content: %w", err)
	}
	if resp == nil {
		return nil, fmt.Errorf("empty response from model")
	}
	return core.TextResponse(resp.Content), nil
}

// Model returns the model name.
func (p *OpenAIProvider) Model() string {
	return p.modelName
}
