// Package ai talks to the OpenAI compatible chat completion APIs (OpenAI and
// xAI) and turns their JSON answers into domain payloads.
package ai

import (
	"context"
	"fmt"
	"time"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"go.uber.org/zap"

	"github.com/kapu/pulse-kit-go/internal/constants"
	"github.com/kapu/pulse-kit-go/internal/prompt"
)

// Schema is a named JSON schema for structured output.
type Schema struct {
	Name   string
	Strict bool
	Body   map[string]any
}

// Request is one structured generation call.
type Request struct {
	Operation   string
	Messages    prompt.Messages
	Schema      Schema
	Model       string
	Temperature float64
	MaxTokens   int
	// Extra sets additional top-level body fields, e.g. search_parameters.
	Extra map[string]any
	// Pinned requests never fall back to another provider.
	Pinned bool
}

type JSONProvider interface {
	Name() string
	Generate(ctx context.Context, req Request) (ProviderResult, error)
	Ping(ctx context.Context) bool
}

type ProviderResult struct {
	Text  string
	Model string
}

// OpenAIProvider wraps an OpenAI compatible chat completion client. xAI is
// served by the same type pointed at its base URL.
type OpenAIProvider struct {
	name         string
	client       *openai.Client
	defaultModel string
	logger       *zap.Logger
}

// ProviderSettings configures one OpenAIProvider.
type ProviderSettings struct {
	Name    string
	APIKey  string
	Model   string
	BaseURL string
}

// NewOpenAIProvider returns nil when no API key is configured.
func NewOpenAIProvider(settings ProviderSettings, logger *zap.Logger) *OpenAIProvider {
	if settings.APIKey == "" {
		return nil
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	opts := []option.RequestOption{
		option.WithAPIKey(settings.APIKey),
		option.WithRequestTimeout(constants.ProviderConfig.RequestTimeout),
		option.WithMaxRetries(1),
	}
	if settings.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(settings.BaseURL))
	}
	client := openai.NewClient(opts...)

	return &OpenAIProvider{
		name:         settings.Name,
		client:       &client,
		defaultModel: settings.Model,
		logger:       logger,
	}
}

func (o *OpenAIProvider) Name() string {
	return o.name
}

func (o *OpenAIProvider) Generate(ctx context.Context, req Request) (ProviderResult, error) {
	if o.client == nil {
		return ProviderResult{}, fmt.Errorf("%s client not initialized", o.name)
	}

	modelName := o.getModel(req)
	params := openai.ChatCompletionNewParams{
		Model: modelName,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(req.Messages.System),
			openai.UserMessage(req.Messages.User),
		},
		Temperature: openai.Float(req.Temperature),
	}
	if req.MaxTokens > 0 {
		params.MaxCompletionTokens = openai.Int(int64(req.MaxTokens))
	}
	if req.Schema.Body != nil {
		params.ResponseFormat = openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONSchema: &openai.ResponseFormatJSONSchemaParam{
				JSONSchema: openai.ResponseFormatJSONSchemaJSONSchemaParam{
					Name:   req.Schema.Name,
					Schema: req.Schema.Body,
					Strict: openai.Bool(req.Schema.Strict),
				},
			},
		}
	}

	var reqOpts []option.RequestOption
	for key, value := range req.Extra {
		reqOpts = append(reqOpts, option.WithJSONSet(key, value))
	}

	o.logger.Debug("Generating structured output",
		zap.String("provider", o.name),
		zap.String("model", modelName),
		zap.String("operation", req.Operation),
		zap.Float64("temperature", req.Temperature),
	)

	resp, err := o.client.Chat.Completions.New(ctx, params, reqOpts...)
	if err != nil {
		o.logger.Warn("Provider generation failed",
			zap.String("provider", o.name),
			zap.String("operation", req.Operation),
			zap.Error(err),
		)
		return ProviderResult{}, err
	}

	if len(resp.Choices) == 0 {
		return ProviderResult{}, fmt.Errorf("no choices in %s response", o.name)
	}

	text := resp.Choices[0].Message.Content

	o.logger.Debug("Provider response received",
		zap.String("provider", o.name),
		zap.String("operation", req.Operation),
		zap.Int("length", len(text)),
		zap.Int64("prompt_tokens", resp.Usage.PromptTokens),
		zap.Int64("completion_tokens", resp.Usage.CompletionTokens),
		zap.Int64("cached_tokens", resp.Usage.PromptTokensDetails.CachedTokens),
	)

	return ProviderResult{Text: text, Model: modelName}, nil
}

func (o *OpenAIProvider) Ping(ctx context.Context) bool {
	if o.client == nil {
		return false
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	resp, err := o.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: o.defaultModel,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage("ping"),
		},
		MaxCompletionTokens: openai.Int(10),
		Temperature:         openai.Float(0),
	})
	if err != nil {
		o.logger.Debug("Provider ping failed", zap.String("provider", o.name), zap.Error(err))
		return false
	}

	return len(resp.Choices) > 0
}

func (o *OpenAIProvider) getModel(req Request) string {
	if req.Model != "" {
		return req.Model
	}
	return o.defaultModel
}
