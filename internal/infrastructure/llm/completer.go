package llm

import (
	"context"
	"fmt"

	openai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"aidigest/internal/config"
)

// Completer is one chat-completion round trip. The analyzer depends on
// this rather than a concrete SDK so tests can substitute a canned model.
type Completer interface {
	Complete(ctx context.Context, system, user string) (string, error)
}

// OpenAICompleter implements Completer on the official openai-go SDK.
type OpenAICompleter struct {
	model string
	opts  []option.RequestOption
}

var _ Completer = (*OpenAICompleter)(nil)

// NewOpenAICompleter builds the client from configuration. Credentials are
// injected here once; nothing reads the environment in the hot path.
func NewOpenAICompleter(cfg config.OpenAIConfig) (*OpenAICompleter, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("openai api key missing")
	}
	if cfg.Model == "" {
		return nil, fmt.Errorf("openai model is required")
	}

	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	return &OpenAICompleter{model: cfg.Model, opts: opts}, nil
}

// Complete posts a system+user message pair and returns the raw text reply.
func (c *OpenAICompleter) Complete(ctx context.Context, system, user string) (string, error) {
	client := openai.NewClient(c.opts...)

	resp, err := client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(c.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(system),
			openai.UserMessage(user),
		},
	})
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("chat completion: empty choices")
	}

	return resp.Choices[0].Message.Content, nil
}
