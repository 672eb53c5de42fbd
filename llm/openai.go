package llm

import (
	"context"
	"fmt"

	"github.com/openai/openai-go/v3"
)

// openaiCompleter implements Completer for OpenAI-compatible APIs.
type openaiCompleter struct {
	client openai.Client
	model  string
	opts   Options
}

func (c *openaiCompleter) Complete(ctx context.Context, messages []Message) (string, error) {
	params := openai.ChatCompletionNewParams{
		Model:       c.model,
		Messages:    toUnion(messages),
		Temperature: openai.Float(c.opts.Temperature),
	}
	if c.opts.TopP > 0 {
		params.TopP = openai.Float(c.opts.TopP)
	}
	if c.opts.MaxTokens > 0 {
		params.MaxTokens = openai.Int(c.opts.MaxTokens)
	}

	resp, err := c.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no choices in completion response")
	}
	return resp.Choices[0].Message.Content, nil
}

func toUnion(messages []Message) []openai.ChatCompletionMessageParamUnion {
	out := make([]openai.ChatCompletionMessageParamUnion, 0, len(messages))
	for _, m := range messages {
		switch m.Role {
		case "system":
			out = append(out, openai.SystemMessage(m.Content))
		default:
			out = append(out, openai.UserMessage(m.Content))
		}
	}
	return out
}
