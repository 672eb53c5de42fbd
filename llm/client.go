// Package llm provides the chat completion client used for transcript
// cleanup.
package llm

import (
	"context"
	"time"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

// Message represents a chat message.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Options configures completion behavior.
type Options struct {
	MaxTokens   int64
	Temperature float64
	TopP        float64
	Timeout     time.Duration
}

// Completer performs chat completions.
type Completer interface {
	Complete(ctx context.Context, messages []Message) (string, error)
}

// NewCompleter creates a Completer against any OpenAI-compatible
// endpoint. baseURL selects the provider, e.g. Groq.
func NewCompleter(apiKey, baseURL, model string, opts Options) Completer {
	clientOpts := []option.RequestOption{
		option.WithAPIKey(apiKey),
	}
	if baseURL != "" {
		clientOpts = append(clientOpts, option.WithBaseURL(baseURL))
	}
	if opts.Timeout > 0 {
		clientOpts = append(clientOpts, option.WithRequestTimeout(opts.Timeout))
	}

	return &openaiCompleter{
		client: openai.NewClient(clientOpts...),
		model:  model,
		opts:   opts,
	}
}
