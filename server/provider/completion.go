// Package provider holds the clients for the two upstream APIs sift fronts:
// an OpenAI-compatible chat completion endpoint and the Custom Search JSON
// API. Each client performs exactly one HTTP exchange per call; SDK-level
// retries are disabled because retry policy belongs to the caller.
package provider

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"
	"github.com/teilomillet/sift/config"
)

// CompletionRequest is a single-prompt chat completion.
type CompletionRequest struct {
	Model       string
	Prompt      string
	Temperature float64
	MaxTokens   int
}

// CompletionClient talks to an OpenAI-compatible chat completion API.
type CompletionClient struct {
	client openai.Client
}

// NewCompletionClient builds a client from cfg. httpClient may be nil, in
// which case the SDK default is used.
func NewCompletionClient(cfg config.CompletionConfig, httpClient *http.Client) *CompletionClient {
	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithBaseURL(cfg.BaseURL),
		option.WithMaxRetries(0),
	}
	if httpClient != nil {
		opts = append(opts, option.WithHTTPClient(httpClient))
	}
	return &CompletionClient{client: openai.NewClient(opts...)}
}

// Complete sends the prompt as one user message and returns the content of
// the first choice.
func (c *CompletionClient) Complete(ctx context.Context, req CompletionRequest) (string, error) {
	completion, err := c.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: shared.ChatModel(req.Model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			{
				OfUser: &openai.ChatCompletionUserMessageParam{
					Content: openai.ChatCompletionUserMessageParamContentUnion{
						OfString: openai.String(req.Prompt),
					},
				},
			},
		},
		Temperature: openai.Float(req.Temperature),
		MaxTokens:   openai.Int(int64(req.MaxTokens)),
	})
	if err != nil {
		var apiErr *openai.Error
		if errors.As(err, &apiErr) {
			return "", &StatusError{
				Service:    "completion",
				StatusCode: apiErr.StatusCode,
				Message:    apiErr.Message,
				err:        err,
			}
		}
		return "", fmt.Errorf("completion request: %w", err)
	}

	if len(completion.Choices) == 0 {
		return "", ErrEmptyCompletion
	}
	return completion.Choices[0].Message.Content, nil
}
