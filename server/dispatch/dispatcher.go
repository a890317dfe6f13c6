package dispatch

import (
	"context"
	"errors"

	"github.com/teilomillet/sift/config"
	siftErrors "github.com/teilomillet/sift/errors"
	"github.com/teilomillet/sift/server/provider"
	"go.uber.org/zap"
)

// Completer performs one chat completion call.
type Completer interface {
	Complete(ctx context.Context, req provider.CompletionRequest) (string, error)
}

// TokenCounter measures a rendered prompt.
type TokenCounter interface {
	CountTokens(text string) (int, error)
}

// Result is the decoded payload returned to the caller. Its shape depends on
// the Kind and is not validated beyond being JSON.
type Result map[string]interface{}

// Dispatcher handles one query. It is built per request from the current
// configuration snapshot and holds no state between requests.
type Dispatcher struct {
	cfg       config.CompletionConfig
	specs     *SpecTable
	completer Completer
	counter   TokenCounter
	logger    *zap.Logger
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithTokenCounter enables the max_prompt_tokens check.
func WithTokenCounter(c TokenCounter) Option {
	return func(d *Dispatcher) { d.counter = c }
}

// WithLogger sets the logger. The default discards output.
func WithLogger(l *zap.Logger) Option {
	return func(d *Dispatcher) {
		if l != nil {
			d.logger = l
		}
	}
}

// New builds a Dispatcher for cfg. It fails only if cfg carries prompt
// overrides that do not form a valid spec table.
func New(cfg config.CompletionConfig, completer Completer, opts ...Option) (*Dispatcher, error) {
	specs, err := NewSpecTable(cfg.Prompts)
	if err != nil {
		return nil, err
	}
	d := &Dispatcher{
		cfg:       cfg,
		specs:     specs,
		completer: completer,
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d, nil
}

// Dispatch runs the query of the given type and returns the extracted
// result. Errors are *errors.SiftError without a request ID.
//
// Unknown types and missing credentials are rejected before any upstream
// call. Exactly one completion call is made otherwise; it is never retried.
func (d *Dispatcher) Dispatch(ctx context.Context, kindName, query string) (Result, error) {
	kind, err := ParseKind(kindName)
	if err != nil {
		return nil, siftErrors.NewInvalidRequestError("", "Invalid request type", map[string]interface{}{
			"type":    kindName,
			"allowed": Kinds(),
		})
	}

	if d.cfg.APIKey == "" {
		return nil, siftErrors.NewConfigError("", "API key not configured", nil)
	}

	spec, ok := d.specs.Lookup(kind)
	if !ok {
		return nil, siftErrors.NewInternalError("", errors.New("no prompt spec for "+string(kind)))
	}

	prompt, err := spec.Render(query)
	if err != nil {
		return nil, siftErrors.NewInternalError("", err)
	}

	if err := d.checkBudget(prompt); err != nil {
		return nil, err
	}

	content, err := d.completer.Complete(ctx, provider.CompletionRequest{
		Model:       d.cfg.Model,
		Prompt:      prompt,
		Temperature: spec.Temperature,
		MaxTokens:   spec.MaxTokens,
	})
	if err != nil {
		return nil, upstreamError(err)
	}

	payload, err := Extract(content, spec.Mode)
	if err != nil {
		d.logger.Debug("Unparseable completion",
			zap.String("kind", string(kind)),
			zap.Int("content_length", len(content)),
			zap.Error(err),
		)
		return nil, siftErrors.NewParseError("", err)
	}

	if spec.Mode == ModeArray {
		return Result{"suggestions": payload}, nil
	}
	return Result(payload.(map[string]interface{})), nil
}

func (d *Dispatcher) checkBudget(prompt string) error {
	if d.cfg.MaxPromptTokens <= 0 || d.counter == nil {
		return nil
	}
	n, err := d.counter.CountTokens(prompt)
	if err != nil {
		// Counting is advisory; an unavailable encoding must not block queries.
		d.logger.Warn("Token counting unavailable", zap.Error(err))
		return nil
	}
	if n > d.cfg.MaxPromptTokens {
		return siftErrors.NewInvalidRequestError("", "Query too long", map[string]interface{}{
			"prompt_tokens": n,
			"max_tokens":    d.cfg.MaxPromptTokens,
		})
	}
	return nil
}

func upstreamError(err error) *siftErrors.SiftError {
	var statusErr *provider.StatusError
	if errors.As(err, &statusErr) {
		return siftErrors.NewUpstreamError("", "completion", statusErr.StatusCode, "AI service error", err)
	}
	if errors.Is(err, provider.ErrEmptyCompletion) {
		return siftErrors.NewUpstreamError("", "completion", 0, "Invalid AI response", err)
	}
	return siftErrors.NewUpstreamError("", "completion", 0, "AI service error", err)
}
