package validation

import (
	"fmt"
	"sync"

	"github.com/pkoukk/tiktoken-go"
)

// DefaultEncoding is used for Llama-family models, which tiktoken has no
// mapping for. Counts are an approximation either way.
const DefaultEncoding = "cl100k_base"

// Tokenizer defines the interface for token counting
type Tokenizer interface {
	CountTokens(text string) int
}

// tiktokenWrapper wraps tiktoken to implement our Tokenizer interface
type tiktokenWrapper struct {
	*tiktoken.Tiktoken
}

func (t *tiktokenWrapper) CountTokens(text string) int {
	return len(t.Encode(text, nil, nil))
}

// TokenCounter measures prompts. The encoding is loaded on first use, since
// tiktoken may fetch its BPE ranks over the network; a failed load is
// remembered and reported on every call.
type TokenCounter struct {
	load func() (Tokenizer, error)

	once     sync.Once
	encoding Tokenizer
	err      error
}

// NewTokenCounter returns a counter for the named tiktoken encoding.
func NewTokenCounter(encodingName string) *TokenCounter {
	return newTokenCounter(func() (Tokenizer, error) {
		enc, err := tiktoken.GetEncoding(encodingName)
		if err != nil {
			return nil, fmt.Errorf("failed to get encoding %s: %w", encodingName, err)
		}
		return &tiktokenWrapper{enc}, nil
	})
}

func newTokenCounter(load func() (Tokenizer, error)) *TokenCounter {
	return &TokenCounter{load: load}
}

// CountTokens returns the number of tokens in text.
func (tc *TokenCounter) CountTokens(text string) (int, error) {
	tc.once.Do(func() {
		tc.encoding, tc.err = tc.load()
	})
	if tc.err != nil {
		return 0, tc.err
	}
	return tc.encoding.CountTokens(text), nil
}

var (
	sharedCounter     *TokenCounter
	sharedCounterOnce sync.Once
)

// SharedTokenCounter returns a process-wide counter for DefaultEncoding.
// The encoding tables are read-only once loaded.
func SharedTokenCounter() *TokenCounter {
	sharedCounterOnce.Do(func() {
		sharedCounter = NewTokenCounter(DefaultEncoding)
	})
	return sharedCounter
}
