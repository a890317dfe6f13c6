package search

import (
	"context"
	"errors"
	"net/http"

	"github.com/teilomillet/sift/config"
	siftErrors "github.com/teilomillet/sift/errors"
	"github.com/teilomillet/sift/server/provider"
	"go.uber.org/zap"
	"google.golang.org/api/customsearch/v1"
)

// RateLimitMessage is the error text of a RotationSignal.
const RateLimitMessage = "Rate limit exceeded"

// quotaReasons are the Custom Search reason codes that mean the key, not the
// request, is the problem. They arrive with a 403 rather than a 429.
var quotaReasons = []string{
	"rateLimitExceeded",
	"userRateLimitExceeded",
	"dailyLimitExceeded",
	"quotaExceeded",
}

// Request is one page of a search against pool[KeyIndex].
type Request struct {
	Query    string `json:"query" validate:"required"`
	Start    int    `json:"start" validate:"min=1"`
	Num      int    `json:"num" validate:"min=1"`
	KeyIndex int    `json:"keyIndex" validate:"min=0"`
}

// DefaultRequest returns a Request with the pagination defaults applied.
// Decoding a body into it leaves omitted fields at their defaults.
func DefaultRequest() Request {
	return Request{Start: 1, Num: 10}
}

// Result is the success payload. Only items and searchInformation are
// exposed; every other upstream field is dropped.
type Result struct {
	Items             []*customsearch.Result                `json:"items"`
	SearchInformation *customsearch.SearchSearchInformation `json:"searchInformation,omitempty"`
}

// RotationSignal tells the caller the key at the requested index is out of
// quota and which index to try next. It is a successful reply, not an error.
type RotationSignal struct {
	Error        string `json:"error"`
	NextKeyIndex int    `json:"nextKeyIndex"`
}

// Outcome is exactly one of Result or Signal.
type Outcome struct {
	Result *Result
	Signal *RotationSignal

	// KeyIndex is the pool index the call was made with.
	KeyIndex int
}

// Body returns the value to encode as the 200 response.
func (o *Outcome) Body() interface{} {
	if o.Signal != nil {
		return o.Signal
	}
	return o.Result
}

// Searcher performs one upstream search with the given key.
type Searcher interface {
	Search(ctx context.Context, apiKey string, req provider.SearchRequest) (*customsearch.Search, error)
}

// Rotator serves one search request. It is built per request from the
// current configuration snapshot.
type Rotator struct {
	pool     *Pool
	engineID string
	searcher Searcher
	logger   *zap.Logger
}

// NewRotator builds a Rotator over the credentials in cfg. A nil logger
// discards output.
func NewRotator(cfg config.SearchConfig, searcher Searcher, logger *zap.Logger) *Rotator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Rotator{
		pool:     NewPool(cfg.APIKeys),
		engineID: cfg.EngineID,
		searcher: searcher,
		logger:   logger,
	}
}

// Search runs req against pool[req.KeyIndex].
//
// Missing credentials fail with a config error and an out-of-range index
// fails with credentials_exhausted; neither touches the network. Otherwise
// exactly one upstream call is made. A quota failure yields an Outcome with
// a Signal pointing at KeyIndex+1, even when that index is past the end of
// the pool: the caller learns about exhaustion on its next request.
func (r *Rotator) Search(ctx context.Context, req Request) (*Outcome, error) {
	if r.pool.Len() == 0 || r.engineID == "" {
		return nil, siftErrors.NewConfigError("", "Search credentials not configured", nil)
	}
	if req.KeyIndex < 0 {
		return nil, siftErrors.NewInvalidRequestError("", "Invalid key index", map[string]interface{}{
			"keyIndex": req.KeyIndex,
		})
	}

	key, ok := r.pool.Key(req.KeyIndex)
	if !ok {
		return nil, siftErrors.NewCredentialsExhaustedError("", req.KeyIndex, r.pool.Len())
	}

	res, err := r.searcher.Search(ctx, key, provider.SearchRequest{
		Query: req.Query,
		Start: req.Start,
		Num:   req.Num,
	})
	if err != nil {
		if IsQuotaError(err) {
			r.logger.Info("Search key out of quota",
				zap.Int("key_index", req.KeyIndex),
				zap.Int("next_key_index", req.KeyIndex+1),
			)
			return &Outcome{
				Signal: &RotationSignal{
					Error:        RateLimitMessage,
					NextKeyIndex: req.KeyIndex + 1,
				},
				KeyIndex: req.KeyIndex,
			}, nil
		}
		return nil, upstreamError(err)
	}

	return &Outcome{Result: newResult(res), KeyIndex: req.KeyIndex}, nil
}

// IsQuotaError reports whether err is an upstream quota or rate-limit
// failure for the key used.
func IsQuotaError(err error) bool {
	var statusErr *provider.StatusError
	if !errors.As(err, &statusErr) {
		return false
	}
	if statusErr.StatusCode == http.StatusTooManyRequests {
		return true
	}
	if statusErr.StatusCode == http.StatusForbidden {
		for _, reason := range quotaReasons {
			if statusErr.HasReason(reason) {
				return true
			}
		}
	}
	return false
}

func upstreamError(err error) *siftErrors.SiftError {
	var statusErr *provider.StatusError
	if errors.As(err, &statusErr) {
		msg := statusErr.Message
		if msg == "" {
			msg = "Search service error"
		}
		return siftErrors.NewUpstreamError("", "search", statusErr.StatusCode, msg, err)
	}
	return siftErrors.NewUpstreamError("", "search", 0, "Search service error", err)
}

func newResult(res *customsearch.Search) *Result {
	out := &Result{Items: []*customsearch.Result{}}
	if res == nil {
		return out
	}
	if res.Items != nil {
		out.Items = res.Items
	}
	out.SearchInformation = res.SearchInformation
	return out
}
