package provider

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/teilomillet/sift/config"
	"google.golang.org/api/customsearch/v1"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

// SearchRequest is one page of a Custom Search query. Start and Num are
// passed through to the upstream unmodified.
type SearchRequest struct {
	Query string
	Start int
	Num   int
}

// SearchClient talks to the Custom Search JSON API. The API key is chosen
// per call so one client can serve any credential in the pool.
type SearchClient struct {
	svc      *customsearch.Service
	engineID string
}

// NewSearchClient builds a client for cfg.EngineID. httpClient may be nil.
func NewSearchClient(ctx context.Context, cfg config.SearchConfig, httpClient *http.Client) (*SearchClient, error) {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	// The key travels as a per-call query parameter, so the transport
	// itself stays unauthenticated.
	opts := []option.ClientOption{option.WithHTTPClient(httpClient)}
	if cfg.Endpoint != "" {
		opts = append(opts, option.WithEndpoint(cfg.Endpoint))
	}

	svc, err := customsearch.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create search service: %w", err)
	}
	return &SearchClient{svc: svc, engineID: cfg.EngineID}, nil
}

// Search runs one query with apiKey. Upstream failures come back as
// *StatusError carrying the upstream code, message and reason codes.
func (c *SearchClient) Search(ctx context.Context, apiKey string, req SearchRequest) (*customsearch.Search, error) {
	call := c.svc.Cse.List().
		Q(req.Query).
		Cx(c.engineID).
		Start(int64(req.Start)).
		Num(int64(req.Num)).
		Context(ctx)

	res, err := call.Do(googleapi.QueryParameter("key", apiKey))
	if err != nil {
		var gErr *googleapi.Error
		if errors.As(err, &gErr) {
			reasons := make([]string, 0, len(gErr.Errors))
			for _, item := range gErr.Errors {
				reasons = append(reasons, item.Reason)
			}
			return nil, &StatusError{
				Service:    "search",
				StatusCode: gErr.Code,
				Message:    gErr.Message,
				Reasons:    reasons,
				err:        err,
			}
		}
		return nil, fmt.Errorf("search request: %w", err)
	}
	return res, nil
}
