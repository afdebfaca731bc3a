package adapters

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"dcaf/internal/identity/models"
	"dcaf/pkg/platform/sentinel"
)

// HTTPSource reads profile and match insight records from a JSON API:
//
//	GET {base}/profiles/{ref}
//	GET {base}/insights?name={fullName}
type HTTPSource struct {
	baseURL string
	client  *http.Client
	apiKey  string
}

type HTTPOption func(*HTTPSource)

func WithHTTPClient(c *http.Client) HTTPOption {
	return func(s *HTTPSource) { s.client = c }
}

func WithAPIKey(key string) HTTPOption {
	return func(s *HTTPSource) { s.apiKey = key }
}

func NewHTTPSource(baseURL string, opts ...HTTPOption) *HTTPSource {
	s := &HTTPSource{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  http.DefaultClient,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Profiles returns a ProfileSource view.
func (s *HTTPSource) Profiles() *HTTPProfileSource { return &HTTPProfileSource{src: s} }

// Insights returns a MatchInsightSource view.
func (s *HTTPSource) Insights() *HTTPInsightSource { return &HTTPInsightSource{src: s} }

type HTTPProfileSource struct{ src *HTTPSource }

func (p *HTTPProfileSource) Fetch(ctx context.Context, ref string) (*models.ProfileRecord, error) {
	var rec models.ProfileRecord
	if err := p.src.getJSON(ctx, "/profiles/"+url.PathEscape(ref), &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

type HTTPInsightSource struct{ src *HTTPSource }

func (i *HTTPInsightSource) Fetch(ctx context.Context, name string) (*models.MatchInsightRecord, error) {
	var rec models.MatchInsightRecord
	if err := i.src.getJSON(ctx, "/insights?name="+url.QueryEscape(name), &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

func (s *HTTPSource) getJSON(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if s.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+s.apiKey)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("GET %s: %w", path, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return fmt.Errorf("GET %s: %w", path, sentinel.ErrNotFound)
	case resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests:
		return fmt.Errorf("GET %s: status %d: %w", path, resp.StatusCode, sentinel.ErrUnavailable)
	case resp.StatusCode != http.StatusOK:
		return fmt.Errorf("GET %s: unexpected status %d", path, resp.StatusCode)
	}

	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(out); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}
