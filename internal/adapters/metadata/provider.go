// Package metadata backfills display fields (release date, genres) of ranked
// items from a catalog service. Lookups never affect ranking order.
package metadata

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/okian/cinerank/internal/domain/model"
	"golang.org/x/time/rate"
)

// Provider resolves the details of one item.
type Provider interface {
	Details(ctx context.Context, id model.ItemID) (model.Details, error)
}

// ProviderFunc adapts a function to Provider.
type ProviderFunc func(ctx context.Context, id model.ItemID) (model.Details, error)

// Details implements Provider.
func (f ProviderFunc) Details(ctx context.Context, id model.ItemID) (model.Details, error) {
	return f(ctx, id)
}

// HTTPProvider reads movie details from a TMDB-style API:
// GET {base}/movie/{id}?api_key=... -> {"release_date": "...", "genres": [{"id": 28}]}.
type HTTPProvider struct {
	base    *url.URL
	apiKey  string
	client  *http.Client
	limiter *rate.Limiter
}

// HTTPProviderOption configures an HTTPProvider.
type HTTPProviderOption func(*HTTPProvider)

// WithHTTPClient sets the HTTP client.
func WithHTTPClient(c *http.Client) HTTPProviderOption {
	return func(p *HTTPProvider) {
		if c != nil {
			p.client = c
		}
	}
}

// WithRateLimit caps requests per second. rps <= 0 disables the limit.
func WithRateLimit(rps float64) HTTPProviderOption {
	return func(p *HTTPProvider) {
		if rps <= 0 {
			p.limiter = rate.NewLimiter(rate.Inf, 1)
			return
		}
		p.limiter = rate.NewLimiter(rate.Limit(rps), 1)
	}
}

// NewHTTPProvider creates a provider rooted at baseURL.
func NewHTTPProvider(baseURL, apiKey string, opts ...HTTPProviderOption) (*HTTPProvider, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse metadata url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("metadata url %q: scheme must be http or https", baseURL)
	}
	p := &HTTPProvider{
		base:    u,
		apiKey:  apiKey,
		client:  &http.Client{Timeout: 10 * time.Second},
		limiter: rate.NewLimiter(rate.Every(250*time.Millisecond), 1),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

type movieDocument struct {
	ReleaseDate string `json:"release_date"`
	Genres      []struct {
		ID int `json:"id"`
	} `json:"genres"`
}

// Details implements Provider.
func (p *HTTPProvider) Details(ctx context.Context, id model.ItemID) (model.Details, error) {
	if err := p.limiter.Wait(ctx); err != nil {
		return model.Details{}, fmt.Errorf("metadata: rate limiter wait failed: %w", err)
	}

	endpoint := p.base.JoinPath("movie", id.String())
	if p.apiKey != "" {
		q := endpoint.Query()
		q.Set("api_key", p.apiKey)
		endpoint.RawQuery = q.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return model.Details{}, fmt.Errorf("metadata: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return model.Details{}, fmt.Errorf("metadata: %s: %w", id, err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return model.Details{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	default:
		return model.Details{}, fmt.Errorf("%w: %d for %s", ErrUnexpectedStatus, resp.StatusCode, id)
	}

	var doc movieDocument
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&doc); err != nil {
		return model.Details{}, fmt.Errorf("metadata: decode %s: %w", id, err)
	}

	out := model.Details{Genres: make([]int, 0, len(doc.Genres))}
	for _, g := range doc.Genres {
		out.Genres = append(out.Genres, g.ID)
	}
	if doc.ReleaseDate != "" {
		if d, err := model.ParseDate(doc.ReleaseDate); err == nil {
			out.ReleaseDate = &d
		}
	}
	return out, nil
}
