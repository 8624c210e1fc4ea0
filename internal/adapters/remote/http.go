package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/okian/cinerank/internal/domain/model"
	"golang.org/x/oauth2"
)

const maxBodyBytes = 8 << 20

// rankingDocument is the wire form of a ranking on the remote API.
type rankingDocument struct {
	Items model.List `json:"items"`
}

// HTTPStore talks to a REST ranking store:
//
//	GET {base}/rankings/{account}  -> {"items": [...]}, 404 when none
//	PUT {base}/rankings/{account}  <- {"items": [...]}
//
// The credential is sent as a bearer token.
type HTTPStore struct {
	base    *url.URL
	client  *http.Client
	timeout time.Duration
}

// NewHTTPStore creates a client for the store rooted at baseURL.
func NewHTTPStore(baseURL string, opts ...Option) (*HTTPStore, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse remote url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("remote url %q: scheme must be http or https", baseURL)
	}
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	if o.httpClient == nil {
		o.httpClient = &http.Client{}
	}
	return &HTTPStore{base: u, client: o.httpClient, timeout: o.timeout}, nil
}

// Get implements Store.
func (s *HTTPStore) Get(ctx context.Context, accountID, credential string) (list model.List, err error) {
	start := time.Now()
	defer func() { observe("get", start, err) }()

	resp, err := s.do(ctx, http.MethodGet, accountID, credential, nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound, http.StatusNoContent:
		return model.List{}, nil
	default:
		return nil, statusError(resp)
	}

	var doc rankingDocument
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxBodyBytes)).Decode(&doc); err != nil {
		return nil, fmt.Errorf("%w: decode ranking: %v", ErrUnavailable, err)
	}
	return doc.Items.Normalize(), nil
}

// Put implements Store.
func (s *HTTPStore) Put(ctx context.Context, accountID, credential string, list model.List) (err error) {
	start := time.Now()
	defer func() { observe("put", start, err) }()

	if list == nil {
		list = model.List{}
	}
	body, err := json.Marshal(rankingDocument{Items: list})
	if err != nil {
		return fmt.Errorf("encode ranking: %w", err)
	}
	resp, err := s.do(ctx, http.MethodPut, accountID, credential, body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodyBytes))

	switch resp.StatusCode {
	case http.StatusOK, http.StatusCreated, http.StatusAccepted, http.StatusNoContent:
		return nil
	default:
		return statusError(resp)
	}
}

func (s *HTTPStore) do(ctx context.Context, method, accountID, credential string, body []byte) (*http.Response, error) {
	if accountID == "" {
		return nil, ErrMissingAccount
	}
	if accountID == "." || accountID == ".." {
		return nil, fmt.Errorf("%w: %q", ErrInvalidAccount, accountID)
	}
	if credential == "" {
		return nil, ErrUnauthorized
	}
	ctx, cancel := context.WithTimeout(ctx, s.timeout)

	// The id is one escaped path segment.
	endpoint := s.base.JoinPath("rankings", url.PathEscape(accountID))
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint.String(), reader)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := s.authorized(credential).Do(req)
	if err != nil {
		cancel()
		if ctx.Err() != nil {
			return nil, fmt.Errorf("%w: %w", ErrUnavailable, ctx.Err())
		}
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	resp.Body = &cancelBody{ReadCloser: resp.Body, cancel: cancel}
	return resp, nil
}

// authorized returns a client that sends credential as a bearer token.
func (s *HTTPStore) authorized(credential string) *http.Client {
	base := s.client.Transport
	if base == nil {
		base = http.DefaultTransport
	}
	c := *s.client
	c.Transport = &oauth2.Transport{
		Source: oauth2.StaticTokenSource(&oauth2.Token{AccessToken: credential, TokenType: "Bearer"}),
		Base:   base,
	}
	return &c
}

func statusError(resp *http.Response) error {
	snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return fmt.Errorf("%w: status %d", ErrUnauthorized, resp.StatusCode)
	case resp.StatusCode >= http.StatusInternalServerError || resp.StatusCode == http.StatusTooManyRequests:
		return fmt.Errorf("%w: status %d: %s", ErrUnavailable, resp.StatusCode, bytes.TrimSpace(snippet))
	default:
		return fmt.Errorf("%w: %d: %s", ErrUnexpectedStatus, resp.StatusCode, bytes.TrimSpace(snippet))
	}
}

// cancelBody releases the per-call timeout once the body is closed.
type cancelBody struct {
	io.ReadCloser
	cancel context.CancelFunc
}

func (b *cancelBody) Close() error {
	err := b.ReadCloser.Close()
	b.cancel()
	return err
}
