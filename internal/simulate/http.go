package simulate

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/okian/cinerank/internal/domain/model"
)

// client talks to the cinerank API.
type client struct {
	baseURL string
	http    *http.Client
	limiter *rate.Limiter
}

func newClient(baseURL string, timeout time.Duration, rps float64) *client {
	limit := rate.Inf
	if rps > 0 {
		limit = rate.Limit(rps)
	}
	return &client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: timeout},
		limiter: rate.NewLimiter(limit, 1),
	}
}

// do sends a JSON request and decodes the response into out when it is not
// nil. Any status other than want is an error.
func (c *client) do(ctx context.Context, method, path string, body, out any, want int) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	var reader io.Reader = http.NoBody
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}
	if resp.StatusCode != want {
		return fmt.Errorf("%w: %s %s returned %d: %s", ErrUnexpectedStatus, method, path, resp.StatusCode, bytes.TrimSpace(data))
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to decode %s %s: %w", method, path, err)
	}
	return nil
}

func (c *client) health(ctx context.Context) error {
	if err := c.do(ctx, http.MethodGet, "/healthz", nil, nil, http.StatusOK); err != nil {
		return fmt.Errorf("%w: %w", ErrUnhealthy, err)
	}
	return nil
}

func (c *client) signIn(ctx context.Context, accountID, credential string) error {
	body := map[string]string{"account_id": accountID, "credential": credential}
	return c.do(ctx, http.MethodPut, "/identity", body, nil, http.StatusOK)
}

func (c *client) begin(ctx context.Context, item model.RankedItem) (session, error) {
	var s session
	err := c.do(ctx, http.MethodPost, "/ranking/sessions", item, &s, http.StatusCreated)
	return s, err
}

func (c *client) choose(ctx context.Context, id, choice string) (session, error) {
	var s session
	err := c.do(ctx, http.MethodPost, "/ranking/sessions/"+id+"/choice", map[string]string{"choice": choice}, &s, http.StatusOK)
	return s, err
}

func (c *client) ranking(ctx context.Context) ([]entry, error) {
	var out []entry
	err := c.do(ctx, http.MethodGet, "/ranking", nil, &out, http.StatusOK)
	return out, err
}

func (c *client) move(ctx context.Context, from, to int) ([]entry, error) {
	var out []entry
	err := c.do(ctx, http.MethodPost, "/ranking/move", map[string]int{"from": from, "to": to}, &out, http.StatusOK)
	return out, err
}

func (c *client) undo(ctx context.Context) ([]entry, error) {
	var out []entry
	err := c.do(ctx, http.MethodPost, "/ranking/undo", nil, &out, http.StatusOK)
	return out, err
}
