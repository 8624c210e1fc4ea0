package remote

import (
	"net/http"
	"time"
)

const defaultTimeout = 5 * time.Second

// Option configures a remote store client.
type Option func(*options)

type options struct {
	timeout    time.Duration
	httpClient *http.Client
	keyPrefix  string
}

func defaultOptions() options {
	return options{
		timeout:   defaultTimeout,
		keyPrefix: "cinerank:ranking:",
	}
}

// WithTimeout bounds every remote call.
func WithTimeout(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.timeout = d
		}
	}
}

// WithHTTPClient sets the base HTTP client. Its transport is wrapped with the
// bearer credential on every call.
func WithHTTPClient(c *http.Client) Option {
	return func(o *options) {
		if c != nil {
			o.httpClient = c
		}
	}
}

// WithKeyPrefix sets the Redis key prefix for ranking values.
func WithKeyPrefix(prefix string) Option {
	return func(o *options) {
		if prefix != "" {
			o.keyPrefix = prefix
		}
	}
}
