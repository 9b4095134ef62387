package api

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"github.com/pkg/errors"

	"asistenciaqr/internal/models"
	"asistenciaqr/internal/utils"
)

// Client talks to the school attendance backend. It keeps the session
// cookie issued by Login in its own jar, so one Client is one staff session.
type Client struct {
	baseURL string
	http    *http.Client
	log     *utils.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithTimeout sets the per-request timeout of the underlying HTTP client.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.http.Timeout = d }
}

// WithTLSConfig makes the client trust the given TLS configuration.
func WithTLSConfig(cfg *tls.Config) Option {
	return func(c *Client) {
		c.http.Transport = &http.Transport{
			Proxy:               http.ProxyFromEnvironment,
			TLSClientConfig:     cfg,
			MaxIdleConnsPerHost: 4,
			IdleConnTimeout:     90 * time.Second,
		}
	}
}

// WithLogger sets the logger used for request tracing.
func WithLogger(l *utils.Logger) Option {
	return func(c *Client) { c.log = l }
}

// New creates a client for the backend at baseURL.
func New(baseURL string, opts ...Option) (*Client, error) {
	if _, err := url.ParseRequestURI(baseURL); err != nil {
		return nil, errors.Wrapf(err, "invalid server URL %q", baseURL)
	}
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, errors.Wrap(err, "cookie jar")
	}
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Jar: jar, Timeout: 15 * time.Second},
		log:     utils.Discard(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// BaseURL returns the backend root the client was created with.
func (c *Client) BaseURL() string { return c.baseURL }

// do sends one JSON request and decodes the JSON reply into out, whatever
// the status code. It returns the status code. A reply that is not JSON
// becomes a *utils.StatusError when the status is not 2xx.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out interface{}) (int, error) {
	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var rd io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return 0, errors.Wrap(err, "encode request")
		}
		rd = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, rd)
	if err != nil {
		return 0, errors.Wrapf(err, "%s %s", method, path)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return 0, errors.Wrapf(err, "%s %s", method, path)
	}
	defer resp.Body.Close()

	c.log.Debug("backend request", utils.Fields{
		"method": method, "path": path, "status": resp.StatusCode, "took": time.Since(start).Round(time.Millisecond),
	})

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return resp.StatusCode, errors.Wrapf(err, "%s %s: read body", method, path)
	}
	ok := resp.StatusCode >= 200 && resp.StatusCode < 300
	if out != nil && len(bytes.TrimSpace(raw)) > 0 {
		if err := json.Unmarshal(raw, out); err != nil {
			if !ok {
				return resp.StatusCode, &utils.StatusError{Code: resp.StatusCode, Message: strings.TrimSpace(string(raw))}
			}
			return resp.StatusCode, errors.Wrapf(err, "%s %s: decode reply", method, path)
		}
	}
	return resp.StatusCode, nil
}

// checkEnvelope turns a {success:false} or non-2xx reply into an error.
func checkEnvelope(status int, env models.Envelope) error {
	msg := env.Message
	if msg == "" {
		msg = env.Error
	}
	if status < 200 || status >= 300 {
		return &utils.StatusError{Code: status, Message: msg}
	}
	if !env.Success {
		if msg == "" {
			msg = "unknown error"
		}
		return errors.Wrap(ErrRejected, msg)
	}
	return nil
}
