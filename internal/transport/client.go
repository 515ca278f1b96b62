package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/dmitrijs2005/mediavault/internal/common"
	"github.com/dmitrijs2005/mediavault/internal/logging"
	"github.com/sethvargo/go-retry"
)

// Client talks to the signed-URL endpoints and uploads raw bytes to
// presigned object-store URLs. The configuration is fixed at
// construction; use WithConfig to derive variants instead of mutating a
// shared instance.
type Client struct {
	cfg  Config
	http *http.Client
	log  logging.Logger
}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient substitutes the underlying *http.Client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

// WithLogger sets the client logger.
func WithLogger(l logging.Logger) Option {
	return func(c *Client) { c.log = l }
}

// New constructs a Client with cfg. Tunables left zero pick up defaults.
func New(cfg Config, opts ...Option) *Client {
	c := &Client{
		cfg:  cfg.withDefaults(),
		http: &http.Client{},
		log:  logging.NewNopLogger(),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Config returns a copy of the client configuration.
func (c *Client) Config() Config {
	return c.cfg
}

// WithConfig returns a new Client sharing the HTTP transport but using
// a configuration derived by mut. The receiver is not modified.
func (c *Client) WithConfig(mut func(*Config)) *Client {
	cfg := c.cfg
	if mut != nil {
		mut(&cfg)
	}
	return &Client{cfg: cfg.withDefaults(), http: c.http, log: c.log}
}

type signedURLRequest struct {
	Secret       string `json:"secret"`
	FileName     string `json:"fileName"`
	BucketKey    string `json:"bucketKey"`
	BucketRegion string `json:"bucketRegion"`
	ContentType  string `json:"contentType"`
}

type signedURLResponse struct {
	URL string `json:"url"`
}

// SignedURL requests a presigned PUT URL for fileName. The response
// must contain a syntactically valid absolute URL or the call fails
// with common.ErrInvalidSignedURL, which is terminal.
func (c *Client) SignedURL(ctx context.Context, fileName, contentType string) (string, error) {
	if err := c.cfg.Validate(); err != nil {
		return "", err
	}
	if fileName == "" {
		return "", fmt.Errorf("%w: fileName", common.ErrMissingConfig)
	}

	req := signedURLRequest{
		Secret:       c.cfg.Secret,
		FileName:     fileName,
		BucketKey:    c.cfg.BucketKey,
		BucketRegion: c.cfg.BucketRegion,
		ContentType:  contentType,
	}

	var resp signedURLResponse
	if err := c.postJSON(ctx, c.cfg.GetSignedURLEndpoint, req, &resp); err != nil {
		return "", err
	}

	u, err := url.Parse(resp.URL)
	if err != nil || !u.IsAbs() || u.Host == "" {
		return "", common.ErrInvalidSignedURL
	}

	return resp.URL, nil
}

type deleteRequest struct {
	FileKey      string `json:"fileKey"`
	Secret       string `json:"secret"`
	BucketKey    string `json:"bucketKey"`
	BucketRegion string `json:"bucketRegion"`
}

// Delete asks the delete endpoint to remove the object stored under
// fileKey.
func (c *Client) Delete(ctx context.Context, fileKey string) error {
	if err := c.cfg.validateDelete(); err != nil {
		return err
	}
	if fileKey == "" {
		return fmt.Errorf("%w: fileKey", common.ErrMissingConfig)
	}

	req := deleteRequest{
		FileKey:      fileKey,
		Secret:       c.cfg.Secret,
		BucketKey:    c.cfg.BucketKey,
		BucketRegion: c.cfg.BucketRegion,
	}

	return c.postJSON(ctx, c.cfg.DeleteEndpoint, req, nil)
}

// postJSON issues one JSON POST with the transient-status retry policy:
// 502 and 503 retry with exponential backoff up to MaxRetries, 429
// retries unconditionally up to MaxRetries, everything else surfaces
// immediately.
func (c *Client) postJSON(ctx context.Context, endpoint string, body, out any) error {
	backoff := retry.WithMaxRetries(uint64(c.cfg.MaxRetries), retry.NewExponential(c.cfg.RetryBaseDelay))

	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		err := c.doJSON(ctx, endpoint, body, out)
		if err == nil {
			return nil
		}
		if transientStatus(err) {
			c.log.Warn(ctx, "transient status, retrying", "url", endpoint, "error", err)
			return retry.RetryableError(err)
		}
		return err
	})
	if err == nil {
		return nil
	}

	// A transient-class error surviving retry.Do means the budget ran
	// out; the status error stays in the chain for errors.As callers.
	if transientStatus(err) {
		return fmt.Errorf("%w: %w", common.ErrRetriesExhausted, err)
	}
	return err
}

// transientStatus reports whether err carries one of the statuses the
// retry policy treats as transient: 502, 503 or 429.
func transientStatus(err error) bool {
	var se *ServerError
	if errors.As(err, &se) {
		return se.StatusCode == http.StatusBadGateway || se.StatusCode == http.StatusServiceUnavailable
	}
	var ce *ClientError
	return errors.As(err, &ce) && ce.StatusCode == http.StatusTooManyRequests
}

func (c *Client) doJSON(ctx context.Context, endpoint string, body, out any) error {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("request %s: %w", endpoint, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		return responseError(http.MethodPost, endpoint, resp.StatusCode, string(raw))
	}

	if out != nil && len(raw) > 0 {
		if err := json.Unmarshal(raw, out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}

	return nil
}
