package transport

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
)

// ProgressFunc receives cumulative transferred bytes and the total body
// size as a PUT body is consumed by the HTTP transport.
type ProgressFunc func(loaded, total int64)

type progressReader struct {
	r      io.Reader
	loaded int64
	total  int64
	fn     ProgressFunc
}

func (p *progressReader) Read(b []byte) (int, error) {
	n, err := p.r.Read(b)
	if n > 0 {
		p.loaded += int64(n)
		if p.fn != nil {
			p.fn(p.loaded, p.total)
		}
	}
	return n, err
}

// Put uploads data to a presigned URL. It is deliberately not retried:
// a partially transferred body must not silently restart without the
// caller knowing. Cancelling ctx aborts the transfer.
func (c *Client) Put(ctx context.Context, signedURL string, data []byte, contentType string, progress ProgressFunc) error {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	total := int64(len(data))
	body := &progressReader{r: bytes.NewReader(data), total: total, fn: progress}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, signedURL, body)
	if err != nil {
		return fmt.Errorf("build upload request: %w", err)
	}
	req.ContentLength = total
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("upload to signed URL: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return responseError(http.MethodPut, signedURL, resp.StatusCode, string(raw))
	}

	return nil
}
