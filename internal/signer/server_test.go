package signer

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dmitrijs2005/mediavault/internal/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubSigner struct {
	url       string
	signErr   error
	deleteErr error

	signedKeys  []string
	deletedKeys []string
}

func (s *stubSigner) PresignedPutURL(ctx context.Context, region, key, contentType string) (string, error) {
	s.signedKeys = append(s.signedKeys, key)
	return s.url, s.signErr
}

func (s *stubSigner) DeleteObject(ctx context.Context, region, key string) error {
	s.deletedKeys = append(s.deletedKeys, key)
	return s.deleteErr
}

func newTestServer(t *testing.T, cfg *Config, stub *stubSigner) *httptest.Server {
	t.Helper()
	if cfg.SecretHash == "" {
		hash, err := HashSecret("s3cret")
		require.NoError(t, err)
		cfg.SecretHash = hash
	}
	srv := NewServer(cfg, logging.NewNopLogger(), stub)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts
}

func postJSON(t *testing.T, url string, body any, headers map[string]string) *http.Response {
	t.Helper()
	b, err := json.Marshal(body)
	require.NoError(t, err)
	req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(b))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestHandleSignURL(t *testing.T) {
	stub := &stubSigner{url: "https://bucket.example.com/media/abc.png?sig=x"}
	ts := newTestServer(t, &Config{}, stub)

	t.Run("success", func(t *testing.T) {
		resp := postJSON(t, ts.URL+"/api/sign-s3", map[string]string{
			"secret":      "s3cret",
			"fileName":    "abc.png",
			"bucketKey":   "media",
			"contentType": "image/png",
		}, nil)

		require.Equal(t, http.StatusOK, resp.StatusCode)

		var out signURLResponse
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
		assert.Equal(t, stub.url, out.URL)
		assert.Equal(t, []string{"media/abc.png"}, stub.signedKeys)
	})

	t.Run("wrong secret is unauthorized", func(t *testing.T) {
		resp := postJSON(t, ts.URL+"/api/sign-s3", map[string]string{
			"secret":   "nope",
			"fileName": "abc.png",
		}, nil)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("missing file name", func(t *testing.T) {
		resp := postJSON(t, ts.URL+"/api/sign-s3", map[string]string{"secret": "s3cret"}, nil)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("request id header present", func(t *testing.T) {
		resp := postJSON(t, ts.URL+"/api/sign-s3", map[string]string{
			"secret":   "s3cret",
			"fileName": "abc.png",
		}, nil)
		assert.NotEmpty(t, resp.Header.Get("X-Request-Id"))
	})
}

func TestHandleSignURL_StorageFailure(t *testing.T) {
	stub := &stubSigner{signErr: errors.New("presign blew up")}
	ts := newTestServer(t, &Config{}, stub)

	resp := postJSON(t, ts.URL+"/api/sign-s3", map[string]string{
		"secret":   "s3cret",
		"fileName": "abc.png",
	}, nil)
	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
}

func TestHandleDelete(t *testing.T) {
	stub := &stubSigner{}
	ts := newTestServer(t, &Config{}, stub)

	resp := postJSON(t, ts.URL+"/api/delete-s3", map[string]string{
		"secret":    "s3cret",
		"fileKey":   "abc.png",
		"bucketKey": "media",
	}, nil)

	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, []string{"media/abc.png"}, stub.deletedKeys)
}

func TestHandleDelete_BearerAuth(t *testing.T) {
	stub := &stubSigner{}
	cfg := &Config{JWTSecret: "jwt-key", TokenValidity: time.Minute}
	ts := newTestServer(t, cfg, stub)

	body := map[string]string{"secret": "s3cret", "fileKey": "abc.png"}

	t.Run("no token is unauthorized", func(t *testing.T) {
		resp := postJSON(t, ts.URL+"/api/delete-s3", body, nil)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("valid token passes", func(t *testing.T) {
		token, err := GenerateToken("admin", []byte(cfg.JWTSecret), time.Minute)
		require.NoError(t, err)

		resp := postJSON(t, ts.URL+"/api/delete-s3", body, map[string]string{
			"Authorization": "Bearer " + token,
		})
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	})
}

func TestHealthz(t *testing.T) {
	ts := newTestServer(t, &Config{}, &stubSigner{})

	resp, err := http.Get(ts.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestRun_GracefulShutdown(t *testing.T) {
	hash, err := HashSecret("s3cret")
	require.NoError(t, err)
	cfg := &Config{Addr: "127.0.0.1:0", SecretHash: hash}
	srv := NewServer(cfg, logging.NewNopLogger(), &stubSigner{})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Run(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("server did not stop")
	}
}
