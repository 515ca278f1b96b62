// Package signer implements the backend service that authorizes
// bucket access: it validates the shared secret, issues presigned PUT
// URLs for uploads and removes objects on delete requests.
package signer

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/dmitrijs2005/mediavault/internal/common"
	"github.com/dmitrijs2005/mediavault/internal/logging"
)

type signURLRequest struct {
	Secret       string `json:"secret"`
	FileName     string `json:"fileName"`
	BucketKey    string `json:"bucketKey"`
	BucketRegion string `json:"bucketRegion"`
	ContentType  string `json:"contentType"`
}

type signURLResponse struct {
	URL string `json:"url"`
}

type deleteRequest struct {
	FileKey      string `json:"fileKey"`
	Secret       string `json:"secret"`
	BucketKey    string `json:"bucketKey"`
	BucketRegion string `json:"bucketRegion"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// urlSigner is the part of Presigner the handlers need; split out so
// tests can substitute a stub.
type urlSigner interface {
	PresignedPutURL(ctx context.Context, region, key, contentType string) (string, error)
	DeleteObject(ctx context.Context, region, key string) error
}

type Server struct {
	config  *Config
	logger  logging.Logger
	presign urlSigner
	httpSrv *http.Server
}

func NewServer(cfg *Config, l logging.Logger, p urlSigner) *Server {
	s := &Server{
		config:  cfg,
		logger:  l.With("module", "signer"),
		presign: p,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/sign-s3", s.handleSignURL)
	mux.HandleFunc("POST /api/delete-s3", s.handleDelete)
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	s.httpSrv = &http.Server{
		Addr:              cfg.Addr,
		Handler:           withRequestLog(s.logger, mux),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

func (s *Server) authorize(w http.ResponseWriter, secret string) bool {
	if err := CheckSecret(s.config.SecretHash, secret); err != nil {
		writeError(w, http.StatusUnauthorized, "invalid secret")
		return false
	}
	return true
}

// bearerSubject enforces the optional JWT layer. With no JWTSecret
// configured every request passes.
func (s *Server) bearerSubject(r *http.Request) (string, error) {
	if s.config.JWTSecret == "" {
		return "", nil
	}
	header := r.Header.Get("Authorization")
	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok {
		return "", common.ErrInvalidToken
	}
	return SubjectFromToken(token, []byte(s.config.JWTSecret))
}

func (s *Server) handleSignURL(w http.ResponseWriter, r *http.Request) {
	var req signURLRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}
	if req.FileName == "" {
		writeError(w, http.StatusBadRequest, "fileName is required")
		return
	}
	if !s.authorize(w, req.Secret) {
		return
	}

	key := req.FileName
	if req.BucketKey != "" {
		key = req.BucketKey + "/" + req.FileName
	}

	url, err := s.presign.PresignedPutURL(r.Context(), req.BucketRegion, key, req.ContentType)
	if err != nil {
		s.logger.Error(r.Context(), "presign failed", "key", key, "error", err)
		writeError(w, http.StatusBadGateway, "object storage unavailable")
		return
	}

	writeJSON(w, http.StatusOK, signURLResponse{URL: url})
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	var req deleteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}
	if req.FileKey == "" {
		writeError(w, http.StatusBadRequest, "fileKey is required")
		return
	}
	if !s.authorize(w, req.Secret) {
		return
	}
	if _, err := s.bearerSubject(r); err != nil {
		writeError(w, http.StatusUnauthorized, "invalid token")
		return
	}

	key := req.FileKey
	if req.BucketKey != "" {
		key = req.BucketKey + "/" + req.FileKey
	}

	if err := s.presign.DeleteObject(r.Context(), req.BucketRegion, key); err != nil {
		s.logger.Error(r.Context(), "delete failed", "key", key, "error", err)
		writeError(w, http.StatusBadGateway, "object storage unavailable")
		return
	}

	w.WriteHeader(http.StatusOK)
}

// Run starts the HTTP listener and blocks until ctx is cancelled, then
// shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping signer...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = s.httpSrv.Shutdown(shutdownCtx)
	}()

	s.logger.Info(ctx, "Starting signer", "address", s.config.Addr)

	if err := s.httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Handler exposes the configured HTTP handler for tests.
func (s *Server) Handler() http.Handler {
	return s.httpSrv.Handler
}
