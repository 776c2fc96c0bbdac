// Package webui serves the field browser over a JSON HTTP API.
package webui

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	jsoniter "github.com/json-iterator/go"

	"github.com/heapwalker/internal/repository"
	"github.com/heapwalker/internal/service"
	"github.com/heapwalker/pkg/config"
	apperrors "github.com/heapwalker/pkg/errors"
	"github.com/heapwalker/pkg/utils"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// maxBodyBytes caps request bodies; every request type is a small JSON object.
const maxBodyBytes = 1 << 20

// Walker is the service surface the API needs.
type Walker interface {
	OpenFields(ctx context.Context, req service.OpenRequest) (*service.Page, error)
	LoadMore(ctx context.Context, sessionID string) (*service.Page, error)
	Page(ctx context.Context, sessionID string) (*service.Page, error)
	CloseSession(ctx context.Context, sessionID string) error
	ListSnapshots(ctx context.Context) ([]service.SnapshotInfo, error)
	RegisterSnapshot(ctx context.Context, key, name string) (*repository.SnapshotRecord, error)
}

// Server is the HTTP API server.
type Server struct {
	walker Walker
	config config.ServerConfig
	logger utils.Logger
	server *http.Server
}

// NewServer creates a Server.
func NewServer(walker Walker, cfg config.ServerConfig, logger utils.Logger) *Server {
	return &Server{
		walker: walker,
		config: cfg,
		logger: utils.OrNull(logger),
	}
}

// Handler returns the API routes.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /api/snapshots", s.handleListSnapshots)
	mux.HandleFunc("POST /api/snapshots", s.handleRegisterSnapshot)
	mux.HandleFunc("POST /api/sessions", s.handleOpenSession)
	mux.HandleFunc("GET /api/sessions/{id}", s.handleGetSession)
	mux.HandleFunc("POST /api/sessions/{id}/more", s.handleLoadMore)
	mux.HandleFunc("DELETE /api/sessions/{id}", s.handleCloseSession)

	return s.logRequests(mux)
}

// Start listens on the configured address and blocks until the server stops.
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:         s.config.Addr,
		Handler:      s.Handler(),
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
	}

	s.logger.Info("Starting API server at %s", s.config.Addr)
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleListSnapshots(w http.ResponseWriter, r *http.Request) {
	list, err := s.walker.ListSnapshots(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	if list == nil {
		list = []service.SnapshotInfo{}
	}
	s.writeJSON(w, http.StatusOK, list)
}

type registerRequest struct {
	Key  string `json:"key"`
	Name string `json:"name"`
}

func (s *Server) handleRegisterSnapshot(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := s.decode(w, r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	if req.Key == "" {
		s.writeError(w, apperrors.New(apperrors.CodeInvalidInput, "key is required"))
		return
	}
	rec, err := s.walker.RegisterSnapshot(r.Context(), req.Key, req.Name)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, rec)
}

// openRequest accepts the object ID as a JSON number or a string such as "0x1000".
type openRequest struct {
	Snapshot        string              `json:"snapshot"`
	Object          jsoniter.RawMessage `json:"object"`
	View            string              `json:"view"`
	Sort            string              `json:"sort"`
	Order           string              `json:"order"`
	IncludeInstance *bool               `json:"include_instance"`
	IncludeStatic   *bool               `json:"include_static"`
	PageSize        int                 `json:"page_size"`
}

func (s *Server) handleOpenSession(w http.ResponseWriter, r *http.Request) {
	var req openRequest
	if err := s.decode(w, r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	objectID, err := ParseObjectID(strings.Trim(string(req.Object), `"`))
	if err != nil {
		s.writeError(w, err)
		return
	}

	page, err := s.walker.OpenFields(r.Context(), service.OpenRequest{
		Snapshot:        req.Snapshot,
		ObjectID:        objectID,
		ViewID:          req.View,
		SortKey:         req.Sort,
		SortOrder:       req.Order,
		IncludeInstance: req.IncludeInstance,
		IncludeStatic:   req.IncludeStatic,
		PageSize:        req.PageSize,
	})
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, page)
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	page, err := s.walker.Page(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, page)
}

func (s *Server) handleLoadMore(w http.ResponseWriter, r *http.Request) {
	page, err := s.walker.LoadMore(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, page)
}

func (s *Server) handleCloseSession(w http.ResponseWriter, r *http.Request) {
	if err := s.walker.CloseSession(r.Context(), r.PathValue("id")); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ParseObjectID parses a decimal or 0x-prefixed hexadecimal object ID.
func ParseObjectID(s string) (uint64, error) {
	s = strings.TrimSpace(s)
	if s == "" || s == "null" {
		return 0, apperrors.New(apperrors.CodeInvalidInput, "object is required")
	}
	id, err := strconv.ParseUint(s, 0, 64)
	if err != nil || id == 0 {
		return 0, apperrors.Newf(apperrors.CodeInvalidInput, "invalid object id: %q", s)
	}
	return id, nil
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request, v interface{}) error {
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return apperrors.Newf(apperrors.CodeInvalidInput, "request body exceeds %d bytes", tooLarge.Limit)
		}
		return apperrors.Wrap(apperrors.CodeInvalidInput, "failed to read request body", err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return apperrors.Wrap(apperrors.CodeInvalidInput, "invalid request body", err)
	}
	return nil
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// statusFor maps error codes to HTTP status codes.
func statusFor(code string) int {
	switch code {
	case apperrors.CodeInvalidInput, apperrors.CodeParseError:
		return http.StatusBadRequest
	case apperrors.CodeNotFound:
		return http.StatusNotFound
	case apperrors.CodeExpired:
		return http.StatusGone
	case apperrors.CodeConfigError:
		return http.StatusNotImplemented
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	code := apperrors.GetErrorCode(err)
	status := statusFor(code)
	if status >= http.StatusInternalServerError {
		s.logger.Error("Request failed: %v", err)
	}
	s.writeJSON(w, status, errorResponse{Code: code, Message: err.Error()})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Warn("Failed to write response: %v", err)
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.logger.Debug("%s %s %d %s", r.Method, r.URL.Path, rec.status, time.Since(start))
	})
}
