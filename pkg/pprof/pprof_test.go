package pprof

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"disabled", Config{}, false},
		{"default enabled", Config{Enabled: true, Addr: ":6060", Path: "/debug/pprof"}, false},
		{"missing addr", Config{Enabled: true, Path: "/debug/pprof"}, true},
		{"relative path", Config{Enabled: true, Addr: ":6060", Path: "debug"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestHandler_Index(t *testing.T) {
	srv := NewServer(DefaultConfig(), nil)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/debug/pprof/", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "goroutine")

	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/debug/pprof/heap?debug=1", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestHandler_Token(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Token = "secret"
	srv := NewServer(cfg, nil)

	tests := []struct {
		name   string
		target string
		header string
		want   int
	}{
		{"no token", "/debug/pprof/", "", http.StatusUnauthorized},
		{"wrong token", "/debug/pprof/", "Bearer nope", http.StatusUnauthorized},
		{"bearer", "/debug/pprof/", "Bearer secret", http.StatusOK},
		{"query", "/debug/pprof/?token=secret", "", http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.target, nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			srv.Handler().ServeHTTP(rec, req)
			assert.Equal(t, tt.want, rec.Code)
		})
	}
}

func TestServer_StartStop(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Addr = "127.0.0.1:0"
	srv := NewServer(cfg, nil)

	require.NoError(t, srv.Start())
	assert.Error(t, srv.Start(), "second start fails")

	resp, err := http.Get("http://" + srv.Addr() + "/debug/pprof/cmdline")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	require.NoError(t, srv.Stop(context.Background()))
	require.NoError(t, srv.Stop(context.Background()), "stop is idempotent")
}
