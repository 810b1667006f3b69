package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scttfrdmn/asgresume/pkg/observability"
)

func TestServerRoutes(t *testing.T) {
	reg := NewRegistry()
	m := New(reg)
	m.RecordRun("Success", 1)

	srv := NewServer(observability.MetricsConfig{Enabled: true, Port: 9090, Path: "/metrics", Bind: "localhost"}, reg)
	assert.Equal(t, "localhost:9090", srv.Addr())

	tests := []struct {
		name     string
		path     string
		wantCode int
		wantBody string
	}{
		{name: "metrics", path: "/metrics", wantCode: http.StatusOK, wantBody: `asgresume_runs_total{status="Success"} 1`},
		{name: "health", path: "/health", wantCode: http.StatusOK, wantBody: "ok"},
		{name: "unknown", path: "/state", wantCode: http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			rec := httptest.NewRecorder()
			srv.Handler().ServeHTTP(rec, req)

			require.Equal(t, tt.wantCode, rec.Code)
			if tt.wantBody != "" {
				assert.Contains(t, rec.Body.String(), tt.wantBody)
			}
		})
	}
}

func TestServerDefaultPath(t *testing.T) {
	srv := NewServer(observability.MetricsConfig{Port: 0, Bind: "127.0.0.1"}, NewRegistry())

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}
