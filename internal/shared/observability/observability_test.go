package observability

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixedHealth struct{ status string }

func (f fixedHealth) Check(context.Context) HealthStatus {
	return HealthStatus{Status: f.status, Timestamp: time.Now(), Components: map[string]string{"index": f.status}}
}

func TestHealthEndpoint(t *testing.T) {
	tests := []struct {
		name   string
		health HealthChecker
		code   int
	}{
		{"no checker", nil, http.StatusOK},
		{"up", fixedHealth{"up"}, http.StatusOK},
		{"degraded", fixedHealth{"degraded"}, http.StatusServiceUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			NewServer(":0", tt.health).Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
			assert.Equal(t, tt.code, rec.Code)

			var body HealthStatus
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.NotEmpty(t, body.Status)
		})
	}
}

func TestMetricsEndpoint(t *testing.T) {
	ReferencesTotal.Add(3)

	rec := httptest.NewRecorder()
	NewServer(":0", nil).Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "constref_references_total")
}

func TestInitTracingDisabled(t *testing.T) {
	shutdown, err := InitTracing(context.Background(), " ", "constref")
	require.NoError(t, err)
	assert.NoError(t, shutdown(context.Background()))
}

func TestServerStartStop(t *testing.T) {
	server := NewServer("127.0.0.1:0", fixedHealth{"up"})
	require.NoError(t, server.Start(t.Context()))

	resp, err := http.Get("http://" + server.Addr() + "/health")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	require.NoError(t, server.Stop(t.Context()))
	assert.NoError(t, server.Stop(t.Context()))
}

func TestServerStartReportsBindError(t *testing.T) {
	first := NewServer("127.0.0.1:0", nil)
	require.NoError(t, first.Start(t.Context()))
	defer first.Stop(context.Background())

	second := NewServer(first.Addr(), nil)
	assert.Error(t, second.Start(t.Context()))
}
