package cmd

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teemow/meetslot/internal/availability"
	"github.com/teemow/meetslot/internal/server"
)

func TestLoadMetricsEnvVars(t *testing.T) {
	tests := []struct {
		name string
		args []string
		env  map[string]string
		want MetricsConfig
	}{
		{
			name: "defaults",
			want: MetricsConfig{Enabled: true, Addr: server.DefaultMetricsAddr},
		},
		{
			name: "env overrides defaults",
			env:  map[string]string{"METRICS_ENABLED": "false", "METRICS_ADDR": ":9191"},
			want: MetricsConfig{Enabled: false, Addr: ":9191"},
		},
		{
			name: "flags win over env",
			args: []string{"--metrics-enabled=true", "--metrics-addr=:9292"},
			env:  map[string]string{"METRICS_ENABLED": "false", "METRICS_ADDR": ":9191"},
			want: MetricsConfig{Enabled: true, Addr: ":9292"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for _, k := range []string{"METRICS_ENABLED", "METRICS_ADDR"} {
				t.Setenv(k, "")
				require.NoError(t, os.Unsetenv(k))
			}
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			cmd := newServeCmd()
			require.NoError(t, cmd.ParseFlags(tt.args))

			cfg := MetricsConfig{}
			cfg.Enabled, _ = cmd.Flags().GetBool("metrics-enabled")
			cfg.Addr, _ = cmd.Flags().GetString("metrics-addr")
			loadMetricsEnvVars(cmd, &cfg)

			assert.Equal(t, tt.want, cfg)
		})
	}
}

func TestRunServe_UnsupportedTransport(t *testing.T) {
	err := runServe(serveOptions{transport: "sse"})
	assert.ErrorContains(t, err, "unsupported transport type: sse")
}

func TestNewHTTPHandler(t *testing.T) {
	registry := availability.NewRegistry()
	registry.SetDefault(availability.NewStaticProvider(""))
	sc, err := server.NewServerContext(context.Background(), availability.NewEngine(registry))
	require.NoError(t, err)
	defer func() {
		_ = sc.Shutdown()
	}()

	mcpSrv := mcpserver.NewMCPServer("meetslot", "test", mcpserver.WithToolCapabilities(true))
	handler := newHTTPHandler(mcpSrv, sc, true, server.NewHealthChecker(sc, "test"))

	t.Run("liveness", func(t *testing.T) {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("readiness", func(t *testing.T) {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("mcp endpoint is routed", func(t *testing.T) {
		body := `{"jsonrpc":"2.0","id":1,"method":"initialize","params":{"protocolVersion":"2025-03-26","capabilities":{},"clientInfo":{"name":"test","version":"1.0"}}}`
		req := httptest.NewRequest(http.MethodPost, "/mcp", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Accept", "application/json, text/event-stream")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		assert.NotEqual(t, http.StatusNotFound, rec.Code)
		assert.Contains(t, rec.Body.String(), "meetslot")
	})

	t.Run("unknown path", func(t *testing.T) {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/nope", nil))
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}
