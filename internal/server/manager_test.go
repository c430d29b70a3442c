package server

import (
	"context"
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// --- DefaultConfig ---

func TestDefaultConfig_Values(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, ":9090", cfg.Addr)
	assert.Equal(t, 5*time.Second, cfg.ReadHeaderTimeout)
	assert.Equal(t, 30*time.Second, cfg.WriteTimeout)
	assert.Equal(t, 60*time.Second, cfg.IdleTimeout)
	assert.Equal(t, 5*time.Second, cfg.ShutdownTimeout)
}

func localConfig() Config {
	cfg := DefaultConfig()
	cfg.Addr = "127.0.0.1:0"
	return cfg
}

func get(t *testing.T, url string) (int, string) {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, string(body)
}

// --- Start / Shutdown lifecycle ---

func TestManager_StartAndShutdown(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	m := NewManager(handler, localConfig(), zap.NewNop())

	require.NoError(t, m.Start())
	t.Cleanup(func() { m.Shutdown(context.Background()) })

	status, body := get(t, "http://"+m.Addr()+"/")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "ok", body)

	require.NoError(t, m.Shutdown(context.Background()))
	assert.False(t, m.IsRunning())
}

func TestManager_DoubleStart(t *testing.T) {
	m := NewManager(http.NewServeMux(), localConfig(), zap.NewNop())

	require.NoError(t, m.Start())
	t.Cleanup(func() { m.Shutdown(context.Background()) })

	err := m.Start()
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "already started")
}

func TestManager_ShutdownIdempotent(t *testing.T) {
	m := NewManager(http.NewServeMux(), localConfig(), nil)

	require.NoError(t, m.Start())
	require.NoError(t, m.Shutdown(context.Background()))
	require.NoError(t, m.Shutdown(context.Background()))
}

func TestManager_StartAfterShutdown(t *testing.T) {
	m := NewManager(http.NewServeMux(), localConfig(), zap.NewNop())

	require.NoError(t, m.Start())
	require.NoError(t, m.Shutdown(context.Background()))

	err := m.Start()
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "closed")
}

func TestManager_StartFailsOnBadAddr(t *testing.T) {
	cfg := localConfig()
	cfg.Addr = "127.0.0.1:-1"
	m := NewManager(http.NewServeMux(), cfg, zap.NewNop())

	err := m.Start()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to listen")
}

func TestManager_Errors(t *testing.T) {
	m := NewManager(http.NewServeMux(), localConfig(), zap.NewNop())

	ch := m.Errors()
	require.NotNil(t, ch)
	select {
	case <-ch:
		t.Fatal("should not have received an error")
	default:
	}
}

func TestManager_Addr(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Addr = ":9999"
	m := NewManager(http.NewServeMux(), cfg, zap.NewNop())

	assert.Equal(t, ":9999", m.Addr())
}

func TestManager_WaitForShutdownOnContextDone(t *testing.T) {
	m := NewManager(http.NewServeMux(), localConfig(), zap.NewNop())
	require.NoError(t, m.Start())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- m.WaitForShutdown(ctx) }()

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("WaitForShutdown did not return")
	}
	assert.False(t, m.IsRunning())
}

// --- MetricsHandler ---

func TestMetricsHandler_ServesRegistry(t *testing.T) {
	reg := prometheus.NewRegistry()
	turns := prometheus.NewCounter(prometheus.CounterOpts{Name: "test_turns_total", Help: "turns"})
	reg.MustRegister(turns)
	turns.Add(3)

	m := NewManager(MetricsHandler(reg), localConfig(), zap.NewNop())
	require.NoError(t, m.Start())
	t.Cleanup(func() { m.Shutdown(context.Background()) })

	status, body := get(t, "http://"+m.Addr()+"/metrics")
	assert.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, "test_turns_total 3")

	status, body = get(t, "http://"+m.Addr()+"/healthz")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "ok", body)
}
