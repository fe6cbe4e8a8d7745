package api

import (
	"context"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marmos91/dittodrop/pkg/metrics"
)

func startStatusServer(t *testing.T, deps Deps) (string, context.CancelFunc, <-chan error) {
	t.Helper()
	srv := NewServer(Config{BindAddress: "127.0.0.1"}, deps)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start(ctx) }()
	t.Cleanup(cancel)

	addr := srv.Addr()
	require.NotEmpty(t, addr)
	return "http://" + addr, cancel, errCh
}

func get(t *testing.T, url string) (int, string) {
	t.Helper()
	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, string(body)
}

func TestServer_Endpoints(t *testing.T) {
	reg := prometheus.NewRegistry()
	counter := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "dittodrop_test_events_total",
		Help: "Events seen by the test.",
	})
	reg.MustRegister(counter)
	counter.Add(3)

	tracker := metrics.NewPerformanceTracker()
	tracker.ConnectionOpened()

	base, _, _ := startStatusServer(t, Deps{
		Stats:       tracker,
		StorageRoot: t.TempDir(),
		Ready:       func() error { return nil },
		Registry:    reg,
	})

	status, body := get(t, base+"/health")
	assert.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, `"service":"dittodrop"`)

	status, _ = get(t, base+"/health/ready")
	assert.Equal(t, http.StatusOK, status)

	status, body = get(t, base+"/stats")
	assert.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, `"active_connections":1`)

	status, body = get(t, base+"/metrics")
	assert.Equal(t, http.StatusOK, status)
	assert.True(t, strings.Contains(body, "dittodrop_test_events_total 3"), body)

	// root redirects to the liveness probe
	status, _ = get(t, base+"/")
	assert.Equal(t, http.StatusOK, status)
}

func TestServer_NoRegistryNoMetrics(t *testing.T) {
	base, _, _ := startStatusServer(t, Deps{StorageRoot: t.TempDir()})

	status, _ := get(t, base+"/metrics")
	assert.Equal(t, http.StatusNotFound, status)
}

func TestServer_StopsOnCancel(t *testing.T) {
	_, cancel, errCh := startStatusServer(t, Deps{})
	cancel()

	select {
	case err := <-errCh:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("status server did not stop")
	}
}
