package health

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func passingCheck() CheckFunc {
	return func(_ context.Context) error { return nil }
}

func failingCheck(msg string) CheckFunc {
	return func(_ context.Context) error { return errors.New(msg) }
}

func probe(t *testing.T, fn http.HandlerFunc, path string) (*httptest.ResponseRecorder, statusResponse) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	w := httptest.NewRecorder()
	fn(w, req)

	var body statusResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return w, body
}

func TestLiveEndpoint_AllPassing(t *testing.T) {
	h := New()
	h.AddLivenessCheck("a", time.Second, passingCheck())
	h.AddLivenessCheck("b", time.Second, passingCheck())
	h.Start(context.Background(), time.Hour)
	defer h.Stop()

	require.Eventually(t, func() bool {
		w, _ := probe(t, h.LiveEndpoint, "/livez")
		return w.Code == http.StatusOK
	}, 2*time.Second, 10*time.Millisecond)

	_, body := probe(t, h.LiveEndpoint, "/livez")
	assert.Equal(t, "ok", body.Status)
}

func TestLiveEndpoint_FailureReported(t *testing.T) {
	h := New()
	h.AddLivenessCheck("good", time.Second, passingCheck())
	h.AddLivenessCheck("bad", time.Second, failingCheck("disk on fire"))
	h.Start(context.Background(), time.Hour)
	defer h.Stop()

	require.Eventually(t, func() bool {
		w, _ := probe(t, h.LiveEndpoint, "/livez")
		return w.Code == http.StatusServiceUnavailable
	}, 2*time.Second, 10*time.Millisecond)

	_, body := probe(t, h.LiveEndpoint, "/livez")
	assert.Equal(t, "unhealthy", body.Status)
	assert.Equal(t, "disk on fire", body.Checks["bad"])
	assert.NotContains(t, body.Checks, "good")
}

func TestReadyEndpoint_ManualGate(t *testing.T) {
	h := New()
	h.Start(context.Background(), time.Hour)
	defer h.Stop()

	// Not ready until SetReady(true).
	w, body := probe(t, h.ReadyEndpoint, "/readyz")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, body.Checks, "_readiness")

	h.SetReady(true)
	w, _ = probe(t, h.ReadyEndpoint, "/readyz")
	assert.Equal(t, http.StatusOK, w.Code)

	// Shutdown drain flips it back.
	h.SetReady(false)
	w, _ = probe(t, h.ReadyEndpoint, "/readyz")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestReadyEndpoint_CheckFailure(t *testing.T) {
	h := New()
	h.SetReady(true)
	h.AddReadinessCheck("postgres", time.Second, failingCheck("connection refused"))
	h.Start(context.Background(), time.Hour)
	defer h.Stop()

	require.Eventually(t, func() bool {
		w, _ := probe(t, h.ReadyEndpoint, "/readyz")
		return w.Code == http.StatusServiceUnavailable
	}, 2*time.Second, 10*time.Millisecond)

	_, body := probe(t, h.ReadyEndpoint, "/readyz")
	assert.Equal(t, "connection refused", body.Checks["postgres"])
}

func TestGoroutineCountCheck(t *testing.T) {
	assert.NoError(t, GoroutineCountCheck(100000)(context.Background()))
	assert.Error(t, GoroutineCountCheck(0)(context.Background()))
}
