package httpclient

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	dto "github.com/prometheus/client_model/go"
	"github.com/sony/gobreaker/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/utafrali/wholesale-storefront/pkg/errors"
)

// stubDoer returns canned responses without touching the network.
type stubDoer struct {
	status atomic.Int32
	err    error
	calls  atomic.Int32
}

func (d *stubDoer) Do(ctx context.Context, req *http.Request) (*http.Response, error) {
	d.calls.Add(1)
	if d.err != nil {
		return nil, d.err
	}
	return response(int(d.status.Load()), `{"error":{"code":"UPSTREAM","message":"catalog offline"}}`), nil
}

func newStub(status int) *stubDoer {
	d := &stubDoer{}
	d.status.Store(int32(status))
	return d
}

func breakerConfig(name string) CircuitBreakerConfig {
	cfg := DefaultCircuitBreakerConfig(name)
	cfg.MinRequests = 3
	cfg.Timeout = 50 * time.Millisecond
	return cfg
}

func send(t *testing.T, cb *CircuitBreakerClient) (*http.Response, error) {
	t.Helper()
	return cb.Do(context.Background(), get(t, "http://wholesale.test/v1/products"))
}

func rejections(t *testing.T, name string) float64 {
	t.Helper()
	m := &dto.Metric{}
	require.NoError(t, breakerRejections.WithLabelValues(name).Write(m))
	return m.GetCounter().GetValue()
}

func TestDefaultCircuitBreakerConfig(t *testing.T) {
	cfg := DefaultCircuitBreakerConfig("wholesale-api")
	assert.Equal(t, "wholesale-api", cfg.Name)
	assert.Equal(t, uint32(1), cfg.MaxRequests)
	assert.Equal(t, 30*time.Second, cfg.Timeout)
	assert.Equal(t, 0.5, cfg.FailureRatio)
	assert.Equal(t, uint32(5), cfg.MinRequests)
}

func TestCircuitBreaker_PassesThroughSuccess(t *testing.T) {
	cb := NewCircuitBreakerClient(newStub(http.StatusOK), breakerConfig("cb-ok"), slog.New(slog.DiscardHandler))

	resp, err := send(t, cb)
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, gobreaker.StateClosed, cb.State())
	assert.Equal(t, "cb-ok", cb.Name())
}

func TestCircuitBreaker_ServerErrorBecomesStatusError(t *testing.T) {
	cb := NewCircuitBreakerClient(newStub(http.StatusBadGateway), breakerConfig("cb-5xx"), nil)

	resp, err := send(t, cb)
	assert.Nil(t, resp)

	var statusErr *StatusError
	require.True(t, errors.As(err, &statusErr))
	assert.Equal(t, "cb-5xx", statusErr.Service)
	assert.Equal(t, "UPSTREAM", statusErr.Code)
	status, ok := ResponseStatus(err)
	assert.True(t, ok)
	assert.Equal(t, http.StatusBadGateway, status)
}

func TestCircuitBreaker_TripsThenRejects(t *testing.T) {
	stub := newStub(http.StatusInternalServerError)
	cb := NewCircuitBreakerClient(stub, breakerConfig("cb-trip"), nil)
	before := rejections(t, "cb-trip")

	for i := 0; i < 3; i++ {
		_, err := send(t, cb)
		require.Error(t, err)
		assert.False(t, IsCircuitOpen(err))
	}
	assert.Equal(t, gobreaker.StateOpen, cb.State())

	_, err := send(t, cb)
	assert.ErrorIs(t, err, ErrCircuitOpen)
	assert.True(t, IsCircuitOpen(err))
	assert.Equal(t, int32(3), stub.calls.Load())
	assert.Equal(t, float64(1), rejections(t, "cb-trip")-before)
}

func TestCircuitBreaker_RecoversThroughHalfOpen(t *testing.T) {
	stub := newStub(http.StatusServiceUnavailable)
	cb := NewCircuitBreakerClient(stub, breakerConfig("cb-recover"), nil)

	for i := 0; i < 3; i++ {
		_, _ = send(t, cb)
	}
	require.Equal(t, gobreaker.StateOpen, cb.State())

	stub.status.Store(http.StatusOK)
	assert.Eventually(t, func() bool { return cb.State() == gobreaker.StateHalfOpen }, time.Second, 10*time.Millisecond)

	resp, err := send(t, cb)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, gobreaker.StateClosed, cb.State())
}

func TestCircuitBreaker_ClientErrorsDoNotTrip(t *testing.T) {
	cb := NewCircuitBreakerClient(newStub(http.StatusUnprocessableEntity), breakerConfig("cb-4xx"), nil)

	for i := 0; i < 6; i++ {
		resp, err := send(t, cb)
		require.NoError(t, err)
		assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
		resp.Body.Close()
	}
	assert.Equal(t, gobreaker.StateClosed, cb.State())
}

func TestCircuitBreaker_CancellationDoesNotTrip(t *testing.T) {
	stub := &stubDoer{err: context.Canceled}
	cb := NewCircuitBreakerClient(stub, breakerConfig("cb-cancel"), nil)

	for i := 0; i < 6; i++ {
		_, err := send(t, cb)
		assert.ErrorIs(t, err, context.Canceled)
	}
	assert.Equal(t, gobreaker.StateClosed, cb.State())
}

func TestCircuitBreaker_OverHTTP(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"message":"42"}`))
	}))
	t.Cleanup(server.Close)

	cb := NewCircuitBreakerClient(New(Config{Timeout: time.Second}), breakerConfig("cb-http"), nil)
	resp, err := cb.Do(context.Background(), get(t, server.URL))
	require.NoError(t, err)

	err = ParseResponseError(resp, cb.Name())
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestIsCircuitOpen(t *testing.T) {
	assert.True(t, IsCircuitOpen(gobreaker.ErrOpenState))
	assert.True(t, IsCircuitOpen(gobreaker.ErrTooManyRequests))
	assert.False(t, IsCircuitOpen(errors.New("timeout")))
	assert.False(t, IsCircuitOpen(nil))
}

func TestTripAfter(t *testing.T) {
	trip := tripAfter(4, 0.5)
	assert.False(t, trip(gobreaker.Counts{Requests: 3, TotalFailures: 3}))
	assert.False(t, trip(gobreaker.Counts{Requests: 4, TotalFailures: 1}))
	assert.True(t, trip(gobreaker.Counts{Requests: 4, TotalFailures: 2}))
	assert.False(t, tripAfter(0, 0)(gobreaker.Counts{}))
}
