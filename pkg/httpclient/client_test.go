package httpclient

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func retryingClient(nonIdempotent bool) *Client {
	return New(Config{
		Timeout:            5 * time.Second,
		MaxRetries:         3,
		RetryWaitMin:       time.Millisecond,
		RetryWaitMax:       5 * time.Millisecond,
		MaxConnsPerHost:    10,
		RetryNonIdempotent: nonIdempotent,
	})
}

func flakyServer(t *testing.T, failures int32, attempts *atomic.Int32) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if attempts.Add(1) <= failures {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		body, _ := io.ReadAll(r.Body)
		_, _ = w.Write(body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, 30*time.Second, cfg.Timeout)
	assert.Equal(t, 3, cfg.MaxRetries)
	assert.False(t, cfg.RetryNonIdempotent)
}

func TestDo_RetriesGetOn5xx(t *testing.T) {
	var attempts atomic.Int32
	srv := flakyServer(t, 2, &attempts)

	resp, err := retryingClient(false).Get(context.Background(), srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, int32(3), attempts.Load())
}

func TestDo_DoesNotRetryPostByDefault(t *testing.T) {
	var attempts atomic.Int32
	srv := flakyServer(t, 2, &attempts)

	resp, err := retryingClient(false).Post(context.Background(), srv.URL, "application/json", bytes.NewReader([]byte(`{}`)))
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	assert.Equal(t, int32(1), attempts.Load())
}

func TestDo_RetriesPostWhenAllowed_ResendsBody(t *testing.T) {
	var attempts atomic.Int32
	srv := flakyServer(t, 1, &attempts)

	resp, err := retryingClient(true).Post(context.Background(), srv.URL, "application/json", bytes.NewReader([]byte(`{"amount":210}`)))
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, `{"amount":210}`, string(body))
	assert.Equal(t, int32(2), attempts.Load())
}

func TestDo_DoesNotRetry501Or4xx(t *testing.T) {
	for _, code := range []int{http.StatusNotImplemented, http.StatusBadRequest} {
		var attempts atomic.Int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			attempts.Add(1)
			w.WriteHeader(code)
		}))

		resp, err := retryingClient(false).Get(context.Background(), srv.URL)
		require.NoError(t, err)
		resp.Body.Close()
		srv.Close()

		assert.Equal(t, code, resp.StatusCode)
		assert.Equal(t, int32(1), attempts.Load())
	}
}

func TestDo_ContextCancellation(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	client := New(Config{
		Timeout:         5 * time.Second,
		MaxRetries:      10,
		RetryWaitMin:    100 * time.Millisecond,
		RetryWaitMax:    500 * time.Millisecond,
		MaxConnsPerHost: 10,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := client.Get(ctx, srv.URL)
	require.Error(t, err)
}

func TestGet_InvalidURL(t *testing.T) {
	_, err := New(DefaultConfig()).Get(context.Background(), "://invalid")
	require.Error(t, err)
}

func TestIsRetryableError(t *testing.T) {
	assert.False(t, isRetryableError(nil))
	assert.False(t, isRetryableError(context.Canceled))
	assert.False(t, isRetryableError(context.DeadlineExceeded))
}

func TestAddJitter(t *testing.T) {
	const base = time.Second
	for i := 0; i < 100; i++ {
		d := addJitter(base)
		assert.GreaterOrEqual(t, d, 750*time.Millisecond)
		assert.Less(t, d, 1250*time.Millisecond)
	}
	assert.Equal(t, time.Duration(0), addJitter(0))
	assert.Equal(t, time.Duration(1), addJitter(1))
}
