package provisioner

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"portmonitor/internal/metrics"
)

func newTestClient(url string, timeout time.Duration) *Client {
	return New(zerolog.New(io.Discard), Options{URL: url, Timeout: timeout}, metrics.New())
}

func TestFetch_ReturnsBodyAsIs(t *testing.T) {
	var gotAccept, gotReqID string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAccept = r.Header.Get("Accept")
		gotReqID = r.Header.Get("X-Request-ID")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"devices":[{"port":"1","state":"bootstrap-started"}],"extra":true}`))
	}))
	defer srv.Close()

	c := newTestClient(srv.URL, time.Second)
	ctx := context.WithValue(context.Background(), middleware.RequestIDKey, "req-123")

	body, err := c.Fetch(ctx)
	require.NoError(t, err)
	require.JSONEq(t, `{"devices":[{"port":"1","state":"bootstrap-started"}],"extra":true}`, string(body))
	require.Equal(t, "application/json", gotAccept)
	require.Equal(t, "req-123", gotReqID)
}

func TestFetch_GeneratesRequestID(t *testing.T) {
	var gotReqID string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotReqID = r.Header.Get("X-Request-ID")
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL, time.Second).Fetch(context.Background())
	require.NoError(t, err)
	require.Len(t, gotReqID, 36)
}

func TestFetch_NonSuccessStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "boom", http.StatusBadGateway)
	}))
	defer srv.Close()

	body, err := newTestClient(srv.URL, time.Second).Fetch(context.Background())
	require.Nil(t, body)
	require.ErrorIs(t, err, ErrUnavailable)
	require.Contains(t, err.Error(), "502")
}

func TestFetch_MalformedJSON(t *testing.T) {
	for _, payload := range []string{"", "not json", `{"devices":[`} {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(payload))
		}))

		body, err := newTestClient(srv.URL, time.Second).Fetch(context.Background())
		srv.Close()

		require.Nil(t, body, "payload %q", payload)
		require.ErrorIs(t, err, ErrMalformedBody, "payload %q", payload)
	}
}

func TestFetch_Timeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	start := time.Now()
	_, err := newTestClient(srv.URL, 50*time.Millisecond).Fetch(context.Background())
	require.ErrorIs(t, err, ErrUnavailable)
	require.True(t, errors.Is(err, context.DeadlineExceeded))
	require.Less(t, time.Since(start), 2*time.Second)
	require.Equal(t, "timeout", fetchResult(err))
}

func TestFetch_ConnectionRefused(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := newTestClient(url, time.Second).Fetch(context.Background())
	require.ErrorIs(t, err, ErrUnavailable)
	require.Equal(t, "unavailable", fetchResult(err))
}

func TestNew_Defaults(t *testing.T) {
	c := New(zerolog.New(io.Discard), Options{}, nil)
	require.Equal(t, DefaultURL, c.URL())
	require.Equal(t, DefaultTimeout, c.timeout)
	require.NotNil(t, c.http)
}
