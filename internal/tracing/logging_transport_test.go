package tracing

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

func TestLoggingTransport_PreservesBodiesAndAddsRequestID(t *testing.T) {
	var gotBody, gotRequestID string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		gotBody = string(b)
		gotRequestID = r.Header.Get(RequestIDHeader)
		w.WriteHeader(http.StatusCreated)
		_, _ = io.WriteString(w, `{"code":"abc123"}`)
	}))
	defer server.Close()

	core, logs := observer.New(zap.DebugLevel)
	client := &http.Client{Transport: NewLoggingTransport(nil, zap.New(core))}

	resp, err := client.Post(server.URL+"/api/links", "application/json", strings.NewReader(`{"long_url":"https://example.com"}`))
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Equal(t, `{"long_url":"https://example.com"}`, gotBody)
	assert.NotEmpty(t, gotRequestID)
	assert.Equal(t, `{"code":"abc123"}`, string(body))
	assert.Equal(t, 1, logs.FilterMessage("Sending API request").Len())
	assert.Equal(t, 1, logs.FilterMessage("Received API response").Len())
}

func TestLoggingTransport_KeepsCallerRequestID(t *testing.T) {
	var seen string
	transport := NewLoggingTransport(roundTripFunc(func(req *http.Request) (*http.Response, error) {
		seen = req.Header.Get(RequestIDHeader)
		return &http.Response{StatusCode: http.StatusOK, Body: io.NopCloser(strings.NewReader(""))}, nil
	}), zap.NewNop())

	req, _ := http.NewRequest(http.MethodGet, "http://example.invalid/api/links", nil)
	req.Header.Set(RequestIDHeader, "fixed-id")

	resp, err := transport.RoundTrip(req)
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, "fixed-id", seen)
}

func TestLoggingTransport_DoesNotMutateCallerRequest(t *testing.T) {
	transport := NewLoggingTransport(roundTripFunc(func(req *http.Request) (*http.Response, error) {
		return &http.Response{StatusCode: http.StatusOK, Body: io.NopCloser(strings.NewReader(""))}, nil
	}), zap.NewNop())

	req, _ := http.NewRequest(http.MethodGet, "http://example.invalid/api/links", nil)

	resp, err := transport.RoundTrip(req)
	require.NoError(t, err)
	resp.Body.Close()

	assert.Empty(t, req.Header.Get(RequestIDHeader))
}

func TestLoggingTransport_LogsErrorsByStatus(t *testing.T) {
	testCases := []struct {
		status  int
		message string
	}{
		{http.StatusNotFound, "API request rejected"},
		{http.StatusConflict, "API request rejected"},
		{http.StatusInternalServerError, "API request failed with server error"},
	}

	for _, tc := range testCases {
		t.Run(http.StatusText(tc.status), func(t *testing.T) {
			core, logs := observer.New(zap.DebugLevel)
			transport := NewLoggingTransport(roundTripFunc(func(req *http.Request) (*http.Response, error) {
				return &http.Response{StatusCode: tc.status, Body: io.NopCloser(strings.NewReader(`{"error":"x"}`))}, nil
			}), zap.New(core))

			req, _ := http.NewRequest(http.MethodGet, "http://example.invalid/api/links/abc123", nil)
			resp, err := transport.RoundTrip(req)
			require.NoError(t, err)
			resp.Body.Close()

			assert.Equal(t, 1, logs.FilterMessage(tc.message).Len())
		})
	}
}

func TestLoggingTransport_TransportError(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	dialErr := errors.New("dial tcp: connection refused")
	transport := NewLoggingTransport(roundTripFunc(func(req *http.Request) (*http.Response, error) {
		return nil, dialErr
	}), zap.New(core))

	req, _ := http.NewRequest(http.MethodGet, "http://example.invalid/healthz", nil)
	resp, err := transport.RoundTrip(req)

	assert.Nil(t, resp)
	assert.ErrorIs(t, err, dialErr)
	assert.Equal(t, 1, logs.FilterMessage("API request failed").Len())
}

func TestRouteLabel(t *testing.T) {
	assert.Equal(t, "/api/links", RouteLabel("/api/links"))
	assert.Equal(t, "/api/links/", RouteLabel("/api/links/"))
	assert.Equal(t, "/api/links/:code", RouteLabel("/api/links/abc123"))
	assert.Equal(t, "/v1/api/links/:code", RouteLabel("/v1/api/links/abc123"))
	assert.Equal(t, "/healthz", RouteLabel("/healthz"))
}

func TestFormatHeaders_RedactsSecrets(t *testing.T) {
	headers := http.Header{}
	headers.Set("Authorization", "Bearer abc")
	headers.Set("X-Api-Token", "t")
	headers.Set("Cookie", "session=1")
	headers.Set("Content-Type", "application/json")

	formatted := formatHeaders(headers)

	assert.Equal(t, "***REDACTED***", formatted["Authorization"])
	assert.Equal(t, "***REDACTED***", formatted["X-Api-Token"])
	assert.Equal(t, "***REDACTED***", formatted["Cookie"])
	assert.Equal(t, "application/json", formatted["Content-Type"])
}

func TestFormatBodyPreview(t *testing.T) {
	assert.Equal(t, "(empty)", formatBodyPreview(nil))
	assert.Equal(t, "a b", formatBodyPreview([]byte("a\nb")))

	long := formatBodyPreview([]byte(strings.Repeat("x", maxBodyPreview+10)))
	assert.True(t, strings.HasSuffix(long, "... (truncated)"))
}
