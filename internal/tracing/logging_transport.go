package tracing

import (
	"bytes"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/fonsecaaso/tinylink/internal/metrics"
)

// RequestIDHeader carries the per-request identifier sent to the API
const RequestIDHeader = "X-Request-ID"

const maxBodyPreview = 500

// loggingTransport is an HTTP transport that logs and measures every API call
type loggingTransport struct {
	base   http.RoundTripper
	logger *zap.Logger
}

// NewLoggingTransport wraps base with request/response logging and client metrics.
// A nil base falls back to http.DefaultTransport.
func NewLoggingTransport(base http.RoundTripper, logger *zap.Logger) http.RoundTripper {
	if base == nil {
		base = http.DefaultTransport
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &loggingTransport{
		base:   base,
		logger: logger,
	}
}

// RoundTrip implements http.RoundTripper interface with logging
func (t *loggingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	// RoundTrip must not modify the caller's request
	req = req.Clone(req.Context())
	if req.Header.Get(RequestIDHeader) == "" {
		req.Header.Set(RequestIDHeader, uuid.NewString())
	}

	startTime := time.Now()
	route := RouteLabel(req.URL.Path)

	t.logRequest(req)

	resp, err := t.base.RoundTrip(req)

	duration := time.Since(startTime)

	if err != nil {
		metrics.RecordTransportError(req.Method, route)
		t.logger.Warn("API request failed",
			zap.String("method", req.Method),
			zap.String("url", req.URL.String()),
			zap.String("request_id", req.Header.Get(RequestIDHeader)),
			zap.Duration("duration", duration),
			zap.Error(err),
		)
		return nil, err
	}

	metrics.RecordAPIRequest(req.Method, route, strconv.Itoa(resp.StatusCode), duration)
	t.logResponse(req, resp, duration)

	return resp, nil
}

// logRequest logs details about the outgoing request
func (t *loggingTransport) logRequest(req *http.Request) {
	var bodyPreview string
	if req.Body != nil && req.Body != http.NoBody {
		bodyBytes, err := io.ReadAll(req.Body)
		if err == nil {
			// Restore the body for actual sending
			req.Body = io.NopCloser(bytes.NewReader(bodyBytes))
			bodyPreview = formatBodyPreview(bodyBytes)
		}
	}

	t.logger.Debug("Sending API request",
		zap.String("method", req.Method),
		zap.String("url", req.URL.String()),
		zap.String("request_id", req.Header.Get(RequestIDHeader)),
		zap.String("body_preview", bodyPreview),
		zap.Any("headers", formatHeaders(req.Header)),
	)
}

// logResponse logs details about the response received
func (t *loggingTransport) logResponse(req *http.Request, resp *http.Response, duration time.Duration) {
	var bodyPreview string
	if resp.Body != nil {
		bodyBytes, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err == nil {
			// Restore the body for the caller
			resp.Body = io.NopCloser(bytes.NewReader(bodyBytes))
			bodyPreview = formatBodyPreview(bodyBytes)
		} else {
			resp.Body = io.NopCloser(bytes.NewReader(nil))
		}
	}

	logFunc := t.logger.Debug
	message := "Received API response"
	if resp.StatusCode >= 500 {
		logFunc = t.logger.Error
		message = "API request failed with server error"
	} else if resp.StatusCode >= 400 {
		logFunc = t.logger.Info
		message = "API request rejected"
	}

	logFunc(message,
		zap.String("method", req.Method),
		zap.String("path", req.URL.Path),
		zap.Int("status", resp.StatusCode),
		zap.String("request_id", req.Header.Get(RequestIDHeader)),
		zap.Duration("duration", duration),
		zap.String("body_preview", bodyPreview),
	)
}

// RouteLabel collapses per-code paths so metric labels stay bounded
func RouteLabel(path string) string {
	const linksPrefix = "/api/links/"
	if idx := strings.Index(path, linksPrefix); idx >= 0 && len(path) > idx+len(linksPrefix) {
		return path[:idx] + linksPrefix + ":code"
	}
	return path
}

// formatBodyPreview formats the body bytes into a readable preview
func formatBodyPreview(bodyBytes []byte) string {
	if len(bodyBytes) == 0 {
		return "(empty)"
	}

	preview := string(bodyBytes)
	if len(preview) > maxBodyPreview {
		preview = preview[:maxBodyPreview] + "... (truncated)"
	}

	preview = strings.ReplaceAll(preview, "\n", " ")
	preview = strings.ReplaceAll(preview, "\t", " ")

	return preview
}

// formatHeaders formats HTTP headers for logging, hiding sensitive data
func formatHeaders(headers http.Header) map[string]string {
	formatted := make(map[string]string)
	for key, values := range headers {
		lowerKey := strings.ToLower(key)
		if strings.Contains(lowerKey, "authorization") ||
			strings.Contains(lowerKey, "token") ||
			strings.Contains(lowerKey, "secret") ||
			strings.Contains(lowerKey, "cookie") {
			formatted[key] = "***REDACTED***"
		} else {
			formatted[key] = strings.Join(values, ", ")
		}
	}
	return formatted
}
