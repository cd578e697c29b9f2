package logger

import (
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// pushTransport reports Loki push failures on out. It cannot log through zap
// because every zap entry would trigger another push.
type pushTransport struct {
	base http.RoundTripper
	out  io.Writer
}

func newPushTransport(base http.RoundTripper, out io.Writer) http.RoundTripper {
	if base == nil {
		base = http.DefaultTransport
	}
	return &pushTransport{base: base, out: out}
}

// RoundTrip implements http.RoundTripper
func (t *pushTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	start := time.Now()

	resp, err := t.base.RoundTrip(req)
	duration := time.Since(start)
	if err != nil {
		fmt.Fprintf(t.out, "[loki] request failed: method=%s url=%s duration=%v error=%v\n",
			req.Method, req.URL.String(), duration, err)
		return nil, err
	}

	if resp.StatusCode >= 400 {
		preview := ""
		if resp.Body != nil {
			body, readErr := io.ReadAll(io.LimitReader(resp.Body, 512))
			_ = resp.Body.Close()
			if readErr == nil {
				preview = compact(string(body), 200)
			}
			resp.Body = io.NopCloser(strings.NewReader(string(body)))
		}
		fmt.Fprintf(t.out, "[loki] push rejected: status=%d duration=%v body=%s\n",
			resp.StatusCode, duration, preview)
	}

	return resp, nil
}

func compact(s string, maxLen int) string {
	if s == "" {
		return "(empty)"
	}
	s = strings.Join(strings.Fields(s), " ")
	if len(s) > maxLen {
		s = s[:maxLen] + "..."
	}
	return s
}
