package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"sync"
	"time"
)

type lokiStream struct {
	Stream map[string]string `json:"stream"`
	Values [][]string        `json:"values"`
}

type lokiPushRequest struct {
	Streams []lokiStream `json:"streams"`
}

// fields copied from the JSON entry into stream labels
var lokiLabelFields = []string{"level", "component", "operation", "method"}

// lokiWriter implements zapcore.WriteSyncer by pushing each entry to Loki
// in its own goroutine. Shutdown waits for the goroutines in flight.
type lokiWriter struct {
	url         string
	client      *http.Client
	serviceName string
	environment string
	errOut      io.Writer

	wg sync.WaitGroup
}

func newLokiWriter(url, serviceName, environment string, errOut io.Writer) *lokiWriter {
	return &lokiWriter{
		url: url,
		client: &http.Client{
			Timeout:   10 * time.Second,
			Transport: newPushTransport(http.DefaultTransport, errOut),
		},
		serviceName: serviceName,
		environment: environment,
		errOut:      errOut,
	}
}

// Write implements io.Writer
func (w *lokiWriter) Write(p []byte) (int, error) {
	// zap reuses its buffer once Write returns
	line := make([]byte, len(p))
	copy(line, p)
	ts := time.Now()

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		if err := w.push(line, ts); err != nil {
			// the logger itself cannot be used here
			fmt.Fprintf(w.errOut, "loki push failed: %v\n", err)
		}
	}()

	return len(p), nil
}

// Sync implements zapcore.WriteSyncer
func (w *lokiWriter) Sync() error {
	return nil
}

// Shutdown waits for pushes in flight until ctx expires
func (w *lokiWriter) Shutdown(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		w.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("loki flush: %w", ctx.Err())
	}
}

func (w *lokiWriter) labels(line []byte) map[string]string {
	labels := map[string]string{
		"service_name": w.serviceName,
		"environment":  w.environment,
		"job":          "tinylink",
	}

	var entry map[string]interface{}
	if err := json.Unmarshal(line, &entry); err != nil {
		return labels
	}
	for _, field := range lokiLabelFields {
		if value, ok := entry[field].(string); ok && value != "" {
			labels[field] = value
		}
	}
	if status, ok := entry["status"].(float64); ok {
		labels["status"] = strconv.Itoa(int(status))
	}
	return labels
}

func (w *lokiWriter) push(line []byte, ts time.Time) error {
	pushReq := lokiPushRequest{
		Streams: []lokiStream{
			{
				Stream: w.labels(line),
				Values: [][]string{
					{strconv.FormatInt(ts.UnixNano(), 10), string(bytes.TrimRight(line, "\n"))},
				},
			},
		},
	}

	body, err := json.Marshal(pushReq)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequest(http.MethodPost, w.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.client.Do(req)
	if err != nil {
		return err
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("loki returned status %d", resp.StatusCode)
	}
	return nil
}
