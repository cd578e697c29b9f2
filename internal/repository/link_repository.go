package repository

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/propagation"
	"go.uber.org/zap"

	"github.com/fonsecaaso/tinylink/internal/metrics"
	"github.com/fonsecaaso/tinylink/internal/model"
	"github.com/fonsecaaso/tinylink/internal/tracing"
)

const maxResponseBytes = 1 << 20

// LinkRepository defines the link operations offered by the TinyLink API
type LinkRepository interface {
	ListLinks(ctx context.Context) ([]model.Link, error)
	CreateLink(ctx context.Context, longURL, code string) (*model.Link, error)
	DeleteLink(ctx context.Context, code string) error
	GetLink(ctx context.Context, code string) (*model.Link, error)
	Health(ctx context.Context) (*model.Health, error)
}

// HTTPLinkRepository implements LinkRepository against the TinyLink HTTP API
type HTTPLinkRepository struct {
	baseURL string
	client  *http.Client
	logger  *zap.Logger
}

// NewHTTPLinkRepository creates a repository for the API rooted at baseURL.
// A nil client gets the logging transport and a 10 second timeout.
func NewHTTPLinkRepository(baseURL string, client *http.Client) *HTTPLinkRepository {
	logger := zap.L().With(zap.String("component", "HTTPLinkRepository"))
	if client == nil {
		client = &http.Client{
			Transport: tracing.NewLoggingTransport(nil, logger),
			Timeout:   10 * time.Second,
		}
	}
	return &HTTPLinkRepository{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  client,
		logger:  logger,
	}
}

// dataEnvelope is the {data: ...} wrapper used by most API responses
type dataEnvelope struct {
	Data json.RawMessage `json:"data"`
}

// ListLinks fetches the full link collection
func (r *HTTPLinkRepository) ListLinks(ctx context.Context) (links []model.Link, err error) {
	ctx, span := tracing.StartSpan(ctx, "ListLinks")
	defer func() { tracing.EndSpan(span, err) }()
	defer func() { recordOutcome("list", err) }()

	resp, err := r.do(ctx, http.MethodGet, "/api/links", nil)
	if err != nil {
		return nil, transportError(MsgListFailed, err)
	}
	defer resp.Body.Close()

	body, err := readBody(resp)
	if err != nil {
		return nil, transportError(MsgListFailed, err)
	}

	if !isSuccess(resp.StatusCode) {
		r.logger.Warn("Failed to list links", zap.Int("status", resp.StatusCode))
		return nil, newAPIError(ErrServer, resp.StatusCode, errorMessage(body), MsgListFailed)
	}

	var envelope dataEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, transportError(MsgListFailed, fmt.Errorf("decode list response: %w", err))
	}

	links = []model.Link{}
	if len(envelope.Data) > 0 && string(envelope.Data) != "null" {
		if err := json.Unmarshal(envelope.Data, &links); err != nil {
			return nil, transportError(MsgListFailed, fmt.Errorf("decode links: %w", err))
		}
	}

	r.logger.Debug("Links loaded", zap.Int("count", len(links)))
	return links, nil
}

// CreateLink asks the API to shorten longURL. An empty code lets the server generate one.
func (r *HTTPLinkRepository) CreateLink(ctx context.Context, longURL, code string) (link *model.Link, err error) {
	ctx, span := tracing.StartSpan(ctx, "CreateLink", attribute.Bool("custom_code", code != ""))
	defer func() { tracing.EndSpan(span, err) }()
	defer func() { recordOutcome("create", err) }()

	payload, err := json.Marshal(model.CreateLinkRequest{LongURL: longURL, Code: code})
	if err != nil {
		return nil, transportError(MsgCreateFailed, err)
	}

	resp, err := r.do(ctx, http.MethodPost, "/api/links", payload)
	if err != nil {
		return nil, transportError(MsgCreateFailed, err)
	}
	defer resp.Body.Close()

	body, err := readBody(resp)
	if err != nil {
		return nil, transportError(MsgCreateFailed, err)
	}

	switch {
	case resp.StatusCode == http.StatusConflict:
		r.logger.Info("Code already taken", zap.String("code", code))
		return nil, newAPIError(ErrConflict, resp.StatusCode, errorMessage(body), MsgConflict)
	case resp.StatusCode == http.StatusBadRequest:
		r.logger.Info("Link rejected as invalid", zap.String("url", longURL))
		return nil, newAPIError(ErrInvalidInput, resp.StatusCode, errorMessage(body), MsgInvalidInput)
	case !isSuccess(resp.StatusCode):
		r.logger.Warn("Failed to create link", zap.Int("status", resp.StatusCode))
		return nil, newAPIError(ErrServer, resp.StatusCode, "", MsgCreateFailed)
	}

	link, err = decodeLink(body)
	if err != nil {
		return nil, transportError(MsgCreateFailed, err)
	}
	if link == nil {
		if code == "" {
			return nil, transportError(MsgCreateFailed, fmt.Errorf("response did not include the generated code"))
		}
		link = &model.Link{Code: code, LongURL: longURL}
	}
	if link.LongURL == "" {
		link.LongURL = longURL
	}

	r.logger.Info("Link created", zap.String("code", link.Code), zap.String("url", link.LongURL))
	return link, nil
}

// DeleteLink removes the link identified by code
func (r *HTTPLinkRepository) DeleteLink(ctx context.Context, code string) (err error) {
	ctx, span := tracing.StartSpan(ctx, "DeleteLink", attribute.String("code", code))
	defer func() { tracing.EndSpan(span, err) }()
	defer func() { recordOutcome("delete", err) }()

	resp, err := r.do(ctx, http.MethodDelete, "/api/links/"+url.PathEscape(code), nil)
	if err != nil {
		return transportError(MsgDeleteFailed, err)
	}
	defer resp.Body.Close()

	if isSuccess(resp.StatusCode) {
		r.logger.Info("Link deleted", zap.String("code", code))
		return nil
	}

	body, err := readBody(resp)
	if err != nil {
		return transportError(MsgDeleteFailed, err)
	}

	kind := ErrServer
	if resp.StatusCode == http.StatusNotFound {
		kind = ErrNotFound
	}
	r.logger.Warn("Failed to delete link", zap.String("code", code), zap.Int("status", resp.StatusCode))
	return newAPIError(kind, resp.StatusCode, errorMessage(body), MsgDeleteFailed)
}

// GetLink fetches the current detail of a single link. A missing link yields ErrNotFound.
func (r *HTTPLinkRepository) GetLink(ctx context.Context, code string) (link *model.Link, err error) {
	ctx, span := tracing.StartSpan(ctx, "GetLink", attribute.String("code", code))
	defer func() { tracing.EndSpan(span, err) }()
	defer func() { recordOutcome("get", err) }()

	resp, err := r.do(ctx, http.MethodGet, "/api/links/"+url.PathEscape(code), nil)
	if err != nil {
		return nil, transportError(MsgGetFailed, err)
	}
	defer resp.Body.Close()

	body, err := readBody(resp)
	if err != nil {
		return nil, transportError(MsgGetFailed, err)
	}

	if resp.StatusCode == http.StatusNotFound {
		return nil, newAPIError(ErrNotFound, resp.StatusCode, errorMessage(body), MsgNotFound)
	}
	if !isSuccess(resp.StatusCode) {
		r.logger.Warn("Failed to get link", zap.String("code", code), zap.Int("status", resp.StatusCode))
		return nil, newAPIError(ErrServer, resp.StatusCode, errorMessage(body), MsgGetFailed)
	}

	link, err = decodeLink(body)
	if err != nil {
		return nil, transportError(MsgGetFailed, err)
	}
	if link == nil {
		return nil, newAPIError(ErrNotFound, resp.StatusCode, "", MsgNotFound)
	}

	return link, nil
}

// Health reads the backend status from /healthz
func (r *HTTPLinkRepository) Health(ctx context.Context) (health *model.Health, err error) {
	ctx, span := tracing.StartSpan(ctx, "Health")
	defer func() { tracing.EndSpan(span, err) }()
	defer func() { recordOutcome("health", err) }()

	resp, err := r.do(ctx, http.MethodGet, "/healthz", nil)
	if err != nil {
		return nil, transportError(MsgHealthFailed, err)
	}
	defer resp.Body.Close()

	body, err := readBody(resp)
	if err != nil {
		return nil, transportError(MsgHealthFailed, err)
	}

	if !isSuccess(resp.StatusCode) {
		return nil, newAPIError(ErrServer, resp.StatusCode, "", MsgHealthFailed)
	}

	health = &model.Health{}
	if err := json.Unmarshal(body, health); err != nil {
		return nil, transportError(MsgHealthFailed, fmt.Errorf("decode health response: %w", err))
	}
	health.LastChecked = time.Now()

	return health, nil
}

func (r *HTTPLinkRepository) do(ctx context.Context, method, path string, payload []byte) (*http.Response, error) {
	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, r.baseURL+path, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(req.Header))

	return r.client.Do(req)
}

func readBody(resp *http.Response) ([]byte, error) {
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}
	return body, nil
}

// decodeLink accepts a bare link, {data: link} or {data: [link]}.
// It returns nil without error when the body carries no link.
func decodeLink(body []byte) (*model.Link, error) {
	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		return nil, nil
	}

	raw := body
	if body[0] == '{' {
		var envelope dataEnvelope
		if err := json.Unmarshal(body, &envelope); err != nil {
			return nil, fmt.Errorf("decode link response: %w", err)
		}
		if data := bytes.TrimSpace(envelope.Data); len(data) > 0 && string(data) != "null" {
			raw = data
		}
	}

	if raw[0] == '[' {
		var links []model.Link
		if err := json.Unmarshal(raw, &links); err != nil {
			return nil, fmt.Errorf("decode link list: %w", err)
		}
		if len(links) == 0 {
			return nil, nil
		}
		return &links[0], nil
	}

	var link model.Link
	if err := json.Unmarshal(raw, &link); err != nil {
		return nil, fmt.Errorf("decode link: %w", err)
	}
	if link.Code == "" {
		return nil, nil
	}
	return &link, nil
}

// errorMessage extracts the {error} field from an API error body
func errorMessage(body []byte) string {
	var payload model.ErrorResponse
	if err := json.Unmarshal(body, &payload); err != nil {
		return ""
	}
	return strings.TrimSpace(payload.Error)
}

func isSuccess(status int) bool {
	return status >= 200 && status < 300
}

func recordOutcome(operation string, err error) {
	outcome := "success"
	switch {
	case err == nil:
	case errors.Is(err, ErrNotFound):
		outcome = "not_found"
	case errors.Is(err, ErrConflict):
		outcome = "conflict"
	case errors.Is(err, ErrInvalidInput):
		outcome = "invalid"
	case errors.Is(err, ErrTransport):
		outcome = "transport_error"
	default:
		outcome = "server_error"
	}
	metrics.RecordLinkOperation(operation, outcome)
}
