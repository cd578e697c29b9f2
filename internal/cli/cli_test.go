package cli

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/fonsecaaso/tinylink/internal/controller"
	"github.com/fonsecaaso/tinylink/internal/handler"
	"github.com/fonsecaaso/tinylink/internal/middleware"
	route "github.com/fonsecaaso/tinylink/internal/routes"
	"github.com/fonsecaaso/tinylink/internal/store"
)

func setupBackend(t *testing.T) (*httptest.Server, *store.MemoryStore) {
	logger, _ := zap.NewDevelopment()
	zap.ReplaceGlobals(logger)
	gin.SetMode(gin.TestMode)

	for _, key := range []string{"REDIS_ADDR", "LOKI_URL", "METRICS_ADDR", "OTEL_EXPORTER_OTLP_ENDPOINT", "TINYLINK_BASE_URL"} {
		t.Setenv(key, "")
	}

	linkStore := store.NewMemoryStore()
	limiter := middleware.NewRateLimiter(100, time.Minute)
	t.Cleanup(limiter.Stop)

	server := httptest.NewServer(route.SetupRouter(handler.NewLinkHandler(linkStore, "test"), limiter))
	t.Cleanup(server.Close)
	return server, linkStore
}

// run invokes the command line against server and returns exit code, stdout and stderr
func run(t *testing.T, server *httptest.Server, args ...string) (int, string, string) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	global := []string{"--api", server.URL, "--log-level", "error", "--log-file", filepath.Join(t.TempDir(), "tinylink.log")}
	code := Run(context.Background(), append(global, args...), &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func TestRun_ListPrintsTable(t *testing.T) {
	server, linkStore := setupBackend(t)
	_, err := linkStore.Create("https://example.com/docs", "docs12")
	require.NoError(t, err)
	_, err = linkStore.Create("https://example.com/login", "login88")
	require.NoError(t, err)

	code, out, _ := run(t, server, "list")
	assert.Equal(t, exitOK, code)
	assert.Contains(t, out, "CODE")
	assert.Contains(t, out, "docs12")
	assert.Contains(t, out, server.URL+"/login88")
	assert.Contains(t, out, controller.NeverClicked)

	code, out, _ = run(t, server, "list", "-q", "log")
	assert.Equal(t, exitOK, code)
	assert.Contains(t, out, "login88")
	assert.NotContains(t, out, "docs12")

	_, out, _ = run(t, server, "list", "-q", "zzz")
	assert.Contains(t, out, controller.MsgNoMatches)
}

func TestRun_ListEmpty(t *testing.T) {
	server, _ := setupBackend(t)

	code, out, _ := run(t, server, "list")
	assert.Equal(t, exitOK, code)
	assert.Contains(t, out, controller.MsgNoLinks)
}

func TestRun_Create(t *testing.T) {
	server, linkStore := setupBackend(t)

	code, out, _ := run(t, server, "create", "--url", "https://example.com/new", "--code", "fresh99")
	assert.Equal(t, exitOK, code)
	assert.Contains(t, out, controller.MsgLinkCreated)
	assert.Contains(t, out, server.URL+"/fresh99")

	_, err := linkStore.Get("fresh99")
	assert.NoError(t, err)

	// caught by the local duplicate check
	code, _, errOut := run(t, server, "create", "--url", "https://example.com/other", "--code", "fresh99")
	assert.Equal(t, exitFailure, code)
	assert.Contains(t, errOut, controller.MsgCodeTaken)
}

func TestRun_CreateValidation(t *testing.T) {
	server, linkStore := setupBackend(t)

	code, _, errOut := run(t, server, "create", "--url", "not-a-url")
	assert.Equal(t, exitFailure, code)
	assert.Contains(t, errOut, controller.MsgURLInvalid)

	code, _, errOut = run(t, server, "create", "--url", "https://example.com", "--code", "ab")
	assert.Equal(t, exitFailure, code)
	assert.Contains(t, errOut, controller.MsgCodeInvalid)

	assert.Empty(t, linkStore.List())
}

func TestRun_DeleteAndStats(t *testing.T) {
	server, linkStore := setupBackend(t)
	_, err := linkStore.Create("https://example.com/docs", "docs12")
	require.NoError(t, err)
	_, err = linkStore.RecordClick("docs12")
	require.NoError(t, err)

	code, out, _ := run(t, server, "stats", "--code", "docs12")
	assert.Equal(t, exitOK, code)
	assert.Contains(t, out, server.URL+"/docs12")
	assert.Contains(t, out, "Today:")
	assert.NotContains(t, out, controller.NeverClicked)

	code, out, _ = run(t, server, "delete", "--code", "docs12")
	assert.Equal(t, exitOK, code)
	assert.Contains(t, out, "Deleted docs12.")

	code, _, errOut := run(t, server, "delete", "--code", "docs12")
	assert.Equal(t, exitFailure, code)
	assert.NotEmpty(t, errOut)

	code, _, errOut = run(t, server, "stats", "--code", "docs12")
	assert.Equal(t, exitFailure, code)
	assert.Contains(t, errOut, controller.MsgStatsNotFound)
}

func TestRun_Health(t *testing.T) {
	server, _ := setupBackend(t)

	code, out, _ := run(t, server, "health")
	assert.Equal(t, exitOK, code)
	assert.Contains(t, out, "ok")
	assert.Contains(t, out, "test")

	unreachable := httptest.NewServer(http.NotFoundHandler())
	unreachable.Close()
	code, _, errOut := run(t, unreachable, "health")
	assert.Equal(t, exitFailure, code)
	assert.Contains(t, errOut, controller.MsgHealthUnreachable)
}

func TestRun_Usage(t *testing.T) {
	server, _ := setupBackend(t)

	code, _, errOut := run(t, server, "bogus")
	assert.Equal(t, exitUsage, code)
	assert.Contains(t, errOut, "unknown command")

	code, _, _ = run(t, server, "delete")
	assert.Equal(t, exitUsage, code)
}

func TestRun_BaseOverride(t *testing.T) {
	server, linkStore := setupBackend(t)
	_, err := linkStore.Create("https://example.com/docs", "docs12")
	require.NoError(t, err)

	var stdout, stderr bytes.Buffer
	code := Run(context.Background(), []string{
		"--api", server.URL,
		"--base", "https://tiny.example/",
		"--log-file", filepath.Join(t.TempDir(), "tinylink.log"),
		"list",
	}, &stdout, &stderr)

	assert.Equal(t, exitOK, code)
	assert.Contains(t, stdout.String(), "https://tiny.example/docs12")
}

func TestRun_FlagErrorsAreUsageErrors(t *testing.T) {
	server, _ := setupBackend(t)

	code, _, errOut := run(t, server, "list", "--bogus")
	assert.Equal(t, exitUsage, code)
	assert.Contains(t, errOut, "unknown flag: --bogus")
	assert.Contains(t, errOut, "Usage:")

	code, _, errOut = run(t, server, "stats", "extra")
	assert.Equal(t, exitUsage, code)
	assert.Contains(t, errOut, "unknown command")
}

func TestRun_HelpListsSubcommands(t *testing.T) {
	var stdout, stderr bytes.Buffer
	code := Run(context.Background(), []string{"--help"}, &stdout, &stderr)

	assert.Equal(t, exitOK, code)
	for _, name := range []string{"list", "create", "delete", "stats", "health", "tui"} {
		assert.Contains(t, stdout.String(), name)
	}
	assert.Contains(t, stdout.String(), "--api")
}

func TestRun_PersistentFlagsAfterSubcommand(t *testing.T) {
	server, linkStore := setupBackend(t)
	_, err := linkStore.Create("https://example.com/docs", "docs12")
	require.NoError(t, err)

	var stdout, stderr bytes.Buffer
	code := Run(context.Background(), []string{
		"list",
		"--api", server.URL,
		"--log-file", filepath.Join(t.TempDir(), "tinylink.log"),
		"--query", "doc",
	}, &stdout, &stderr)

	assert.Equal(t, exitOK, code)
	assert.Contains(t, stdout.String(), server.URL+"/docs12")
}
