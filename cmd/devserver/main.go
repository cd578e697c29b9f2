package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/fonsecaaso/tinylink/config"
	"github.com/fonsecaaso/tinylink/internal/handler"
	"github.com/fonsecaaso/tinylink/internal/logger"
	"github.com/fonsecaaso/tinylink/internal/middleware"
	"github.com/fonsecaaso/tinylink/internal/observability"
	route "github.com/fonsecaaso/tinylink/internal/routes"
	"github.com/fonsecaaso/tinylink/internal/store"
)

var version = "dev"

var seedLinks = []struct {
	code string
	url  string
}{
	{"docs12", "https://go.dev/doc/"},
	{"gin4you", "https://gin-gonic.com/docs/"},
	{"zapLog1", "https://pkg.go.dev/go.uber.org/zap"},
}

func main() {
	var addr string
	var seed bool

	cmd := &cobra.Command{
		Use:   "devserver",
		Short: "Run the in-memory TinyLink backend for local development.",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			serve(addr, seed)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (defaults to DEVSERVER_ADDR)")
	cmd.Flags().BoolVar(&seed, "seed", false, "preload a few sample links")

	if err := cmd.Execute(); err != nil {
		os.Exit(2)
	}
}

func serve(addr string, seed bool) {
	cfg, err := config.LoadConfig()
	if err != nil {
		zap.Must(zap.NewProduction()).Fatal("error loading configuration", zap.Error(err))
	}
	if addr != "" {
		cfg.DevServerAddr = addr
	}
	// console only, the log file belongs to the client
	cfg.LogFile = ""

	log, shutdownLogger, err := logger.Init(cfg, true)
	if err != nil {
		zap.Must(zap.NewProduction()).Fatal("error initializing logger", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// /metrics is served by the router itself
	cfg.MetricsAddr = ""
	obs, err := observability.Setup(ctx, cfg)
	if err != nil {
		log.Fatal("observability failed to initialize", zap.Error(err))
	}

	linkStore := store.NewMemoryStore()
	if seed {
		for _, s := range seedLinks {
			if _, err := linkStore.Create(s.url, s.code); err != nil {
				log.Warn("failed to seed link", zap.String("code", s.code), zap.Error(err))
			}
		}
		log.Info("seeded sample links", zap.Int("count", len(seedLinks)))
	}

	if cfg.Environment != "development" {
		gin.SetMode(gin.ReleaseMode)
	}

	limiter := middleware.NewRateLimiter(cfg.RateLimit, cfg.RateWindow)
	defer limiter.Stop()

	server := &http.Server{
		Addr:              cfg.DevServerAddr,
		Handler:           route.SetupRouter(handler.NewLinkHandler(linkStore, version), limiter),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Info("starting dev server", zap.String("addr", cfg.DevServerAddr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("server failed to start", zap.Error(err))
		}
	}()

	<-ctx.Done()
	log.Info("shutting down dev server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("server shutdown failed", zap.Error(err))
	}
	if err := obs.Shutdown(shutdownCtx); err != nil {
		log.Error("observability shutdown failed", zap.Error(err))
	}
	_ = shutdownLogger(shutdownCtx)
}
