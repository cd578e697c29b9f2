// Package cli implements the tinylink command line: one-shot subcommands over the
// link controllers plus the interactive dashboard.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/fonsecaaso/tinylink/config"
	"github.com/fonsecaaso/tinylink/internal/controller"
	db "github.com/fonsecaaso/tinylink/internal/database"
	"github.com/fonsecaaso/tinylink/internal/logger"
	"github.com/fonsecaaso/tinylink/internal/observability"
	"github.com/fonsecaaso/tinylink/internal/repository"
)

const (
	exitOK      = 0
	exitFailure = 1
	exitUsage   = 2
)

var errUsage = errors.New("usage error")

func usageError(format string, args ...any) error {
	return fmt.Errorf("%w: %s", errUsage, fmt.Sprintf(format, args...))
}

// noArgs rejects positional arguments as usage errors
func noArgs(cmd *cobra.Command, args []string) error {
	if len(args) > 0 {
		return usageError("unknown command %q for %q", args[0], cmd.CommandPath())
	}
	return nil
}

// globalOptions are the persistent flags shared by every command
type globalOptions struct {
	apiURL   string
	baseURL  string
	timeout  time.Duration
	logLevel string
	logFile  string
}

type app struct {
	opts   globalOptions
	cfg    *config.Config
	list   *controller.ListController
	create *controller.CreateController
	stats  *controller.StatsController
	health *controller.HealthController
	stdout io.Writer
	stderr io.Writer
	logger *zap.Logger

	cleanup []func(context.Context)
}

// Run executes the command line in args (without the program name) and returns the
// process exit code.
func Run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	a := &app{stdout: stdout, stderr: stderr}
	defer a.close()

	root := a.rootCommand()
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)

	cmd, err := root.ExecuteContextC(ctx)
	if cmd == nil {
		cmd = root
	}
	switch {
	case err == nil:
		return exitOK
	case errors.Is(err, errUsage):
		fmt.Fprintln(stderr, strings.TrimPrefix(err.Error(), errUsage.Error()+": "))
		fmt.Fprintln(stderr)
		fmt.Fprint(stderr, cmd.UsageString())
		return exitUsage
	default:
		if a.logger != nil {
			a.logger.Debug("command failed", zap.String("command", cmd.Name()), zap.Error(err))
		}
		return exitFailure
	}
}

func (a *app) rootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   "tinylink",
		Short: "Manage TinyLink short links from the terminal.",
		Long: `tinylink lists, creates and deletes short links and shows their click statistics.
Without a command it opens the interactive dashboard.

Configuration comes from the environment (TINYLINK_API_URL, TINYLINK_BASE_URL,
TINYLINK_TIMEOUT, LOG_LEVEL, REDIS_ADDR, ...) and a .env file; flags override it.`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		Args:              noArgs,
		PersistentPreRunE: a.setup,
		RunE:              a.runTUI,
	}

	flags := root.PersistentFlags()
	flags.StringVar(&a.opts.apiURL, "api", "", "API base URL (overrides TINYLINK_API_URL)")
	flags.StringVar(&a.opts.baseURL, "base", "", "base for printed short URLs (overrides TINYLINK_BASE_URL)")
	flags.DurationVar(&a.opts.timeout, "timeout", 0, "per request timeout (overrides TINYLINK_TIMEOUT)")
	flags.StringVar(&a.opts.logLevel, "log-level", "", "log level (overrides LOG_LEVEL)")
	flags.StringVar(&a.opts.logFile, "log-file", "", "log file path (overrides LOG_FILE)")

	root.SetFlagErrorFunc(func(cmd *cobra.Command, err error) error {
		return usageError("%v", err)
	})

	root.AddCommand(
		a.listCommand(),
		a.createCommand(),
		a.deleteCommand(),
		a.statsCommand(),
		a.healthCommand(),
		a.tuiCommand(),
	)
	return root
}

// setup loads the configuration and wires logging, observability and the
// controllers before any command runs.
func (a *app) setup(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(a.stderr, "configuration error: %v\n", err)
		return err
	}
	a.applyOverrides(cfg)
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(a.stderr, "configuration error: %v\n", err)
		return err
	}
	a.cfg = cfg

	// the dashboard owns the terminal, so its logs only go to the file and Loki
	interactive := !cmd.HasParent() || cmd.Name() == "tui"
	log, shutdownLogger, err := logger.Init(cfg, !interactive)
	if err != nil {
		fmt.Fprintf(a.stderr, "logger error: %v\n", err)
		return err
	}
	a.logger = log.With(zap.String("component", "cli"))
	a.onClose(func(ctx context.Context) { _ = shutdownLogger(ctx) })

	obs, err := observability.Setup(cmd.Context(), cfg)
	if err != nil {
		log.Warn("observability disabled", zap.Error(err))
	} else {
		a.onClose(func(ctx context.Context) {
			if err := obs.Shutdown(ctx); err != nil {
				log.Warn("observability shutdown failed", zap.Error(err))
			}
		})
	}

	repo := newRepository(cfg, log)
	a.list = controller.NewListController(repo)
	a.create = controller.NewCreateController(repo, a.list)
	a.stats = controller.NewStatsController(repo, cfg.BaseURL)
	a.health = controller.NewHealthController(repo)
	return nil
}

func (a *app) applyOverrides(cfg *config.Config) {
	if a.opts.apiURL != "" {
		api := strings.TrimRight(a.opts.apiURL, "/")
		if cfg.BaseURL == cfg.APIURL {
			cfg.BaseURL = api
		}
		cfg.APIURL = api
	}
	if a.opts.baseURL != "" {
		cfg.BaseURL = strings.TrimRight(a.opts.baseURL, "/")
	}
	if a.opts.timeout != 0 {
		cfg.RequestTimeout = a.opts.timeout
	}
	if a.opts.logLevel != "" {
		cfg.LogLevel = a.opts.logLevel
	}
	if a.opts.logFile != "" {
		cfg.LogFile = a.opts.logFile
	}
}

func (a *app) onClose(fn func(context.Context)) {
	a.cleanup = append(a.cleanup, fn)
}

// close runs the registered shutdown hooks, newest first
func (a *app) close() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for i := len(a.cleanup) - 1; i >= 0; i-- {
		a.cleanup[i](ctx)
	}
}

// newRepository builds the HTTP repository, backed by the Redis cache when one is
// configured and reachable.
func newRepository(cfg *config.Config, log *zap.Logger) repository.LinkRepository {
	var repo repository.LinkRepository = repository.NewHTTPLinkRepository(cfg.APIURL, nil)
	if cfg.RedisAddr == "" {
		return repo
	}

	redisClient, err := db.NewRedisClient(cfg)
	if err != nil {
		log.Warn("redis unavailable, continuing without cache", zap.Error(err))
		return repo
	}
	log.Info("redis connection established", zap.String("addr", cfg.RedisAddr))
	return repository.NewCachedLinkRepository(repo, repository.NewRedisCache(redisClient), cfg.CacheTTL)
}

func (a *app) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, a.cfg.RequestTimeout)
}

func (a *app) fail(message string, err error) error {
	fmt.Fprintln(a.stderr, message)
	if err == nil {
		err = errors.New(message)
	}
	return err
}
