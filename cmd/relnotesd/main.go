// Relnotesd is a release notes daemon with an HTTP/SSE transport. It accepts
// code changes over HTTP, filters out the ones that do not affect user-facing
// behavior, and streams generated developer and marketing notes back to the
// client as server-sent events. When a GitHub repository is configured it can
// also list recent merged pull requests ranked by release-note relevance.
//
// Usage:
//
//	relnotesd                  # start the daemon
//	relnotesd -config FILE     # start with an explicit config file
//	relnotesd version          # print version information
//
// Configuration comes from ~/.config/relnotesd/config.yaml with RELNOTESD_*
// environment variables taking precedence:
//
//	RELNOTESD_SERVER_HTTP_PORT=9300
//	RELNOTESD_GITHUB_OWNER=fyrsmithlabs
//	RELNOTESD_GITHUB_REPO=relnotesd
//	RELNOTESD_GITHUB_TOKEN=ghp_...
//	RELNOTESD_LLM_BASE_URL=http://localhost:11434/v1
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/relnotesd/internal/config"
	httpserver "github.com/fyrsmithlabs/relnotesd/internal/http"
	"github.com/fyrsmithlabs/relnotesd/internal/llm"
	"github.com/fyrsmithlabs/relnotesd/internal/logging"
	"github.com/fyrsmithlabs/relnotesd/internal/prompt"
	"github.com/fyrsmithlabs/relnotesd/internal/redact"
	"github.com/fyrsmithlabs/relnotesd/internal/telemetry"
	"github.com/fyrsmithlabs/relnotesd/internal/vcs"
)

// Build-time variables set via ldflags.
var (
	version   = "dev"
	gitCommit = "unknown"
	buildDate = "unknown"
)

var configPath = flag.String("config", "", "path to config file (default ~/.config/relnotesd/config.yaml)")

func main() {
	flag.Parse()

	if flag.NArg() > 0 {
		switch flag.Arg(0) {
		case "version":
			printVersion()
			return
		default:
			fmt.Fprintf(os.Stderr, "Unknown command: %s\n", flag.Arg(0))
			fmt.Fprintf(os.Stderr, "Usage: relnotesd [-config FILE] [version]\n")
			os.Exit(1)
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		log.Printf("Received signal %v, shutting down gracefully...", sig)
		cancel()
	}()

	if err := run(ctx); err != nil && err != http.ErrServerClosed {
		log.Fatalf("Server error: %v", err)
	}

	log.Println("Server shutdown complete")
}

func printVersion() {
	fmt.Printf("relnotesd by Fyrsmith Labs\n")
	fmt.Printf("Version:    %s\n", version)
	fmt.Printf("Commit:     %s\n", gitCommit)
	fmt.Printf("Build Date: %s\n", buildDate)
}

func run(ctx context.Context) error {
	cfg, err := config.LoadWithFile(*configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger, err := logging.New(cfg.Logging)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer func() {
		_ = logger.Sync()
	}()

	logger.Info("Starting relnotesd",
		zap.String("version", version),
		zap.String("host", cfg.Server.Host),
		zap.Int("port", cfg.Server.Port))

	tel, err := telemetry.New(ctx, telemetryConfig(cfg))
	if err != nil {
		return fmt.Errorf("failed to initialize telemetry: %w", err)
	}
	defer func() {
		// Shutdown applies the configured timeout when the context has no
		// deadline.
		_ = tel.Shutdown(context.Background())
	}()
	if health := tel.Health(); health.Degraded {
		logger.Warn("Telemetry degraded, continuing without full instrumentation",
			zap.String("reason", health.Reason))
	}

	deps, err := initDependencies(cfg, logger)
	if err != nil {
		return err
	}

	srv, err := httpserver.NewServer(deps.generator, deps.builder, deps.redactor, deps.changes, logger, &httpserver.Config{
		Host:              cfg.Server.Host,
		Port:              cfg.Server.Port,
		ProgressBatchSize: cfg.Stream.ProgressBatchSize,
		IdleTimeout:       cfg.Stream.IdleTimeout,
		MinChangedLines:   cfg.Stream.MinChangedLines,
	})
	if err != nil {
		return fmt.Errorf("failed to create HTTP server: %w", err)
	}

	httpMetrics := httpserver.NewHTTPMetrics(logger)
	srv.Echo().Use(httpMetrics.MetricsMiddleware())
	srv.Echo().GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	baseURL := fmt.Sprintf("http://%s:%d", cfg.Server.Host, cfg.Server.Port)
	logger.Info("Server configured",
		zap.String("analyze_endpoint", baseURL+"/api/v1/analyze"),
		zap.String("pulls_endpoint", baseURL+"/api/v1/pulls"),
		zap.String("health_endpoint", baseURL+"/health"),
		zap.String("metrics_endpoint", baseURL+"/metrics"))

	return srv.Run(ctx, cfg.Server.ShutdownTimeout)
}

// dependencies holds the services behind the HTTP surface.
type dependencies struct {
	generator llm.Generator
	builder   *prompt.Builder
	redactor  redact.Redactor
	changes   httpserver.ChangeLister
}

// initDependencies wires the generation backend, secret redaction, prompt
// builder, and the optional GitHub client. The daemon runs without GitHub
// coordinates; only the pulls listing needs them.
func initDependencies(cfg *config.Config, logger *zap.Logger) (*dependencies, error) {
	generator, err := llm.New(llm.Config{
		BaseURL:           cfg.LLM.BaseURL,
		Model:             cfg.LLM.Model,
		APIKey:            cfg.LLM.APIKey.Value(),
		Temperature:       cfg.LLM.Temperature,
		MaxTokens:         cfg.LLM.MaxTokens,
		RequestsPerMinute: cfg.LLM.RequestsPerMinute,
		MaxRetries:        cfg.LLM.MaxRetries,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create generation backend: %w", err)
	}
	logger.Info("Generation backend initialized",
		zap.String("base_url", cfg.LLM.BaseURL),
		zap.String("model", cfg.LLM.Model),
		logging.Secret("api_key", cfg.LLM.APIKey))

	redactor, err := redact.New(redact.Config{
		Enabled:       cfg.Redact.Enabled,
		AllowlistPath: cfg.Redact.AllowlistPath,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create redactor: %w", err)
	}
	logger.Info("Secret redaction initialized", zap.Bool("enabled", redactor.IsEnabled()))

	builder := prompt.NewBuilder(cfg.LLM.MaxDiffChars)

	var changes httpserver.ChangeLister
	if cfg.GitHub.Configured() {
		client, err := vcs.New(vcs.Config{
			Token:    cfg.GitHub.Token.Value(),
			Owner:    cfg.GitHub.Owner,
			Repo:     cfg.GitHub.Repo,
			BaseURL:  cfg.GitHub.BaseURL,
			PerPage:  cfg.GitHub.PerPage,
			MaxPages: cfg.GitHub.MaxPages,
		}, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to create GitHub client: %w", err)
		}
		changes = client
		logger.Info("GitHub client initialized",
			zap.String("owner", cfg.GitHub.Owner),
			zap.String("repo", cfg.GitHub.Repo),
			logging.Secret("token", cfg.GitHub.Token))
	} else {
		logger.Info("No GitHub repository configured, pulls listing disabled")
	}

	return &dependencies{
		generator: generator,
		builder:   builder,
		redactor:  redactor,
		changes:   changes,
	}, nil
}

// telemetryConfig maps the daemon observability section onto the telemetry
// package defaults.
func telemetryConfig(cfg *config.Config) *telemetry.Config {
	tc := telemetry.NewDefaultConfig()
	tc.Enabled = cfg.Observability.EnableTelemetry
	tc.ServiceVersion = version
	if cfg.Observability.ServiceName != "" {
		tc.ServiceName = cfg.Observability.ServiceName
	}
	if cfg.Observability.Endpoint != "" {
		tc.Endpoint = cfg.Observability.Endpoint
	}
	tc.Insecure = cfg.Observability.Insecure
	return tc
}
