package cli

import (
	"context"
	"fmt"
	"time"

	"skillmatch/internal/observability"
	"skillmatch/internal/roles"
	"skillmatch/internal/server"

	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	Long: `Start an HTTP server that provides REST API endpoints for skill analysis.

Available endpoints:
- POST /analyze: Rate a resume against required skills
- POST /analyze/batch: Rate several resumes against the same skills
- POST /compare: Compare two resumes
- POST /skills/extract: Extract skills from a job description
- POST /ats: Score ATS compatibility
- POST /rewrite: Rewrite a resume for a role
- POST /sessions: Analyze a resume and open a Q&A session
- POST /sessions/{id}/ask: Ask about the resume of a session
- DELETE /sessions/{id}: Close a session
- GET /roles: Role presets
- GET /health: Health check endpoint
- GET /stats: Server statistics and rate limiting info

When roles.watch is set the role file is reloaded on change.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

var (
	servePort string
	serveHost string
)

func init() {
	serveCmd.Flags().StringVarP(&servePort, "port", "p", "", "Port to listen on (default from config)")
	serveCmd.Flags().StringVar(&serveHost, "host", "", "Host to bind to (default from config)")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := getConfigFromContext(cmd.Context())
	logger := getLoggerFromContext(cmd.Context())

	if servePort != "" {
		cfg.Server.Port = servePort
	}
	if serveHost != "" {
		cfg.Server.Host = serveHost
	}

	om, err := observability.NewManager(cfg.Observability, Version, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize observability: %w", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := om.Shutdown(ctx); err != nil {
			logger.LogError(err, "Failed to shutdown observability")
		}
	}()

	e, err := newEngine(cfg, logger, om.Metrics())
	if err != nil {
		return err
	}
	defer e.Close()

	if cfg.Roles.Watch && cfg.Roles.File != "" {
		watcher, err := roles.NewWatcher(e.catalog, cfg.Roles.DebounceDelay, logger)
		if err != nil {
			return fmt.Errorf("failed to watch role file: %w", err)
		}
		if err := watcher.Start(); err != nil {
			return fmt.Errorf("failed to watch role file: %w", err)
		}
		defer func() {
			if err := watcher.Stop(); err != nil {
				logger.LogError(err, "Failed to stop role file watcher")
			}
		}()
	}

	deps := server.Dependencies{
		Analyzer:      e.analyzer,
		Roles:         e.catalog,
		Observability: om,
	}
	for _, c := range e.service.Clients() {
		deps.Models = append(deps.Models, c)
	}
	if e.cache != nil {
		deps.Cache = e.cache
	}

	serverCfg := server.ServerConfig{
		Host:           cfg.Server.Host,
		Port:           cfg.Server.Port,
		Version:        Version,
		APIKeys:        cfg.Server.APIKeys,
		ReadTimeout:    cfg.Server.ReadTimeout,
		WriteTimeout:   cfg.Server.WriteTimeout,
		IdleTimeout:    cfg.Server.IdleTimeout,
		MaxRequestSize: cfg.App.MaxFileSize,
		SessionTTL:     cfg.Server.SessionTTL,
		MaxSessions:    cfg.Server.MaxSessions,
		RateLimit:      &cfg.Server.RateLimit,
	}
	return server.NewServer(cfg, serverCfg, deps, logger).Start(cmd.Context())
}
