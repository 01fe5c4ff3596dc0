package main

import (
	"fmt"

	"github.com/jonathan/cv-builder/internal/cache"
	"github.com/jonathan/cv-builder/internal/logging"
	"github.com/jonathan/cv-builder/internal/remote"
	"github.com/jonathan/cv-builder/internal/server"
	"github.com/jonathan/cv-builder/internal/wizard"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	servePort         int
	serveTemplatePath string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the REST API server",
	Long:  `Start an HTTP server that exposes the account, dashboard and wizard session endpoints.`,
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "Port to listen on (overrides the config file)")
	serveCmd.Flags().StringVar(&serveTemplatePath, "latex-template", "", "LaTeX template replacing the built-in one")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if servePort != 0 {
		cfg.Port = servePort
	}

	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	ctx := cmd.Context()
	backend, closeBackend, err := openBackend(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeBackend()

	var templates remote.TemplateSource = backend
	if cfg.RedisURL != "" {
		client, err := cache.NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			return err
		}
		defer client.Close()
		templates = cache.NewTemplateCache(backend, cache.NewRedisKV(client), cfg.TemplateCacheTTL, logger.Named("cache"))
		logger.Info("template cache enabled", zap.Duration("ttl", cfg.TemplateCacheTTL))
	}

	srv, err := server.New(server.Config{
		Port:      cfg.Port,
		Backend:   backend,
		Templates: templates,
		Sessions: wizard.ManagerOptions{
			AutosaveDelay: cfg.AutosaveDelay,
			IdleTimeout:   cfg.SessionIdleTimeout,
		},
		TemplatePath: serveTemplatePath,
		Logger:       logger,
	})
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}

	return srv.Start()
}
