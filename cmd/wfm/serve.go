package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/hpcwfm/wfm/internal/app"
	"github.com/hpcwfm/wfm/internal/common"
	"github.com/hpcwfm/wfm/internal/server"
)

var (
	serveConfigFiles []string
	servePort        int
	serveHost        string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the WFM engine",
	Long:  `Starts the WFM HTTP server that manages sessions, ephemeral services and steps.`,
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().StringArrayVarP(&serveConfigFiles, "config", "c", nil, "Configuration file path (repeatable, later files override earlier ones)")
	serveCmd.Flags().IntVarP(&servePort, "port", "p", 0, "Server port (overrides config)")
	serveCmd.Flags().StringVar(&serveHost, "host", "", "Server host (overrides config)")
}

func runServe(cmd *cobra.Command, args []string) error {
	// Auto-discover config file if not specified
	if len(serveConfigFiles) == 0 {
		if _, err := os.Stat("wfm.toml"); err == nil {
			serveConfigFiles = append(serveConfigFiles, "wfm.toml")
		} else if _, err := os.Stat("deployments/local/wfm.toml"); err == nil {
			serveConfigFiles = append(serveConfigFiles, "deployments/local/wfm.toml")
		}
	}

	// Load configuration (defaults -> files -> env -> CLI)
	config, err := common.LoadFromFiles(serveConfigFiles...)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	common.ApplyFlagOverrides(config, servePort, serveHost)

	logger := common.InitLogger(config)
	common.PrintBanner(common.LoadVersionFromFile())

	logger.Info().
		Strs("config_files", serveConfigFiles).
		Int("port", config.Server.Port).
		Str("host", config.Server.Host).
		Msg("Application configuration loaded")

	application, err := app.New(config)
	if err != nil {
		return fmt.Errorf("failed to initialize application: %w", err)
	}

	srv := server.New(application)
	go func() {
		if err := srv.Start(); err != nil {
			logger.Fatal().Err(err).Msg("Server failed to start")
		}
	}()

	logger.Info().
		Str("url", fmt.Sprintf("http://%s:%d", config.Server.Host, config.Server.Port)).
		Msg("Server ready - Press Ctrl+C to stop")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan
	logger.Info().Msg("Interrupt signal received")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error().Err(err).Msg("Server shutdown failed")
	}
	if err := application.Shutdown(ctx); err != nil {
		logger.Error().Err(err).Msg("Application shutdown failed")
	}

	logger.Info().Msg("Server stopped")
	return nil
}
