// Package main runs the QTc service over HTTP, or over MCP stdio with the full storage stack.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/qtc-mcp-server/internal/api"
	"github.com/qtc-mcp-server/internal/config"
	"github.com/qtc-mcp-server/internal/domain"
	"github.com/qtc-mcp-server/internal/logging"
	"github.com/qtc-mcp-server/internal/mcp"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	var (
		configFile string
		mcpMode    bool
	)

	cmd := &cobra.Command{
		Use:           "qtc-server",
		Short:         "QTc calculation and classification server",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: false,
		RunE: func(cmd *cobra.Command, _ []string) error {
			configManager, err := config.NewManagerWithFile(configFile)
			if err != nil {
				return fmt.Errorf("failed to load configuration: %w", err)
			}
			if err := configManager.Validate(); err != nil {
				return fmt.Errorf("configuration validation failed: %w", err)
			}
			cfg := configManager.GetConfig()

			if mcpMode {
				// stdout carries the protocol
				cfg.Logging.Output = "stderr"
			}
			logger, err := logging.New(cfg.Logging)
			if err != nil {
				return fmt.Errorf("failed to create logger: %w", err)
			}

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			return run(ctx, configManager, logger, mcpMode)
		},
	}

	cmd.Flags().StringVarP(&configFile, "config", "c", "", "config file (searched in ., ./config and /etc/qtc-server/ when empty)")
	cmd.Flags().BoolVar(&mcpMode, "mcp", false, "serve MCP on stdio instead of HTTP")
	return cmd
}

func run(ctx context.Context, configManager domain.ConfigManager, logger *logrus.Logger, mcpMode bool) error {
	cfg := configManager.GetConfig()

	st, err := buildStack(ctx, cfg, logger)
	if err != nil {
		logger.WithError(err).Error("Failed to initialize")
		return err
	}
	defer st.Close()

	if mcpMode {
		server := mcp.NewServer(mcp.ServerInfo{Name: cfg.MCP.ServerName, Version: cfg.MCP.ServerVersion}, st.service, logger)
		return server.Start(ctx, cfg.MCP.TransportType)
	}

	logger.WithFields(logrus.Fields{
		"host":        cfg.Server.Host,
		"port":        cfg.Server.Port,
		"environment": cfg.Environment,
	}).Info("Starting QTc server")

	server := api.NewServer(configManager, st.service, st.checker, logger)
	if err := server.Start(ctx); err != nil {
		logger.WithError(err).Error("Server failed")
		return err
	}

	logger.Info("Server stopped")
	return nil
}
