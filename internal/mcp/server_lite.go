package mcp

// This file contains the lightweight server that requires no external databases.

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	litecfg "github.com/qtc-mcp-server/internal/config"
	"github.com/qtc-mcp-server/internal/domain"
	"github.com/qtc-mcp-server/internal/history"
	"github.com/qtc-mcp-server/internal/logging"
	"github.com/qtc-mcp-server/internal/service"
	"github.com/qtc-mcp-server/pkg/qtc"
)

// LiteServer is a standalone MCP server. History lives in a local SQLite file with an in-memory
// cache of recent evaluations in front of it.
type LiteServer struct {
	server *Server
	config *litecfg.LiteConfig
	store  history.Store
	recent *history.RecentCache
	logger *logrus.Logger
}

// LiteServerOption is a functional option for LiteServer.
type LiteServerOption func(*LiteServer) error

// WithStore sets a custom history store.
func WithStore(store history.Store) LiteServerOption {
	return func(s *LiteServer) error {
		s.store = store
		return nil
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *logrus.Logger) LiteServerOption {
	return func(s *LiteServer) error {
		if logger == nil {
			return fmt.Errorf("logger is nil")
		}
		s.logger = logger
		return nil
	}
}

// NewLiteServer creates a new lightweight MCP server instance.
func NewLiteServer(cfg *litecfg.LiteConfig, opts ...LiteServerOption) (*LiteServer, error) {
	server := &LiteServer{config: cfg}

	for _, opt := range opts {
		if err := opt(server); err != nil {
			return nil, fmt.Errorf("failed to apply option: %w", err)
		}
	}

	if server.logger == nil {
		// stdout carries the protocol
		logger, err := logging.New(domain.LoggingConfig{Level: cfg.LogLevel, Format: cfg.LogFormat, Output: "stderr"})
		if err != nil {
			return nil, fmt.Errorf("failed to create logger: %w", err)
		}
		server.logger = logger
	}
	logger := server.logger

	criteria, err := service.LoadCriteria(cfg.CriteriaFile)
	if err != nil {
		return nil, err
	}
	formulas := qtc.DefaultFormulaRegistry()
	defaults, err := service.ParseDefaults(cfg.DefaultFormula, cfg.DefaultCriterion, cfg.DefaultUnits, formulas, criteria)
	if err != nil {
		return nil, err
	}

	if server.store == nil {
		if err := cfg.EnsureDataDir(); err != nil {
			return nil, fmt.Errorf("failed to create data directory: %w", err)
		}
		store, err := history.NewSQLiteStore(cfg.HistoryDBPath())
		if err != nil {
			return nil, fmt.Errorf("failed to create history store: %w", err)
		}
		server.store = store
	}

	recent, err := history.NewRecentCache(cfg.HistorySize)
	if err != nil {
		server.store.Close()
		return nil, fmt.Errorf("failed to create recent cache: %w", err)
	}
	server.recent = recent

	svc := service.NewQTcService(logger, formulas, criteria,
		service.WithDefaults(defaults),
		service.WithStore(server.store),
		service.WithRecentCache(recent),
	)

	server.server = NewServer(ServerInfo{Name: "qtc-mcp", Version: "v0.1.0"}, svc, logger)

	logger.WithFields(logrus.Fields{
		"data_dir":  cfg.DataDir,
		"criteria":  criteria.Len(),
		"formulas":  formulas.Len(),
		"transport": cfg.Transport,
	}).Info("Lite server initialized successfully")
	return server, nil
}

// Start starts the lite MCP server on the configured transport.
func (s *LiteServer) Start(ctx context.Context) error {
	return s.server.Start(ctx, s.config.Transport)
}

// Server returns the tool server.
func (s *LiteServer) Server() *Server {
	return s.server
}

// Close cleans up server resources.
func (s *LiteServer) Close() error {
	if s.store != nil {
		if err := s.store.Close(); err != nil {
			s.logger.WithError(err).Error("Failed to close history store")
			return err
		}
	}
	return nil
}

// Store returns the history store for external access.
func (s *LiteServer) Store() history.Store {
	return s.store
}
