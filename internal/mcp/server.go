// Package mcp exposes the QTc workflow as Model Context Protocol tools.
package mcp

import (
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/sirupsen/logrus"

	"github.com/qtc-mcp-server/internal/domain"
)

// ServerInfo contains MCP server metadata
type ServerInfo struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// Server is the QTc MCP server.
type Server struct {
	info      ServerInfo
	mcpServer *mcp.Server
	service   domain.EvaluationService
	logger    *logrus.Logger
}

// NewServer creates an MCP server with every tool registered against service.
func NewServer(info ServerInfo, service domain.EvaluationService, logger *logrus.Logger) *Server {
	if info.Name == "" {
		info.Name = "qtc-mcp"
	}
	if info.Version == "" {
		info.Version = "v0.1.0"
	}

	mcpServer := mcp.NewServer(&mcp.Implementation{
		Name:    info.Name,
		Version: info.Version,
	}, nil)

	server := &Server{
		info:      info,
		mcpServer: mcpServer,
		service:   service,
		logger:    logger,
	}
	server.registerTools()

	return server
}

// MCPServer returns the underlying SDK server.
func (s *Server) MCPServer() *mcp.Server {
	return s.mcpServer
}

// Start serves on the named transport until ctx is cancelled or the client disconnects.
func (s *Server) Start(ctx context.Context, transportType string) error {
	transport, err := newTransport(transportType)
	if err != nil {
		return err
	}

	s.logger.WithFields(logrus.Fields{
		"server":    s.info.Name,
		"version":   s.info.Version,
		"transport": transportType,
	}).Info("Starting QTc MCP server")

	if err := s.mcpServer.Run(ctx, transport); err != nil {
		return fmt.Errorf("MCP server failed: %w", err)
	}
	return nil
}

// newTransport maps a configured transport name onto an SDK transport.
func newTransport(transportType string) (mcp.Transport, error) {
	switch transportType {
	case "", "stdio":
		return &mcp.StdioTransport{}, nil
	default:
		return nil, fmt.Errorf("unsupported MCP transport %q", transportType)
	}
}
