// Package main provides the standalone QTc MCP server.
// It needs no external services: history is kept in a local SQLite file.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/qtc-mcp-server/internal/config"
	"github.com/qtc-mcp-server/internal/mcp"
	"github.com/qtc-mcp-server/internal/setup"
)

func main() {
	// stdout carries the protocol
	log.SetOutput(os.Stderr)

	if len(os.Args) > 1 && os.Args[1] == "setup" {
		cmd := setup.NewCommand()
		cmd.SetArgs(os.Args[2:])
		if err := cmd.Execute(); err != nil {
			log.Fatalf("Setup failed: %v", err)
		}
		return
	}

	cfg := config.LoadLiteConfig()

	server, err := mcp.NewLiteServer(cfg)
	if err != nil {
		log.Fatalf("Failed to create MCP server: %v", err)
	}
	defer server.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := server.Start(ctx); err != nil && ctx.Err() == nil {
		server.Close()
		log.Fatalf("MCP server failed: %v", err)
	}
}
