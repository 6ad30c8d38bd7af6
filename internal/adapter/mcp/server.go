// Package mcp exposes the assistant over the Model Context Protocol so
// agent hosts can ask trade questions and inspect the tool registry.
package mcp

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/tariffsheriff/tradeassist/internal/domain/chat"
	"github.com/tariffsheriff/tradeassist/internal/domain/conversation"
)

// Asker runs one query through the assistant pipeline.
type Asker interface {
	Process(ctx context.Context, q chat.Query) chat.Response
}

// ToolLister describes the registered tools and their health.
type ToolLister interface {
	Definitions() []chat.ToolDefinition
	Health() map[string]string
}

// StatsReader reports conversation store counters.
type StatsReader interface {
	Stats() conversation.Stats
}

// ServerConfig holds the MCP server settings.
type ServerConfig struct {
	Addr    string
	Name    string
	Version string
	APIKey  string
}

// ServerDeps are the capabilities the MCP tools are built on.
type ServerDeps struct {
	Asker       Asker
	ToolLister  ToolLister
	StatsReader StatsReader
}

// Server hosts the MCP tool surface over streamable HTTP.
type Server struct {
	cfg       ServerConfig
	deps      ServerDeps
	mcpServer *mcpserver.MCPServer
	httpSrv   *http.Server
}

// NewServer creates an MCP server and registers its tools.
func NewServer(cfg ServerConfig, deps ServerDeps) *Server {
	s := &Server{
		cfg:       cfg,
		deps:      deps,
		mcpServer: mcpserver.NewMCPServer(cfg.Name, cfg.Version),
	}
	s.registerTools()
	return s
}

// MCPServer exposes the underlying server, mainly for tests.
func (s *Server) MCPServer() *mcpserver.MCPServer {
	return s.mcpServer
}

// Start serves MCP over HTTP on the configured address. It returns
// immediately; serve errors are logged.
func (s *Server) Start() error {
	handler := AuthMiddleware(s.cfg.APIKey, mcpserver.NewStreamableHTTPServer(s.mcpServer))
	s.httpSrv = &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		if err := s.httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("mcp server stopped", "error", err)
		}
	}()
	slog.Info("mcp server listening", "addr", s.cfg.Addr)
	return nil
}

// Stop gracefully shuts the HTTP listener down.
func (s *Server) Stop(ctx context.Context) error {
	if s.httpSrv == nil {
		return nil
	}
	return s.httpSrv.Shutdown(ctx)
}
