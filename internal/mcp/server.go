// Package mcp provides an MCP (Model Context Protocol) server for gfcm.
package mcp

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/nvandessel/gfcm/internal/config"
	"github.com/nvandessel/gfcm/internal/logging"
	"github.com/nvandessel/gfcm/internal/ratelimit"
	"github.com/nvandessel/gfcm/internal/store"
)

// Server wraps the MCP SDK server and exposes the simulator as tools.
type Server struct {
	server       *sdk.Server
	runs         store.RunStore
	root         string
	config       *config.GFCMConfig
	toolLimiters ratelimit.ToolLimiters
	auditLogger  *AuditLogger
	stepLogger   *logging.StepLogger
	logger       *slog.Logger
}

// Config holds server configuration.
type Config struct {
	Name    string // Server name (e.g., "gfcm")
	Version string // Server version
	Root    string // Project root directory; state lives in Root/.gfcm

	// GFCM supplies simulation defaults, rate limits and logging.
	// Nil means config.Default().
	GFCM *config.GFCMConfig

	// LogWriter receives operational logs. Nil means os.Stderr; stdout
	// carries the protocol and must never be used.
	LogWriter io.Writer
}

// NewServer creates a new MCP server with gfcm tools.
func NewServer(cfg *Config) (*Server, error) {
	gcfg := cfg.GFCM
	if gcfg == nil {
		gcfg = config.Default()
	}
	if err := gcfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	logWriter := cfg.LogWriter
	if logWriter == nil {
		logWriter = os.Stderr
	}

	var runs store.RunStore
	if gcfg.Store.Enabled {
		sqliteStore, err := store.NewSQLiteRunStore(cfg.Root)
		if err != nil {
			return nil, fmt.Errorf("failed to open run store: %w", err)
		}
		runs = sqliteStore
	} else {
		runs = store.NewInMemoryRunStore()
	}

	mcpServer := sdk.NewServer(&sdk.Implementation{
		Name:    cfg.Name,
		Version: cfg.Version,
	}, &sdk.ServerOptions{
		InitializedHandler: func(ctx context.Context, req *sdk.InitializedRequest) {
			// Client initialized, ready to serve
		},
	})

	s := &Server{
		server:       mcpServer,
		runs:         runs,
		root:         cfg.Root,
		config:       gcfg,
		toolLimiters: ratelimit.NewToolLimiters(gcfg.MCP.RateLimit, gcfg.MCP.Burst),
		auditLogger:  NewAuditLogger(cfg.Root),
		stepLogger:   logging.NewStepLogger(store.LocalGfcmPath(cfg.Root), gcfg.Logging.Level),
		logger:       logging.NewLogger(gcfg.Logging.Level, logWriter),
	}

	if err := s.registerTools(); err != nil {
		s.Close()
		return nil, fmt.Errorf("failed to register tools: %w", err)
	}

	if err := s.registerResources(); err != nil {
		s.Close()
		return nil, fmt.Errorf("failed to register resources: %w", err)
	}

	return s, nil
}

// Run starts the MCP server over stdio transport.
// This blocks until the client disconnects or the context is cancelled.
func (s *Server) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	notifySignals(sigChan)

	go func() {
		select {
		case <-sigChan:
			cancel()
		case <-ctx.Done():
		}
	}()

	s.logger.Info("mcp server starting", "root", s.root, "store", s.config.Store.Enabled)
	err := s.server.Run(ctx, &sdk.StdioTransport{})

	if closeErr := s.Close(); closeErr != nil && err == nil {
		err = closeErr
	}
	return err
}

// Close closes the server and releases resources.
func (s *Server) Close() error {
	s.stepLogger.Close()
	if err := s.auditLogger.Close(); err != nil {
		s.logger.Warn("closing audit log", "error", err)
	}
	return s.runs.Close()
}
