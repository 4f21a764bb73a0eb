package mcp

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/sirupsen/logrus"

	"github.com/a3tai/pdf-placeholder/internal/config"
	"github.com/a3tai/pdf-placeholder/internal/descriptions"
	"github.com/a3tai/pdf-placeholder/internal/export"
	"github.com/a3tai/pdf-placeholder/internal/fontkit"
	"github.com/a3tai/pdf-placeholder/internal/session"
)

const shutdownTimeout = 5 * time.Second

// Server represents the MCP server instance
type Server struct {
	config    *config.Config
	sessions  *session.Manager
	exporter  *export.Exporter
	fonts     *fontkit.Holder
	mcpServer *server.MCPServer
	log       logrus.FieldLogger
	tools     []mcp.Tool

	mu       sync.Mutex
	previews map[string][]*export.TransientURL
}

// Option configures a Server
type Option func(*Server)

// WithLogger sets the logger
func WithLogger(l logrus.FieldLogger) Option {
	return func(s *Server) { s.log = l }
}

// WithFontHolder reports the state of the embedded font in pdf_server_info
func WithFontHolder(h *fontkit.Holder) Option {
	return func(s *Server) { s.fonts = h }
}

// NewServer creates a new MCP server instance
func NewServer(cfg *config.Config, sessions *session.Manager, exporter *export.Exporter, opts ...Option) (*Server, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if sessions == nil {
		return nil, fmt.Errorf("session manager cannot be nil")
	}
	if exporter == nil {
		return nil, fmt.Errorf("exporter cannot be nil")
	}

	s := &Server{
		config:   cfg,
		sessions: sessions,
		exporter: exporter,
		log:      logrus.StandardLogger(),
		previews: make(map[string][]*export.TransientURL),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.mcpServer = server.NewMCPServer(
		cfg.ServerName,
		cfg.Version,
		server.WithToolCapabilities(false),
		server.WithRecovery(),
	)
	s.registerTools()
	return s, nil
}

func (s *Server) addTool(tool mcp.Tool, handler server.ToolHandlerFunc) {
	s.tools = append(s.tools, tool)
	s.mcpServer.AddTool(tool, handler)
}

// Tools returns the registered tools in registration order
func (s *Server) Tools() []mcp.Tool {
	return s.tools
}

func sessionArg() mcp.ToolOption {
	return mcp.WithString("session_id",
		mcp.Required(),
		mcp.Description("Session id returned by pdf_open_document"),
	)
}

func valuesArg() mcp.ToolOption {
	return mcp.WithObject("values",
		mcp.Required(),
		mcp.Description(`Map of position index to replacement text, e.g. {"1": "Jane Doe"}`),
	)
}

// registerTools registers all available MCP tools
func (s *Server) registerTools() {
	s.addTool(mcp.NewTool(
		"pdf_open_document",
		mcp.WithDescription(descriptions.OpenDocumentDescription),
		mcp.WithString("path",
			mcp.Required(),
			mcp.Description("Path to the PDF file, relative to the document directory or absolute inside it"),
		),
	), s.handleOpenDocument)

	s.addTool(mcp.NewTool(
		"pdf_close_document",
		mcp.WithDescription(descriptions.CloseDocumentDescription),
		sessionArg(),
	), s.handleCloseDocument)

	s.addTool(mcp.NewTool(
		"pdf_update_surface",
		mcp.WithDescription(descriptions.UpdateSurfaceDescription),
		sessionArg(),
		mcp.WithNumber("page", mcp.Required(), mcp.Description("Page number, starting at 1")),
		mcp.WithNumber("left", mcp.Description("Screen x of the page's top-left corner in pixels")),
		mcp.WithNumber("top", mcp.Description("Screen y of the page's top-left corner in pixels")),
		mcp.WithNumber("display_scale", mcp.Description("Rendered pixels per PDF point (default 1)")),
		mcp.WithBoolean("mounted", mcp.Description("False when the page is no longer rendered (default true)")),
	), s.handleUpdateSurface)

	s.addTool(mcp.NewTool(
		"pdf_set_placement_mode",
		mcp.WithDescription(descriptions.SetPlacementModeDescription),
		sessionArg(),
		mcp.WithBoolean("active", mcp.Required(), mcp.Description("Whether pointer presses start a selection")),
	), s.handleSetPlacementMode)

	s.addTool(mcp.NewTool(
		"pdf_pointer_event",
		mcp.WithDescription(descriptions.PointerEventDescription),
		sessionArg(),
		mcp.WithString("type",
			mcp.Required(),
			mcp.Enum("down", "move", "up"),
			mcp.Description("Pointer event type"),
		),
		mcp.WithNumber("page", mcp.Description("Page under the pointer; required for down")),
		mcp.WithNumber("x", mcp.Required(), mcp.Description("Screen x in pixels")),
		mcp.WithNumber("y", mcp.Required(), mcp.Description("Screen y in pixels")),
		mcp.WithNumber("scroll_x", mcp.Description("Horizontal scroll offset of the viewer in pixels")),
		mcp.WithNumber("scroll_y", mcp.Description("Vertical scroll offset of the viewer in pixels")),
	), s.handlePointerEvent)

	s.addTool(mcp.NewTool(
		"pdf_assign_index",
		mcp.WithDescription(descriptions.AssignIndexDescription),
		sessionArg(),
		mcp.WithNumber("position_index", mcp.Required(), mcp.Description("Positive integer, unique in the document")),
	), s.handleAssignIndex)

	s.addTool(mcp.NewTool(
		"pdf_cancel_selection",
		mcp.WithDescription(descriptions.CancelSelectionDescription),
		sessionArg(),
	), s.handleCancelSelection)

	s.addTool(mcp.NewTool(
		"pdf_list_regions",
		mcp.WithDescription(descriptions.ListRegionsDescription),
		sessionArg(),
		mcp.WithNumber("page", mcp.Description("Only list regions on this page")),
	), s.handleListRegions)

	s.addTool(mcp.NewTool(
		"pdf_update_region",
		mcp.WithDescription(descriptions.UpdateRegionDescription),
		sessionArg(),
		mcp.WithString("region_id", mcp.Required(), mcp.Description("Region id")),
		mcp.WithNumber("position_index", mcp.Description("New position index")),
		mcp.WithNumber("x", mcp.Description("New left edge in PDF points")),
		mcp.WithNumber("y", mcp.Description("New reference y in PDF points")),
		mcp.WithNumber("width", mcp.Description("New width in PDF points")),
		mcp.WithNumber("height", mcp.Description("New height in PDF points")),
	), s.handleUpdateRegion)

	s.addTool(mcp.NewTool(
		"pdf_remove_region",
		mcp.WithDescription(descriptions.RemoveRegionDescription),
		sessionArg(),
		mcp.WithString("region_id", mcp.Required(), mcp.Description("Region id")),
	), s.handleRemoveRegion)

	s.addTool(mcp.NewTool(
		"pdf_detect_placeholders",
		mcp.WithDescription(descriptions.DetectPlaceholdersDescription),
		sessionArg(),
	), s.handleDetectPlaceholders)

	s.addTool(mcp.NewTool(
		"pdf_plan_replacement",
		mcp.WithDescription(descriptions.PlanReplacementDescription),
		sessionArg(),
		valuesArg(),
	), s.handlePlanReplacement)

	s.addTool(mcp.NewTool(
		"pdf_fill_document",
		mcp.WithDescription(descriptions.FillDocumentDescription),
		sessionArg(),
		valuesArg(),
		mcp.WithString("filename", mcp.Description("Name of the exported file (default <document>-filled.pdf)")),
		mcp.WithBoolean("preview", mcp.Description("Return a temporary file:// URL instead of exporting")),
	), s.handleFillDocument)

	s.addTool(mcp.NewTool(
		"pdf_server_info",
		mcp.WithDescription(descriptions.ServerInfoDescription),
	), s.handleServerInfo)
}

// Run starts the MCP server in the configured mode and blocks until it stops
func (s *Server) Run(ctx context.Context) error {
	defer s.releaseAllPreviews()
	if s.config.IsServerMode() {
		return s.runServerMode(ctx)
	}
	return s.runStdioMode(ctx)
}

func (s *Server) runStdioMode(ctx context.Context) error {
	s.log.WithField("dir", s.config.DocumentDirectory).Debug("Starting placeholder MCP server in stdio mode")

	stdio := server.NewStdioServer(s.mcpServer)
	if err := stdio.Listen(ctx, os.Stdin, os.Stdout); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("failed to serve stdio: %w", err)
	}
	return nil
}

func (s *Server) runServerMode(ctx context.Context) error {
	addr := s.config.Address()
	sse := server.NewSSEServer(s.mcpServer, server.WithBaseURL("http://"+addr))

	errCh := make(chan error, 1)
	go func() {
		s.log.WithField("addr", addr).Info("Serving MCP over SSE")
		errCh <- sse.Start(addr)
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("failed to serve http: %w", err)
		}
		return nil
	case <-ctx.Done():
		s.log.Info("Shutting down MCP server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := sse.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("failed to shut down: %w", err)
		}
		return nil
	}
}

func (s *Server) rememberPreview(sessionID string, p *export.TransientURL) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.previews[sessionID] = append(s.previews[sessionID], p)
}

func (s *Server) releasePreviews(sessionID string) {
	s.mu.Lock()
	previews := s.previews[sessionID]
	delete(s.previews, sessionID)
	s.mu.Unlock()

	for _, p := range previews {
		if err := p.Release(); err != nil {
			s.log.WithError(err).WithField("session", sessionID).Warn("Failed to release preview")
		}
	}
}

func (s *Server) releaseAllPreviews() {
	s.mu.Lock()
	ids := make([]string, 0, len(s.previews))
	for id := range s.previews {
		ids = append(ids, id)
	}
	s.mu.Unlock()

	for _, id := range ids {
		s.releasePreviews(id)
	}
}
