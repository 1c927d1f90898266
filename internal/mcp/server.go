// Package mcp exposes the summary service and the document library as Model
// Context Protocol tools.
package mcp

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/roasbeef/lexdesk/internal/build"
	"github.com/roasbeef/lexdesk/internal/lexapi"
	"github.com/roasbeef/lexdesk/internal/summary"
)

// maxRecentNotifications is how many completion notifications are retained
// for the list_notifications tool.
const maxRecentNotifications = 50

// ErrServerClosed is returned for background work requested after Close.
var ErrServerClosed = errors.New("mcp server is closed")

// DocumentLister fetches a page of the user's documents.
type DocumentLister func(ctx context.Context, page,
	limit int) ([]lexapi.DocumentInfo, error)

// Config holds configuration for the MCP server.
type Config struct {
	// Service generates and caches summaries.
	Service *summary.Service

	// Notifier reports completed background generations. Optional.
	Notifier *summary.Notifier

	// Documents lists documents. Optional; list_documents fails without
	// it.
	Documents DocumentLister

	// Library answers questions, searches and deletes documents.
	// Optional; those tools fail without it.
	Library Library

	// Log is the server logger.
	Log *slog.Logger
}

// Server wraps the MCP server with the summary service.
type Server struct {
	server    *mcp.Server
	svc       *summary.Service
	documents DocumentLister
	library   Library
	log       *slog.Logger

	// bgCtx scopes generations started without wait. bgMu orders new
	// background work against Close so nothing is added to bgWg once
	// Close has started waiting on it.
	bgCtx    context.Context
	bgCancel context.CancelFunc
	bgWg     sync.WaitGroup
	bgMu     sync.Mutex
	closed   bool

	notifier  *summary.Notifier
	noteSubID string

	notesMu sync.Mutex
	notes   []summary.Notification
}

// NewServer creates a new MCP server with all summary tools registered.
func NewServer(cfg Config) *Server {
	if cfg.Log == nil {
		cfg.Log = slog.Default()
	}

	mcpServer := mcp.NewServer(&mcp.Implementation{
		Name:    "lexdesk",
		Version: build.Version(),
	}, nil)

	bgCtx, bgCancel := context.WithCancel(context.Background())

	s := &Server{
		server:    mcpServer,
		svc:       cfg.Service,
		documents: cfg.Documents,
		library:   cfg.Library,
		log:       cfg.Log.With("component", "mcp"),
		bgCtx:     bgCtx,
		bgCancel:  bgCancel,
		notifier:  cfg.Notifier,
	}

	if s.notifier != nil {
		var notes <-chan summary.Notification
		s.noteSubID, notes = s.notifier.SubscribeChan(0)

		s.bgWg.Add(1)
		go s.collectNotifications(notes)
	}

	s.registerTools()

	return s
}

// Run starts the MCP server on the given transport.
func (s *Server) Run(ctx context.Context, transport mcp.Transport) error {
	return s.server.Run(ctx, transport)
}

// Close stops background generations and notification collection.
func (s *Server) Close() {
	s.bgMu.Lock()
	s.closed = true
	s.bgMu.Unlock()

	if s.notifier != nil {
		s.notifier.Unsubscribe(s.noteSubID)
	}
	s.bgCancel()
	s.bgWg.Wait()
}

// goBackground runs f on a tracked goroutine. It returns ErrServerClosed
// once Close has been called.
func (s *Server) goBackground(f func(ctx context.Context)) error {
	s.bgMu.Lock()
	defer s.bgMu.Unlock()

	if s.closed {
		return ErrServerClosed
	}

	s.bgWg.Add(1)
	go func() {
		defer s.bgWg.Done()
		f(s.bgCtx)
	}()

	return nil
}

// collectNotifications keeps the most recent completion notifications.
func (s *Server) collectNotifications(notes <-chan summary.Notification) {
	defer s.bgWg.Done()

	for {
		select {
		case n := <-notes:
			s.notesMu.Lock()
			s.notes = append(s.notes, n)
			if len(s.notes) > maxRecentNotifications {
				s.notes = s.notes[len(s.notes)-maxRecentNotifications:]
			}
			s.notesMu.Unlock()

		case <-s.bgCtx.Done():
			return
		}
	}
}

// registerTools registers all summary tools.
func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "list_documents",
		Description: "List the user's uploaded documents",
	}, s.handleListDocuments)

	mcp.AddTool(s.server, &mcp.Tool{
		Name: "generate_summary",
		Description: "Generate the summary of a document, returning " +
			"the cached summary when one exists",
	}, s.handleGenerateSummary)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "get_summary",
		Description: "Get the current summary state of a document",
	}, s.handleGetSummary)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "list_summaries",
		Description: "List every summary known to this session",
	}, s.handleListSummaries)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "cancel_summary",
		Description: "Cancel an in-flight summary generation",
	}, s.handleCancelSummary)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "clear_summary",
		Description: "Forget a cached summary, or all of them",
	}, s.handleClearSummary)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "list_notifications",
		Description: "List recently completed background summaries",
	}, s.handleListNotifications)

	s.registerLibraryTools()
}
