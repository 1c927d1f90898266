package mcp

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/roasbeef/lexdesk/internal/summary"
)

// Summary status values reported by the tools.
const (
	StatusNone    = "none"
	StatusLoading = "loading"
	StatusReady   = "ready"
	StatusFailed  = "failed"
	StatusIdle    = "idle"
)

// SummaryState is the tool view of a summary record.
type SummaryState struct {
	DocumentID int64  `json:"document_id"`
	Title      string `json:"title,omitempty"`
	Status     string `json:"status"`
	Summary    string `json:"summary,omitempty"`
	Error      string `json:"error,omitempty"`
	UpdatedAt  string `json:"updated_at,omitempty"`
}

func stateOf(svc *summary.Service, docID int64) SummaryState {
	rec := svc.GetSummary(docID)
	if rec.IsNone() {
		return SummaryState{DocumentID: docID, Status: StatusNone}
	}

	return recordState(rec.UnwrapOr(summary.Record{DocID: docID}))
}

func recordState(rec summary.Record) SummaryState {
	st := SummaryState{
		DocumentID: rec.DocID,
		Title:      rec.DocumentTitle,
		Summary:    rec.ContentText(),
		Error:      rec.ErrorText(),
	}
	if !rec.Timestamp.IsZero() {
		st.UpdatedAt = rec.Timestamp.UTC().Format(time.RFC3339)
	}

	switch {
	case rec.IsLoading:
		st.Status = StatusLoading
	case rec.HasContent():
		st.Status = StatusReady
	case rec.HasError():
		st.Status = StatusFailed
	default:
		st.Status = StatusIdle
	}

	return st
}

// ListDocumentsArgs are the arguments for the list_documents tool.
type ListDocumentsArgs struct {
	Page  int `json:"page,omitempty" jsonschema:"Page number starting at 1,default=1"`
	Limit int `json:"limit,omitempty" jsonschema:"Documents per page,default=20"`
}

// DocumentResult is a document in the listing.
type DocumentResult struct {
	ID         int64  `json:"id"`
	Title      string `json:"title"`
	Type       string `json:"type"`
	FileSize   int64  `json:"file_size"`
	UploadTime string `json:"upload_time,omitempty"`
	HasSummary bool   `json:"has_summary"`
}

// ListDocumentsResult is the result of the list_documents tool.
type ListDocumentsResult struct {
	Documents []DocumentResult `json:"documents"`
}

func (s *Server) handleListDocuments(ctx context.Context,
	req *mcp.CallToolRequest,
	args ListDocumentsArgs) (*mcp.CallToolResult, ListDocumentsResult,
	error) {

	if s.documents == nil {
		return nil, ListDocumentsResult{}, errors.New("document " +
			"listing is not configured")
	}

	docs, err := s.documents(ctx, args.Page, args.Limit)
	if err != nil {
		return nil, ListDocumentsResult{}, err
	}

	out := ListDocumentsResult{
		Documents: make([]DocumentResult, 0, len(docs)),
	}
	for _, d := range docs {
		out.Documents = append(out.Documents, DocumentResult{
			ID:         d.ID,
			Title:      d.Title,
			Type:       d.Type,
			FileSize:   d.FileSize,
			UploadTime: d.UploadTime,
			HasSummary: d.HasStoredSummary() ||
				s.svc.GetSummary(d.ID).IsSome(),
		})
	}

	return nil, out, nil
}

// GenerateSummaryArgs are the arguments for the generate_summary tool.
type GenerateSummaryArgs struct {
	DocumentID int64  `json:"document_id" jsonschema:"ID of the document to summarize"`
	Title      string `json:"title,omitempty" jsonschema:"Document title used in notifications"`
	Background bool   `json:"background,omitempty" jsonschema:"Return immediately and generate in the background"`
}

// GenerateSummaryResult is the result of the generate_summary tool.
type GenerateSummaryResult struct {
	// Started is true when a background generation was dispatched.
	Started bool `json:"started,omitempty"`

	// State is the summary state after the call.
	State SummaryState `json:"state"`
}

func (s *Server) handleGenerateSummary(ctx context.Context,
	req *mcp.CallToolRequest,
	args GenerateSummaryArgs) (*mcp.CallToolResult, GenerateSummaryResult,
	error) {

	if args.DocumentID <= 0 {
		return nil, GenerateSummaryResult{}, fmt.Errorf("invalid "+
			"document_id %d", args.DocumentID)
	}

	doc := summary.Document{ID: args.DocumentID, Title: args.Title}

	if args.Background {
		err := s.goBackground(func(ctx context.Context) {
			s.svc.GenerateSummary(ctx, doc)
		})
		if err != nil {
			return nil, GenerateSummaryResult{}, err
		}

		return nil, GenerateSummaryResult{
			Started: true,
			State:   stateOf(s.svc, doc.ID),
		}, nil
	}

	s.svc.GenerateSummary(ctx, doc)

	return nil, GenerateSummaryResult{
		State: stateOf(s.svc, doc.ID),
	}, nil
}

// DocumentArgs identify a single document.
type DocumentArgs struct {
	DocumentID int64 `json:"document_id" jsonschema:"ID of the document"`
}

func (s *Server) handleGetSummary(ctx context.Context,
	req *mcp.CallToolRequest,
	args DocumentArgs) (*mcp.CallToolResult, SummaryState, error) {

	return nil, stateOf(s.svc, args.DocumentID), nil
}

// ListSummariesArgs are the arguments for the list_summaries tool.
type ListSummariesArgs struct {
	IncludeText bool `json:"include_text,omitempty" jsonschema:"Include summary text in the results"`
}

// ListSummariesResult is the result of the list_summaries tool.
type ListSummariesResult struct {
	Summaries []SummaryState `json:"summaries"`
	Active    int            `json:"active"`
}

func (s *Server) handleListSummaries(ctx context.Context,
	req *mcp.CallToolRequest,
	args ListSummariesArgs) (*mcp.CallToolResult, ListSummariesResult,
	error) {

	state := s.svc.Store().Snapshot()
	out := ListSummariesResult{
		Summaries: make([]SummaryState, 0, state.Len()),
		Active:    state.ActiveCount(),
	}
	for _, rec := range state.Records() {
		st := recordState(rec)
		if !args.IncludeText {
			st.Summary = ""
		}
		out.Summaries = append(out.Summaries, st)
	}

	return nil, out, nil
}

// CancelSummaryResult is the result of the cancel_summary tool.
type CancelSummaryResult struct {
	Cancelled bool `json:"cancelled"`
}

func (s *Server) handleCancelSummary(ctx context.Context,
	req *mcp.CallToolRequest,
	args DocumentArgs) (*mcp.CallToolResult, CancelSummaryResult, error) {

	return nil, CancelSummaryResult{
		Cancelled: s.svc.CancelSummaryGeneration(args.DocumentID),
	}, nil
}

// ClearSummaryArgs are the arguments for the clear_summary tool.
type ClearSummaryArgs struct {
	DocumentID int64 `json:"document_id,omitempty" jsonschema:"ID of the document to forget"`
	All        bool  `json:"all,omitempty" jsonschema:"Forget every summary"`
}

// ClearSummaryResult is the result of the clear_summary tool.
type ClearSummaryResult struct {
	Cleared int `json:"cleared"`
}

func (s *Server) handleClearSummary(ctx context.Context,
	req *mcp.CallToolRequest,
	args ClearSummaryArgs) (*mcp.CallToolResult, ClearSummaryResult,
	error) {

	store := s.svc.Store()

	if args.All {
		n := store.Snapshot().Len()
		store.ClearAllSummaries()
		s.log.Info("Cleared all summaries", "count", n)

		return nil, ClearSummaryResult{Cleared: n}, nil
	}

	if args.DocumentID <= 0 {
		return nil, ClearSummaryResult{}, errors.New("document_id or " +
			"all is required")
	}

	cleared := 0
	if store.GetSummary(args.DocumentID).IsSome() {
		cleared = 1
	}
	store.ClearSummary(args.DocumentID)

	return nil, ClearSummaryResult{Cleared: cleared}, nil
}

// ListNotificationsArgs are the arguments for the list_notifications tool.
type ListNotificationsArgs struct {
	Since string `json:"since,omitempty" jsonschema:"Only notifications after this RFC3339 time"`
}

// NotificationResult is a completion notification.
type NotificationResult struct {
	ID         string `json:"id"`
	DocumentID int64  `json:"document_id"`
	Title      string `json:"title,omitempty"`
	Message    string `json:"message"`
	At         string `json:"at"`
}

// ListNotificationsResult is the result of the list_notifications tool.
type ListNotificationsResult struct {
	Notifications []NotificationResult `json:"notifications"`
}

func (s *Server) handleListNotifications(ctx context.Context,
	req *mcp.CallToolRequest,
	args ListNotificationsArgs) (*mcp.CallToolResult,
	ListNotificationsResult, error) {

	var since time.Time
	if args.Since != "" {
		t, err := time.Parse(time.RFC3339, args.Since)
		if err != nil {
			return nil, ListNotificationsResult{}, fmt.Errorf(
				"invalid since: %w", err)
		}
		since = t
	}

	s.notesMu.Lock()
	defer s.notesMu.Unlock()

	out := ListNotificationsResult{
		Notifications: make([]NotificationResult, 0, len(s.notes)),
	}
	for _, n := range s.notes {
		if !n.At.After(since) {
			continue
		}
		out.Notifications = append(out.Notifications,
			NotificationResult{
				ID:         n.ID,
				DocumentID: n.DocID,
				Title:      n.DocumentTitle,
				Message:    n.Message,
				At:         n.At.UTC().Format(time.RFC3339Nano),
			})
	}

	return nil, out, nil
}
