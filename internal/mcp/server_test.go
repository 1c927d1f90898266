package mcp

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/roasbeef/lexdesk/internal/auth"
	"github.com/roasbeef/lexdesk/internal/lexapi"
	"github.com/roasbeef/lexdesk/internal/summary"
	"github.com/stretchr/testify/require"
)

// fakeSummarizer serves canned summaries. Documents listed in block wait
// until their context ends.
type fakeSummarizer struct {
	mu    sync.Mutex
	block map[int64]bool
	calls int
}

func (f *fakeSummarizer) Summarize(ctx context.Context, docID int64,
	_ string) (string, error) {

	f.mu.Lock()
	f.calls++
	blocked := f.block[docID]
	f.mu.Unlock()

	if blocked {
		<-ctx.Done()
		return "", ctx.Err()
	}
	if docID == 13 {
		return "", &lexapi.APIError{
			StatusCode: 400,
			Message:    "No text available for summarization",
		}
	}

	return "summary text", nil
}

func (f *fakeSummarizer) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.calls
}

// fakeLibrary answers questions about document 1 only.
type fakeLibrary struct {
	mu      sync.Mutex
	deleted []int64
}

func (f *fakeLibrary) AskQuestion(_ context.Context, docID int64,
	question string) (*lexapi.Answer, error) {

	if docID != 1 {
		return nil, &lexapi.APIError{
			StatusCode: 400,
			Message:    "Summary not available for this document",
		}
	}

	return &lexapi.Answer{Text: "Two years.", Score: 0.9}, nil
}

func (f *fakeLibrary) PreviousQuestions(_ context.Context,
	docID int64) ([]lexapi.QuestionAnswer, error) {

	at := "2024-05-02T08:00:00"
	return []lexapi.QuestionAnswer{
		{ID: 1, DocumentID: docID, Question: "Term?",
			Answer: "Two years.", CreatedAt: &at},
		{ID: 2, DocumentID: docID, Question: "Parties?",
			Answer: "Acme."},
	}, nil
}

func (f *fakeLibrary) Search(_ context.Context,
	query string) (*lexapi.SearchResults, error) {

	if query == "" {
		return nil, lexapi.ErrEmptyQuery
	}

	return &lexapi.SearchResults{
		Documents: []lexapi.DocumentMatch{
			{ID: 2, Title: "Lease.pdf", MatchScore: 1},
		},
		Answers: []lexapi.QuestionAnswer{
			{ID: 3, DocumentID: 2, Question: "Renewable?",
				Answer: "Yes."},
		},
	}, nil
}

func (f *fakeLibrary) DeleteDocument(_ context.Context, docID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.deleted = append(f.deleted, docID)
	return nil
}

// testServer creates a server backed by a real summary service.
func testServer(t *testing.T) (*Server, *fakeSummarizer) {
	t.Helper()

	backend := &fakeSummarizer{block: make(map[int64]bool)}
	store := summary.NewStore()
	svc := summary.NewService(
		summary.DefaultConfig(), store, backend,
		auth.StaticProvider("token"), nil, nil, nil,
	)

	notifier := summary.NewNotifier(nil, nil)
	detach := notifier.Attach(store)

	s := NewServer(Config{
		Service:  svc,
		Notifier: notifier,
		Documents: func(ctx context.Context, page,
			limit int) ([]lexapi.DocumentInfo, error) {

			stored := "stored"
			return []lexapi.DocumentInfo{
				{ID: 1, Title: "NDA.pdf", Type: "PDF"},
				{ID: 2, Title: "Lease.pdf", Type: "PDF",
					Summary: &stored},
			}, nil
		},
		Library: &fakeLibrary{},
	})

	t.Cleanup(func() {
		svc.Close()
		s.Close()
		detach()
	})

	return s, backend
}

// TestNewServer verifies that the MCP server can be created without
// panicking. This tests that all tool schemas are valid.
func TestNewServer(t *testing.T) {
	s, _ := testServer(t)
	require.NotNil(t, s)
}

func TestGenerateSummaryTool(t *testing.T) {
	s, backend := testServer(t)
	ctx := context.Background()

	_, out, err := s.handleGenerateSummary(ctx, nil, GenerateSummaryArgs{
		DocumentID: 1,
		Title:      "NDA.pdf",
	})
	require.NoError(t, err)
	require.False(t, out.Started)
	require.Equal(t, StatusReady, out.State.Status)
	require.Equal(t, "summary text", out.State.Summary)
	require.Equal(t, "NDA.pdf", out.State.Title)

	// The second call is a cache hit.
	_, out, err = s.handleGenerateSummary(ctx, nil, GenerateSummaryArgs{
		DocumentID: 1,
	})
	require.NoError(t, err)
	require.Equal(t, StatusReady, out.State.Status)
	require.Equal(t, 1, backend.callCount())

	_, _, err = s.handleGenerateSummary(ctx, nil, GenerateSummaryArgs{})
	require.Error(t, err)
}

func TestGenerateSummaryToolFailure(t *testing.T) {
	s, _ := testServer(t)

	_, out, err := s.handleGenerateSummary(
		context.Background(), nil, GenerateSummaryArgs{DocumentID: 13},
	)
	require.NoError(t, err)
	require.Equal(t, StatusFailed, out.State.Status)
	require.Equal(t, "No text available for summarization", out.State.Error)
}

func TestBackgroundGenerationAndCancel(t *testing.T) {
	s, backend := testServer(t)
	ctx := context.Background()
	backend.block[7] = true

	_, out, err := s.handleGenerateSummary(ctx, nil, GenerateSummaryArgs{
		DocumentID: 7,
		Background: true,
	})
	require.NoError(t, err)
	require.True(t, out.Started)

	require.Eventually(t, func() bool {
		_, st, _ := s.handleGetSummary(ctx, nil, DocumentArgs{
			DocumentID: 7,
		})
		return st.Status == StatusLoading
	}, 5*time.Second, 10*time.Millisecond)

	_, list, err := s.handleListSummaries(ctx, nil, ListSummariesArgs{})
	require.NoError(t, err)
	require.Equal(t, 1, list.Active)

	_, cancelled, err := s.handleCancelSummary(ctx, nil, DocumentArgs{
		DocumentID: 7,
	})
	require.NoError(t, err)
	require.True(t, cancelled.Cancelled)

	require.Eventually(t, func() bool {
		_, st, _ := s.handleGetSummary(ctx, nil, DocumentArgs{
			DocumentID: 7,
		})
		return st.Status == StatusIdle
	}, 5*time.Second, 10*time.Millisecond)

	_, cancelled, err = s.handleCancelSummary(ctx, nil, DocumentArgs{
		DocumentID: 7,
	})
	require.NoError(t, err)
	require.False(t, cancelled.Cancelled)
}

func TestBackgroundGenerationNotifies(t *testing.T) {
	s, _ := testServer(t)
	ctx := context.Background()
	start := time.Now().Add(-time.Second)

	_, _, err := s.handleGenerateSummary(ctx, nil, GenerateSummaryArgs{
		DocumentID: 3,
		Title:      "Will.pdf",
		Background: true,
	})
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		_, out, err := s.handleListNotifications(
			ctx, nil, ListNotificationsArgs{
				Since: start.Format(time.RFC3339),
			},
		)
		return err == nil && len(out.Notifications) == 1 &&
			out.Notifications[0].Message == "Summary ready for Will.pdf"
	}, 5*time.Second, 10*time.Millisecond)

	_, _, err = s.handleListNotifications(ctx, nil, ListNotificationsArgs{
		Since: "yesterday",
	})
	require.Error(t, err)
}

// TestBackgroundGenerationAfterClose rejects background work once the
// server is closing, including calls racing with Close.
func TestBackgroundGenerationAfterClose(t *testing.T) {
	s, backend := testServer(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	for id := int64(20); id < 30; id++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _, _ = s.handleGenerateSummary(ctx, nil,
				GenerateSummaryArgs{DocumentID: id, Background: true})
		}()
	}
	s.Close()
	wg.Wait()

	before := backend.callCount()
	_, out, err := s.handleGenerateSummary(ctx, nil, GenerateSummaryArgs{
		DocumentID: 31,
		Background: true,
	})
	require.ErrorIs(t, err, ErrServerClosed)
	require.False(t, out.Started)
	require.Equal(t, before, backend.callCount())

	// A second Close is harmless.
	s.Close()
}

func TestClearSummaryTool(t *testing.T) {
	s, _ := testServer(t)
	ctx := context.Background()

	for _, id := range []int64{1, 2} {
		_, _, err := s.handleGenerateSummary(
			ctx, nil, GenerateSummaryArgs{DocumentID: id},
		)
		require.NoError(t, err)
	}

	_, out, err := s.handleClearSummary(ctx, nil, ClearSummaryArgs{
		DocumentID: 1,
	})
	require.NoError(t, err)
	require.Equal(t, 1, out.Cleared)

	_, st, _ := s.handleGetSummary(ctx, nil, DocumentArgs{DocumentID: 1})
	require.Equal(t, StatusNone, st.Status)

	_, out, err = s.handleClearSummary(ctx, nil, ClearSummaryArgs{All: true})
	require.NoError(t, err)
	require.Equal(t, 1, out.Cleared)

	_, _, err = s.handleClearSummary(ctx, nil, ClearSummaryArgs{})
	require.Error(t, err)
}

func TestListDocumentsTool(t *testing.T) {
	s, _ := testServer(t)
	ctx := context.Background()

	_, out, err := s.handleListDocuments(ctx, nil, ListDocumentsArgs{})
	require.NoError(t, err)
	require.Len(t, out.Documents, 2)
	require.False(t, out.Documents[0].HasSummary)
	require.True(t, out.Documents[1].HasSummary)

	s.documents = func(context.Context, int, int) ([]lexapi.DocumentInfo,
		error) {

		return nil, errors.New("backend down")
	}
	_, _, err = s.handleListDocuments(ctx, nil, ListDocumentsArgs{})
	require.Error(t, err)
}

// TestServerOverTransport drives the tools through an in-memory MCP session.
func TestServerOverTransport(t *testing.T) {
	s, _ := testServer(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	serverTransport, clientTransport := mcp.NewInMemoryTransports()

	ss, err := s.server.Connect(ctx, serverTransport, nil)
	require.NoError(t, err)
	defer ss.Close()

	client := mcp.NewClient(&mcp.Implementation{
		Name:    "test-client",
		Version: "v0.0.1",
	}, nil)
	cs, err := client.Connect(ctx, clientTransport, nil)
	require.NoError(t, err)
	defer cs.Close()

	tools, err := cs.ListTools(ctx, nil)
	require.NoError(t, err)
	require.Len(t, tools.Tools, 11)

	res, err := cs.CallTool(ctx, &mcp.CallToolParams{
		Name:      "generate_summary",
		Arguments: map[string]any{"document_id": 4},
	})
	require.NoError(t, err)
	require.False(t, res.IsError)
	require.NotEmpty(t, res.Content)

	text, ok := res.Content[0].(*mcp.TextContent)
	require.True(t, ok)
	require.Contains(t, text.Text, "summary text")
}

func TestAskQuestionTool(t *testing.T) {
	s, _ := testServer(t)
	ctx := context.Background()

	_, out, err := s.handleAskQuestion(ctx, nil, AskQuestionArgs{
		DocumentID: 1,
		Question:   "How long is the term?",
	})
	require.NoError(t, err)
	require.Equal(t, "Two years.", out.Answer)
	require.InDelta(t, 0.9, out.Score, 1e-9)

	_, _, err = s.handleAskQuestion(ctx, nil, AskQuestionArgs{
		DocumentID: 2,
		Question:   "How long is the term?",
	})
	require.ErrorContains(t, err, "Summary not available")

	_, _, err = s.handleAskQuestion(ctx, nil, AskQuestionArgs{
		DocumentID: 1,
	})
	require.Error(t, err)
}

func TestPreviousQuestionsTool(t *testing.T) {
	s, _ := testServer(t)

	_, out, err := s.handlePreviousQuestions(
		context.Background(), nil, DocumentArgs{DocumentID: 1},
	)
	require.NoError(t, err)
	require.Len(t, out.Questions, 2)
	require.Equal(t, "2024-05-02T08:00:00Z", out.Questions[0].AskedAt)
	require.Empty(t, out.Questions[1].AskedAt)
}

func TestSearchTool(t *testing.T) {
	s, _ := testServer(t)
	ctx := context.Background()

	_, out, err := s.handleSearch(ctx, nil, SearchArgs{Query: "lease"})
	require.NoError(t, err)
	require.Len(t, out.Documents, 1)
	require.Equal(t, "Lease.pdf", out.Documents[0].Title)
	require.Len(t, out.Answers, 1)
	require.Equal(t, "Renewable?", out.Answers[0].Question)

	_, _, err = s.handleSearch(ctx, nil, SearchArgs{})
	require.ErrorIs(t, err, lexapi.ErrEmptyQuery)
}

func TestDeleteDocumentToolForgetsSummary(t *testing.T) {
	s, _ := testServer(t)
	ctx := context.Background()

	_, _, err := s.handleGenerateSummary(ctx, nil, GenerateSummaryArgs{
		DocumentID: 1,
	})
	require.NoError(t, err)

	_, out, err := s.handleDeleteDocument(ctx, nil, DocumentArgs{
		DocumentID: 1,
	})
	require.NoError(t, err)
	require.True(t, out.Deleted)

	_, st, _ := s.handleGetSummary(ctx, nil, DocumentArgs{DocumentID: 1})
	require.Equal(t, StatusNone, st.Status)

	lib := s.library.(*fakeLibrary)
	require.Equal(t, []int64{1}, lib.deleted)
}

func TestLibraryToolsUnconfigured(t *testing.T) {
	s, _ := testServer(t)
	s.library = nil
	ctx := context.Background()

	_, _, err := s.handleSearch(ctx, nil, SearchArgs{Query: "x"})
	require.ErrorIs(t, err, errNoLibrary)

	_, _, err = s.handleDeleteDocument(ctx, nil, DocumentArgs{
		DocumentID: 1,
	})
	require.ErrorIs(t, err, errNoLibrary)
}
