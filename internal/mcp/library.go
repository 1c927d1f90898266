package mcp

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/roasbeef/lexdesk/internal/lexapi"
)

// errNoLibrary is returned by the question, search and delete tools when
// the server was built without a Library.
var errNoLibrary = errors.New("document library is not configured")

// Library is the part of the document backend beyond summaries, bound to
// the current user's credentials.
type Library interface {
	AskQuestion(ctx context.Context, docID int64,
		question string) (*lexapi.Answer, error)

	PreviousQuestions(ctx context.Context,
		docID int64) ([]lexapi.QuestionAnswer, error)

	Search(ctx context.Context, query string) (*lexapi.SearchResults,
		error)

	DeleteDocument(ctx context.Context, docID int64) error
}

// registerLibraryTools registers the question, search and delete tools.
func (s *Server) registerLibraryTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name: "ask_question",
		Description: "Ask a question about a document. The answer is " +
			"drawn from the document's summary",
	}, s.handleAskQuestion)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "previous_questions",
		Description: "List the questions already asked about a document",
	}, s.handlePreviousQuestions)

	mcp.AddTool(s.server, &mcp.Tool{
		Name: "search_documents",
		Description: "Search document titles and earlier questions " +
			"and answers",
	}, s.handleSearch)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "delete_document",
		Description: "Delete a document and forget its summary",
	}, s.handleDeleteDocument)
}

// AskQuestionArgs are the arguments for the ask_question tool.
type AskQuestionArgs struct {
	DocumentID int64  `json:"document_id" jsonschema:"ID of the document"`
	Question   string `json:"question" jsonschema:"The question to ask"`
}

// AskQuestionResult is the result of the ask_question tool.
type AskQuestionResult struct {
	Answer string  `json:"answer"`
	Score  float64 `json:"score"`
}

func (s *Server) handleAskQuestion(ctx context.Context,
	req *mcp.CallToolRequest,
	args AskQuestionArgs) (*mcp.CallToolResult, AskQuestionResult, error) {

	if s.library == nil {
		return nil, AskQuestionResult{}, errNoLibrary
	}
	if args.DocumentID <= 0 {
		return nil, AskQuestionResult{}, fmt.Errorf("invalid "+
			"document_id %d", args.DocumentID)
	}
	if strings.TrimSpace(args.Question) == "" {
		return nil, AskQuestionResult{}, errors.New("question is " +
			"required")
	}

	ans, err := s.library.AskQuestion(ctx, args.DocumentID, args.Question)
	if err != nil {
		return nil, AskQuestionResult{}, err
	}

	return nil, AskQuestionResult{Answer: ans.Text, Score: ans.Score}, nil
}

// QuestionResult is a question asked about a document.
type QuestionResult struct {
	DocumentID int64  `json:"document_id"`
	Question   string `json:"question"`
	Answer     string `json:"answer"`
	AskedAt    string `json:"asked_at,omitempty"`
}

func questionResult(qa lexapi.QuestionAnswer) QuestionResult {
	out := QuestionResult{
		DocumentID: qa.DocumentID,
		Question:   qa.Question,
		Answer:     qa.Answer,
	}
	if at, err := qa.AskedAt(); err == nil && !at.IsZero() {
		out.AskedAt = at.UTC().Format(time.RFC3339)
	}

	return out
}

// PreviousQuestionsResult is the result of the previous_questions tool.
type PreviousQuestionsResult struct {
	Questions []QuestionResult `json:"questions"`
}

func (s *Server) handlePreviousQuestions(ctx context.Context,
	req *mcp.CallToolRequest,
	args DocumentArgs) (*mcp.CallToolResult, PreviousQuestionsResult,
	error) {

	if s.library == nil {
		return nil, PreviousQuestionsResult{}, errNoLibrary
	}

	qs, err := s.library.PreviousQuestions(ctx, args.DocumentID)
	if err != nil {
		return nil, PreviousQuestionsResult{}, err
	}

	out := PreviousQuestionsResult{
		Questions: make([]QuestionResult, 0, len(qs)),
	}
	for _, qa := range qs {
		out.Questions = append(out.Questions, questionResult(qa))
	}

	return nil, out, nil
}

// SearchArgs are the arguments for the search_documents tool.
type SearchArgs struct {
	Query string `json:"query" jsonschema:"Text to look for. A number also matches that document id"`
}

// SearchMatch is a document found by a search.
type SearchMatch struct {
	ID         int64   `json:"id"`
	Title      string  `json:"title"`
	MatchScore float64 `json:"match_score"`
}

// SearchResult is the result of the search_documents tool.
type SearchResult struct {
	Documents []SearchMatch    `json:"documents"`
	Answers   []QuestionResult `json:"answers"`
}

func (s *Server) handleSearch(ctx context.Context,
	req *mcp.CallToolRequest,
	args SearchArgs) (*mcp.CallToolResult, SearchResult, error) {

	if s.library == nil {
		return nil, SearchResult{}, errNoLibrary
	}

	res, err := s.library.Search(ctx, args.Query)
	if err != nil {
		return nil, SearchResult{}, err
	}

	out := SearchResult{
		Documents: make([]SearchMatch, 0, len(res.Documents)),
		Answers:   make([]QuestionResult, 0, len(res.Answers)),
	}
	for _, d := range res.Documents {
		out.Documents = append(out.Documents, SearchMatch{
			ID:         d.ID,
			Title:      d.Title,
			MatchScore: d.MatchScore,
		})
	}
	for _, qa := range res.Answers {
		out.Answers = append(out.Answers, questionResult(qa))
	}

	return nil, out, nil
}

// DeleteDocumentResult is the result of the delete_document tool.
type DeleteDocumentResult struct {
	Deleted bool `json:"deleted"`
}

func (s *Server) handleDeleteDocument(ctx context.Context,
	req *mcp.CallToolRequest,
	args DocumentArgs) (*mcp.CallToolResult, DeleteDocumentResult, error) {

	if s.library == nil {
		return nil, DeleteDocumentResult{}, errNoLibrary
	}
	if args.DocumentID <= 0 {
		return nil, DeleteDocumentResult{}, fmt.Errorf("invalid "+
			"document_id %d", args.DocumentID)
	}

	if err := s.library.DeleteDocument(ctx, args.DocumentID); err != nil {
		return nil, DeleteDocumentResult{}, err
	}

	// Clearing also cancels a generation still running for the document.
	s.svc.Store().ClearSummary(args.DocumentID)
	s.log.Info("Deleted document", "doc_id", args.DocumentID)

	return nil, DeleteDocumentResult{Deleted: true}, nil
}
