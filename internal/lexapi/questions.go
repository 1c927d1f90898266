package lexapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/oauth2"
)

// ErrEmptyQuery is returned when a question or search query is blank.
var ErrEmptyQuery = errors.New("query is empty")

// Answer is the backend's answer to a question about a document.
type Answer struct {
	Text string `json:"answer"`

	// Score is the answer model's confidence in [0, 1].
	Score float64 `json:"score"`
}

// QuestionAnswer is a question previously asked about a document.
type QuestionAnswer struct {
	ID         int64   `json:"id"`
	DocumentID int64   `json:"document_id"`
	Question   string  `json:"question"`
	Answer     string  `json:"answer"`
	CreatedAt  *string `json:"created_at"`
}

// AskedAt parses the creation time. The zero time is returned when the
// backend did not record one.
func (q QuestionAnswer) AskedAt() (time.Time, error) {
	if q.CreatedAt == nil {
		return time.Time{}, nil
	}

	return parseTime(*q.CreatedAt)
}

// DocumentMatch is a document found by a search.
type DocumentMatch struct {
	ID         int64   `json:"id"`
	Title      string  `json:"title"`
	Summary    *string `json:"summary"`
	UploadTime string  `json:"upload_time"`
	MatchScore float64 `json:"match_score"`
}

// SearchResults holds the documents and earlier answers matching a query.
type SearchResults struct {
	Documents []DocumentMatch  `json:"documents"`
	Answers   []QuestionAnswer `json:"qa"`
}

// Empty reports whether the search matched nothing.
func (r *SearchResults) Empty() bool {
	return len(r.Documents) == 0 && len(r.Answers) == 0
}

// AskQuestion asks a question about a document. The backend answers from
// the document's summary, so a document without one is rejected with a 400.
func (c *Client) AskQuestion(ctx context.Context, ts oauth2.TokenSource,
	docID int64, question string) (*Answer, error) {

	question = strings.TrimSpace(question)
	if question == "" {
		return nil, fmt.Errorf("ask question: %w", ErrEmptyQuery)
	}

	body := struct {
		DocumentID int64  `json:"document_id"`
		Question   string `json:"question"`
	}{
		DocumentID: docID,
		Question:   question,
	}

	var resp struct {
		Success bool    `json:"success"`
		Answer  *string `json:"answer"`
		Score   float64 `json:"score"`
	}
	err := c.do(ctx, c.withToken(ts), http.MethodPost, "/ask-question",
		nil, body, &resp)
	if err != nil {
		return nil, fmt.Errorf("ask question on document %d: %w",
			docID, err)
	}
	if !resp.Success || resp.Answer == nil {
		return nil, fmt.Errorf("ask question on document %d: %w: "+
			"missing answer", docID, ErrMalformedResponse)
	}

	return &Answer{Text: *resp.Answer, Score: resp.Score}, nil
}

// PreviousQuestions returns the questions asked about a document, newest
// first.
func (c *Client) PreviousQuestions(ctx context.Context,
	ts oauth2.TokenSource, docID int64) ([]QuestionAnswer, error) {

	path := "/previous-questions/" + strconv.FormatInt(docID, 10)

	var resp struct {
		Questions []QuestionAnswer `json:"questions"`
	}
	err := c.do(ctx, c.withToken(ts), http.MethodGet, path, nil, nil,
		&resp)
	if err != nil {
		return nil, fmt.Errorf("previous questions of document %d: %w",
			docID, err)
	}

	return resp.Questions, nil
}

// Search looks the query up in document titles and in earlier answers. A
// numeric query also matches the document with that id.
func (c *Client) Search(ctx context.Context, ts oauth2.TokenSource,
	query string) (*SearchResults, error) {

	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("search: %w", ErrEmptyQuery)
	}

	var resp SearchResults
	err := c.do(ctx, c.withToken(ts), http.MethodGet, "/search",
		url.Values{"q": {query}}, nil, &resp)
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}

	return &resp, nil
}
