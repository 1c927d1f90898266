package lexapi

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

// libraryBackend mimics the question, search, upload and delete routes.
func libraryBackend(t *testing.T) *Client {
	t.Helper()

	writeJSON := func(w http.ResponseWriter, status int, v any) {
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(v)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /ask-question", func(w http.ResponseWriter,
		r *http.Request) {

		var body struct {
			DocumentID int64  `json:"document_id"`
			Question   string `json:"question"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))

		switch body.DocumentID {
		case 1:
			writeJSON(w, http.StatusOK, map[string]any{
				"success": true,
				"answer":  "Two years.",
				"score":   0.87,
			})
		case 2:
			writeJSON(w, http.StatusBadRequest, map[string]any{
				"success": false,
				"error":   "Summary not available for this document",
			})
		default:
			writeJSON(w, http.StatusNotFound, map[string]any{
				"success": false,
				"error":   "Document not found or not owned by user",
			})
		}
	})

	mux.HandleFunc("GET /previous-questions/{id}", func(
		w http.ResponseWriter, r *http.Request) {

		_, _ = w.Write([]byte(`{"success": true, "questions": [
			{"id": 4, "document_id": 1, "question": "Term?",
			 "answer": "Two years.",
			 "created_at": "2024-05-02T08:00:00.5"},
			{"id": 3, "document_id": 1, "question": "Parties?",
			 "answer": "Acme and Bob.", "created_at": null}
		]}`))
	})

	mux.HandleFunc("GET /search", func(w http.ResponseWriter,
		r *http.Request) {

		if r.URL.Query().Get("q") != "lease" {
			writeJSON(w, http.StatusOK, map[string]any{
				"documents": []any{},
				"qa":        []any{},
			})
			return
		}

		_, _ = w.Write([]byte(`{
			"documents": [{"id": 8, "title": "Lease.pdf",
			  "summary": null,
			  "upload_time": "Wed, 01 May 2024 12:30:00 GMT",
			  "match_score": 1.0}],
			"qa": [{"id": 5, "document_id": 8,
			  "question": "Is the lease renewable?", "answer": "Yes.",
			  "created_at": "2024-05-03T10:00:00"}]
		}`))
	})

	mux.HandleFunc("POST /upload", func(w http.ResponseWriter,
		r *http.Request) {

		file, hdr, err := r.FormFile("file")
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{
				"error": "No file part",
			})
			return
		}
		defer file.Close()

		data, err := io.ReadAll(file)
		require.NoError(t, err)
		require.Equal(t, "%PDF-1.4 test", string(data))

		writeJSON(w, http.StatusOK, map[string]any{
			"message":     "File uploaded successfully",
			"document_id": 12,
			"title":       hdr.Filename,
			"status":      "processing",
		})
	})

	mux.HandleFunc("DELETE /documents/{id}", func(w http.ResponseWriter,
		r *http.Request) {

		if r.PathValue("id") != "12" {
			writeJSON(w, http.StatusInternalServerError, map[string]any{
				"success": false,
				"error":   "Error deleting document: not found",
			})
			return
		}

		writeJSON(w, http.StatusOK, map[string]any{
			"success": true,
			"message": "Document deleted successfully",
		})
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	c, err := NewClient(Config{BaseURL: srv.URL}, nil)
	require.NoError(t, err)

	return c
}

func testTokenSource() oauth2.TokenSource {
	return oauth2.StaticTokenSource(&oauth2.Token{AccessToken: testToken})
}

func TestAskQuestion(t *testing.T) {
	c := libraryBackend(t)
	ctx := context.Background()
	ts := testTokenSource()

	ans, err := c.AskQuestion(ctx, ts, 1, "  How long is the term? ")
	require.NoError(t, err)
	require.Equal(t, "Two years.", ans.Text)
	require.InDelta(t, 0.87, ans.Score, 1e-9)

	_, err = c.AskQuestion(ctx, ts, 2, "Term?")
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
	require.Equal(t, "Summary not available for this document",
		apiErr.ServerMessage())

	_, err = c.AskQuestion(ctx, ts, 3, "Term?")
	require.True(t, IsNotFound(err))

	_, err = c.AskQuestion(ctx, ts, 1, "   ")
	require.ErrorIs(t, err, ErrEmptyQuery)
}

func TestPreviousQuestions(t *testing.T) {
	c := libraryBackend(t)

	qs, err := c.PreviousQuestions(context.Background(), testTokenSource(), 1)
	require.NoError(t, err)
	require.Len(t, qs, 2)
	require.Equal(t, "Term?", qs[0].Question)

	at, err := qs[0].AskedAt()
	require.NoError(t, err)
	require.Equal(t, time.Date(2024, 5, 2, 8, 0, 0, 5e8, time.UTC), at)

	at, err = qs[1].AskedAt()
	require.NoError(t, err)
	require.True(t, at.IsZero())
}

func TestSearch(t *testing.T) {
	c := libraryBackend(t)
	ctx := context.Background()
	ts := testTokenSource()

	res, err := c.Search(ctx, ts, " lease ")
	require.NoError(t, err)
	require.False(t, res.Empty())
	require.Len(t, res.Documents, 1)
	require.Equal(t, "Lease.pdf", res.Documents[0].Title)
	require.Len(t, res.Answers, 1)
	require.Equal(t, int64(8), res.Answers[0].DocumentID)

	uploaded, err := parseTime(res.Documents[0].UploadTime)
	require.NoError(t, err)
	require.Equal(t, 2024, uploaded.Year())

	res, err = c.Search(ctx, ts, "nothing")
	require.NoError(t, err)
	require.True(t, res.Empty())

	_, err = c.Search(ctx, ts, "")
	require.ErrorIs(t, err, ErrEmptyQuery)
}

func TestUploadAndDeleteDocument(t *testing.T) {
	c := libraryBackend(t)
	ctx := context.Background()
	ts := testTokenSource()

	res, err := c.UploadDocument(ctx, ts, "/tmp/contracts/Lease.PDF",
		strings.NewReader("%PDF-1.4 test"))
	require.NoError(t, err)
	require.Equal(t, int64(12), res.DocumentID)
	require.Equal(t, "Lease.PDF", res.Title)
	require.Equal(t, "processing", res.Status)

	_, err = c.UploadDocument(ctx, ts, "notes.txt",
		strings.NewReader("hello"))
	require.ErrorIs(t, err, ErrNotPDF)

	require.NoError(t, c.DeleteDocument(ctx, ts, 12))

	err = c.DeleteDocument(ctx, ts, 13)
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, "Error deleting document: not found",
		apiErr.ServerMessage())
}
