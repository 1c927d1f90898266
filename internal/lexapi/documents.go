package lexapi

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/roasbeef/lexdesk/internal/summary"
	"golang.org/x/oauth2"
)

// uploadTimeLayout is the naive ISO-8601 form the backend emits.
const uploadTimeLayout = "2006-01-02T15:04:05.999999"

// DocumentInfo is one entry of the document listing.
type DocumentInfo struct {
	ID         int64   `json:"id"`
	Title      string  `json:"title"`
	Summary    *string `json:"summary"`
	FileSize   int64   `json:"file_size"`
	UploadTime string  `json:"upload_time"`
	Type       string  `json:"type"`
}

// Document returns the summary request identity of the entry.
func (d DocumentInfo) Document() summary.Document {
	return summary.Document{ID: d.ID, Title: d.Title}
}

// HasStoredSummary reports whether the backend already holds a summary.
func (d DocumentInfo) HasStoredSummary() bool {
	return d.Summary != nil && *d.Summary != ""
}

// UploadedAt parses the upload time. The backend sends times without a zone,
// which are read as UTC.
func (d DocumentInfo) UploadedAt() (time.Time, error) {
	return parseTime(d.UploadTime)
}

// parseTime reads the time formats the backend emits: ISO-8601 with or
// without a zone, and the HTTP date form produced for raw datetimes. An
// empty string is the zero time.
func parseTime(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}

	var firstErr error
	for _, layout := range []string{
		time.RFC3339Nano, uploadTimeLayout, http.TimeFormat,
	} {
		t, err := time.Parse(layout, s)
		if err == nil {
			return t, nil
		}
		if firstErr == nil {
			firstErr = err
		}
	}

	return time.Time{}, firstErr
}

// ListDocuments returns one page of the user's documents, newest first.
// Pages start at 1. A non-positive limit selects DefaultPageSize.
func (c *Client) ListDocuments(ctx context.Context, ts oauth2.TokenSource,
	page, limit int) ([]DocumentInfo, error) {

	if page < 1 {
		page = 1
	}
	if limit <= 0 {
		limit = DefaultPageSize
	}

	query := url.Values{}
	query.Set("page", strconv.Itoa(page))
	query.Set("limit", strconv.Itoa(limit))

	var docs []DocumentInfo
	err := c.do(ctx, c.withToken(ts), http.MethodGet, "/documents", query,
		nil, &docs)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}

	return docs, nil
}

// ErrNotPDF is returned for uploads the backend would refuse by extension.
var ErrNotPDF = errors.New("only PDF files are supported")

// UploadResult acknowledges an upload. Text extraction continues on the
// backend, so Status reads "processing" at first.
type UploadResult struct {
	Message    string `json:"message"`
	DocumentID int64  `json:"document_id"`
	Title      string `json:"title"`
	Status     string `json:"status"`
}

// UploadDocument uploads the PDF read from r under filename.
func (c *Client) UploadDocument(ctx context.Context, ts oauth2.TokenSource,
	filename string, r io.Reader) (*UploadResult, error) {

	filename = filepath.Base(filename)
	if !strings.EqualFold(filepath.Ext(filename), ".pdf") {
		return nil, fmt.Errorf("upload %s: %w", filename, ErrNotPDF)
	}

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", filename)
	if err != nil {
		return nil, fmt.Errorf("upload %s: %w", filename, err)
	}
	if _, err := io.Copy(part, r); err != nil {
		return nil, fmt.Errorf("upload %s: read file: %w", filename, err)
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("upload %s: %w", filename, err)
	}

	var resp UploadResult
	err = c.send(ctx, c.withToken(ts), http.MethodPost, "/upload", nil,
		&body, mw.FormDataContentType(), &resp)
	if err != nil {
		return nil, fmt.Errorf("upload %s: %w", filename, err)
	}
	if resp.DocumentID == 0 {
		return nil, fmt.Errorf("upload %s: %w: missing document_id",
			filename, ErrMalformedResponse)
	}

	c.log.Info("Uploaded document", "doc_id", resp.DocumentID,
		"title", resp.Title)

	return &resp, nil
}

// DeleteDocument removes a document and everything derived from it.
func (c *Client) DeleteDocument(ctx context.Context, ts oauth2.TokenSource,
	docID int64) error {

	path := "/documents/" + strconv.FormatInt(docID, 10)

	var resp struct {
		Success bool `json:"success"`
	}
	err := c.do(ctx, c.withToken(ts), http.MethodDelete, path, nil, nil,
		&resp)
	if err != nil {
		return fmt.Errorf("delete document %d: %w", docID, err)
	}
	if !resp.Success {
		return fmt.Errorf("delete document %d: %w", docID,
			ErrMalformedResponse)
	}

	return nil
}
