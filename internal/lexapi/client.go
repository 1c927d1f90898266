// Package lexapi is a client for the document analysis backend: login,
// document management, summaries, questions and search.
package lexapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/roasbeef/lexdesk/internal/summary"
	"golang.org/x/oauth2"
)

// Ensure Client implements the summary backend interface.
var _ summary.Summarizer = (*Client)(nil)

const (
	// DefaultBaseURL is the backend address used when none is configured.
	DefaultBaseURL = "http://localhost:5000"

	// DefaultTimeout bounds a single request. Summaries are generated
	// server-side and can take minutes for long documents.
	DefaultTimeout = 5 * time.Minute

	// DefaultPageSize is the document listing page size.
	DefaultPageSize = 20

	// maxErrorBody caps how much of an error response is read.
	maxErrorBody = 64 << 10
)

// Config holds the client configuration.
type Config struct {
	// BaseURL is the backend root URL.
	BaseURL string

	// Timeout is the per-request timeout.
	Timeout time.Duration

	// Transport overrides the HTTP transport, mainly for tests.
	Transport http.RoundTripper
}

// Client talks to the backend over HTTP.
type Client struct {
	baseURL *url.URL
	client  *http.Client
	log     *slog.Logger
}

// NewClient creates a backend client.
func NewClient(cfg Config, log *slog.Logger) (*Client, error) {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	if log == nil {
		log = slog.Default()
	}

	base, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("unsupported base url scheme %q",
			base.Scheme)
	}

	return &Client{
		baseURL: base,
		client: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: cfg.Transport,
		},
		log: log.With("component", "lexapi"),
	}, nil
}

// BaseURL returns the backend root URL.
func (c *Client) BaseURL() string {
	return c.baseURL.String()
}

// LoginResponse is returned by a successful login.
type LoginResponse struct {
	AccessToken string `json:"access_token"`
	Username    string `json:"username"`
	Email       string `json:"email"`
}

// Token returns the access token as an oauth2 bearer token.
func (r *LoginResponse) Token() *oauth2.Token {
	return &oauth2.Token{
		AccessToken: r.AccessToken,
		TokenType:   "Bearer",
	}
}

// Login exchanges a username and password for an access token.
func (c *Client) Login(ctx context.Context, username,
	password string) (*LoginResponse, error) {

	body := map[string]string{
		"username": username,
		"password": password,
	}

	var resp LoginResponse
	err := c.do(ctx, c.client, http.MethodPost, "/login", nil, body, &resp)
	if err != nil {
		return nil, fmt.Errorf("login: %w", err)
	}
	if resp.AccessToken == "" {
		return nil, fmt.Errorf("login: %w: missing access_token",
			ErrMalformedResponse)
	}

	c.log.Info("Logged in", "username", resp.Username)

	return &resp, nil
}

// Summarize requests the summary of docID. The backend returns a stored
// summary immediately when one exists and generates one otherwise.
func (c *Client) Summarize(ctx context.Context, docID int64,
	bearer string) (string, error) {

	token := &oauth2.Token{AccessToken: bearer, TokenType: "Bearer"}
	path := "/documents/summary/" + strconv.FormatInt(docID, 10)

	var resp struct {
		Summary *string `json:"summary"`
	}
	err := c.do(ctx, c.withToken(oauth2.StaticTokenSource(token)),
		http.MethodPost, path, nil, nil, &resp)
	if err != nil {
		return "", fmt.Errorf("summarize document %d: %w", docID, err)
	}
	if resp.Summary == nil {
		return "", fmt.Errorf("summarize document %d: %w: missing "+
			"summary", docID, ErrMalformedResponse)
	}

	return *resp.Summary, nil
}

// withToken returns an HTTP client that authorizes every request with a
// token from ts.
func (c *Client) withToken(ts oauth2.TokenSource) *http.Client {
	base := c.client.Transport
	if base == nil {
		base = http.DefaultTransport
	}

	return &http.Client{
		Timeout: c.client.Timeout,
		Transport: &oauth2.Transport{
			Source: ts,
			Base:   base,
		},
	}
}

// do issues a JSON request and decodes a JSON response into out. Non-2xx
// responses are returned as *APIError.
func (c *Client) do(ctx context.Context, hc *http.Client, method,
	path string, query url.Values, in, out any) error {

	var (
		body        io.Reader
		contentType string
	)
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		body = bytes.NewReader(payload)
		contentType = "application/json"
	}

	return c.send(ctx, hc, method, path, query, body, contentType, out)
}

// send issues a request with an already encoded body and decodes the JSON
// response into out.
func (c *Client) send(ctx context.Context, hc *http.Client, method,
	path string, query url.Values, body io.Reader, contentType string,
	out any) error {

	u := *c.baseURL
	u.Path = strings.TrimRight(u.Path, "/") + path
	if query != nil {
		u.RawQuery = query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	start := time.Now()
	resp, err := hc.Do(req)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	c.log.Debug("Backend request", "method", method, "path", path,
		"status", resp.StatusCode, "elapsed", time.Since(start))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeAPIError(resp)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}

	return nil
}

// decodeAPIError builds an APIError from an error response. The backend
// reports errors as {"error": "..."}; the JWT layer uses {"msg": "..."}.
func decodeAPIError(resp *http.Response) error {
	apiErr := &APIError{StatusCode: resp.StatusCode}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	if err != nil {
		return apiErr
	}

	var body struct {
		Error string `json:"error"`
		Msg   string `json:"msg"`
	}
	if json.Unmarshal(raw, &body) == nil {
		apiErr.Message = body.Error
		if apiErr.Message == "" {
			apiErr.Message = body.Msg
		}
	}

	return apiErr
}
