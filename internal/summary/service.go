package summary

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/lightningnetwork/lnd/fn/v2"
)

// ErrNotAuthenticated is returned by credential providers when no bearer
// credential is available.
var ErrNotAuthenticated = errors.New("not authenticated")

// Summarizer issues the backend summary request for a document using the
// given bearer credential.
type Summarizer interface {
	Summarize(ctx context.Context, docID int64, bearer string) (string,
		error)
}

// CredentialProvider returns the bearer credential to attach to backend
// requests. It is consulted on every request.
type CredentialProvider interface {
	BearerToken(ctx context.Context) (string, error)
}

// serverMessager is implemented by backend errors that carry the error text
// sent by the server.
type serverMessager interface {
	ServerMessage() string
}

// Service is the only component that calls the backend summary endpoint. It
// serves cached summaries from the Store, guarantees at most one in-flight
// request per document and converts every outcome into Store state.
type Service struct {
	cfg     Config
	store   *Store
	backend Summarizer
	creds   CredentialProvider
	toasts  Toaster
	metrics *Metrics
	log     *slog.Logger

	// mu makes the cache check, the registry check and the registration
	// of a new request one step.
	mu     sync.Mutex
	closed bool

	// wg tracks requests registered by this service.
	wg sync.WaitGroup

	// sem limits concurrent backend calls.
	sem chan struct{}
}

// NewService creates a new summary generation service.
func NewService(cfg Config, store *Store, backend Summarizer,
	creds CredentialProvider, toasts Toaster, metrics *Metrics,
	log *slog.Logger) *Service {

	if log == nil {
		log = slog.Default()
	}
	if toasts == nil {
		toasts = discardToaster{}
	}
	if cfg.MaxConcurrent <= 0 {
		cfg.MaxConcurrent = DefaultMaxConcurrent
	}

	return &Service{
		cfg:     cfg,
		store:   store,
		backend: backend,
		creds:   creds,
		toasts:  toasts,
		metrics: metrics,
		log:     log.With("component", "summary"),
		sem:     make(chan struct{}, cfg.MaxConcurrent),
	}
}

// Store returns the store the service writes to.
func (s *Service) Store() *Store {
	return s.store
}

// GenerateSummary returns the summary for doc, generating it if needed. It
// blocks until the request reaches a terminal outcome.
//
// A cached summary is returned without network I/O. If a request for the
// document is already in flight, None is returned immediately and the caller
// should observe the Store for the outcome. Cancellation and failure also
// return None; failures are recorded in the Store and raised as a toast,
// never returned.
func (s *Service) GenerateSummary(ctx context.Context,
	doc Document) fn.Option[string] {

	token, cached, ok := s.register(ctx, doc)
	if !ok {
		return cached
	}
	defer s.wg.Done()
	defer token.release()

	s.metrics.requestStarted()
	defer s.metrics.requestFinished()

	log := s.log.With("doc_id", doc.ID)
	log.Debug("Generating summary", "title", doc.Title)

	text, err := s.fetch(token.Context(), doc.ID)
	switch {
	case err == nil:
		s.store.Dispatch(CompleteAction{
			DocID:   doc.ID,
			Content: text,
			At:      s.store.now(),
			Token:   token,
		})
		s.metrics.observeOutcome(outcomeSuccess)
		log.Info("Summary generated", "chars", len(text))

		return fn.Some(text)

	case isCancellation(token, err):
		s.store.Dispatch(CancelledAction{
			DocID: doc.ID,
			Token: token,
		})
		s.metrics.observeOutcome(outcomeCancelled)
		log.Debug("Summary request cancelled")

		return fn.None[string]()

	default:
		msg := failureMessage(err)
		s.store.Dispatch(FailAction{
			DocID: doc.ID,
			Error: msg,
			At:    s.store.now(),
			Token: token,
		})
		s.metrics.observeOutcome(outcomeFailure)
		log.Warn("Failed to generate summary", "error", err)

		s.toasts.Toast(Toast{
			Level:   ToastError,
			DocID:   doc.ID,
			Title:   doc.Title,
			Message: msg,
		})

		return fn.None[string]()
	}
}

// register performs the cache and dedup checks and, when a request is
// needed, registers a new cancellation token in the Store. ok is false when
// no request must be issued, in which case the returned option is the
// result for the caller.
func (s *Service) register(ctx context.Context,
	doc Document) (*CancelToken, fn.Option[string], bool) {

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		s.metrics.observeOutcome(outcomeRejected)
		return nil, fn.None[string](), false
	}

	state := s.store.Snapshot()
	if rec, ok := state.records[doc.ID]; ok && rec.Content.IsSome() {
		s.metrics.observeOutcome(outcomeCacheHit)
		return nil, rec.Content, false
	}

	if state.HasActiveRequest(doc.ID) {
		s.metrics.observeOutcome(outcomeDeduplicated)
		s.log.Debug("Summary already in flight", "doc_id", doc.ID)

		return nil, fn.None[string](), false
	}

	token := NewCancelToken(ctx)
	s.wg.Add(1)
	s.store.StartSummary(doc.ID, doc.Title, token)

	return token, fn.None[string](), true
}

// fetch waits for a backend slot, resolves the bearer credential and issues
// the summary request.
func (s *Service) fetch(ctx context.Context, docID int64) (string, error) {
	select {
	case s.sem <- struct{}{}:
		defer func() { <-s.sem }()
	case <-ctx.Done():
		return "", ctx.Err()
	}

	if s.creds == nil {
		return "", ErrNotAuthenticated
	}
	bearer, err := s.creds.BearerToken(ctx)
	if err != nil {
		return "", fmt.Errorf("resolve credential: %w", err)
	}

	return s.backend.Summarize(ctx, docID, bearer)
}

// CancelSummaryGeneration triggers the cancellation token registered for
// docID. It returns true if a live request was cancelled. The Store record
// is settled by the cancelled request itself.
func (s *Service) CancelSummaryGeneration(docID int64) bool {
	token := s.store.Snapshot().activeToken(docID)
	if token == nil {
		return false
	}

	return token.Trigger()
}

// Close tears the service down: every registered cancellation token is
// triggered once, later generation calls are rejected, and Close waits for
// the cancelled requests to settle their records.
func (s *Service) Close() {
	s.mu.Lock()
	s.closed = true
	state := s.store.Snapshot()
	s.mu.Unlock()

	cancelled := 0
	for _, token := range state.active {
		if token != nil && token.Trigger() {
			cancelled++
		}
	}

	s.wg.Wait()

	s.log.Debug("Summary service closed", "cancelled", cancelled)
}

// WaitSummary blocks until no request for docID is in flight and returns
// the record at that point. Callers deduplicated by GenerateSummary use it to
// observe the outcome of the request they joined. None is returned if ctx
// ends first.
func (s *Service) WaitSummary(ctx context.Context,
	docID int64) fn.Option[Record] {

	changed := make(chan struct{}, 1)
	unsubscribe := s.store.Subscribe(func(State) {
		select {
		case changed <- struct{}{}:
		default:
		}
	})
	defer unsubscribe()

	for {
		state := s.store.Snapshot()
		if !state.HasActiveRequest(docID) {
			return state.Summary(docID)
		}

		select {
		case <-changed:
		case <-ctx.Done():
			return fn.None[Record]()
		}
	}
}

// GetSummary returns the stored record for docID, if any.
func (s *Service) GetSummary(docID int64) fn.Option[Record] {
	return s.store.GetSummary(docID)
}

// IsSummaryLoading returns true if the record for docID is loading.
func (s *Service) IsSummaryLoading(docID int64) bool {
	return s.store.IsSummaryLoading(docID)
}

// HasActiveRequest returns true if a request for docID is in flight.
func (s *Service) HasActiveRequest(docID int64) bool {
	return s.store.HasActiveRequest(docID)
}

// isCancellation returns true if err is the result of the request's token
// being triggered or its context ending.
func isCancellation(token *CancelToken, err error) bool {
	if token.IsTriggered() || token.Context().Err() != nil {
		return true
	}

	return errors.Is(err, context.Canceled)
}

// failureMessage returns the text recorded for a failed request: the
// server's error text if it sent one, otherwise a generic description.
func failureMessage(err error) string {
	var sm serverMessager
	if errors.As(err, &sm) {
		if msg := strings.TrimSpace(sm.ServerMessage()); msg != "" {
			return msg
		}
	}

	if errors.Is(err, ErrNotAuthenticated) {
		return "Not authenticated. Please log in again."
	}

	return DefaultFailureMessage
}
