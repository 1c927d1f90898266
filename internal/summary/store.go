package summary

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/lightningnetwork/lnd/fn/v2"
)

// Listener observes every state published by the Store. Listeners run
// synchronously on the dispatching goroutine, in dispatch order, and must
// not dispatch back into the Store.
type Listener func(state State)

// Store is the single source of truth for summary state. It holds the
// current State behind an atomic pointer so readers never observe a torn
// combination of a record's loading flag and its registry entry, and it
// serializes transitions so listeners see them in order.
type Store struct {
	// mu serializes dispatch: reduce, publish and listener fan-out.
	mu sync.Mutex

	state atomic.Pointer[State]

	listenerMu sync.RWMutex
	listeners  map[uint64]Listener
	nextID     uint64

	now func() time.Time
}

// NewStore creates an empty store.
func NewStore() *Store {
	s := &Store{
		listeners: make(map[uint64]Listener),
		now:       time.Now,
	}
	initial := emptyState()
	s.state.Store(&initial)

	return s
}

// Snapshot returns the current state.
func (s *Store) Snapshot() State {
	return *s.state.Load()
}

// Dispatch applies an action and publishes the resulting state to all
// listeners. It returns the published state.
func (s *Store) Dispatch(action Action) State {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev := *s.state.Load()
	next := reduce(prev, action)
	s.state.Store(&next)

	s.listenerMu.RLock()
	listeners := make([]Listener, 0, len(s.listeners))
	for _, l := range s.listeners {
		listeners = append(listeners, l)
	}
	s.listenerMu.RUnlock()

	for _, l := range listeners {
		l(next)
	}

	// Requests whose registry entry was overwritten or cleared must not
	// outlive it.
	for _, tok := range displacedTokens(prev, next, action) {
		if tok != nil {
			tok.Trigger()
		}
	}

	return next
}

// Subscribe registers a listener and returns a function that removes it.
func (s *Store) Subscribe(l Listener) func() {
	s.listenerMu.Lock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = l
	s.listenerMu.Unlock()

	return func() {
		s.listenerMu.Lock()
		delete(s.listeners, id)
		s.listenerMu.Unlock()
	}
}

// StartSummary creates or overwrites the record for docID in the loading
// state and registers token. The caller is responsible for checking that no
// request is already active. A nil token is replaced by a fresh one so the
// registry entry can always be cancelled.
func (s *Store) StartSummary(docID int64, title string, token *CancelToken) {
	if token == nil {
		token = NewCancelToken(context.Background())
	}

	s.Dispatch(StartAction{
		DocID: docID,
		Title: title,
		Token: token,
		At:    s.now(),
	})
}

// CompleteSummary records a successful summary for docID and removes its
// registry entry.
func (s *Store) CompleteSummary(docID int64, content string) {
	s.Dispatch(CompleteAction{
		DocID:   docID,
		Content: content,
		At:      s.now(),
	})
}

// FailSummary records a failure for docID and removes its registry entry.
func (s *Store) FailSummary(docID int64, errMsg string) {
	s.Dispatch(FailAction{
		DocID: docID,
		Error: errMsg,
		At:    s.now(),
	})
}

// ClearSummary deletes the record and registry entry of docID. An in-flight
// request for the document is cancelled.
func (s *Store) ClearSummary(docID int64) {
	s.Dispatch(ClearAction{DocID: docID})
}

// ClearAllSummaries deletes every record and registry entry, cancelling all
// in-flight requests.
func (s *Store) ClearAllSummaries() {
	s.Dispatch(ClearAllAction{})
}

// GetSummary returns the record for docID, if any.
func (s *Store) GetSummary(docID int64) fn.Option[Record] {
	return s.Snapshot().Summary(docID)
}

// IsSummaryLoading returns true if the record for docID is loading. It is
// false when no record exists.
func (s *Store) IsSummaryLoading(docID int64) bool {
	return s.Snapshot().IsLoading(docID)
}

// HasActiveRequest returns true if a cancellation token is registered for
// docID.
func (s *Store) HasActiveRequest(docID int64) bool {
	return s.Snapshot().HasActiveRequest(docID)
}

// displacedTokens returns the tokens that a start or clear action removed
// from the registry without their request finishing.
func displacedTokens(prev, next State, action Action) []*CancelToken {
	switch action.(type) {
	case StartAction, ClearAction, ClearAllAction:
	default:
		return nil
	}

	var displaced []*CancelToken
	for id, tok := range prev.active {
		if next.active[id] != tok {
			displaced = append(displaced, tok)
		}
	}

	return displaced
}
