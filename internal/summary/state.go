package summary

import (
	"sort"
	"time"

	"github.com/lightningnetwork/lnd/fn/v2"
)

// State is an immutable snapshot of all summary state: the records keyed by
// document id and the registry of live cancellation tokens. A State is never
// modified after it has been published; transitions build a new one.
type State struct {
	records map[int64]Record
	active  map[int64]*CancelToken
}

// emptyState returns a State with no records and no active requests.
func emptyState() State {
	return State{
		records: make(map[int64]Record),
		active:  make(map[int64]*CancelToken),
	}
}

// Summary returns the record for docID, if any.
func (s State) Summary(docID int64) fn.Option[Record] {
	rec, ok := s.records[docID]
	if !ok {
		return fn.None[Record]()
	}

	return fn.Some(rec)
}

// IsLoading returns true if a record exists for docID and is loading.
func (s State) IsLoading(docID int64) bool {
	rec, ok := s.records[docID]
	return ok && rec.IsLoading
}

// HasActiveRequest returns true if a cancellation token is registered for
// docID.
func (s State) HasActiveRequest(docID int64) bool {
	_, ok := s.active[docID]
	return ok
}

// activeToken returns the registered token for docID, or nil.
func (s State) activeToken(docID int64) *CancelToken {
	return s.active[docID]
}

// Records returns every record ordered by creation time, oldest first.
func (s State) Records() []Record {
	recs := make([]Record, 0, len(s.records))
	for _, rec := range s.records {
		recs = append(recs, rec)
	}
	sort.Slice(recs, func(i, j int) bool {
		if recs[i].Timestamp.Equal(recs[j].Timestamp) {
			return recs[i].DocID < recs[j].DocID
		}
		return recs[i].Timestamp.Before(recs[j].Timestamp)
	})

	return recs
}

// Len returns the number of records.
func (s State) Len() int {
	return len(s.records)
}

// ActiveCount returns the number of registered in-flight requests.
func (s State) ActiveCount() int {
	return len(s.active)
}

// clone returns a copy of the state whose maps may be mutated freely.
func (s State) clone() State {
	next := State{
		records: make(map[int64]Record, len(s.records)),
		active:  make(map[int64]*CancelToken, len(s.active)),
	}
	for id, rec := range s.records {
		next.records[id] = rec
	}
	for id, tok := range s.active {
		next.active[id] = tok
	}

	return next
}

// Action is the sealed interface for all store transitions.
type Action interface {
	isAction()
}

// Ensure all action types implement Action.
func (StartAction) isAction()     {}
func (CompleteAction) isAction()  {}
func (FailAction) isAction()      {}
func (CancelledAction) isAction() {}
func (ClearAction) isAction()     {}
func (ClearAllAction) isAction()  {}

// StartAction creates or overwrites the record for a document in the loading
// state and registers the request's cancellation token.
type StartAction struct {
	DocID int64
	Title string
	Token *CancelToken
	At    time.Time
}

// CompleteAction moves a record to terminal success.
type CompleteAction struct {
	DocID   int64
	Content string
	At      time.Time

	// Token, when set, restricts the action to the request that owns it.
	// The action is dropped if another token is registered for DocID.
	Token *CancelToken
}

// FailAction moves a record to terminal failure.
type FailAction struct {
	DocID int64
	Error string
	At    time.Time

	// Token has the same meaning as in CompleteAction.
	Token *CancelToken
}

// CancelledAction settles a cancelled request: loading stops and the
// registry entry is removed while content and error stay untouched.
type CancelledAction struct {
	DocID int64
	Token *CancelToken
}

// ClearAction deletes the record and registry entry of a document.
type ClearAction struct {
	DocID int64
}

// ClearAllAction deletes every record and registry entry.
type ClearAllAction struct{}

// isStale returns true if an action scoped to token must be dropped because
// the registry no longer points at that request.
func isStale(s State, docID int64, token *CancelToken) bool {
	if token == nil {
		return false
	}

	return s.active[docID] != token
}

// reduce applies an action to the previous state and returns the next
// state. It is a total function: every action against every state yields a
// complete new state and prev is never modified. When the action is a no-op
// prev itself is returned.
func reduce(prev State, action Action) State {
	switch a := action.(type) {
	case StartAction:
		next := prev.clone()
		next.records[a.DocID] = Record{
			DocID:         a.DocID,
			Content:       fn.None[string](),
			IsLoading:     true,
			Error:         fn.None[string](),
			Timestamp:     a.At,
			DocumentTitle: a.Title,
		}
		next.active[a.DocID] = a.Token

		return next

	case CompleteAction:
		if isStale(prev, a.DocID, a.Token) {
			return prev
		}

		next := prev.clone()
		rec, ok := next.records[a.DocID]
		if !ok {
			rec = Record{DocID: a.DocID, Timestamp: a.At}
		}
		rec.IsLoading = false
		rec.Content = fn.Some(a.Content)
		rec.Error = fn.None[string]()
		next.records[a.DocID] = rec
		delete(next.active, a.DocID)

		return next

	case FailAction:
		if isStale(prev, a.DocID, a.Token) {
			return prev
		}

		next := prev.clone()
		rec, ok := next.records[a.DocID]
		if !ok {
			rec = Record{DocID: a.DocID, Timestamp: a.At}
		}
		rec.IsLoading = false
		rec.Error = fn.Some(a.Error)

		// Content is normally already None here; clearing it keeps
		// the terminal fields exclusive even for direct calls on a
		// completed record.
		rec.Content = fn.None[string]()
		next.records[a.DocID] = rec
		delete(next.active, a.DocID)

		return next

	case CancelledAction:
		if isStale(prev, a.DocID, a.Token) {
			return prev
		}

		_, hasRec := prev.records[a.DocID]
		_, hasTok := prev.active[a.DocID]
		if !hasRec && !hasTok {
			return prev
		}

		next := prev.clone()
		if rec, ok := next.records[a.DocID]; ok {
			rec.IsLoading = false
			next.records[a.DocID] = rec
		}
		delete(next.active, a.DocID)

		return next

	case ClearAction:
		_, hasRec := prev.records[a.DocID]
		_, hasTok := prev.active[a.DocID]
		if !hasRec && !hasTok {
			return prev
		}

		next := prev.clone()
		delete(next.records, a.DocID)
		delete(next.active, a.DocID)

		return next

	case ClearAllAction:
		if len(prev.records) == 0 && len(prev.active) == 0 {
			return prev
		}

		return emptyState()

	default:
		return prev
	}
}
