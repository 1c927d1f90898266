package summary

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Notification tells the user that a summary finished generating.
type Notification struct {
	// ID uniquely identifies the notification.
	ID string

	// DocID is the document whose summary is ready.
	DocID int64

	// DocumentTitle is the title captured when generation started.
	DocumentTitle string

	// Message is the user-facing text.
	Message string

	// At is when the completion was observed.
	At time.Time
}

// ForegroundFunc reports whether the summary of docID is currently visible
// to the user, in which case no completion notification is needed.
type ForegroundFunc func(docID int64) bool

// Notifier watches Store states for the loading to success edge of each
// record and emits exactly one Notification per completion. Failed requests
// never produce a notification here; the Service raises those as toasts.
//
// Notifications are fanned out to subscriber channels with non-blocking
// sends. A subscriber whose channel is full misses the notification rather
// than stalling the Store.
type Notifier struct {
	mu sync.Mutex

	// wasLoading holds the previously observed loading flag per document.
	wasLoading map[int64]bool

	subscribers []subscriber
	foreground  ForegroundFunc

	metrics *Metrics
	log     *slog.Logger
}

// subscriber holds information about a single subscription.
type subscriber struct {
	id           string
	deliveryChan chan<- Notification
}

// NewNotifier creates a notifier with no subscribers.
func NewNotifier(metrics *Metrics, log *slog.Logger) *Notifier {
	if log == nil {
		log = slog.Default()
	}

	return &Notifier{
		wasLoading: make(map[int64]bool),
		metrics:    metrics,
		log:        log.With("component", "notifier"),
	}
}

// Attach subscribes the notifier to store, seeding its markers from the
// current state. It returns a function that detaches it.
func (n *Notifier) Attach(store *Store) func() {
	n.mu.Lock()
	for _, rec := range store.Snapshot().records {
		n.wasLoading[rec.DocID] = rec.IsLoading
	}
	n.mu.Unlock()

	return store.Subscribe(n.Observe)
}

// SetForeground installs the predicate used to suppress notifications for
// summaries the user is already looking at.
func (n *Notifier) SetForeground(f ForegroundFunc) {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.foreground = f
}

// Subscribe registers a delivery channel. Subscribing the same id twice is a
// no-op.
func (n *Notifier) Subscribe(id string, deliveryChan chan<- Notification) {
	n.mu.Lock()
	defer n.mu.Unlock()

	for _, s := range n.subscribers {
		if s.id == id {
			return
		}
	}

	n.subscribers = append(n.subscribers, subscriber{
		id:           id,
		deliveryChan: deliveryChan,
	})
}

// SubscribeChan creates a buffered delivery channel, subscribes it under a
// fresh id and returns both.
func (n *Notifier) SubscribeChan(buffer int) (string, <-chan Notification) {
	if buffer <= 0 {
		buffer = DefaultNotificationBuffer
	}

	id := uuid.NewString()
	ch := make(chan Notification, buffer)
	n.Subscribe(id, ch)

	return id, ch
}

// Unsubscribe removes a subscriber. Unknown ids are ignored.
func (n *Notifier) Unsubscribe(id string) {
	n.mu.Lock()
	defer n.mu.Unlock()

	for i, s := range n.subscribers {
		if s.id == id {
			n.subscribers = append(
				n.subscribers[:i], n.subscribers[i+1:]...,
			)
			return
		}
	}
}

// SubscriberCount returns the number of active subscribers.
func (n *Notifier) SubscriberCount() int {
	n.mu.Lock()
	defer n.mu.Unlock()

	return len(n.subscribers)
}

// Observe compares state against the previously observed loading flags and
// delivers a notification for every record that went from loading to
// success. The marker is only updated after the comparison, so a state
// observed twice never notifies twice.
func (n *Notifier) Observe(state State) {
	n.mu.Lock()
	defer n.mu.Unlock()

	for id, rec := range state.records {
		was := n.wasLoading[id]
		if was && !rec.IsLoading && rec.Content.IsSome() {
			n.notify(rec)
		}
		n.wasLoading[id] = rec.IsLoading
	}

	for id := range n.wasLoading {
		if _, ok := state.records[id]; !ok {
			delete(n.wasLoading, id)
		}
	}
}

// notify builds and delivers the notification for a completed record. The
// caller must hold mu.
func (n *Notifier) notify(rec Record) {
	if n.foreground != nil && n.foreground(rec.DocID) {
		n.log.Debug("Summary ready in foreground",
			"doc_id", rec.DocID,
		)
		return
	}

	title := rec.DocumentTitle
	if title == "" {
		title = fmt.Sprintf("document #%d", rec.DocID)
	}

	note := Notification{
		ID:            uuid.NewString(),
		DocID:         rec.DocID,
		DocumentTitle: rec.DocumentTitle,
		Message:       fmt.Sprintf("Summary ready for %s", title),
		At:            time.Now(),
	}

	for _, s := range n.subscribers {
		// Non-blocking send. If the channel is full, we skip.
		select {
		case s.deliveryChan <- note:
			n.metrics.notificationDelivered()
		default:
			n.metrics.notificationDropped()
			n.log.Warn("Dropped summary notification",
				"doc_id", rec.DocID, "subscriber", s.id,
			)
		}
	}
}
