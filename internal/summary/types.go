package summary

import (
	"time"

	"github.com/lightningnetwork/lnd/fn/v2"
)

// Document is the minimal view of a server-managed document the summary
// core needs: its server-assigned identifier and a display title.
type Document struct {
	ID    int64
	Title string
}

// Record is the per-document summary state tracked by the Store.
type Record struct {
	// DocID is the document the record belongs to.
	DocID int64

	// Content is the generated summary. It is None while the request is
	// pending and after a failure.
	Content fn.Option[string]

	// IsLoading is true from the moment a request is registered until it
	// reaches a terminal outcome or is cancelled.
	IsLoading bool

	// Error is the failure description. It is only set after a failed
	// request and never together with Content.
	Error fn.Option[string]

	// Timestamp is when the record was created.
	Timestamp time.Time

	// DocumentTitle is the title captured when generation started.
	DocumentTitle string
}

// HasContent returns true if the record carries a generated summary.
func (r Record) HasContent() bool {
	return r.Content.IsSome()
}

// HasError returns true if the record carries a failure description.
func (r Record) HasError() bool {
	return r.Error.IsSome()
}

// ContentText returns the summary text or the empty string.
func (r Record) ContentText() string {
	return r.Content.UnwrapOr("")
}

// ErrorText returns the failure description or the empty string.
func (r Record) ErrorText() string {
	return r.Error.UnwrapOr("")
}

// ToastLevel classifies a transient user-visible notification.
type ToastLevel string

const (
	// ToastError is raised when a summary request fails.
	ToastError ToastLevel = "error"

	// ToastSuccess is raised when a summary becomes ready.
	ToastSuccess ToastLevel = "success"
)

// Toast is a transient notification shown to the user.
type Toast struct {
	Level   ToastLevel
	DocID   int64
	Title   string
	Message string
}

// Toaster surfaces transient notifications to the user. Implementations must
// not block.
type Toaster interface {
	Toast(t Toast)
}

// ToasterFunc adapts a plain function to the Toaster interface.
type ToasterFunc func(t Toast)

// Toast implements Toaster.
func (f ToasterFunc) Toast(t Toast) {
	f(t)
}

// discardToaster drops every toast.
type discardToaster struct{}

func (discardToaster) Toast(Toast) {}
