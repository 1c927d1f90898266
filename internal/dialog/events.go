package dialog

import "github.com/roasbeef/lexdesk/internal/summary"

// Event is the sealed interface for all events that can be sent to the
// dialog state machine.
type Event interface {
	// isDialogEvent seals the interface, preventing external packages from
	// implementing new event types.
	isDialogEvent()
}

// Ensure all event types implement Event.
func (OpenEvent) isDialogEvent()     {}
func (MinimizeEvent) isDialogEvent() {}
func (MaximizeEvent) isDialogEvent() {}
func (CloseEvent) isDialogEvent()    {}
func (RetryEvent) isDialogEvent()    {}

// OpenEvent shows the summary of Doc. Sent while another document is shown,
// it switches the dialog to Doc.
type OpenEvent struct {
	Doc summary.Document
}

// MinimizeEvent hides the open dialog while its request keeps running.
type MinimizeEvent struct{}

// MaximizeEvent restores a minimized dialog.
type MaximizeEvent struct{}

// CloseEvent closes the dialog. The summary record is kept.
type CloseEvent struct{}

// RetryEvent re-requests a summary whose last attempt failed.
type RetryEvent struct{}
