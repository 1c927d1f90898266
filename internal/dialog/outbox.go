package dialog

import "github.com/roasbeef/lexdesk/internal/summary"

// OutboxEvent is the sealed interface for side effects emitted by the
// dialog FSM. The Dialog binding executes them after the transition is
// committed.
type OutboxEvent interface {
	// isDialogOutboxEvent seals the interface to prevent external
	// implementations.
	isDialogOutboxEvent()
}

// Ensure all outbox event types implement OutboxEvent.
func (GenerateRequest) isDialogOutboxEvent() {}

// GenerateRequest asks for a summary of Doc to be generated.
type GenerateRequest struct {
	Doc summary.Document
}
