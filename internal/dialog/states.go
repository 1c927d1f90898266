package dialog

import (
	"context"
	"errors"
	"fmt"

	"github.com/lightningnetwork/lnd/fn/v2"
	"github.com/roasbeef/lexdesk/internal/summary"
)

// ErrInvalidTransition is returned when an event is not valid in the current
// state.
var ErrInvalidTransition = errors.New("invalid dialog transition")

// Visibility is the presentation state of the dialog.
type Visibility string

const (
	// VisibilityClosed means no dialog is shown.
	VisibilityClosed Visibility = "closed"

	// VisibilityOpen means the dialog is shown in the foreground.
	VisibilityOpen Visibility = "open"

	// VisibilityMinimized means the dialog is collapsed while its request
	// continues in the background.
	VisibilityMinimized Visibility = "minimized"
)

// SummaryReader is the read side of the summary store the FSM consults to
// decide whether a transition needs a generation request.
type SummaryReader interface {
	GetSummary(docID int64) fn.Option[summary.Record]
	HasActiveRequest(docID int64) bool
}

// State is the sealed interface for all dialog states. Each state handles
// incoming events and returns the transition to apply.
type State interface {
	// ProcessEvent handles an incoming event and returns the next state
	// along with any outbox events to emit.
	ProcessEvent(ctx context.Context, event Event,
		env *Environment) (*Transition, error)

	// Visibility returns the presentation state.
	Visibility() Visibility

	// Document returns the document shown, if any.
	Document() fn.Option[summary.Document]

	// String returns a human-readable name for the state.
	String() string

	// isDialogState seals the interface to prevent external
	// implementations.
	isDialogState()
}

// Transition represents the result of processing an event.
type Transition struct {
	NextState    State
	OutboxEvents []OutboxEvent
}

// Environment provides the FSM with read access to summary state.
type Environment struct {
	Summaries SummaryReader
}

// needsGeneration reports whether opening doc must request a summary: the
// store has neither content nor an error for it and no request is in
// flight.
func (e *Environment) needsGeneration(docID int64) bool {
	if e.Summaries.HasActiveRequest(docID) {
		return false
	}

	rec := e.Summaries.GetSummary(docID)
	if rec.IsNone() {
		return true
	}

	return fn.MapOptionZ(rec, func(r summary.Record) bool {
		return !r.HasContent() && !r.HasError() && !r.IsLoading
	})
}

// hasFailed reports whether the last attempt for docID failed.
func (e *Environment) hasFailed(docID int64) bool {
	return fn.MapOptionZ(
		e.Summaries.GetSummary(docID), func(r summary.Record) bool {
			return r.HasError() && !r.IsLoading
		},
	)
}

// showDoc returns the transition into the open state for doc, requesting a
// summary when nothing is cached or pending.
func showDoc(doc summary.Document, env *Environment) *Transition {
	t := &Transition{NextState: &StateOpen{Doc: doc}}
	if env.needsGeneration(doc.ID) {
		t.OutboxEvents = []OutboxEvent{GenerateRequest{Doc: doc}}
	}

	return t
}

func invalid(s State, event Event) error {
	return fmt.Errorf("%w: %T in state %s", ErrInvalidTransition, event, s)
}

// Ensure all state types implement State.
var (
	_ State = (*StateClosed)(nil)
	_ State = (*StateOpen)(nil)
	_ State = (*StateMinimized)(nil)
)

// StateClosed is the initial state: nothing is shown.
type StateClosed struct{}

func (*StateClosed) isDialogState()         {}
func (*StateClosed) Visibility() Visibility { return VisibilityClosed }
func (*StateClosed) String() string         { return "closed" }

// Document returns None.
func (*StateClosed) Document() fn.Option[summary.Document] {
	return fn.None[summary.Document]()
}

// ProcessEvent handles events in the closed state.
func (s *StateClosed) ProcessEvent(_ context.Context, event Event,
	env *Environment) (*Transition, error) {

	switch e := event.(type) {
	case OpenEvent:
		return showDoc(e.Doc, env), nil

	default:
		return nil, invalid(s, event)
	}
}

// StateOpen shows the summary of Doc in the foreground.
type StateOpen struct {
	Doc summary.Document
}

func (*StateOpen) isDialogState()         {}
func (*StateOpen) Visibility() Visibility { return VisibilityOpen }
func (*StateOpen) String() string         { return "open" }

// Document returns the shown document.
func (s *StateOpen) Document() fn.Option[summary.Document] {
	return fn.Some(s.Doc)
}

// ProcessEvent handles events in the open state.
func (s *StateOpen) ProcessEvent(_ context.Context, event Event,
	env *Environment) (*Transition, error) {

	switch e := event.(type) {
	case OpenEvent:
		return showDoc(e.Doc, env), nil

	case MinimizeEvent:
		return &Transition{
			NextState: &StateMinimized{Doc: s.Doc},
		}, nil

	case CloseEvent:
		return &Transition{NextState: &StateClosed{}}, nil

	case RetryEvent:
		if !env.hasFailed(s.Doc.ID) {
			return nil, invalid(s, event)
		}

		return &Transition{
			NextState: s,
			OutboxEvents: []OutboxEvent{
				GenerateRequest{Doc: s.Doc},
			},
		}, nil

	default:
		return nil, invalid(s, event)
	}
}

// StateMinimized keeps Doc's dialog collapsed. Its request, if any, keeps
// running.
type StateMinimized struct {
	Doc summary.Document
}

func (*StateMinimized) isDialogState()         {}
func (*StateMinimized) Visibility() Visibility { return VisibilityMinimized }
func (*StateMinimized) String() string         { return "minimized" }

// Document returns the minimized document.
func (s *StateMinimized) Document() fn.Option[summary.Document] {
	return fn.Some(s.Doc)
}

// ProcessEvent handles events in the minimized state.
func (s *StateMinimized) ProcessEvent(_ context.Context, event Event,
	env *Environment) (*Transition, error) {

	switch e := event.(type) {
	case MaximizeEvent:
		return showDoc(s.Doc, env), nil

	case OpenEvent:
		return showDoc(e.Doc, env), nil

	case CloseEvent:
		return &Transition{NextState: &StateClosed{}}, nil

	default:
		return nil, invalid(s, event)
	}
}
