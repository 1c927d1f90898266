package dialog

import (
	"context"
	"fmt"
)

// FSM drives the dialog state machine. It processes events, tracks the
// current state and hands back outbox events for side effects.
type FSM struct {
	env   *Environment
	state State
}

// NewFSM creates a closed dialog FSM reading summary state from summaries.
func NewFSM(summaries SummaryReader) *FSM {
	return &FSM{
		env:   &Environment{Summaries: summaries},
		state: &StateClosed{},
	}
}

// State returns the current state of the FSM.
func (f *FSM) State() State {
	return f.state
}

// ProcessEvent processes an event and returns the outbox events that should
// be executed. The state is unchanged when an error is returned.
func (f *FSM) ProcessEvent(ctx context.Context,
	event Event) ([]OutboxEvent, error) {

	transition, err := f.state.ProcessEvent(ctx, event, f.env)
	if err != nil {
		return nil, fmt.Errorf("process event %T: %w", event, err)
	}

	f.state = transition.NextState

	return transition.OutboxEvents, nil
}
