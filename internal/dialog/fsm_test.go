package dialog

import (
	"context"
	"testing"

	"github.com/roasbeef/lexdesk/internal/summary"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

var (
	nda   = summary.Document{ID: 1, Title: "NDA.pdf"}
	lease = summary.Document{ID: 2, Title: "Lease.pdf"}
)

func requireGenerate(t *testing.T, outbox []OutboxEvent,
	doc summary.Document) {

	t.Helper()

	require.Len(t, outbox, 1)
	req, ok := outbox[0].(GenerateRequest)
	require.True(t, ok)
	require.Equal(t, doc, req.Doc)
}

func TestDialogFSM_OpenRequestsGeneration(t *testing.T) {
	ctx := context.Background()
	fsm := NewFSM(summary.NewStore())

	require.Equal(t, VisibilityClosed, fsm.State().Visibility())
	require.True(t, fsm.State().Document().IsNone())

	outbox, err := fsm.ProcessEvent(ctx, OpenEvent{Doc: nda})
	require.NoError(t, err)
	require.Equal(t, "open", fsm.State().String())
	requireGenerate(t, outbox, nda)
}

func TestDialogFSM_OpenSkipsCachedAndInFlight(t *testing.T) {
	ctx := context.Background()
	store := summary.NewStore()

	store.StartSummary(nda.ID, nda.Title,
		summary.NewCancelToken(context.Background()))
	store.CompleteSummary(lease.ID, "cached")

	for _, doc := range []summary.Document{nda, lease} {
		fsm := NewFSM(store)
		outbox, err := fsm.ProcessEvent(ctx, OpenEvent{Doc: doc})
		require.NoError(t, err)
		require.Empty(t, outbox)
	}
}

func TestDialogFSM_OpenSkipsFailed(t *testing.T) {
	ctx := context.Background()
	store := summary.NewStore()
	store.FailSummary(nda.ID, "boom")

	fsm := NewFSM(store)
	outbox, err := fsm.ProcessEvent(ctx, OpenEvent{Doc: nda})
	require.NoError(t, err)
	require.Empty(t, outbox)

	outbox, err = fsm.ProcessEvent(ctx, RetryEvent{})
	require.NoError(t, err)
	require.Equal(t, VisibilityOpen, fsm.State().Visibility())
	requireGenerate(t, outbox, nda)
}

func TestDialogFSM_MinimizeAndRestore(t *testing.T) {
	ctx := context.Background()
	store := summary.NewStore()
	fsm := NewFSM(store)

	_, err := fsm.ProcessEvent(ctx, OpenEvent{Doc: nda})
	require.NoError(t, err)
	store.StartSummary(nda.ID, nda.Title,
		summary.NewCancelToken(context.Background()))

	outbox, err := fsm.ProcessEvent(ctx, MinimizeEvent{})
	require.NoError(t, err)
	require.Empty(t, outbox)
	require.Equal(t, VisibilityMinimized, fsm.State().Visibility())
	require.Equal(t, nda, fsm.State().Document().UnwrapOr(
		summary.Document{},
	))

	// Restoring while loading must not start another request.
	outbox, err = fsm.ProcessEvent(ctx, MaximizeEvent{})
	require.NoError(t, err)
	require.Empty(t, outbox)
	require.Equal(t, VisibilityOpen, fsm.State().Visibility())
}

func TestDialogFSM_RestoreAfterCancellationRegenerates(t *testing.T) {
	ctx := context.Background()
	store := summary.NewStore()
	fsm := NewFSM(store)

	_, err := fsm.ProcessEvent(ctx, OpenEvent{Doc: nda})
	require.NoError(t, err)
	_, err = fsm.ProcessEvent(ctx, MinimizeEvent{})
	require.NoError(t, err)

	tok := summary.NewCancelToken(context.Background())
	store.StartSummary(nda.ID, nda.Title, tok)
	store.Dispatch(summary.CancelledAction{DocID: nda.ID, Token: tok})

	outbox, err := fsm.ProcessEvent(ctx, MaximizeEvent{})
	require.NoError(t, err)
	requireGenerate(t, outbox, nda)
}

func TestDialogFSM_SwitchDocument(t *testing.T) {
	ctx := context.Background()
	fsm := NewFSM(summary.NewStore())

	_, err := fsm.ProcessEvent(ctx, OpenEvent{Doc: nda})
	require.NoError(t, err)
	_, err = fsm.ProcessEvent(ctx, MinimizeEvent{})
	require.NoError(t, err)

	outbox, err := fsm.ProcessEvent(ctx, OpenEvent{Doc: lease})
	require.NoError(t, err)
	requireGenerate(t, outbox, lease)
	require.Equal(t, VisibilityOpen, fsm.State().Visibility())
	require.Equal(t, lease, fsm.State().Document().UnwrapOr(
		summary.Document{},
	))
}

func TestDialogFSM_Close(t *testing.T) {
	ctx := context.Background()

	for _, minimize := range []bool{false, true} {
		fsm := NewFSM(summary.NewStore())

		_, err := fsm.ProcessEvent(ctx, OpenEvent{Doc: nda})
		require.NoError(t, err)
		if minimize {
			_, err = fsm.ProcessEvent(ctx, MinimizeEvent{})
			require.NoError(t, err)
		}

		outbox, err := fsm.ProcessEvent(ctx, CloseEvent{})
		require.NoError(t, err)
		require.Empty(t, outbox)
		require.Equal(t, VisibilityClosed, fsm.State().Visibility())
	}
}

func TestDialogFSM_InvalidTransitions(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name  string
		setup []Event
		event Event
	}{
		{
			name:  "minimize while closed",
			event: MinimizeEvent{},
		},
		{
			name:  "maximize while closed",
			event: MaximizeEvent{},
		},
		{
			name:  "close while closed",
			event: CloseEvent{},
		},
		{
			name:  "retry while closed",
			event: RetryEvent{},
		},
		{
			name:  "maximize while open",
			setup: []Event{OpenEvent{Doc: nda}},
			event: MaximizeEvent{},
		},
		{
			name:  "retry without failure",
			setup: []Event{OpenEvent{Doc: nda}},
			event: RetryEvent{},
		},
		{
			name:  "minimize while minimized",
			setup: []Event{OpenEvent{Doc: nda}, MinimizeEvent{}},
			event: MinimizeEvent{},
		},
		{
			name:  "retry while minimized",
			setup: []Event{OpenEvent{Doc: nda}, MinimizeEvent{}},
			event: RetryEvent{},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			fsm := NewFSM(summary.NewStore())
			for _, ev := range tc.setup {
				_, err := fsm.ProcessEvent(ctx, ev)
				require.NoError(t, err)
			}

			before := fsm.State()
			outbox, err := fsm.ProcessEvent(ctx, tc.event)
			require.ErrorIs(t, err, ErrInvalidTransition)
			require.Nil(t, outbox)
			require.Equal(t, before, fsm.State())
		})
	}
}

// TestDialogFSM_GenerationOnlyWhenNeededProperty drives the FSM with random
// events against random store contents and checks that a generation request
// is emitted exactly when the shown document has nothing cached, failed or
// pending, or on a valid retry.
func TestDialogFSM_GenerationOnlyWhenNeededProperty(t *testing.T) {
	ctx := context.Background()
	docs := []summary.Document{nda, lease}

	rapid.Check(t, func(t *rapid.T) {
		store := summary.NewStore()
		fsm := NewFSM(store)
		env := &Environment{Summaries: store}

		numOps := rapid.IntRange(1, 40).Draw(t, "numOps")
		for i := 0; i < numOps; i++ {
			doc := rapid.SampledFrom(docs).Draw(t, "doc")

			// Mutate the store between UI events.
			switch rapid.IntRange(0, 3).Draw(t, "storeOp") {
			case 0:
				store.CompleteSummary(doc.ID, "text")
			case 1:
				store.FailSummary(doc.ID, "boom")
			case 2:
				store.ClearSummary(doc.ID)
			}

			var event Event
			switch rapid.IntRange(0, 4).Draw(t, "event") {
			case 0:
				event = OpenEvent{Doc: doc}
			case 1:
				event = MinimizeEvent{}
			case 2:
				event = MaximizeEvent{}
			case 3:
				event = CloseEvent{}
			case 4:
				event = RetryEvent{}
			}

			outbox, err := fsm.ProcessEvent(ctx, event)
			if err != nil {
				continue
			}

			shown := fsm.State().Document()
			if len(outbox) == 0 {
				continue
			}

			req := outbox[0].(GenerateRequest)
			if shown.UnwrapOr(summary.Document{}) != req.Doc {
				t.Fatalf("generation for %v while showing %v",
					req.Doc, shown)
			}

			_, retry := event.(RetryEvent)
			if !retry && !env.needsGeneration(req.Doc.ID) {
				t.Fatalf("unneeded generation for doc %d",
					req.Doc.ID)
			}
			if retry && !env.hasFailed(req.Doc.ID) {
				t.Fatalf("retry without failure for doc %d",
					req.Doc.ID)
			}
		}
	})
}
