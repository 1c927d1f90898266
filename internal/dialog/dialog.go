package dialog

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/atotto/clipboard"
	"github.com/lightningnetwork/lnd/fn/v2"
	"github.com/roasbeef/lexdesk/internal/summary"
)

// ErrNothingToCopy is returned by Copy when no summary text is shown.
var ErrNothingToCopy = errors.New("no summary to copy")

// Summaries is the subset of the summary service the dialog needs.
type Summaries interface {
	SummaryReader

	GenerateSummary(ctx context.Context,
		doc summary.Document) fn.Option[string]
}

// Clipboard writes text to the system clipboard.
type Clipboard interface {
	WriteAll(text string) error
}

// systemClipboard is the default Clipboard backed by the OS clipboard.
type systemClipboard struct{}

func (systemClipboard) WriteAll(text string) error {
	return clipboard.WriteAll(text)
}

// Dialog binds the dialog FSM to the summary service. It never owns summary
// state: every view is derived from the store when requested, so a dialog
// that is reopened or restored always reflects the latest record.
//
// Generation requests emitted by the FSM run in their own goroutines under
// the dialog's context. Minimizing or closing the dialog never cancels them.
type Dialog struct {
	mu  sync.Mutex
	fsm *FSM

	ctx       context.Context
	summaries Summaries
	clipboard Clipboard

	wg  sync.WaitGroup
	log *slog.Logger
}

// NewDialog creates a closed dialog. Generation requests inherit ctx. A nil
// clipboard selects the system clipboard.
func NewDialog(ctx context.Context, summaries Summaries, clip Clipboard,
	log *slog.Logger) *Dialog {

	if clip == nil {
		clip = systemClipboard{}
	}
	if log == nil {
		log = slog.Default()
	}

	return &Dialog{
		fsm:       NewFSM(summaries),
		ctx:       ctx,
		summaries: summaries,
		clipboard: clip,
		log:       log.With("component", "dialog"),
	}
}

// Open shows the summary of doc, generating it if nothing is cached or in
// flight.
func (d *Dialog) Open(doc summary.Document) error {
	return d.process(OpenEvent{Doc: doc})
}

// Minimize collapses the open dialog.
func (d *Dialog) Minimize() error {
	return d.process(MinimizeEvent{})
}

// Maximize restores a minimized dialog.
func (d *Dialog) Maximize() error {
	return d.process(MaximizeEvent{})
}

// Close closes the dialog. The summary stays cached.
func (d *Dialog) Close() error {
	return d.process(CloseEvent{})
}

// Retry re-requests a failed summary.
func (d *Dialog) Retry() error {
	return d.process(RetryEvent{})
}

// process feeds event to the FSM and executes its outbox once the
// transition is committed. Generation is dispatched without holding mu so
// store listeners may query the dialog.
func (d *Dialog) process(event Event) error {
	d.mu.Lock()
	prev := d.fsm.State()
	outbox, err := d.fsm.ProcessEvent(d.ctx, event)
	next := d.fsm.State()
	d.mu.Unlock()

	if err != nil {
		return err
	}

	d.log.Debug("Dialog transition", "event", event, "from", prev,
		"to", next)

	for _, ev := range outbox {
		switch e := ev.(type) {
		case GenerateRequest:
			d.generate(e.Doc)
		}
	}

	return nil
}

// generate runs a summary request in the background.
func (d *Dialog) generate(doc summary.Document) {
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()

		d.summaries.GenerateSummary(d.ctx, doc)
	}()
}

// Wait blocks until every generation request started by the dialog has
// returned.
func (d *Dialog) Wait() {
	d.wg.Wait()
}

// Visibility returns the current presentation state.
func (d *Dialog) Visibility() Visibility {
	d.mu.Lock()
	defer d.mu.Unlock()

	return d.fsm.State().Visibility()
}

// IsForeground reports whether the summary of docID is open in the
// foreground. It matches summary.ForegroundFunc.
func (d *Dialog) IsForeground(docID int64) bool {
	d.mu.Lock()
	state := d.fsm.State()
	d.mu.Unlock()

	open, ok := state.(*StateOpen)

	return ok && open.Doc.ID == docID
}

// View derives the current view model from the FSM and the store.
func (d *Dialog) View() ViewModel {
	d.mu.Lock()
	state := d.fsm.State()
	d.mu.Unlock()

	vm := ViewModel{
		Visibility: state.Visibility(),
		Phase:      PhaseEmpty,
	}

	state.Document().WhenSome(func(doc summary.Document) {
		vm.Doc = doc
		d.summaries.GetSummary(doc.ID).WhenSome(vm.apply)
	})

	return vm
}

// Copy writes the shown summary to the clipboard.
func (d *Dialog) Copy() error {
	vm := d.View()
	if vm.Phase != PhaseReady {
		return ErrNothingToCopy
	}

	return d.clipboard.WriteAll(vm.Content)
}
