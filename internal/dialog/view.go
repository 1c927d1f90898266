package dialog

import "github.com/roasbeef/lexdesk/internal/summary"

// Phase describes what the dialog body shows.
type Phase int

const (
	// PhaseEmpty means there is no record yet, or the last request was
	// cancelled before producing anything.
	PhaseEmpty Phase = iota

	// PhaseLoading means a request is in flight.
	PhaseLoading

	// PhaseReady means summary text is available.
	PhaseReady

	// PhaseFailed means the last attempt failed and can be retried.
	PhaseFailed
)

// String returns the phase name.
func (p Phase) String() string {
	switch p {
	case PhaseEmpty:
		return "empty"
	case PhaseLoading:
		return "loading"
	case PhaseReady:
		return "ready"
	case PhaseFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// ViewModel is a render-ready snapshot of the dialog.
type ViewModel struct {
	Visibility Visibility
	Doc        summary.Document
	Phase      Phase
	Content    string
	Error      string
}

// CanRetry reports whether the retry affordance should be offered.
func (v ViewModel) CanRetry() bool {
	return v.Phase == PhaseFailed
}

// apply fills the body fields from rec.
func (v *ViewModel) apply(rec summary.Record) {
	if rec.DocumentTitle != "" && v.Doc.Title == "" {
		v.Doc.Title = rec.DocumentTitle
	}

	switch {
	case rec.IsLoading:
		v.Phase = PhaseLoading

	case rec.HasContent():
		v.Phase = PhaseReady
		v.Content = rec.ContentText()

	case rec.HasError():
		v.Phase = PhaseFailed
		v.Error = rec.ErrorText()
	}
}
