// Package tui is the terminal front-end: a document list with a summary
// dialog that can be minimized while its summary keeps generating.
package tui

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/roasbeef/lexdesk/internal/dialog"
	"github.com/roasbeef/lexdesk/internal/summary"
)

// maxMessages is how many toasts and notifications the tray keeps.
const maxMessages = 3

// DocumentLoader fetches the documents shown in the list.
type DocumentLoader func(ctx context.Context) ([]summary.Document, error)

// Config wires the model to the summary core.
type Config struct {
	Service   *summary.Service
	Notifier  *summary.Notifier
	Toasts    ToastChannel
	Documents DocumentLoader
	Clipboard dialog.Clipboard
	Styles    *Styles
	Keys      *KeyMap
	Log       *slog.Logger
}

// trayEntry is a line in the message tray.
type trayEntry struct {
	text  string
	level summary.ToastLevel
}

// Model is the bubbletea model.
type Model struct {
	ctx    context.Context
	svc    *summary.Service
	dialog *dialog.Dialog
	load   DocumentLoader
	styles *Styles
	keys   *KeyMap
	log    *slog.Logger

	storeCh     chan struct{}
	unsubStore  func()
	notifier    *summary.Notifier
	noteSubID   string
	notes       <-chan summary.Notification
	toasts      ToastChannel
	shutdownRan bool

	docs     []summary.Document
	cursor   int
	loading  bool
	loadErr  error
	tray     []trayEntry
	spinner  spinner.Model
	viewport viewport.Model
	width    int
	height   int
}

// New creates the model. Summary requests started from the dialog inherit
// ctx.
func New(ctx context.Context, cfg Config) *Model {
	if cfg.Styles == nil {
		cfg.Styles = NewStyles(nil)
	}
	if cfg.Keys == nil {
		cfg.Keys = DefaultKeyMap()
	}
	if cfg.Log == nil {
		cfg.Log = slog.Default()
	}
	if cfg.Toasts == nil {
		cfg.Toasts = NewToastChannel(0)
	}

	m := &Model{
		ctx:     ctx,
		svc:     cfg.Service,
		load:    cfg.Documents,
		styles:  cfg.Styles,
		keys:    cfg.Keys,
		log:     cfg.Log.With("component", "tui"),
		storeCh: make(chan struct{}, 1),
		toasts:  cfg.Toasts,
		loading: cfg.Documents != nil,
		spinner: spinner.New(spinner.WithSpinner(spinner.Dot)),
	}

	m.dialog = dialog.NewDialog(ctx, cfg.Service, cfg.Clipboard, cfg.Log)

	// Store listeners must not block, so changes are coalesced into a
	// single pending signal.
	m.unsubStore = cfg.Service.Store().Subscribe(func(summary.State) {
		select {
		case m.storeCh <- struct{}{}:
		default:
		}
	})

	if cfg.Notifier != nil {
		m.notifier = cfg.Notifier
		m.notifier.SetForeground(m.dialog.IsForeground)
		m.noteSubID, m.notes = m.notifier.SubscribeChan(0)
	}

	return m
}

// Dialog returns the summary dialog binding.
func (m *Model) Dialog() *dialog.Dialog {
	return m.dialog
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	cmds := []tea.Cmd{
		m.spinner.Tick,
		waitForStore(m.storeCh),
		waitForToast(m.toasts),
	}
	if m.notes != nil {
		cmds = append(cmds, waitForNotification(m.notes))
	}
	if m.load != nil {
		cmds = append(cmds, m.loadDocuments())
	}

	return tea.Batch(cmds...)
}

func (m *Model) loadDocuments() tea.Cmd {
	load := m.load
	ctx := m.ctx

	return func() tea.Msg {
		docs, err := load(ctx)
		return documentsLoadedMsg{docs: docs, err: err}
	}
}

// SetDocuments replaces the document list.
func (m *Model) SetDocuments(docs []summary.Document) {
	m.docs = docs
	m.loading = false
	m.loadErr = nil
	if m.cursor >= len(docs) {
		m.cursor = max(len(docs)-1, 0)
	}
}

// Shutdown detaches the model and tears the summary service down, which
// cancels every request still in flight. It is safe to call more than once.
func (m *Model) Shutdown() {
	if m.shutdownRan {
		return
	}
	m.shutdownRan = true
	m.log.Debug("Shutting down summary view")

	m.unsubStore()
	if m.notifier != nil {
		m.notifier.SetForeground(nil)
		m.notifier.Unsubscribe(m.noteSubID)
	}

	m.svc.Close()
	m.dialog.Wait()
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.viewport.Width = max(msg.Width-6, 20)
		m.viewport.Height = max(msg.Height-12, 3)
		m.refreshViewport()
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case documentsLoadedMsg:
		if msg.err != nil {
			m.loading = false
			m.loadErr = msg.err
			return m, nil
		}
		m.SetDocuments(msg.docs)
		return m, nil

	case storeChangedMsg:
		m.refreshViewport()
		return m, waitForStore(m.storeCh)

	case notificationMsg:
		m.pushTray(msg.note.Message, summary.ToastSuccess)
		return m, waitForNotification(m.notes)

	case toastMsg:
		m.pushTray(fmt.Sprintf("%s: %s", toastTitle(msg.toast),
			msg.toast.Message), msg.toast.Level)
		return m, waitForToast(m.toasts)

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	return m, nil
}

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	var err error

	switch {
	case key.Matches(msg, m.keys.Quit):
		m.Shutdown()
		return m, tea.Quit

	case key.Matches(msg, m.keys.Up):
		if m.dialog.Visibility() == dialog.VisibilityOpen {
			m.viewport.LineUp(1)
		} else if m.cursor > 0 {
			m.cursor--
		}

	case key.Matches(msg, m.keys.Down):
		if m.dialog.Visibility() == dialog.VisibilityOpen {
			m.viewport.LineDown(1)
		} else if m.cursor < len(m.docs)-1 {
			m.cursor++
		}

	case key.Matches(msg, m.keys.Open):
		if doc, ok := m.selected(); ok {
			err = m.dialog.Open(doc)
			m.viewport.GotoTop()
		}

	case key.Matches(msg, m.keys.Minimize):
		err = m.dialog.Minimize()

	case key.Matches(msg, m.keys.Restore):
		err = m.dialog.Maximize()

	case key.Matches(msg, m.keys.Close):
		err = m.dialog.Close()

	case key.Matches(msg, m.keys.Retry):
		err = m.dialog.Retry()

	case key.Matches(msg, m.keys.Copy):
		if err = m.dialog.Copy(); err == nil {
			m.pushTray("Summary copied to clipboard",
				summary.ToastSuccess)
		}

	case key.Matches(msg, m.keys.Cancel):
		vm := m.dialog.View()
		if vm.Visibility != dialog.VisibilityClosed &&
			m.svc.CancelSummaryGeneration(vm.Doc.ID) {

			m.pushTray("Summary request cancelled",
				summary.ToastSuccess)
		}

	case key.Matches(msg, m.keys.Refresh):
		if m.load != nil {
			m.loading = true
			return m, m.loadDocuments()
		}
	}

	// Keys that do not apply to the current dialog state are ignored.
	if err != nil && !errors.Is(err, dialog.ErrInvalidTransition) {
		m.pushTray(err.Error(), summary.ToastError)
	}

	m.refreshViewport()

	return m, nil
}

func (m *Model) selected() (summary.Document, bool) {
	if m.cursor < 0 || m.cursor >= len(m.docs) {
		return summary.Document{}, false
	}

	return m.docs[m.cursor], true
}

func (m *Model) pushTray(text string, level summary.ToastLevel) {
	m.tray = append(m.tray, trayEntry{text: text, level: level})
	if len(m.tray) > maxMessages {
		m.tray = m.tray[len(m.tray)-maxMessages:]
	}
}

// refreshViewport loads the current summary text into the viewport.
func (m *Model) refreshViewport() {
	vm := m.dialog.View()
	if vm.Phase == dialog.PhaseReady {
		m.viewport.SetContent(wrap(vm.Content, m.viewport.Width))
	} else {
		m.viewport.SetContent("")
	}
}

// View implements tea.Model.
func (m *Model) View() string {
	var b strings.Builder

	b.WriteString(m.styles.Title.Render("Documents"))
	b.WriteString("\n\n")
	b.WriteString(m.renderList())

	vm := m.dialog.View()
	switch vm.Visibility {
	case dialog.VisibilityOpen:
		b.WriteString("\n")
		b.WriteString(m.renderDialog(vm))

	case dialog.VisibilityMinimized:
		b.WriteString("\n")
		b.WriteString(m.styles.Tray.Render(fmt.Sprintf(
			"▾ %s (%s)  [o] restore  [esc] close",
			docTitle(vm.Doc), vm.Phase,
		)))
	}

	if len(m.tray) > 0 {
		b.WriteString("\n")
		for _, e := range m.tray {
			style := m.styles.Success
			if e.level == summary.ToastError {
				style = m.styles.Error
			}
			b.WriteString(style.Render(e.text))
			b.WriteString("\n")
		}
	}

	b.WriteString("\n")
	b.WriteString(m.styles.Help.Render(m.helpLine(vm)))

	return b.String()
}

func (m *Model) renderList() string {
	if m.loading {
		return m.styles.Muted.Render(m.spinner.View()+" Loading "+
			"documents...") + "\n"
	}
	if m.loadErr != nil {
		return m.styles.Error.Render("Error: "+m.loadErr.Error()) + "\n"
	}
	if len(m.docs) == 0 {
		return m.styles.Muted.Render("(No documents)") + "\n"
	}

	var b strings.Builder
	for i, doc := range m.docs {
		line := fmt.Sprintf("%s %s", m.statusGlyph(doc.ID), docTitle(doc))
		if i == m.cursor {
			b.WriteString(m.styles.Selected.Render("> " + line))
		} else {
			b.WriteString(m.styles.Normal.Render("  " + line))
		}
		b.WriteString("\n")
	}

	return b.String()
}

// statusGlyph marks each document with its summary state.
func (m *Model) statusGlyph(docID int64) string {
	rec := m.svc.GetSummary(docID)
	switch {
	case rec.IsNone():
		return " "
	case m.svc.IsSummaryLoading(docID):
		return m.spinner.View()
	}

	r := rec.UnwrapOr(summary.Record{})
	switch {
	case r.HasContent():
		return m.styles.Success.Render("✓")
	case r.HasError():
		return m.styles.Error.Render("!")
	default:
		return " "
	}
}

func (m *Model) renderDialog(vm dialog.ViewModel) string {
	var b strings.Builder

	b.WriteString(m.styles.Title.Render("Summary: " + docTitle(vm.Doc)))
	b.WriteString("\n\n")

	switch vm.Phase {
	case dialog.PhaseLoading:
		b.WriteString(m.spinner.View())
		b.WriteString(" Generating summary...")

	case dialog.PhaseReady:
		b.WriteString(m.viewport.View())

	case dialog.PhaseFailed:
		b.WriteString(m.styles.Error.Render(vm.Error))
		b.WriteString("\n")
		b.WriteString(m.styles.Warning.Render("[r] retry"))

	default:
		b.WriteString(m.styles.Muted.Render("No summary yet."))
	}

	return m.styles.Dialog.Render(b.String())
}

func (m *Model) helpLine(vm dialog.ViewModel) string {
	switch vm.Visibility {
	case dialog.VisibilityOpen:
		return "[↑/↓] scroll  [m] minimize  [c] copy  [x] cancel  " +
			"[esc] close  [q] quit"
	case dialog.VisibilityMinimized:
		return "[↑/↓] select  [enter] summary  [o] restore  [q] quit"
	default:
		return "[↑/↓] select  [enter] summary  [R] reload  [q] quit"
	}
}

func docTitle(doc summary.Document) string {
	if doc.Title != "" {
		return doc.Title
	}

	return fmt.Sprintf("document #%d", doc.ID)
}

func toastTitle(t summary.Toast) string {
	if t.Title != "" {
		return t.Title
	}

	return fmt.Sprintf("document #%d", t.DocID)
}

// wrap breaks text into lines no wider than width, on word boundaries where
// possible.
func wrap(text string, width int) string {
	if width <= 0 {
		return text
	}

	var out []string
	for _, para := range strings.Split(text, "\n") {
		line := ""
		for _, word := range strings.Fields(para) {
			switch {
			case line == "":
				line = word
			case len(line)+1+len(word) > width:
				out = append(out, line)
				line = word
			default:
				line += " " + word
			}
		}
		out = append(out, line)
	}

	return strings.Join(out, "\n")
}
