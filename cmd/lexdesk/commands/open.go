package commands

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/roasbeef/lexdesk/internal/summary"
	"github.com/roasbeef/lexdesk/internal/tui"
	"github.com/spf13/cobra"
)

var openLimit int

var openCmd = &cobra.Command{
	Use:   "open",
	Short: "Browse documents and their summaries",
	Long: `Open the interactive document browser. Select a document and press
enter to open its summary. A minimized summary keeps generating and you are
notified when it is ready.`,
	RunE: runOpen,
}

func init() {
	openCmd.Flags().IntVarP(&openLimit, "limit", "n", 50,
		"Maximum number of documents to list")
}

func runOpen(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Log only to the file so records never draw over the screen.
	a, err := newApp(nil)
	if err != nil {
		return err
	}
	defer a.Close()

	toasts := tui.NewToastChannel(a.cfg.Summary.NotificationBuffer)
	svc := a.newService(toasts)

	notifier := summary.NewNotifier(a.metrics, a.log)
	detach := notifier.Attach(svc.Store())
	defer detach()

	model := tui.New(ctx, tui.Config{
		Service:  svc,
		Notifier: notifier,
		Toasts:   toasts,
		Documents: func(ctx context.Context) ([]summary.Document,
			error) {

			docs, err := a.client.ListDocuments(
				ctx, a.tokenSource(ctx), 1, openLimit,
			)
			if err != nil {
				return nil, authHint(err)
			}

			out := make([]summary.Document, 0, len(docs))
			for _, d := range docs {
				out = append(out, d.Document())
			}

			return out, nil
		},
		Log: a.log,
	})
	defer model.Shutdown()

	a.log.Info("Starting document browser", "server", a.client.BaseURL())

	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("tui: %w", err)
	}

	return nil
}
