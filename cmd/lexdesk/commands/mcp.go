package commands

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/roasbeef/lexdesk/internal/lexapi"
	"github.com/roasbeef/lexdesk/internal/mcp"
	"github.com/roasbeef/lexdesk/internal/summary"
	"github.com/spf13/cobra"
)

var metricsAddr string

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve the summary tools over MCP stdio",
	Long: `Run an MCP server on stdin/stdout exposing document listing, summary
generation, question answering, search and deletion tools. Logs go to stderr
and the log file.`,
	RunE: runMCP,
}

func init() {
	mcpCmd.Flags().StringVar(&metricsAddr, "metrics", "",
		"Serve prometheus metrics on this address (overrides config)")
}

func runMCP(cmd *cobra.Command, args []string) error {
	// Set up signal handling for graceful shutdown.
	ctx, stop := signal.NotifyContext(
		context.Background(), os.Interrupt, syscall.SIGTERM,
	)
	defer stop()

	// stdout carries the protocol, so console logs go to stderr.
	a, err := newApp(os.Stderr)
	if err != nil {
		return err
	}
	defer a.Close()

	svc := a.newService(nil)
	defer svc.Close()

	notifier := summary.NewNotifier(a.metrics, a.log)
	detach := notifier.Attach(svc.Store())
	defer detach()

	server := mcp.NewServer(mcp.Config{
		Service:  svc,
		Notifier: notifier,
		Documents: func(ctx context.Context, page,
			limit int) ([]lexapi.DocumentInfo, error) {

			docs, err := a.client.ListDocuments(
				ctx, a.tokenSource(ctx), page, limit,
			)
			return docs, authHint(err)
		},
		Library: &library{app: a},
		Log:     a.log,
	})
	defer server.Close()

	addr := metricsAddr
	if addr == "" {
		addr = a.cfg.Metrics.ListenAddr
	}
	if addr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(
			a.registry, promhttp.HandlerOpts{},
		))
		metricsServer := &http.Server{
			Addr:              addr,
			Handler:           mux,
			ReadHeaderTimeout: 10 * time.Second,
		}

		go func() {
			a.log.Info("Serving metrics", "addr", addr)
			err := metricsServer.ListenAndServe()
			if err != nil && !errors.Is(err, http.ErrServerClosed) {
				a.log.Error("Metrics server error", "error", err)
			}
		}()

		defer func() {
			shutdownCtx, cancel := context.WithTimeout(
				context.Background(), 5*time.Second,
			)
			defer cancel()
			metricsServer.Shutdown(shutdownCtx)
		}()
	}

	a.log.Info("Starting lexdesk MCP server", "server", a.client.BaseURL())

	err = server.Run(ctx, &sdkmcp.StdioTransport{})
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}

	return nil
}

// library binds the backend client to the stored credentials for the MCP
// tools.
type library struct {
	app *app
}

func (l *library) AskQuestion(ctx context.Context, docID int64,
	question string) (*lexapi.Answer, error) {

	ans, err := l.app.client.AskQuestion(
		ctx, l.app.tokenSource(ctx), docID, question,
	)
	return ans, authHint(err)
}

func (l *library) PreviousQuestions(ctx context.Context,
	docID int64) ([]lexapi.QuestionAnswer, error) {

	qs, err := l.app.client.PreviousQuestions(
		ctx, l.app.tokenSource(ctx), docID,
	)
	return qs, authHint(err)
}

func (l *library) Search(ctx context.Context,
	query string) (*lexapi.SearchResults, error) {

	res, err := l.app.client.Search(ctx, l.app.tokenSource(ctx), query)
	return res, authHint(err)
}

func (l *library) DeleteDocument(ctx context.Context, docID int64) error {
	return authHint(
		l.app.client.DeleteDocument(ctx, l.app.tokenSource(ctx), docID),
	)
}

// Ensure library implements mcp.Library at compile time.
var _ mcp.Library = (*library)(nil)
