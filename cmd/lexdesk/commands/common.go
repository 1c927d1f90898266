package commands

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/roasbeef/lexdesk/internal/auth"
	"github.com/roasbeef/lexdesk/internal/build"
	"github.com/roasbeef/lexdesk/internal/config"
	"github.com/roasbeef/lexdesk/internal/lexapi"
	"github.com/roasbeef/lexdesk/internal/summary"
	"golang.org/x/oauth2"
)

// app bundles the components every command builds from the config.
type app struct {
	cfg      *config.Config
	log      *slog.Logger
	logClose io.Closer
	client   *lexapi.Client
	creds    auth.Chain
	registry *prometheus.Registry
	metrics  *summary.Metrics
}

// loadConfig reads the config file and applies the global flag overrides.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	if serverURL != "" {
		cfg.Server.URL = serverURL
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// newApp loads the config and builds the logger and backend client. When
// console is nil, logs go only to the rotating log file.
func newApp(console io.Writer) (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}

	logCfg := cfg.LogSettings()
	logCfg.Console = console

	log, closer, err := build.NewLogger(logCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to set up logging: %w", err)
	}

	timeout, err := cfg.RequestTimeout()
	if err != nil {
		closer.Close()
		return nil, err
	}

	client, err := lexapi.NewClient(lexapi.Config{
		BaseURL: cfg.Server.URL,
		Timeout: timeout,
	}, log)
	if err != nil {
		closer.Close()
		return nil, err
	}

	registry := prometheus.NewRegistry()

	return &app{
		cfg:      cfg,
		log:      log,
		logClose: closer,
		client:   client,
		creds:    auth.DefaultProvider(client.BaseURL()),
		registry: registry,
		metrics:  summary.NewMetrics(registry),
	}, nil
}

// Close flushes the log file.
func (a *app) Close() {
	a.logClose.Close()
}

// newService creates a summary service over a fresh store.
func (a *app) newService(toasts summary.Toaster) *summary.Service {
	return summary.NewService(
		a.cfg.SummaryService(), summary.NewStore(), a.client, a.creds,
		toasts, a.metrics, a.log,
	)
}

// tokenSource returns an oauth2 token source over the credential chain.
func (a *app) tokenSource(ctx context.Context) oauth2.TokenSource {
	return auth.TokenSource(ctx, a.creds)
}

// parseDocumentID parses a positive document id argument.
func parseDocumentID(arg string) (int64, error) {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid document id %q", arg)
	}

	return id, nil
}

// authHint adds a login hint to errors caused by missing or rejected
// credentials.
func authHint(err error) error {
	if err == nil {
		return nil
	}
	if lexapi.IsUnauthorized(err) ||
		errors.Is(err, summary.ErrNotAuthenticated) {

		return fmt.Errorf("%w (run \"lexdesk login\")", err)
	}

	return err
}

// outputJSON writes v as indented JSON to stdout.
func outputJSON(v interface{}) error {
	return writeJSON(os.Stdout, v)
}

// writeJSON writes v as indented JSON to w.
func writeJSON(w io.Writer, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}
