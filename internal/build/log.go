package build

import (
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/btcsuite/btclog"
	btclogv2 "github.com/btcsuite/btclog/v2"
)

// LogConfig selects where log records go and at which level.
type LogConfig struct {
	// Dir is the directory for the rotating log file. Empty disables
	// file logging.
	Dir string

	// Level is a btclog level name: trace, debug, info, warn, error,
	// critical or off.
	Level string

	// MaxFiles is the number of rotated files to keep.
	MaxFiles int

	// MaxFileSize is the rotation threshold in megabytes.
	MaxFileSize int

	// Console receives a copy of every record when set. The TUI leaves it
	// nil so logs never draw over the screen.
	Console io.Writer
}

// ParseLevel parses a btclog level name. An empty name is Info.
func ParseLevel(name string) (btclog.Level, error) {
	if name == "" {
		return btclog.LevelInfo, nil
	}

	level, ok := btclog.LevelFromString(strings.ToLower(name))
	if !ok {
		return 0, fmt.Errorf("unknown log level %q", name)
	}

	return level, nil
}

// NewLogger builds a logger that fans records out to the console and a
// rotating log file. The returned closer flushes and closes the file.
func NewLogger(cfg LogConfig) (*slog.Logger, io.Closer, error) {
	level, err := ParseLevel(cfg.Level)
	if err != nil {
		return nil, nil, err
	}

	var (
		handlers []btclogv2.Handler
		closer   io.Closer = nopCloser{}
	)

	if cfg.Console != nil {
		handlers = append(handlers, btclogv2.NewDefaultHandler(cfg.Console))
	}

	if cfg.Dir != "" {
		writer, err := OpenRotatingLogWriter(LogFileConfig{
			Dir:         cfg.Dir,
			MaxFiles:    cfg.MaxFiles,
			MaxFileSize: cfg.MaxFileSize,
		})
		if err != nil {
			return nil, nil, err
		}

		closer = writer
		handlers = append(handlers, btclogv2.NewDefaultHandler(writer))
	}

	if len(handlers) == 0 {
		return slog.New(slog.DiscardHandler), closer, nil
	}

	set := NewHandlerSet(handlers...)
	set.SetLevel(level)

	return slog.New(set), closer, nil
}
